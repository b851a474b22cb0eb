package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/keyhandler/credential"
	"github.com/effective-security/keyhandler/validate"
)

// HashCmd specifies flags for the hash command
type HashCmd struct {
	Password string `help:"Password to hash, read from stdin when omitted"`
	Time     uint32 `help:"Number of argon2 iterations" default:"3"`
	Memory   uint32 `help:"argon2 memory in KiB" default:"65536"`
	Threads  uint8  `help:"argon2 parallelism" default:"4"`
}

// Run the command
func (a *HashCmd) Run(ctx *Cli) error {
	password := a.Password
	if password == "" {
		line, err := bufio.NewReader(ctx.Reader()).ReadString('\n')
		if err != nil && line == "" {
			return errors.WithMessage(err, "unable to read password")
		}
		password = line
	}
	password = strings.TrimSpace(password)

	if !validate.ValidatePassword(password) {
		return errors.New("password validation failed")
	}

	p := credential.DefaultParams
	p.Time = a.Time
	p.Memory = a.Memory
	p.Threads = a.Threads

	hash, err := credential.Hash(password, p)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Writer(), hash)
	return nil
}
