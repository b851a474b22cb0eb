package cli

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/keyhandler/config"
	"github.com/effective-security/keyhandler/keyhandler"
)

// FingerprintCmd specifies flags for the fingerprint command
type FingerprintCmd struct {
	Cfg      string `help:"Location of the service config file" required:"" type:"existingfile"`
	Key      string `help:"Armored public key file, - for stdin" required:""`
	Password string `help:"Password to authenticate with" required:""`
}

// Run the command
func (a *FingerprintCmd) Run(ctx *Cli) error {
	cfg, err := config.Load(a.Cfg)
	if err != nil {
		return err
	}
	if err = ctx.ApplyConfigLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	key, err := ctx.ReadFile(a.Key)
	if err != nil {
		return errors.WithMessage(err, "unable to load key")
	}

	svc, err := NewService(cfg)
	if err != nil {
		return errors.WithMessage(err, "unable to create service")
	}

	publicKey := string(key)
	res := svc.GetFingerprint(ctx.Context(), keyhandler.Request{
		PublicKey: &publicKey,
		Password:  &a.Password,
	})
	fmt.Fprintln(ctx.Writer(), res.String())

	if res.Outcome != keyhandler.Done {
		return errors.Errorf("request failed: %s", res.Outcome)
	}
	return nil
}
