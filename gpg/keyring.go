package gpg

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/keyhandler", "gpg")

const (
	armorHeader = "-----BEGIN PGP PUBLIC KEY BLOCK-----"
	armorFooter = "-----END PGP PUBLIC KEY BLOCK-----"

	// armorLineLength is the base64 line length used by GnuPG
	armorLineLength = 64
)

// KeyRing reads all public keys from the armored blocks in data.
func KeyRing(data []byte) (openpgp.EntityList, error) {
	keyring := make(openpgp.EntityList, 0)

	for {
		start := bytes.Index(data, []byte(armorHeader))
		if start < 0 {
			logger.KV(xlog.TRACE, "reason", "no_block", "remaining", len(data))
			break
		}
		data = data[start:]

		end := bytes.Index(data, []byte(armorFooter))
		if end < 0 {
			return nil, errors.New("armored block is missing the footer")
		}
		end += len(armorFooter)

		block, err := armor.Decode(bytes.NewReader(data[:end]))
		if err != nil {
			return nil, errors.WithMessage(err, "unable to decode armored block")
		}

		if block.Type == openpgp.PublicKeyType {
			// extract keys
			el, err := openpgp.ReadKeyRing(block.Body)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			// append keyring
			keyring = append(keyring, el...)
		}
		data = data[end:]
	}

	if len(keyring) == 0 {
		return nil, errors.New("no public keys found")
	}
	return keyring, nil
}

// Fingerprint returns the uppercase hex fingerprint of the entity's primary key
func Fingerprint(e *openpgp.Entity) string {
	return strings.ToUpper(hex.EncodeToString(e.PrimaryKey.Fingerprint))
}

// Entry converts the entity to KeyringEntry
func Entry(e *openpgp.Entity) KeyringEntry {
	entry := KeyringEntry{
		Fingerprint: Fingerprint(e),
		KeyID:       fmt.Sprintf("%016X", e.PrimaryKey.KeyId),
		Created:     e.PrimaryKey.CreationTime.UTC(),
	}
	for name := range e.Identities {
		entry.UserIDs = append(entry.UserIDs, name)
	}
	sort.Strings(entry.UserIDs)
	return entry
}

// Reflow restores the armor line structure of a key block that was
// submitted with its line breaks removed:
//
//	-----BEGIN PGP PUBLIC KEY BLOCK-----<base64>=<crc>-----END PGP PUBLIC KEY BLOCK-----
//
// Blocks that already contain line breaks, or that do not carry both
// markers, are returned unchanged.
func Reflow(keyBlock string) string {
	if strings.ContainsAny(keyBlock, "\r\n") ||
		!strings.HasPrefix(keyBlock, armorHeader) ||
		!strings.HasSuffix(keyBlock, armorFooter) ||
		len(keyBlock) < len(armorHeader)+len(armorFooter) {
		return keyBlock
	}

	payload := keyBlock[len(armorHeader) : len(keyBlock)-len(armorFooter)]

	// the base64 body only carries '=' as trailing padding,
	// so a '=' five characters from the end starts the checksum
	var checksum string
	if n := len(payload); n >= 5 && payload[n-5] == '=' {
		checksum = payload[n-5:]
		payload = payload[:n-5]
	}

	var b strings.Builder
	b.WriteString(armorHeader)
	b.WriteString("\n\n")
	for len(payload) > armorLineLength {
		b.WriteString(payload[:armorLineLength])
		b.WriteByte('\n')
		payload = payload[armorLineLength:]
	}
	if payload != "" {
		b.WriteString(payload)
		b.WriteByte('\n')
	}
	if checksum != "" {
		b.WriteString(checksum)
		b.WriteByte('\n')
	}
	b.WriteString(armorFooter)
	return b.String()
}
