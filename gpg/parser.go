package gpg

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Status lines are documented in
// https://github.com/gpg/gnupg/blob/master/doc/DETAILS
const (
	statusPrefix    = "[GNUPG:] "
	statusImportOK  = "IMPORT_OK"
	statusImportRes = "IMPORT_RES"
)

// parseImportStatus reads the status lines of `gpg --status-fd 1 --import`.
//
//	[GNUPG:] IMPORT_OK <reason> <fingerprint>
//	[GNUPG:] IMPORT_RES <count> <no_user_id> <imported> ...
func parseImportStatus(stdout string) (*ImportOutcome, error) {
	res := &ImportOutcome{}
	found := false

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, statusPrefix) {
			continue
		}
		fields := strings.Fields(line[len(statusPrefix):])
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case statusImportOK:
			fpr := ""
			if len(fields) > 2 {
				fpr = fields[2]
			}
			res.Fingerprints = append(res.Fingerprints, fpr)

		case statusImportRes:
			if len(fields) < 2 {
				return nil, errors.Errorf("invalid status line: %q", line)
			}
			count, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, errors.WithMessagef(err, "invalid status line: %q", line)
			}
			res.Count = count
			found = true
		}
	}

	if !found {
		return nil, errors.New("gpg did not report an import result")
	}
	return res, nil
}

// parseListKeys reads the output of `gpg --with-colons --fixed-list-mode
// --with-fingerprint --list-keys`. Only primary keys are returned,
// subkey fingerprints are skipped.
func parseListKeys(stdout string) []KeyringEntry {
	parser := listKeysParser{}

	for _, line := range strings.Split(stdout, "\n") {
		parser.PushLine(strings.Split(strings.TrimRight(line, "\r"), ":"))
	}

	return parser.Keys()
}

// listKeysParser builds up a partial entry as lines are pushed, because the
// fields of one key are spread over pub, fpr and uid records.
type listKeysParser struct {
	partial *KeyringEntry
	inSub   bool
	keys    []KeyringEntry
}

// PushLine adds one colon-split record to the parser
func (p *listKeysParser) PushLine(cols []string) {
	switch cols[0] {
	case "pub":
		p.handlePublicKeyLine(cols)
	case "sub":
		p.inSub = true
	case "fpr":
		p.handleFingerprintLine(cols)
	case "uid":
		p.handleUIDLine(cols)
	}
}

// Keys returns the accumulated entries, call after all lines were pushed
func (p *listKeysParser) Keys() []KeyringEntry {
	p.addPartialToList()
	if p.keys == nil {
		return []KeyringEntry{}
	}
	return p.keys
}

func (p *listKeysParser) handlePublicKeyLine(cols []string) {
	p.addPartialToList()
	p.inSub = false

	entry := &KeyringEntry{}
	if len(cols) > 4 {
		entry.KeyID = strings.ToUpper(cols[4])
	}
	if len(cols) > 5 {
		if ts, err := strconv.ParseInt(cols[5], 10, 64); err == nil {
			entry.Created = time.Unix(ts, 0).UTC()
		}
	}
	p.partial = entry
}

func (p *listKeysParser) handleFingerprintLine(cols []string) {
	if p.partial == nil || p.inSub || p.partial.Fingerprint != "" {
		return
	}
	if len(cols) > 9 {
		p.partial.Fingerprint = cols[9]
	}
}

func (p *listKeysParser) handleUIDLine(cols []string) {
	if p.partial == nil || len(cols) <= 9 || cols[9] == "" {
		return
	}
	p.partial.UserIDs = append(p.partial.UserIDs, unescapeColons(cols[9]))
}

func (p *listKeysParser) addPartialToList() {
	if p.partial != nil && p.partial.Fingerprint != "" {
		p.keys = append(p.keys, *p.partial)
	}
	p.partial = nil
}

// unescapeColons reverses the C-style escaping gpg applies to user IDs
func unescapeColons(s string) string {
	return strings.NewReplacer(`\x3a`, ":", `\x5c`, `\`).Replace(s)
}
