package credentials

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// SecretKind distinguishes how a credential's secret is presented to the
// domain controller during an NTLM bind.
type SecretKind int

const (
	KindPassword SecretKind = iota
	KindHash
)

func (k SecretKind) String() string {
	if k == KindHash {
		return "hash"
	}
	return "password"
}

// Credential is a single (identifier, secret) pair. Exactly one secret
// interpretation is active, selected by Kind.
type Credential struct {
	Identifier string
	Secret     string
	Kind       SecretKind
}

// Pool is an ordered, read-only set of credentials loaded once at startup.
type Pool []Credential

// hashMarker prefixes secrets that are NTLM hashes rather than passwords,
// e.g. "svc_sql:HASH:aad3b435b51404eeaad3b435b51404ee".
const hashMarker = "HASH"

// LoadPool reads a credential file with one "identifier:secret" entry per
// line. Blank lines and lines starting with '#' are ignored.
func LoadPool(path string) (Pool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential file: %w", err)
	}
	defer file.Close()

	var pool Pool
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		identifier, secret, found := strings.Cut(line, ":")
		if !found || identifier == "" || secret == "" {
			return nil, fmt.Errorf("malformed credential on line %d of %s", lineNo, path)
		}

		cred := Credential{Identifier: identifier, Secret: secret, Kind: KindPassword}
		if strings.HasPrefix(secret, hashMarker) {
			cred.Kind = KindHash
			cred.Secret = strings.TrimPrefix(strings.TrimPrefix(secret, hashMarker), ":")
			if cred.Secret == "" {
				return nil, fmt.Errorf("empty hash on line %d of %s", lineNo, path)
			}
		}
		pool = append(pool, cred)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	return pool, nil
}
