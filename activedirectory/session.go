package activedirectory

import (
	"fmt"
	"strings"

	"f0oster/adaudit/credentials"

	"github.com/go-ldap/ldap/v3"
)

const defaultPageSize = 1000

// BindError reports a rejected bind for one credential. The orchestrator
// treats it as non-fatal in rotation mode: the category is skipped.
type BindError struct {
	Endpoint  string
	Principal string
	Err       error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind to %s as %s: %v", e.Endpoint, e.Principal, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// SearchError reports a protocol or network fault after a successful bind.
type SearchError struct {
	Filter string
	Err    error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %s failed: %v", e.Filter, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// Session is a bound LDAP connection scoped to one domain. Sessions are
// ephemeral: in rotation mode the orchestrator opens one per query and
// closes it before the next.
type Session struct {
	BaseDN   string
	endpoint string
	conn     *ldap.Conn
	pageSize uint32
}

// BaseDNFromDomain derives the search base from the domain name, so
// "corp.local" becomes "DC=corp,DC=local".
func BaseDNFromDomain(domain string) string {
	parts := strings.Split(domain, ".")
	for i, part := range parts {
		parts[i] = "DC=" + part
	}
	return strings.Join(parts, ",")
}

// Open dials the domain controller and performs exactly one NTLM bind with
// the given credential, interpreting the secret according to its kind.
// There are no retries; a rejected bind comes back as a BindError.
func Open(endpoint, domain string, cred credentials.Credential) (*Session, error) {
	conn, err := ldap.DialURL(fmt.Sprintf("ldap://%s", endpoint))
	if err != nil {
		return nil, &BindError{Endpoint: endpoint, Principal: cred.Identifier, Err: err}
	}

	switch cred.Kind {
	case credentials.KindHash:
		err = conn.NTLMBindWithHash(domain, cred.Identifier, cred.Secret)
	default:
		err = conn.NTLMBind(domain, cred.Identifier, cred.Secret)
	}
	if err != nil {
		conn.Close()
		principal := fmt.Sprintf("%s\\%s", domain, cred.Identifier)
		return nil, &BindError{Endpoint: endpoint, Principal: principal, Err: err}
	}

	return &Session{
		BaseDN:   BaseDNFromDomain(domain),
		endpoint: endpoint,
		conn:     conn,
		pageSize: defaultPageSize,
	}, nil
}

// Search runs one whole-subtree paged search under the session's base DN.
// No matches is an empty slice, not an error.
func (s *Session) Search(filter string, attributes []string, controls ...ldap.Control) ([]*ldap.Entry, error) {
	request := ldap.NewSearchRequest(
		s.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		attributes,
		controls,
	)

	result, err := s.conn.SearchWithPaging(request, s.pageSize)
	if err != nil {
		return nil, &SearchError{Filter: filter, Err: err}
	}
	return result.Entries, nil
}

func (s *Session) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
