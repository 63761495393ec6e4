package enumeration_test

import (
	"encoding/binary"
	"testing"

	"f0oster/adaudit/enumeration"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryFor(t *testing.T, category enumeration.Category) enumeration.Query {
	t.Helper()
	for _, query := range enumeration.Catalog() {
		if query.Category == category {
			return query
		}
	}
	t.Fatalf("no catalog query for category %q", category)
	return enumeration.Query{}
}

// encodeSID builds a binary SID: revision, sub-authority count, 48-bit
// big-endian authority, little-endian sub-authorities.
func encodeSID(authority byte, subAuths ...uint32) []byte {
	sid := []byte{1, byte(len(subAuths)), 0, 0, 0, 0, 0, authority}
	for _, sa := range subAuths {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], sa)
		sid = append(sid, buf[:]...)
	}
	return sid
}

func TestCatalog_OrderAndFilters(t *testing.T) {
	catalog := enumeration.Catalog()
	require.Len(t, catalog, 6)

	wantOrder := enumeration.Categories()
	for i, query := range catalog {
		assert.Equal(t, wantOrder[i], query.Category)
	}

	assert.Equal(t,
		"(userAccountControl:1.2.840.113556.1.4.803:=4194304)",
		queryFor(t, enumeration.CategoryNoPreauth).Filter)
	assert.Equal(t,
		"(sIDHistory=*)",
		queryFor(t, enumeration.CategorySIDHistory).Filter)
	assert.Equal(t,
		"(userAccountControl:1.2.840.113556.1.4.803:=524288)",
		queryFor(t, enumeration.CategoryDelegation).Filter)
	assert.Equal(t,
		"(|(msDS-AllowedToDelegateTo=*)(msDS-AllowedToActOnBehalfOfOtherIdentity=*))",
		queryFor(t, enumeration.CategoryDCSync).Filter)
	assert.Equal(t,
		"(nTSecurityDescriptor=*)",
		queryFor(t, enumeration.CategoryFullControl).Filter)
	assert.Equal(t,
		"(servicePrincipalName=*)",
		queryFor(t, enumeration.CategoryService).Filter)

	require.Len(t, queryFor(t, enumeration.CategoryFullControl).Controls, 1)
}

func TestShape_NoPreauth(t *testing.T) {
	query := queryFor(t, enumeration.CategoryNoPreauth)

	entry := ldap.NewEntry("CN=svc_legacy,CN=Users,DC=corp,DC=local", map[string][]string{
		"cn":                 {"svc_legacy"},
		"userAccountControl": {"4260352"},
	})

	record, ok := query.Shape(entry)
	require.True(t, ok)
	assert.Equal(t, "svc_legacy", record.Subject)
	assert.Equal(t, "4260352", record.Related)
}

func TestShape_SIDHistory(t *testing.T) {
	query := queryFor(t, enumeration.CategorySIDHistory)

	entry := &ldap.Entry{
		DN: "CN=migrated,CN=Users,DC=corp,DC=local",
		Attributes: []*ldap.EntryAttribute{
			{Name: "cn", Values: []string{"migrated"}},
			{Name: "sIDHistory", ByteValues: [][]byte{encodeSID(5, 21, 1111, 2222, 3333, 512)}},
		},
	}

	record, ok := query.Shape(entry)
	require.True(t, ok)
	assert.Equal(t, "migrated", record.Subject)
	assert.Equal(t, "S-1-5-21-1111-2222-3333-512", record.Related)
}

func TestShape_SIDHistoryUndecodable(t *testing.T) {
	query := queryFor(t, enumeration.CategorySIDHistory)

	entry := &ldap.Entry{
		DN: "CN=migrated,CN=Users,DC=corp,DC=local",
		Attributes: []*ldap.EntryAttribute{
			{Name: "cn", Values: []string{"migrated"}},
			{Name: "sIDHistory", ByteValues: [][]byte{{0x01, 0x02}}},
		},
	}

	record, ok := query.Shape(entry)
	require.True(t, ok)
	assert.Empty(t, record.Related)
}

func TestShape_DelegationWithAndWithoutGroups(t *testing.T) {
	query := queryFor(t, enumeration.CategoryDelegation)

	withGroups := ldap.NewEntry("CN=websrv,CN=Computers,DC=corp,DC=local", map[string][]string{
		"cn":       {"websrv"},
		"memberOf": {"CN=Web Servers,OU=Groups,DC=corp,DC=local"},
	})
	record, ok := query.Shape(withGroups)
	require.True(t, ok)
	assert.Equal(t, "Web Servers", record.Related)

	withoutGroups := ldap.NewEntry("CN=lonely,CN=Computers,DC=corp,DC=local", map[string][]string{
		"cn": {"lonely"},
	})
	record, ok = query.Shape(withoutGroups)
	require.True(t, ok)
	assert.Empty(t, record.Related)
}

func TestShape_DCSyncClassicTarget(t *testing.T) {
	query := queryFor(t, enumeration.CategoryDCSync)

	entry := ldap.NewEntry("CN=svc_proxy,CN=Users,DC=corp,DC=local", map[string][]string{
		"cn":                       {"svc_proxy"},
		"msDS-AllowedToDelegateTo": {"cifs/fs01.corp.local", "cifs/fs02.corp.local"},
	})

	record, ok := query.Shape(entry)
	require.True(t, ok)
	assert.Equal(t, "cifs/fs01.corp.local", record.Related)
}

func TestShape_DCSyncResourceBased(t *testing.T) {
	query := queryFor(t, enumeration.CategoryDCSync)

	// An unparseable descriptor still marks the finding as resource-based.
	entry := &ldap.Entry{
		DN: "CN=fs01,CN=Computers,DC=corp,DC=local",
		Attributes: []*ldap.EntryAttribute{
			{Name: "cn", Values: []string{"fs01"}},
			{Name: "msDS-AllowedToActOnBehalfOfOtherIdentity", ByteValues: [][]byte{{0xde, 0xad}}},
		},
	}

	record, ok := query.Shape(entry)
	require.True(t, ok)
	assert.Equal(t, "resource-based", record.Related)
}

func TestShape_FullControlExcludesCriticalGroupMembers(t *testing.T) {
	query := queryFor(t, enumeration.CategoryFullControl)

	admin := ldap.NewEntry("CN=da_jsmith,CN=Users,DC=corp,DC=local", map[string][]string{
		"cn":       {"da_jsmith"},
		"memberOf": {"CN=Domain Admins,CN=Users,DC=corp,DC=local"},
	})
	_, ok := query.Shape(admin)
	assert.False(t, ok, "Domain Admins member must be excluded")

	operator := ldap.NewEntry("CN=op_backup,CN=Users,DC=corp,DC=local", map[string][]string{
		"cn":       {"op_backup"},
		"memberOf": {"CN=backup operators,CN=Builtin,DC=corp,DC=local"},
	})
	_, ok = query.Shape(operator)
	assert.False(t, ok, "critical group matching must be case-insensitive")

	regular := ldap.NewEntry("CN=jdoe,CN=Users,DC=corp,DC=local", map[string][]string{
		"cn":       {"jdoe"},
		"memberOf": {"CN=Staff,OU=Groups,DC=corp,DC=local"},
	})
	record, ok := query.Shape(regular)
	require.True(t, ok)
	assert.Equal(t, "jdoe", record.Subject)
}

func TestShape_FullControlToleratesMissingDescriptor(t *testing.T) {
	query := queryFor(t, enumeration.CategoryFullControl)

	entry := ldap.NewEntry("CN=jdoe,CN=Users,DC=corp,DC=local", map[string][]string{
		"cn": {"jdoe"},
	})

	record, ok := query.Shape(entry)
	require.True(t, ok)
	assert.Empty(t, record.Related)
}

func TestShape_Service(t *testing.T) {
	query := queryFor(t, enumeration.CategoryService)

	entry := ldap.NewEntry("CN=svc_sql,CN=Users,DC=corp,DC=local", map[string][]string{
		"cn":                   {"svc_sql"},
		"servicePrincipalName": {"MSSQLSvc/db01.corp.local:1433", "MSSQLSvc/db01:1433"},
	})

	record, ok := query.Shape(entry)
	require.True(t, ok)
	assert.Equal(t, "MSSQLSvc/db01.corp.local:1433", record.Related)
}

func TestShape_SubjectFallsBackToDN(t *testing.T) {
	query := queryFor(t, enumeration.CategoryService)

	entry := ldap.NewEntry("CN=anon,DC=corp,DC=local", map[string][]string{})
	record, ok := query.Shape(entry)
	require.True(t, ok)
	assert.Equal(t, "CN=anon,DC=corp,DC=local", record.Subject)
}
