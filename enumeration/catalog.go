package enumeration

import (
	"fmt"
	"strings"

	"f0oster/adaudit/activedirectory/ldaphelpers"

	"github.com/f0oster/gontsd"
	"github.com/go-ldap/ldap/v3"
)

// userAccountControl bits relevant to the audit queries.
const (
	uacTrustedForDelegation = 0x80000
	uacDontReqPreAuth       = 0x400000
)

// Access mask bits that amount to full control over a directory object.
const (
	maskGenericAll    = 0x10000000
	maskDSFullControl = 0x000F01FF
)

// Built-in privileged groups whose members are excluded from the
// Full Control category: their broad rights are expected.
var criticalGroups = []string{
	"Domain Admins",
	"Enterprise Admins",
	"Schema Admins",
	"Administrators",
	"Server Operators",
	"Account Operators",
	"Backup Operators",
}

// Query is a pure declarative description of one audit search: a filter,
// the attributes to project, and a shaping function normalizing entries
// into records. Six fixed instances make up the catalog.
type Query struct {
	Category   Category
	Filter     string
	Attributes []string
	Controls   []ldap.Control

	// Shape maps one entry to a record. The second return is false when
	// the entry is excluded from the category.
	Shape func(entry *ldap.Entry) (Record, bool)
}

// Catalog returns the six audit queries in their fixed order.
func Catalog() []Query {
	return []Query{
		{
			Category:   CategoryNoPreauth,
			Filter:     ldaphelpers.BitAnd("userAccountControl", uacDontReqPreAuth).String(),
			Attributes: []string{"cn", "userAccountControl"},
			Shape:      shapeUAC,
		},
		{
			Category:   CategorySIDHistory,
			Filter:     ldaphelpers.Present("sIDHistory").String(),
			Attributes: []string{"cn", "sIDHistory"},
			Shape:      shapeSIDHistory,
		},
		{
			Category:   CategoryDelegation,
			Filter:     ldaphelpers.BitAnd("userAccountControl", uacTrustedForDelegation).String(),
			Attributes: []string{"cn", "userAccountControl", "memberOf"},
			Shape:      shapeDelegation,
		},
		{
			Category: CategoryDCSync,
			Filter: ldaphelpers.Or(
				ldaphelpers.Present("msDS-AllowedToDelegateTo"),
				ldaphelpers.Present("msDS-AllowedToActOnBehalfOfOtherIdentity"),
			).String(),
			Attributes: []string{"cn", "msDS-AllowedToDelegateTo", "msDS-AllowedToActOnBehalfOfOtherIdentity"},
			Shape:      shapeDCSync,
		},
		{
			Category:   CategoryFullControl,
			Filter:     ldaphelpers.Present("nTSecurityDescriptor").String(),
			Attributes: []string{"cn", "nTSecurityDescriptor", "memberOf"},
			Controls:   []ldap.Control{ldaphelpers.CreateSDFlagsControl()},
			Shape:      shapeFullControl,
		},
		{
			Category:   CategoryService,
			Filter:     ldaphelpers.Present("servicePrincipalName").String(),
			Attributes: []string{"cn", "servicePrincipalName"},
			Shape:      shapeService,
		},
	}
}

// subjectOf prefers the common name and falls back to the DN for objects
// without one.
func subjectOf(entry *ldap.Entry) string {
	if cn := entry.GetAttributeValue("cn"); cn != "" {
		return cn
	}
	return entry.DN
}

func shapeUAC(entry *ldap.Entry) (Record, bool) {
	return Record{
		Subject: subjectOf(entry),
		Related: entry.GetAttributeValue("userAccountControl"),
	}, true
}

func shapeSIDHistory(entry *ldap.Entry) (Record, bool) {
	record := Record{Subject: subjectOf(entry)}
	// sIDHistory values are binary SIDs; undecodable values still produce
	// a record with an empty related column.
	for _, raw := range entry.GetRawAttributeValues("sIDHistory") {
		if sid, err := decodeSID(raw); err == nil {
			record.Related = sid
			break
		}
	}
	return record, true
}

func shapeDelegation(entry *ldap.Entry) (Record, bool) {
	record := Record{Subject: subjectOf(entry)}
	if groups := entry.GetAttributeValues("memberOf"); len(groups) > 0 {
		record.Related = groupName(groups[0])
	}
	return record, true
}

func shapeDCSync(entry *ldap.Entry) (Record, bool) {
	record := Record{Subject: subjectOf(entry)}

	if targets := entry.GetAttributeValues("msDS-AllowedToDelegateTo"); len(targets) > 0 {
		record.Related = targets[0]
		return record, true
	}

	// Resource-based delegation stores a security descriptor whose ACEs
	// name the principals allowed to act on behalf of this object.
	raw := entry.GetRawAttributeValue("msDS-AllowedToActOnBehalfOfOtherIdentity")
	if len(raw) > 0 {
		record.Related = "resource-based"
		if trustees := daclTrustees(raw); len(trustees) > 0 {
			record.Related = "resource-based: " + strings.Join(trustees, " ")
		}
	}
	return record, true
}

func shapeFullControl(entry *ldap.Entry) (Record, bool) {
	for _, group := range entry.GetAttributeValues("memberOf") {
		if isCriticalGroup(groupName(group)) {
			return Record{}, false
		}
	}

	record := Record{Subject: subjectOf(entry)}
	raw := entry.GetRawAttributeValue("nTSecurityDescriptor")
	if digest := descriptorDigest(raw); digest != "" {
		record.Related = digest
	}
	return record, true
}

func shapeService(entry *ldap.Entry) (Record, bool) {
	record := Record{Subject: subjectOf(entry)}
	if spns := entry.GetAttributeValues("servicePrincipalName"); len(spns) > 0 {
		record.Related = spns[0]
	}
	return record, true
}

// groupName extracts the leading RDN value from a group DN, so
// "CN=Domain Admins,CN=Users,DC=corp,DC=local" becomes "Domain Admins".
func groupName(dn string) string {
	first, _, _ := strings.Cut(dn, ",")
	if _, value, found := strings.Cut(first, "="); found {
		return value
	}
	return first
}

func isCriticalGroup(name string) bool {
	for _, group := range criticalGroups {
		if strings.EqualFold(name, group) {
			return true
		}
	}
	return false
}

// descriptorDigest summarizes a binary security descriptor as an ACE
// count plus the number of ACEs granting full control. Unparseable
// descriptors yield an empty digest, never a failure.
func descriptorDigest(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	sd, err := gontsd.Parse(raw, nil)
	if err != nil || sd.DACL == nil {
		return ""
	}

	broad := 0
	for _, ace := range sd.DACL.ACEs {
		mask := ace.Mask()
		if mask&maskGenericAll != 0 || mask&maskDSFullControl == maskDSFullControl {
			broad++
		}
	}
	return fmt.Sprintf("%d aces, %d full control", len(sd.DACL.ACEs), broad)
}

// daclTrustees lists the SIDs named by the ACEs of a binary security
// descriptor, used to surface resource-based delegation targets.
func daclTrustees(raw []byte) []string {
	sd, err := gontsd.Parse(raw, nil)
	if err != nil || sd.DACL == nil {
		return nil
	}

	var trustees []string
	for _, ace := range sd.DACL.ACEs {
		if sid := ace.SID(); sid != nil && sid.Value != "" {
			trustees = append(trustees, sid.Value)
		}
	}
	return trustees
}
