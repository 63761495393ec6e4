package ldaphelpers

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// matchingRuleBitAnd is the LDAP_MATCHING_RULE_BIT_AND OID used to test
// individual bits of integer attributes such as userAccountControl.
const matchingRuleBitAnd = "1.2.840.113556.1.4.803"

// create the LDAP_SERVER_SD_FLAGS_OID extended control to return ntSecurityDescriptor
// https://learn.microsoft.com/en-us/previous-versions/windows/desktop/ldap/ldap-server-sd-flags-oid
func CreateSDFlagsControl() ldap.Control {
	// BER-encoded sequence [0x30 0x03 0x02 0x01 0x07] for SD flags = 7
	return ldap.NewControlString("1.2.840.113556.1.4.801", true, fmt.Sprintf("%c%c%c%c%c", 48, 3, 2, 1, 7))
}

type Filter interface {
	String() string
}

type rawFilter string

func (f rawFilter) String() string {
	return string(f)
}

// Logical operators
type andFilter struct {
	parts []Filter
}

func And(filters ...Filter) Filter {
	return andFilter{parts: filters}
}
func (f andFilter) String() string {
	var parts []string
	for _, p := range f.parts {
		parts = append(parts, p.String())
	}
	return "(&" + strings.Join(parts, "") + ")"
}

type orFilter struct {
	parts []Filter
}

func Or(filters ...Filter) Filter {
	return orFilter{parts: filters}
}
func (f orFilter) String() string {
	var parts []string
	for _, p := range f.parts {
		parts = append(parts, p.String())
	}
	return "(|" + strings.Join(parts, "") + ")"
}

type notFilter struct {
	part Filter
}

func Not(f Filter) Filter {
	return notFilter{part: f}
}
func (f notFilter) String() string {
	return "(!" + f.part.String() + ")"
}

func Eq(attr, value string) Filter {
	return rawFilter("(" + attr + "=" + value + ")")
}

func Present(attr string) Filter {
	return rawFilter("(" + attr + "=*)")
}

// BitAnd matches entries where the given bit is set in an integer
// attribute, e.g. BitAnd("userAccountControl", 0x400000).
func BitAnd(attr string, mask int64) Filter {
	return rawFilter(fmt.Sprintf("(%s:%s:=%d)", attr, matchingRuleBitAnd, mask))
}
