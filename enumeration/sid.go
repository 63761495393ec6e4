package enumeration

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// decodeSID renders a binary SID in its S-1-... string form.
// Layout: revision byte, sub-authority count byte, 48-bit big-endian
// identifier authority, then little-endian 32-bit sub-authorities.
func decodeSID(sidBytes []byte) (string, error) {
	if len(sidBytes) < 8 {
		return "", errors.New("invalid SID length")
	}

	revision := sidBytes[0]
	subAuthCount := int(sidBytes[1])
	identifierAuthority := uint64(sidBytes[2])<<40 |
		uint64(sidBytes[3])<<32 |
		uint64(sidBytes[4])<<24 |
		uint64(sidBytes[5])<<16 |
		uint64(sidBytes[6])<<8 |
		uint64(sidBytes[7])

	if len(sidBytes) < 8+subAuthCount*4 {
		return "", errors.New("invalid SID length for sub-authorities")
	}

	var sid strings.Builder
	fmt.Fprintf(&sid, "S-%d-%d", revision, identifierAuthority)
	for i := 0; i < subAuthCount; i++ {
		start := 8 + i*4
		fmt.Fprintf(&sid, "-%d", binary.LittleEndian.Uint32(sidBytes[start:start+4]))
	}

	return sid.String(), nil
}
