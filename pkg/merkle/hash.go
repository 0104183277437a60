package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/anchorline/did-audit/pkg/types"
)

// HashLength is the byte length of all hashes in this package.
const HashLength = 32

// ZeroRoot is the defined root of an empty tree.
var ZeroRoot = FormatHash([HashLength]byte{})

// HashEvent computes the SHA-256 content hash of an event record.
// The serialization covers subject, kind, payload, signature and
// timestamp in that fixed order; the store-assigned ID is excluded so
// the hash depends only on the logical content.
func HashEvent(rec *types.EventRecord) string {
	return FormatHash(hashEventBytes(rec))
}

func hashEventBytes(rec *types.EventRecord) [HashLength]byte {
	// json.Marshal writes map keys in sorted order at every nesting
	// level, so the payload bytes are deterministic regardless of how
	// the map was populated.
	payload, _ := json.Marshal(rec.Payload)

	var buf bytes.Buffer
	buf.WriteString(rec.Subject)
	buf.WriteByte('|')
	buf.WriteString(rec.Kind)
	buf.WriteByte('|')
	buf.Write(payload)
	buf.WriteByte('|')
	buf.WriteString(rec.Signature)
	buf.WriteByte('|')
	buf.WriteString(rec.Timestamp)

	return sha256.Sum256(buf.Bytes())
}

// Combine hashes two child hashes into their parent: sha256(left || right).
//
// With canonical=false the combination is positional and non-commutative;
// this is the convention for trees built here from timestamp-ordered
// records. With canonical=true the pair is sorted lexicographically
// before concatenation, making the combination commutative; this matches
// the witness/batch service, which builds its anchored trees sorted-pair.
// The two conventions produce different roots for the same inputs, so
// each call site fixes one mode and must not infer it.
func Combine(left, right [HashLength]byte, canonical bool) [HashLength]byte {
	if canonical && bytes.Compare(right[:], left[:]) < 0 {
		left, right = right, left
	}

	data := make([]byte, 2*HashLength)
	copy(data[:HashLength], left[:])
	copy(data[HashLength:], right[:])

	return sha256.Sum256(data)
}

// ParseHash decodes a hex hash string, with or without a 0x prefix.
func ParseHash(s string) ([HashLength]byte, error) {
	var h [HashLength]byte

	s = strings.TrimPrefix(s, "0x")
	if len(s) != 2*HashLength {
		return h, fmt.Errorf("hash must be %d hex chars, got %d", 2*HashLength, len(s))
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}

	copy(h[:], b)
	return h, nil
}

// FormatHash encodes a hash as 0x-prefixed lowercase hex, the output
// form used everywhere in this module.
func FormatHash(h [HashLength]byte) string {
	return hexutil.Encode(h[:])
}
