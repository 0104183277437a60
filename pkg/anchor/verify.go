package anchor

import (
	"bytes"

	"github.com/anchorline/did-audit/pkg/merkle"
)

// Level records one combination step of a verified proof path.
type Level struct {
	// Level is 1-based, counting upward from the leaf.
	Level  int
	Left   string
	Right  string
	Output string
}

// ProofPath is the full recomputed path from leaf to root.
type ProofPath struct {
	Levels       []Level
	LeafHash     string
	MerkleRoot   string
	ComputedRoot string
	IsValid      bool
	TotalLevels  int
}

// VerifyProof recomputes the root of an anchoring proof and reports
// whether it matches the stated root.
//
// The witness service builds its batch trees with sorted-pair
// combination and its proofs do not reliably carry position flags, so
// left/right order is re-derived here by lexicographic comparison of the
// running hash against each sibling. That convention is a fixed contract
// with the witness service; changing it silently changes every root.
//
// An empty sibling list with leaf equal to root is the single-leaf batch
// case and is valid. Malformed input (unparseable hashes, missing root)
// produces a deterministic false result, never an error.
func VerifyProof(p *Proof) *ProofPath {
	if p == nil {
		p = &Proof{}
	}

	path := &ProofPath{
		Levels:     []Level{},
		LeafHash:   p.LeafHash,
		MerkleRoot: p.Root,
	}

	current, err := merkle.ParseHash(p.LeafHash)
	if err != nil {
		path.ComputedRoot = p.LeafHash
		return path
	}
	path.LeafHash = merkle.FormatHash(current)

	for i, s := range p.Siblings {
		sibling, err := merkle.ParseHash(s)
		if err != nil {
			path.ComputedRoot = merkle.FormatHash(current)
			path.TotalLevels = len(path.Levels)
			return path
		}

		left, right := current, sibling
		if bytes.Compare(sibling[:], current[:]) < 0 {
			left, right = sibling, current
		}

		output := merkle.Combine(current, sibling, true)
		path.Levels = append(path.Levels, Level{
			Level:  i + 1,
			Left:   merkle.FormatHash(left),
			Right:  merkle.FormatHash(right),
			Output: merkle.FormatHash(output),
		})

		current = output
	}

	path.ComputedRoot = merkle.FormatHash(current)
	path.TotalLevels = len(path.Levels)

	expected, err := merkle.ParseHash(p.Root)
	path.IsValid = err == nil && expected == current

	return path
}
