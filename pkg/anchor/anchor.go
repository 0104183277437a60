// Package anchor verifies inclusion proofs produced by the external
// witness/batch service that anchors merkle roots on-chain. Incoming
// proof objects vary slightly in field naming between service versions,
// so all external shapes are normalized into one canonical Proof struct
// at the boundary before any verification runs.
package anchor

// RawProof is the wire shape of an anchoring proof as received from the
// witness/batch service. Both known field-name variants are accepted for
// the sibling list, the leaf hash and the root.
type RawProof struct {
	LeafHash    string   `json:"leafHash,omitempty"`
	Hash        string   `json:"hash,omitempty"`
	LeafIndex   int      `json:"leafIndex,omitempty"`
	MerkleProof []string `json:"merkleProof,omitempty"`
	Siblings    []string `json:"siblings,omitempty"`
	MerkleRoot  string   `json:"merkleRoot,omitempty"`
	Root        string   `json:"root,omitempty"`
	BatchID     string   `json:"batchId,omitempty"`
	TxHash      string   `json:"txHash,omitempty"`
}

// Proof is the canonical internal shape; every field has exactly one
// name once normalization has run.
type Proof struct {
	LeafHash  string
	LeafIndex int
	Siblings  []string
	Root      string
	BatchID   string
	TxHash    string
}

// Normalize maps any accepted external shape into the canonical Proof.
// Missing pieces degrade deterministically: an absent sibling list
// becomes empty, an absent root becomes the empty string. Verification
// of such a proof yields a reproducible false, never a panic, since
// proofs are frequently checked speculatively before anchoring finishes.
func (r *RawProof) Normalize() *Proof {
	if r == nil {
		return &Proof{Siblings: []string{}}
	}

	p := &Proof{
		LeafIndex: r.LeafIndex,
		BatchID:   r.BatchID,
		TxHash:    r.TxHash,
	}

	p.LeafHash = r.LeafHash
	if p.LeafHash == "" {
		p.LeafHash = r.Hash
	}

	p.Siblings = r.MerkleProof
	if len(p.Siblings) == 0 {
		p.Siblings = r.Siblings
	}
	if p.Siblings == nil {
		p.Siblings = []string{}
	}

	p.Root = r.MerkleRoot
	if p.Root == "" {
		p.Root = r.Root
	}

	return p
}
