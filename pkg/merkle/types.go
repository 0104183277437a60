package merkle

import "github.com/anchorline/did-audit/pkg/types"

// NodeKind classifies a node within the tree.
type NodeKind string

const (
	NodeKindLeaf     NodeKind = "leaf"
	NodeKindInternal NodeKind = "internal"
	NodeKindRoot     NodeKind = "root"
)

// Position says on which side a sibling hash is combined relative to the
// running hash when replaying an inclusion proof.
type Position string

const (
	SiblingLeft  Position = "left"
	SiblingRight Position = "right"
)

// Node is one node of a constructed tree. Every build allocates fresh
// nodes; a node exclusively owns its two children and children are never
// shared between parents (duplicated odd nodes are cloned).
type Node struct {
	// ID is a stable identifier derived from depth and index.
	ID string

	// Hash is the 0x-prefixed hex hash of this node.
	Hash string

	// Label is a human-readable description for display.
	Label string

	Kind  NodeKind
	Depth int
	Index int

	Left  *Node
	Right *Node

	// Record points back to the originating event for leaves only.
	Record *types.EventRecord
}

// Tree is the result of building a merkle tree over event records.
type Tree struct {
	// Root is the root hash. Equals ZeroRoot for an empty build and the
	// single leaf hash for a one-record build.
	Root string

	// Node is the root of the navigable node structure, nil when the
	// tree is empty.
	Node *Node

	// Leaves are the leaf nodes in sorted record order.
	Leaves []*Node

	LeafCount int

	// Depth is the depth of the leaves (the root is at depth 0).
	Depth int

	// levels[0] are the leaf hashes, levels[len-1] holds only the root.
	levels [][][HashLength]byte
}

// InclusionProof is evidence that one leaf belongs to a tree with a
// given root.
type InclusionProof struct {
	// LeafHash is the content hash of the proven record.
	LeafHash string

	// Siblings are the sibling hashes from leaf level upward.
	Siblings []string

	// Positions[i] is the side Siblings[i] takes in the combination.
	Positions []Position

	// Path holds the intermediate hashes up to and including the root.
	Path []string

	// Root is the root of the tree the proof was generated from; empty
	// when the target record was not found.
	Root string

	// Valid reports whether replaying the proof reproduces Root.
	Valid bool
}
