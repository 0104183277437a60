package merkle

import (
	"fmt"
	"sort"

	"github.com/anchorline/did-audit/pkg/types"
)

// BuildTree builds a binary merkle tree from event records. Records are
// sorted by timestamp before hashing so repeated builds over the same
// logical set always yield the same tree regardless of input order.
//
// Pairing is positional (left || right). If a level has an odd number of
// nodes, the last hash is duplicated to pair with itself. An empty input
// is legal and yields ZeroRoot with no nodes; a single record yields a
// depth-0 tree whose root is the record's content hash.
func BuildTree(records []*types.EventRecord) *Tree {
	if len(records) == 0 {
		return &Tree{
			Root:   ZeroRoot,
			Leaves: []*Node{},
		}
	}

	sorted := SortEvents(records)

	leaves := make([][HashLength]byte, len(sorted))
	for i, rec := range sorted {
		leaves[i] = hashEventBytes(rec)
	}

	levels := buildLevels(leaves)
	root := levels[len(levels)-1][0]

	nodeLevels := buildNodes(sorted, levels)
	leafNodes := nodeLevels[0]

	return &Tree{
		Root:      FormatHash(root),
		Node:      nodeLevels[len(nodeLevels)-1][0],
		Leaves:    leafNodes,
		LeafCount: len(leafNodes),
		Depth:     len(levels) - 1,
		levels:    levels,
	}
}

// GetProof derives the inclusion proof for target within records. The
// records are re-sorted exactly as BuildTree sorts them and the target
// leaf is located by content-hash equality. A target that is not in the
// list yields a defined invalid proof with no siblings and an empty
// root rather than an error.
func GetProof(records []*types.EventRecord, target *types.EventRecord) *InclusionProof {
	targetHash := hashEventBytes(target)

	proof := &InclusionProof{
		LeafHash:  FormatHash(targetHash),
		Siblings:  []string{},
		Positions: []Position{},
		Path:      []string{},
	}

	if len(records) == 0 {
		return proof
	}

	sorted := SortEvents(records)
	leaves := make([][HashLength]byte, len(sorted))
	index := -1
	for i, rec := range sorted {
		leaves[i] = hashEventBytes(rec)
		if leaves[i] == targetHash && index < 0 {
			index = i
		}
	}
	if index < 0 {
		return proof
	}

	levels := buildLevels(leaves)
	current := targetHash

	for level := 0; level < len(levels)-1; level++ {
		currentLevel := levels[level]

		var siblingIndex int
		var position Position
		if index%2 == 0 {
			// Node is on the left, sibling is on the right
			siblingIndex = index + 1
			position = SiblingRight
		} else {
			// Node is on the right, sibling is on the left
			siblingIndex = index - 1
			position = SiblingLeft
		}

		// Odd number of nodes at this level: the node pairs with itself
		if siblingIndex >= len(currentLevel) {
			siblingIndex = index
			position = SiblingRight
		}

		sibling := currentLevel[siblingIndex]
		proof.Siblings = append(proof.Siblings, FormatHash(sibling))
		proof.Positions = append(proof.Positions, position)

		if position == SiblingRight {
			current = Combine(current, sibling, false)
		} else {
			current = Combine(sibling, current, false)
		}
		proof.Path = append(proof.Path, FormatHash(current))

		index = index / 2
	}

	proof.Root = FormatHash(levels[len(levels)-1][0])
	proof.Valid = Verify(proof.LeafHash, proof.Siblings, proof.Positions, proof.Root)
	return proof
}

// Verify replays an inclusion proof with positional combination and
// reports whether the recomputed root matches expectedRoot. Comparison
// is exact on the lowercase hex form; a hash mismatch is a false result,
// never an error.
func Verify(leafHash string, siblings []string, positions []Position, expectedRoot string) bool {
	if len(siblings) != len(positions) {
		return false
	}

	current, err := ParseHash(leafHash)
	if err != nil {
		return false
	}

	for i, s := range siblings {
		sibling, err := ParseHash(s)
		if err != nil {
			return false
		}

		if positions[i] == SiblingLeft {
			current = Combine(sibling, current, false)
		} else {
			current = Combine(current, sibling, false)
		}
	}

	return FormatHash(current) == ensurePrefixed(expectedRoot)
}

// SortEvents returns a copy of records sorted ascending by timestamp.
// The sort is stable so records with equal timestamps keep their input
// order; ISO-8601 UTC timestamps compare correctly as strings.
func SortEvents(records []*types.EventRecord) []*types.EventRecord {
	sorted := make([]*types.EventRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	return sorted
}

// buildLevels computes all tree levels bottom-up from the leaf hashes.
// levels[0] are the leaves, levels[len-1] holds only the root.
func buildLevels(leaves [][HashLength]byte) [][][HashLength]byte {
	levels := [][][HashLength]byte{leaves}

	currentLevel := leaves
	for len(currentLevel) > 1 {
		nextLevel := make([][HashLength]byte, 0, (len(currentLevel)+1)/2)

		for i := 0; i < len(currentLevel); i += 2 {
			left := currentLevel[i]
			right := left
			if i+1 < len(currentLevel) {
				right = currentLevel[i+1]
			}
			nextLevel = append(nextLevel, Combine(left, right, false))
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	return levels
}

// buildNodes constructs the navigable node structure mirroring levels.
// Each build allocates fresh nodes; when an odd node is duplicated the
// whole child subtree is cloned so no node ends up with two parents.
func buildNodes(sorted []*types.EventRecord, levels [][][HashLength]byte) [][]*Node {
	totalLevels := len(levels)
	nodeLevels := make([][]*Node, totalLevels)

	leafDepth := totalLevels - 1
	leafNodes := make([]*Node, len(sorted))
	for i, rec := range sorted {
		leafNodes[i] = &Node{
			ID:     nodeID(leafDepth, i),
			Hash:   FormatHash(levels[0][i]),
			Label:  fmt.Sprintf("Event %d: %s", i+1, rec.Kind),
			Kind:   NodeKindLeaf,
			Depth:  leafDepth,
			Index:  i,
			Record: rec,
		}
	}
	nodeLevels[0] = leafNodes

	for level := 1; level < totalLevels; level++ {
		depth := totalLevels - 1 - level
		below := nodeLevels[level-1]
		nodes := make([]*Node, len(levels[level]))

		for i := range levels[level] {
			left := below[2*i]
			var right *Node
			if 2*i+1 < len(below) {
				right = below[2*i+1]
			} else {
				right = cloneSubtree(left)
			}

			kind := NodeKindInternal
			label := fmt.Sprintf("Node %d.%d", depth, i)
			if depth == 0 {
				kind = NodeKindRoot
				label = "Root"
			}

			nodes[i] = &Node{
				ID:    nodeID(depth, i),
				Hash:  FormatHash(levels[level][i]),
				Label: label,
				Kind:  kind,
				Depth: depth,
				Index: i,
				Left:  left,
				Right: right,
			}
		}

		nodeLevels[level] = nodes
	}

	// A single-record tree has its leaf as root.
	if totalLevels == 1 {
		leafNodes[0].Kind = NodeKindRoot
	}

	return nodeLevels
}

// cloneSubtree deep-copies a node so a duplicated odd node is owned
// exclusively by its new parent.
func cloneSubtree(n *Node) *Node {
	if n == nil {
		return nil
	}
	clone := *n
	clone.ID = n.ID + "-dup"
	clone.Left = cloneSubtree(n.Left)
	clone.Right = cloneSubtree(n.Right)
	return &clone
}

func nodeID(depth, index int) string {
	return fmt.Sprintf("node-%d-%d", depth, index)
}

func ensurePrefixed(s string) string {
	if len(s) >= 2 && s[0] == '0' && s[1] == 'x' {
		return s
	}
	return "0x" + s
}
