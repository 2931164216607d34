// Package merkle builds and verifies Merkle trees over entry content
// hashes. The tree shape is fixed by construction: levels are built
// bottom-up by pairwise hashing, and a level with an odd count pairs its
// last element with itself. Proofs record the sibling hash and side at each
// level, so a root can be recomputed from a single leaf in O(log n).
package merkle

import (
	"veritas/core"
)

// Tree is the result of a build: the root plus one proof per leaf, indexed
// by leaf position.
type Tree struct {
	Root   string
	Proofs []core.MerkleProof
}

// Build constructs a Merkle tree over the ordered leaf hashes. An empty
// input yields the sentinel empty root and no proofs.
func Build(hasher *core.Hasher, leafHashes []string) Tree {
	if len(leafHashes) == 0 {
		return Tree{Root: core.EmptyMerkleRoot(hasher)}
	}

	proofs := make([]core.MerkleProof, len(leafHashes))
	for i, leaf := range leafHashes {
		proofs[i] = core.MerkleProof{LeafHash: leaf, Position: i}
	}

	// cursors[i] tracks where leaf i's ancestor sits in the current level.
	cursors := make([]int, len(leafHashes))
	for i := range cursors {
		cursors[i] = i
	}

	level := make([]string, len(leafHashes))
	copy(level, leafHashes)

	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left // odd count: pair the last element with itself
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, hasher.SumString(left+right))
		}

		for leaf, cur := range cursors {
			if cur%2 == 0 {
				sibling := cur // self-paired
				if cur+1 < len(level) {
					sibling = cur + 1
				}
				proofs[leaf].Path = append(proofs[leaf].Path, core.ProofStep{
					Hash:      level[sibling],
					Direction: core.ProofRight,
				})
			} else {
				proofs[leaf].Path = append(proofs[leaf].Path, core.ProofStep{
					Hash:      level[cur-1],
					Direction: core.ProofLeft,
				})
			}
			cursors[leaf] = cur / 2
		}

		level = next
	}

	return Tree{Root: level[0], Proofs: proofs}
}

// Root computes only the root over the ordered leaf hashes, without
// materializing proofs. Used by the validator to recompute block roots.
func Root(hasher *core.Hasher, leafHashes []string) string {
	if len(leafHashes) == 0 {
		return core.EmptyMerkleRoot(hasher)
	}

	level := make([]string, len(leafHashes))
	copy(level, leafHashes)
	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, hasher.SumString(left+right))
		}
		level = next
	}
	return level[0]
}

// VerifyProof replays a proof path from the leaf hash and reports whether
// the recomputed root matches expectedRoot.
func VerifyProof(hasher *core.Hasher, leafHash string, proof core.MerkleProof, expectedRoot string) bool {
	if leafHash != proof.LeafHash {
		return false
	}
	current := leafHash
	for _, step := range proof.Path {
		if step.Direction == core.ProofLeft {
			current = hasher.SumString(step.Hash + current)
		} else {
			current = hasher.SumString(current + step.Hash)
		}
	}
	return current == expectedRoot
}
