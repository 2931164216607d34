package merkle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/core"
)

var hasher = core.MustNewHasher(core.HashSHA256)

func leaves(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = hasher.SumString(fmt.Sprintf("leaf-%d", i))
	}
	return out
}

func TestBuildEmptyInputYieldsSentinelRoot(t *testing.T) {
	tree := Build(hasher, nil)
	assert.Equal(t, core.EmptyMerkleRoot(hasher), tree.Root)
	assert.Empty(t, tree.Proofs)
}

func TestBuildSingleLeaf(t *testing.T) {
	input := leaves(1)
	tree := Build(hasher, input)
	assert.Equal(t, input[0], tree.Root, "a single leaf is its own root")
	require.Len(t, tree.Proofs, 1)
	assert.Empty(t, tree.Proofs[0].Path)
	assert.True(t, VerifyProof(hasher, input[0], tree.Proofs[0], tree.Root))
}

func TestBuildTwoLeaves(t *testing.T) {
	input := leaves(2)
	tree := Build(hasher, input)
	assert.Equal(t, hasher.SumString(input[0]+input[1]), tree.Root)
}

func TestOddCountDuplicatesLastLeaf(t *testing.T) {
	input := leaves(3)
	tree := Build(hasher, input)

	// Level 1: H(l0+l1), H(l2+l2); root: H(p0+p1)
	p0 := hasher.SumString(input[0] + input[1])
	p1 := hasher.SumString(input[2] + input[2])
	assert.Equal(t, hasher.SumString(p0+p1), tree.Root)

	// The self-paired leaf's proof records itself as its right sibling
	require.Len(t, tree.Proofs[2].Path, 2)
	assert.Equal(t, core.ProofStep{Hash: input[2], Direction: core.ProofRight}, tree.Proofs[2].Path[0])
}

func TestProofRoundTripAllSizes(t *testing.T) {
	for n := 1; n <= 17; n++ {
		input := leaves(n)
		tree := Build(hasher, input)
		require.Len(t, tree.Proofs, n)
		for i, proof := range tree.Proofs {
			assert.Equal(t, i, proof.Position)
			assert.True(t, VerifyProof(hasher, input[i], proof, tree.Root),
				"leaf %d of %d must verify against its own root", i, n)
		}
	}
}

func TestProofFailsAgainstForeignRoot(t *testing.T) {
	first := Build(hasher, leaves(5))

	foreign := make([]string, 5)
	for i := range foreign {
		foreign[i] = hasher.SumString(fmt.Sprintf("other-%d", i))
	}
	other := Build(hasher, foreign)

	input := leaves(5)
	for i, proof := range first.Proofs {
		assert.False(t, VerifyProof(hasher, input[i], proof, other.Root),
			"proof must not validate against another tree's root")
	}
}

func TestProofFailsForWrongLeaf(t *testing.T) {
	input := leaves(4)
	tree := Build(hasher, input)
	assert.False(t, VerifyProof(hasher, input[1], tree.Proofs[0], tree.Root),
		"a proof is bound to its leaf hash")
}

func TestRootMatchesBuild(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 7, 12} {
		input := leaves(n)
		assert.Equal(t, Build(hasher, input).Root, Root(hasher, input), "n=%d", n)
	}
}

func TestProofLengthIsLogarithmic(t *testing.T) {
	tree := Build(hasher, leaves(1024))
	assert.Len(t, tree.Proofs[0].Path, 10)
}
