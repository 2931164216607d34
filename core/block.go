package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenesisPreviousHash is the sentinel previous-hash of the genesis block.
var GenesisPreviousHash = strings.Repeat("0", 64)

// GenesisValidatorID marks the unsigned genesis block.
const GenesisValidatorID = "genesis"

// emptyRootPreimage is hashed to produce the Merkle root of an empty
// entry set.
const emptyRootPreimage = "empty"

// Block is a batch of entries sealed together with a Merkle root, hash, and
// signature. Once appended to the chain a block is never mutated.
//
// Nonce is a format-compatibility field: it is random, carries no
// proof-of-work or other security meaning, and exists so the block layout
// matches collaborators that expect one.
type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    time.Time     `json:"timestamp"`
	PreviousHash string        `json:"previous_hash"`
	MerkleRoot   string        `json:"merkle_root"`
	Entries      []SealedEntry `json:"entries"`
	Nonce        string        `json:"nonce"`
	Hash         string        `json:"hash"`
	Signature    []byte        `json:"signature"`
	ValidatorID  string        `json:"validator_id"`
}

// NewNonce returns 8 random bytes, hex encoded.
func NewNonce() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms; the nonce has no
		// security meaning, so a zero value would still be well-formed.
		return "0000000000000000"
	}
	return hex.EncodeToString(b)
}

// EmptyMerkleRoot returns the sentinel root for a block with no entries.
func EmptyMerkleRoot(h *Hasher) string {
	return h.SumString(emptyRootPreimage)
}

// BlockHashPreimage builds the deterministic preimage of a block hash from
// the header fields and the ordered entry hashes.
func BlockHashPreimage(index uint64, timestamp time.Time, previousHash, merkleRoot, nonce string, entryHashes []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d|%s|%s|%s|%s",
		index,
		timestamp.UTC().Format(time.RFC3339Nano),
		previousHash,
		merkleRoot,
		nonce,
	)
	for _, eh := range entryHashes {
		sb.WriteByte('|')
		sb.WriteString(eh)
	}
	return sb.String()
}

// ComputeHash recomputes the block hash from the block's own fields.
func (b Block) ComputeHash(h *Hasher) string {
	hashes := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		hashes[i] = e.EntryHash
	}
	return h.SumString(BlockHashPreimage(b.Index, b.Timestamp, b.PreviousHash, b.MerkleRoot, b.Nonce, hashes))
}

// EntryHashes returns the ordered content hashes of the block's entries.
func (b Block) EntryHashes() []string {
	hashes := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		hashes[i] = e.EntryHash
	}
	return hashes
}

// IsGenesis reports whether this is the unsigned index-0 block.
func (b Block) IsGenesis() bool {
	return b.Index == 0 && b.ValidatorID == GenesisValidatorID
}

// NewGenesisBlock creates the index-0 block with the sentinel previous hash
// and an empty entry set.
func NewGenesisBlock(h *Hasher, timestamp time.Time) Block {
	b := Block{
		Index:        0,
		Timestamp:    timestamp.UTC(),
		PreviousHash: GenesisPreviousHash,
		MerkleRoot:   EmptyMerkleRoot(h),
		Entries:      []SealedEntry{},
		Nonce:        NewNonce(),
		ValidatorID:  GenesisValidatorID,
	}
	b.Hash = b.ComputeHash(h)
	return b
}
