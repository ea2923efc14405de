// Package merkle provides merkle root and inclusion proof support for
// block transaction sets. Levels are built by hashing the concatenation
// of paired transaction hash strings, duplicating the last element when a
// level has an odd count.
package merkle

import (
	"errors"

	"github.com/dinarlabs/ledger/foundation/signature"
)

// ErrNotInTree is returned when a proof is requested for a hash the tree
// does not contain.
var ErrNotInTree = errors.New("hash not present in tree")

// ProofStep is one sibling on the path from a leaf to the root. Left
// reports whether the sibling sits to the left of the running hash.
type ProofStep struct {
	Hash string `json:"hash"`
	Left bool   `json:"left"`
}

// Tree holds every level of the merkle computation, leaves first. The
// levels are retained so inclusion proofs can be produced after the root
// is computed.
type Tree struct {
	levels [][]string
}

// NewTree constructs a merkle tree over transaction hashes in input order.
func NewTree(txHashes []string) *Tree {
	if len(txHashes) == 0 {
		return &Tree{}
	}

	level := make([]string, len(txHashes))
	copy(level, txHashes)

	var levels [][]string
	for {
		if len(level) > 1 && len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		levels = append(levels, level)

		if len(level) == 1 {
			break
		}

		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, signature.Hash(level[i]+level[i+1]))
		}

		level = next
	}

	return &Tree{levels: levels}
}

// Root returns the merkle root. An empty transaction set yields the all
// zero digest and a single transaction is its own root.
func (t *Tree) Root() string {
	if len(t.levels) == 0 {
		return signature.ZeroHash
	}

	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof returns the sibling path proving the transaction hash is included
// in the tree. Verifying the path is O(log n) in the transaction count.
func (t *Tree) Proof(txHash string) ([]ProofStep, error) {
	if len(t.levels) == 0 {
		return nil, ErrNotInTree
	}

	idx := -1
	for i, h := range t.levels[0] {
		if h == txHash {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrNotInTree
	}

	var steps []ProofStep
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		steps = append(steps, ProofStep{
			Hash: level[sibling],
			Left: sibling < idx,
		})
		idx /= 2
	}

	return steps, nil
}

// Root computes the merkle root over the hashes without keeping the tree.
func Root(txHashes []string) string {
	return NewTree(txHashes).Root()
}

// VerifyProof folds a proof path over the transaction hash and reports
// whether it reproduces the expected root.
func VerifyProof(txHash string, root string, proof []ProofStep) bool {
	h := txHash
	for _, step := range proof {
		if step.Left {
			h = signature.Hash(step.Hash + h)
			continue
		}
		h = signature.Hash(h + step.Hash)
	}

	return h == root
}
