package chain

import (
	"context"
	"fmt"

	"github.com/dinarlabs/ledger/foundation/merkle"
	"github.com/dinarlabs/ledger/foundation/signature"
)

// Issue describes a single defect found during a chain walk.
type Issue struct {
	BlockIndex int64  `json:"block_index"`
	Reason     string `json:"reason"`
}

// Report summarizes a validation walk over the full chain.
type Report struct {
	Valid         bool    `json:"valid"`
	BlocksChecked int64   `json:"blocks_checked"`
	TxsChecked    int64   `json:"txs_checked"`
	Issues        []Issue `json:"issues,omitempty"`
}

// Validate walks the chain from genesis, recomputing every block hash,
// checking parent linkage and proof-of-work, and re-deriving each merkle
// root from the stored transactions. The genesis block carries no
// proof-of-work and is exempt from the difficulty check.
func (c *Core) Validate(ctx context.Context) (Report, error) {
	meta, err := c.Meta(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reading chain meta: %w", err)
	}

	const query = `
	SELECT "index", timestamp, previous_hash, hash, nonce, merkle_root
	FROM blocks
	ORDER BY "index" ASC`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return Report{}, fmt.Errorf("selecting blocks: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return Report{}, fmt.Errorf("scanning block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return Report{}, fmt.Errorf("iterating blocks: %w", err)
	}

	var report Report

	for i, b := range blocks {
		report.BlocksChecked++

		if got := signature.BlockHash(b.Index, b.Timestamp, b.PreviousHash, b.MerkleRoot, b.Nonce); got != b.Hash {
			report.Issues = append(report.Issues, Issue{b.Index, "stored hash does not match header"})
		}

		switch i {
		case 0:
			if b.Index != 0 {
				report.Issues = append(report.Issues, Issue{b.Index, "chain does not start at genesis"})
			}
			if b.PreviousHash != signature.ZeroHash {
				report.Issues = append(report.Issues, Issue{b.Index, "genesis previous hash is not zero"})
			}
		default:
			prev := blocks[i-1]
			if b.Index != prev.Index+1 {
				report.Issues = append(report.Issues, Issue{b.Index, "height gap"})
			}
			if b.PreviousHash != prev.Hash {
				report.Issues = append(report.Issues, Issue{b.Index, "broken parent link"})
			}
			if !signature.IsHashSolved(meta.Difficulty, b.Hash) {
				report.Issues = append(report.Issues, Issue{b.Index, "proof of work below difficulty"})
			}
		}

		txs, err := c.QueryTxsByBlock(ctx, b.Index)
		if err != nil {
			return Report{}, fmt.Errorf("selecting block %d transactions: %w", b.Index, err)
		}
		report.TxsChecked += int64(len(txs))

		hashes := make([]string, len(txs))
		for j, tx := range txs {
			hashes[j] = tx.TxHash
		}

		if got := merkle.Root(hashes); got != b.MerkleRoot {
			report.Issues = append(report.Issues, Issue{b.Index, "merkle root does not match transactions"})
		}
	}

	report.Valid = len(report.Issues) == 0
	return report, nil
}
