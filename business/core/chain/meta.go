package chain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/shopspring/decimal"
)

// MaxSupply caps the number of coins the chain will ever issue. Once the
// circulating count reaches it, mined blocks carry fees only.
var MaxSupply = decimal.NewFromInt(21_000_000)

// Meta is the single row of monetary counters. It is read on every
// admission and mining attempt and written only by the miner's commit.
type Meta struct {
	Height           int64
	CirculatingCoins decimal.Decimal
	CurrentReward    decimal.Decimal
	HalvingInterval  int64
	Difficulty       int
	UpdatedAt        time.Time
}

// HalveReward returns the subsidy that applies after a halving boundary.
// The reward halves in whole coins and never drops below one.
func HalveReward(current decimal.Decimal) decimal.Decimal {
	half := current.Div(decimal.NewFromInt(2)).Floor()
	if half.LessThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return half
}

// InsertMeta writes the counters row at bootstrap. The table holds a
// single row with id 1.
func (c *Core) InsertMeta(ctx context.Context, q database.Querier, m Meta) error {
	const query = `
	INSERT INTO chain_meta
		(id, height, circulating_coins, current_reward, halving_interval, difficulty, updated_at)
	VALUES
		(1, $1, $2, $3, $4, $5, $6)`

	_, err := q.ExecContext(ctx, query, m.Height, m.CirculatingCoins.String(),
		m.CurrentReward.String(), m.HalvingInterval, m.Difficulty, m.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("inserting chain meta: %w", err)
	}

	return nil
}

// Meta returns the counters row. Readers outside the miner tolerate a
// stale view.
func (c *Core) Meta(ctx context.Context) (Meta, error) {
	return c.readMeta(ctx, c.db, false)
}

// MetaForUpdate returns the counters row inside the caller's transaction,
// locking it on engines with row locks so the miner's commit sees the
// latest values.
func (c *Core) MetaForUpdate(ctx context.Context, q database.Querier) (Meta, error) {
	return c.readMeta(ctx, q, true)
}

// UpdateMeta overwrites the counters row.
func (c *Core) UpdateMeta(ctx context.Context, q database.Querier, m Meta) error {
	const query = `
	UPDATE chain_meta
	SET height = $1, circulating_coins = $2, current_reward = $3,
		halving_interval = $4, difficulty = $5, updated_at = $6
	WHERE id = 1`

	res, err := q.ExecContext(ctx, query, m.Height, m.CirculatingCoins.String(),
		m.CurrentReward.String(), m.HalvingInterval, m.Difficulty, m.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("updating chain meta: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating chain meta: %w", err)
	}
	if n != 1 {
		return ErrNotFound
	}

	return nil
}

func (c *Core) readMeta(ctx context.Context, q database.Querier, forUpdate bool) (Meta, error) {
	query := `
	SELECT height, circulating_coins, current_reward, halving_interval, difficulty, updated_at
	FROM chain_meta
	WHERE id = 1`

	if forUpdate && c.db.Engine == database.EnginePostgres {
		query += `
	FOR UPDATE`
	}

	var (
		m         Meta
		updatedAt int64
	)

	err := q.QueryRowContext(ctx, query).Scan(&m.Height, &m.CirculatingCoins,
		&m.CurrentReward, &m.HalvingInterval, &m.Difficulty, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meta{}, ErrNotFound
		}
		return Meta{}, fmt.Errorf("selecting chain meta: %w", err)
	}

	m.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return m, nil
}
