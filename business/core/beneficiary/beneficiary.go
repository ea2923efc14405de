// Package beneficiary provides access to the address book of saved
// recipients each user keeps.
package beneficiary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Set of error variables for beneficiary access.
var (
	ErrNotFound      = errors.New("beneficiary not found")
	ErrAlreadyExists = errors.New("beneficiary already saved")
)

// Beneficiary represents a saved recipient.
type Beneficiary struct {
	ID        string
	UserID    string
	WalletID  string
	Nickname  string
	CreatedAt time.Time
}

// Core manages the set of APIs for beneficiary access.
type Core struct {
	log *zap.SugaredLogger
	db  *database.DB
}

// New constructs a core for beneficiary api access.
func New(log *zap.SugaredLogger, db *database.DB) *Core {
	return &Core{
		log: log,
		db:  db,
	}
}

// Create saves a recipient under the user's address book. Saving the
// same wallet twice reports ErrAlreadyExists.
func (c *Core) Create(ctx context.Context, userID string, walletID string, nickname string, now time.Time) (Beneficiary, error) {
	b := Beneficiary{
		ID:        uuid.NewString(),
		UserID:    userID,
		WalletID:  walletID,
		Nickname:  nickname,
		CreatedAt: now,
	}

	const query = `
	INSERT INTO beneficiaries
		(id, user_id, beneficiary_wallet_id, nickname, created_at)
	VALUES
		($1, $2, $3, $4, $5)`

	_, err := c.db.ExecContext(ctx, query, b.ID, b.UserID, b.WalletID, b.Nickname, now.Unix())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Beneficiary{}, ErrAlreadyExists
		}
		return Beneficiary{}, fmt.Errorf("inserting beneficiary: %w", err)
	}

	return b, nil
}

// QueryByUser returns the user's saved recipients.
func (c *Core) QueryByUser(ctx context.Context, userID string) ([]Beneficiary, error) {
	const query = `
	SELECT id, user_id, beneficiary_wallet_id, nickname, created_at
	FROM beneficiaries
	WHERE user_id = $1
	ORDER BY created_at ASC, id ASC`

	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("selecting beneficiaries: %w", err)
	}
	defer rows.Close()

	var bens []Beneficiary
	for rows.Next() {
		var (
			b         Beneficiary
			createdAt int64
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.WalletID, &b.Nickname, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning beneficiary: %w", err)
		}
		b.CreatedAt = time.Unix(createdAt, 0).UTC()
		bens = append(bens, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating beneficiaries: %w", err)
	}

	return bens, nil
}

// Delete removes a saved recipient. The user must own the entry.
func (c *Core) Delete(ctx context.Context, userID string, id string) error {
	const query = `
	DELETE FROM beneficiaries
	WHERE id = $1 AND user_id = $2`

	res, err := c.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("deleting beneficiary: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting beneficiary: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// QueryByID returns a single saved recipient owned by the user.
func (c *Core) QueryByID(ctx context.Context, userID string, id string) (Beneficiary, error) {
	const query = `
	SELECT id, user_id, beneficiary_wallet_id, nickname, created_at
	FROM beneficiaries
	WHERE id = $1 AND user_id = $2`

	var (
		b         Beneficiary
		createdAt int64
	)
	err := c.db.QueryRowContext(ctx, query, id, userID).Scan(&b.ID, &b.UserID, &b.WalletID, &b.Nickname, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Beneficiary{}, ErrNotFound
		}
		return Beneficiary{}, fmt.Errorf("selecting beneficiary: %w", err)
	}

	b.CreatedAt = time.Unix(createdAt, 0).UTC()
	return b, nil
}
