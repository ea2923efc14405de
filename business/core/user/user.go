// Package user provides access to registered accounts. Passwords are
// stored as bcrypt hashes and accounts stay unverified until the email
// passcode round-trip completes.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Set of error variables for user access.
var (
	ErrNotFound              = errors.New("user not found")
	ErrUniqueEmail           = errors.New("email or cnic already registered")
	ErrAuthenticationFailure = errors.New("authentication failed")
	ErrNotVerified           = errors.New("account not verified")
)

// User represents a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	FullName     string
	CNIC         string
	WalletID     string
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser contains the information needed to register an account.
type NewUser struct {
	Email    string
	Password string
	FullName string
	CNIC     string
}

// UpdateUser contains profile fields an account holder may change. A
// nil field leaves the stored value as is.
type UpdateUser struct {
	FullName *string
	Email    *string
}

// Core manages the set of APIs for user access.
type Core struct {
	log *zap.SugaredLogger
	db  *database.DB
}

// New constructs a core for user api access.
func New(log *zap.SugaredLogger, db *database.DB) *Core {
	return &Core{
		log: log,
		db:  db,
	}
}

// Create registers a new account. The wallet id is attached separately
// once the wallet row exists.
func (c *Core) Create(ctx context.Context, q database.Querier, nu NewUser, now time.Time) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("generating password hash: %w", err)
	}

	usr := User{
		ID:           uuid.NewString(),
		Email:        nu.Email,
		PasswordHash: hash,
		FullName:     nu.FullName,
		CNIC:         nu.CNIC,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	const query = `
	INSERT INTO users
		(id, email, password_hash, full_name, cnic, is_verified, created_at, updated_at)
	VALUES
		($1, $2, $3, $4, $5, FALSE, $6, $7)`

	_, err = q.ExecContext(ctx, query, usr.ID, usr.Email, string(usr.PasswordHash),
		usr.FullName, usr.CNIC, now.Unix(), now.Unix())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return User{}, ErrUniqueEmail
		}
		return User{}, fmt.Errorf("inserting user: %w", err)
	}

	return usr, nil
}

// SetWallet attaches the wallet created for the user.
func (c *Core) SetWallet(ctx context.Context, q database.Querier, userID string, walletID string, now time.Time) error {
	const query = `
	UPDATE users
	SET wallet_id = $2, updated_at = $3
	WHERE id = $1`

	if _, err := q.ExecContext(ctx, query, userID, walletID, now.Unix()); err != nil {
		return fmt.Errorf("attaching wallet to user %s: %w", userID, err)
	}

	return nil
}

// Update applies profile changes. A changed email flips the account
// back to unverified so the new address proves ownership through a
// fresh passcode round-trip.
func (c *Core) Update(ctx context.Context, q database.Querier, usr User, uu UpdateUser, now time.Time) (User, error) {
	if uu.FullName != nil {
		usr.FullName = *uu.FullName
	}
	if uu.Email != nil && *uu.Email != usr.Email {
		usr.Email = *uu.Email
		usr.IsVerified = false
	}
	usr.UpdatedAt = now

	const query = `
	UPDATE users
	SET email = $2, full_name = $3, is_verified = $4, updated_at = $5
	WHERE id = $1`

	_, err := q.ExecContext(ctx, query, usr.ID, usr.Email, usr.FullName,
		usr.IsVerified, now.Unix())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return User{}, ErrUniqueEmail
		}
		return User{}, fmt.Errorf("updating user %s: %w", usr.ID, err)
	}

	return usr, nil
}

// Authenticate verifies the email and password pair. Unverified accounts
// are rejected even with the right password.
func (c *Core) Authenticate(ctx context.Context, email string, password string) (User, error) {
	usr, err := c.QueryByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrAuthenticationFailure
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrAuthenticationFailure
	}

	if !usr.IsVerified {
		return User{}, ErrNotVerified
	}

	return usr, nil
}

// QueryByID returns the user with the specified id.
func (c *Core) QueryByID(ctx context.Context, userID string) (User, error) {
	const query = `
	SELECT id, email, password_hash, full_name, cnic, wallet_id, is_verified, created_at, updated_at
	FROM users
	WHERE id = $1`

	return c.queryOne(ctx, query, userID)
}

// QueryByEmail returns the user registered under the specified email.
func (c *Core) QueryByEmail(ctx context.Context, email string) (User, error) {
	const query = `
	SELECT id, email, password_hash, full_name, cnic, wallet_id, is_verified, created_at, updated_at
	FROM users
	WHERE email = $1`

	return c.queryOne(ctx, query, email)
}

// MarkVerified flips the account to verified after the passcode
// round-trip completes.
func (c *Core) MarkVerified(ctx context.Context, q database.Querier, userID string, now time.Time) error {
	const query = `
	UPDATE users
	SET is_verified = TRUE, updated_at = $2
	WHERE id = $1`

	if _, err := q.ExecContext(ctx, query, userID, now.Unix()); err != nil {
		return fmt.Errorf("verifying user %s: %w", userID, err)
	}

	return nil
}

func (c *Core) queryOne(ctx context.Context, query string, arg any) (User, error) {
	var (
		usr       User
		hash      string
		walletID  sql.NullString
		createdAt int64
		updatedAt int64
	)

	err := c.db.QueryRowContext(ctx, query, arg).Scan(&usr.ID, &usr.Email, &hash,
		&usr.FullName, &usr.CNIC, &walletID, &usr.IsVerified, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user: %w", err)
	}

	usr.PasswordHash = []byte(hash)
	usr.WalletID = walletID.String
	usr.CreatedAt = time.Unix(createdAt, 0).UTC()
	usr.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return usr, nil
}
