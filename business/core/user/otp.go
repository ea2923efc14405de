package user

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidOTP is returned when a passcode is wrong, expired or
// already used.
var ErrInvalidOTP = errors.New("invalid or expired passcode")

// otpTTL is how long an issued passcode stays valid.
const otpTTL = 10 * time.Minute

// Sender delivers one-time passcodes to users.
type Sender interface {
	Send(ctx context.Context, email string, otp string) error
}

// LogSender is the development delivery channel: it writes the passcode
// to the service log instead of sending mail.
type LogSender struct {
	Log *zap.SugaredLogger
}

// Send writes the passcode to the log.
func (s LogSender) Send(ctx context.Context, email string, otp string) error {
	s.Log.Infow("passcode issued", "email", email, "otp", otp)
	return nil
}

// CreateOTP issues a six digit passcode for the email and records it
// with its expiry. Delivery is the caller's concern.
func (c *Core) CreateOTP(ctx context.Context, q database.Querier, email string, now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generating passcode: %w", err)
	}
	otp := fmt.Sprintf("%06d", n.Int64())

	const query = `
	INSERT INTO email_otps
		(id, email, otp, is_verified, expires_at, created_at)
	VALUES
		($1, $2, $3, FALSE, $4, $5)`

	_, err = q.ExecContext(ctx, query, uuid.NewString(), email, otp,
		now.Add(otpTTL).Unix(), now.Unix())
	if err != nil {
		return "", fmt.Errorf("inserting passcode: %w", err)
	}

	return otp, nil
}

// VerifyOTP checks the passcode against the latest one issued for the
// email and, when it matches, consumes it and verifies the account.
func (c *Core) VerifyOTP(ctx context.Context, q database.Querier, email string, otp string, now time.Time) error {
	const query = `
	SELECT id
	FROM email_otps
	WHERE email = $1 AND otp = $2 AND is_verified = FALSE AND expires_at > $3
	ORDER BY created_at DESC
	LIMIT 1`

	var id string
	err := c.db.QueryRowContext(ctx, query, email, otp, now.Unix()).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("selecting passcode: %w", err)
	}

	const consume = `
	UPDATE email_otps
	SET is_verified = TRUE
	WHERE id = $1`

	if _, err := q.ExecContext(ctx, consume, id); err != nil {
		return fmt.Errorf("consuming passcode: %w", err)
	}

	usr, err := c.QueryByEmail(ctx, email)
	if err != nil {
		return err
	}

	return c.MarkVerified(ctx, q, usr.ID, now)
}
