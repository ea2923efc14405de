// Package logs provides the audit trail. Two streams are kept: system
// level events (auth, mining, zakat, errors) and per wallet transaction
// activity. Writes are best effort; a failed audit insert never fails
// the operation being audited, so errors are logged and swallowed by
// the Record helpers.
package logs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/foundation/database"
	"go.uber.org/zap"
)

// Set of log types for the system stream.
const (
	TypeAuth        = "AUTH"
	TypeTransaction = "TRANSACTION"
	TypeMining      = "MINING"
	TypeZakat       = "ZAKAT"
	TypeError       = "ERROR"
)

// Set of statuses for the transaction stream.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// SystemLog represents a single system level audit entry.
type SystemLog struct {
	ID        int64
	LogType   string
	UserID    string
	Message   string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// TranLog represents a single wallet level audit entry.
type TranLog struct {
	ID        int64
	WalletID  string
	Action    string
	TxHash    string
	BlockHash string
	Status    string
	IP        string
	UserAgent string
	Note      string
	CreatedAt time.Time
}

// Core manages the set of APIs for audit log access.
type Core struct {
	log *zap.SugaredLogger
	db  *database.DB
}

// New constructs a core for audit log api access.
func New(log *zap.SugaredLogger, db *database.DB) *Core {
	return &Core{
		log: log,
		db:  db,
	}
}

// =============================================================================

// System writes a system level audit entry.
func (c *Core) System(ctx context.Context, sl SystemLog, now time.Time) error {
	const query = `
	INSERT INTO system_logs
		(log_type, user_id, message, ip_address, metadata, created_at)
	VALUES
		($1, $2, $3, $4, $5, $6)`

	_, err := c.db.ExecContext(ctx, query,
		sl.LogType, nullable(sl.UserID), sl.Message, nullable(sl.IP), nullable(sl.Metadata), now.Unix())
	if err != nil {
		return fmt.Errorf("inserting system log: %w", err)
	}

	return nil
}

// Transaction writes a wallet level audit entry.
func (c *Core) Transaction(ctx context.Context, tl TranLog, now time.Time) error {
	const query = `
	INSERT INTO transaction_logs
		(wallet_id, action, transaction_hash, block_hash, status, ip_address, user_agent, note, created_at)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := c.db.ExecContext(ctx, query,
		tl.WalletID, tl.Action, nullable(tl.TxHash), nullable(tl.BlockHash), tl.Status,
		nullable(tl.IP), nullable(tl.UserAgent), nullable(tl.Note), now.Unix())
	if err != nil {
		return fmt.Errorf("inserting transaction log: %w", err)
	}

	return nil
}

// RecordSystem writes a system entry and logs instead of failing when
// the write does not land.
func (c *Core) RecordSystem(ctx context.Context, sl SystemLog) {
	if err := c.System(ctx, sl, time.Now().UTC()); err != nil {
		c.log.Errorw("audit", "stream", "system", "ERROR", err)
	}
}

// RecordTransaction writes a wallet entry and logs instead of failing
// when the write does not land.
func (c *Core) RecordTransaction(ctx context.Context, tl TranLog) {
	if err := c.Transaction(ctx, tl, time.Now().UTC()); err != nil {
		c.log.Errorw("audit", "stream", "transaction", "ERROR", err)
	}
}

// =============================================================================

// QuerySystem returns a page of system entries, newest first. An empty
// logType returns all streams.
func (c *Core) QuerySystem(ctx context.Context, logType string, pageNumber int, rowsPerPage int) ([]SystemLog, error) {
	query := `
	SELECT id, log_type, user_id, message, ip_address, metadata, created_at
	FROM system_logs`

	args := []any{}
	if logType != "" {
		query += ` WHERE log_type = $1`
		args = append(args, logType)
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, rowsPerPage, (pageNumber-1)*rowsPerPage)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting system logs: %w", err)
	}
	defer rows.Close()

	var sls []SystemLog
	for rows.Next() {
		var (
			sl        SystemLog
			userID    sql.NullString
			ip        sql.NullString
			metadata  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&sl.ID, &sl.LogType, &userID, &sl.Message, &ip, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning system log: %w", err)
		}
		sl.UserID = userID.String
		sl.IP = ip.String
		sl.Metadata = metadata.String
		sl.CreatedAt = time.Unix(createdAt, 0).UTC()
		sls = append(sls, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating system logs: %w", err)
	}

	return sls, nil
}

// QueryTransactions returns a page of wallet entries, newest first. An
// empty walletID returns activity across all wallets.
func (c *Core) QueryTransactions(ctx context.Context, walletID string, pageNumber int, rowsPerPage int) ([]TranLog, error) {
	query := `
	SELECT id, wallet_id, action, transaction_hash, block_hash, status, ip_address, user_agent, note, created_at
	FROM transaction_logs`

	args := []any{}
	if walletID != "" {
		query += ` WHERE wallet_id = $1`
		args = append(args, walletID)
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, rowsPerPage, (pageNumber-1)*rowsPerPage)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting transaction logs: %w", err)
	}
	defer rows.Close()

	var tls []TranLog
	for rows.Next() {
		var (
			tl        TranLog
			txHash    sql.NullString
			blockHash sql.NullString
			ip        sql.NullString
			userAgent sql.NullString
			note      sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&tl.ID, &tl.WalletID, &tl.Action, &txHash, &blockHash, &tl.Status, &ip, &userAgent, &note, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transaction log: %w", err)
		}
		tl.TxHash = txHash.String
		tl.BlockHash = blockHash.String
		tl.IP = ip.String
		tl.UserAgent = userAgent.String
		tl.Note = note.String
		tl.CreatedAt = time.Unix(createdAt, 0).UTC()
		tls = append(tls, tl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction logs: %w", err)
	}

	return tls, nil
}

// nullable maps an empty string to a SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
