// Package schema creates and maintains the database tables the ledger
// needs. The DDL is declared per engine and executed statement by
// statement so a failure names the statement that caused it.
//
// All time columns are stored as unix seconds so values scan identically
// on PostgreSQL and SQLite. Monetary columns are NUMERIC(30,8) on
// PostgreSQL and TEXT on SQLite; both scan into decimal values without
// loss of precision.
package schema

import (
	"context"
	"fmt"

	"github.com/dinarlabs/ledger/foundation/database"
)

// Migrate creates the full table set for the engine the database was
// opened with. Every statement is idempotent so Migrate can run on
// every service start.
func Migrate(ctx context.Context, db *database.DB) error {
	var statements []string

	switch db.Engine {
	case database.EnginePostgres:
		statements = postgresSchema
	case database.EngineSQLite:
		statements = sqliteSchema
	default:
		return fmt.Errorf("unknown database engine: %s", db.Engine)
	}

	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrate [%.60s...]: %w", statement, err)
		}
	}

	return nil
}

// Drop removes every table the ledger owns. Tables are dropped in
// reverse dependency order.
func Drop(ctx context.Context, db *database.DB) error {
	tables := []string{
		"transaction_logs",
		"system_logs",
		"zakat_records",
		"beneficiaries",
		"email_otps",
		"chain_meta",
		"transactions",
		"blocks",
		"utxos",
		"pending_transactions",
		"wallets",
		"users",
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}

	return nil
}

// =============================================================================

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                    TEXT PRIMARY KEY
		,email                TEXT UNIQUE NOT NULL
		,password_hash        TEXT NOT NULL
		,full_name            TEXT NOT NULL
		,cnic                 TEXT UNIQUE NOT NULL
		,wallet_id            TEXT UNIQUE NULL
		,is_verified          BOOLEAN NOT NULL DEFAULT FALSE
		,created_at           BIGINT NOT NULL
		,updated_at           BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS wallets (
		wallet_id             TEXT PRIMARY KEY
		,user_id              TEXT NULL REFERENCES users(id)
		,public_key           TEXT NOT NULL
		,encrypted_private_key TEXT NOT NULL
		,balance              NUMERIC(30,8) NOT NULL DEFAULT 0
		,last_zakat_date      BIGINT NULL
		,created_at           BIGINT NOT NULL
		,updated_at           BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS pending_transactions (
		id                    TEXT PRIMARY KEY
		,transaction_hash     TEXT UNIQUE NOT NULL
		,sender_wallet_id     TEXT NOT NULL
		,receiver_wallet_id   TEXT NOT NULL
		,amount               NUMERIC(30,8) NOT NULL
		,fee                  NUMERIC(30,8) NOT NULL
		,note                 TEXT NOT NULL DEFAULT ''
		,signature            TEXT NOT NULL
		,timestamp            BIGINT NOT NULL
		,created_at           BIGINT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_pending_created_at ON pending_transactions (created_at)`,

	`CREATE TABLE IF NOT EXISTS utxos (
		id                    BIGSERIAL PRIMARY KEY
		,wallet_id            TEXT NOT NULL
		,amount               NUMERIC(30,8) NOT NULL
		,transaction_hash     TEXT NOT NULL
		,output_index         INTEGER NOT NULL
		,is_spent             BOOLEAN NOT NULL DEFAULT FALSE
		,reserved_by          TEXT NULL REFERENCES pending_transactions(id) ON DELETE SET NULL
		,spent_in_tx_hash     TEXT NULL
		,created_at           BIGINT NOT NULL
		,spent_at             BIGINT NULL
		,UNIQUE (transaction_hash, output_index)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_utxos_wallet ON utxos (wallet_id, is_spent)`,
	`CREATE INDEX IF NOT EXISTS idx_utxos_reserved_by ON utxos (reserved_by)`,

	`CREATE TABLE IF NOT EXISTS blocks (
		"index"               BIGINT PRIMARY KEY
		,timestamp            BIGINT NOT NULL
		,previous_hash        TEXT NOT NULL
		,hash                 TEXT UNIQUE NOT NULL
		,nonce                BIGINT NOT NULL
		,merkle_root          TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id                    BIGSERIAL PRIMARY KEY
		,transaction_hash     TEXT UNIQUE NOT NULL
		,sender_wallet_id     TEXT NOT NULL
		,receiver_wallet_id   TEXT NOT NULL
		,amount               NUMERIC(30,8) NOT NULL
		,fee                  NUMERIC(30,8) NOT NULL DEFAULT 0
		,note                 TEXT NOT NULL DEFAULT ''
		,signature            TEXT NOT NULL
		,block_index          BIGINT NOT NULL REFERENCES blocks("index")
		,transaction_type     TEXT NOT NULL DEFAULT 'TRANSFER'
		,timestamp            BIGINT NOT NULL
		,created_at           BIGINT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions (sender_wallet_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions (receiver_wallet_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_block ON transactions (block_index)`,

	`CREATE TABLE IF NOT EXISTS chain_meta (
		id                    INTEGER PRIMARY KEY CHECK (id = 1)
		,height               BIGINT NOT NULL
		,circulating_coins    NUMERIC(30,8) NOT NULL
		,current_reward       NUMERIC(30,8) NOT NULL
		,halving_interval     BIGINT NOT NULL
		,difficulty           INTEGER NOT NULL
		,updated_at           BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS email_otps (
		id                    TEXT PRIMARY KEY
		,email                TEXT NOT NULL
		,otp                  TEXT NOT NULL
		,is_verified          BOOLEAN NOT NULL DEFAULT FALSE
		,expires_at           BIGINT NOT NULL
		,created_at           BIGINT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_email_otps_email ON email_otps (email)`,

	`CREATE TABLE IF NOT EXISTS beneficiaries (
		id                    TEXT PRIMARY KEY
		,user_id              TEXT NOT NULL REFERENCES users(id)
		,beneficiary_wallet_id TEXT NOT NULL
		,nickname             TEXT NOT NULL
		,created_at           BIGINT NOT NULL
		,UNIQUE (user_id, beneficiary_wallet_id)
	)`,

	`CREATE TABLE IF NOT EXISTS zakat_records (
		id                    BIGSERIAL PRIMARY KEY
		,wallet_id            TEXT NOT NULL
		,amount               NUMERIC(30,8) NOT NULL
		,transaction_hash     TEXT NOT NULL
		,deduction_date       BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS system_logs (
		id                    BIGSERIAL PRIMARY KEY
		,log_type             TEXT NOT NULL
		,user_id              TEXT NULL
		,message              TEXT NOT NULL
		,ip_address           TEXT NULL
		,metadata             TEXT NULL
		,created_at           BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS transaction_logs (
		id                    BIGSERIAL PRIMARY KEY
		,wallet_id            TEXT NOT NULL
		,action               TEXT NOT NULL
		,transaction_hash     TEXT NULL
		,block_hash           TEXT NULL
		,status               TEXT NOT NULL
		,ip_address           TEXT NULL
		,user_agent           TEXT NULL
		,note                 TEXT NULL
		,created_at           BIGINT NOT NULL
	)`,
}

// =============================================================================

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                    TEXT PRIMARY KEY
		,email                TEXT UNIQUE NOT NULL
		,password_hash        TEXT NOT NULL
		,full_name            TEXT NOT NULL
		,cnic                 TEXT UNIQUE NOT NULL
		,wallet_id            TEXT UNIQUE NULL
		,is_verified          INTEGER NOT NULL DEFAULT 0
		,created_at           INTEGER NOT NULL
		,updated_at           INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS wallets (
		wallet_id             TEXT PRIMARY KEY
		,user_id              TEXT NULL REFERENCES users(id)
		,public_key           TEXT NOT NULL
		,encrypted_private_key TEXT NOT NULL
		,balance              TEXT NOT NULL DEFAULT '0'
		,last_zakat_date      INTEGER NULL
		,created_at           INTEGER NOT NULL
		,updated_at           INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS pending_transactions (
		id                    TEXT PRIMARY KEY
		,transaction_hash     TEXT UNIQUE NOT NULL
		,sender_wallet_id     TEXT NOT NULL
		,receiver_wallet_id   TEXT NOT NULL
		,amount               TEXT NOT NULL
		,fee                  TEXT NOT NULL
		,note                 TEXT NOT NULL DEFAULT ''
		,signature            TEXT NOT NULL
		,timestamp            INTEGER NOT NULL
		,created_at           INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_pending_created_at ON pending_transactions (created_at)`,

	`CREATE TABLE IF NOT EXISTS utxos (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT
		,wallet_id            TEXT NOT NULL
		,amount               TEXT NOT NULL
		,transaction_hash     TEXT NOT NULL
		,output_index         INTEGER NOT NULL
		,is_spent             INTEGER NOT NULL DEFAULT 0
		,reserved_by          TEXT NULL REFERENCES pending_transactions(id) ON DELETE SET NULL
		,spent_in_tx_hash     TEXT NULL
		,created_at           INTEGER NOT NULL
		,spent_at             INTEGER NULL
		,UNIQUE (transaction_hash, output_index)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_utxos_wallet ON utxos (wallet_id, is_spent)`,
	`CREATE INDEX IF NOT EXISTS idx_utxos_reserved_by ON utxos (reserved_by)`,

	`CREATE TABLE IF NOT EXISTS blocks (
		"index"               INTEGER PRIMARY KEY
		,timestamp            INTEGER NOT NULL
		,previous_hash        TEXT NOT NULL
		,hash                 TEXT UNIQUE NOT NULL
		,nonce                INTEGER NOT NULL
		,merkle_root          TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT
		,transaction_hash     TEXT UNIQUE NOT NULL
		,sender_wallet_id     TEXT NOT NULL
		,receiver_wallet_id   TEXT NOT NULL
		,amount               TEXT NOT NULL
		,fee                  TEXT NOT NULL DEFAULT '0'
		,note                 TEXT NOT NULL DEFAULT ''
		,signature            TEXT NOT NULL
		,block_index          INTEGER NOT NULL REFERENCES blocks("index")
		,transaction_type     TEXT NOT NULL DEFAULT 'TRANSFER'
		,timestamp            INTEGER NOT NULL
		,created_at           INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions (sender_wallet_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions (receiver_wallet_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_block ON transactions (block_index)`,

	`CREATE TABLE IF NOT EXISTS chain_meta (
		id                    INTEGER PRIMARY KEY CHECK (id = 1)
		,height               INTEGER NOT NULL
		,circulating_coins    TEXT NOT NULL
		,current_reward       TEXT NOT NULL
		,halving_interval     INTEGER NOT NULL
		,difficulty           INTEGER NOT NULL
		,updated_at           INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS email_otps (
		id                    TEXT PRIMARY KEY
		,email                TEXT NOT NULL
		,otp                  TEXT NOT NULL
		,is_verified          INTEGER NOT NULL DEFAULT 0
		,expires_at           INTEGER NOT NULL
		,created_at           INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_email_otps_email ON email_otps (email)`,

	`CREATE TABLE IF NOT EXISTS beneficiaries (
		id                    TEXT PRIMARY KEY
		,user_id              TEXT NOT NULL REFERENCES users(id)
		,beneficiary_wallet_id TEXT NOT NULL
		,nickname             TEXT NOT NULL
		,created_at           INTEGER NOT NULL
		,UNIQUE (user_id, beneficiary_wallet_id)
	)`,

	`CREATE TABLE IF NOT EXISTS zakat_records (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT
		,wallet_id            TEXT NOT NULL
		,amount               TEXT NOT NULL
		,transaction_hash     TEXT NOT NULL
		,deduction_date       INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS system_logs (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT
		,log_type             TEXT NOT NULL
		,user_id              TEXT NULL
		,message              TEXT NOT NULL
		,ip_address           TEXT NULL
		,metadata             TEXT NULL
		,created_at           INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS transaction_logs (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT
		,wallet_id            TEXT NOT NULL
		,action               TEXT NOT NULL
		,transaction_hash     TEXT NULL
		,block_hash           TEXT NULL
		,status               TEXT NOT NULL
		,ip_address           TEXT NULL
		,user_agent           TEXT NULL
		,note                 TEXT NULL
		,created_at           INTEGER NOT NULL
	)`,
}
