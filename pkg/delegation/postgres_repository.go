package delegation

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tendant/simple-delegation/pkg/asset"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// TxBeginner is a DBTX that can open transactions, such as *pgxpool.Pool
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresDelegationRepository implements DelegationRepository using PostgreSQL.
// Collections and delegates are stored as lowercase hex, token ids and expiry as NUMERIC.
type PostgresDelegationRepository struct {
	db TxBeginner
}

func NewPostgresDelegationRepository(db TxBeginner) *PostgresDelegationRepository {
	return &PostgresDelegationRepository{db: db}
}

// Migrate creates the delegation table if it does not exist
func Migrate(ctx context.Context, db DBTX) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresDelegationRepository) Load(ctx context.Context, id asset.ID) (Record, bool, error) {
	return loadRecord(ctx, r.db, id, false)
}

// Update serializes writers of the same asset with a transaction scoped
// advisory lock and a row lock. fn runs while both are held, so an owner
// check made inside fn and the write commit together across processes.
func (r *PostgresDelegationRepository) Update(ctx context.Context, id asset.ID, fn UpdateFunc) (Record, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, id.Key()); err != nil {
		return Record{}, fmt.Errorf("failed to lock asset %s: %w", id, err)
	}

	current, found, err := loadRecord(ctx, tx, id, true)
	if err != nil {
		return Record{}, err
	}

	next, err := fn(current, found)
	if err != nil {
		return Record{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO asset_delegation (collection, token_id, delegate, expiry, updated_at)
		VALUES ($1, $2::numeric, $3, $4::numeric, now())
		ON CONFLICT (collection, token_id) DO UPDATE
		SET delegate = EXCLUDED.delegate, expiry = EXCLUDED.expiry, updated_at = EXCLUDED.updated_at`,
		collectionKey(id), id.TokenIDString(), accountKey(next.Delegate.Bytes()), strconv.FormatUint(next.Expiry, 10))
	if err != nil {
		return Record{}, fmt.Errorf("failed to store delegation for %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("Delegation stored", "asset", id, "record", next)
	return next, nil
}

func (r *PostgresDelegationRepository) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT collection, token_id::text, delegate, expiry::text
		FROM asset_delegation
		ORDER BY collection, token_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list delegations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var collection, tokenID, delegate, expiry string
		if err := rows.Scan(&collection, &tokenID, &delegate, &expiry); err != nil {
			return nil, fmt.Errorf("failed to scan delegation: %w", err)
		}
		id, err := asset.Parse(collection, tokenID)
		if err != nil {
			return nil, fmt.Errorf("invalid stored asset %s/%s: %w", collection, tokenID, err)
		}
		record, err := parseRecord(delegate, expiry)
		if err != nil {
			return nil, fmt.Errorf("invalid stored delegation for %s: %w", id, err)
		}
		entries = append(entries, Entry{Asset: id, Record: record})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list delegations: %w", err)
	}

	return entries, nil
}

func loadRecord(ctx context.Context, db DBTX, id asset.ID, forUpdate bool) (Record, bool, error) {
	query := `SELECT delegate, expiry::text FROM asset_delegation WHERE collection = $1 AND token_id = $2::numeric`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var delegate, expiry string
	err := db.QueryRow(ctx, query, collectionKey(id), id.TokenIDString()).Scan(&delegate, &expiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to load delegation for %s: %w", id, err)
	}

	record, err := parseRecord(delegate, expiry)
	if err != nil {
		return Record{}, false, fmt.Errorf("invalid stored delegation for %s: %w", id, err)
	}
	return record, true, nil
}

func parseRecord(delegate, expiry string) (Record, error) {
	account, err := asset.ParseAccount(delegate)
	if err != nil {
		return Record{}, err
	}
	exp, err := strconv.ParseUint(expiry, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid expiry %q: %w", expiry, err)
	}
	return Record{Delegate: account, Expiry: exp}, nil
}

func collectionKey(id asset.ID) string {
	return accountKey(id.Collection.Bytes())
}

func accountKey(b []byte) string {
	return "0x" + fmt.Sprintf("%x", b)
}
