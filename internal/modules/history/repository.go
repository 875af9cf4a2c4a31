package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Repository persists computed balance history series as a read-through
// fallback for when live reconstruction fails. Rows are append-only; readers
// take the newest row per (account, token, period).
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "history").Logger(),
	}
}

// Save stores a period's series. Points are msgpack-encoded; they are only
// ever read back whole.
func (r *Repository) Save(accountID, tokenID, period string, points []BalancePoint) error {
	blob, err := msgpack.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to encode balance history: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO token_balance_history (id, account_id, token_id, period, points, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), accountID, tokenID, period, blob, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save balance history: %w", err)
	}
	return nil
}

// LatestByPeriod returns the newest stored series per period for the
// account/token pair. Periods with no stored rows are simply absent.
func (r *Repository) LatestByPeriod(accountID, tokenID string) (map[string][]BalancePoint, error) {
	rows, err := r.db.Query(
		`SELECT period, points FROM token_balance_history
		 WHERE account_id = ? AND token_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		accountID, tokenID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]BalancePoint)
	for rows.Next() {
		var period string
		var blob []byte
		if err := rows.Scan(&period, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan balance history row: %w", err)
		}
		if _, seen := out[period]; seen {
			continue // newest row per period wins
		}
		var points []BalancePoint
		if err := msgpack.Unmarshal(blob, &points); err != nil {
			r.log.Warn().Err(err).Str("period", period).Msg("Discarding undecodable history row")
			continue
		}
		out[period] = points
	}
	return out, rows.Err()
}

// Latest returns the newest stored series for one period, or nil when none
// exists.
func (r *Repository) Latest(accountID, tokenID, period string) ([]BalancePoint, error) {
	var blob []byte
	err := r.db.QueryRow(
		`SELECT points FROM token_balance_history
		 WHERE account_id = ? AND token_id = ? AND period = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1`,
		accountID, tokenID, period,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history: %w", err)
	}

	var points []BalancePoint
	if err := msgpack.Unmarshal(blob, &points); err != nil {
		return nil, fmt.Errorf("failed to decode balance history: %w", err)
	}
	return points, nil
}

// Purge deletes all stored series for an account (optionally narrowed to one
// token). Returns the number of rows removed.
func (r *Repository) Purge(accountID, tokenID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if tokenID == "" {
		res, err = r.db.Exec(`DELETE FROM token_balance_history WHERE account_id = ?`, accountID)
	} else {
		res, err = r.db.Exec(`DELETE FROM token_balance_history WHERE account_id = ? AND token_id = ?`, accountID, tokenID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to purge balance history: %w", err)
	}
	return res.RowsAffected()
}

// Prune removes superseded rows, keeping the newest keep rows per
// (account, token, period).
func (r *Repository) Prune(keep int) (int64, error) {
	res, err := r.db.Exec(
		`DELETE FROM token_balance_history
		 WHERE id NOT IN (
		     SELECT id FROM (
		         SELECT id, ROW_NUMBER() OVER (
		             PARTITION BY account_id, token_id, period
		             ORDER BY created_at DESC, rowid DESC
		         ) AS rn
		         FROM token_balance_history
		     ) WHERE rn <= ?
		 )`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune balance history: %w", err)
	}
	return res.RowsAffected()
}
