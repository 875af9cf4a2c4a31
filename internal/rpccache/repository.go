// Package rpccache provides durable storage for RPC responses and account
// existence facts. Responses are stored as JSON blobs keyed by a canonical
// content hash of the request; lookups return the most recent entry.
package rpccache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository provides cache operations backed by cache.db.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new RPC cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StoreResponse appends a fresh cache entry for the given request hash.
// Entries are never updated in place; re-inserting the same hash is the
// intended idempotent write path.
func (r *Repository) StoreResponse(hash, endpoint string, requestBody, responseBody []byte) error {
	_, err := r.db.Exec(
		`INSERT INTO rpc_requests (request_hash, endpoint, request_body, response_body, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		hash, endpoint, string(requestBody), string(responseBody), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to store rpc response: %w", err)
	}
	return nil
}

// LookupResponse returns the most recent stored response body for the hash.
// Returns nil, nil if no entry exists.
func (r *Repository) LookupResponse(hash string) (json.RawMessage, error) {
	var body string
	err := r.db.QueryRow(
		`SELECT response_body FROM rpc_requests
		 WHERE request_hash = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		hash,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up rpc response: %w", err)
	}
	return json.RawMessage(body), nil
}

// RecordAbsent stores the fact that accountID did not exist at blockHeight.
// Absence at a height implies absence at every earlier height, so these rows
// are permanent facts about chain history.
func (r *Repository) RecordAbsent(accountID string, blockHeight uint64) error {
	_, err := r.db.Exec(
		`INSERT INTO account_block_existence (account_id, block_height, exists_flag, created_at)
		 VALUES (?, ?, 0, ?)`,
		accountID, blockHeight, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record account absence: %w", err)
	}
	return nil
}

// AccountAbsentAtOrBefore reports whether a recorded absence exists for the
// account at a height greater than or equal to the queried height. Accounts,
// once created, persist - so absence at height H implies absence for all
// heights <= H.
func (r *Repository) AccountAbsentAtOrBefore(accountID string, blockHeight uint64) (bool, error) {
	var found int
	err := r.db.QueryRow(
		`SELECT 1 FROM account_block_existence
		 WHERE account_id = ? AND block_height >= ? AND exists_flag = 0
		 LIMIT 1`,
		accountID, blockHeight,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query account existence: %w", err)
	}
	return true, nil
}

// PruneResponsesBefore deletes cache entries older than the cutoff, keeping
// the database from growing without bound. Existence facts are never pruned.
func (r *Repository) PruneResponsesBefore(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(
		`DELETE FROM rpc_requests WHERE created_at < ?`,
		cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune rpc responses: %w", err)
	}
	return res.RowsAffected()
}
