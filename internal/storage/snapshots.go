package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Snapshot is a point-in-time capture of dashboard state, stored as JSON.
type Snapshot struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	SnapshotDate string          `json:"snapshotDate"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    string          `json:"createdAt"`
}

// CreateSnapshot stores a snapshot for the user.
func (s *Store) CreateSnapshot(ctx context.Context, userID, snapshotDate string, data json.RawMessage) (*Snapshot, error) {
	if snapshotDate == "" {
		snapshotDate = today()
	}
	snap := &Snapshot{
		ID:           uuid.NewString(),
		UserID:       userID,
		SnapshotDate: snapshotDate,
		Data:         data,
		CreatedAt:    now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, user_id, snapshot_date, data, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.UserID, snap.SnapshotDate, string(data), snap.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns the user's snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, userID string, limit, offset int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, snapshot_date, data, created_at
		 FROM snapshots WHERE user_id = ?
		 ORDER BY snapshot_date DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		var snap Snapshot
		var data string
		if err := rows.Scan(&snap.ID, &snap.UserID, &snap.SnapshotDate, &data, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Data = json.RawMessage(data)
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// GetSnapshot returns a single snapshot owned by userID.
func (s *Store) GetSnapshot(ctx context.Context, userID, id string) (*Snapshot, error) {
	var snap Snapshot
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, snapshot_date, data, created_at
		 FROM snapshots WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&snap.ID, &snap.UserID, &snap.SnapshotDate, &data, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	snap.Data = json.RawMessage(data)
	return &snap, nil
}
