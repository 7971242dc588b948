package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Digest is a generated summary for a period, stored as JSON content.
type Digest struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	DigestType  string          `json:"digestType"`
	Content     json.RawMessage `json:"content"`
	PeriodStart string          `json:"periodStart"`
	PeriodEnd   string          `json:"periodEnd"`
	CreatedAt   string          `json:"createdAt"`
}

// DigestSummary is the generated content of a digest.
type DigestSummary struct {
	Summary         string  `json:"summary"`
	TasksCompleted  int     `json:"tasksCompleted"`
	ReflectionCount int     `json:"reflectionCount"`
	AvgMood         float64 `json:"avgMood"`
	PeriodStart     string  `json:"periodStart"`
	PeriodEnd       string  `json:"periodEnd"`
}

// GenerateDigest computes a summary for the period from the user's tasks and
// reflections and stores it.
func (s *Store) GenerateDigest(ctx context.Context, userID, digestType, periodStart, periodEnd string) (*Digest, error) {
	var tasksCompleted int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks
		 WHERE user_id = ? AND status = 'done' AND completed_at >= ? AND completed_at < ?`,
		userID, periodStart, periodEnd).Scan(&tasksCompleted)
	if err != nil {
		return nil, fmt.Errorf("count completed tasks: %w", err)
	}

	var reflectionCount int
	var avgMood float64
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(mood_score), 0) FROM reflections
		 WHERE user_id = ? AND reflection_date >= ? AND reflection_date <= ?`,
		userID, periodStart, periodEnd).Scan(&reflectionCount, &avgMood)
	if err != nil {
		return nil, fmt.Errorf("aggregate reflections: %w", err)
	}

	summary := DigestSummary{
		Summary:         fmt.Sprintf("You completed %d tasks and wrote %d reflections.", tasksCompleted, reflectionCount),
		TasksCompleted:  tasksCompleted,
		ReflectionCount: reflectionCount,
		AvgMood:         avgMood,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
	}
	content, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal digest content: %w", err)
	}

	d := &Digest{
		ID:          uuid.NewString(),
		UserID:      userID,
		DigestType:  digestType,
		Content:     content,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		CreatedAt:   now(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO digests (id, user_id, digest_type, content, period_start, period_end, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.DigestType, string(content), d.PeriodStart, d.PeriodEnd, d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert digest: %w", err)
	}
	return d, nil
}

// ListDigests returns the user's digests, newest first.
func (s *Store) ListDigests(ctx context.Context, userID, digestType string, limit, offset int) ([]Digest, error) {
	query := `SELECT id, user_id, digest_type, content, period_start, period_end, created_at
		 FROM digests WHERE user_id = ?`
	args := []any{userID}

	if digestType != "" {
		query += ` AND digest_type = ?`
		args = append(args, digestType)
	}
	if limit <= 0 {
		limit = 10
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list digests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	digests := make([]Digest, 0)
	for rows.Next() {
		var d Digest
		var content string
		if err := rows.Scan(&d.ID, &d.UserID, &d.DigestType, &content,
			&d.PeriodStart, &d.PeriodEnd, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}
		d.Content = json.RawMessage(content)
		digests = append(digests, d)
	}
	return digests, rows.Err()
}
