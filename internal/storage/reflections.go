package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ReflectionTypes accepted by the API.
var ReflectionTypes = []string{"daily", "weekly", "monthly", "custom"}

// Reflection is a journal entry with an optional mood score (1-5).
type Reflection struct {
	ID             string `json:"id"`
	UserID         string `json:"userId"`
	Type           string `json:"type"`
	Content        string `json:"content"`
	MoodScore      int    `json:"moodScore,omitempty"`
	ReflectionDate string `json:"reflectionDate"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// CreateReflection inserts a journal entry. A zero moodScore is stored as NULL.
func (s *Store) CreateReflection(ctx context.Context, userID, typ, content string, moodScore int, reflectionDate string) (*Reflection, error) {
	if typ == "" {
		typ = "daily"
	}
	if reflectionDate == "" {
		reflectionDate = today()
	}
	r := &Reflection{
		ID:             uuid.NewString(),
		UserID:         userID,
		Type:           typ,
		Content:        content,
		MoodScore:      moodScore,
		ReflectionDate: reflectionDate,
		CreatedAt:      now(),
		UpdatedAt:      now(),
	}
	var mood any
	if moodScore > 0 {
		mood = moodScore
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reflections (id, user_id, type, content, mood_score, reflection_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Type, r.Content, mood, r.ReflectionDate, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert reflection: %w", err)
	}
	return r, nil
}

// ListReflections returns the user's reflections, newest first.
func (s *Store) ListReflections(ctx context.Context, userID, typ string, limit, offset int) ([]Reflection, error) {
	query := `SELECT id, user_id, type, content, COALESCE(mood_score, 0), reflection_date, created_at, updated_at
		 FROM reflections WHERE user_id = ?`
	args := []any{userID}

	if typ != "" {
		query += ` AND type = ?`
		args = append(args, typ)
	}
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY reflection_date DESC, created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reflections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	reflections := make([]Reflection, 0)
	for rows.Next() {
		var r Reflection
		if err := rows.Scan(&r.ID, &r.UserID, &r.Type, &r.Content, &r.MoodScore,
			&r.ReflectionDate, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reflection: %w", err)
		}
		reflections = append(reflections, r)
	}
	return reflections, rows.Err()
}
