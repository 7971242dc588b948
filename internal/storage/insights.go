package storage

import (
	"context"
	"fmt"
	"time"
)

// WeeklyInsight aggregates one ISO week of activity.
type WeeklyInsight struct {
	WeekStart        string  `json:"weekStart"`
	TasksCompleted   int     `json:"tasksCompleted"`
	TasksTotal       int     `json:"tasksTotal"`
	AvgMood          float64 `json:"avgMood"`
	ReflectionsCount int     `json:"reflectionsCount"`
}

// DailyAggregate summarizes one day of activity for the dashboard.
type DailyAggregate struct {
	Date             string  `json:"date"`
	TasksCompleted   int     `json:"tasksCompleted"`
	TasksCreated     int     `json:"tasksCreated"`
	ReflectionsCount int     `json:"reflectionsCount"`
	AvgMood          float64 `json:"avgMood"`
}

// WeeklyInsights computes per-week summaries over the most recent weeks.
// Weeks start on Monday, matching the original materialized view.
func (s *Store) WeeklyInsights(ctx context.Context, userID string, weeks int) ([]WeeklyInsight, error) {
	if weeks <= 0 {
		weeks = 12
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT week_start,
		        SUM(completed) AS tasks_completed,
		        SUM(total) AS tasks_total,
		        COALESCE(AVG(mood), 0) AS avg_mood,
		        SUM(reflections) AS reflections_count
		 FROM (
		     SELECT date(created_at, 'weekday 1', '-7 days') AS week_start,
		            CASE WHEN status = 'done' THEN 1 ELSE 0 END AS completed,
		            1 AS total, NULL AS mood, 0 AS reflections
		     FROM tasks WHERE user_id = ?
		     UNION ALL
		     SELECT date(reflection_date, 'weekday 1', '-7 days'),
		            0, 0, mood_score, 1
		     FROM reflections WHERE user_id = ?
		 )
		 GROUP BY week_start
		 ORDER BY week_start DESC
		 LIMIT ?`,
		userID, userID, weeks)
	if err != nil {
		return nil, fmt.Errorf("weekly insights: %w", err)
	}
	defer func() { _ = rows.Close() }()

	insights := make([]WeeklyInsight, 0)
	for rows.Next() {
		var w WeeklyInsight
		if err := rows.Scan(&w.WeekStart, &w.TasksCompleted, &w.TasksTotal, &w.AvgMood, &w.ReflectionsCount); err != nil {
			return nil, fmt.Errorf("scan weekly insight: %w", err)
		}
		insights = append(insights, w)
	}
	return insights, rows.Err()
}

// DashboardAggregates computes per-day summaries for the last N days.
func (s *Store) DashboardAggregates(ctx context.Context, userID string, days int) ([]DailyAggregate, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")

	rows, err := s.db.QueryContext(ctx,
		`SELECT agg_date,
		        SUM(completed) AS tasks_completed,
		        SUM(created) AS tasks_created,
		        SUM(reflections) AS reflections_count,
		        COALESCE(AVG(mood), 0) AS avg_mood
		 FROM (
		     SELECT date(created_at) AS agg_date,
		            CASE WHEN status = 'done' THEN 1 ELSE 0 END AS completed,
		            1 AS created, 0 AS reflections, NULL AS mood
		     FROM tasks WHERE user_id = ?
		     UNION ALL
		     SELECT reflection_date, 0, 0, 1, mood_score
		     FROM reflections WHERE user_id = ?
		 )
		 WHERE agg_date >= ?
		 GROUP BY agg_date
		 ORDER BY agg_date DESC`,
		userID, userID, since)
	if err != nil {
		return nil, fmt.Errorf("dashboard aggregates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	aggregates := make([]DailyAggregate, 0)
	for rows.Next() {
		var d DailyAggregate
		if err := rows.Scan(&d.Date, &d.TasksCompleted, &d.TasksCreated, &d.ReflectionsCount, &d.AvgMood); err != nil {
			return nil, fmt.Errorf("scan daily aggregate: %w", err)
		}
		aggregates = append(aggregates, d)
	}
	return aggregates, rows.Err()
}
