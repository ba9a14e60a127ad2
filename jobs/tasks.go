package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-saas/meridian/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskPurgeSessions removes expired session audit rows.
	TaskPurgeSessions = "sessions:purge_expired"
	// TaskRestrictionReport logs allow-list rows whose companies have not
	// been visited recently.
	TaskRestrictionReport = "restrictions:report"
)

// PurgeSessionsPayload bounds one purge run.
type PurgeSessionsPayload struct {
	Before time.Time `json:"before"`
}

// RestrictionReportPayload controls the staleness cutoff of the report.
type RestrictionReportPayload struct {
	StaleAfterDays int `json:"staleAfterDays"`
}

// NewPurgeSessionsTask constructs an Asynq task. A zero Before means "now
// at execution time".
func NewPurgeSessionsTask(payload PurgeSessionsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurgeSessions, data), nil
}

// NewRestrictionReportTask constructs an Asynq task.
func NewRestrictionReportTask(payload RestrictionReportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRestrictionReport, data), nil
}

// SessionStore is the slice of the auth repository the purge task needs.
type SessionStore interface {
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// Tasks bundles the dependencies the task handlers need.
type Tasks struct {
	Pool     *pgxpool.Pool
	Sessions SessionStore
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// HandlePurgeSessions deletes session rows past their expiry.
func (t *Tasks) HandlePurgeSessions(ctx context.Context, task *asynq.Task) error {
	tracker := t.Metrics.Track("purge_sessions")
	var payload PurgeSessionsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	before := payload.Before
	if before.IsZero() {
		before = time.Now()
	}
	deleted, err := t.Sessions.DeleteExpiredSessions(ctx, before)
	if err != nil {
		t.Logger.Error("purge sessions", slog.Any("error", err))
		return tracker.End(err)
	}
	t.Logger.Info("purged expired sessions",
		slog.Int64("deleted", deleted),
		slog.Time("before", before))
	return tracker.End(nil)
}

// HandleRestrictionReport logs active allow-list rows that have not been
// used within the cutoff, so operators can prune dead grants.
func (t *Tasks) HandleRestrictionReport(ctx context.Context, task *asynq.Task) error {
	tracker := t.Metrics.Track("restriction_report")
	var payload RestrictionReportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	days := payload.StaleAfterDays
	if days <= 0 {
		days = 90
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	rows, err := t.Pool.Query(ctx, `
		SELECT r.user_id, r.company_id, r.last_accessed_at
		FROM company_access_restrictions r
		WHERE r.is_active
		  AND (r.last_accessed_at IS NULL OR r.last_accessed_at < $1)
		ORDER BY r.user_id, r.company_id`, cutoff)
	if err != nil {
		t.Logger.Error("restriction report", slog.Any("error", err))
		return tracker.End(err)
	}
	defer rows.Close()

	stale := 0
	for rows.Next() {
		var (
			userID    int64
			companyID int64
			lastSeen  *time.Time
		)
		if err := rows.Scan(&userID, &companyID, &lastSeen); err != nil {
			return tracker.End(err)
		}
		attrs := []any{
			slog.Int64("user_id", userID),
			slog.Int64("company_id", companyID),
		}
		if lastSeen != nil {
			attrs = append(attrs, slog.Time("last_accessed_at", *lastSeen))
		}
		t.Logger.Warn("stale company access grant", attrs...)
		stale++
	}
	if err := rows.Err(); err != nil {
		return tracker.End(err)
	}
	t.Logger.Info("restriction report complete",
		slog.Int("stale", stale),
		slog.Int("cutoff_days", days))
	return tracker.End(nil)
}
