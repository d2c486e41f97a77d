package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/factorlab/pkg/logger"
)

// Execer is the subset of pgxpool.Pool the retention job needs
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RetentionJob deletes stored factor values older than the retention window
type RetentionJob struct {
	db        Execer
	retention time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewRetentionJob creates a new retention job
func NewRetentionJob(db Execer, retention time.Duration, log *logger.Logger) *RetentionJob {
	return &RetentionJob{
		db:        db,
		retention: retention,
		logger:    log,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "factor_retention"
}

// Schedule returns the cron schedule (Sunday 03:00)
func (j *RetentionJob) Schedule() string {
	return "0 0 3 * * 0"
}

// Run executes the cleanup
func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)

	tag, err := j.db.Exec(ctx, `DELETE FROM factors.factor_values WHERE calc_date < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("delete factor values: %w", err)
	}

	if n := tag.RowsAffected(); n > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": n,
			"cutoff":  cutoff.Format("2006-01-02"),
		}).Info("Factor retention completed")
	}
	return nil
}
