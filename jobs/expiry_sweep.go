package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/tablekeep/tablekeep/internal/jobs"
)

// SweepStore abstracts the assignment rows the sweep touches.
type SweepStore interface {
	// FlagExpired marks active assignments whose validity ended before
	// the cutoff as inactive and returns the affected ids.
	FlagExpired(ctx context.Context, cutoff time.Time) ([]int64, error)
}

// PGSweepStore implements SweepStore against PostgreSQL.
type PGSweepStore struct {
	pool *pgxpool.Pool
}

// NewPGSweepStore constructs a PostgreSQL-backed sweep store.
func NewPGSweepStore(pool *pgxpool.Pool) *PGSweepStore {
	return &PGSweepStore{pool: pool}
}

// FlagExpired implements SweepStore.
func (s *PGSweepStore) FlagExpired(ctx context.Context, cutoff time.Time) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE role_assignments
		SET is_active = FALSE
		WHERE is_active = TRUE AND valid_until IS NOT NULL AND valid_until < $1
		RETURNING id`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Sweeper runs the expiry sweep. Resolution already ignores expired
// assignments, so the sweep is reporting hygiene: it keeps is_active
// aligned with reality for listings that read the flag directly.
type Sweeper struct {
	store   SweepStore
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
	grace   time.Duration
	now     func() time.Time
}

// NewSweeper constructs a Sweeper. grace is the default applied when a
// task payload does not carry one.
func NewSweeper(store SweepStore, metrics *jobmetrics.Metrics, logger *slog.Logger, grace time.Duration) *Sweeper {
	return &Sweeper{store: store, metrics: metrics, logger: logger, grace: grace, now: time.Now}
}

// Run executes one sweep pass and returns the number of flagged rows.
func (s *Sweeper) Run(ctx context.Context, grace time.Duration) (int, error) {
	if grace <= 0 {
		grace = s.grace
	}
	tracker := s.metrics.Track("expiry_sweep")
	cutoff := s.now().Add(-grace)
	ids, err := s.store.FlagExpired(ctx, cutoff)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("expiry sweep failed", slog.Any("error", err))
		}
		return 0, tracker.End(err)
	}
	s.metrics.AddExpired(len(ids))
	if s.logger != nil {
		s.logger.Info("expiry sweep complete",
			slog.Int("flagged", len(ids)),
			slog.Time("cutoff", cutoff))
	}
	return len(ids), tracker.End(nil)
}

// HandleTask processes TaskTypeExpirySweep tasks.
func (s *Sweeper) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload ExpirySweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	_, err := s.Run(ctx, payload.Grace)
	return err
}
