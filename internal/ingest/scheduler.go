package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/policygate/policygate/internal/domain"
)

const scheduledRunTimeout = 5 * time.Minute

// Scheduler re-runs ingestion on a cron schedule so that policy corpora
// backed by changing sources stay current. Content-addressed ids make each
// run idempotent over unchanged text.
type Scheduler struct {
	ingestor *Ingestor
	sources  []domain.PolicySource
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewScheduler(ingestor *Ingestor, sources []domain.PolicySource, schedule string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		ingestor: ingestor,
		sources:  sources,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start validates the cron expression and begins scheduled runs.
func (s *Scheduler) Start() error {
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid ingest schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), scheduledRunTimeout)
		defer cancel()

		n, err := s.ingestor.IngestAll(ctx, s.sources)
		if err != nil {
			s.logger.Error("scheduled ingestion failed", zap.Int("upserted", n), zap.Error(err))
			return
		}
		s.logger.Info("scheduled ingestion complete", zap.Int("upserted", n))
	})
	if err != nil {
		return fmt.Errorf("register ingest job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("ingest scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the schedule and waits for any in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
