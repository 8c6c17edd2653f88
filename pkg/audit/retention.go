package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig controls pruning of old records.
type RetentionConfig struct {
	// Days is the retention window; zero disables pruning.
	Days int

	// Schedule is a standard cron expression, e.g. "0 3 * * *" for
	// daily at 3 AM. Empty disables the scheduler.
	Schedule string
}

// Pruner deletes records older than the retention window on a cron
// schedule.
type Pruner struct {
	storage Storage
	config  RetentionConfig
	cron    *cron.Cron
	logger  *slog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewPruner creates a pruner; Start must be called to begin scheduling.
func NewPruner(storage Storage, config RetentionConfig) *Pruner {
	return &Pruner{
		storage: storage,
		config:  config,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "audit.retention"),
		now:     time.Now,
	}
}

// Start schedules pruning runs. It is a no-op when retention or the
// schedule is not configured.
func (p *Pruner) Start() error {
	if p.config.Days <= 0 || p.config.Schedule == "" {
		p.logger.Info("audit retention not configured, pruner idle")
		return nil
	}

	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", p.config.Schedule, err)
	}

	if _, err := p.cron.AddFunc(p.config.Schedule, func() {
		if _, err := p.Prune(context.Background()); err != nil {
			p.logger.Error("scheduled prune failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.logger.Info("audit retention scheduler started",
		"schedule", p.config.Schedule,
		"retention_days", p.config.Days,
	)
	return nil
}

// Stop halts the scheduler, waiting for an in-flight run.
func (p *Pruner) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}

// Prune deletes records older than the retention window and returns the
// number removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.Days)

	deleted, err := p.storage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		p.logger.Info("pruned audit records", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
