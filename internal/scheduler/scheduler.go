package scheduler

import (
	"context"
	"fmt"
	"go-cms-app/internal/logger"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single run of any maintenance job.
const jobTimeout = time.Minute

// AuditPruner deletes audit entries older than a retention window.
type AuditPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// CachePurger drops expired cache entries.
type CachePurger interface {
	Purge(ctx context.Context) (int64, error)
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron *cron.Cron
	log  logger.Logger
}

// New creates a Scheduler. Jobs do not run until Start is called.
func New(log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:  log,
	}
}

// AddAuditPrune schedules pruning of audit entries older than retention.
// A non-positive retention keeps the log forever and schedules nothing.
func (s *Scheduler) AddAuditPrune(spec string, p AuditPruner, retention time.Duration) error {
	if retention <= 0 {
		s.log.Info("Audit retention disabled; audit log is kept forever")
		return nil
	}
	return s.add(spec, &auditPruneJob{pruner: p, retention: retention, log: s.log})
}

// AddCachePurge schedules removal of expired cache entries.
func (s *Scheduler) AddCachePurge(spec string, c CachePurger) error {
	return s.add(spec, &cachePurgeJob{purger: c, log: s.log})
}

func (s *Scheduler) add(spec string, job cron.Job) error {
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stopped before running jobs finished")
	}
}

type auditPruneJob struct {
	pruner    AuditPruner
	retention time.Duration
	log       logger.Logger
}

func (j *auditPruneJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := j.pruner.Prune(ctx, j.retention)
	if err != nil {
		j.log.Error(err, "Failed to prune audit log")
		return
	}
	j.log.Info(fmt.Sprintf("Pruned %d audit log entries", n))
}

type cachePurgeJob struct {
	purger CachePurger
	log    logger.Logger
}

func (j *cachePurgeJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := j.purger.Purge(ctx)
	if err != nil {
		j.log.Error(err, "Failed to purge cache")
		return
	}
	j.log.Debug(fmt.Sprintf("Purged %d expired cache entries", n))
}
