package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/telhawk-systems/hecrelay/common/logging"
	"github.com/telhawk-systems/hecrelay/internal/models"
)

// BatchSender posts one batch to a relay.
type BatchSender interface {
	SendBatch(ctx context.Context, token string, batch any, compress bool) (*models.BatchResponse, error)
}

// Config controls a seeding run.
type Config struct {
	Token     string
	VIP       string
	Count     int
	BatchSize int
	Types     []string
	Interval  time.Duration
	Gzip      bool
	Seed      int64
}

// Validate reports the first missing or unsupported setting.
func (c Config) Validate() error {
	if c.Token == "" {
		return errors.New("token is required")
	}
	if c.VIP == "" {
		return errors.New("vip is required")
	}
	if c.Count < 1 {
		return errors.New("count must be positive")
	}
	if c.BatchSize < 1 {
		return errors.New("batch size must be positive")
	}
	if len(c.Types) == 0 {
		return errors.New("at least one event type is required")
	}
	for _, t := range c.Types {
		if t != "syslog" && t != "snmp" {
			return fmt.Errorf("unsupported event type %q", t)
		}
	}
	return nil
}

// Summary totals the relay reports of every batch of a run.
type Summary struct {
	Batches     int
	FailedPosts int
	Report      models.DispatchReport
}

// Runner generates events and posts them through a BatchSender.
type Runner struct {
	config Config
	sender BatchSender
	gen    *Generator
	logger *logging.Logger
}

// NewRunner validates cfg and returns a Runner seeded from cfg.Seed.
func NewRunner(cfg Config, sender BatchSender, logger *logging.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		config: cfg,
		sender: sender,
		gen:    NewGenerator(cfg.VIP, cfg.Seed),
		logger: logger,
	}, nil
}

// Run generates Count events and posts them in batches. A failed post is
// logged and counted; the run continues with the next batch.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	batch := make([]Event, 0, r.config.BatchSize)

	for i := 0; i < r.config.Count; i++ {
		event, err := r.gen.Generate(r.gen.PickType(r.config.Types))
		if err != nil {
			return summary, err
		}
		batch = append(batch, event)

		if len(batch) >= r.config.BatchSize || i == r.config.Count-1 {
			r.post(ctx, batch, &summary)
			batch = batch[:0]

			if err := ctx.Err(); err != nil {
				return summary, err
			}
			if r.config.Interval > 0 && i < r.config.Count-1 {
				select {
				case <-ctx.Done():
					return summary, ctx.Err()
				case <-time.After(r.config.Interval):
				}
			}
		}
	}

	return summary, nil
}

func (r *Runner) post(ctx context.Context, batch []Event, summary *Summary) {
	summary.Batches++
	resp, err := r.sender.SendBatch(ctx, r.config.Token, batch, r.config.Gzip)
	if err != nil {
		summary.FailedPosts++
		r.logger.ErrorContext(ctx, "failed to send batch",
			"batch", summary.Batches,
			"events", len(batch),
			logging.Error(err),
		)
		return
	}

	summary.Report.Total += resp.Total
	summary.Report.Succeeded += resp.Succeeded
	summary.Report.Skipped += resp.Skipped
	summary.Report.Failed += resp.Failed
	summary.Report.Cancelled += resp.Cancelled

	r.logger.DebugContext(ctx, "batch sent",
		"batch", summary.Batches,
		"events", len(batch),
		"succeeded", resp.Succeeded,
	)
}
