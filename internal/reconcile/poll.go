package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/domain"
)

// Poll strategy defaults.
const (
	DefaultPollBaseInterval = 1000 * time.Millisecond
	DefaultPollMultiplier   = 1.1
	DefaultPollMaxInterval  = 10000 * time.Millisecond
	DefaultPollMaxAttempts  = 14
	DefaultPollTotalTimeout = 29000 * time.Millisecond
)

// PollConfig bounds the polling loop. Zero values fall back to the
// documented defaults.
type PollConfig struct {
	BaseInterval time.Duration `mapstructure:"base_interval"`
	Multiplier   float64       `mapstructure:"multiplier"`
	MaxInterval  time.Duration `mapstructure:"max_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	TotalTimeout time.Duration `mapstructure:"total_timeout"`
}

func (c PollConfig) withDefaults() PollConfig {
	if c.BaseInterval <= 0 {
		c.BaseInterval = DefaultPollBaseInterval
	}
	if c.Multiplier <= 0 {
		c.Multiplier = DefaultPollMultiplier
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultPollMaxInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultPollMaxAttempts
	}
	if c.TotalTimeout <= 0 {
		c.TotalTimeout = DefaultPollTotalTimeout
	}
	return c
}

// NextInterval returns the backoff interval following the given one:
// multiplied by the configured factor, capped at the configured maximum.
func (c PollConfig) NextInterval(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * c.Multiplier)
	if next > c.MaxInterval {
		return c.MaxInterval
	}
	return next
}

// PollStrategy reconciles by repeatedly fetching the conversation until
// the message following the submitted user message arrives completed.
type PollStrategy struct {
	fetcher ConversationFetcher
	cfg     PollConfig
	logger  *zap.Logger
}

// NewPollStrategy creates a polling strategy.
func NewPollStrategy(fetcher ConversationFetcher, cfg PollConfig, logger *zap.Logger) *PollStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollStrategy{fetcher: fetcher, cfg: cfg.withDefaults(), logger: logger}
}

// Await polls for the assistant reply. The loop is bounded by two
// independent clocks: an attempt counter and a wall-clock total timeout
// checked before every attempt. Transient fetch errors count as ordinary
// unsuccessful attempts and never abort the loop early.
func (p *PollStrategy) Await(ctx context.Context, receipt domain.SubmitReceipt) (*Result, error) {
	start := time.Now()
	interval := p.cfg.BaseInterval

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if time.Since(start) >= p.cfg.TotalTimeout {
			p.logger.Info("reply polling hit total timeout",
				zap.String("conversation_id", receipt.ConversationID),
				zap.Int("attempts", attempt-1),
			)
			return nil, domain.ErrReconcileTimeout
		}

		conv, err := p.fetcher.FetchConversation(ctx, receipt.ConversationID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Debug("conversation fetch failed, will retry",
				zap.String("conversation_id", receipt.ConversationID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		} else {
			next, found := conv.MessageAfter(receipt.MessageID)
			if !found {
				// The submitted message is gone: inconsistent upstream
				// state, not worth waiting on.
				return nil, domain.ErrConversationGone
			}
			if next != nil && next.Completed() {
				return &Result{Conversation: conv, Reply: next}, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		interval = p.cfg.NextInterval(interval)
	}

	p.logger.Info("reply polling exhausted attempts",
		zap.String("conversation_id", receipt.ConversationID),
		zap.Int("attempts", p.cfg.MaxAttempts),
	)
	return nil, domain.ErrReconcileTimeout
}
