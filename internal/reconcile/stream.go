package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/chatclient"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/classify"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/domain"
)

// Stream strategy defaults.
const (
	DefaultStreamTimeout                = 120 * time.Second
	DefaultStreamKeepaliveTimeout       = 90 * time.Second
	DefaultStreamKeepaliveCheckInterval = 10 * time.Second
)

// StreamConfig bounds the event subscription. Zero values fall back to
// the documented defaults.
type StreamConfig struct {
	Timeout                time.Duration `mapstructure:"timeout"`
	KeepaliveTimeout       time.Duration `mapstructure:"keepalive_timeout"`
	KeepaliveCheckInterval time.Duration `mapstructure:"keepalive_check_interval"`
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultStreamTimeout
	}
	if c.KeepaliveTimeout <= 0 {
		c.KeepaliveTimeout = DefaultStreamKeepaliveTimeout
	}
	if c.KeepaliveCheckInterval <= 0 {
		c.KeepaliveCheckInterval = DefaultStreamKeepaliveCheckInterval
	}
	return c
}

// StreamStrategy reconciles by subscribing to the backend's status event
// stream for the pending message.
type StreamStrategy struct {
	streams StatusStreamOpener
	fetcher ConversationFetcher
	cfg     StreamConfig
	logger  *zap.Logger
}

// NewStreamStrategy creates a streaming strategy.
func NewStreamStrategy(streams StatusStreamOpener, fetcher ConversationFetcher, cfg StreamConfig, logger *zap.Logger) *StreamStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamStrategy{streams: streams, fetcher: fetcher, cfg: cfg.withDefaults(), logger: logger}
}

type outcome struct {
	res *Result
	err error
}

// Await subscribes to the status stream and waits for a terminal event.
// Two timers guard the subscription: an absolute deadline from start and
// an inactivity deadline measured from the most recent event of any kind,
// checked on a periodic tick. Exactly one terminal outcome wins; the
// subscription and both timers are torn down on every exit path.
func (s *StreamStrategy) Await(ctx context.Context, receipt domain.SubmitReceipt) (*Result, error) {
	reader, closeStream, err := s.streams.OpenStatusStream(ctx, receipt.MessageID)
	if err != nil {
		return nil, err
	}
	defer closeStream()

	done := make(chan outcome, 1)
	var once sync.Once
	// resolve reports whether this call won, so the losing code path can
	// skip its side effects.
	resolve := func(o outcome) bool {
		won := false
		once.Do(func() {
			done <- o
			won = true
		})
		return won
	}

	var mu sync.Mutex
	lastEvent := time.Now()
	touch := func() {
		mu.Lock()
		lastEvent = time.Now()
		mu.Unlock()
	}
	sinceLastEvent := func() time.Duration {
		mu.Lock()
		defer mu.Unlock()
		return time.Since(lastEvent)
	}

	go s.consumeEvents(ctx, reader, receipt, touch, resolve)

	deadline := time.NewTimer(s.cfg.Timeout)
	defer deadline.Stop()
	keepaliveTick := time.NewTicker(s.cfg.KeepaliveCheckInterval)
	defer keepaliveTick.Stop()

	for {
		select {
		case o := <-done:
			return o.res, o.err
		case <-deadline.C:
			resolve(outcome{err: fmt.Errorf("status stream deadline exceeded: %w", domain.ErrReconcileTimeout)})
			o := <-done
			return o.res, o.err
		case <-keepaliveTick.C:
			if sinceLastEvent() < s.cfg.KeepaliveTimeout {
				continue
			}
			resolve(outcome{err: fmt.Errorf("status stream went quiet: %w", domain.ErrReconcileTimeout)})
			o := <-done
			return o.res, o.err
		case <-ctx.Done():
			resolve(outcome{err: ctx.Err()})
			o := <-done
			return o.res, o.err
		}
	}
}

// consumeEvents reads the subscription until a terminal event, a
// transport error, or a lost race against one of the timers.
func (s *StreamStrategy) consumeEvents(ctx context.Context, reader *chatclient.SSEReader, receipt domain.SubmitReceipt, touch func(), resolve func(outcome) bool) {
	for {
		event, err := reader.ReadEvent()
		if err != nil {
			// Transport failure, or the teardown closing the body
			// under us after another outcome already won.
			resolve(outcome{err: fmt.Errorf("status stream transport failed: %w", err)})
			return
		}
		touch()

		switch event.Name {
		case "keepalive":
			// Inactivity clock already reset; nothing else to do.
		case "status":
			status, err := chatclient.ParseStatusEvent(event.Data)
			if err != nil {
				s.logger.Warn("malformed status event payload, ignoring",
					zap.String("message_id", receipt.MessageID),
					zap.Error(err),
				)
				continue
			}
			switch {
			case status.Succeeded():
				res, err := s.materialize(ctx, receipt)
				resolve(outcome{res: res, err: err})
				return
			case status.Failed():
				resolve(outcome{err: &classify.UpstreamError{
					Status:  status.StatusCode,
					Message: status.ErrorMessage,
				}})
				return
			}
			// Non-terminal status: keep waiting.
		}
	}
}

// materialize fetches the reconciled conversation once the stream reports
// completion.
func (s *StreamStrategy) materialize(ctx context.Context, receipt domain.SubmitReceipt) (*Result, error) {
	conv, err := s.fetcher.FetchConversation(ctx, receipt.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("reconciled conversation fetch failed: %w", err)
	}
	reply, found := conv.MessageAfter(receipt.MessageID)
	if !found {
		return nil, domain.ErrConversationGone
	}
	return &Result{Conversation: conv, Reply: reply}, nil
}
