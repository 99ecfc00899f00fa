package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docuflow/docuflow/pkg/metrics"
)

const defaultSendTimeout = 2 * time.Second

type Options struct {
	// Timeout bounds a single send, including a backend that ignores its context.
	Timeout time.Duration
	// Async sends off the caller's goroutine.
	Async bool
}

// BestEffort adapts a Sender into a Publisher. Every failure is logged and
// counted, never returned. Until Start succeeds, and after Close, Publish is
// a no-op.
type BestEffort struct {
	backend string
	dial    DialFunc
	opts    Options
	logger  *zap.Logger

	startOnce sync.Once
	closeOnce sync.Once

	mu       sync.RWMutex
	sender   Sender
	closed   bool
	inflight sync.WaitGroup
}

func NewBestEffort(backend string, dial DialFunc, opts Options, logger *zap.Logger) *BestEffort {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BestEffort{
		backend: backend,
		dial:    dial,
		opts:    opts,
		logger:  logger.With(zap.String("backend", backend)),
	}
}

// Start dials the backend once. Later calls do nothing.
func (p *BestEffort) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		sender, err := p.dial(ctx)
		if err != nil {
			p.logger.Warn("event publisher unavailable, events will be dropped", zap.Error(err))
			return
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = sender.Close()
			return
		}
		p.sender = sender
		p.mu.Unlock()

		p.logger.Info("event publisher connected")
	})
}

func (p *BestEffort) Available() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sender != nil && !p.closed
}

func (p *BestEffort) Publish(ctx context.Context, event WorkflowEvent) {
	payload, err := event.Encode()
	if err != nil {
		p.logger.Warn("failed to encode workflow event", zap.Error(err), zap.String("document_id", event.DocumentID))
		metrics.EventsPublishedTotal.WithLabelValues(p.backend, "failed").Inc()
		return
	}

	p.mu.RLock()
	sender := p.sender
	if sender == nil || p.closed {
		p.mu.RUnlock()
		metrics.EventsPublishedTotal.WithLabelValues(p.backend, "skipped").Inc()
		return
	}
	p.inflight.Add(1)
	p.mu.RUnlock()

	if !p.opts.Async {
		defer p.inflight.Done()
		p.send(ctx, sender, event, payload)
		return
	}

	go func() {
		defer p.inflight.Done()
		p.send(context.WithoutCancel(ctx), sender, event, payload)
	}()
}

func (p *BestEffort) send(ctx context.Context, sender Sender, event WorkflowEvent, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("sender panic: %v", r)
			}
		}()
		done <- sender.Send(ctx, event.DocumentID, payload)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		p.logger.Warn("failed to publish workflow event",
			zap.Error(err),
			zap.String("document_id", event.DocumentID),
			zap.String("action", event.Action),
		)
		metrics.EventsPublishedTotal.WithLabelValues(p.backend, "failed").Inc()
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(p.backend, "sent").Inc()
}

// Close stops accepting events, waits for in-flight sends until ctx is done
// and releases the backend. Errors are logged and suppressed.
func (p *BestEffort) Close(ctx context.Context) {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		sender := p.sender
		p.sender = nil
		p.mu.Unlock()

		drained := make(chan struct{})
		go func() {
			p.inflight.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			p.logger.Warn("gave up waiting for in-flight workflow events", zap.Error(ctx.Err()))
		}

		if sender == nil {
			return
		}
		if err := sender.Close(); err != nil {
			p.logger.Warn("failed to close event publisher", zap.Error(err))
		}
	})
}
