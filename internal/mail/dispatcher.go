package mail

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/metrics"
)

const (
	DefaultQueueSize = 100
	maxSendAttempts  = 5
	sendTimeout      = 30 * time.Second
)

// Dispatcher sends mail on a background worker. Enqueue never blocks the
// caller; delivery failures are retried with exponential backoff, then logged.
type Dispatcher struct {
	sender     Sender
	queue      chan *Message
	logger     *logging.Logger
	newBackOff func() backoff.BackOff

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, queueSize int, logger *logging.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		sender:     sender,
		queue:      make(chan *Message, queueSize),
		logger:     logger.Named("mail"),
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return backoff.WithMaxRetries(b, maxSendAttempts-1)
}

// Start launches the worker. Call once.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for msg := range d.queue {
			d.deliver(msg)
		}
	}()
}

// Enqueue schedules msg for delivery and reports whether it was accepted
func (d *Dispatcher) Enqueue(ctx context.Context, msg *Message) bool {
	if msg == nil {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.MailDispatch.WithLabelValues("dropped").Inc()
		d.logger.Warn(ctx, "mail dispatcher stopped, message dropped", zap.String("to", msg.To))
		return false
	}

	select {
	case d.queue <- msg:
		return true
	default:
		metrics.MailDispatch.WithLabelValues("dropped").Inc()
		d.logger.Warn(ctx, "mail queue full, message dropped",
			zap.String("to", msg.To), zap.String("subject", msg.Subject))
		return false
	}
}

func (d *Dispatcher) deliver(msg *Message) {
	ctx := context.Background()
	attempts := 0

	op := func() error {
		attempts++
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		return d.sender.Send(sendCtx, msg)
	}
	notify := func(err error, wait time.Duration) {
		d.logger.Warn(ctx, "mail send failed, retrying",
			zap.String("to", msg.To), zap.Int("attempt", attempts), zap.Duration("wait", wait), zap.Error(err))
	}

	if err := backoff.RetryNotify(op, d.newBackOff(), notify); err != nil {
		metrics.MailDispatch.WithLabelValues("failed").Inc()
		d.logger.Error(ctx, "mail delivery failed",
			zap.String("to", msg.To), zap.String("subject", msg.Subject), zap.Int("attempts", attempts), zap.Error(err))
		return
	}
	metrics.MailDispatch.WithLabelValues("sent").Inc()
	d.logger.Info(ctx, "mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
}

// Stop refuses new messages and waits for the queue to drain or ctx to expire
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
