package mail

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrQueueStopped is returned when starting a queue that was already stopped
var ErrQueueStopped = errors.New("mail queue stopped")

// Message is one outgoing mail
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a single message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, msg Message) error

// Send implements Sender
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Stats counts queue outcomes
type Stats struct {
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
}

// QueueOption configures a Queue
type QueueOption func(*Queue)

// WithWorkers sets how many goroutines deliver mail
func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithQueueSize sets the buffer size. Enqueue drops mail once it is full.
func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.size = n
		}
	}
}

// WithMaxAttempts bounds delivery attempts per message
func WithMaxAttempts(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the base delay between attempts. The delay grows
// linearly with the attempt number.
func WithRetryDelay(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d >= 0 {
			q.retryDelay = d
		}
	}
}

// WithSendTimeout bounds a single delivery attempt
func WithSendTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.sendTimeout = d
		}
	}
}

// WithLogger sets the queue logger
func WithLogger(logger *zap.Logger) QueueOption {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// Queue delivers mail in the background with a pool of workers. Enqueue
// never blocks and never reports delivery errors.
type Queue struct {
	sender      Sender
	logger      *zap.Logger
	workers     int
	size        int
	maxAttempts int
	retryDelay  time.Duration
	sendTimeout time.Duration

	jobs chan Message
	wg   sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
	cancel  context.CancelFunc

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewQueue returns a stopped queue delivering through sender
func NewQueue(sender Sender, opts ...QueueOption) *Queue {
	q := &Queue{
		sender:      sender,
		logger:      zap.NewNop(),
		workers:     2,
		size:        100,
		maxAttempts: 3,
		retryDelay:  time.Second,
		sendTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	q.jobs = make(chan Message, q.size)
	return q
}

// Enqueue schedules a mail. It drops the mail with a warning when the
// queue is full or stopped.
func (q *Queue) Enqueue(recipient, subject, bodyHTML string) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop(recipient, subject, "queue stopped")
		return
	}

	select {
	case q.jobs <- Message{To: recipient, Subject: subject, HTML: bodyHTML}:
	default:
		q.drop(recipient, subject, "queue full")
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueStopped
	}
	if q.started {
		return nil
	}

	// workers outlive the start context, Stop cancels them
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.cancel = cancel
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(workerCtx, i)
	}

	q.logger.Info("mail queue started", zap.Int("workers", q.workers), zap.Int("size", q.size))
	return nil
}

// Stop refuses new mail, lets the workers drain the buffer and waits for
// them until ctx is done.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	started := q.started
	cancel := q.cancel
	q.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancel()
		q.logger.Info("mail queue stopped", zap.Int64("sent", q.sent.Load()), zap.Int64("failed", q.failed.Load()))
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return errors.Wrap(ctx.Err(), "mail queue stop")
	}
}

// Stats returns the delivery counters
func (q *Queue) Stats() Stats {
	return Stats{
		Sent:    q.sent.Load(),
		Failed:  q.failed.Load(),
		Dropped: q.dropped.Load(),
	}
}

func (q *Queue) work(ctx context.Context, id int) {
	defer q.wg.Done()
	for msg := range q.jobs {
		q.deliver(ctx, id, msg)
	}
}

func (q *Queue) deliver(ctx context.Context, worker int, msg Message) {
	var err error
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		if err = q.send(ctx, msg); err == nil {
			q.sent.Add(1)
			q.logger.Debug("mail sent",
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject),
				zap.Int("attempt", attempt),
				zap.Int("worker", worker),
			)
			return
		}

		q.logger.Warn("mail delivery failed",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt == q.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			q.failed.Add(1)
			return
		case <-time.After(q.retryDelay * time.Duration(attempt)):
		}
	}

	q.failed.Add(1)
	q.logger.Error("mail dropped after retries",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attempts", q.maxAttempts),
		zap.Error(err),
	)
}

func (q *Queue) send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, q.sendTimeout)
	defer cancel()
	return q.sender.Send(ctx, msg)
}

func (q *Queue) drop(recipient, subject, reason string) {
	q.dropped.Add(1)
	q.logger.Warn("mail dropped",
		zap.String("to", recipient),
		zap.String("subject", subject),
		zap.String("reason", reason),
	)
}
