// Package worker runs a handler over a docqueue.Queue with bounded parallelism.
//
// A Processor claims messages on a poll interval and, after every settled
// message, claims again right away, so a backlog drains as fast as the handler
// allows while the interval only paces discovery of new work.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/docqueue/docqueue"
	"github.com/rise-and-shine/docqueue/observability/logger"
	"golang.org/x/sync/semaphore"
)

// Handler processes one message. Returning nil acks it; returning an error or
// panicking releases it for a retry or, once the budget is spent, dead-letters it.
type Handler func(ctx context.Context, msg *docqueue.Message) error

// Processor drives a Handler over a Queue.
type Processor struct {
	queue  *docqueue.Queue
	opts   options
	logger logger.Logger

	// mu guards everything below except running and wg.
	mu        sync.RWMutex
	handler   handleFunc
	sem       *semaphore.Weighted
	observers []Observer
	active    bool
	loopCtx   context.Context //nolint:containedctx // lifetime of one Start/Stop cycle
	cancel    context.CancelFunc

	running atomic.Int64
	wg      sync.WaitGroup
}

// New creates a Processor over q. It does nothing until Process is called.
func New(q *docqueue.Queue, opts ...Option) *Processor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	l := o.logger
	if l == nil {
		l = logger.Named("docqueue.worker")
	}

	return &Processor{
		queue:  q,
		opts:   o,
		logger: l.With("queue", q.Name()),
	}
}

// Subscribe registers an observer for processing events.
func (p *Processor) Subscribe(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.observers = append(p.observers, o)
}

// Process registers h and starts the loop with at most parallelism handlers
// running at once. A parallelism of 0 means 1. It can be called only once.
func (p *Processor) Process(ctx context.Context, parallelism int, h Handler) error {
	if h == nil {
		return errx.New("[worker]: handler is required",
			errx.WithCode(docqueue.CodeInvalidArgument),
			errx.WithType(errx.T_Validation),
		)
	}
	if parallelism < 0 {
		return errx.New("[worker]: parallelism must not be negative",
			errx.WithCode(docqueue.CodeInvalidArgument),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"parallelism": parallelism}),
		)
	}
	if p.opts.pollInterval <= 0 {
		return errx.New("[worker]: poll interval must be positive",
			errx.WithCode(docqueue.CodeInvalidArgument),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"poll_interval": p.opts.pollInterval.String()}),
		)
	}
	if parallelism == 0 {
		parallelism = 1
	}

	p.mu.Lock()
	if p.handler != nil {
		p.mu.Unlock()
		return errx.New("[worker]: handler already registered",
			errx.WithCode(docqueue.CodeAlreadyConfigured),
			errx.WithType(errx.T_Conflict),
			errx.WithDetails(errx.D{"queue": p.queue.Name()}),
		)
	}
	p.handler = p.buildProcessChain(h)
	p.sem = semaphore.NewWeighted(int64(parallelism))
	p.mu.Unlock()

	p.logger.With("parallelism", parallelism).Info("[worker]: handler registered")

	return errx.Wrap(p.Start(ctx))
}

// Start arms the poll loop. It is a no-op when the loop is already running and
// is used to resume after Stop or after the ctx of an earlier Start ended.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handler == nil {
		return errx.New("[worker]: no handler registered, call Process first",
			errx.WithCode(docqueue.CodeInvalidArgument),
			errx.WithType(errx.T_Validation),
		)
	}
	if p.active {
		return nil
	}

	p.loopCtx, p.cancel = context.WithCancel(ctx)
	p.active = true

	p.wg.Add(1)
	go p.loop(p.loopCtx)

	return nil
}

// Stop halts polling and waits until every running handler has settled or ctx
// ends. No message is claimed after Stop returns.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.active {
		p.active = false
		p.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("[worker]: stopped")
		return nil
	case <-ctx.Done():
		return errx.Wrap(ctx.Err(), errx.WithDetails(errx.D{"running": p.Running()}))
	}
}

// Running returns the number of handlers currently executing.
func (p *Processor) Running() int {
	return int(p.running.Load())
}

func (p *Processor) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.opts.pollInterval)
	defer ticker.Stop()

	p.drain()

	for {
		select {
		case <-ctx.Done():
			p.disarm(ctx)
			return
		case <-ticker.C:
			p.drain()
		}
	}
}

// disarm marks the processor stopped when ctx, the context of the current
// loop, ended without Stop, so a later Start re-arms it.
func (p *Processor) disarm(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active && p.loopCtx == ctx {
		p.active = false
		p.cancel()
		p.logger.Info("[worker]: context ended, polling stopped")
	}
}

// drain claims until the parallelism limit is reached or the queue is empty.
func (p *Processor) drain() {
	for p.claimOne() {
	}
}

// claimOne claims a single message and starts its handler. It reports whether
// another claim may succeed.
func (p *Processor) claimOne() bool {
	if !p.sem.TryAcquire(1) {
		return false
	}

	// The read lock is held across the claim so that Stop cannot slip in
	// between the active check and the claim.
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.active {
		p.sem.Release(1)
		return false
	}
	ctx := p.loopCtx

	msg, err := p.queue.Get(ctx, p.leaseOptions()...)
	if err != nil {
		p.sem.Release(1)
		if ctx.Err() == nil {
			p.logger.Errorx(errx.Wrap(err))
		}
		return false
	}
	if msg == nil {
		p.sem.Release(1)
		return false
	}

	p.wg.Add(1)
	p.running.Add(1)
	go p.settle(context.WithoutCancel(ctx), msg, p.handler)

	return true
}

func (p *Processor) settle(ctx context.Context, msg *docqueue.Message, handle handleFunc) {
	defer p.wg.Done()
	defer p.drain()
	defer p.sem.Release(1)
	defer p.running.Add(-1)

	err := handle(ctx, msg)
	if err == nil {
		_, err = p.queue.Ack(ctx, msg.Ack)
		if err != nil {
			p.settleFailed(msg, "ack", err)
			return
		}
		p.emit(func(o Observer) { o.OnSucceeded(msg) })
		return
	}

	if p.queue.HasDeadLetter() && msg.Tries >= p.queue.MaxRetries() {
		p.emit(func(o Observer) { o.OnFailed(msg, err) })
		return
	}

	_, failErr := p.queue.Fail(ctx, msg.Ack)
	if failErr != nil {
		p.settleFailed(msg, "fail", failErr)
		return
	}
	p.emit(func(o Observer) { o.OnRetrying(msg, err) })
}

// settleFailed handles an ack or fail that did not go through. An unknown ack
// means the lease expired and another worker owns the message now.
func (p *Processor) settleFailed(msg *docqueue.Message, op string, err error) {
	l := p.logger.With("message_id", msg.ID, "tries", msg.Tries, "operation", op)
	if errx.IsCodeIn(err, docqueue.CodeUnknownAck) {
		l.Warn("[worker]: lease lost before settling, message abandoned")
		return
	}
	l.Errorx(errx.Wrap(err))
}

func (p *Processor) emit(call func(Observer)) {
	p.mu.RLock()
	observers := append([]Observer(nil), p.observers...)
	p.mu.RUnlock()

	for _, o := range observers {
		p.notify(o, call)
	}
}

func (p *Processor) notify(o Observer, call func(Observer)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.With("recover", r).Error("[worker]: observer panicked")
		}
	}()
	call(o)
}

func (p *Processor) leaseOptions() []docqueue.LeaseOption {
	if p.opts.visibility <= 0 {
		return nil
	}
	return []docqueue.LeaseOption{docqueue.WithVisibility(p.opts.visibility)}
}
