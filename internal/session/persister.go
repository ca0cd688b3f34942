package session

import (
	"context"
	"sync"
	"time"

	"github.com/iwvelando/installment-calc/internal/store"
	"github.com/iwvelando/installment-calc/pkg/loans"
	"go.uber.org/zap"
)

// persister writes records in the background. Pending writes coalesce so only
// the latest record is written; a slow store never blocks an edit.
type persister struct {
	logger  *zap.Logger
	store   store.Store
	key     string
	timeout time.Duration

	mu      sync.Mutex
	pending *loans.Inputs
	idle    *sync.Cond
	busy    bool
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func newPersister(logger *zap.Logger, s store.Store, key string, timeout time.Duration) *persister {
	p := &persister{
		logger:  logger,
		store:   s,
		key:     key,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	p.idle = sync.NewCond(&p.mu)
	go p.run()
	return p
}

// enqueue schedules in to be written, replacing any record not yet written.
func (p *persister) enqueue(in loans.Inputs) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.pending = &in
	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.mu.Unlock()
}

// flush blocks until every enqueued record has been written.
func (p *persister) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.pending != nil || p.busy {
		p.idle.Wait()
	}
}

// close flushes and stops the writer.
func (p *persister) close() {
	p.flush()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.wake)
	p.mu.Unlock()
	<-p.done
}

func (p *persister) run() {
	defer close(p.done)
	for range p.wake {
		for {
			p.mu.Lock()
			next := p.pending
			p.pending = nil
			p.busy = next != nil
			if next == nil {
				p.idle.Broadcast()
				p.mu.Unlock()
				break
			}
			p.mu.Unlock()

			p.write(*next)

			p.mu.Lock()
			p.busy = false
			p.idle.Broadcast()
			p.mu.Unlock()
		}
	}
}

func (p *persister) write(in loans.Inputs) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := store.SaveInputs(ctx, p.store, p.key, in); err != nil {
		p.logger.Warn("failed to persist loan record",
			zap.String("op", "session.persister.write"),
			zap.String("key", p.key),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("persisted loan record",
		zap.String("op", "session.persister.write"),
		zap.String("key", p.key),
	)
}
