package docstore

import (
	"context"
	"sync"

	"github.com/dvloznov/lifeledger/internal/logger"
)

// Runner executes a query for a subscription.
type Runner func(ctx context.Context, q Query) ([]*Document, error)

// Notifier fans write notifications out to live subscriptions. Each
// subscription re-runs its query on its own goroutine; notifications that
// arrive while a delivery is in flight collapse into one re-run.
type Notifier struct {
	mu     sync.Mutex
	subs   map[*subscription]struct{}
	closed bool
	wg     sync.WaitGroup
}

type subscription struct {
	query  Query
	kick   chan struct{}
	cancel context.CancelFunc
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[*subscription]struct{})}
}

// Subscribe runs q once synchronously, delivers the result, and keeps
// delivering fresh results after each Publish touching q.Collection. The
// subscription is registered before the first run, so a write that commits
// while that run is in flight still triggers a re-run.
func (n *Notifier) Subscribe(ctx context.Context, q Query, run Runner, fn func([]*Document)) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{query: q, kick: make(chan struct{}, 1), cancel: cancel}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		cancel()
		return func() {}, nil
	}
	n.subs[sub] = struct{}{}
	n.mu.Unlock()

	docs, err := run(ctx, q)
	if err != nil {
		n.remove(sub)
		cancel()
		return nil, err
	}

	n.mu.Lock()
	if n.closed {
		delete(n.subs, sub)
		n.mu.Unlock()
		cancel()
		return func() {}, nil
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go n.loop(subCtx, sub, run, fn, docs)

	return func() {
		cancel()
	}, nil
}

func (n *Notifier) loop(ctx context.Context, sub *subscription, run Runner, fn func([]*Document), first []*Document) {
	defer n.wg.Done()
	defer n.remove(sub)

	log := logger.FromContext(ctx)
	fn(first)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.kick:
		}
		docs, err := run(ctx, sub.query)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("collection", sub.query.Collection).Msg("Subscription query failed")
			continue
		}
		if ctx.Err() != nil {
			return
		}
		fn(docs)
	}
}

func (n *Notifier) remove(sub *subscription) {
	n.mu.Lock()
	delete(n.subs, sub)
	n.mu.Unlock()
}

// Publish wakes every subscription on one of the collections.
func (n *Notifier) Publish(collections ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for sub := range n.subs {
		for _, c := range collections {
			if sub.query.Collection != c {
				continue
			}
			select {
			case sub.kick <- struct{}{}:
			default:
			}
			break
		}
	}
}

// Len returns the number of live subscriptions.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Close cancels every subscription and waits for their goroutines.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	for sub := range n.subs {
		sub.cancel()
	}
	n.mu.Unlock()
	n.wg.Wait()
}
