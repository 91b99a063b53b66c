// Package likes keeps an optimistic local mirror of the user's liked listings.
//
// Each listing has its own state machine:
//
//	Unliked --Like--> PendingLike --confirmed--> Liked
//	                  PendingLike --rejected---> Unliked (error reported)
//
// and symmetrically for Unlike. The local state changes before the request is sent and
// is rolled back only after the failure is observed. Requests for one listing are
// applied by a single worker, one at a time, until the server matches the last
// requested state, so the last action wins. Different listings proceed independently.
package likes

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/sublease/internal/errs"
)

// Backend performs the server-side like and unlike. *listings.Client implements it.
type Backend interface {
	Like(ctx context.Context, id int64) error
	Unlike(ctx context.Context, id int64) error
}

// State is the local state of one listing.
type State int

const (
	Unliked State = iota
	PendingLike
	Liked
	PendingUnlike
)

func (s State) String() string {
	switch s {
	case Unliked:
		return "unliked"
	case PendingLike:
		return "pending-like"
	case Liked:
		return "liked"
	case PendingUnlike:
		return "pending-unlike"
	}
	return "unknown"
}

// ShownLiked reports whether the listing should be displayed as liked.
func (s State) ShownLiked() bool { return s == Liked || s == PendingLike }

// Event reports a state transition. Err is set on rollback.
type Event struct {
	ListingID int64
	State     State
	Err       error
}

type entry struct {
	confirmed bool // last state the server acknowledged
	desired   bool // last state the user asked for
	running   bool
	waiters   []chan error
}

func (e *entry) state() State {
	switch {
	case e.desired == e.confirmed && e.desired:
		return Liked
	case e.desired == e.confirmed:
		return Unliked
	case e.desired:
		return PendingLike
	}
	return PendingUnlike
}

// Manager is the optimistic like/unlike overlay. It is safe for concurrent use.
type Manager struct {
	backend Backend
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[int64]*entry
	subs    map[int]func(Event)
	nextSub int
	queue   []Event
	wake    chan struct{}
	closed  bool
	done    chan struct{}
}

// New returns a Manager with every listing Unliked.
func New(b Backend, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		backend: b,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		entries: map[int64]*entry{},
		subs:    map[int]func(Event){},
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go m.dispatch()
	return m
}

// Seed marks ids as confirmed liked, typically from the server's liked list.
// Listings with requests in flight are left alone.
func (m *Manager) Seed(ids []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		e := m.entry(id)
		if e.running {
			continue
		}
		e.confirmed, e.desired = true, true
	}
}

// State returns the local state of listing id.
func (m *Manager) State(id int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		return e.state()
	}
	return Unliked
}

// Like requests that listing id be liked and waits until the listing settles. A request
// superseded by a later one returns nil once the later one is applied. Cancelling ctx
// stops the wait, not the request.
func (m *Manager) Like(ctx context.Context, id int64) error { return m.request(ctx, id, true) }

// Unlike is the inverse of Like.
func (m *Manager) Unlike(ctx context.Context, id int64) error { return m.request(ctx, id, false) }

// Subscribe registers fn for every transition. Events are delivered in order on one
// goroutine; fn must not block for long. The returned func unsubscribes.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Close abandons pending requests. Waiters get errs.ErrClosed and no event is delivered
// afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.queue = nil
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	close(m.wake)
	<-m.done
}

func (m *Manager) request(ctx context.Context, id int64, want bool) error {
	ch := make(chan error, 1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errs.ErrClosed
	}
	e := m.entry(id)
	prev := e.state()
	e.desired = want
	e.waiters = append(e.waiters, ch)
	if s := e.state(); s != prev {
		m.emit(Event{ListingID: id, State: s})
	}
	if !e.running {
		e.running = true
		m.wg.Add(1)
		go m.run(id, e)
	}
	m.mu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run drives listing id towards its desired state, one request at a time.
func (m *Manager) run(id int64, e *entry) {
	defer m.wg.Done()

	m.mu.Lock()
	for {
		if m.closed {
			m.settle(e, errs.ErrClosed)
			m.mu.Unlock()
			return
		}
		if e.desired == e.confirmed {
			m.settle(e, nil)
			m.mu.Unlock()
			return
		}
		target := e.desired
		m.mu.Unlock()

		var err error
		if target {
			err = m.backend.Like(m.ctx, id)
		} else {
			err = m.backend.Unlike(m.ctx, id)
		}

		m.mu.Lock()
		switch {
		case m.closed:
			// loop settles with ErrClosed
		case err == nil:
			prev := e.state()
			e.confirmed = target
			if s := e.state(); s != prev {
				m.emit(Event{ListingID: id, State: s})
			}
		case e.desired == target:
			m.log.Info("like rolled back", zap.Int64("listing_id", id), zap.Bool("liked", target), zap.Error(err))
			e.desired = e.confirmed
			m.emit(Event{ListingID: id, State: e.state(), Err: err})
			m.settle(e, err)
			m.mu.Unlock()
			return
		default:
			// superseded while in flight; the next iteration sends the newer request
			m.log.Debug("superseded like request failed", zap.Int64("listing_id", id), zap.Error(err))
		}
	}
}

// settle resolves all waiters of e; callers hold m.mu.
func (m *Manager) settle(e *entry, err error) {
	e.running = false
	for _, ch := range e.waiters {
		ch <- err
	}
	e.waiters = nil
}

// entry returns the entry of id, creating it; callers hold m.mu.
func (m *Manager) entry(id int64) *entry {
	e, ok := m.entries[id]
	if !ok {
		e = &entry{}
		m.entries[id] = e
	}
	return e
}

// emit queues ev for delivery; callers hold m.mu.
func (m *Manager) emit(ev Event) {
	if m.closed {
		return
	}
	m.queue = append(m.queue, ev)
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) dispatch() {
	defer close(m.done)
	for range m.wake {
		for {
			m.mu.Lock()
			if m.closed || len(m.queue) == 0 {
				m.mu.Unlock()
				break
			}
			ev := m.queue[0]
			m.queue = m.queue[1:]
			subs := make([]func(Event), 0, len(m.subs))
			for _, fn := range m.subs {
				subs = append(subs, fn)
			}
			m.mu.Unlock()

			for _, fn := range subs {
				fn(ev)
			}
		}
	}
}
