// Package autopush runs background workers against a Web Push service that
// speaks the autopush WebSocket protocol (hello, register, notification, ack).
package autopush

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/naveenspark/pushenable/internal/platform"
	"github.com/naveenspark/pushenable/pkg/domain"
)

// DefaultServiceURL is Mozilla's public push service.
const DefaultServiceURL = "wss://push.services.mozilla.com/"

// Handler receives push messages delivered to a worker.
type Handler func(domain.PushMessage)

// Registry implements platform.WorkerRegistry. Each registered script gets
// one worker holding one push service connection.
type Registry struct {
	serviceURL   string
	perms        platform.PermissionService
	dialer       *websocket.Dialer
	logger       *zap.Logger
	scripts      map[string]Handler
	pingInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	workers map[string]*Worker // started and not yet stopped
	active  *Worker
	lastErr error         // why the most recent worker stopped
	changed chan struct{} // closed and replaced whenever a worker activates or stops
}

// Option configures a Registry.
type Option func(*Registry)

// WithScript makes scriptPath registrable; h receives its push messages.
func WithScript(scriptPath string, h Handler) Option {
	return func(r *Registry) {
		r.scripts[scriptPath] = h
	}
}

// WithDialer sets the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(r *Registry) {
		r.dialer = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithPingInterval sets the keepalive interval. Zero disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(r *Registry) {
		r.pingInterval = d
	}
}

// NewRegistry creates a registry for serviceURL. perms gates Subscribe.
func NewRegistry(serviceURL string, perms platform.PermissionService, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		serviceURL:   serviceURL,
		perms:        perms,
		dialer:       websocket.DefaultDialer,
		logger:       zap.NewNop(),
		scripts:      make(map[string]Handler),
		pingInterval: 5 * time.Minute,
		ctx:          ctx,
		cancel:       cancel,
		workers:      make(map[string]*Worker),
		changed:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register starts the worker for scriptPath. The worker connects in the
// background; use Ready to wait for it. Registering a script whose worker is
// still running returns that worker; a stopped worker is replaced.
func (r *Registry) Register(_ context.Context, scriptPath string) (platform.Registration, error) {
	h, ok := r.scripts[scriptPath]
	if !ok {
		return nil, fmt.Errorf("autopush.Register %s: %w", scriptPath, platform.ErrScriptNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.workers[scriptPath]; ok {
		return w, nil
	}
	if r.ctx.Err() != nil {
		return nil, fmt.Errorf("autopush.Register %s: registry closed", scriptPath)
	}
	w := newWorker(r, scriptPath, h)
	r.workers[scriptPath] = w
	go w.run(r.ctx)
	return w, nil
}

// Ready blocks until a worker has completed its handshake. It fails with the
// stop reason once every registered worker has stopped without one active.
func (r *Registry) Ready(ctx context.Context) (platform.Registration, error) {
	for {
		r.mu.Lock()
		active, running, lastErr, changed := r.active, len(r.workers), r.lastErr, r.changed
		r.mu.Unlock()

		if active != nil {
			return active, nil
		}
		if running == 0 && lastErr != nil {
			return nil, fmt.Errorf("autopush.Ready: %w", lastErr)
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close stops all workers.
func (r *Registry) Close() error {
	r.cancel()
	r.mu.Lock()
	workers := make([]*Worker, 0, len(r.workers))
	for _, w := range r.workers {
		workers = append(workers, w)
	}
	r.mu.Unlock()
	for _, w := range workers {
		<-w.done
	}
	return nil
}

func (r *Registry) activate(w *Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workers[w.scope] != w {
		return
	}
	w.activated = true
	if r.active == nil {
		r.active = w
	}
	r.lastErr = nil
	r.notify()
}

// retire forgets a stopped worker so the next Register starts a fresh one.
func (r *Registry) retire(w *Worker, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workers[w.scope] == w {
		delete(r.workers, w.scope)
	}
	if r.active == w {
		r.active = nil
		for _, other := range r.workers {
			if other.activated {
				r.active = other
				break
			}
		}
	}
	r.lastErr = err
	r.notify()
}

// notify wakes every Ready waiter. r.mu must be held.
func (r *Registry) notify() {
	close(r.changed)
	r.changed = make(chan struct{})
}
