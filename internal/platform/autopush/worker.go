package autopush

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/naveenspark/pushenable/internal/platform"
	"github.com/naveenspark/pushenable/pkg/domain"
	"github.com/naveenspark/pushenable/pkg/vapid"
)

// authSecretLen is the length of the subscription auth secret.
const authSecretLen = 16

// inboxSize bounds the push messages queued for a slow handler.
const inboxSize = 64

var errWorkerStopped = errors.New("autopush: worker stopped")

// Worker is one background worker connection. It implements both
// platform.Registration and platform.PushManager.
type Worker struct {
	registry *Registry
	scope    string
	handler  Handler
	logger   *zap.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan registerResponse

	uaid      string
	activated bool  // guarded by registry.mu
	err       error // why the worker stopped, set before done is closed
	done      chan struct{}
}

func newWorker(r *Registry, scope string, h Handler) *Worker {
	return &Worker{
		registry: r,
		scope:    scope,
		handler:  h,
		logger:   r.logger.With(zap.String("worker", scope)),
		pending:  make(map[string]chan registerResponse),
		done:     make(chan struct{}),
	}
}

// Scope returns the script path the worker was registered for.
func (w *Worker) Scope() string {
	return w.scope
}

// PushManager returns the worker itself.
func (w *Worker) PushManager() platform.PushManager {
	return w
}

// PermissionState reports notification consent without prompting.
func (w *Worker) PermissionState(ctx context.Context) (domain.PermissionState, error) {
	return w.registry.perms.Status(ctx)
}

// Subscribe registers a new push channel for the application server key and
// generates the subscription's key pair.
func (w *Worker) Subscribe(ctx context.Context, opts platform.SubscribeOptions) (platform.Subscription, error) {
	if !opts.UserVisibleOnly {
		return nil, platform.ErrUserVisibleOnly
	}
	if len(opts.ApplicationServerKey) == 0 {
		return nil, errors.New("autopush: application server key required")
	}
	state, err := w.registry.perms.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("autopush: permission status: %w", err)
	}
	if state != domain.PermissionGranted {
		return nil, platform.ErrPermissionNotGranted
	}

	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("autopush: generate p256dh key: %w", err)
	}
	auth := make([]byte, authSecretLen)
	if _, err := rand.Read(auth); err != nil {
		return nil, fmt.Errorf("autopush: generate auth secret: %w", err)
	}

	channelID := uuid.NewString()
	reply := make(chan registerResponse, 1)
	w.pendingMu.Lock()
	w.pending[channelID] = reply
	w.pendingMu.Unlock()
	defer func() {
		w.pendingMu.Lock()
		delete(w.pending, channelID)
		w.pendingMu.Unlock()
	}()

	err = w.writeJSON(registerRequest{
		Type:      typeRegister,
		ChannelID: channelID,
		Key:       vapid.EncodeKey(opts.ApplicationServerKey),
	})
	if err != nil {
		return nil, fmt.Errorf("autopush: send register: %w", err)
	}

	select {
	case resp := <-reply:
		if resp.Status != statusOK {
			return nil, fmt.Errorf("autopush: register rejected with status %d", resp.Status)
		}
		w.logger.Debug("channel registered", zap.String("channel_id", channelID))
		return &subscription{
			endpoint: resp.PushEndpoint,
			keys: map[platform.KeyName][]byte{
				platform.KeyP256dh: priv.PublicKey().Bytes(),
				platform.KeyAuth:   auth,
			},
		}, nil
	case <-w.done:
		return nil, w.stopErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *Worker) run(ctx context.Context) {
	err := w.serve(ctx)
	if err != nil && ctx.Err() == nil {
		w.logger.Error("worker stopped", zap.Error(err))
	}
	if err == nil {
		err = errWorkerStopped
	}
	w.err = err
	w.registry.retire(w, err)
	close(w.done)
}

func (w *Worker) serve(ctx context.Context) error {
	conn, _, err := w.registry.dialer.DialContext(ctx, w.registry.serviceURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.registry.serviceURL, err)
	}
	w.writeMu.Lock()
	w.conn = conn
	w.writeMu.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		conn.Close() //nolint:errcheck // unblocks the read loop
	}()

	if err := w.hello(); err != nil {
		return err
	}
	w.logger.Info("worker active", zap.String("uaid", w.uaid))
	w.registry.activate(w)

	if w.registry.pingInterval > 0 {
		go w.keepalive(stop)
	}
	inbox := make(chan domain.PushMessage, inboxSize)
	if w.handler != nil {
		go w.deliver(inbox, stop)
	}
	return w.readLoop(inbox)
}

func (w *Worker) hello() error {
	if err := w.writeJSON(helloRequest{Type: typeHello, ChannelIDs: []string{}, UseWebPush: true}); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}
	var resp helloResponse
	if err := w.conn.ReadJSON(&resp); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if resp.Type != typeHello || resp.Status != statusOK {
		return fmt.Errorf("hello rejected: type=%q status=%d", resp.Type, resp.Status)
	}
	w.uaid = resp.UAID
	return nil
}

// readLoop dispatches server messages. Push messages are acked here and
// queued for the handler, so a slow handler never delays acks or register
// replies.
func (w *Worker) readLoop(inbox chan<- domain.PushMessage) error {
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			w.logger.Warn("malformed message", zap.Error(err))
			continue
		}
		switch env.Type {
		case typeRegister:
			var resp registerResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				w.logger.Warn("malformed register response", zap.Error(err))
				continue
			}
			w.pendingMu.Lock()
			reply, ok := w.pending[resp.ChannelID]
			w.pendingMu.Unlock()
			if ok {
				select {
				case reply <- resp:
				default: // duplicate reply
				}
			}
		case typeNotification:
			var n notification
			if err := json.Unmarshal(data, &n); err != nil {
				w.logger.Warn("malformed notification", zap.Error(err))
				continue
			}
			if err := w.writeJSON(ack{Type: typeAck, Updates: []ackUpdate{{ChannelID: n.ChannelID, Version: n.Version}}}); err != nil {
				return fmt.Errorf("send ack: %w", err)
			}
			if w.handler == nil {
				continue
			}
			msg := domain.PushMessage{
				ChannelID:  n.ChannelID,
				Version:    n.Version,
				Data:       n.Data,
				ReceivedAt: time.Now().UTC(),
			}
			select {
			case inbox <- msg:
			default:
				w.logger.Warn("push handler backlogged, dropping message",
					zap.String("channel_id", n.ChannelID),
					zap.String("version", n.Version))
			}
		case typePing, "":
		default:
			w.logger.Debug("ignoring message", zap.String("type", string(env.Type)))
		}
	}
}

// deliver hands queued push messages to the handler in arrival order.
func (w *Worker) deliver(inbox <-chan domain.PushMessage, stop <-chan struct{}) {
	for {
		select {
		case msg := <-inbox:
			w.handler(msg)
		case <-stop:
			return
		}
	}
}

func (w *Worker) keepalive(stop <-chan struct{}) {
	t := time.NewTicker(w.registry.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := w.writeJSON(struct{}{}); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

func (w *Worker) writeJSON(v any) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if w.conn == nil {
		return errors.New("not connected")
	}
	return w.conn.WriteJSON(v)
}

func (w *Worker) stopErr() error {
	if w.err != nil {
		return w.err
	}
	return errWorkerStopped
}

type subscription struct {
	endpoint string
	keys     map[platform.KeyName][]byte
}

func (s *subscription) Endpoint() string {
	return s.endpoint
}

func (s *subscription) Key(name platform.KeyName) []byte {
	return s.keys[name]
}
