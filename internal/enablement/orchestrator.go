// Package enablement sequences the steps that turn a user's click into a
// push subscription: permission prompt, worker readiness, subscribe, and
// key extraction. Each step's failure is handled on its own branch; only the
// permission outcome ever reaches the user, as button text.
package enablement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/naveenspark/pushenable/internal/platform"
	"github.com/naveenspark/pushenable/pkg/domain"
	"github.com/naveenspark/pushenable/pkg/vapid"
)

// DefaultReadyTimeout bounds the wait for an active worker.
const DefaultReadyTimeout = 30 * time.Second

// DefaultWorkerScript is the worker registered by Probe.
const DefaultWorkerScript = "/service-worker.js"

// State is a step of one enablement attempt.
type State int

const (
	StateIdle State = iota
	StatePermissionRequested
	StatePermissionGranted
	StatePermissionDenied
	StatePermissionDefault
	StateWorkerReady
	StateSubscribing
	StateSubscriptionSucceeded
	StateSubscriptionFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePermissionRequested:
		return "permission_requested"
	case StatePermissionGranted:
		return "permission_granted"
	case StatePermissionDenied:
		return "permission_denied"
	case StatePermissionDefault:
		return "permission_default"
	case StateWorkerReady:
		return "worker_ready"
	case StateSubscribing:
		return "subscribing"
	case StateSubscriptionSucceeded:
		return "subscription_succeeded"
	case StateSubscriptionFailed:
		return "subscription_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Submitter forwards a completed subscription to a backend.
type Submitter interface {
	SubmitSubscription(ctx context.Context, sub domain.PushSubscription) error
}

// Result is the outcome of one RequestEnablement call.
type Result struct {
	// State is the final state; Path lists every state entered, in order.
	State State
	Path  []State

	Permission   domain.PermissionState
	Subscription *domain.PushSubscription

	// Err is the failure that ended the attempt, always an *Error.
	Err error
	// SubmitErr is set when the subscription succeeded but the backend
	// rejected it.
	SubmitErr error
}

func (r *Result) enter(s State) {
	r.State = s
	r.Path = append(r.Path, s)
}

// Orchestrator runs enablement attempts. It holds no per-attempt state, so
// RequestEnablement may be called concurrently.
type Orchestrator struct {
	publicKey    string
	workerScript string
	readyTimeout time.Duration

	perms     platform.PermissionService
	workers   platform.WorkerRegistry
	display   Display
	reporter  Reporter
	submitter Submitter
	logger    *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDisplay sets where button text is written.
func WithDisplay(d Display) Option {
	return func(o *Orchestrator) {
		o.display = d
	}
}

// WithReporter sets the diagnostic sink.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = r
	}
}

// WithSubmitter forwards successful subscriptions to s.
func WithSubmitter(s Submitter) Option {
	return func(o *Orchestrator) {
		o.submitter = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithReadyTimeout bounds the worker-ready wait. Zero waits until ctx is done.
func WithReadyTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.readyTimeout = d
	}
}

// WithWorkerScript sets the worker script to register.
func WithWorkerScript(path string) Option {
	return func(o *Orchestrator) {
		o.workerScript = path
	}
}

// New creates an Orchestrator for the URL-safe Base64 application server key.
// A nil perms or workers means the host lacks that capability.
func New(publicKey string, perms platform.PermissionService, workers platform.WorkerRegistry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		publicKey:    publicKey,
		workerScript: DefaultWorkerScript,
		readyTimeout: DefaultReadyTimeout,
		perms:        perms,
		workers:      workers,
		display:      NewLabel(),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.reporter == nil {
		o.reporter = LogReporter{Logger: o.logger}
	}
	return o
}

// Probe registers the worker script and logs the current permission state
// without prompting. A host without workers is skipped silently.
func (o *Orchestrator) Probe(ctx context.Context) (domain.PermissionState, error) {
	if o.workers == nil {
		err := o.fail("enablement.Probe", KindCapabilityMissing, platform.ErrCapabilityMissing)
		return "", err
	}
	reg, err := o.workers.Register(ctx, o.workerScript)
	if err != nil {
		return "", o.fail("enablement.Probe", KindRegistration, err)
	}
	state, err := reg.PushManager().PermissionState(ctx)
	if err != nil {
		return "", o.fail("enablement.Probe", KindRegistration, err)
	}
	o.logger.Info("push permission state", zap.String("scope", reg.Scope()), zap.String("state", string(state)))
	return state, nil
}

// RequestEnablement prompts for permission and, once granted, subscribes.
// Failures after the prompt are reported to the diagnostic sink and returned
// in Result.Err; they never change the button text.
func (o *Orchestrator) RequestEnablement(ctx context.Context) Result {
	res := Result{State: StateIdle}

	if o.perms == nil {
		res.Err = o.fail("enablement.RequestEnablement", KindCapabilityMissing, platform.ErrCapabilityMissing)
		return res
	}

	res.enter(StatePermissionRequested)
	perm, err := o.perms.RequestPermission(ctx)
	if err != nil {
		kind := KindPermission
		if errors.Is(err, platform.ErrCapabilityMissing) {
			kind = KindCapabilityMissing
		}
		res.Err = o.fail("enablement.RequestEnablement", kind, err)
		return res
	}
	res.Permission = perm

	switch perm {
	case domain.PermissionGranted:
		o.logger.Info("permission granted")
		res.enter(StatePermissionGranted)
		o.display.SetLabel(LabelGranted)
		o.subscribe(ctx, &res)
	case domain.PermissionDenied:
		o.logger.Info("permission denied")
		res.enter(StatePermissionDenied)
		o.display.SetLabel(LabelDenied)
	default:
		o.logger.Info("permission dismissed", zap.String("state", string(perm)))
		res.enter(StatePermissionDefault)
		o.display.SetLabel(LabelDenied)
	}
	return res
}

func (o *Orchestrator) subscribe(ctx context.Context, res *Result) {
	const op = "enablement.subscribe"

	if o.workers == nil {
		o.abort(res, o.fail(op, KindCapabilityMissing, platform.ErrCapabilityMissing))
		return
	}

	// Registration is idempotent while the worker runs and restarts it after
	// it stopped, so a retry after a failed connection gets a fresh worker.
	if _, err := o.workers.Register(ctx, o.workerScript); err != nil {
		o.abort(res, o.fail(op, KindRegistration, err))
		return
	}

	readyCtx := ctx
	if o.readyTimeout > 0 {
		var cancel context.CancelFunc
		readyCtx, cancel = context.WithTimeout(ctx, o.readyTimeout)
		defer cancel()
	}
	reg, err := o.workers.Ready(readyCtx)
	if err != nil {
		kind := KindRegistration
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			kind = KindRegistrationTimeout
			err = fmt.Errorf("worker not ready after %s: %w", o.readyTimeout, err)
		}
		o.abort(res, o.fail(op, kind, err))
		return
	}
	res.enter(StateWorkerReady)

	key, err := vapid.DecodeKey(o.publicKey)
	if err != nil {
		o.abort(res, o.fail(op, KindDecode, err))
		return
	}

	res.enter(StateSubscribing)
	sub, err := reg.PushManager().Subscribe(ctx, platform.SubscribeOptions{
		UserVisibleOnly:      true,
		ApplicationServerKey: key,
	})
	if err != nil {
		o.abort(res, o.fail(op, KindSubscription, err))
		return
	}

	keys, err := ExtractKeys(sub)
	if err != nil {
		o.abort(res, o.report(err))
		return
	}

	record := domain.NewPushSubscription(sub.Endpoint(), keys)
	res.Subscription = &record
	res.enter(StateSubscriptionSucceeded)
	o.logger.Info("push subscription created",
		zap.String("endpoint", record.Endpoint),
		zap.String("p256dh", keys.P256dh),
		zap.String("auth", keys.Auth),
	)

	if o.submitter != nil {
		if err := o.submitter.SubmitSubscription(ctx, record); err != nil {
			res.SubmitErr = o.fail(op, KindSubmission, err)
			return
		}
		o.logger.Info("push subscription submitted", zap.String("id", record.ID.String()))
	}
}

// ExtractKeys returns the p256dh and auth keys as standard Base64. Both keys
// must be present; otherwise nothing is encoded and the error has
// KindMissingKeyMaterial.
func ExtractKeys(sub platform.Subscription) (domain.SubscriptionKeys, error) {
	if sub == nil {
		return domain.SubscriptionKeys{}, &Error{Op: "enablement.ExtractKeys", Kind: KindMissingKeyMaterial, Err: errors.New("no subscription")}
	}
	p256dh := sub.Key(platform.KeyP256dh)
	auth := sub.Key(platform.KeyAuth)

	var missing []string
	if len(p256dh) == 0 {
		missing = append(missing, string(platform.KeyP256dh))
	}
	if len(auth) == 0 {
		missing = append(missing, string(platform.KeyAuth))
	}
	if len(missing) > 0 {
		return domain.SubscriptionKeys{}, &Error{
			Op:   "enablement.ExtractKeys",
			Kind: KindMissingKeyMaterial,
			Err:  fmt.Errorf("subscription missing %s", strings.Join(missing, ", ")),
		}
	}
	return domain.SubscriptionKeys{
		P256dh: vapid.EncodeStd(p256dh),
		Auth:   vapid.EncodeStd(auth),
	}, nil
}

func (o *Orchestrator) abort(res *Result, err error) {
	res.enter(StateSubscriptionFailed)
	res.Err = err
}

func (o *Orchestrator) fail(op string, kind Kind, err error) error {
	return o.report(&Error{Op: op, Kind: kind, Err: err})
}

func (o *Orchestrator) report(err error) error {
	var e *Error
	if errors.As(err, &e) {
		o.reporter.HandleError(e)
	}
	return err
}
