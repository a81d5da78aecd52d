// Package platform defines the collaborators the enablement flow delegates to:
// the permission prompt, the background worker registry and the push manager
// reached through a worker registration.
//
// Every blocking call takes a context. Implementations that cannot honor
// cancellation (a prompt with no cancel primitive) may keep running after ctx
// is done, but must return ctx.Err() to the caller.
package platform

import (
	"context"
	"errors"

	"github.com/naveenspark/pushenable/pkg/domain"
)

var (
	// ErrCapabilityMissing indicates the host has no notification or worker support.
	ErrCapabilityMissing = errors.New("platform capability missing")

	// ErrPermissionNotGranted is returned by Subscribe when consent is absent or was revoked.
	ErrPermissionNotGranted = errors.New("notification permission not granted")

	// ErrUserVisibleOnly is returned by Subscribe when UserVisibleOnly is false.
	ErrUserVisibleOnly = errors.New("push subscriptions must be user visible")

	// ErrScriptNotFound is returned by Register for an unknown worker script.
	ErrScriptNotFound = errors.New("worker script not found")
)

// KeyName identifies a subscription key.
type KeyName string

const (
	KeyP256dh KeyName = "p256dh"
	KeyAuth   KeyName = "auth"
)

// PermissionService prompts for and reports notification consent.
type PermissionService interface {
	// RequestPermission asks the user and blocks until they respond. When the
	// user already decided, it returns that decision without prompting.
	RequestPermission(ctx context.Context) (domain.PermissionState, error)

	// Status returns the current state without prompting.
	Status(ctx context.Context) (domain.PermissionState, error)
}

// WorkerRegistry registers background workers.
type WorkerRegistry interface {
	// Register starts (or reuses) the worker for scriptPath.
	Register(ctx context.Context, scriptPath string) (Registration, error)

	// Ready blocks until a registered worker is active.
	Ready(ctx context.Context) (Registration, error)
}

// Registration is an active background worker.
type Registration interface {
	Scope() string
	PushManager() PushManager
}

// SubscribeOptions mirrors PushSubscriptionOptions.
type SubscribeOptions struct {
	UserVisibleOnly      bool
	ApplicationServerKey []byte
}

// PushManager creates push subscriptions for a registration.
type PushManager interface {
	Subscribe(ctx context.Context, opts SubscribeOptions) (Subscription, error)
	PermissionState(ctx context.Context) (domain.PermissionState, error)
}

// Subscription is the platform's handle for a push subscription.
type Subscription interface {
	Endpoint() string
	// Key returns the raw key bytes, or nil when the key is absent.
	Key(name KeyName) []byte
}
