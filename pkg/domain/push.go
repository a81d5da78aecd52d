package domain

import (
	"time"

	"github.com/google/uuid"
)

// PermissionState is the user's notification consent decision.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	// PermissionDefault means the prompt was dismissed without a choice.
	PermissionDefault PermissionState = "default"
)

// Decided reports whether the user made an explicit choice.
func (p PermissionState) Decided() bool {
	return p == PermissionGranted || p == PermissionDenied
}

// SubscriptionKeys holds the p256dh and auth keys of a subscription,
// each as padded standard Base64.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription represents a browser push notification subscription.
type PushSubscription struct {
	ID        uuid.UUID `json:"id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPushSubscription builds the registration payload for a backend.
func NewPushSubscription(endpoint string, keys SubscriptionKeys) PushSubscription {
	return PushSubscription{
		ID:        uuid.New(),
		Endpoint:  endpoint,
		P256dh:    keys.P256dh,
		Auth:      keys.Auth,
		CreatedAt: time.Now().UTC(),
	}
}

// PushMessage is a notification delivered to the background worker.
// Data is still encrypted for the subscription's p256dh key.
type PushMessage struct {
	ChannelID  string    `json:"channel_id"`
	Version    string    `json:"version"`
	Data       string    `json:"data,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
