package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestPermissionStateDecided(t *testing.T) {
	tests := []struct {
		state PermissionState
		want  bool
	}{
		{PermissionGranted, true},
		{PermissionDenied, true},
		{PermissionDefault, false},
		{PermissionState(""), false},
	}
	for _, tc := range tests {
		if got := tc.state.Decided(); got != tc.want {
			t.Errorf("%q.Decided() = %v, want %v", tc.state, got, tc.want)
		}
	}
}

func TestNewPushSubscription(t *testing.T) {
	sub := NewPushSubscription("https://push.example/abc", SubscriptionKeys{P256dh: "BAUG", Auth: "Bwg="})
	if sub.ID == uuid.Nil {
		t.Error("expected a generated ID")
	}
	if sub.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	data, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	for _, want := range []string{`"endpoint":"https://push.example/abc"`, `"p256dh":"BAUG"`, `"auth":"Bwg="`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("payload %s missing %s", data, want)
		}
	}
}
