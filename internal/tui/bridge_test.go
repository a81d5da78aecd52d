package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/pushenable/internal/enablement"
	"github.com/naveenspark/pushenable/internal/platform"
	"github.com/naveenspark/pushenable/pkg/domain"
)

// fakeSender records messages and answers prompts with answer, if set.
type fakeSender struct {
	mu      sync.Mutex
	msgs    []tea.Msg
	prompts int
	answer  domain.PermissionState
}

func (s *fakeSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	if p, ok := msg.(permissionPromptMsg); ok {
		s.prompts++
		if s.answer != "" {
			p.reply <- s.answer
		}
	}
}

func (s *fakeSender) promptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompts
}

func (s *fakeSender) last() tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		return nil
	}
	return s.msgs[len(s.msgs)-1]
}

func TestBridgeDefaults(t *testing.T) {
	b := NewBridge()
	state, err := b.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if state != domain.PermissionDefault {
		t.Errorf("Status() = %q, want default", state)
	}
	if b.Label() != enablement.LabelInitial {
		t.Errorf("Label() = %q, want %q", b.Label(), enablement.LabelInitial)
	}
}

func TestBridgeRequestWithoutProgram(t *testing.T) {
	b := NewBridge()
	_, err := b.RequestPermission(context.Background())
	if !errors.Is(err, platform.ErrCapabilityMissing) {
		t.Errorf("RequestPermission() error = %v, want ErrCapabilityMissing", err)
	}
}

func TestBridgeRememberDecision(t *testing.T) {
	tests := []struct {
		answer      domain.PermissionState
		wantPrompts int
	}{
		{domain.PermissionGranted, 1},
		{domain.PermissionDenied, 1},
		// Dismissal is not a decision, so the second call prompts again.
		{domain.PermissionDefault, 2},
	}
	for _, tc := range tests {
		t.Run(string(tc.answer), func(t *testing.T) {
			s := &fakeSender{answer: tc.answer}
			b := NewBridge()
			b.Attach(s)

			for i := 0; i < 2; i++ {
				got, err := b.RequestPermission(context.Background())
				if err != nil {
					t.Fatalf("RequestPermission() error: %v", err)
				}
				if got != tc.answer {
					t.Errorf("call %d: got %q, want %q", i, got, tc.answer)
				}
			}
			if n := s.promptCount(); n != tc.wantPrompts {
				t.Errorf("prompts = %d, want %d", n, tc.wantPrompts)
			}
			status, _ := b.Status(context.Background()) //nolint:errcheck
			if status != tc.answer {
				t.Errorf("Status() = %q, want %q", status, tc.answer)
			}
		})
	}
}

func TestBridgeRequestCanceled(t *testing.T) {
	s := &fakeSender{} // never answers
	b := NewBridge()
	b.Attach(s)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.RequestPermission(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RequestPermission() error = %v, want DeadlineExceeded", err)
	}
}

func TestBridgeSerializesPrompts(t *testing.T) {
	s := &fakeSender{}
	b := NewBridge()
	b.Attach(s)

	results := make(chan domain.PermissionState, 2)
	for i := 0; i < 2; i++ {
		go func() {
			state, _ := b.RequestPermission(context.Background()) //nolint:errcheck
			results <- state
		}()
	}

	// Wait for the first prompt, answer it, and check the second caller
	// takes the decision without a prompt of its own.
	var prompt permissionPromptMsg
	deadline := time.After(time.Second)
	for {
		if p, ok := s.last().(permissionPromptMsg); ok {
			prompt = p
			break
		}
		select {
		case <-deadline:
			t.Fatal("no prompt sent")
		case <-time.After(time.Millisecond):
		}
	}
	prompt.reply <- domain.PermissionGranted

	for i := 0; i < 2; i++ {
		select {
		case got := <-results:
			if got != domain.PermissionGranted {
				t.Errorf("result %d = %q, want granted", i, got)
			}
		case <-time.After(time.Second):
			t.Fatal("RequestPermission did not return")
		}
	}
	if n := s.promptCount(); n != 1 {
		t.Errorf("prompts = %d, want 1", n)
	}
}

func TestBridgeSetLabelForwards(t *testing.T) {
	s := &fakeSender{}
	b := NewBridge()
	b.SetLabel("before attach")
	if s.last() != nil {
		t.Fatal("message sent before Attach")
	}

	b.Attach(s)
	b.SetLabel(enablement.LabelGranted)
	if b.Label() != enablement.LabelGranted {
		t.Errorf("Label() = %q", b.Label())
	}
	msg, ok := s.last().(labelMsg)
	if !ok || msg.text != enablement.LabelGranted {
		t.Errorf("last message = %#v, want labelMsg", s.last())
	}
}

func TestBridgeNotifyPush(t *testing.T) {
	s := &fakeSender{}
	b := NewBridge()
	b.Attach(s)
	b.NotifyPush(domain.PushMessage{ChannelID: "c1", Data: "hi"})

	msg, ok := s.last().(pushReceivedMsg)
	if !ok || msg.msg.ChannelID != "c1" {
		t.Errorf("last message = %#v, want pushReceivedMsg", s.last())
	}
}
