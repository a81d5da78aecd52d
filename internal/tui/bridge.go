package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/pushenable/internal/enablement"
	"github.com/naveenspark/pushenable/internal/platform"
	"github.com/naveenspark/pushenable/pkg/domain"
)

// Sender delivers messages into a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// labelMsg carries a new button label.
type labelMsg struct{ text string }

// permissionPromptMsg opens the permission prompt. The answer goes to reply,
// which is buffered so the model never blocks on it.
type permissionPromptMsg struct {
	reply chan<- domain.PermissionState
}

// pushReceivedMsg carries a message delivered by the push service.
type pushReceivedMsg struct {
	msg domain.PushMessage
}

// Bridge connects the enablement flow to the terminal. It answers permission
// requests by prompting inside the TUI and mirrors label writes into the view.
type Bridge struct {
	mu     sync.Mutex // guards sender and state
	sender Sender
	state  domain.PermissionState

	prompt sync.Mutex // one prompt on screen at a time
	label  *enablement.Label
}

var (
	_ platform.PermissionService = (*Bridge)(nil)
	_ enablement.Display         = (*Bridge)(nil)
)

// NewBridge creates a bridge with no decision recorded.
func NewBridge() *Bridge {
	return &Bridge{
		state: domain.PermissionDefault,
		label: enablement.NewLabel(),
	}
}

// Attach sets the program that receives prompts and label updates.
func (b *Bridge) Attach(s Sender) {
	b.mu.Lock()
	b.sender = s
	b.mu.Unlock()
}

func (b *Bridge) current() (Sender, domain.PermissionState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sender, b.state
}

// RequestPermission shows the prompt and waits for an answer. A decision,
// once made, is returned without prompting again. Dismissal is not a decision.
func (b *Bridge) RequestPermission(ctx context.Context) (domain.PermissionState, error) {
	if _, state := b.current(); state.Decided() {
		return state, nil
	}

	b.prompt.Lock()
	defer b.prompt.Unlock()

	// A prompt that finished while we waited may have decided already.
	sender, state := b.current()
	if state.Decided() {
		return state, nil
	}
	if sender == nil {
		return "", platform.ErrCapabilityMissing
	}

	reply := make(chan domain.PermissionState, 1)
	sender.Send(permissionPromptMsg{reply: reply})

	select {
	case answer := <-reply:
		if answer.Decided() {
			b.mu.Lock()
			b.state = answer
			b.mu.Unlock()
		}
		return answer, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Status reports the recorded decision, or default.
func (b *Bridge) Status(context.Context) (domain.PermissionState, error) {
	_, state := b.current()
	return state, nil
}

// SetLabel records the label and forwards it to the program.
func (b *Bridge) SetLabel(text string) {
	b.label.SetLabel(text)
	if sender, _ := b.current(); sender != nil {
		sender.Send(labelMsg{text: text})
	}
}

// Label returns the last label written.
func (b *Bridge) Label() string {
	return b.label.Text()
}

// NotifyPush forwards a received push message to the program. It has the
// shape of autopush.Handler.
func (b *Bridge) NotifyPush(msg domain.PushMessage) {
	if sender, _ := b.current(); sender != nil {
		sender.Send(pushReceivedMsg{msg: msg})
	}
}
