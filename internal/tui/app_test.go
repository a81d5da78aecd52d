package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/pushenable/internal/enablement"
	"github.com/naveenspark/pushenable/pkg/domain"
)

type fakeEnabler struct {
	probeState domain.PermissionState
	probeErr   error
	result     enablement.Result
	calls      int
}

func (f *fakeEnabler) Probe(context.Context) (domain.PermissionState, error) {
	return f.probeState, f.probeErr
}

func (f *fakeEnabler) RequestEnablement(context.Context) enablement.Result {
	f.calls++
	return f.result
}

func newTestApp(e *fakeEnabler) App {
	a := NewApp(context.Background(), e)
	a.width = 80
	a.height = 30
	return a
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	model, cmd := a.Update(msg)
	return model.(App), cmd
}

func TestAppInitialView(t *testing.T) {
	a := newTestApp(&fakeEnabler{})
	if !strings.Contains(a.View(), enablement.LabelInitial) {
		t.Errorf("initial view missing %q", enablement.LabelInitial)
	}
}

func TestAppQuitOnQ(t *testing.T) {
	a := newTestApp(&fakeEnabler{})
	_, cmd := update(t, a, key("q"))
	if cmd == nil {
		t.Fatal("expected quit command on 'q', got nil")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestAppProbeShown(t *testing.T) {
	a := newTestApp(&fakeEnabler{probeState: domain.PermissionGranted})
	msg := a.runProbe()()
	a, _ = update(t, a, msg)
	if a.probe != domain.PermissionGranted {
		t.Errorf("probe = %q, want granted", a.probe)
	}
	if !strings.Contains(a.View(), "permission: ") {
		t.Error("view missing permission line")
	}
}

func TestAppProbeCapabilityMissingIsQuiet(t *testing.T) {
	err := &enablement.Error{Op: "probe", Kind: enablement.KindCapabilityMissing, Err: errors.New("none")}
	a := newTestApp(&fakeEnabler{})
	a, _ = update(t, a, probeDoneMsg{err: err})
	if strings.Contains(a.View(), "probe failed") {
		t.Error("capability_missing should not be shown")
	}

	err.Kind = enablement.KindRegistration
	a, _ = update(t, a, probeDoneMsg{err: err})
	if !strings.Contains(a.View(), "probe failed") {
		t.Error("registration failure should be shown")
	}
}

func TestAppEnterRunsEnablement(t *testing.T) {
	sub := domain.NewPushSubscription("https://push.example/ep", domain.SubscriptionKeys{P256dh: "BAUG", Auth: "Bwg="})
	e := &fakeEnabler{result: enablement.Result{
		State:        enablement.StateSubscriptionSucceeded,
		Permission:   domain.PermissionGranted,
		Subscription: &sub,
	}}
	a := newTestApp(e)

	a, cmd := update(t, a, key("enter"))
	if cmd == nil {
		t.Fatal("expected enablement command")
	}
	if a.inFlight != 1 {
		t.Errorf("inFlight = %d, want 1", a.inFlight)
	}
	if !strings.Contains(a.View(), "working...") {
		t.Error("view missing progress line")
	}

	a, _ = update(t, a, cmd())
	if e.calls != 1 {
		t.Errorf("RequestEnablement calls = %d, want 1", e.calls)
	}
	if a.inFlight != 0 {
		t.Errorf("inFlight = %d, want 0", a.inFlight)
	}
	view := a.View()
	for _, want := range []string{"subscription_succeeded", "https://push.example/ep", "BAUG", "Bwg="} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestAppShowsErrorKind(t *testing.T) {
	a := newTestApp(&fakeEnabler{})
	res := enablement.Result{
		State: enablement.StateSubscriptionFailed,
		Err:   &enablement.Error{Op: "subscribe", Kind: enablement.KindSubscription, Err: errors.New("boom")},
	}
	a, _ = update(t, a, enablementDoneMsg{res: res})
	view := a.View()
	if !strings.Contains(view, "subscription_failed") || !strings.Contains(view, "subscription") {
		t.Errorf("view missing failure details:\n%s", view)
	}
	if strings.Contains(view, "boom") {
		t.Error("underlying error text should stay in the log")
	}
}

func TestAppLabelMsg(t *testing.T) {
	a := newTestApp(&fakeEnabler{})
	a, _ = update(t, a, labelMsg{text: enablement.LabelDenied})
	if a.label != enablement.LabelDenied {
		t.Errorf("label = %q", a.label)
	}
}

func TestAppPromptAnswers(t *testing.T) {
	tests := []struct {
		key  string
		want domain.PermissionState
	}{
		{"a", domain.PermissionGranted},
		{"y", domain.PermissionGranted},
		{"b", domain.PermissionDenied},
		{"n", domain.PermissionDenied},
		{"esc", domain.PermissionDefault},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			reply := make(chan domain.PermissionState, 1)
			a := newTestApp(&fakeEnabler{})
			a, _ = update(t, a, permissionPromptMsg{reply: reply})
			if !strings.Contains(a.View(), "Allow notifications?") {
				t.Fatal("prompt not shown")
			}

			a, _ = update(t, a, key(tc.key))
			select {
			case got := <-reply:
				if got != tc.want {
					t.Errorf("answer = %q, want %q", got, tc.want)
				}
			default:
				t.Fatal("no answer sent")
			}
			if a.prompt != nil {
				t.Error("prompt still open")
			}
		})
	}
}

func TestAppPromptCapturesKeys(t *testing.T) {
	e := &fakeEnabler{}
	reply := make(chan domain.PermissionState, 1)
	a := newTestApp(e)
	a, _ = update(t, a, permissionPromptMsg{reply: reply})

	for _, k := range []string{"q", "enter", "c"} {
		var cmd tea.Cmd
		a, cmd = update(t, a, key(k))
		if cmd != nil {
			t.Errorf("key %q produced a command while prompt open", k)
		}
	}
	if a.prompt == nil {
		t.Error("prompt closed by unrelated key")
	}
}

func TestAppCtrlCDuringPromptDismisses(t *testing.T) {
	reply := make(chan domain.PermissionState, 1)
	a := newTestApp(&fakeEnabler{})
	a, _ = update(t, a, permissionPromptMsg{reply: reply})
	_, cmd := update(t, a, key("ctrl+c"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if got := <-reply; got != domain.PermissionDefault {
		t.Errorf("answer = %q, want default", got)
	}
}

func TestAppCopyWithoutSubscription(t *testing.T) {
	a := newTestApp(&fakeEnabler{})
	_, cmd := update(t, a, key("c"))
	if cmd != nil {
		t.Error("copy should be a no-op before subscribing")
	}
}

func TestAppCopyResult(t *testing.T) {
	a := newTestApp(&fakeEnabler{})
	a, _ = update(t, a, copyResultMsg{})
	if !strings.Contains(a.View(), "copied!") {
		t.Error("view missing copied status")
	}
	a, _ = update(t, a, copyResultMsg{err: errors.New("no clipboard")})
	if !strings.Contains(a.View(), "copy failed: no clipboard") {
		t.Error("view missing copy failure")
	}
}

func TestAppPushCounter(t *testing.T) {
	a := newTestApp(&fakeEnabler{})
	for i := 0; i < maxPushes+2; i++ {
		a, _ = update(t, a, pushReceivedMsg{msg: domain.PushMessage{
			ChannelID:  "c",
			Data:       fmt.Sprintf("payload-%d", i),
			ReceivedAt: time.Now(),
		}})
	}
	if a.pushCount != maxPushes+2 {
		t.Errorf("pushCount = %d, want %d", a.pushCount, maxPushes+2)
	}
	if len(a.pushes) != maxPushes {
		t.Errorf("kept %d pushes, want %d", len(a.pushes), maxPushes)
	}
	view := a.View()
	if strings.Contains(view, "payload-0") {
		t.Error("oldest push should have been dropped")
	}
	if !strings.Contains(view, fmt.Sprintf("payload-%d", maxPushes+1)) {
		t.Error("newest push missing")
	}
}

func TestAppViewFitsHeight(t *testing.T) {
	a := newTestApp(&fakeEnabler{})
	a.height = 6
	for i := 0; i < 5; i++ {
		a, _ = update(t, a, pushReceivedMsg{msg: domain.PushMessage{Data: "x", ReceivedAt: time.Now()}})
	}
	if lines := strings.Count(a.View(), "\n") + 1; lines > a.height {
		t.Errorf("view has %d lines, height %d", lines, a.height)
	}
}
