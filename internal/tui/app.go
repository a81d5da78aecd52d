package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/pushenable/internal/enablement"
	"github.com/naveenspark/pushenable/pkg/domain"
)

// maxPushes is how many received messages the view keeps.
const maxPushes = 5

// Enabler runs the enablement flow. *enablement.Orchestrator satisfies it.
type Enabler interface {
	Probe(ctx context.Context) (domain.PermissionState, error)
	RequestEnablement(ctx context.Context) enablement.Result
}

// probeDoneMsg carries the result of the mount-time probe.
type probeDoneMsg struct {
	state domain.PermissionState
	err   error
}

// enablementDoneMsg carries the result of one button press.
type enablementDoneMsg struct {
	res enablement.Result
}

type copyResultMsg struct{ err error }

// App is the root Bubbletea model.
type App struct {
	ctx     context.Context
	enabler Enabler

	label     string
	prompt    chan<- domain.PermissionState // non-nil while the prompt is open
	inFlight  int
	probe     domain.PermissionState
	probeErr  error
	last      *enablement.Result
	sub       *domain.PushSubscription
	pushes    []domain.PushMessage
	pushCount int
	statusMsg string

	width  int
	height int
	frame  int // logo shimmer animation frame
}

// NewApp creates the TUI. ctx bounds every enablement attempt.
func NewApp(ctx context.Context, e Enabler) App {
	return App{
		ctx:     ctx,
		enabler: e,
		label:   enablement.LabelInitial,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), a.runProbe())
}

func (a App) runProbe() tea.Cmd {
	ctx, e := a.ctx, a.enabler
	return func() tea.Msg {
		state, err := e.Probe(ctx)
		return probeDoneMsg{state: state, err: err}
	}
}

func (a App) runEnablement() tea.Cmd {
	ctx, e := a.ctx, a.enabler
	return func() tea.Msg {
		return enablementDoneMsg{res: e.RequestEnablement(ctx)}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case probeDoneMsg:
		a.probe = msg.state
		a.probeErr = msg.err
		return a, nil

	case labelMsg:
		a.label = msg.text
		return a, nil

	case permissionPromptMsg:
		a.prompt = msg.reply
		return a, nil

	case enablementDoneMsg:
		a.inFlight--
		res := msg.res
		a.last = &res
		if res.Subscription != nil {
			a.sub = res.Subscription
		}
		return a, nil

	case pushReceivedMsg:
		a.pushCount++
		a.pushes = append(a.pushes, msg.msg)
		if len(a.pushes) > maxPushes {
			a.pushes = a.pushes[len(a.pushes)-maxPushes:]
		}
		return a, nil

	case copyResultMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			a.statusMsg = "copied!"
		}
		return a, nil

	case tea.KeyMsg:
		a.statusMsg = ""

		// The prompt captures all keys while open.
		if a.prompt != nil {
			switch msg.String() {
			case "a", "y":
				return a.answer(domain.PermissionGranted), nil
			case "b", "n":
				return a.answer(domain.PermissionDenied), nil
			case "esc":
				return a.answer(domain.PermissionDefault), nil
			case "ctrl+c":
				return a.answer(domain.PermissionDefault), tea.Quit
			}
			return a, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "enter", " ":
			a.inFlight++
			return a, a.runEnablement()
		case "c":
			if a.sub == nil {
				return a, nil
			}
			text := subscriptionJSON(*a.sub)
			return a, func() tea.Msg {
				err := clipboard.WriteAll(text)
				return copyResultMsg{err: err}
			}
		}
	}
	return a, nil
}

// answer replies to the open prompt and closes it.
func (a App) answer(state domain.PermissionState) App {
	a.prompt <- state
	a.prompt = nil
	return a
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	logoPad := max((a.width-lipgloss.Width(logo))/2, 0)
	header := strings.Repeat(" ", logoPad) + logo + "\n"

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + buttonStyle.Render(a.label) + "\n\n")

	if a.inFlight > 0 {
		b.WriteString("  " + dimStyle.Render("working...") + "\n")
	}
	if a.probe != "" {
		b.WriteString("  " + metaStyle.Render("permission: ") + permissionStyle(a.probe).Render(string(a.probe)) + "\n")
	} else if a.probeErr != nil && enablement.KindOf(a.probeErr) != enablement.KindCapabilityMissing {
		b.WriteString("  " + rejectStyle.Render("probe failed: "+a.probeErr.Error()) + "\n")
	}

	if a.last != nil {
		b.WriteString(a.resultView(*a.last))
	}
	if a.sub != nil {
		b.WriteString(subscriptionView(*a.sub, a.width))
	}
	if a.pushCount > 0 {
		b.WriteString(a.pushView())
	}

	body := b.String()
	help := " " + helpEntry("enter", "enable") + "  " + helpEntry("c", "copy keys") + "  " + helpEntry("q", "quit")

	if a.prompt != nil {
		body = promptView()
		help = " " + helpEntry("a", "allow") + "  " + helpEntry("b", "block") + "  " + helpEntry("esc", "dismiss")
	}
	if a.statusMsg != "" {
		help += "  " + accentStyle.Render(a.statusMsg)
	}

	// Chrome budget: header(1) + blank(1) + help(1)
	chrome := 3
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")

	return fmt.Sprintf("%s\n%s\n%s", header, body, help)
}

func (a App) resultView(res enablement.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s %s\n", metaStyle.Render("last attempt:"), normalStyle.Render(res.State.String()))
	if res.Err != nil {
		var e *enablement.Error
		if errors.As(res.Err, &e) {
			fmt.Fprintf(&b, "  %s\n", rejectStyle.Render(e.Kind.String()))
		}
	}
	if res.SubmitErr != nil {
		fmt.Fprintf(&b, "  %s\n", rejectStyle.Render("backend rejected subscription"))
	}
	return b.String()
}

func (a App) pushView() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s %s\n", sectionHeaderStyle.Render("pushes received"), accentStyle.Render(fmt.Sprintf("%d", a.pushCount)))
	for i := len(a.pushes) - 1; i >= 0; i-- {
		p := a.pushes[i]
		data := p.Data
		if data == "" {
			data = "(no payload)"
		}
		fmt.Fprintf(&b, "    %s  %s\n", commentTimeStyle.Render(fmt.Sprintf("%-8s", formatTime(p.ReceivedAt))), normalStyle.Render(truncStr(data, 60)))
	}
	return b.String()
}

func subscriptionView(sub domain.PushSubscription, width int) string {
	w := width - 14
	if w < 20 {
		w = 20
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n", sectionHeaderStyle.Render("subscription"))
	fmt.Fprintf(&b, "    %s %s\n", metaStyle.Render("endpoint"), normalStyle.Render(truncStr(sub.Endpoint, w)))
	fmt.Fprintf(&b, "    %s   %s\n", metaStyle.Render("p256dh"), goldStyle.Render(truncStr(sub.P256dh, w)))
	fmt.Fprintf(&b, "    %s     %s\n", metaStyle.Render("auth"), goldStyle.Render(sub.Auth))
	return b.String()
}

func promptView() string {
	title := selectedStyle.Render("Allow notifications?")
	desc := dimStyle.Render("This application wants to show notifications.")
	return fmt.Sprintf("\n  %s\n  %s\n\n  %s   %s   %s\n",
		title, desc,
		accentStyle.Render("[a] Allow"),
		rejectStyle.Render("[b] Block"),
		metaStyle.Render("[esc] Not now"))
}
