package enablement

import "sync"

// Button labels shown for each outcome.
const (
	LabelInitial = "Enable notifications"
	LabelGranted = "Permission granted"
	LabelDenied  = "Permission denied, keep in mind notifications are needed to use this application"
)

// Display receives the DisplayState text. Concurrent attempts may write in
// any order; the last write wins.
type Display interface {
	SetLabel(text string)
}

// Label is an in-memory Display.
type Label struct {
	mu   sync.Mutex
	text string
}

// NewLabel returns a Label showing LabelInitial.
func NewLabel() *Label {
	return &Label{text: LabelInitial}
}

// SetLabel replaces the text.
func (l *Label) SetLabel(text string) {
	l.mu.Lock()
	l.text = text
	l.mu.Unlock()
}

// Text returns the current text.
func (l *Label) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text
}
