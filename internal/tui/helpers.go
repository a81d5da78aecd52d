package tui

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/naveenspark/pushenable/pkg/domain"
)

// formatTime renders a relative timestamp for the push list.
func formatTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "\u2026"
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// subscriptionJSON renders a subscription in the shape a web push sender
// expects: endpoint plus keys.
func subscriptionJSON(sub domain.PushSubscription) string {
	v := struct {
		Endpoint string                  `json:"endpoint"`
		Keys     domain.SubscriptionKeys `json:"keys"`
	}{
		Endpoint: sub.Endpoint,
		Keys:     domain.SubscriptionKeys{P256dh: sub.P256dh, Auth: sub.Auth},
	}
	out, _ := json.MarshalIndent(v, "", "  ") //nolint:errcheck // fixed shape
	return string(out)
}
