package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/pushenable/internal/config"
	"github.com/naveenspark/pushenable/pkg/vapid"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fbbf24")).
			Bold(true)

	cmdStyle   = lipgloss.NewStyle().Bold(true)
	descStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#34d474"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#b45555"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#505868"))
)

func printHelp() {
	commands := []struct{ cmd, desc string }{
		{"pushenable", "Enable push notifications (interactive TUI)"},
		{"pushenable status", "Show configuration and key check"},
		{"pushenable decode <key>", "Decode a URL-safe Base64 key"},
		{"pushenable unsubscribe <url>", "Remove a subscription from the backend"},
		{"pushenable --version", "Show version"},
		{"pushenable help", "You are here"},
	}

	fmt.Printf("\n  %s\n\n  Commands:\n", titleStyle.Render("P U S H"))
	for _, c := range commands {
		fmt.Printf("    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-30s", c.cmd)), descStyle.Render(c.desc))
	}
	fmt.Println()
}

// printDecoded writes the decoded bytes as grouped hex, 16 bytes per line,
// followed by the standard Base64 form a backend stores.
func printDecoded(w io.Writer, raw []byte, point bool) {
	fmt.Fprintf(w, "%s %d bytes\n", labelStyle.Render("length"), len(raw)) //nolint:errcheck
	for i := 0; i < len(raw); i += 16 {
		end := min(i+16, len(raw))
		fmt.Fprintf(w, "  %04x  %s\n", i, hex.EncodeToString(raw[i:end])) //nolint:errcheck
	}
	if point {
		fmt.Fprintln(w, okStyle.Render("valid uncompressed P-256 public key")) //nolint:errcheck
	} else {
		fmt.Fprintln(w, badStyle.Render("not a P-256 public key")) //nolint:errcheck
	}
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("std"), vapid.EncodeStd(raw)) //nolint:errcheck
}

func printStatus(w io.Writer, cfg *config.Config, source string, raw []byte, point bool, keyErr error) {
	row := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-14s", label)), value) //nolint:errcheck
	}
	api := cfg.APIURL
	if api == "" {
		api = descStyle.Render("(none, subscriptions stay local)")
	}

	fmt.Fprintf(w, "\n  %s\n\n", titleStyle.Render("P U S H")) //nolint:errcheck
	row("push service", cfg.PushServiceURL)
	row("backend", api)
	row("worker script", cfg.WorkerScript)
	row("ready timeout", cfg.ReadyTimeout.String())
	row("log", cfg.LogPath)
	row("key source", source)

	switch {
	case keyErr != nil:
		row("key", badStyle.Render(keyErr.Error()))
	case !point:
		row("key", badStyle.Render(fmt.Sprintf("%d bytes, not a P-256 public key", len(raw))))
	default:
		row("key", okStyle.Render(fmt.Sprintf("ok, %d bytes, %s…", len(raw), strings.ToUpper(hex.EncodeToString(raw[:4])))))
	}
	fmt.Fprintln(w) //nolint:errcheck
}
