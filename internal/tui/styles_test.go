package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/pushenable/pkg/domain"
)

func TestHelpEntryFormat(t *testing.T) {
	entry := helpEntry("q", "quit")
	if !strings.Contains(entry, "q") || !strings.Contains(entry, "quit") {
		t.Errorf("helpEntry(q, quit) = %q, want key and label", entry)
	}
}

func TestShimmerLogoContainsLetters(t *testing.T) {
	for _, frame := range []int{0, 1, 37, 500} {
		logo := renderShimmerLogo(frame)
		for _, ch := range []string{"P", "U", "S", "H"} {
			if !strings.Contains(logo, ch) {
				t.Errorf("frame %d: logo missing %q", frame, ch)
			}
		}
	}
}

func TestShimmerLogoWidthStable(t *testing.T) {
	w := lipgloss.Width(renderShimmerLogo(0))
	for frame := 1; frame < 50; frame++ {
		if got := lipgloss.Width(renderShimmerLogo(frame)); got != w {
			t.Fatalf("frame %d: width %d, want %d", frame, got, w)
		}
	}
}

func TestClampByte(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{127.9, 127},
		{300, 255},
	}
	for _, tc := range tests {
		if got := clampByte(tc.in); got != tc.want {
			t.Errorf("clampByte(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPermissionStyleRendersText(t *testing.T) {
	states := []domain.PermissionState{domain.PermissionGranted, domain.PermissionDenied, domain.PermissionDefault, "prompt"}
	for _, s := range states {
		if got := permissionStyle(s).Render(string(s)); !strings.Contains(got, string(s)) {
			t.Errorf("permissionStyle(%q) rendered %q", s, got)
		}
	}
}
