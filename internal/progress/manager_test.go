package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestManager_Counts(t *testing.T) {
	var buf bytes.Buffer
	m := NewManagerWithWriter(3, true, &buf)

	m.StartReport("standard/a")
	m.StartReport("company/b")
	m.CompleteReport("standard/a", true)
	m.CompleteReport("company/b", false)
	m.PrintAbove("warning: %s", "dropped 2 metrics")
	m.Finish()

	completed, passed, failed := m.Counts()
	if completed != 2 || passed != 1 || failed != 1 {
		t.Errorf("unexpected counts %d/%d/%d", completed, passed, failed)
	}
	if !strings.Contains(buf.String(), "warning: dropped 2 metrics") {
		t.Errorf("PrintAbove output missing: %q", buf.String())
	}
}

func TestManager_Disabled(t *testing.T) {
	var buf bytes.Buffer
	m := NewManagerWithWriter(1, false, &buf)
	m.StartReport("x")
	m.CompleteReport("x", true)
	m.PrintAbove("plain line")
	m.Finish()

	if m.IsEnabled() {
		t.Error("expected disabled manager")
	}
	if buf.String() != "plain line\n" {
		t.Errorf("expected only the plain line, got %q", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{125 * time.Second, "2m5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := truncate("a very long report label", 10); got != "a very ..." {
		t.Errorf("unexpected %q", got)
	}
	if got := truncate("বাংলা", 10); got != "বাংলা" {
		t.Errorf("label within the rune limit was cut: %q", got)
	}
	got := truncate("বাংলাদেশ লিমিটেড", 8)
	if got != "বাংলা..." || !utf8.ValidString(got) {
		t.Errorf("unexpected %q", got)
	}
}
