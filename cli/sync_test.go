// ABOUTME: Unit tests for sync daemon helpers
// ABOUTME: Tests interval parsing and relative time formatting
package cli

import (
	"testing"
	"time"
)

func TestParseDaemonInterval(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "minimum", input: "1m", expected: time.Minute},
		{name: "hours", input: "2h", expected: 2 * time.Hour},
		{name: "mixed", input: "1h30m", expected: 90 * time.Minute},
		{name: "too short", input: "30s", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "garbage", input: "soon", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDaemonInterval(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %s", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestFormatTimeSince(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		t        time.Time
		expected string
	}{
		{name: "seconds ago", t: now.Add(-30 * time.Second), expected: "just now"},
		{name: "one minute", t: now.Add(-1 * time.Minute), expected: "1 minute ago"},
		{name: "minutes", t: now.Add(-5 * time.Minute), expected: "5 minutes ago"},
		{name: "one hour", t: now.Add(-1 * time.Hour), expected: "1 hour ago"},
		{name: "hours", t: now.Add(-3 * time.Hour), expected: "3 hours ago"},
		{name: "one day", t: now.Add(-24 * time.Hour), expected: "1 day ago"},
		{name: "days", t: now.Add(-72 * time.Hour), expected: "3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatTimeSince(tt.t); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
