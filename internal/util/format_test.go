package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "zero time", t: time.Time{}, want: "—"},
		{name: "future", t: now.Add(time.Minute), want: "—"},
		{name: "now", t: now, want: "—"},
		{name: "minutes", t: now.Add(-90 * time.Second), want: "1m30s"},
		{name: "hours", t: now.Add(-3 * time.Hour), want: "3h0m0s"},
		{name: "sub-second truncated", t: now.Add(-1500 * time.Millisecond), want: "1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAge(tt.t, now))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("anything", 0))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "long…", Truncate("longer", 5))
}
