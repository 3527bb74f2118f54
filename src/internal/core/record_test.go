// FILE: src/internal/core/record_test.go
package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"error", LevelError},
		{"ERROR", LevelError},
		{"err", LevelError},
		{"fatal", LevelError},
		{"warn", LevelWarn},
		{"WARNING", LevelWarn},
		{"info", LevelInfo},
		{"debug", LevelDebug},
		{"trace", LevelTrace},
		{"  Info  ", LevelInfo},
		{"notice", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestTimestampSortsLexically(t *testing.T) {
	earlier := Timestamp(time.Date(2026, 8, 24, 9, 59, 59, 999e6, time.UTC))
	later := Timestamp(time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))

	assert.Len(t, earlier, len(TimestampLayout))
	assert.Less(t, earlier, later)
}
