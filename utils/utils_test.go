package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single", input: "P1", want: []string{"P1"}},
		{name: "keeps order", input: "P2, P1 ,P3", want: []string{"P2", "P1", "P3"}},
		{name: "drops blanks", input: " , P1,, ", want: []string{"P1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitList(tt.input))
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "allowed_operators", NormalizeKey("  Allowed Operators "))
	assert.Equal(t, "accountsid", NormalizeKey("AccountSid"))
	assert.Equal(t, "", NormalizeKey("   "))
}

func TestStartOfUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 01:30 at UTC+3 is still the previous day in UTC
	in := time.Date(2026, 10, 17, 1, 30, 0, 0, loc)

	got := StartOfUTCDay(in)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), got)
}

func TestNewLogger_WritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	logger, closeFn, err := NewLogger(LoggerOptions{Level: "info", Format: "json", Dir: dir, MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)

	logger.Info("hello")
	closeFn()

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, _, err := NewLogger(LoggerOptions{Level: "loud"})
	assert.Error(t, err)
}
