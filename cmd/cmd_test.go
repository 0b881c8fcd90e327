package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocalID(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    int64
		wantErr bool
	}{
		{name: "valid", arg: "42", want: 42},
		{name: "zero", arg: "0", wantErr: true},
		{name: "negative", arg: "-3", wantErr: true},
		{name: "not a number", arg: "abc", wantErr: true},
		{name: "provider-looking id", arg: "18f2a9c3d4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLocalID(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeArg(t *testing.T) {
	got, err := parseTimeArg("2026-09-01T09:00:00Z", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), got)

	got, err = parseTimeArg("2026-09-01", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), got)

	// All-day events take dates, not datetimes.
	_, err = parseTimeArg("2026-09-01T09:00:00Z", true)
	assert.Error(t, err)

	_, err = parseTimeArg("", false)
	assert.Error(t, err)

	_, err = parseTimeArg("next tuesday", false)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "longer-th…", truncate("longer-than-ten", 10))
	// Multibyte subjects are cut on rune boundaries.
	assert.Equal(t, "héllo wö…", truncate("héllo wörld", 9))
}
