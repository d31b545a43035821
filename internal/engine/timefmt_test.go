package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffersTech/topicview/internal/pkg/payload"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name string
		ms   float64
		want string
	}{
		{"epoch", 0, "01/01/1970 00:00:00.000"},
		{"millis", 1700000000123, "11/14/2023 22:13:20.123"},
		{"fraction truncated", 1.9, "01/01/1970 00:00:00.001"},
		{"before epoch", -1000, "12/31/1969 23:59:59.000"},
		{"nan", math.NaN(), InvalidDate},
		{"inf", math.Inf(1), InvalidDate},
		{"out of range", 8.64e15 + 1, InvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimestamp(tt.ms, time.UTC))
		})
	}
}

func TestFormatTimestampUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, "01/01/1970 02:00:00.000", FormatTimestamp(0, loc))
}

func TestFormatTimestampValue(t *testing.T) {
	assert.Equal(t, "01/01/1970 00:00:01.000", FormatTimestampValue(payload.Int(1000), time.UTC))
	assert.Equal(t, "01/01/1970 00:00:01.000", FormatTimestampValue(payload.String(" 1000 "), time.UTC))
	assert.Equal(t, InvalidDate, FormatTimestampValue(payload.String("yesterday"), time.UTC))
	assert.Equal(t, InvalidDate, FormatTimestampValue(payload.Bool(true), time.UTC))
	assert.Equal(t, InvalidDate, FormatTimestampValue(payload.Null{}, time.UTC))
}

func TestParseTimestamp(t *testing.T) {
	ms, err := ParseTimestamp("1700000000123")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), ms)

	for _, in := range []string{"", "abc", "1.5", "9000000000000000"} {
		_, err := ParseTimestamp(in)
		assert.True(t, errors.Is(err, ErrInvalidTimestamp), "input %q", in)
	}
}
