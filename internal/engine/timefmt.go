package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/coffersTech/topicview/internal/pkg/payload"
)

// InvalidDate is what the display formatter renders for input that is not a
// usable epoch-millisecond value.
const InvalidDate = "Invalid Date"

// maxEpochMillis is the largest magnitude a display timestamp may have
// (100,000,000 days either side of the epoch).
const maxEpochMillis = 8.64e15

var ErrInvalidTimestamp = errors.New("invalid timestamp")

// FormatTimestamp renders epoch milliseconds as MM/DD/YYYY HH:mm:ss.mmm in
// loc. Fractional milliseconds are truncated. Out-of-range or NaN input
// renders as InvalidDate.
func FormatTimestamp(ms float64, loc *time.Location) string {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxEpochMillis {
		return InvalidDate
	}
	if loc == nil {
		loc = time.Local
	}
	t := time.UnixMilli(int64(math.Trunc(ms))).In(loc)

	var b strings.Builder
	b.Grow(23)
	b.WriteString(pad(int(t.Month()), 2))
	b.WriteByte('/')
	b.WriteString(pad(t.Day(), 2))
	b.WriteByte('/')
	b.WriteString(pad(t.Year(), 4))
	b.WriteByte(' ')
	b.WriteString(pad(t.Hour(), 2))
	b.WriteByte(':')
	b.WriteString(pad(t.Minute(), 2))
	b.WriteByte(':')
	b.WriteString(pad(t.Second(), 2))
	b.WriteByte('.')
	b.WriteString(pad(t.Nanosecond()/int(time.Millisecond), 3))
	return b.String()
}

// FormatTimestampValue formats a row value holding epoch milliseconds either
// as a number or as a numeric string.
func FormatTimestampValue(v payload.Value, loc *time.Location) string {
	switch t := v.(type) {
	case payload.Number:
		return FormatTimestamp(t.Float64(), loc)
	case payload.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		if err != nil {
			return InvalidDate
		}
		return FormatTimestamp(f, loc)
	default:
		return InvalidDate
	}
}

// ParseTimestamp is the strict counterpart of the display formatter: it only
// accepts an integral epoch-millisecond value inside the displayable range.
func ParseTimestamp(s string) (int64, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	if math.Abs(float64(ms)) > maxEpochMillis {
		return 0, fmt.Errorf("%w: %d out of range", ErrInvalidTimestamp, ms)
	}
	return ms, nil
}

// pad left-pads the decimal form of n with zeros to width.
func pad(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
