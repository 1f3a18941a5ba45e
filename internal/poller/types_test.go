// internal/poller/types_test.go
package poller

import (
	"errors"
	"regexp"
	"strconv"
	"testing"
	"time"
)

var valueRe = regexp.MustCompile(`^[0-9]+\.[0-9]{2}$`)

func TestNewLogRecord_Format(t *testing.T) {
	at := time.Date(2026, 7, 4, 9, 8, 7, 654321000, time.UTC)

	cases := []struct {
		m    Measurement
		want LogRecord
	}{
		{Measurement{Timestamp: at, Value: 123.4, Valid: true}, LogRecord{"2026-07-04T09:08:07.654321Z", "123.40"}},
		{Measurement{Timestamp: at, Value: 0.005, Valid: true}, LogRecord{"2026-07-04T09:08:07.654321Z", "0.01"}},
		{Measurement{Timestamp: at, Value: 1999.9, Valid: true}, LogRecord{"2026-07-04T09:08:07.654321Z", "1999.90"}},
		{Measurement{Timestamp: at, Value: 88, Valid: false, Err: errors.New("x")}, LogRecord{"2026-07-04T09:08:07.654321Z", "0.00"}},
	}
	for i, c := range cases {
		if got := NewLogRecord(c.m); got != c.want {
			t.Fatalf("case %d: got=%+v want=%+v", i, got, c.want)
		}
	}
}

func TestNewLogRecord_ConvertsToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2026, 1, 1, 2, 0, 0, 0, zone)

	rec := NewLogRecord(Measurement{Timestamp: at, Value: 1, Valid: true})
	if rec.Timestamp != "2026-01-01T00:00:00.000000Z" {
		t.Fatalf("timestamp: got=%s", rec.Timestamp)
	}
}

func TestNewLogRecord_ParsesBack(t *testing.T) {
	at := time.Date(2026, 5, 17, 23, 59, 59, 999999000, time.UTC)
	for _, v := range []float64{0, 0.1, 12.34, 250, 3600.5} {
		rec := NewLogRecord(Measurement{Timestamp: at, Value: v, Valid: true})

		ts, err := time.Parse(TimestampLayout, rec.Timestamp)
		if err != nil || !ts.Equal(at) {
			t.Fatalf("timestamp %q: parsed=%v err=%v", rec.Timestamp, ts, err)
		}
		if !valueRe.MatchString(rec.Value) {
			t.Fatalf("value %q is not a 2-decimal non-negative number", rec.Value)
		}
		f, err := strconv.ParseFloat(rec.Value, 64)
		if err != nil || f < 0 {
			t.Fatalf("value %q: parsed=%v err=%v", rec.Value, f, err)
		}
	}
}
