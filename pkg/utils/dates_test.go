package utils

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-03-02")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("ParseDate = %v, want %v", got, want)
	}

	if _, err := ParseDate("02.03.2026"); err == nil {
		t.Fatal("ParseDate accepted a non-ISO date")
	}

	today, err := ParseDate("")
	if err != nil {
		t.Fatalf("ParseDate empty: %v", err)
	}
	if !today.Equal(Midnight(time.Now())) {
		t.Fatalf("ParseDate empty = %v, want today's midnight", today)
	}
}

func TestMidnight(t *testing.T) {
	in := time.Date(2026, 3, 2, 18, 42, 13, 500, time.Local)
	got := Midnight(in)
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatalf("Midnight = %v", got)
	}
	y, m, d := got.Date()
	if y != 2026 || m != time.March || d != 2 {
		t.Fatalf("Midnight moved the date: %v", got)
	}
}
