package utils

import (
	"testing"
	"time"
)

func TestStartOfDay(t *testing.T) {
	tashkent := time.FixedZone("UZT", 5*3600)
	at := time.Date(2025, 6, 1, 3, 30, 45, 0, tashkent)

	got := StartOfDay(at)
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, tashkent)
	if !got.Equal(want) {
		t.Errorf("StartOfDay = %v, want %v", got, want)
	}
	if got.Location() != tashkent {
		t.Errorf("location = %v, want %v", got.Location(), tashkent)
	}

	// 03:30 local is the previous day in UTC; a 24h truncate would land
	// on the wrong boundary.
	if trunc := at.Truncate(24 * time.Hour); trunc.Equal(want) {
		t.Errorf("Truncate(24h) = %v unexpectedly matches local midnight", trunc)
	}
}

func TestStartOfDayIdempotent(t *testing.T) {
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	if got := StartOfDay(at); !got.Equal(at) {
		t.Errorf("StartOfDay of midnight = %v, want %v", got, at)
	}
}
