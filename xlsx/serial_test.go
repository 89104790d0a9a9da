package xlsx

import (
	"testing"
)

func TestSerialToEpochMicros(t *testing.T) {
	tests := []struct {
		serial float64
		want   int64
	}{
		{25569.0, 0},                    // 1970-01-01
		{25570.0, 86_400_000_000},       // one day later
		{25569.5, 43_200_000_000},       // noon
		{25568.0, -86_400_000_000},      // one day before the epoch
		{44562.0, 1_640_995_200_000_000}, // 2022-01-01
		{0.5, -2_209_118_400_000_000},
	}
	for _, tt := range tests {
		if got := SerialToEpochMicros(tt.serial); got != tt.want {
			t.Errorf("SerialToEpochMicros(%v) = %d, want %d", tt.serial, got, tt.want)
		}
	}
}

func TestSerialToEpochMicrosGuard(t *testing.T) {
	// Serials outside the ten-thousand-year guard collapse to the epoch.
	for _, serial := range []float64{365.0 * 10000, -365.0 * 10000, 1e300} {
		if got := SerialToEpochMicros(serial); got != 0 {
			t.Errorf("SerialToEpochMicros(%v) = %d, want 0", serial, got)
		}
	}
}

func TestSerialRoundtrip(t *testing.T) {
	for _, micros := range []int64{0, 86_400_000_000, 43_200_000_000, 1_640_995_200_000_000} {
		serial := EpochMicrosToSerial(micros)
		if got := SerialToEpochMicros(serial); got != micros {
			t.Errorf("roundtrip of %d micros via serial %v = %d", micros, serial, got)
		}
	}
}

func TestDayFraction(t *testing.T) {
	if got := DayFractionOfMicros(0); got != 0 {
		t.Errorf("DayFractionOfMicros(0) = %v, want 0", got)
	}
	if got := DayFractionOfMicros(43_200_000_000); got != 0.5 {
		t.Errorf("DayFractionOfMicros(noon) = %v, want 0.5", got)
	}
}

func TestEpochMicrosToDate(t *testing.T) {
	noon := int64(43_200_000_000)
	if got := epochMicrosToDate(noon); got != 0 {
		t.Errorf("epochMicrosToDate(noon) = %d, want 0", got)
	}
	beforeEpoch := int64(-1)
	if got := epochMicrosToDate(beforeEpoch); got != -microsPerDay {
		t.Errorf("epochMicrosToDate(-1) = %d, want %d", got, int64(-microsPerDay))
	}
	if got := epochMicrosToTimeOfDay(noon + 2*microsPerDay); got != noon {
		t.Errorf("epochMicrosToTimeOfDay = %d, want %d", got, noon)
	}
}
