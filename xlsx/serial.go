package xlsx

import (
	"math"
)

// An Excel serial is a real number of days since the 1900-01-01 epoch: the
// integer part counts days, the fraction is the time of day. The 1900
// leap-year legacy is intentionally not compensated, so dates before
// 1900-03-01 are off by one.
const (
	daysBetween1900And1970 = 25569
	secondsPerDay          = 86400
	microsPerSecond        = 1000000
	microsPerDay           = secondsPerDay * microsPerSecond
)

// serialRangeGuard bounds the serials we accept, roughly ten thousand
// years. Anything outside converts to the epoch.
const serialRangeGuard = 365.0 * 10000

// SerialToEpochMicros converts an Excel serial to microseconds since the
// Unix epoch, clamped to the representable int64 range. Serials within a
// millisecond of a whole second are snapped to it.
func SerialToEpochMicros(serial float64) int64 {
	if !(math.Abs(serial) < serialRangeGuard) {
		return 0
	}
	secs := serial * secondsPerDay
	if math.Abs(secs-math.Round(secs)) < 1e-3 {
		secs = math.Round(secs)
	}
	epochMicros := math.Round((secs - float64(daysBetween1900And1970*secondsPerDay)) * microsPerSecond)
	if epochMicros >= math.MaxInt64 {
		return math.MaxInt64
	}
	if epochMicros <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(epochMicros)
}

// EpochMicrosToSerial converts microseconds since the Unix epoch to an
// Excel serial.
func EpochMicrosToSerial(micros int64) float64 {
	return float64(micros)/float64(microsPerDay) + daysBetween1900And1970
}

// DayFractionOfMicros converts microseconds since midnight to the Excel
// day-fraction representation of a time of day. 1.0 is a full day.
func DayFractionOfMicros(micros int64) float64 {
	return float64(micros) / float64(microsPerDay)
}

// epochMicrosToDate truncates epoch microseconds to the start of the day.
func epochMicrosToDate(micros int64) int64 {
	days := micros / microsPerDay
	if micros < 0 && micros%microsPerDay != 0 {
		days--
	}
	return days * microsPerDay
}

// epochMicrosToTimeOfDay extracts the microseconds since midnight.
func epochMicrosToTimeOfDay(micros int64) int64 {
	rem := micros % microsPerDay
	if rem < 0 {
		rem += microsPerDay
	}
	return rem
}
