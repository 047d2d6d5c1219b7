package ranking

import (
	"fmt"
	"math"
)

// FormatTime renders elapsed seconds as HH:MM:SS, rounding to the nearest second.
func FormatTime(seconds float64) string {
	s := int64(math.Round(clamp(seconds)))
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// FormatTimeMillis renders elapsed seconds as HH:MM:SS.mmm, rounding to the nearest millisecond.
func FormatTimeMillis(seconds float64) string {
	ms := int64(math.Round(clamp(seconds) * 1000))
	s := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", s/3600, (s/60)%60, s%60, ms%1000)
}

func clamp(seconds float64) float64 {
	if math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	return seconds
}
