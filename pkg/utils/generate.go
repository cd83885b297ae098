package utils

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// GenerateBookingReference creates a human-facing booking code.
// Format: PARK-YYYYMMDD-HHMMSS-RANDOM
func GenerateBookingReference(now time.Time) string {
	return fmt.Sprintf("PARK-%s-%s-%06d",
		now.Format("20060102"),
		now.Format("150405"),
		rand.IntN(1000000),
	)
}
