package usecase

import (
	"fmt"
	"time"

	"parking-booking/internal/apperr"
	"parking-booking/pkg/utils"
)

// Penalty is the overstay charge for a booking at a given instant.
type Penalty struct {
	Minutes int
	Hours   int
	Amount  float64
}

// CalculatePenalty prices an overstay past end at now. Every started hour is
// charged at hourlyRate*multiplier, members included.
func CalculatePenalty(end, now time.Time, hourlyRate, multiplier float64) (Penalty, error) {
	minutes := utils.CeilMinutes(now.Sub(end))
	if minutes <= 0 {
		return Penalty{}, fmt.Errorf("booking ended at %s, now %s: %w",
			end.Format(time.RFC3339), now.Format(time.RFC3339), apperr.ErrNotOverstay)
	}

	hours := (minutes + 59) / 60
	return Penalty{
		Minutes: minutes,
		Hours:   hours,
		Amount:  utils.RoundMoney(float64(hours) * hourlyRate * multiplier),
	}, nil
}
