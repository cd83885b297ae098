package usecase

import (
	"testing"
	"time"

	"parking-booking/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatePenalty(t *testing.T) {
	end := at(12, 0)

	tests := []struct {
		name    string
		now     time.Time
		minutes int
		hours   int
		amount  float64
	}{
		{"five minutes late", at(12, 5), 5, 1, 80},
		{"partial minute rounds up", end.Add(30 * time.Second), 1, 1, 80},
		{"exactly one hour", at(13, 0), 60, 1, 80},
		{"one hour and a minute", at(13, 1), 61, 2, 160},
		{"three and a half hours", at(15, 30), 210, 4, 320},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CalculatePenalty(end, tt.now, hourlyRate, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.minutes, p.Minutes)
			assert.Equal(t, tt.hours, p.Hours)
			assert.InDelta(t, tt.amount, p.Amount, 0.001)
		})
	}
}

func TestCalculatePenalty_NotOverstay(t *testing.T) {
	end := at(12, 0)

	for _, now := range []time.Time{end, end.Add(-time.Minute)} {
		_, err := CalculatePenalty(end, now, hourlyRate, 2)
		assert.ErrorIs(t, err, apperr.ErrNotOverstay)
	}
}

func TestSlotLabel(t *testing.T) {
	tests := []struct {
		name string
		lot  string
		n    int
		want string
	}{
		{"single word", "Main", 1, "Main-1"},
		{"spaces become hyphens", "North Wing", 3, "North-Wing-3"},
		{"runs of whitespace collapse", "  Level \t B2  ", 12, "Level-B2-12"},
		{"truncated to twenty", "Basement Parking Level Two", 7, "Basement-Parking-Lev-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SlotLabel(tt.lot, tt.n))
		})
	}
}
