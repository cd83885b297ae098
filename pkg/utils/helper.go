package utils

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

// CeilHours rounds d up to whole hours. Every duration and overstay figure in
// the booking engine goes through it.
func CeilHours(d time.Duration) int {
	return int(math.Ceil(d.Hours()))
}

// CeilMinutes rounds d up to whole minutes.
func CeilMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}

// RoundMoney keeps two decimals.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// NormalizeVehicleNumber upper-cases a registration plate and drops spaces and dashes.
func NormalizeVehicleNumber(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return unicode.ToUpper(r)
	}, v)
}
