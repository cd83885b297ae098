package usecase

import (
	"strconv"
	"strings"
	"unicode"
)

const maxLotPrefixLen = 20

// SanitizeLotName turns a lot name into a slot label prefix: runs of
// whitespace become a single hyphen and the result is cut to 20 runes.
func SanitizeLotName(name string) string {
	prefix := strings.Join(strings.FieldsFunc(strings.TrimSpace(name), unicode.IsSpace), "-")
	if runes := []rune(prefix); len(runes) > maxLotPrefixLen {
		prefix = string(runes[:maxLotPrefixLen])
	}
	return prefix
}

// SlotLabel returns the label of slot n (1-based) in the named lot, e.g. "North-Wing-3".
// Labels are unique within a lot only.
func SlotLabel(lotName string, n int) string {
	return SanitizeLotName(lotName) + "-" + strconv.Itoa(n)
}
