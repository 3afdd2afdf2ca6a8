package core

import (
	"fmt"
	"math"
	"strings"
	"time"
)

var NowFunc = time.Now // mockable

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Round1 rounds f half away from zero to one decimal place.
func Round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DateOf truncates t to midnight UTC of its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AllowedOrdering drops the orderings whose field is not in allowed.
func AllowedOrdering(ordering []DBOrdering, allowed []string) []DBOrdering {
	if len(ordering) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		set[f] = struct{}{}
	}
	out := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if _, ok := set[ord.Field]; ok {
			out = append(out, ord)
		}
	}
	return out
}

// FormatCents renders an amount of cents as a decimal string ("1234" -> "12.34").
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func BoolPtr(b bool) *bool {
	return &b
}

func Float64Ptr(f float64) *float64 {
	return &f
}
