package source

import (
	"math"
	"strconv"
	"strings"

	"dose-calculator/core/types"
	"dose-calculator/internal/errors"
)

// ParseDate parses a user-supplied m/d/Y date
func ParseDate(field, text string) (types.Date, error) {
	d, err := types.ParseDate(text)
	if err != nil {
		return types.Date{}, errors.Validation(field, "wrong date: "+err.Error())
	}
	return d, nil
}

// ParseActivity parses a user-supplied activity in Bq. Scientific notation
// is accepted; the value is rounded to a whole becquerel.
func ParseActivity(field, text string) (float64, error) {
	v, err := parseNumber(field, text)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.Validation(field, "wrong activity: must not be negative")
	}
	return math.Round(v), nil
}

// ParseDistance parses a user-supplied distance in cm; it must be positive
func ParseDistance(text string) (float64, error) {
	v, err := parseNumber("distance", text)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, errors.Validation("distance", "wrong distance: must be greater than zero")
	}
	return v, nil
}

func parseNumber(field, text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Validation(field, "wrong "+strings.ReplaceAll(field, "_", " ")+": "+strconv.Quote(text)+" is not a number")
	}
	return v, nil
}
