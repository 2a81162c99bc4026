package shield

import (
	"math"
	"strconv"
	"strings"

	"dose-calculator/internal/errors"
)

// ParseThickness parses a user-supplied thickness in cm
func ParseThickness(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Validation("thickness", "wrong thickness: "+strconv.Quote(text)+" is not a number")
	}
	if v < 0 {
		return 0, errors.Validation("thickness", "wrong thickness: must not be negative")
	}
	return v, nil
}
