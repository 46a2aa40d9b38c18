// Package billing holds the pure calculations used while applying payments:
// billing cadence conversion, period arithmetic and commission math.
package billing

import (
	"fmt"
	"strings"

	"funnel-billing/internal/domain/model"
)

// Frequency is a normalized billing cadence.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyAnnually Frequency = "annually"
)

var frequencyAliases = map[string]Frequency{
	"daily":    FrequencyDaily,
	"day":      FrequencyDaily,
	"weekly":   FrequencyWeekly,
	"week":     FrequencyWeekly,
	"monthly":  FrequencyMonthly,
	"month":    FrequencyMonthly,
	"annually": FrequencyAnnually,
	"annual":   FrequencyAnnually,
	"yearly":   FrequencyAnnually,
	"year":     FrequencyAnnually,
}

// ParseFrequency normalizes a human cadence. Matching is case-insensitive.
func ParseFrequency(s string) (Frequency, error) {
	f, ok := frequencyAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unsupported billing frequency %q", s)
	}
	return f, nil
}

// IntervalUnitFor maps a cadence to its calendar unit. Unknown cadences are an error.
func IntervalUnitFor(s string) (model.IntervalUnit, error) {
	f, err := ParseFrequency(s)
	if err != nil {
		return "", err
	}
	switch f {
	case FrequencyAnnually:
		return model.IntervalYear, nil
	case FrequencyMonthly:
		return model.IntervalMonth, nil
	case FrequencyWeekly:
		return model.IntervalWeek, nil
	default:
		return model.IntervalDay, nil
	}
}

// PeriodToken returns the relative period for count repetitions of a cadence, e.g. ("monthly", 3) -> "3m".
// A count below 1 is treated as 1.
func PeriodToken(s string, count int) (string, error) {
	unit, err := IntervalUnitFor(s)
	if err != nil {
		return "", err
	}
	if count < 1 {
		count = 1
	}
	return fmt.Sprintf("%d%s", count, unitSuffix(unit)), nil
}

func unitSuffix(u model.IntervalUnit) string {
	switch u {
	case model.IntervalYear:
		return "y"
	case model.IntervalMonth:
		return "m"
	case model.IntervalWeek:
		return "w"
	default:
		return "d"
	}
}
