package models

import "fmt"

// Period is the bucketing granularity of the summaries
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// periodFormats maps each granularity to its TO_CHAR pattern
var periodFormats = map[Period]string{
	PeriodDay:   "YYYY-MM-DD",
	PeriodMonth: "YYYY-MM",
	PeriodYear:  "YYYY",
}

// ParsePeriod validates a granularity name. An empty string means month.
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return PeriodMonth, nil
	}
	p := Period(s)
	if _, ok := periodFormats[p]; !ok {
		return "", fmt.Errorf("period must be one of day, month, year, got %q", s)
	}
	return p, nil
}

// Format returns the TO_CHAR pattern of the period
func (p Period) Format() (string, bool) {
	f, ok := periodFormats[p]
	return f, ok
}
