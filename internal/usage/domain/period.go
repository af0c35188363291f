package domain

import (
	"strings"
	"time"
)

const periodLayout = "2006-01"

// Period is a UTC calendar month formatted YYYY-MM. It covers [Start, End).
type Period string

func PeriodOf(t time.Time) Period {
	return Period(t.UTC().Format(periodLayout))
}

func ParsePeriod(raw string) (Period, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.ParseInLocation(periodLayout, raw, time.UTC)
	if err != nil {
		return "", ErrInvalidPeriod
	}
	return PeriodOf(t), nil
}

func (p Period) Start() time.Time {
	t, err := time.ParseInLocation(periodLayout, string(p), time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start()) && t.Before(p.End())
}

func (p Period) String() string { return string(p) }
