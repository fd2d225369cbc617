package match

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/queryir"
)

// Range is a parsed date/time range value. An empty bound is open.
type Range struct {
	Lower string
	Upper string
	// Exact is set for values without a hyphen; Lower == Upper then.
	Exact bool
}

// ParseRange splits a range value on its single optional hyphen:
//
//	"20030701"          exact
//	"-20030728"         open lower bound
//	"20030701-"         open upper bound
//	"20030701-20030728" closed range
//
// A second hyphen is rejected, so DT bounds with a negative UTC offset
// cannot be used in ranges.
func ParseRange(v string) (Range, error) {
	v = dict.Clean(v)
	if v == "" {
		return Range{}, fmt.Errorf("empty range")
	}
	if strings.Count(v, "-") > 1 {
		return Range{}, fmt.Errorf("invalid range %q: more than one hyphen", v)
	}
	lower, upper, found := strings.Cut(v, "-")
	if !found {
		return Range{Lower: v, Upper: v, Exact: true}, nil
	}
	if lower == "" && upper == "" {
		return Range{}, fmt.Errorf("invalid range %q: no bounds", v)
	}
	return Range{Lower: lower, Upper: upper}, nil
}

// dateBounds returns the textual DA bounds with open ends filled in.
func dateBounds(r Range) (string, string) {
	lower, upper := dict.NormalizeDate(r.Lower), dict.NormalizeDate(r.Upper)
	if lower == "" {
		lower = dict.MinDate
	}
	if upper == "" {
		upper = dict.MaxDate
	}
	return lower, upper
}

// timeBounds returns the textual TM bounds. A partial lower bound is
// padded with zeros and a partial upper bound with the maximum, so
// "1015" as an upper bound covers every second of 10:15.
func timeBounds(r Range) (string, string) {
	lower, upper := dict.NormalizeTime(r.Lower), dict.NormalizeTime(r.Upper)
	if lower == "" {
		lower = dict.MinTime
	} else if !strings.Contains(lower, ".") && len(lower) < len(dict.MinTime) {
		lower += dict.MinTime[len(lower):]
	}
	if upper == "" {
		upper = dict.MaxTime
	} else if !strings.Contains(upper, ".") && len(upper) < 6 {
		upper += dict.MaxTime[len(upper):]
	}
	return lower, upper
}

// dateTimeUpper returns the last instant covered by a partial DT value:
// "2003" covers the whole year.
func dateTimeUpper(v string) (time.Time, error) {
	ts, err := dict.ParseDateTime(v)
	if err != nil {
		return time.Time{}, err
	}
	whole, _, hasFrac := strings.Cut(dict.Clean(v), ".")
	if hasFrac {
		return ts, nil
	}
	if i := strings.IndexAny(whole, "+-"); i >= 0 {
		whole = whole[:i]
	}
	switch len(whole) {
	case 4:
		ts = ts.AddDate(1, 0, 0)
	case 6:
		ts = ts.AddDate(0, 1, 0)
	case 8:
		ts = ts.AddDate(0, 0, 1)
	case 10:
		ts = ts.Add(time.Hour)
	case 12:
		ts = ts.Add(time.Minute)
	default:
		ts = ts.Add(time.Second)
	}
	return ts.Add(-time.Microsecond), nil
}

// RangePredicate builds the inequalities for a DA, TM or DT value against
// col. Values that cannot be parsed yield no filter.
func RangePredicate(col queryir.ColumnRef, vr dict.VR, v string) (queryir.Predicate, bool) {
	r, err := ParseRange(v)
	if err != nil {
		return nil, false
	}

	var lower, upper any
	switch vr {
	case dict.VR_DA:
		lower, upper = dateBounds(r)
	case dict.VR_TM:
		lower, upper = timeBounds(r)
	case dict.VR_DT:
		lo, hi, err := dateTimeBounds(r)
		if err != nil {
			return nil, false
		}
		lower, upper = lo, hi
	default:
		return nil, false
	}

	return queryir.And{Predicates: []queryir.Predicate{
		queryir.Compare{Column: col, Op: queryir.GreaterOrEqual, Value: lower},
		queryir.Compare{Column: col, Op: queryir.LessOrEqual, Value: upper},
	}}, true
}

func dateTimeBounds(r Range) (time.Time, time.Time, error) {
	lower, err := dict.ParseDateTime(orDefault(r.Lower, dict.MinDate))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	upper, err := dateTimeUpper(orDefault(r.Upper, dict.MaxDate))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return lower, upper, nil
}

// CombinedRange turns a date value and a time value from the same request
// into one timestamp range for a derived date-time column. The date range
// supplies the days, the time range the time of day at each end.
func CombinedRange(dateValue, timeValue string) (time.Time, time.Time, error) {
	dr, err := ParseRange(dateValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	tr, err := ParseRange(timeValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	dLower, dUpper := dateBounds(dr)
	tLower, tUpper := timeBounds(tr)

	lower, err := dict.CombineDateTime(dLower, tLower)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	upper, err := dict.CombineDateTime(dUpper, tUpper)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return lower, upper, nil
}

// CombinedPredicate is CombinedRange as a predicate on col.
func CombinedPredicate(col queryir.ColumnRef, dateValue, timeValue string) (queryir.Predicate, bool) {
	lower, upper, err := CombinedRange(dateValue, timeValue)
	if err != nil {
		return nil, false
	}
	return queryir.And{Predicates: []queryir.Predicate{
		queryir.Compare{Column: col, Op: queryir.GreaterOrEqual, Value: lower},
		queryir.Compare{Column: col, Op: queryir.LessOrEqual, Value: upper},
	}}, true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
