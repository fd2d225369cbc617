package dict

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bounds used when a range leaves a component open.
const (
	MinDate = "00010101"
	MaxDate = "99991231"
	MinTime = "000000"
	MaxTime = "235959.999999"
)

// NormalizeDate strips ACR-NEMA style separators ("2003.07.15").
func NormalizeDate(v string) string {
	v = Clean(v)
	v = strings.ReplaceAll(v, ".", "")
	return strings.ReplaceAll(v, "-", "")
}

// NormalizeTime strips ACR-NEMA style separators ("10:15:00").
func NormalizeTime(v string) string {
	return strings.ReplaceAll(Clean(v), ":", "")
}

// ParseDate parses a DA value (YYYYMMDD).
func ParseDate(v string) (time.Time, error) {
	v = NormalizeDate(v)
	t, err := time.ParseInLocation("20060102", v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", v, err)
	}
	return t, nil
}

// ParseTime parses a TM value (HH[MM[SS[.FFFFFF]]]) into an offset from
// midnight. Missing components are zero.
func ParseTime(v string) (time.Duration, error) {
	v = NormalizeTime(v)
	if v == "" {
		return 0, fmt.Errorf("empty time")
	}
	whole, frac, _ := strings.Cut(v, ".")
	if len(whole) < 2 || len(whole) > 6 || len(whole)%2 != 0 {
		return 0, fmt.Errorf("invalid time %q", v)
	}
	limits := []int{23, 59, 60}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i := 0; i*2 < len(whole); i++ {
		n, err := strconv.Atoi(whole[i*2 : i*2+2])
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time %q", v)
		}
		d += time.Duration(n) * units[i]
	}
	if frac != "" {
		if len(frac) > 6 {
			frac = frac[:6]
		}
		micros, err := strconv.Atoi(frac + strings.Repeat("0", 6-len(frac)))
		if err != nil {
			return 0, fmt.Errorf("invalid time %q", v)
		}
		d += time.Duration(micros) * time.Microsecond
	}
	return d, nil
}

// CombineDateTime merges a DA and a TM value into one UTC timestamp.
// An empty time means midnight.
func CombineDateTime(date, tm string) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	if Clean(tm) == "" {
		return day, nil
	}
	offset, err := ParseTime(tm)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(offset), nil
}

// ParseDateTime parses a DT value: YYYY[MM[DD[HH[MM[SS[.F{1-6}]]]]]][&ZZXX].
// Values with an offset are converted to UTC; others are taken as UTC.
func ParseDateTime(v string) (time.Time, error) {
	v = Clean(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty datetime")
	}

	loc := time.UTC
	if i := strings.LastIndexAny(v, "+-"); i >= 4 {
		zone := v[i:]
		if len(zone) != 5 {
			return time.Time{}, fmt.Errorf("invalid datetime offset %q", v)
		}
		hh, err1 := strconv.Atoi(zone[1:3])
		mm, err2 := strconv.Atoi(zone[3:5])
		if err1 != nil || err2 != nil {
			return time.Time{}, fmt.Errorf("invalid datetime offset %q", v)
		}
		secs := hh*3600 + mm*60
		if zone[0] == '-' {
			secs = -secs
		}
		loc = time.FixedZone(zone, secs)
		v = v[:i]
	}

	whole, frac, hasFrac := strings.Cut(v, ".")
	if len(whole) < 4 || len(whole) > 14 || len(whole)%2 != 0 {
		return time.Time{}, fmt.Errorf("invalid datetime %q", v)
	}
	// Pad to full precision: month and day default to 01.
	padded := whole + "0101000000"[len(whole)-4:]
	t, err := time.ParseInLocation("20060102150405", padded, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q: %w", v, err)
	}
	if hasFrac && frac != "" {
		if len(frac) > 6 {
			frac = frac[:6]
		}
		micros, err := strconv.Atoi(frac + strings.Repeat("0", 6-len(frac)))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid datetime %q", v)
		}
		t = t.Add(time.Duration(micros) * time.Microsecond)
	}
	return t.UTC(), nil
}
