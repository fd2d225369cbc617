package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/dcmindex/internal/dict"
)

// dtLayout is the DICOM DT encoding without fraction or offset.
const dtLayout = "20060102150405"

// FormatValue renders a stored column value in the DICOM string encoding
// of attr. NULL renders as "".
func FormatValue(attr dict.Attribute, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		switch attr.VR {
		case dict.VR_DA:
			return x.UTC().Format("20060102")
		case dict.VR_TM:
			return x.UTC().Format("150405")
		}
		return formatDateTime(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(v)
	}
}

// formatDateTime renders a timestamp as DT, with microseconds only when
// they are non-zero.
func formatDateTime(t time.Time) string {
	t = t.UTC()
	out := t.Format(dtLayout)
	if us := t.Nanosecond() / int(time.Microsecond); us != 0 {
		out += fmt.Sprintf(".%06d", us)
	}
	return out
}
