package querysql

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the textual form of timestamps in rendered SQL.
const TimestampLayout = "2006-01-02 15:04:05.999999"

// Literal renders v as a SQL literal. Strings are single-quoted with
// embedded quotes doubled, so the result is safe to splice into a
// statement. Execution paths bind parameters instead; Literal serves
// Explain and diagnostics.
func Literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case time.Time:
		return "'" + val.UTC().Format(TimestampLayout) + "'"
	default:
		return Literal(fmt.Sprint(val))
	}
}

// Explain inlines params into sql for display. Placeholders inside quoted
// identifiers or string literals are left alone.
func Explain(sql string, params []any) string {
	var b strings.Builder
	next := 0
	var quote rune
	for _, r := range sql {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?' && next < len(params):
			b.WriteString(Literal(params[next]))
			next++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
