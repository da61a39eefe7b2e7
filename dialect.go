package sqlmap

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Placeholder selects the positional parameter style for a target database.
//
// Common choices:
//   - PlaceholderQuestion   → "?"           (MySQL, SQLite, DuckDB, ClickHouse)
//   - PlaceholderDollar     → "$1, $2, …"  (PostgreSQL)
//   - PlaceholderAtP        → "@p1, @p2…"  (SQL Server)
//   - PlaceholderColonNum   → ":1, :2, …"  (Oracle)
type Placeholder int

const (
	PlaceholderQuestion Placeholder = iota
	PlaceholderDollar
	PlaceholderAtP
	PlaceholderColonNum
)

// PlaceholderFor picks a Placeholder based on a driver name string.
//
//	ph := sqlmap.PlaceholderFor("pgx")       // => PlaceholderDollar
//	ph := sqlmap.PlaceholderFor("sqlserver") // => PlaceholderAtP
//	ph := sqlmap.PlaceholderFor("sqlite")    // => PlaceholderQuestion
func PlaceholderFor(driverName string) Placeholder {
	switch strings.ToLower(driverName) {
	case "pgx", "postgres", "postgresql", "lib/pq", "pg":
		return PlaceholderDollar
	case "sqlserver", "mssql":
		return PlaceholderAtP
	case "godror", "oracle", "goracle":
		return PlaceholderColonNum
	default:
		return PlaceholderQuestion
	}
}

// Rewrite converts the "?" markers of a prepared text into ph's style.
// Markers inside quotes and comments are left alone.
func (ph Placeholder) Rewrite(query string) string {
	if ph == PlaceholderQuestion {
		return query
	}
	out := make([]byte, 0, len(query)+16)
	i, arg := 0, 1
	// An unterminated region runs to the end of the text.
	skipOrEnd := func(j int, err error) int {
		if err != nil {
			return len(query)
		}
		return j
	}

	for i < len(query) {
		r, w := utf8.DecodeRuneInString(query[i:])
		switch r {
		case '\'':
			j := skipOrEnd(skipSingleQuoted(query, i+w))
			out = append(out, query[i:j]...)
			i = j
			continue
		case '"':
			j := skipOrEnd(skipDoubleQuoted(query, i+w))
			out = append(out, query[i:j]...)
			i = j
			continue
		case '`':
			j := skipOrEnd(skipBacktickQuoted(query, i+w))
			out = append(out, query[i:j]...)
			i = j
			continue
		case '-':
			if hasPrefix(query[i:], "--") {
				j := skipLineComment(query, i+2)
				out = append(out, query[i:j]...)
				i = j
				continue
			}
		case '/':
			if hasPrefix(query[i:], "/*") {
				j := skipOrEnd(skipBlockComment(query, i+2))
				out = append(out, query[i:j]...)
				i = j
				continue
			}
		case '$':
			if j, ok, err := skipDollarQuoted(query, i); ok {
				j = skipOrEnd(j, err)
				out = append(out, query[i:j]...)
				i = j
				continue
			}
		case '?':
			switch ph {
			case PlaceholderDollar:
				out = append(out, '$')
				out = strconv.AppendInt(out, int64(arg), 10)
			case PlaceholderAtP:
				out = append(out, '@', 'p')
				out = strconv.AppendInt(out, int64(arg), 10)
			case PlaceholderColonNum:
				out = append(out, ':')
				out = strconv.AppendInt(out, int64(arg), 10)
			default:
				out = append(out, '?')
			}
			arg++
			i += w
			continue
		}
		out = append(out, query[i:i+w]...)
		i += w
	}
	return string(out)
}
