package sqlmap

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseTemplate rewrites every #{expr} placeholder in query into a positional
// "?" marker and returns the expressions in the order they appear.
//
//	prepared, tags, _ := sqlmap.ParseTemplate(`UPDATE users SET name=#{u.name} WHERE id=#{u.id}`)
//	// prepared => UPDATE users SET name=? WHERE id=?
//	// tags     => ["u.name", "u.id"]
//
// An expression is either a parameter name or param.field. Quoted strings,
// quoted identifiers, comments and PostgreSQL $tag$…$tag$ bodies are copied
// verbatim. A bare "?" outside those regions is rejected because it would
// shift every later marker away from its tag. This rules out the PostgreSQL
// jsonb operators ?, ?| and ?&; use the equivalent functions
// jsonb_exists, jsonb_exists_any and jsonb_exists_all instead.
func ParseTemplate(query string) (string, []string, error) {
	var (
		b    strings.Builder
		tags []string
	)
	b.Grow(len(query))

	i := 0
	for i < len(query) {
		r, w := utf8.DecodeRuneInString(query[i:])
		switch r {
		case '\'':
			j, err := skipSingleQuoted(query, i+w)
			if err != nil {
				return "", nil, err
			}
			b.WriteString(query[i:j])
			i = j
			continue
		case '"':
			j, err := skipDoubleQuoted(query, i+w)
			if err != nil {
				return "", nil, err
			}
			b.WriteString(query[i:j])
			i = j
			continue
		case '`':
			j, err := skipBacktickQuoted(query, i+w)
			if err != nil {
				return "", nil, err
			}
			b.WriteString(query[i:j])
			i = j
			continue
		case '-':
			if hasPrefix(query[i:], "--") {
				j := skipLineComment(query, i+2)
				b.WriteString(query[i:j])
				i = j
				continue
			}
		case '/':
			if hasPrefix(query[i:], "/*") {
				j, err := skipBlockComment(query, i+2)
				if err != nil {
					return "", nil, err
				}
				b.WriteString(query[i:j])
				i = j
				continue
			}
		case '$':
			j, ok, err := skipDollarQuoted(query, i)
			if err != nil {
				return "", nil, err
			}
			if ok {
				b.WriteString(query[i:j])
				i = j
				continue
			}
		case '?':
			return "", nil, fmt.Errorf("%w: positional marker at offset %d; use #{name}", ErrBadTemplate, i)
		case '#':
			if hasPrefix(query[i:], "#{") {
				end := strings.IndexByte(query[i+2:], '}')
				if end < 0 {
					return "", nil, fmt.Errorf("%w: unterminated placeholder at offset %d", ErrBadTemplate, i)
				}
				expr := strings.TrimSpace(query[i+2 : i+2+end])
				if err := checkTag(expr); err != nil {
					return "", nil, err
				}
				tags = append(tags, expr)
				b.WriteByte('?')
				i += 2 + end + 1
				continue
			}
		}
		b.WriteString(query[i : i+w])
		i += w
	}
	return b.String(), tags, nil
}

// splitTag splits a placeholder expression into its parameter name and the
// optional field name.
func splitTag(tag string) (param, field string) {
	if k := strings.IndexByte(tag, '.'); k >= 0 {
		return tag[:k], tag[k+1:]
	}
	return tag, ""
}

func checkTag(expr string) error {
	parts := strings.Split(expr, ".")
	if len(parts) > 2 {
		return fmt.Errorf("%w: #{%s}: at most one field access is supported", ErrBadTemplate, expr)
	}
	for _, p := range parts {
		if !isIdent(p) {
			return fmt.Errorf("%w: #{%s}: invalid name %q", ErrBadTemplate, expr, p)
		}
	}
	return nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func skipSingleQuoted(s string, i int) (int, error) {
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		i += w
		if r == '\'' {
			if i < len(s) && s[i] == '\'' {
				i++
				continue
			}
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unterminated single-quoted string", ErrBadTemplate)
}

func skipDoubleQuoted(s string, i int) (int, error) {
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		i += w
		if r == '"' {
			if i < len(s) && s[i] == '"' {
				i++
				continue
			}
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unterminated double-quoted identifier", ErrBadTemplate)
}

func skipBacktickQuoted(s string, i int) (int, error) {
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		i += w
		if r == '`' {
			if i < len(s) && s[i] == '`' {
				i++
				continue
			}
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unterminated backtick-quoted identifier", ErrBadTemplate)
}

func skipLineComment(s string, i int) int {
	for i < len(s) {
		if s[i] == '\n' {
			return i + 1
		}
		i++
	}
	return i
}

func skipBlockComment(s string, i int) (int, error) {
	for i < len(s)-1 {
		if s[i] == '*' && s[i+1] == '/' {
			return i + 2, nil
		}
		i++
	}
	return 0, fmt.Errorf("%w: unterminated block comment", ErrBadTemplate)
}

// skipDollarQuoted handles $$...$$ and $tag$...$tag$ (PostgreSQL).
func skipDollarQuoted(s string, i int) (int, bool, error) {
	if s[i] != '$' {
		return 0, false, nil
	}
	j := i + 1
	for j < len(s) && s[j] != '$' && isTagChar(rune(s[j])) {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return 0, false, nil
	}
	tag := s[i : j+1]
	k := j + 1
	idx := strings.Index(s[k:], tag)
	if idx < 0 {
		return 0, true, fmt.Errorf("%w: unterminated dollar-quoted string", ErrBadTemplate)
	}
	return k + idx + len(tag), true, nil
}

func isTagChar(r rune) bool      { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }
func hasPrefix(s, p string) bool { return len(s) >= len(p) && s[:len(p)] == p }
