package dialect

import (
	"fmt"
	"strings"
)

// scanError locates a problem in the text being scanned.
type scanError struct {
	offset int
	msg    string
}

func (e *scanError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.msg, e.offset)
}

func errAt(offset int, format string, args ...any) *scanError {
	return &scanError{offset: offset, msg: fmt.Sprintf(format, args...)}
}

// shift moves the offset of a scanError found in a substring starting at base.
func shift(err error, base int) error {
	if se, ok := err.(*scanError); ok {
		return &scanError{offset: se.offset + base, msg: se.msg}
	}
	return err
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '$'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// skipOpaque returns the index just past the string literal, quoted
// identifier or comment starting at i. It returns i unchanged when s[i]
// starts none of them.
func skipOpaque(s string, i int) (int, error) {
	switch c := s[i]; c {
	case '\'', '"', '`':
		for j := i + 1; j < len(s); j++ {
			switch s[j] {
			case '\\':
				if c != '`' {
					j++
				}
			case c:
				if j+1 < len(s) && s[j+1] == c {
					j++
					continue
				}
				return j + 1, nil
			}
		}
		return 0, errAt(i, "unterminated %c quote", c)
	case '-':
		if strings.HasPrefix(s[i:], "--") {
			if nl := strings.IndexByte(s[i:], '\n'); nl >= 0 {
				return i + nl + 1, nil
			}
			return len(s), nil
		}
	case '/':
		if strings.HasPrefix(s[i:], "/*") {
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return 0, errAt(i, "unterminated comment")
			}
			return i + 2 + end + 2, nil
		}
	}
	return i, nil
}

// closingParen returns the index of the parenthesis matching the one at open.
// Parentheses inside literals, quoted identifiers and comments are ignored.
func closingParen(s string, open int) (int, error) {
	depth := 0
	for i := open; i < len(s); {
		j, err := skipOpaque(s, i)
		if err != nil {
			return 0, err
		}
		if j != i {
			i = j
			continue
		}
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
		i++
	}
	return 0, errAt(open, "unbalanced parenthesis")
}

// checkBalanced verifies quotes are terminated and parentheses nest correctly.
func checkBalanced(s string) error {
	var opens []int
	for i := 0; i < len(s); {
		j, err := skipOpaque(s, i)
		if err != nil {
			return err
		}
		if j != i {
			i = j
			continue
		}
		switch s[i] {
		case '(':
			opens = append(opens, i)
		case ')':
			if len(opens) == 0 {
				return errAt(i, "unexpected closing parenthesis")
			}
			opens = opens[:len(opens)-1]
		}
		i++
	}
	if len(opens) > 0 {
		return errAt(opens[len(opens)-1], "unbalanced parenthesis")
	}
	return nil
}

// splitArgs splits a function argument list on top-level commas.
func splitArgs(s string) ([]string, error) {
	var args []string
	depth, last := 0, 0
	for i := 0; i < len(s); {
		j, err := skipOpaque(s, i)
		if err != nil {
			return nil, err
		}
		if j != i {
			i = j
			continue
		}
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[last:i]))
				last = i + 1
			}
		}
		i++
	}
	return append(args, strings.TrimSpace(s[last:])), nil
}

// callFunc rewrites one call given its raw argument text.
type callFunc func(args string, offset int) (string, error)

// rewriteCalls replaces every call to the named function with the output of
// fn. Matching is case-insensitive on whole identifiers and tolerates
// whitespace before the opening parenthesis. Arguments are rewritten first,
// so calls of the same function nested at any depth are all replaced.
func rewriteCalls(s, name string, fn callFunc) (string, error) {
	var b strings.Builder
	last := 0
	for i := 0; i < len(s); {
		j, err := skipOpaque(s, i)
		if err != nil {
			return "", err
		}
		if j != i {
			i = j
			continue
		}
		if !isIdentStart(s[i]) {
			i++
			continue
		}

		start := i
		for i < len(s) && isIdentChar(s[i]) {
			i++
		}
		if !strings.EqualFold(s[start:i], name) || (start > 0 && s[start-1] == '.') {
			continue
		}
		open := i
		for open < len(s) && isSpace(s[open]) {
			open++
		}
		if open >= len(s) || s[open] != '(' {
			continue
		}
		end, err := closingParen(s, open)
		if err != nil {
			return "", err
		}

		inner, err := rewriteCalls(s[open+1:end], name, fn)
		if err != nil {
			return "", shift(err, open+1)
		}
		repl, err := fn(inner, start)
		if err != nil {
			return "", err
		}

		b.WriteString(s[last:start])
		b.WriteString(repl)
		i = end + 1
		last = i
	}
	if last == 0 {
		return s, nil
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// HasKeyword reports whether the keyword appears as a whole word outside
// literals and comments.
func HasKeyword(s, keyword string) bool {
	for i := 0; i < len(s); {
		j, err := skipOpaque(s, i)
		if err != nil {
			return false
		}
		if j != i {
			i = j
			continue
		}
		if !isIdentStart(s[i]) {
			i++
			continue
		}
		start := i
		for i < len(s) && isIdentChar(s[i]) {
			i++
		}
		if strings.EqualFold(s[start:i], keyword) {
			return true
		}
	}
	return false
}

// replacePlaceholders calls fn for every '?' outside literals and comments,
// passing its 1-based ordinal.
func replacePlaceholders(s string, fn func(n int) string) (string, error) {
	var b strings.Builder
	n, last := 0, 0
	for i := 0; i < len(s); {
		j, err := skipOpaque(s, i)
		if err != nil {
			return "", err
		}
		if j != i {
			i = j
			continue
		}
		if s[i] == '?' {
			n++
			b.WriteString(s[last:i])
			b.WriteString(fn(n))
			last = i + 1
		}
		i++
	}
	if n == 0 {
		return s, nil
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// CountPlaceholders returns the number of '?' bind placeholders in canonical
// SQL, ignoring any that appear inside literals, quoted identifiers or comments.
func CountPlaceholders(sql string) int {
	count := 0
	_, err := replacePlaceholders(sql, func(n int) string {
		count = n
		return "?"
	})
	if err != nil {
		return strings.Count(sql, "?")
	}
	return count
}

// trimStatementEnd removes trailing whitespace, semicolons and comments so
// that a clause appended to the result is not swallowed by a line comment.
func trimStatementEnd(s string) string {
	end := 0
	for i := 0; i < len(s); {
		j, err := skipOpaque(s, i)
		if err != nil {
			return strings.TrimRight(s, " \t\r\n;")
		}
		if j != i {
			if c := s[i]; c == '\'' || c == '"' || c == '`' {
				end = j
			}
			i = j
			continue
		}
		if !isSpace(s[i]) && s[i] != ';' {
			end = i + 1
		}
		i++
	}
	return s[:end]
}
