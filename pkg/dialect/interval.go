package dialect

import (
	"regexp"
	"strconv"
	"strings"
)

// interval is a parsed "INTERVAL n UNIT" argument. Param is set when the
// amount is a '?' placeholder instead of a literal.
type interval struct {
	amount int
	param  bool
	unit   string // day, week, month or year
}

var intervalRe = regexp.MustCompile(`(?is)^INTERVAL\s+(\?|'?[+-]?\d+'?)\s+(DAY|WEEK|MONTH|YEAR)S?$`)

func parseInterval(s string, offset int) (interval, error) {
	m := intervalRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return interval{}, errAt(offset, "unsupported interval %q", s)
	}
	iv := interval{unit: strings.ToLower(m[2])}
	if m[1] == "?" {
		iv.param = true
		return iv, nil
	}
	n, err := strconv.Atoi(strings.Trim(m[1], "'"))
	if err != nil {
		return interval{}, errAt(offset, "invalid interval amount %q", m[1])
	}
	iv.amount = n
	return iv, nil
}

// dateArith is a parsed DATE_SUB or DATE_ADD call.
type dateArith struct {
	expr     string
	interval interval
	subtract bool
}

// fromToday reports whether the base expression is CURDATE().
func (d dateArith) fromToday() bool {
	return isNiladicCall(d.expr, "CURDATE")
}

func parseDateArith(args string, offset int, subtract bool) (dateArith, error) {
	parts, err := splitArgs(args)
	if err != nil {
		return dateArith{}, shift(err, offset)
	}
	if n := argCount(parts); n != 2 || parts[0] == "" {
		return dateArith{}, errAt(offset, "expected 2 arguments, got %d", n)
	}
	iv, err := parseInterval(parts[1], offset)
	if err != nil {
		return dateArith{}, err
	}
	return dateArith{expr: parts[0], interval: iv, subtract: subtract}, nil
}

// argCount returns the number of arguments splitArgs found. An empty
// argument list splits into a single empty part.
func argCount(parts []string) int {
	if len(parts) == 1 && parts[0] == "" {
		return 0
	}
	return len(parts)
}

// isNiladicCall reports whether s is exactly name() with optional whitespace.
func isNiladicCall(s, name string) bool {
	s = strings.TrimSpace(s)
	if len(s) < len(name) || !strings.EqualFold(s[:len(name)], name) {
		return false
	}
	rest := strings.TrimSpace(s[len(name):])
	if !strings.HasPrefix(rest, "(") {
		return false
	}
	return strings.TrimSpace(rest[1:]) == ")"
}

func noArgs(name string) callFunc {
	return func(args string, offset int) (string, error) {
		if strings.TrimSpace(args) != "" {
			return "", errAt(offset, "%s takes no arguments", name)
		}
		return "", nil
	}
}

// replaceCall returns a rule replacing a niladic function with fixed text.
func replaceCall(name, with string) rule {
	check := noArgs(name)
	return rule{name: name, apply: func(s string) (string, error) {
		return rewriteCalls(s, name, func(args string, offset int) (string, error) {
			if _, err := check(args, offset); err != nil {
				return "", err
			}
			return with, nil
		})
	}}
}

// unaryCall returns a rule rewriting a single-argument function with fn.
func unaryCall(name string, fn func(arg string) string) rule {
	return rule{name: name, apply: func(s string) (string, error) {
		return rewriteCalls(s, name, func(args string, offset int) (string, error) {
			parts, err := splitArgs(args)
			if err != nil {
				return "", shift(err, offset)
			}
			if n := argCount(parts); n != 1 {
				return "", errAt(offset, "%s expects 1 argument, got %d", name, n)
			}
			return fn(parts[0]), nil
		})
	}}
}

// dateArithRules returns rules for DATE_SUB and DATE_ADD using render.
func dateArithRules(render func(dateArith) string) []rule {
	mk := func(name string, subtract bool) rule {
		return rule{name: name, apply: func(s string) (string, error) {
			return rewriteCalls(s, name, func(args string, offset int) (string, error) {
				d, err := parseDateArith(args, offset, subtract)
				if err != nil {
					return "", err
				}
				return render(d), nil
			})
		}}
	}
	return []rule{mk("DATE_SUB", true), mk("DATE_ADD", false)}
}
