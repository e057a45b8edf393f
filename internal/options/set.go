package options

import (
	"sort"
	"strings"
)

// Set maps header argument names (without the leading colon) to raw values.
type Set map[string]string

// Get returns the value stored for key and whether it was present.
func (s Set) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s[key]
	return v, ok
}

// Keys returns the option names in sorted order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders s back into header-argument syntax with sorted keys.
func (s Set) String() string {
	parts := make([]string, 0, len(s))
	for _, k := range s.Keys() {
		v := s[k]
		if strings.ContainsAny(v, " \t") {
			v = `"` + v + `"`
		}
		parts = append(parts, ":"+k+" "+v)
	}
	return strings.Join(parts, " ")
}

// Parse reads a header-argument string such as `:tangle src/a.py :noweb yes`.
// Arguments start at a colon that begins the string or follows whitespace;
// the value runs until the next such colon outside double quotes. Text before
// the first argument (block switches like -n) is ignored.
func Parse(raw string) Set {
	out := make(Set)
	for _, arg := range splitArgs(raw) {
		key, value, _ := strings.Cut(arg, " ")
		key = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(key, ":")))
		if key == "" {
			continue
		}
		out[key] = unquote(strings.TrimSpace(value))
	}
	return out
}

func splitArgs(raw string) []string {
	raw = strings.ReplaceAll(raw, "\t", " ")
	var (
		args    []string
		start   = -1
		inQuote bool
	)
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if ch == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote || ch != ':' {
			continue
		}
		if i > 0 && raw[i-1] != ' ' {
			continue
		}
		if i+1 >= len(raw) || raw[i+1] == ' ' {
			continue
		}
		if start >= 0 {
			args = append(args, strings.TrimSpace(raw[start:i]))
		}
		start = i
	}
	if start >= 0 {
		args = append(args, strings.TrimSpace(raw[start:]))
	}
	return args
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}
