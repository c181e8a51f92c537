package format

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// WriteEDN writes v as EDN. Map keys become kebab-case keywords (orderIndex -> :order-index).
func WriteEDN(w io.Writer, v any, pretty bool) error {
	x, err := generic(v)
	if err != nil {
		return err
	}
	e := ednWriter{pretty: pretty}
	e.value(x, 0)
	e.b.WriteByte('\n')
	_, err = io.WriteString(w, e.b.String())
	return err
}

type ednWriter struct {
	b      strings.Builder
	pretty bool
}

func (e *ednWriter) value(v any, level int) {
	switch t := v.(type) {
	case nil:
		e.b.WriteString("nil")
	case bool:
		e.b.WriteString(strconv.FormatBool(t))
	case string:
		e.b.WriteString(strconv.Quote(t))
	case float64:
		if t == float64(int64(t)) {
			e.b.WriteString(strconv.FormatInt(int64(t), 10))
			return
		}
		e.b.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
	case []any:
		e.seq('[', ']', len(t), level, func(i int) { e.value(t[i], level+1) })
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.seq('{', '}', len(keys), level, func(i int) {
			e.b.WriteByte(':')
			e.b.WriteString(keyword(keys[i]))
			e.b.WriteByte(' ')
			e.value(t[keys[i]], level+1)
		})
	}
}

func (e *ednWriter) seq(open, close byte, n, level int, item func(i int)) {
	e.b.WriteByte(open)
	for i := 0; i < n; i++ {
		switch {
		case e.pretty:
			e.b.WriteByte('\n')
			e.b.WriteString(strings.Repeat("  ", level+1))
		case i > 0:
			e.b.WriteByte(' ')
		}
		item(i)
	}
	if e.pretty && n > 0 {
		e.b.WriteByte('\n')
		e.b.WriteString(strings.Repeat("  ", level))
	}
	e.b.WriteByte(close)
}

func keyword(s string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		switch {
		case r == ' ' || r == '_':
			b.WriteByte('-')
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
