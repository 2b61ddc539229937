package drive

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Query is a Drive v3 search expression.
// See https://developers.google.com/drive/api/guides/ref-search-terms.
type Query interface {
	String() string
}

type comparison struct {
	field string
	op    string
	value any
}

func (c comparison) String() string {
	return c.field + " " + c.op + " " + literal(c.value)
}

type membership struct {
	value string
	field string
}

func (m membership) String() string {
	return literal(m.value) + " in " + m.field
}

type hasEntry struct {
	collection string
	key, value string
}

func (h hasEntry) String() string {
	return fmt.Sprintf("%s has { key=%s and value=%s }", h.collection, literal(h.key), literal(h.value))
}

type logical struct {
	op    string
	terms []Query
}

func (l logical) String() string {
	parts := make([]string, 0, len(l.terms))
	for _, t := range l.terms {
		s := t.String()
		if s == "" {
			continue
		}
		parts = append(parts, group(t, s))
	}
	return strings.Join(parts, " "+l.op+" ")
}

func (l logical) nonEmpty() []Query {
	out := make([]Query, 0, len(l.terms))
	for _, t := range l.terms {
		if t != nil && t.String() != "" {
			out = append(out, t)
		}
	}
	return out
}

type negation struct {
	term Query
}

func (n negation) String() string {
	s := n.term.String()
	if s == "" {
		return ""
	}
	return "not " + group(n.term, s)
}

// group parenthesises a rendered term that may hold its own operators.
func group(t Query, s string) string {
	switch inner := t.(type) {
	case logical:
		if len(inner.nonEmpty()) > 1 {
			return "(" + s + ")"
		}
	case Raw:
		return "(" + s + ")"
	}
	return s
}

// Raw is a pre-built query string. It is used as is on its own and
// parenthesised when combined with other terms.
type Raw string

func (r Raw) String() string { return string(r) }

// Eq matches field = value.
func Eq(field string, value any) Query { return comparison{field, "=", value} }

// Ne matches field != value.
func Ne(field string, value any) Query { return comparison{field, "!=", value} }

// Lt matches field < value.
func Lt(field string, value any) Query { return comparison{field, "<", value} }

// Le matches field <= value.
func Le(field string, value any) Query { return comparison{field, "<=", value} }

// Gt matches field > value.
func Gt(field string, value any) Query { return comparison{field, ">", value} }

// Ge matches field >= value.
func Ge(field string, value any) Query { return comparison{field, ">=", value} }

// Contains matches field contains value (name, fullText).
func Contains(field, value string) Query { return comparison{field, "contains", value} }

// In matches 'value' in field, e.g. In(folderID, "parents").
func In(value, field string) Query { return membership{value: value, field: field} }

// Has matches a key/value entry of a map field such as properties.
func Has(collection, key, value string) Query { return hasEntry{collection, key, value} }

// HasProperty matches files with the public property key=value.
func HasProperty(key, value string) Query { return Has("properties", key, value) }

// HasAppProperty matches files with the private app property key=value.
func HasAppProperty(key, value string) Query { return Has("appProperties", key, value) }

// And joins queries with "and". Nil and empty queries are skipped.
func And(terms ...Query) Query { return logical{"and", compact(terms)} }

// Or joins queries with "or". Nil and empty queries are skipped.
func Or(terms ...Query) Query { return logical{"or", compact(terms)} }

// Not negates a query.
func Not(term Query) Query {
	if term == nil {
		return Raw("")
	}
	return negation{term}
}

// ChildrenOf matches the direct children of a folder.
func ChildrenOf(folderID string) Query { return In(folderID, "parents") }

// NotTrashed excludes trashed files.
func NotTrashed() Query { return Eq("trashed", false) }

// IsFolder matches folders.
func IsFolder() Query { return Eq("mimeType", MimeTypeFolder) }

// TitleIs matches an exact file name.
func TitleIs(title string) Query { return Eq("name", title) }

// Render returns the query string, or empty string for a nil query.
func Render(q Query) string {
	if q == nil {
		return ""
	}
	return q.String()
}

func compact(terms []Query) []Query {
	out := make([]Query, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// literal renders a value in Drive query syntax. Strings and times are quoted
// with backslash escapes for ' and \.
func literal(v any) string {
	switch val := v.(type) {
	case string:
		return quote(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return quote(val.UTC().Format(time.RFC3339))
	case fmt.Stringer:
		return quote(val.String())
	default:
		return quote(fmt.Sprint(val))
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
