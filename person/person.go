// Package person defines the record stored in the document backend and the
// line-oriented text format those records are loaded from.
//
// Each line of the text format describes one person. Whitespace separates
// fields. The first two bare fields are the last and the first name; fields of
// the form key=value become arbitrary attributes. For example:
//
//	Doe John city=Seattle eyes=brown
package person

import (
	"sort"
	"strings"
)

const (
	KeyID        = "id"
	KeyLastName  = "last_name"
	KeyFirstName = "first_name"
)

// Record is a person as stored in the document backend. Values decoded from
// JSON or from a backend may be of any JSON type; values produced by Parse
// are always strings.
type Record map[string]interface{}

func (r Record) ID() string        { return r.str(KeyID) }
func (r Record) LastName() string  { return r.str(KeyLastName) }
func (r Record) FirstName() string { return r.str(KeyFirstName) }

func (r Record) str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Internal reports whether an attribute is backend bookkeeping that should
// never be displayed.
func Internal(key string) bool {
	return strings.HasPrefix(key, "_")
}

// Attributes returns the displayable keys of r: id, last_name and first_name
// first (when present), then the rest in lexical order.
func Attributes(r Record) []string {
	var keys []string
	for _, k := range []string{KeyID, KeyLastName, KeyFirstName} {
		if _, ok := r[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range r {
		switch k {
		case KeyID, KeyLastName, KeyFirstName:
			continue
		}
		if Internal(k) {
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// Parse converts text into records, one per non-blank line. The first bare
// field is the last name and the second the first name, wherever they appear
// among attributes. Later bare fields are dropped, and so are attributes with
// an empty key.
// Only the part between the first and the second '=' becomes the value.
func Parse(text string) []Record {
	var records []Record
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		r := make(Record)
		var bare int
		for _, field := range fields {
			if strings.Contains(field, "=") {
				parts := strings.Split(field, "=")
				if parts[0] != "" {
					r[parts[0]] = parts[1]
				}
				continue
			}
			switch bare {
			case 0:
				r[KeyLastName] = field
			case 1:
				r[KeyFirstName] = field
			}
			bare++
		}
		records = append(records, r)
	}
	return records
}

// NormalizeSpaces trims text and collapses each run of spaces into a single
// space. Other whitespace, newlines in particular, is left alone.
func NormalizeSpaces(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, c := range text {
		if c == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(c)
	}
	return b.String()
}
