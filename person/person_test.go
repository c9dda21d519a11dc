package person_test

import (
	"testing"

	"github.com/nicolagi/rolodex/person"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want []person.Record
	}{
		{
			name: "single line with attribute",
			text: "Doe John city=Seattle\n",
			want: []person.Record{
				{"last_name": "Doe", "first_name": "John", "city": "Seattle"},
			},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "blank lines are skipped",
			text: "\n   \nSmith Jane\n\n",
			want: []person.Record{
				{"last_name": "Smith", "first_name": "Jane"},
			},
		},
		{
			name: "extra bare fields are dropped",
			text: "Doe John Jr. Esq.",
			want: []person.Record{
				{"last_name": "Doe", "first_name": "John"},
			},
		},
		{
			name: "names are the first two bare fields wherever they are",
			text: "city=Seattle Doe John\nRoe age=42 Richard Jr.",
			want: []person.Record{
				{"city": "Seattle", "last_name": "Doe", "first_name": "John"},
				{"last_name": "Roe", "first_name": "Richard", "age": "42"},
			},
		},
		{
			name: "value stops at second equals sign",
			text: "Doe John eq=a=b empty= =orphan",
			want: []person.Record{
				{"last_name": "Doe", "first_name": "John", "eq": "a", "empty": ""},
			},
		},
		{
			name: "tabs and carriage returns separate fields",
			text: "Doe\tJohn\r\nRoe Richard id=1\r\n",
			want: []person.Record{
				{"last_name": "Doe", "first_name": "John"},
				{"last_name": "Roe", "first_name": "Richard", "id": "1"},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, person.Parse(tc.text))
		})
	}
}

func TestNormalizeSpaces(t *testing.T) {
	assert.Equal(t, "", person.NormalizeSpaces("   "))
	assert.Equal(t, "Doe John city=Seattle", person.NormalizeSpaces("  Doe    John city=Seattle \n"))
	assert.Equal(t, "a b\n c", person.NormalizeSpaces("a  b\n   c"))
}

func TestAttributes(t *testing.T) {
	r := person.Record{
		"city":       "Seattle",
		"_rid":       "internal",
		"first_name": "John",
		"id":         "abc",
		"age":        "42",
		"last_name":  "Doe",
	}
	assert.Equal(t, []string{"id", "last_name", "first_name", "age", "city"}, person.Attributes(r))
	assert.Equal(t, "abc", r.ID())
	assert.Equal(t, "Doe", r.LastName())
	assert.Equal(t, "John", r.FirstName())
}

func TestRecordAccessorsIgnoreNonStrings(t *testing.T) {
	r := person.Record{"id": 12.0}
	assert.Equal(t, "", r.ID())
	c := r.Clone()
	c["id"] = "x"
	assert.Equal(t, 12.0, r["id"])
}
