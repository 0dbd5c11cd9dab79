package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinkHeader_Next(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		expected string
	}{
		{
			name:     "empty header",
			expected: "",
		},
		{
			name:     "next and last",
			values:   []string{`<https://api.example.com/pets?page=2>; rel="next", <https://api.example.com/pets?page=5>; rel="last"`},
			expected: "https://api.example.com/pets?page=2",
		},
		{
			name:     "only last",
			values:   []string{`<https://api.example.com/pets?page=1>; rel="last"`},
			expected: "",
		},
		{
			name:     "unquoted rel",
			values:   []string{`<https://api.example.com/pets?page=3>; rel=next`},
			expected: "https://api.example.com/pets?page=3",
		},
		{
			name:     "upper-case rel",
			values:   []string{`<https://api.example.com/pets?page=3>; REL="Next"`},
			expected: "https://api.example.com/pets?page=3",
		},
		{
			name:     "multiple relation types",
			values:   []string{`<https://api.example.com/pets?page=2>; rel="next last"`},
			expected: "https://api.example.com/pets?page=2",
		},
		{
			name:     "separate header values",
			values:   []string{`<https://api.example.com/pets?page=1>; rel="prev"`, `<https://api.example.com/pets?page=3>; rel="next"`},
			expected: "https://api.example.com/pets?page=3",
		},
		{
			name:     "comma inside url and title",
			values:   []string{`<https://api.example.com/pets?ids=1,2>; title="a, b"; rel="next"`},
			expected: "https://api.example.com/pets?ids=1,2",
		},
		{
			name:     "malformed part skipped",
			values:   []string{`garbage; rel="next", <https://api.example.com/pets?page=2>; rel="next"`},
			expected: "https://api.example.com/pets?page=2",
		},
		{
			name:     "unterminated url",
			values:   []string{`<https://api.example.com/pets?page=2; rel="next"`},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLinkHeader(tt.values...).Next())
		})
	}
}

func TestParseLinkHeader_Params(t *testing.T) {
	links := ParseLinkHeader(`<https://api.example.com/pets?page=1>; rel="first prev"; title="Page \"one\""; type=application/json, <https://api.example.com/pets?page=9>; rel=last`)
	require.Len(t, links, 2)

	assert.Equal(t, []string{"first", "prev"}, links[0].Rel)
	assert.Equal(t, `Page "one"`, links[0].Params["title"])
	assert.Equal(t, "application/json", links[0].Params["type"])

	assert.Equal(t, "https://api.example.com/pets?page=1", links.First())
	assert.Equal(t, "https://api.example.com/pets?page=1", links.Prev())
	assert.Equal(t, "https://api.example.com/pets?page=9", links.Last())
	assert.Empty(t, links.Next())
}

func TestParseLinkHeader_FirstRelWins(t *testing.T) {
	links := ParseLinkHeader(`<https://a.example.com/>; rel="next"; rel="last"`)
	require.Len(t, links, 1)
	assert.Equal(t, []string{"next"}, links[0].Rel)
}

func TestLinks_PreviousAlias(t *testing.T) {
	links := ParseLinkHeader(`</pets?page=1>; rel="previous"`)
	assert.Equal(t, "/pets?page=1", links.Prev())
}
