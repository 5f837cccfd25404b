package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", " \n\n\t\n ", ""},
		{"trim", "\n\n  hello  \n\n", "hello"},
		{"collapse", "a\n\n\n\nb", "a\n\nb"},
		{"keep single blank line", "a\n\nb", "a\n\nb"},
		{"trailing spaces", "a   \nb\t\nc", "a\nb\nc"},
		{"whitespace lines", "a\n \n \n \nb", "a\n\nb"},
		{"crlf", "a\r\n\r\n\r\n\r\nb", "a\n\nb"},
		{"leading indentation kept", "a\n\n    code", "a\n\n    code"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Normalize(test.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"a\n\n \n\nb",
		" \t\n\n\n x \n\n\n\n\n y\t \r\n",
		"a \n\n\n b",
		"\n\n\n",
		"line one  \n  \n\t\n\nline two\n\n\n- item\n- item   ",
	}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}
