package docs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hnrag/docs"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "hello world", "hello world"},
		{"tags stripped", "first<p>second<i>third</i>", "first second third"},
		{"entities decoded", "a &amp; b &gt; c&#x27;s", "a & b > c's"},
		{"whitespace collapsed", "  a \n\t b   c  ", "a b c"},
		{
			"hn markup",
			`I agree.<p>See <a href="https:&#x2F;&#x2F;example.com">this</a> for details.`,
			"I agree. See this for details.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, docs.CleanText(tt.in))
		})
	}
}

func TestExtractURLs(t *testing.T) {
	text := "see https://example.com/a and http://other.org then https://example.com/a again"
	require.Equal(t, []string{"https://example.com/a", "http://other.org"}, docs.ExtractURLs(text))
}

func TestExtractURLsNone(t *testing.T) {
	require.Nil(t, docs.ExtractURLs("no links here"))
	require.Nil(t, docs.ExtractURLs(""))
}
