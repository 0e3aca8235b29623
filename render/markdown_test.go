package render

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		description string
		src         string
		expected    string
	}{
		{description: "empty", src: "", expected: ""},
		{description: "heading", src: "# Jotter!", expected: "<h1>Jotter!</h1>\n"},
		{description: "paragraph", src: "some *text*", expected: "<p>some <em>text</em></p>\n"},
		{description: "strikethrough", src: "~~gone~~", expected: "<p><del>gone</del></p>\n"},
	}

	for _, tc := range tests {
		got, err := Markdown(tc.src)
		if err != nil {
			t.Fatalf("(%s) error: %v", tc.description, err)
		}
		if !cmp.Equal(got, tc.expected) {
			t.Errorf("(%s) got != expected, diff: %v\n", tc.description, cmp.Diff(got, tc.expected))
		}
	}
}
