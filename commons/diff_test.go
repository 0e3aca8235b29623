package commons

import (
	"testing"

	"github.com/CoHammo/jotter/crdt"
	"github.com/google/go-cmp/cmp"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		description string
		before      string
		after       string
		expected    Operation
	}{
		{description: "type into empty document", before: "", after: "a",
			expected: Operation{Type: OperationUpdate, Position: 0, Value: "a"}},
		{description: "append", before: "foo", after: "foo!",
			expected: Operation{Type: OperationUpdate, Position: 3, Value: "!"}},
		{description: "insert in middle", before: "fo", after: "foo",
			expected: Operation{Type: OperationUpdate, Position: 2, Value: "o"}},
		{description: "backspace", before: "foo\nbar", after: "foobar",
			expected: Operation{Type: OperationUpdate, Position: 3, Count: 1}},
		{description: "replace selection", before: "hello world", after: "hello Go",
			expected: Operation{Type: OperationUpdate, Position: 6, Count: 5, Value: "Go"}},
		{description: "multibyte runes", before: "世界", after: "世の界",
			expected: Operation{Type: OperationUpdate, Position: 1, Value: "の"}},
		{description: "clear", before: "abc", after: "",
			expected: Operation{Type: OperationUpdate, Position: 0, Count: 3}},
	}

	for _, tc := range tests {
		got, changed := Diff(tc.before, tc.after)
		if !changed {
			t.Errorf("(%s) expected a change", tc.description)
		}
		if !cmp.Equal(got, tc.expected) {
			t.Errorf("(%s) got != expected, diff: %v\n", tc.description, cmp.Diff(got, tc.expected))
		}

		// Applying the operation to the old text must produce the new one.
		doc := crdt.New(1)
		if err := doc.Insert(0, tc.before); err != nil {
			t.Fatalf("(%s) error: %v", tc.description, err)
		}
		if err := got.Apply(doc); err != nil {
			t.Fatalf("(%s) error: %v", tc.description, err)
		}
		if doc.Content() != tc.after {
			t.Errorf("(%s) got = %q, expected = %q", tc.description, doc.Content(), tc.after)
		}
	}
}

func TestDiff_Unchanged(t *testing.T) {
	if _, changed := Diff("same", "same"); changed {
		t.Errorf("expected no change")
	}
}

func TestApply_UnknownType(t *testing.T) {
	op := Operation{Type: "move"}
	if err := op.Apply(crdt.New(1)); err == nil {
		t.Errorf("expected an error for unknown operation type")
	}
}
