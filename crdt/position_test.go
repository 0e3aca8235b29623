package crdt

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func id(clock uint32, path ...Position) Identifier {
	return Identifier{Path: path, Clock: clock}
}

// TestBetween checks that an allocated identifier lands strictly between its neighbors.
func TestBetween(t *testing.T) {
	tests := []struct {
		description string
		left        *Identifier
		right       *Identifier
	}{
		{description: "empty document"},
		{description: "append", left: &Identifier{Path: []Position{{Digit: 7, SiteID: 1}}}},
		{description: "prepend", right: &Identifier{Path: []Position{{Digit: 7, SiteID: 1}}}},
		{description: "prepend before lowest digit", right: &Identifier{Path: []Position{{Digit: 1, SiteID: 2}}}},
		{description: "append after highest digit", left: &Identifier{Path: []Position{{Digit: digitMax - 1, SiteID: 2}}}},
		{
			description: "adjacent digits",
			left:        &Identifier{Path: []Position{{Digit: 4, SiteID: 1}}},
			right:       &Identifier{Path: []Position{{Digit: 5, SiteID: 1}}},
		},
		{
			description: "same digit, different sites",
			left:        &Identifier{Path: []Position{{Digit: 4, SiteID: 1}}},
			right:       &Identifier{Path: []Position{{Digit: 4, SiteID: 2}}},
		},
		{
			description: "left is a prefix of right",
			left:        &Identifier{Path: []Position{{Digit: 5, SiteID: 1}}},
			right:       &Identifier{Path: []Position{{Digit: 5, SiteID: 1}, {Digit: 3, SiteID: 2}}},
		},
		{
			description: "left is a prefix of right, no room below",
			left:        &Identifier{Path: []Position{{Digit: 5, SiteID: 1}}},
			right:       &Identifier{Path: []Position{{Digit: 5, SiteID: 1}, {Digit: 1, SiteID: 2}}},
		},
		{
			description: "right padded with the minimum digit",
			right:       &Identifier{Path: []Position{{Digit: 0, SiteID: 0}, {Digit: 1, SiteID: 2}}},
		},
		{
			description: "deep left, shallow right",
			left:        &Identifier{Path: []Position{{Digit: 4, SiteID: 1}, {Digit: digitMax - 1, SiteID: 1}}},
			right:       &Identifier{Path: []Position{{Digit: 5, SiteID: 1}}},
		},
	}

	for _, tc := range tests {
		a := NewAllocator(3)
		got := a.Between(tc.left, tc.right)

		if tc.left != nil && !tc.left.Less(got) {
			t.Errorf("(%s) got %v, not after %v", tc.description, got, tc.left)
		}
		if tc.right != nil && !got.Less(*tc.right) {
			t.Errorf("(%s) got %v, not before %v", tc.description, got, tc.right)
		}
		if got.Site() != 3 {
			t.Errorf("(%s) got site %v, expected = 3", tc.description, got.Site())
		}
	}
}

// TestBetween_ShrinkingGap inserts repeatedly into the same gap, from both sides.
func TestBetween_ShrinkingGap(t *testing.T) {
	a := NewAllocator(1)
	left := a.Between(nil, nil)
	right := a.Between(&left, nil)

	// Typing at the same cursor moves the right neighbor down.
	r := right
	for i := 0; i < 2000; i++ {
		got := a.Between(&left, &r)
		if !left.Less(got) || !got.Less(r) {
			t.Fatalf("iteration %d: %v not in (%v, %v)", i, got, left, r)
		}
		r = got
	}

	// Typing forward moves the left neighbor up.
	l := left
	for i := 0; i < 2000; i++ {
		got := a.Between(&l, &right)
		if !l.Less(got) || !got.Less(right) {
			t.Fatalf("iteration %d: %v not in (%v, %v)", i, got, l, right)
		}
		l = got
	}
}

// TestBetween_Depth checks that inserting repeatedly at either end of the
// document keeps paths short.
func TestBetween_Depth(t *testing.T) {
	const n = 20000

	a := NewAllocator(1)
	first := a.Between(nil, nil)

	front, back := first, first
	for i := 0; i < n; i++ {
		got := a.Between(nil, &front)
		if !got.Less(front) {
			t.Fatalf("prepend %d: %v not before %v", i, got, front)
		}
		front = got

		got = a.Between(&back, nil)
		if !back.Less(got) {
			t.Fatalf("append %d: %v not after %v", i, got, back)
		}
		back = got
	}

	if len(front.Path) > 6 {
		t.Errorf("got prepend depth %d after %d inserts, expected at most 6", len(front.Path), n)
	}
	if len(back.Path) > 6 {
		t.Errorf("got append depth %d after %d inserts, expected at most 6", len(back.Path), n)
	}
}

func TestBetween_Unique(t *testing.T) {
	a := NewAllocator(1)
	seen := make(map[string]bool)

	var last *Identifier
	for i := 0; i < 1000; i++ {
		got := a.Between(last, nil)
		if seen[got.String()] {
			t.Fatalf("identifier %v allocated twice", got)
		}
		seen[got.String()] = true
		last = &got
	}

	if a.Clock() != 1000 {
		t.Errorf("got clock %v, expected = 1000", a.Clock())
	}
}

// TestBetween_Sites allocates into the same gap from two sites.
func TestBetween_Sites(t *testing.T) {
	x := NewAllocator(1).Between(nil, nil)
	y := NewAllocator(2).Between(nil, nil)

	if x.Equal(y) {
		t.Fatalf("identifiers from different sites compare equal: %v", x)
	}
	if x.Compare(y) != -y.Compare(x) {
		t.Errorf("compare is not antisymmetric: %v vs %v", x, y)
	}
}

func TestIdentifierCompare(t *testing.T) {
	tests := []struct {
		description string
		a, b        Identifier
		expected    int
	}{
		{description: "digit", a: id(1, Position{2, 9}), b: id(1, Position{3, 1}), expected: -1},
		{description: "site breaks digit tie", a: id(1, Position{3, 2}), b: id(1, Position{3, 1}), expected: 1},
		{description: "prefix sorts first", a: id(9, Position{3, 1}), b: id(1, Position{3, 1}, Position{1, 1}), expected: -1},
		{description: "clock breaks path tie", a: id(2, Position{3, 1}), b: id(1, Position{3, 1}), expected: 1},
		{description: "equal", a: id(1, Position{3, 1}, Position{4, 2}), b: id(1, Position{3, 1}, Position{4, 2}), expected: 0},
	}

	for _, tc := range tests {
		got := tc.a.Compare(tc.b)
		if got != tc.expected {
			t.Errorf("(%s) got = %v, expected = %v", tc.description, got, tc.expected)
		}
	}
}

func TestParseIdentifier(t *testing.T) {
	want := id(42, Position{0, 0}, Position{17, 3}, Position{65534, 4000000000})

	got, err := ParseIdentifier(want.String())
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if !cmp.Equal(got, want) {
		t.Errorf("got != want; diff = %v", cmp.Diff(got, want))
	}
	if want.String() != "0.0:17.3:65534.4000000000@42" {
		t.Errorf("got = %v", want.String())
	}
}

func TestParseIdentifier_Malformed(t *testing.T) {
	tests := []string{
		"",
		"@1",
		"1.1",
		"1.1@",
		"1.1@x",
		"1@1",
		"65535.1@1",
		"1.1:x.2@1",
		"0.0@1",
		"3.1:0.2@1",
		"3.1:65535.2:4.1@1",
	}

	for _, s := range tests {
		_, err := ParseIdentifier(s)
		if !errors.Is(err, ErrMalformedIdentifier) {
			t.Errorf("(%q) got err = %v, expected ErrMalformedIdentifier", s, err)
		}
	}
}
