package crdt

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// SiteID identifies an actor (a replica, a session) editing a document.
// Two actors sharing a document must never share a SiteID.
type SiteID uint32

// Position is one level of an identifier's path.
type Position struct {
	Digit  uint16
	SiteID SiteID
}

// Compare orders positions by digit, then by site.
func (p Position) Compare(o Position) int {
	switch {
	case p.Digit < o.Digit:
		return -1
	case p.Digit > o.Digit:
		return 1
	case p.SiteID < o.SiteID:
		return -1
	case p.SiteID > o.SiteID:
		return 1
	}
	return 0
}

// Identifier is a Logoot position identifier: a path of positions that can
// always be extended to make room between two neighbors, plus the clock value
// of the allocator that minted it. The last position of the path carries the
// creator's site, so (site, clock) is unique across all actors.
type Identifier struct {
	Path  []Position
	Clock uint32
}

// ErrMalformedIdentifier is returned when decoding an identifier fails.
var ErrMalformedIdentifier = errors.New("malformed identifier")

const (
	// digitMin and digitMax are never chosen as a new digit. They stand in for
	// a missing neighbor; digitMin can still appear inside a path as padding.
	digitMin = 0
	digitMax = math.MaxUint16

	// boundary caps how far from its anchor a new digit lands. The anchor is
	// the left neighbor, or the right one when only the right is known, so
	// appends keep room to the right and prepends keep room to the left.
	boundary = 10
)

// valid reports whether the identifier could have come from an Allocator: a
// non-empty path, no digit at digitMax, and a last digit above digitMin.
// Anything else leaves no room to allocate before it.
func (id Identifier) valid() bool {
	if len(id.Path) == 0 || id.Path[len(id.Path)-1].Digit == digitMin {
		return false
	}
	for _, p := range id.Path {
		if p.Digit == digitMax {
			return false
		}
	}
	return true
}

// Site returns the actor that minted the identifier.
func (id Identifier) Site() SiteID {
	if len(id.Path) == 0 {
		return 0
	}
	return id.Path[len(id.Path)-1].SiteID
}

// Compare returns -1, 0 or 1 depending on whether id sorts before, equal to, or
// after o. Paths compare level by level; a path that is a prefix of another
// sorts first. Equal paths fall back to the clock.
func (id Identifier) Compare(o Identifier) int {
	n := len(id.Path)
	if len(o.Path) < n {
		n = len(o.Path)
	}
	for i := 0; i < n; i++ {
		if c := id.Path[i].Compare(o.Path[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(id.Path) < len(o.Path):
		return -1
	case len(id.Path) > len(o.Path):
		return 1
	case id.Clock < o.Clock:
		return -1
	case id.Clock > o.Clock:
		return 1
	}
	return 0
}

// Less reports whether id sorts strictly before o.
func (id Identifier) Less(o Identifier) bool {
	return id.Compare(o) < 0
}

// Equal reports whether id and o name the same element.
func (id Identifier) Equal(o Identifier) bool {
	return id.Compare(o) == 0
}

// String encodes the identifier as "digit.site:digit.site@clock".
func (id Identifier) String() string {
	var b strings.Builder
	for i, p := range id.Path {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(strconv.FormatUint(uint64(p.Digit), 10))
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(uint64(p.SiteID), 10))
	}
	b.WriteByte('@')
	b.WriteString(strconv.FormatUint(uint64(id.Clock), 10))
	return b.String()
}

// ParseIdentifier decodes the output of Identifier.String.
func ParseIdentifier(s string) (Identifier, error) {
	path, clock, ok := strings.Cut(s, "@")
	if !ok || path == "" {
		return Identifier{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, s)
	}

	c, err := strconv.ParseUint(clock, 10, 32)
	if err != nil {
		return Identifier{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, s)
	}

	id := Identifier{Clock: uint32(c)}
	for _, part := range strings.Split(path, ":") {
		digit, site, ok := strings.Cut(part, ".")
		if !ok {
			return Identifier{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, s)
		}
		d, err := strconv.ParseUint(digit, 10, 16)
		if err != nil {
			return Identifier{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, s)
		}
		st, err := strconv.ParseUint(site, 10, 32)
		if err != nil {
			return Identifier{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, s)
		}
		id.Path = append(id.Path, Position{Digit: uint16(d), SiteID: SiteID(st)})
	}

	if !id.valid() {
		return Identifier{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, s)
	}
	return id, nil
}

// MarshalText encodes the identifier with String, so identifiers serialize as
// JSON strings.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes an identifier written by MarshalText.
func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentifier(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Allocator mints identifiers for a single site. It is not safe for concurrent
// use; a Document calls it only while holding its lock.
type Allocator struct {
	site  SiteID
	clock uint32
	rand  *rand.Rand
}

// NewAllocator returns an allocator for the given site. The digit choice is
// seeded from the site so that a replayed session allocates the same identifiers.
func NewAllocator(site SiteID) *Allocator {
	return &Allocator{
		site: site,
		rand: rand.New(rand.NewSource(int64(site) + 1)),
	}
}

// Site returns the allocator's actor.
func (a *Allocator) Site() SiteID {
	return a.site
}

// Clock returns the number of identifiers minted so far.
func (a *Allocator) Clock() uint32 {
	return a.clock
}

// Between returns a fresh identifier sorting strictly after left and strictly
// before right. A nil left means the start of the document, a nil right its end.
// The two neighbors must be adjacent in the caller's order, with left < right.
func (a *Allocator) Between(left, right *Identifier) Identifier {
	a.clock++

	var prefix []Position

	// Once the prefix sorts strictly after left (or before right) at some
	// level, that neighbor no longer constrains deeper levels.
	leftBound, rightBound := left != nil, right != nil

	for depth := 0; ; depth++ {
		lo := Position{Digit: digitMin}
		loOpen := !leftBound || depth >= len(left.Path)
		if !loOpen {
			lo = left.Path[depth]
		}

		hi := Position{Digit: digitMax}
		if rightBound {
			if depth >= len(right.Path) {
				// The prefix equals all of right, which means left sorts after
				// right. That is a caller bug.
				panic(fmt.Sprintf("crdt: allocate between %v and %v: neighbors out of order", left, right))
			}
			hi = right.Path[depth]
		}

		if gap := int(hi.Digit) - int(lo.Digit); gap > 1 {
			step := gap - 1
			if step > boundary {
				step = boundary
			}
			var digit uint16
			switch {
			case loOpen && !rightBound:
				digit = digitMax / 2
			case loOpen:
				digit = uint16(int(hi.Digit) - 1 - a.rand.Intn(step))
			default:
				digit = uint16(int(lo.Digit) + 1 + a.rand.Intn(step))
			}
			path := make([]Position, len(prefix)+1)
			copy(path, prefix)
			path[len(prefix)] = Position{Digit: digit, SiteID: a.site}
			return Identifier{Path: path, Clock: a.clock}
		}

		prefix = append(prefix, lo)

		if lo.Compare(hi) < 0 {
			rightBound = false
		}
		if loOpen {
			leftBound = false
		}
	}
}

// Observe moves the clock past a value already used by this site, so that a
// restored allocator never mints an identifier twice.
func (a *Allocator) Observe(id Identifier) {
	if id.Site() == a.site && id.Clock > a.clock {
		a.clock = id.Clock
	}
}
