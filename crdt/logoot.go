package crdt

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Document is a text document that can be edited concurrently. Every rune ever
// inserted is kept as an Element ordered by its identifier; deleted runes stay
// in place as tombstones.
//
// A single mutex guards the elements and the allocator. Every exported method
// holds it for its full duration.
type Document struct {
	mu       sync.Mutex // protects the fields below
	alloc    *Allocator
	elements []Element
	visible  int
}

// Element represents a single rune in the document.
type Element struct {
	ID        Identifier `json:"id"`
	Value     string     `json:"value"`
	Tombstone bool       `json:"tombstone"`
}

var (
	ErrPositionOutOfBounds = errors.New("position out of bounds")
	ErrUnknownIdentifier   = errors.New("unknown identifier")
)

// New returns an empty document whose inserts are attributed to site.
func New(site SiteID) *Document {
	return &Document{alloc: NewAllocator(site)}
}

// Site returns the actor this document allocates identifiers for.
func (doc *Document) Site() SiteID {
	doc.mu.Lock()
	defer doc.mu.Unlock()
	return doc.alloc.Site()
}

// Length returns the number of visible runes.
func (doc *Document) Length() int {
	doc.mu.Lock()
	defer doc.mu.Unlock()
	return doc.visible
}

// Content returns the visible text.
func (doc *Document) Content() string {
	doc.mu.Lock()
	defer doc.mu.Unlock()
	return doc.content()
}

// Elements returns every element, tombstones included, in identifier order.
// The returned slice is a copy; identifier paths are shared and must not be
// modified.
func (doc *Document) Elements() []Element {
	doc.mu.Lock()
	defer doc.mu.Unlock()

	elements := make([]Element, len(doc.elements))
	copy(elements, doc.elements)
	return elements
}

// Insert inserts value so that its first rune ends up at visible index position.
// position may equal Length() to append.
func (doc *Document) Insert(position int, value string) error {
	doc.mu.Lock()
	defer doc.mu.Unlock()

	if position < 0 || position > doc.visible {
		return fmt.Errorf("insert at %d (length %d): %w", position, doc.visible, ErrPositionOutOfBounds)
	}

	doc.insert(position, value)
	return nil
}

// Delete tombstones count visible runes starting at position. Deleting zero
// runes is a no-op.
func (doc *Document) Delete(position, count int) error {
	doc.mu.Lock()
	defer doc.mu.Unlock()

	if err := doc.checkRange(position, count); err != nil {
		return err
	}

	doc.delete(position, count)
	return nil
}

// Update replaces deleteCount visible runes at start with text. The range is
// checked before anything changes, so a failed update leaves the document as
// it was.
func (doc *Document) Update(start, deleteCount int, text string) error {
	doc.mu.Lock()
	defer doc.mu.Unlock()

	if err := doc.checkRange(start, deleteCount); err != nil {
		return err
	}

	doc.delete(start, deleteCount)
	doc.insert(start, text)
	return nil
}

// IntegrateInsert adds an element created elsewhere at the position dictated
// by its identifier. Integrating a known identifier only merges its tombstone.
func (doc *Document) IntegrateInsert(e Element) error {
	if !e.ID.valid() {
		return fmt.Errorf("integrate %q at %v: %w", e.Value, e.ID, ErrMalformedIdentifier)
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	i, found := doc.find(e.ID)
	if found {
		if e.Tombstone && !doc.elements[i].Tombstone {
			doc.elements[i].Tombstone = true
			doc.visible--
		}
		return nil
	}

	doc.elements = append(doc.elements, Element{})
	copy(doc.elements[i+1:], doc.elements[i:])
	doc.elements[i] = e
	if !e.Tombstone {
		doc.visible++
	}

	doc.alloc.Observe(e.ID)
	return nil
}

// IntegrateDelete tombstones the element with the given identifier.
func (doc *Document) IntegrateDelete(id Identifier) error {
	doc.mu.Lock()
	defer doc.mu.Unlock()

	i, found := doc.find(id)
	if !found {
		return fmt.Errorf("delete %v: %w", id, ErrUnknownIdentifier)
	}

	if !doc.elements[i].Tombstone {
		doc.elements[i].Tombstone = true
		doc.visible--
	}
	return nil
}

// The methods below expect doc.mu to be held.

func (doc *Document) content() string {
	var b strings.Builder
	for _, e := range doc.elements {
		if !e.Tombstone {
			b.WriteString(e.Value)
		}
	}
	return b.String()
}

func (doc *Document) checkRange(position, count int) error {
	if position < 0 || count < 0 || position > doc.visible || count > doc.visible-position {
		return fmt.Errorf("%d runes at %d (length %d): %w", count, position, doc.visible, ErrPositionOutOfBounds)
	}
	return nil
}

// find returns the index of id, or the index it would be inserted at.
func (doc *Document) find(id Identifier) (int, bool) {
	i := sort.Search(len(doc.elements), func(i int) bool {
		return !doc.elements[i].ID.Less(id)
	})
	return i, i < len(doc.elements) && doc.elements[i].ID.Equal(id)
}

// ithVisible returns the index into doc.elements of the visible element at
// position, or len(doc.elements) if there is none.
func (doc *Document) ithVisible(position int) int {
	count := 0
	for i, e := range doc.elements {
		if e.Tombstone {
			continue
		}
		if count == position {
			return i
		}
		count++
	}
	return len(doc.elements)
}

func (doc *Document) insert(position int, value string) {
	if value == "" {
		return
	}

	// New elements go directly after the visible rune preceding position,
	// ahead of any tombstones that follow it, so the gap they fill is empty.
	at := 0
	var left *Identifier
	if position > 0 {
		at = doc.ithVisible(position-1) + 1
		left = &doc.elements[at-1].ID
	}

	var right *Identifier
	if at < len(doc.elements) {
		right = &doc.elements[at].ID
	}

	inserted := make([]Element, 0, len(value))
	for _, r := range value {
		id := doc.alloc.Between(left, right)
		if (left != nil && !left.Less(id)) || (right != nil && !id.Less(*right)) {
			panic(fmt.Sprintf("crdt: allocated %v outside (%v, %v)", id, left, right))
		}

		inserted = append(inserted, Element{ID: id, Value: string(r)})
		left = &inserted[len(inserted)-1].ID
	}

	doc.elements = append(doc.elements[:at], append(inserted, doc.elements[at:]...)...)
	doc.visible += len(inserted)
}

func (doc *Document) delete(position, count int) {
	if count == 0 {
		return
	}

	i := doc.ithVisible(position)
	for ; count > 0 && i < len(doc.elements); i++ {
		if doc.elements[i].Tombstone {
			continue
		}
		doc.elements[i].Tombstone = true
		doc.visible--
		count--
	}
}
