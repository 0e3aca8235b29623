package crdt

// CRDT is a replicated text sequence addressed by visible rune index.
type CRDT interface {
	Insert(position int, value string) error
	Delete(position, count int) error
	Content() string
	Length() int
}

var _ CRDT = (*Document)(nil)
