package commons

import (
	"fmt"

	"github.com/CoHammo/jotter/crdt"
)

// Operation represents an edit made by a client.
type Operation struct {
	// Type represents the operation type: insert, delete or update.
	Type string `json:"type"`

	// Position represents the rune index at which the operation has been made.
	Position int `json:"position"`

	// Count represents the number of runes removed, for delete and update.
	Count int `json:"count,omitempty"`

	// Value represents the inserted text, for insert and update.
	Value string `json:"value,omitempty"`
}

const (
	OperationInsert = "insert"
	OperationDelete = "delete"
	OperationUpdate = "update"
)

// Apply performs the operation on doc.
func (op Operation) Apply(doc *crdt.Document) error {
	switch op.Type {
	case OperationInsert:
		return doc.Insert(op.Position, op.Value)
	case OperationDelete:
		return doc.Delete(op.Position, op.Count)
	case OperationUpdate:
		return doc.Update(op.Position, op.Count, op.Value)
	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}
