package commons

import (
	"github.com/google/uuid"
)

// Message represents the message sent over the wire.
type Message struct {
	Username string `json:"username"`

	// Text represents the body of the message. This is used for joining messages, errors, the list of active users, and rendered HTML.
	Text string `json:"text"`

	// Type represents the message type.
	Type MessageType `json:"type"`

	// ID represents the client's UUID.
	ID uuid.UUID `json:"ID"`

	// Operation represents an edit.
	Operation Operation `json:"operation"`

	// Document represents the visible text of the server's document.
	Document string `json:"document"`
}

// MessageType represents the type of the message.
type MessageType string

// Currently, jotter supports 8 message types:
// - docSync (for sending the current text)
// - docReq (for requesting the current text)
// - join (for joining messages)
// - users (for the list of active users)
// - operation (for edits)
// - save (for persisting the document on the server)
// - render (for requesting, and receiving, the document as HTML)
// - error (for rejected requests)

const (
	DocSyncMessage   MessageType = "docSync"
	DocReqMessage    MessageType = "docReq"
	JoinMessage      MessageType = "join"
	UsersMessage     MessageType = "users"
	OperationMessage MessageType = "operation"
	SaveMessage      MessageType = "save"
	RenderMessage    MessageType = "render"
	ErrorMessage     MessageType = "error"
)
