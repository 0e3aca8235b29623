package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/CoHammo/jotter/commons"
	"github.com/CoHammo/jotter/crdt"
	"github.com/CoHammo/jotter/render"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Upgrader instance to upgrade all HTTP connections to a WebSocket.
var upgrader = websocket.Upgrader{}

// writeWait bounds how long a slow client can hold up the hub.
const writeWait = 10 * time.Second

// client is a connected editor.
type client struct {
	id       uuid.UUID
	username string
}

// hub hosts a single document and relays its text to every connected client.
// Messages from all connections funnel into messageChan and are handled, and
// answered, by run alone, so each connection has a single writer.
type hub struct {
	doc      *crdt.Document
	fileName string
	textFile string // optional export of the visible text
	debug    bool

	messageChan chan commons.Message
	quit        chan struct{}

	mu            sync.Mutex // protects activeClients
	activeClients map[*websocket.Conn]*client
}

func newHub(doc *crdt.Document, fileName string, debug bool) *hub {
	return &hub{
		doc:           doc,
		fileName:      fileName,
		debug:         debug,
		messageChan:   make(chan commons.Message),
		quit:          make(chan struct{}),
		activeClients: make(map[*websocket.Conn]*client),
	}
}

// handleConn upgrades the connection, registers the client and forwards every
// message it sends to run.
func (h *hub) handleConn(w http.ResponseWriter, r *http.Request) {
	// Upgrade incoming HTTP connections to WebSocket connections
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading connection to websocket: %v", err)
		return
	}
	defer conn.Close()

	// Generate a UUID for the client.
	id := uuid.New()
	h.mu.Lock()
	h.activeClients[conn] = &client{id: id}
	h.mu.Unlock()

	// The new client gets the current text before anything else.
	if !h.send(commons.Message{Type: commons.DocReqMessage, ID: id}) {
		return
	}

	for {
		var msg commons.Message

		// Read message from the connection.
		err := conn.ReadJSON(&msg)
		if err != nil {
			log.Printf("Closing connection with ID: %v", id)
			h.mu.Lock()
			delete(h.activeClients, conn)
			h.mu.Unlock()
			h.send(commons.Message{Type: commons.UsersMessage, ID: id})
			return
		}

		// Set message ID
		msg.ID = id

		if !h.send(msg) {
			return
		}
	}
}

// send hands a message to run. It reports false once the hub has stopped.
func (h *hub) send(msg commons.Message) bool {
	select {
	case h.messageChan <- msg:
		return true
	case <-h.quit:
		return false
	}
}

// stop makes run return.
func (h *hub) stop() {
	close(h.quit)
}

// run handles messages until stop is called.
func (h *hub) run() {
	for {
		select {
		case msg := <-h.messageChan:
			h.handleMsg(msg)
		case <-h.quit:
			return
		}
	}
}

// handleMsg applies a message to the document and answers it.
func (h *hub) handleMsg(msg commons.Message) {
	// Log each message to stdout.
	t := time.Now().Format(time.ANSIC)
	switch msg.Type {
	case commons.OperationMessage:
		color.Green("%s >> %s %s %d %d %q\n", t, msg.Username, msg.Operation.Type, msg.Operation.Position, msg.Operation.Count, msg.Operation.Value)
	default:
		color.Green("%s >> %s %s %s\n", t, msg.Username, msg.Type, msg.Text)
	}

	switch msg.Type {
	case commons.DocReqMessage:
		h.sendTo(msg.ID, h.docSync())

	case commons.JoinMessage:
		h.mu.Lock()
		for _, c := range h.activeClients {
			if c.id == msg.ID {
				c.username = msg.Username
			}
		}
		h.mu.Unlock()

		h.broadcast(msg.ID, commons.Message{Type: commons.JoinMessage, Username: msg.Username, Text: "has joined the session."})
		h.broadcast(uuid.Nil, h.users())

	case commons.UsersMessage:
		h.broadcast(uuid.Nil, h.users())

	case commons.OperationMessage:
		err := msg.Operation.Apply(h.doc)
		if err != nil {
			log.Printf("Rejected operation from %v: %v", msg.ID, err)

			// The client's view is stale or broken; send the error and the
			// current text so that it can retry.
			h.sendTo(msg.ID, commons.Message{Type: commons.ErrorMessage, Text: err.Error()})
			h.sendTo(msg.ID, h.docSync())
			return
		}

		h.printDoc()

		update := h.docSync()
		update.Username = msg.Username
		h.broadcast(msg.ID, update)

	case commons.SaveMessage:
		if err := h.save(); err != nil {
			log.Printf("Failed to save document: %v", err)
			h.sendTo(msg.ID, commons.Message{Type: commons.ErrorMessage, Text: err.Error()})
			return
		}
		h.sendTo(msg.ID, commons.Message{Type: commons.SaveMessage, Text: "Saved document to " + h.fileName})

	case commons.RenderMessage:
		html, err := render.Markdown(h.doc.Content())
		if err != nil {
			h.sendTo(msg.ID, commons.Message{Type: commons.ErrorMessage, Text: err.Error()})
			return
		}
		h.sendTo(msg.ID, commons.Message{Type: commons.RenderMessage, Text: html})

	default:
		h.sendTo(msg.ID, commons.Message{Type: commons.ErrorMessage, Text: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

var errNoFile = errors.New("no file to save to")

// save writes the document to the hub's file.
func (h *hub) save() error {
	if h.fileName == "" {
		return errNoFile
	}
	if err := crdt.Save(h.fileName, h.doc); err != nil {
		return err
	}
	if h.textFile != "" {
		return crdt.SaveText(h.textFile, h.doc)
	}
	return nil
}

func (h *hub) docSync() commons.Message {
	return commons.Message{Type: commons.DocSyncMessage, Document: h.doc.Content()}
}

// users returns the list of named clients.
func (h *hub) users() commons.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	var names []string
	for _, c := range h.activeClients {
		if c.username != "" {
			names = append(names, c.username)
		}
	}

	sort.Strings(names)

	return commons.Message{Type: commons.UsersMessage, Text: strings.Join(names, ",")}
}

// sendTo writes msg to the client with the given ID.
func (h *hub) sendTo(id uuid.UUID, msg commons.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, c := range h.activeClients {
		if c.id == id {
			h.write(conn, msg)
			return
		}
	}
}

// broadcast writes msg to every client except the one with the given ID.
func (h *hub) broadcast(except uuid.UUID, msg commons.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, c := range h.activeClients {
		// Check the UUID to prevent sending messages to their origin.
		if c.id != except {
			h.write(conn, msg)
		}
	}
}

// write sends msg on conn, dropping the client on failure. h.mu must be held.
func (h *hub) write(conn *websocket.Conn, msg commons.Message) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message to client: %v", err)
		conn.Close()
		delete(h.activeClients, conn)
	}
}

// printDoc prints the document's elements when debugging is enabled.
func (h *hub) printDoc() {
	if !h.debug {
		return
	}

	log.Printf("---DOCUMENT STATE---")
	for i, e := range h.doc.Elements() {
		log.Printf("index: %v  value: %q  ID: %v  tombstone: %v", i, e.Value, e.ID, e.Tombstone)
	}
}
