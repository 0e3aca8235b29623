package main

import (
	"github.com/CoHammo/jotter/commons"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// performOperation sends the difference between the textarea and the last
// synced text to the server as a single update.
func (m *model) performOperation() {
	value := m.textarea.Value()

	op, changed := commons.Diff(m.text, value)
	if !changed {
		return
	}

	logger.Infof("LOCAL UPDATE: %d runes at position %v replaced with %q\n", op.Count, op.Position, op.Value)

	m.text = value
	m.send(commons.Message{Type: commons.OperationMessage, Username: m.username, Operation: op})
}

// send writes a message to the server.
func (m *model) send(msg commons.Message) {
	if m.conn == nil {
		return
	}

	err := m.conn.WriteJSON(msg)
	if err != nil {
		logger.Errorf("failed to send %s message: %v", msg.Type, err)
		m.status = "lost connection!"
	}
}

// handleMsg updates the editor with the contents of the message.
func (m *model) handleMsg(msg commons.Message) {
	switch msg.Type {
	case commons.DocSyncMessage:
		logger.Infof("DOCSYNC RECEIVED from %q, updating local text\n", msg.Username)

		m.text = msg.Document
		m.textarea.SetValue(msg.Document)

	case commons.JoinMessage:
		m.status = msg.Username + " has joined the session!"

	case commons.UsersMessage:
		m.users = msg.Text

	case commons.SaveMessage:
		m.status = msg.Text

	case commons.RenderMessage:
		m.preview = msg.Text

	case commons.ErrorMessage:
		logger.Warnf("server error: %s", msg.Text)
		m.status = "Error: " + msg.Text

	default:
		logger.Log(logrus.WarnLevel, "unknown message type ", msg.Type)
	}
}

// getMsgChan returns a message channel that repeatedly reads from a websocket
// connection. The channel is closed when reading fails.
func getMsgChan(conn ConnReader) <-chan commons.Message {
	messageChan := make(chan commons.Message)
	go func() {
		defer close(messageChan)
		for {
			var msg commons.Message

			// Read message.
			err := conn.ReadJSON(&msg)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Errorf("websocket error: %v", err)
				}
				return
			}

			logger.Debugf("message received: %+v\n", msg)

			// send message through channel
			messageChan <- msg
		}
	}()
	return messageChan
}
