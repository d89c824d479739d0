// Package protocol defines the messages exchanged between the browser and
// the server over the live socket. Every message travels in an Envelope
// whose type tag selects the payload shape.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed      = errors.New("malformed message")
	ErrUnknownType    = errors.New("unknown message type")
	ErrInvalidPayload = errors.New("invalid message payload")
)

type Type string

// Client to server.
const (
	TypeContent Type = "content"
	TypeCursor  Type = "cursor"
	TypeClick   Type = "click"
	TypeSync    Type = "sync"
	TypeSave    Type = "save"
)

// Server to client.
const (
	TypeRender        Type = "render"
	TypeScrollPreview Type = "scroll-preview"
	TypeHighlight     Type = "highlight"
	TypeSetCursor     Type = "set-cursor"
	TypeSaved         Type = "saved"
	TypeError         Type = "error"
)

// Envelope is the wire form of every message.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is a typed payload.
type Message interface {
	MessageType() Type
	Validate() error
}

type kind struct {
	new             func() Message
	optionalPayload bool
}

var requests = map[Type]kind{
	TypeContent: {new: func() Message { return &Content{} }},
	TypeCursor:  {new: func() Message { return &Cursor{} }},
	TypeClick:   {new: func() Message { return &Click{} }},
	TypeSync:    {new: func() Message { return &Sync{} }, optionalPayload: true},
	TypeSave:    {new: func() Message { return &Save{} }, optionalPayload: true},
}

var responses = map[Type]kind{
	TypeRender:        {new: func() Message { return &Render{} }},
	TypeScrollPreview: {new: func() Message { return &ScrollPreview{} }},
	TypeHighlight:     {new: func() Message { return &Highlight{} }},
	TypeSetCursor:     {new: func() Message { return &SetCursor{} }},
	TypeSaved:         {new: func() Message { return &Saved{} }},
	TypeError:         {new: func() Message { return &Error{} }},
}

// Decode parses and validates a message sent by the browser.
func Decode(data []byte) (Message, error) {
	return decode(data, requests)
}

// DecodeResponse parses and validates a message sent by the server.
func DecodeResponse(data []byte) (Message, error) {
	return decode(data, responses)
}

func decode(data []byte, kinds map[Type]kind) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	k, ok := kinds[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	msg := k.new()
	payload := bytes.TrimSpace(env.Payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		if !k.optionalPayload {
			return nil, fmt.Errorf("%w: %s: missing payload", ErrInvalidPayload, env.Type)
		}
		return msg, nil
	}

	if err := json.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Type, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Type, err)
	}
	return msg, nil
}

// Encode validates msg and wraps it in an Envelope.
func Encode(msg Message) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, msg.MessageType(), err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", msg.MessageType(), err)
	}

	return json.Marshal(Envelope{Type: msg.MessageType(), Payload: payload})
}
