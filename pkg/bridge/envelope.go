package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tabloader/pkg/tabs"
)

// ProtocolVersion is carried in every envelope.
const ProtocolVersion = 1

// Envelope types.
const (
	TypeResult = "result"

	TypeCreate  = "tabs.create"
	TypeDiscard = "tabs.discard"
	TypeReload  = "tabs.reload"
	TypeQuery   = "tabs.query"
	TypeGet     = "tabs.get"

	TypeBadge    = "ui.badge"
	TypeTitle    = "ui.title"
	TypeMenus    = "ui.menus"
	TypeSettings = "ui.settings"

	TypeMessage = "message"
	TypeHello   = "hello"
)

// Envelope wraps every frame.
type Envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	MsgID   string          `json:"msg_id"`
	ReplyTo string          `json:"reply_to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope builds an envelope with a fresh message id.
func NewEnvelope(typ string, payload any) (Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}
	return Envelope{V: ProtocolVersion, Type: typ, MsgID: uuid.NewString(), Payload: raw}, nil
}

// Reply builds the result envelope answering e.
func (e Envelope) Reply(data any, rerr *RemoteError) (Envelope, error) {
	res := Result{OK: rerr == nil, Error: rerr}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal result: %w", err)
		}
		res.Data = b
	}
	out, err := NewEnvelope(TypeResult, res)
	if err != nil {
		return Envelope{}, err
	}
	out.ReplyTo = e.MsgID
	return out, nil
}

// Decode unmarshals the payload into out.
func (e Envelope) Decode(out any) error {
	if len(e.Payload) == 0 {
		return errors.Join(ErrInvalidEnvelope, errors.New("payload is empty"))
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return errors.Join(ErrInvalidEnvelope, err)
	}
	return nil
}

// Validate checks the fields every envelope must carry.
func (e Envelope) Validate() error {
	switch {
	case e.V != ProtocolVersion:
		return fmt.Errorf("%w: protocol version %d, expected %d", ErrInvalidEnvelope, e.V, ProtocolVersion)
	case e.Type == "":
		return fmt.Errorf("%w: type is required", ErrInvalidEnvelope)
	case e.MsgID == "":
		return fmt.Errorf("%w: msg_id is required", ErrInvalidEnvelope)
	case e.Type == TypeResult && e.ReplyTo == "":
		return fmt.Errorf("%w: reply_to is required", ErrInvalidEnvelope)
	}
	return nil
}

// Result is the payload of a result envelope.
type Result struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *RemoteError    `json:"error,omitempty"`
}

// TabRef is the payload of calls and events addressing a single tab.
type TabRef struct {
	TabID tabs.ID `json:"tab_id"`
}

// StatusChange is the payload of tab.updated.
type StatusChange struct {
	TabID  tabs.ID     `json:"tab_id"`
	Status tabs.Status `json:"status"`
}

// Message is a runtime message forwarded from a content script.
type Message struct {
	Action      string   `json:"action"`
	URL         string   `json:"url,omitempty"`
	SenderTabID *tabs.ID `json:"sender_tab_id,omitempty"`
}

// Badge is the payload of ui.badge.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Title is the payload of ui.title.
type Title struct {
	Title string `json:"title"`
}
