package server

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/lotas/wegweiser/internal/view"
)

// Incoming message types.
const (
	// MsgVisible reports the section the observer currently sees most of.
	MsgVisible = "visible"
	// MsgTogglePin asks the browser to toggle the pin of Key.
	MsgTogglePin = "toggle-pin"
	// MsgHello asks for the current view to be resent.
	MsgHello = "hello"
)

// Outgoing actions.
const (
	ActionView   = "view"
	ActionActive = "active"
)

// IncomingMsg is a message from the observer to the browser.
type IncomingMsg struct {
	Type       string `json:"type"`
	SectionKey string `json:"sectionKey,omitempty"`
	Key        string `json:"key,omitempty"`
	ID         string `json:"id,omitempty"`
}

// Validate checks that the fields required by Type are present.
func (m IncomingMsg) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Type, validation.Required, validation.In(MsgVisible, MsgTogglePin, MsgHello)),
		validation.Field(&m.SectionKey, validation.When(m.Type == MsgVisible, validation.Required)),
		validation.Field(&m.Key, validation.When(m.Type == MsgTogglePin, validation.Required)),
	)
}

// OutgoingMsg is pushed from the browser to the observer.
type OutgoingMsg struct {
	ID     string        `json:"id"`
	Action string        `json:"action"`
	View   *view.Payload `json:"view,omitempty"`
	// Active is the anchor id of the highlighted category.
	Active string `json:"active,omitempty"`
	Error  string `json:"error,omitempty"`
}
