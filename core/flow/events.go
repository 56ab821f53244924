package flow

// Event is an incoming user interaction, abstracted from the transport.
type Event interface {
	isEvent()
}

// TextEvent is a plain typed message.
type TextEvent struct {
	Text string
}

// CallbackEvent is an inline-button tap. Token carries the raw payload;
// MessageRef identifies the message the button belongs to, for edits.
type CallbackEvent struct {
	Token      string
	MessageRef string
}

func (TextEvent) isEvent()     {}
func (CallbackEvent) isEvent() {}
