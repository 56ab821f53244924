package flow

import "cookbot/core/order"

// Effect describes one outbound action for the transport layer to render.
// The dispatcher only decides; it never performs I/O itself.
type Effect interface {
	isEffect()
}

// KeyboardKind selects how a keyboard is attached to a message.
type KeyboardKind int

const (
	// KeyboardNone leaves the current keyboard untouched.
	KeyboardNone KeyboardKind = iota
	// KeyboardReply shows a persistent reply keyboard.
	KeyboardReply
	// KeyboardInline attaches inline buttons to the message.
	KeyboardInline
	// KeyboardRemove hides the reply keyboard.
	KeyboardRemove
)

// Button is one keyboard button. Token is set for inline buttons only;
// reply buttons send their label as text.
type Button struct {
	Label string
	Token string
}

// Keyboard is a transport-agnostic keyboard descriptor.
type Keyboard struct {
	Kind KeyboardKind
	Rows [][]Button
}

// SendText emits a text message, optionally with a keyboard. Markdown is
// set only for bodies composed with formatting; free-form user echoes stay
// plain so stray asterisks cannot break parsing.
type SendText struct {
	Body     string
	Keyboard Keyboard
	Markdown bool
}

// SendPhoto emits a photo with a caption. AssetRef is the catalog photo
// path; captions are Markdown.
type SendPhoto struct {
	AssetRef string
	Caption  string
	Keyboard Keyboard
}

// EditKeyboard replaces the inline keyboard of an existing message.
type EditKeyboard struct {
	MessageRef string
	Keyboard   Keyboard
}

// NotifyAdmin sends a message to the administrative sink chat.
type NotifyAdmin struct {
	Body string
}

// AnswerCallback shows a short toast acknowledging a button tap.
type AnswerCallback struct {
	Text string
}

// ArchiveOrder hands a submitted order to the durable order archive.
// Recording is best-effort and happens outside the dispatch lock.
type ArchiveOrder struct {
	Submission order.Submission
}

func (SendText) isEffect()       {}
func (SendPhoto) isEffect()      {}
func (EditKeyboard) isEffect()   {}
func (NotifyAdmin) isEffect()    {}
func (AnswerCallback) isEffect() {}
func (ArchiveOrder) isEffect()   {}

func replyKeyboard(rows ...[]Button) Keyboard {
	return Keyboard{Kind: KeyboardReply, Rows: rows}
}

func inlineKeyboard(rows ...[]Button) Keyboard {
	return Keyboard{Kind: KeyboardInline, Rows: rows}
}

func removeKeyboard() Keyboard {
	return Keyboard{Kind: KeyboardRemove}
}
