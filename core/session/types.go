// Package session tracks per-chat conversational state: which input the
// flow expects next, opaque continuation arguments, and the in-memory cart.
// The expected-handler tag survives restarts through a debounced snapshot;
// carts are in-memory only and start fresh after a restart.
package session

import "cookbot/core/order"

// StateTag identifies which step of the order flow a chat is in.
type StateTag string

const (
	// StateStart is the resting state showing the start keyboard.
	StateStart StateTag = "start"
	// StateMenuBrowse expects a category name or "back".
	StateMenuBrowse StateTag = "menu_browse"
	// StateDishDetail is occupied while dish cards are on screen; it has
	// no text expectation of its own and falls back to start.
	StateDishDetail StateTag = "dish_detail"
	// StateCartReview expects the go-to-checkout phrase or "back".
	StateCartReview StateTag = "cart_review"
	// StateAddressInput expects the delivery address as free text.
	StateAddressInput StateTag = "address_input"
	// StateContactInput expects contact details as free text.
	StateContactInput StateTag = "contact_input"
	// StateOrderConfirm expects the confirmation digest echoed verbatim.
	StateOrderConfirm StateTag = "order_confirm"
)

// Valid reports whether the tag is one of the known flow states.
func (t StateTag) Valid() bool {
	switch t {
	case StateStart, StateMenuBrowse, StateDishDetail, StateCartReview,
		StateAddressInput, StateContactInput, StateOrderConfirm:
		return true
	}
	return false
}

// Session is the mutable conversational context for one chat. It is only
// ever touched while the store's per-chat lock is held.
type Session struct {
	ChatID int64
	State  StateTag
	// Args carries opaque continuation data for the current state.
	Args string
	// Cart is created lazily on first cart access and dropped on
	// submission; nil means the chat has not ordered anything yet.
	Cart *order.Cart
}

// Record is the durable projection of a session: handler tag and pending
// args only.
type Record struct {
	State StateTag `json:"state"`
	Args  string   `json:"args,omitempty"`
}
