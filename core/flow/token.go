package flow

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedToken reports a callback payload that fails to parse.
var ErrMalformedToken = errors.New("flow: malformed callback token")

// Action names the domain operation a callback token encodes.
type Action string

const (
	// ActionAddToCart opens the portion picker or, with a quantity
	// argument, sets the quantity directly.
	ActionAddToCart Action = "add-to-cart"
	// ActionOpenCart renders the cart review.
	ActionOpenCart Action = "open-cart"
	// ActionShowDetails shows the "what you get" card for a dish.
	ActionShowDetails Action = "show-details"
	// ActionShowRequirements shows the "what you need at home" card.
	ActionShowRequirements Action = "show-requirements"
	// ActionCartInc bumps a cart line quantity by one.
	ActionCartInc Action = "cart-inc"
	// ActionCartDec lowers a cart line quantity by one, flooring at zero.
	ActionCartDec Action = "cart-dec"
	// ActionCartDel drops a cart line entirely.
	ActionCartDel Action = "cart-del"
	// ActionNoop acknowledges the tap and does nothing. Used for the
	// informational quantity button between "-" and "+".
	ActionNoop Action = "noop"
)

const tokenSep = "__"

// Token is a parsed callback payload. Grammar: action ["__" arg]* with
// positional args: dish id first, then an optional quantity.
type Token struct {
	Action Action
	DishID string
	// Qty is meaningful only when HasQty is set.
	Qty    int
	HasQty bool
}

// ParseToken parses a raw callback payload. Tokens must round-trip parse
// independent of session state; anything off-grammar is ErrMalformedToken.
func ParseToken(raw string) (Token, error) {
	parts := strings.Split(raw, tokenSep)
	action := Action(parts[0])
	args := parts[1:]

	switch action {
	case ActionNoop, ActionOpenCart:
		if len(args) != 0 {
			return Token{}, ErrMalformedToken
		}
		return Token{Action: action}, nil

	case ActionShowDetails, ActionShowRequirements,
		ActionCartInc, ActionCartDec, ActionCartDel:
		if len(args) != 1 || args[0] == "" {
			return Token{}, ErrMalformedToken
		}
		return Token{Action: action, DishID: args[0]}, nil

	case ActionAddToCart:
		if len(args) == 0 || len(args) > 2 || args[0] == "" {
			return Token{}, ErrMalformedToken
		}
		tok := Token{Action: action, DishID: args[0]}
		if len(args) == 2 {
			qty, err := strconv.Atoi(args[1])
			if err != nil || qty < 0 {
				return Token{}, ErrMalformedToken
			}
			tok.Qty = qty
			tok.HasQty = true
		}
		return tok, nil
	}
	return Token{}, ErrMalformedToken
}

// String serializes the token back to its wire form.
func (t Token) String() string {
	var b strings.Builder
	b.WriteString(string(t.Action))
	if t.DishID != "" {
		b.WriteString(tokenSep)
		b.WriteString(t.DishID)
	}
	if t.HasQty {
		b.WriteString(tokenSep)
		b.WriteString(strconv.Itoa(t.Qty))
	}
	return b.String()
}
