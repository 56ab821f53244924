// Package flow is the conversational core: it resolves incoming events
// against the per-chat expected handler, runs the matching transition, and
// returns effect descriptors for the transport layer to render. Nothing in
// this package performs I/O.
package flow

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"

	"cookbot/core/catalog"
	"cookbot/core/logger"
	"cookbot/core/order"
	"cookbot/core/session"
)

// Dispatcher routes events to transitions and commits the resulting state.
type Dispatcher struct {
	store *session.Store
	cat   *catalog.Catalog
}

// NewDispatcher binds the session store and the immutable catalog.
func NewDispatcher(store *session.Store, cat *catalog.Catalog) *Dispatcher {
	return &Dispatcher{store: store, cat: cat}
}

// Dispatch handles one event for one chat. Events for the same chat are
// serialized by the per-chat lock; distinct chats dispatch in parallel.
// The returned effects are rendered by the caller after the lock is
// released.
func (d *Dispatcher) Dispatch(ctx context.Context, chatID int64, event Event) []Effect {
	start := time.Now()

	unlock := d.store.Lock(chatID)
	res, from := d.run(chatID, event)
	if res.remove {
		d.store.Remove(chatID)
	} else {
		d.store.Transition(chatID, res.next, res.args)
	}
	unlock()

	next := res.next
	if res.remove {
		next = session.StateStart
	}
	logger.Debug(ctx, "flow", "dispatch",
		slog.Int64("chat_id", chatID),
		slog.String("state", string(from)),
		slog.String("next_state", string(next)),
		slog.Int("effects", len(res.effects)),
		slog.Duration("duration", logger.Took(start)),
	)
	return res.effects
}

func (d *Dispatcher) run(chatID int64, event Event) (result, session.StateTag) {
	sess := d.store.Get(chatID)
	from := sess.State

	switch ev := event.(type) {
	case CallbackEvent:
		return d.dispatchCallback(sess, ev), from
	case TextEvent:
		return d.dispatchText(sess, ev), from
	}
	return result{next: from}, from
}

func (d *Dispatcher) dispatchText(sess *session.Session, ev TextEvent) result {
	if ev.Text == "/start" {
		return d.greet()
	}
	fn, ok := textTransitions[sess.State]
	if !ok {
		return d.greet()
	}
	return fn(d, sess, ev.Text)
}

// dispatchCallback routes a button tap. Callback actions are stateless
// with respect to the conversational step: inline buttons stay tappable
// in old messages at any point of the flow.
func (d *Dispatcher) dispatchCallback(sess *session.Session, ev CallbackEvent) result {
	tok, err := ParseToken(ev.Token)
	if err != nil {
		return d.lostItem(sess, ev.Token)
	}

	switch tok.Action {
	case ActionNoop:
		return result{next: sess.State, effects: []Effect{AnswerCallback{}}}
	case ActionOpenCart:
		return d.renderCart(sess)
	case ActionShowDetails:
		return d.showDetails(sess, tok)
	case ActionShowRequirements:
		return d.showRequirements(sess, tok)
	case ActionAddToCart:
		return d.addToCart(sess, ev, tok)
	case ActionCartInc:
		return d.adjustLine(sess, ev, tok, +1)
	case ActionCartDec:
		return d.adjustLine(sess, ev, tok, -1)
	case ActionCartDel:
		return d.deleteLine(sess, ev, tok)
	}
	return d.lostItem(sess, ev.Token)
}

// lostItem is the shared degradation for malformed tokens and dishes that
// vanished from the catalog: one apology toast, no state change.
func (d *Dispatcher) lostItem(sess *session.Session, what string) result {
	return result{
		next:    sess.State,
		effects: []Effect{AnswerCallback{Text: fmt.Sprintf("Ой, мы потеряли %s", what)}},
	}
}

func (d *Dispatcher) showDetails(sess *session.Session, tok Token) result {
	dish, ok := d.cat.Dish(tok.DishID)
	if !ok {
		return d.lostItem(sess, tok.DishID)
	}
	return result{
		next: sess.State,
		effects: []Effect{
			AnswerCallback{Text: fmt.Sprintf("Посмотрим, что же вы получите с %s", dish.Name)},
			SendText{
				Body:     fmt.Sprintf("*%s*\n\n%s", dish.Name, dish.WhatYouGet),
				Markdown: true,
				Keyboard: inlineKeyboard(
					[]Button{{Label: btnWhatYouNeed, Token: Token{Action: ActionShowRequirements, DishID: dish.ID}.String()}},
					[]Button{{Label: btnAddToCart, Token: Token{Action: ActionAddToCart, DishID: dish.ID}.String()}},
				),
			},
		},
	}
}

func (d *Dispatcher) showRequirements(sess *session.Session, tok Token) result {
	dish, ok := d.cat.Dish(tok.DishID)
	if !ok {
		return d.lostItem(sess, tok.DishID)
	}
	return result{
		next: sess.State,
		effects: []Effect{
			AnswerCallback{Text: fmt.Sprintf("Чтобы приготовить %s вам нужно...", dish.Name)},
			SendText{
				Body:     fmt.Sprintf("*%s*\n\n%s", dish.Name, dish.WhatYouNeed),
				Markdown: true,
				Keyboard: inlineKeyboard(
					[]Button{{Label: btnWhatYouGet, Token: Token{Action: ActionShowDetails, DishID: dish.ID}.String()}},
					[]Button{{Label: btnAddToCart, Token: Token{Action: ActionAddToCart, DishID: dish.ID}.String()}},
				),
			},
		},
	}
}

// addToCart either opens the portion picker (no quantity argument) or sets
// the quantity and refreshes the picker in place.
func (d *Dispatcher) addToCart(sess *session.Session, ev CallbackEvent, tok Token) result {
	dish, ok := d.cat.Dish(tok.DishID)
	if !ok {
		return d.lostItem(sess, tok.DishID)
	}
	cart := d.cartFor(sess)

	if tok.HasQty && tok.Qty != 0 {
		if err := cart.SetQuantity(dish.ID, tok.Qty); err != nil {
			return d.lostItem(sess, tok.DishID)
		}
	}
	current := cart.Quantity(dish.ID)

	effects := []Effect{AnswerCallback{Text: fmt.Sprintf("Да-да, %s", dish.Name)}}
	if tok.HasQty {
		effects = append(effects, EditKeyboard{
			MessageRef: ev.MessageRef,
			Keyboard:   portionKeyboard(dish, current),
		})
	} else {
		effects = append(effects, SendText{
			Body:     fmt.Sprintf("На сколько персон вы хотите приготовить %s?", dish.Name),
			Keyboard: portionKeyboard(dish, current),
		})
	}
	return result{next: sess.State, effects: effects}
}

func (d *Dispatcher) adjustLine(sess *session.Session, ev CallbackEvent, tok Token, delta int) result {
	dish, ok := d.cat.Dish(tok.DishID)
	if !ok {
		return d.lostItem(sess, tok.DishID)
	}
	cart := d.cartFor(sess)
	if err := cart.Adjust(dish.ID, delta); err != nil {
		return d.lostItem(sess, tok.DishID)
	}
	qty := cart.Quantity(dish.ID)
	subtotal := dish.Price.Mul(decimal.NewFromInt(int64(qty))).StringFixed(2)

	return result{
		next: sess.State,
		effects: []Effect{
			AnswerCallback{Text: fmt.Sprintf("%s: %d", dish.Name, qty)},
			EditKeyboard{MessageRef: ev.MessageRef, Keyboard: cartLineKeyboard(dish.ID, qty, subtotal)},
		},
	}
}

func (d *Dispatcher) deleteLine(sess *session.Session, ev CallbackEvent, tok Token) result {
	dish, ok := d.cat.Dish(tok.DishID)
	if !ok {
		return d.lostItem(sess, tok.DishID)
	}
	cart := d.cartFor(sess)
	if err := cart.SetQuantity(dish.ID, 0); err != nil {
		return d.lostItem(sess, tok.DishID)
	}
	return result{
		next: sess.State,
		effects: []Effect{
			AnswerCallback{Text: fmt.Sprintf("Убрали %s", dish.Name)},
			EditKeyboard{MessageRef: ev.MessageRef, Keyboard: cartLineKeyboard(dish.ID, 0, "")},
		},
	}
}

func (d *Dispatcher) cartFor(sess *session.Session) *order.Cart {
	return d.store.Cart(sess.ChatID)
}

// submission projects the cart into its durable archive form.
func (d *Dispatcher) submission(sess *session.Session) order.Submission {
	cart := sess.Cart
	return order.Submission{
		ChatID:    sess.ChatID,
		Lines:     cart.Snapshot(),
		Total:     cart.Total(),
		Address:   cart.DeliveryAddress,
		Contact:   cart.ContactInfo,
		CreatedAt: time.Now().UTC(),
	}
}
