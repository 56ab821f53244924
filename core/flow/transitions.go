package flow

import (
	"fmt"
	"strings"

	"cookbot/core/catalog"
	"cookbot/core/session"
)

// Reply-keyboard button labels. Typed replies are matched against these
// verbatim, so they double as text triggers.
const (
	btnBack     = "Назад"
	btnMenu     = "Меню"
	btnWeek     = "Набор недели"
	btnCart     = "Корзина"
	btnHelp     = "Инструкция"
	btnCheckout = "Перейти к оформлению заказа"
	btnGoToCart = "Перейти к корзине"

	btnWhatYouGet  = "Вы получите"
	btnWhatYouNeed = "Должно быть дома"
	btnAddToCart   = "В корзину"
)

const (
	msgGreeting       = "Приступим"
	msgHelp           = "Мы очень надеемся, что вы справитесь без инструкции"
	msgCartEmpty      = "Ваша корзина пуста"
	msgCartHeader     = "Ваша корзина:"
	msgNoActiveOrder  = "Вы ещё ничего не заказали."
	msgOrderSubmitted = "Ваш заказ отправлен в обработку!"
	msgAddressPrompt  = "Введите адрес доставки (улица, дом, подъезд, домофон, этаж, номер квартиры):"
	msgContactPrompt  = "Введите контактные данные (номер телефона), чтобы курьер мог оперативно связаться с вами:"
	msgNotConfirmed   = "Заказ не подтверждён. Отправьте текст подтверждения кнопкой ниже или вернитесь назад."
)

var portionLabels = []string{
	"На 1 персону", "На 2 персоны", "На 3 персоны", "На 4 персоны",
}

// result is the outcome of one transition: the next expected handler, the
// pending continuation args, and the effects to render. remove drops the
// whole session instead of committing a state.
type result struct {
	next    session.StateTag
	args    string
	remove  bool
	effects []Effect
}

// TransitionFn maps a typed message arriving in one state to a result.
type TransitionFn func(d *Dispatcher, sess *session.Session, text string) result

// textTransitions is the order flow expressed as data: one entry per state
// that expects typed input. Callback-driven actions route separately and
// mostly ignore this table.
var textTransitions = map[session.StateTag]TransitionFn{
	session.StateStart:        startTransition,
	session.StateMenuBrowse:   menuTransition,
	session.StateDishDetail:   fallbackTransition,
	session.StateCartReview:   cartReviewTransition,
	session.StateAddressInput: addressTransition,
	session.StateContactInput: contactTransition,
	session.StateOrderConfirm: confirmTransition,
}

func startTransition(d *Dispatcher, sess *session.Session, text string) result {
	switch text {
	case btnMenu:
		return result{
			next:    session.StateMenuBrowse,
			effects: []Effect{SendText{Body: btnMenu, Keyboard: d.menuKeyboard()}},
		}
	case btnWeek:
		var effects []Effect
		for _, dish := range d.cat.Week() {
			effects = append(effects, dishCard(dish))
		}
		return result{next: session.StateStart, effects: effects}
	case btnCart:
		return d.renderCart(sess)
	case btnHelp:
		return result{
			next:    session.StateStart,
			effects: []Effect{SendText{Body: msgHelp, Keyboard: startKeyboard()}},
		}
	}
	// unrecognized chatter in the resting state is ignored
	return result{next: session.StateStart}
}

func menuTransition(d *Dispatcher, sess *session.Session, text string) result {
	if text == btnBack {
		return d.greet()
	}
	section, ok := d.cat.Section(text)
	if !ok {
		return result{
			next:    session.StateMenuBrowse,
			effects: []Effect{SendText{Body: btnMenu, Keyboard: d.menuKeyboard()}},
		}
	}
	effects := make([]Effect, 0, len(section.Dishes))
	for _, dish := range section.Dishes {
		effects = append(effects, dishCard(dish))
	}
	return result{next: session.StateMenuBrowse, effects: effects}
}

// fallbackTransition handles typed input in callback-only states.
func fallbackTransition(d *Dispatcher, sess *session.Session, text string) result {
	return d.greet()
}

func cartReviewTransition(d *Dispatcher, sess *session.Session, text string) result {
	if text != btnCheckout {
		return d.greet()
	}
	if sess.Cart == nil || sess.Cart.IsEmpty() {
		return result{
			next:    session.StateStart,
			effects: []Effect{SendText{Body: msgCartEmpty, Keyboard: startKeyboard()}},
		}
	}
	return result{
		next:    session.StateAddressInput,
		effects: []Effect{SendText{Body: msgAddressPrompt, Keyboard: removeKeyboard()}},
	}
}

func addressTransition(d *Dispatcher, sess *session.Session, text string) result {
	if sess.Cart == nil {
		return d.noActiveOrder()
	}
	sess.Cart.DeliveryAddress = text
	return result{
		next:    session.StateContactInput,
		effects: []Effect{SendText{Body: msgContactPrompt, Keyboard: removeKeyboard()}},
	}
}

func contactTransition(d *Dispatcher, sess *session.Session, text string) result {
	if sess.Cart == nil {
		return d.noActiveOrder()
	}
	cart := sess.Cart
	cart.ContactInfo = text
	body := fmt.Sprintf(
		"Подтвердите Ваш заказ на сумму %s грн.\n\nАдрес доставки: %s\nКонтактные данные: %s",
		cart.Total().StringFixed(2), cart.DeliveryAddress, cart.ContactInfo,
	)
	return result{
		next: session.StateOrderConfirm,
		effects: []Effect{
			SendText{Body: body, Keyboard: confirmKeyboard(cart.ConfirmationDigest())},
		},
	}
}

func confirmTransition(d *Dispatcher, sess *session.Session, text string) result {
	if text == btnBack {
		return d.renderCart(sess)
	}
	if sess.Cart == nil {
		return d.noActiveOrder()
	}
	cart := sess.Cart
	if text == cart.ConfirmationDigest() {
		return result{
			remove: true,
			effects: []Effect{
				NotifyAdmin{Body: d.adminOrderBody(sess)},
				ArchiveOrder{Submission: d.submission(sess)},
				SendText{Body: msgOrderSubmitted, Keyboard: startKeyboard()},
			},
		}
	}
	// a stray reply must not silently discard the pending order
	return result{
		next: session.StateOrderConfirm,
		effects: []Effect{
			SendText{Body: msgNotConfirmed, Keyboard: confirmKeyboard(cart.ConfirmationDigest())},
		},
	}
}

// greet returns the chat to the resting state with the start keyboard.
func (d *Dispatcher) greet() result {
	return result{
		next:    session.StateStart,
		effects: []Effect{SendText{Body: msgGreeting, Keyboard: startKeyboard()}},
	}
}

// noActiveOrder recovers checkout steps reached without a live cart, e.g.
// after a restart restored the handler tag but dropped the in-memory cart.
func (d *Dispatcher) noActiveOrder() result {
	return result{
		next: session.StateStart,
		effects: []Effect{
			SendText{Body: msgNoActiveOrder},
			SendText{Body: msgGreeting, Keyboard: startKeyboard()},
		},
	}
}

// renderCart produces the full cart review: a header, one photo card with
// inline quantity controls per line, and the pay prompt. An empty cart
// returns the chat to the resting state instead.
func (d *Dispatcher) renderCart(sess *session.Session) result {
	if sess.Cart == nil || sess.Cart.IsEmpty() {
		return result{
			next:    session.StateStart,
			effects: []Effect{SendText{Body: msgCartEmpty, Keyboard: startKeyboard()}},
		}
	}

	effects := []Effect{SendText{Body: msgCartHeader}}
	for _, line := range sess.Cart.Snapshot() {
		dish, ok := d.cat.Dish(line.DishID)
		if !ok {
			continue
		}
		effects = append(effects, SendPhoto{
			AssetRef: dish.PhotoPath,
			Caption:  fmt.Sprintf("*%s*\n%s грн.", dish.Name, dish.Price.StringFixed(2)),
			Keyboard: cartLineKeyboard(dish.ID, line.Quantity, line.Subtotal.StringFixed(2)),
		})
	}
	effects = append(effects, SendText{
		Body: fmt.Sprintf(
			"К оплате %s грн. После подтверждения заказа, в чат присоединится оператор.",
			sess.Cart.Total().StringFixed(2),
		),
		Keyboard: replyKeyboard([]Button{{Label: btnCheckout}, {Label: btnBack}}),
	})
	return result{next: session.StateCartReview, effects: effects}
}

func (d *Dispatcher) adminOrderBody(sess *session.Session) string {
	cart := sess.Cart
	var b strings.Builder
	fmt.Fprintf(&b, "НОВЫЙ ЗАКАЗ! Чат #%d\n\n", sess.ChatID)
	for _, line := range cart.Snapshot() {
		name := line.DishID
		if dish, ok := d.cat.Dish(line.DishID); ok {
			name = dish.Name
		}
		fmt.Fprintf(&b, "* %s (x%d)\n", name, line.Quantity)
	}
	fmt.Fprintf(&b, "\nИтого: %s грн.\n", cart.Total().StringFixed(2))
	fmt.Fprintf(&b, "Адрес доставки: %s\n", cart.DeliveryAddress)
	fmt.Fprintf(&b, "Контактная информация: %s", cart.ContactInfo)
	return b.String()
}

func startKeyboard() Keyboard {
	return replyKeyboard([]Button{
		{Label: btnMenu}, {Label: btnWeek}, {Label: btnHelp},
	})
}

func (d *Dispatcher) menuKeyboard() Keyboard {
	var rows [][]Button
	var row []Button
	for _, section := range d.cat.Sections() {
		row = append(row, Button{Label: section.Name})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []Button{{Label: btnBack}})
	return Keyboard{Kind: KeyboardReply, Rows: rows}
}

func confirmKeyboard(digest string) Keyboard {
	return replyKeyboard([]Button{{Label: digest}, {Label: btnBack}})
}

// dishCard is the full dish presentation: photo, price, description, and
// the detail/add inline buttons.
func dishCard(dish catalog.Dish) Effect {
	return SendPhoto{
		AssetRef: dish.PhotoPath,
		Caption: fmt.Sprintf("*%s*\n%s грн.\n\n%s",
			dish.Name, dish.Price.StringFixed(2), dish.Description),
		Keyboard: inlineKeyboard(
			[]Button{{Label: btnWhatYouGet, Token: Token{Action: ActionShowDetails, DishID: dish.ID}.String()}},
			[]Button{{Label: btnWhatYouNeed, Token: Token{Action: ActionShowRequirements, DishID: dish.ID}.String()}},
			[]Button{{Label: btnAddToCart, Token: Token{Action: ActionAddToCart, DishID: dish.ID}.String()}},
		),
	}
}

// portionKeyboard renders the quantity picker, marking the portion count
// already in the cart and offering a jump to the cart once anything is in.
func portionKeyboard(dish catalog.Dish, current int) Keyboard {
	var rows [][]Button
	var row []Button
	for i, label := range portionLabels {
		qty := i + 1
		if qty == current {
			label += " (в корзине)"
		}
		row = append(row, Button{
			Label: label,
			Token: Token{Action: ActionAddToCart, DishID: dish.ID, Qty: qty, HasQty: true}.String(),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if current != 0 {
		rows = append(rows, []Button{{Label: btnGoToCart, Token: Token{Action: ActionOpenCart}.String()}})
	}
	return Keyboard{Kind: KeyboardInline, Rows: rows}
}

// cartLineKeyboard is the per-line quantity strip in the cart review.
func cartLineKeyboard(dishID string, qty int, subtotal string) Keyboard {
	if qty == 0 {
		// the line is gone; strip the controls
		return Keyboard{Kind: KeyboardInline}
	}
	return inlineKeyboard([]Button{
		{Label: "-", Token: Token{Action: ActionCartDec, DishID: dishID}.String()},
		{Label: fmt.Sprintf("%d (%s грн.)", qty, subtotal), Token: Token{Action: ActionNoop}.String()},
		{Label: "+", Token: Token{Action: ActionCartInc, DishID: dishID}.String()},
		{Label: "Удалить", Token: Token{Action: ActionCartDel, DishID: dishID}.String()},
	})
}
