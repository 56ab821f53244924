package flow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookbot/core/catalog"
	"cookbot/core/order"
	"cookbot/core/session"
)

func writeDish(t *testing.T, dir, name, price string) {
	t.Helper()
	folder := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(folder, 0o755))
	files := map[string]string{
		"price.txt":         price + "\n",
		"description.txt":   "Описание " + name + "\n",
		"what_you_get.txt":  "Набор продуктов для " + name + "\n",
		"what_you_need.txt": "Кастрюля и плита\n",
		"photo.jpg":         "jpegdata",
	}
	for file, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(folder, file), []byte(content), 0o644))
	}
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	writeDish(t, dir, "Хуммус", "150.00")
	writeDish(t, dir, "Вареники с картохой", "120.50")
	writeDish(t, dir, "Паста с сыром", "99.99")

	cat, err := catalog.Load(dir, catalog.Layout{
		Sections: []catalog.SectionLayout{
			{Name: "Необычное", Dishes: []string{"Хуммус", "Вареники с картохой"}},
			{Name: "Easy", Dishes: []string{"Паста с сыром"}},
		},
		Week: []string{"Хуммус"},
	})
	require.NoError(t, err)
	return cat
}

func newTestFlow(t *testing.T) (*Dispatcher, *session.Store) {
	t.Helper()
	cat := newTestCatalog(t)
	store := session.NewStore(func() *order.Cart { return order.NewCart(cat) })
	return NewDispatcher(store, cat), store
}

func textsOf(effects []Effect) []string {
	var out []string
	for _, eff := range effects {
		if st, ok := eff.(SendText); ok {
			out = append(out, st.Body)
		}
	}
	return out
}

func TestMenuCommandListsCategories(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(101)

	effects := d.Dispatch(context.Background(), chat, TextEvent{Text: "Меню"})

	require.Len(t, effects, 1)
	st, ok := effects[0].(SendText)
	require.True(t, ok)
	assert.Equal(t, "Меню", st.Body)
	assert.Equal(t, KeyboardReply, st.Keyboard.Kind)

	var labels []string
	for _, row := range st.Keyboard.Rows {
		for _, b := range row {
			labels = append(labels, b.Label)
		}
	}
	assert.Contains(t, labels, "Необычное")
	assert.Contains(t, labels, "Easy")
	assert.Contains(t, labels, "Назад")

	assert.Equal(t, session.StateMenuBrowse, store.Get(chat).State)
}

func TestCategoryTextListsDishes(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(102)

	d.Dispatch(context.Background(), chat, TextEvent{Text: "Меню"})
	effects := d.Dispatch(context.Background(), chat, TextEvent{Text: "Необычное"})

	require.Len(t, effects, 2)
	for _, eff := range effects {
		_, ok := eff.(SendPhoto)
		require.True(t, ok, "dish listings are photo cards")
	}
	assert.Equal(t, session.StateMenuBrowse, store.Get(chat).State)
}

func TestUnknownCategoryRepeatsMenu(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(103)

	d.Dispatch(context.Background(), chat, TextEvent{Text: "Меню"})
	effects := d.Dispatch(context.Background(), chat, TextEvent{Text: "Суши"})

	require.Len(t, effects, 1)
	st := effects[0].(SendText)
	assert.Equal(t, "Меню", st.Body)
	assert.Equal(t, session.StateMenuBrowse, store.Get(chat).State)
}

func TestEmptyCartStaysAtStart(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(104)

	effects := d.Dispatch(context.Background(), chat, TextEvent{Text: "Корзина"})

	require.Len(t, effects, 1)
	st := effects[0].(SendText)
	assert.Equal(t, "Ваша корзина пуста", st.Body)
	assert.Equal(t, session.StateStart, store.Get(chat).State)
}

func TestEmptyCartCheckoutReturnsToStart(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(105)

	store.Transition(chat, session.StateCartReview, "")
	effects := d.Dispatch(context.Background(), chat, TextEvent{Text: "Перейти к оформлению заказа"})

	require.Len(t, effects, 1)
	st := effects[0].(SendText)
	assert.Equal(t, "Ваша корзина пуста", st.Body)
	assert.Equal(t, session.StateStart, store.Get(chat).State)
}

func TestAddToCartCallbackIsStateless(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(106)

	// tapped from the resting state; the conversational step must not move
	effects := d.Dispatch(context.Background(), chat, CallbackEvent{
		Token:      "add-to-cart__Хуммус__2",
		MessageRef: "106:55",
	})

	assert.Equal(t, session.StateStart, store.Get(chat).State)
	assert.Equal(t, 2, store.Cart(chat).Quantity("Хуммус"))

	require.Len(t, effects, 2)
	ack := effects[0].(AnswerCallback)
	assert.Equal(t, "Да-да, Хуммус", ack.Text)
	edit := effects[1].(EditKeyboard)
	assert.Equal(t, "106:55", edit.MessageRef)
	assert.Equal(t, KeyboardInline, edit.Keyboard.Kind)
}

func TestAddToCartWithoutQuantityShowsPortionPicker(t *testing.T) {
	d, _ := newTestFlow(t)
	const chat = int64(107)

	effects := d.Dispatch(context.Background(), chat, CallbackEvent{Token: "add-to-cart__Хуммус"})

	require.Len(t, effects, 2)
	st := effects[1].(SendText)
	assert.Equal(t, "На сколько персон вы хотите приготовить Хуммус?", st.Body)
	assert.Equal(t, KeyboardInline, st.Keyboard.Kind)
	// nothing in the cart yet, so no jump-to-cart row
	for _, row := range st.Keyboard.Rows {
		for _, b := range row {
			assert.NotEqual(t, "Перейти к корзине", b.Label)
		}
	}
}

func TestGhostDishCallback(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(108)

	store.Transition(chat, session.StateMenuBrowse, "")
	effects := d.Dispatch(context.Background(), chat, CallbackEvent{Token: "add-to-cart__ghost-dish"})

	require.Len(t, effects, 1)
	ack := effects[0].(AnswerCallback)
	assert.Equal(t, "Ой, мы потеряли ghost-dish", ack.Text)
	assert.Equal(t, session.StateMenuBrowse, store.Get(chat).State, "state unchanged")
	assert.True(t, store.Cart(chat).IsEmpty())
}

func TestMalformedTokenDegradesToApology(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(109)

	effects := d.Dispatch(context.Background(), chat, CallbackEvent{Token: "add-to-cart__Хуммус__NaN"})

	require.Len(t, effects, 1)
	_, ok := effects[0].(AnswerCallback)
	assert.True(t, ok)
	assert.Equal(t, session.StateStart, store.Get(chat).State)
	assert.True(t, store.Cart(chat).IsEmpty())
}

func TestCartLineAdjustCallbacks(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(110)
	ctx := context.Background()

	d.Dispatch(ctx, chat, CallbackEvent{Token: "add-to-cart__Хуммус__2", MessageRef: "110:1"})

	d.Dispatch(ctx, chat, CallbackEvent{Token: "cart-inc__Хуммус", MessageRef: "110:2"})
	assert.Equal(t, 3, store.Cart(chat).Quantity("Хуммус"))

	d.Dispatch(ctx, chat, CallbackEvent{Token: "cart-dec__Хуммус", MessageRef: "110:2"})
	assert.Equal(t, 2, store.Cart(chat).Quantity("Хуммус"))

	effects := d.Dispatch(ctx, chat, CallbackEvent{Token: "cart-del__Хуммус", MessageRef: "110:2"})
	assert.Equal(t, 0, store.Cart(chat).Quantity("Хуммус"))
	assert.True(t, store.Cart(chat).IsEmpty())

	require.Len(t, effects, 2)
	edit := effects[1].(EditKeyboard)
	assert.Empty(t, edit.Keyboard.Rows, "controls are stripped once the line is gone")
}

func TestFullHappyPath(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(111)
	ctx := context.Background()

	d.Dispatch(ctx, chat, CallbackEvent{Token: "add-to-cart__Хуммус__2", MessageRef: "111:1"})

	effects := d.Dispatch(ctx, chat, TextEvent{Text: "Корзина"})
	assert.Equal(t, session.StateCartReview, store.Get(chat).State)
	texts := textsOf(effects)
	require.NotEmpty(t, texts)
	assert.Equal(t, "Ваша корзина:", texts[0])
	assert.Contains(t, texts[len(texts)-1], "К оплате 300.00 грн.")

	effects = d.Dispatch(ctx, chat, TextEvent{Text: "Перейти к оформлению заказа"})
	assert.Equal(t, session.StateAddressInput, store.Get(chat).State)
	require.Len(t, effects, 1)
	assert.Contains(t, effects[0].(SendText).Body, "Введите адрес доставки")

	effects = d.Dispatch(ctx, chat, TextEvent{Text: "Str 1"})
	assert.Equal(t, session.StateContactInput, store.Get(chat).State)
	require.Len(t, effects, 1)
	assert.Contains(t, effects[0].(SendText).Body, "Введите контактные данные")

	effects = d.Dispatch(ctx, chat, TextEvent{Text: "+380501234567"})
	assert.Equal(t, session.StateOrderConfirm, store.Get(chat).State)
	require.Len(t, effects, 1)
	confirm := effects[0].(SendText)
	assert.Contains(t, confirm.Body, "Подтвердите Ваш заказ на сумму 300.00 грн.")
	assert.Contains(t, confirm.Body, "Адрес доставки: Str 1")

	digest := confirm.Keyboard.Rows[0][0].Label
	assert.Equal(t, "Я подтверждаю заказ на сумму 300.00 грн.", digest)

	effects = d.Dispatch(ctx, chat, TextEvent{Text: digest})

	var admins []NotifyAdmin
	var archives []ArchiveOrder
	for _, eff := range effects {
		switch e := eff.(type) {
		case NotifyAdmin:
			admins = append(admins, e)
		case ArchiveOrder:
			archives = append(archives, e)
		}
	}
	require.Len(t, admins, 1, "exactly one admin notification")
	assert.Contains(t, admins[0].Body, "НОВЫЙ ЗАКАЗ! Чат #111")
	assert.Contains(t, admins[0].Body, "* Хуммус (x2)")
	assert.Contains(t, admins[0].Body, "Итого: 300.00 грн.")
	assert.Contains(t, admins[0].Body, "Адрес доставки: Str 1")

	require.Len(t, archives, 1)
	assert.Equal(t, int64(111), archives[0].Submission.ChatID)
	assert.Equal(t, "300.00", archives[0].Submission.Total.StringFixed(2))
	assert.Equal(t, "+380501234567", archives[0].Submission.Contact)

	texts = textsOf(effects)
	require.NotEmpty(t, texts)
	assert.Equal(t, "Ваш заказ отправлен в обработку!", texts[len(texts)-1])

	// submission resets the session and drops the cart
	sess := store.Get(chat)
	assert.Equal(t, session.StateStart, sess.State)
	assert.Nil(t, sess.Cart)
}

func TestConfirmStrayTextKeepsPendingOrder(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(112)
	ctx := context.Background()

	d.Dispatch(ctx, chat, CallbackEvent{Token: "add-to-cart__Хуммус__1"})
	d.Dispatch(ctx, chat, TextEvent{Text: "Корзина"})
	d.Dispatch(ctx, chat, TextEvent{Text: "Перейти к оформлению заказа"})
	d.Dispatch(ctx, chat, TextEvent{Text: "Str 1"})
	d.Dispatch(ctx, chat, TextEvent{Text: "+380501234567"})
	require.Equal(t, session.StateOrderConfirm, store.Get(chat).State)

	effects := d.Dispatch(ctx, chat, TextEvent{Text: "ну не знаю"})

	assert.Equal(t, session.StateOrderConfirm, store.Get(chat).State,
		"a stray reply must not silently discard the order")
	require.Len(t, effects, 1)
	st := effects[0].(SendText)
	assert.Contains(t, st.Body, "не подтверждён")
	assert.False(t, store.Cart(chat).IsEmpty())
}

func TestConfirmBackReturnsToCart(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(113)
	ctx := context.Background()

	d.Dispatch(ctx, chat, CallbackEvent{Token: "add-to-cart__Хуммус__1"})
	store.Transition(chat, session.StateOrderConfirm, "")

	effects := d.Dispatch(ctx, chat, TextEvent{Text: "Назад"})

	assert.Equal(t, session.StateCartReview, store.Get(chat).State)
	texts := textsOf(effects)
	require.NotEmpty(t, texts)
	assert.Equal(t, "Ваша корзина:", texts[0])
}

func TestStaleHandlerWithoutCartResets(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(114)

	// a restart restores the handler tag but never the in-memory cart
	store.Transition(chat, session.StateAddressInput, "")
	effects := d.Dispatch(context.Background(), chat, TextEvent{Text: "Str 1"})

	texts := textsOf(effects)
	require.NotEmpty(t, texts)
	assert.Equal(t, "Вы ещё ничего не заказали.", texts[0])
	assert.Equal(t, session.StateStart, store.Get(chat).State)
}

func TestStartCommandResetsAnyState(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(115)

	store.Transition(chat, session.StateContactInput, "")
	effects := d.Dispatch(context.Background(), chat, TextEvent{Text: "/start"})

	assert.Equal(t, session.StateStart, store.Get(chat).State)
	require.Len(t, effects, 1)
	assert.Equal(t, "Приступим", effects[0].(SendText).Body)
}

func TestOpenCartCallbackMovesToReview(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(116)
	ctx := context.Background()

	d.Dispatch(ctx, chat, CallbackEvent{Token: "add-to-cart__Паста с сыром__2"})
	effects := d.Dispatch(ctx, chat, CallbackEvent{Token: "open-cart"})

	assert.Equal(t, session.StateCartReview, store.Get(chat).State)
	texts := textsOf(effects)
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[len(texts)-1], "К оплате 199.98 грн.")
}

func TestSessionsAreIsolated(t *testing.T) {
	d, store := newTestFlow(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		chat := int64(200 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			qty := int(chat % 4)
			if qty == 0 {
				qty = 4
			}
			d.Dispatch(ctx, chat, CallbackEvent{Token: fmt.Sprintf("add-to-cart__Хуммус__%d", qty)})
			d.Dispatch(ctx, chat, TextEvent{Text: "Меню"})
		}()
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		chat := int64(200 + i)
		want := int(chat % 4)
		if want == 0 {
			want = 4
		}
		assert.Equal(t, want, store.Cart(chat).Quantity("Хуммус"), "chat %d", chat)
		assert.Equal(t, session.StateMenuBrowse, store.Get(chat).State)
	}
}

func TestConcurrentIncrementsAreNotLost(t *testing.T) {
	d, store := newTestFlow(t)
	const chat = int64(300)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(ctx, chat, CallbackEvent{Token: "cart-inc__Хуммус", MessageRef: "300:1"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, store.Cart(chat).Quantity("Хуммус"),
		"every increment must be applied exactly once")
	assert.Equal(t, "1500.00", store.Cart(chat).Total().StringFixed(2))
}
