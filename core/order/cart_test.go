package order

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapPricer map[string]string

func (p mapPricer) Price(dishID string) (decimal.Decimal, bool) {
	raw, ok := p[dishID]
	if !ok {
		return decimal.Decimal{}, false
	}
	return decimal.RequireFromString(raw), true
}

var testPrices = mapPricer{
	"hummus":    "150.00",
	"dumplings": "120.50",
	"pasta":     "99.99",
}

func TestCartSetQuantityComputesTotal(t *testing.T) {
	cart := NewCart(testPrices)

	require.NoError(t, cart.SetQuantity("hummus", 2))
	assert.Equal(t, "300.00", cart.Total().StringFixed(2))

	require.NoError(t, cart.SetQuantity("dumplings", 1))
	assert.Equal(t, "420.50", cart.Total().StringFixed(2))

	require.NoError(t, cart.SetQuantity("hummus", 0))
	assert.Equal(t, "120.50", cart.Total().StringFixed(2))
}

func TestCartTotalNeverDrifts(t *testing.T) {
	ids := []string{"hummus", "dumplings", "pasta"}
	cart := NewCart(testPrices)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		if rng.Intn(2) == 0 {
			require.NoError(t, cart.SetQuantity(id, rng.Intn(10)))
		} else {
			require.NoError(t, cart.Adjust(id, rng.Intn(5)-2))
		}

		expected := decimal.Zero
		for _, line := range cart.Snapshot() {
			expected = expected.Add(line.Subtotal)
		}
		require.True(t, cart.Total().Equal(expected),
			"iteration %d: total %s, recomputed %s", i, cart.Total(), expected)
	}
}

func TestCartDecimalSummationIsExact(t *testing.T) {
	pricer := mapPricer{"tenth": "0.10"}
	cart := NewCart(pricer)

	// 1000 * 0.10 accumulates binary error under float64 arithmetic
	require.NoError(t, cart.SetQuantity("tenth", 1000))
	assert.Equal(t, "100.00", cart.Total().StringFixed(2))
}

func TestCartUnknownItem(t *testing.T) {
	cart := NewCart(testPrices)
	err := cart.SetQuantity("ghost-dish", 1)
	require.ErrorIs(t, err, ErrUnknownItem)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, "0.00", cart.Total().StringFixed(2))
}

func TestCartNegativeQuantity(t *testing.T) {
	cart := NewCart(testPrices)
	require.ErrorIs(t, cart.SetQuantity("hummus", -1), ErrNegativeQuantity)
}

func TestCartAdjustFloorsAtZero(t *testing.T) {
	cart := NewCart(testPrices)
	require.NoError(t, cart.SetQuantity("hummus", 1))
	require.NoError(t, cart.Adjust("hummus", -5))
	assert.Equal(t, 0, cart.Quantity("hummus"))
	assert.True(t, cart.IsEmpty())
}

func TestCartIsEmpty(t *testing.T) {
	cart := NewCart(testPrices)
	assert.True(t, cart.IsEmpty())

	require.NoError(t, cart.SetQuantity("pasta", 1))
	assert.False(t, cart.IsEmpty())

	require.NoError(t, cart.SetQuantity("pasta", 0))
	assert.True(t, cart.IsEmpty(), "a zero line is logically absent")
}

func TestConfirmationDigestPureFunctionOfTotal(t *testing.T) {
	first := NewCart(testPrices)
	require.NoError(t, first.SetQuantity("hummus", 2)) // 300.00

	second := NewCart(mapPricer{"other": "300.00"})
	require.NoError(t, second.SetQuantity("other", 1)) // 300.00 too

	assert.Equal(t, first.ConfirmationDigest(), second.ConfirmationDigest(),
		"equal totals from different compositions must yield equal digests")
	assert.Equal(t, "Я подтверждаю заказ на сумму 300.00 грн.", first.ConfirmationDigest())

	require.NoError(t, first.SetQuantity("hummus", 3))
	assert.NotEqual(t, first.ConfirmationDigest(), second.ConfirmationDigest())
}

func TestCartSnapshotSortedNonZero(t *testing.T) {
	cart := NewCart(testPrices)
	require.NoError(t, cart.SetQuantity("pasta", 1))
	require.NoError(t, cart.SetQuantity("hummus", 2))
	require.NoError(t, cart.SetQuantity("dumplings", 0))

	snap := cart.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "hummus", snap[0].DishID)
	assert.Equal(t, "pasta", snap[1].DishID)
	assert.Equal(t, "300.00", snap[0].Subtotal.StringFixed(2))
	assert.Equal(t, "99.99", snap[1].Subtotal.StringFixed(2))
}

func TestCartSetQuantityIdempotent(t *testing.T) {
	cart := NewCart(testPrices)
	for i := 0; i < 3; i++ {
		require.NoError(t, cart.SetQuantity("hummus", 2))
	}
	assert.Equal(t, 2, cart.Quantity("hummus"))
	assert.Equal(t, "300.00", cart.Total().StringFixed(2))
}

func ExampleDigestFor() {
	fmt.Println(DigestFor(decimal.RequireFromString("449.50")))
	// Output: Я подтверждаю заказ на сумму 449.50 грн.
}
