package catalog_test

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/littletreat/internal/catalog"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Category{{
		ID: "menu",
		Items: []catalog.MenuItem{
			{ID: "A", Name: "Alpha", Price: decimal.NewFromInt(100), Unit: catalog.UnitPiece},
			{ID: "B", Name: "Beta", Price: decimal.NewFromInt(50), Unit: catalog.UnitKg},
			{ID: "F", Name: "Free sample", Price: decimal.Zero, Unit: catalog.UnitPiece},
		},
	}})
	require.NoError(t, err)
	return c
}

func TestCart_Scenario(t *testing.T) {
	cart := catalog.NewCart(newTestCatalog(t))

	require.NoError(t, cart.SetQuantity("A", 2))
	require.NoError(t, cart.SetQuantity("B", 1))
	assert.Equal(t, "250", cart.Total().String())

	lines := cart.SelectedItems()
	require.Len(t, lines, 2)
	assert.Equal(t, "A", lines[0].Item.ID)
	assert.Equal(t, "200", lines[0].Subtotal.String())
	assert.Equal(t, "B", lines[1].Item.ID)

	require.NoError(t, cart.SetQuantity("A", 0))
	assert.Equal(t, "50", cart.Total().String())
	assert.Len(t, cart.SelectedItems(), 1)
}

func TestCart_SetQuantityClampsAndRejectsUnknown(t *testing.T) {
	cart := catalog.NewCart(newTestCatalog(t))

	require.NoError(t, cart.SetQuantity("A", -5))
	assert.Equal(t, 0, cart.Quantity("A"))
	assert.True(t, cart.IsEmpty())

	err := cart.SetQuantity("Z", 1)
	require.ErrorIs(t, err, catalog.ErrUnknownItem)
}

func TestCart_AdjustQuantity(t *testing.T) {
	cart := catalog.NewCart(newTestCatalog(t))

	qty, err := cart.AdjustQuantity("A", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, qty)

	qty, err = cart.AdjustQuantity("A", -2)
	require.NoError(t, err)
	assert.Equal(t, 1, qty, "a change below zero is ignored")

	qty, err = cart.AdjustQuantity("A", -1)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)

	_, err = cart.AdjustQuantity("Z", 1)
	require.ErrorIs(t, err, catalog.ErrUnknownItem)
}

func TestCart_FreeItemsLookEmpty(t *testing.T) {
	cart := catalog.NewCart(newTestCatalog(t))

	require.NoError(t, cart.SetQuantity("F", 3))

	assert.True(t, cart.IsEmpty())
	assert.Len(t, cart.SelectedItems(), 1)
}

func TestCart_Clear(t *testing.T) {
	cart := catalog.NewCart(newTestCatalog(t))
	require.NoError(t, cart.SetQuantity("A", 1))

	cart.Clear()

	assert.True(t, cart.IsEmpty())
	assert.Empty(t, cart.SelectedItems())
}

func TestCart_TotalMatchesLastQuantities(t *testing.T) {
	c := newTestCatalog(t)
	cart := catalog.NewCart(c)
	r := rand.New(rand.NewPCG(1, 2))
	ids := []string{"A", "B", "F"}
	last := map[string]int{}

	for i := 0; i < 200; i++ {
		id := ids[r.IntN(len(ids))]
		qty := r.IntN(21) - 10
		require.NoError(t, cart.SetQuantity(id, qty))
		last[id] = max(0, qty)

		want := decimal.Zero
		for itemID, q := range last {
			item, _ := c.Item(itemID)
			want = want.Add(item.Price.Mul(decimal.NewFromInt(int64(q))))
		}
		require.True(t, want.Equal(cart.Total()), "step %d: want %s got %s", i, want, cart.Total())
		require.False(t, cart.Total().IsNegative())
		require.Equal(t, cart.Total().IsZero(), cart.IsEmpty())
	}
}
