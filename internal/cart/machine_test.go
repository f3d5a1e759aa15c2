package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/mobirepair-storefront/internal/activity"
	"github.com/ariefcatur/mobirepair-storefront/internal/kvstore"
	"github.com/ariefcatur/mobirepair-storefront/internal/notify"
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

type fixture struct {
	m       *Machine
	backend *kvstore.Memory
	store   *kvstore.Store
	notes   *notify.Recorder
	events  *activity.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend: kvstore.NewMemory(),
		notes:   notify.NewRecorder(0),
		events:  &activity.Recorder{},
	}
	f.store = kvstore.NewPlain(f.backend, nil)
	f.m = New(Config{Store: f.store, Notifier: f.notes, Publisher: f.events, ID: "cart-1"})
	return f
}

func TestMachine_AddNotifiesAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.m.AddItem(ctx, product("A", 500), 2)
	f.m.AddItem(ctx, storefront.Product{ID: "B", Price: product("B", 1500).Price}, 1)

	assert.Equal(t, []string{"Product A added to cart!", "Item added to cart!"}, f.notes.Messages())
	assert.Equal(t, []string{storefront.EventCartItemAdded, storefront.EventCartItemAdded}, f.events.Types())

	stored, ok := kvstore.Get[[]Line](f.store, kvstore.KeyCart)
	require.True(t, ok)
	assert.Len(t, stored, 2)

	// a fresh machine over the same store sees the same cart
	again := New(Config{Store: f.store})
	assert.Equal(t, 3, again.Snapshot().ItemCount())
	assert.Equal(t, 2, again.Quantity("A"))
}

func TestMachine_RemoveAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.m.AddItem(ctx, product("A", 10), 1)
	f.notes.Drain()

	f.m.RemoveItem(ctx, "A")
	f.m.RemoveItem(ctx, "A")
	assert.Equal(t, []string{"Item removed from cart", "Item removed from cart"}, f.notes.Messages())
	// the second removal changed nothing, so it published nothing
	assert.Equal(t, []string{storefront.EventCartItemAdded, storefront.EventCartItemRemoved}, f.events.Types())

	f.m.AddItem(ctx, product("B", 10), 3)
	s := f.m.Clear(ctx)
	assert.Zero(t, s.Len())
	assert.Contains(t, f.notes.Messages(), "Cart cleared")

	raw, err := f.backend.Load(ctx, kvstore.KeyCart)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestMachine_UpdateQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.m.AddItem(ctx, product("P", 10), 1)
	f.notes.Drain()

	f.m.UpdateQuantity(ctx, "P", 4)
	assert.Equal(t, 4, f.m.Quantity("P"))
	assert.Empty(t, f.notes.Messages())

	f.m.UpdateQuantity(ctx, "P", 0)
	assert.False(t, f.m.Contains("P"))
	assert.Equal(t, []string{"Item removed from cart"}, f.notes.Messages())
}

func TestMachine_IgnoresProductWithoutID(t *testing.T) {
	f := newFixture(t)
	s := f.m.AddItem(context.Background(), storefront.Product{Name: "ghost"}, 1)
	assert.Zero(t, s.Len())
	assert.Empty(t, f.notes.Messages())
}

type failingBackend struct{ kvstore.Backend }

func (failingBackend) Save(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func TestMachine_PersistFailureKeepsState(t *testing.T) {
	store := kvstore.NewPlain(failingBackend{Backend: kvstore.NewMemory()}, nil)
	m := New(Config{Store: store})

	s := m.AddItem(context.Background(), product("P", 10), 2)
	assert.Equal(t, 2, s.Quantity("P"))
	assert.Equal(t, 2, m.Quantity("P"))
}

func TestMachine_MalformedStoredCartStartsEmpty(t *testing.T) {
	mem := kvstore.NewMemory()
	require.NoError(t, mem.Save(context.Background(), kvstore.KeyCart, "{not json"))
	m := New(Config{Store: kvstore.NewPlain(mem, nil)})
	assert.Zero(t, m.Snapshot().Len())
}

func TestMachine_ConcurrentAddsSerialise(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			f.m.AddItem(ctx, product("P", 5), 1)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}
	assert.Equal(t, 20, f.m.Quantity("P"))
	again := New(Config{Store: f.store})
	assert.Equal(t, 20, again.Quantity("P"))
}
