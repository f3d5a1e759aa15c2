package cart

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ariefcatur/mobirepair-storefront/internal/activity"
	"github.com/ariefcatur/mobirepair-storefront/internal/kvstore"
	"github.com/ariefcatur/mobirepair-storefront/internal/notify"
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

type Config struct {
	Store     *kvstore.Store // plain store; nil keeps the cart in memory only
	Notifier  notify.Notifier
	Publisher activity.Publisher
	Log       *zap.Logger
	ID        string // correlation id for activity events
}

// Machine serialises every mutation through Reduce and persists the
// result. Persistence failures are logged and otherwise ignored.
type Machine struct {
	mu    sync.Mutex
	state State

	store  *kvstore.Store
	notify notify.Notifier
	pub    activity.Publisher
	log    *zap.Logger
	id     string
}

// New rehydrates the cart from the store.
func New(cfg Config) *Machine {
	m := &Machine{
		store:  cfg.Store,
		notify: notify.OrNop(cfg.Notifier),
		pub:    cfg.Publisher,
		log:    cfg.Log,
		id:     cfg.ID,
	}
	if m.pub == nil {
		m.pub = activity.Nop{}
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	m.state = newState(nil)
	if m.store != nil {
		if lines, ok := kvstore.Get[[]Line](m.store, kvstore.KeyCart); ok {
			m.state = FromLines(lines)
			if m.state.Len() != len(lines) {
				m.log.Warn("stored cart normalised", zap.Int("stored", len(lines)), zap.Int("kept", m.state.Len()))
			}
		}
	}
	return m
}

func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Quantity(productID string) int  { return m.Snapshot().Quantity(productID) }
func (m *Machine) Contains(productID string) bool { return m.Snapshot().Contains(productID) }

func (m *Machine) AddItem(ctx context.Context, p storefront.Product, qty int) State {
	if p.ID == "" {
		m.log.Warn("add to cart without product id", zap.String("name", p.Name))
		return m.Snapshot()
	}
	s := m.dispatch(ctx, AddItem{Product: p, Quantity: qty}, storefront.EventCartItemAdded, p.ID)
	name := p.Name
	if name == "" {
		name = "Item"
	}
	m.notify.Success(fmt.Sprintf("%s added to cart!", name))
	return s
}

// RemoveItem is a no-op for products not in the cart.
func (m *Machine) RemoveItem(ctx context.Context, productID string) State {
	s := m.dispatch(ctx, RemoveItem{ProductID: productID}, storefront.EventCartItemRemoved, productID)
	m.notify.Success("Item removed from cart")
	return s
}

// UpdateQuantity replaces the line quantity; qty <= 0 removes the line.
func (m *Machine) UpdateQuantity(ctx context.Context, productID string, qty int) State {
	if qty <= 0 {
		return m.RemoveItem(ctx, productID)
	}
	return m.dispatch(ctx, UpdateQuantity{ProductID: productID, Quantity: qty}, storefront.EventCartQuantityUpdated, productID)
}

func (m *Machine) Clear(ctx context.Context) State {
	s := m.dispatch(ctx, Clear{}, storefront.EventCartCleared, "")
	m.notify.Success("Cart cleared")
	return s
}

// ClearSilently empties the cart without a notice, for checkout.
func (m *Machine) ClearSilently(ctx context.Context) State {
	return m.dispatch(ctx, Clear{}, storefront.EventCartCleared, "")
}

func (m *Machine) dispatch(ctx context.Context, a Action, eventType, productID string) State {
	m.mu.Lock()
	prev := m.state
	next := Reduce(prev, a)
	m.state = next
	// writes happen under the lock so the stored value is never older than memory
	m.persist(next)
	m.mu.Unlock()

	if changed(prev, next) {
		m.pub.Publish(ctx, eventType, m.id, storefront.CartChangedPayload{
			ProductID: productID,
			Quantity:  next.Quantity(productID),
			ItemCount: next.ItemCount(),
			Subtotal:  next.Subtotal().String(),
		})
	}
	return next
}

func (m *Machine) persist(s State) {
	if m.store == nil {
		return
	}
	lines := s.lines
	if lines == nil {
		lines = []Line{}
	}
	if err := m.store.Set(kvstore.KeyCart, lines); err != nil {
		m.log.Warn("persist cart", zap.Error(err))
	}
}

func changed(a, b State) bool {
	if len(a.lines) != len(b.lines) {
		return true
	}
	for i := range a.lines {
		if a.lines[i].Product.ID != b.lines[i].Product.ID || a.lines[i].Quantity != b.lines[i].Quantity {
			return true
		}
	}
	return false
}
