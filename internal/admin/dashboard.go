package admin

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/littletreat/internal/order"
)

const defaultWriteTimeout = 30 * time.Second

// Store is the remote order store as seen by the admin.
type Store interface {
	FetchOrders(ctx context.Context, sheet string, kind order.Kind) ([]order.Order, error)
	UpdateStatus(ctx context.Context, kind order.Kind, orderID string, status order.Status) error
}

type Config struct {
	Kind         order.Kind
	Sheet        string
	WriteTimeout time.Duration
}

// Dashboard owns the admin's copy of the order list. Reads work on snapshots;
// a refresh replaces the whole list in one step.
//
// Status changes are optimistic: the local copy changes immediately and the
// store is updated in the background. Updates to one order are sent one at a
// time in the order they were made, so the store ends on the admin's last
// choice. A failed remote update is logged and left for the next refresh to
// reconcile.
type Dashboard struct {
	cfg      Config
	store    Store
	workflow order.Workflow
	now      func() time.Time

	mu          sync.RWMutex
	orders      []order.Order
	refreshedAt time.Time

	pushMu sync.Mutex
	// queued holds unsent statuses per order; an entry exists while a
	// goroutine is draining it.
	queued map[string][]order.Status
	wg     sync.WaitGroup
}

type Option func(*Dashboard)

func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) { d.now = now }
}

func NewDashboard(store Store, cfg Config, opts ...Option) *Dashboard {
	if cfg.Sheet == "" {
		cfg.Sheet = cfg.Kind.DefaultSheet()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	d := &Dashboard{
		cfg:      cfg,
		store:    store,
		workflow: order.WorkflowFor(cfg.Kind),
		now:      time.Now,
		queued:   make(map[string][]order.Status),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dashboard) Workflow() order.Workflow {
	return d.workflow
}

// Refresh reloads every order. On failure the previous list is kept.
func (d *Dashboard) Refresh(ctx context.Context) error {
	orders, err := d.store.FetchOrders(ctx, d.cfg.Sheet, d.cfg.Kind)
	if err != nil {
		log.Error().Err(err).Str("sheet", d.cfg.Sheet).Msg("admin: failed to refresh orders")
		return fmt.Errorf("admin: refresh: %w", err)
	}

	d.mu.Lock()
	d.orders = slices.Clone(orders)
	d.refreshedAt = d.now()
	d.mu.Unlock()

	log.Info().Str("sheet", d.cfg.Sheet).Int("count", len(orders)).Msg("admin: orders refreshed")
	return nil
}

// RefreshedAt is the time of the last successful refresh, zero before it.
func (d *Dashboard) RefreshedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refreshedAt
}

func (d *Dashboard) snapshot() []order.Order {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.orders)
}

func (d *Dashboard) Orders(q order.Query) []order.Order {
	return order.Apply(d.snapshot(), q)
}

func (d *Dashboard) Summary() order.Summary {
	return order.Summarize(d.snapshot(), d.now())
}

// CycleStatus advances orderID one step from current. An empty current uses
// the status the dashboard holds.
func (d *Dashboard) CycleStatus(ctx context.Context, orderID string, current order.Status) (order.Status, error) {
	d.mu.Lock()
	i := d.indexOf(orderID)
	if i < 0 {
		d.mu.Unlock()
		log.Warn().Str("order_id", orderID).Msg("admin: cycle status of unknown order")
		return "", fmt.Errorf("admin: cycle status of %s: %w", orderID, order.ErrOrderNotFound)
	}
	if current == "" {
		current = d.orders[i].Status
	}
	next := d.workflow.Next(current)
	d.orders[i].Status = next
	d.pushStatus(orderID, next)
	d.mu.Unlock()

	log.Info().Str("order_id", orderID).Stringer("old_status", current).Stringer("new_status", next).Msg("admin: order status cycled")
	return next, nil
}

// SetStatus jumps directly to status if the workflow knows it.
func (d *Dashboard) SetStatus(ctx context.Context, orderID string, status order.Status) error {
	if !d.workflow.Allows(status) {
		log.Warn().Str("order_id", orderID).Stringer("status", status).Msg("admin: status outside the workflow")
		return fmt.Errorf("admin: set status %q: %w", status, order.ErrInvalidStatus)
	}

	d.mu.Lock()
	i := d.indexOf(orderID)
	if i < 0 {
		d.mu.Unlock()
		log.Warn().Str("order_id", orderID).Msg("admin: set status of unknown order")
		return fmt.Errorf("admin: set status of %s: %w", orderID, order.ErrOrderNotFound)
	}
	previous := d.orders[i].Status
	if previous == status {
		d.mu.Unlock()
		return nil
	}
	d.orders[i].Status = status
	d.pushStatus(orderID, status)
	d.mu.Unlock()

	log.Info().Str("order_id", orderID).Stringer("old_status", previous).Stringer("new_status", status).Msg("admin: order status set")
	return nil
}

// indexOf must be called with d.mu held.
func (d *Dashboard) indexOf(orderID string) int {
	return slices.IndexFunc(d.orders, func(o order.Order) bool {
		return o.OrderID == orderID
	})
}

// pushStatus queues the change for the store without blocking the caller.
// It must be called with d.mu held so queue order matches the local order.
// The request context is not used: the update outlives the HTTP request.
func (d *Dashboard) pushStatus(orderID string, status order.Status) {
	d.pushMu.Lock()
	defer d.pushMu.Unlock()

	pending, draining := d.queued[orderID]
	d.queued[orderID] = append(pending, status)
	if draining {
		return
	}
	d.wg.Add(1)
	go d.drain(orderID)
}

// drain sends the queued statuses of orderID in order and exits once the
// queue is empty.
func (d *Dashboard) drain(orderID string) {
	defer d.wg.Done()
	for {
		d.pushMu.Lock()
		pending := d.queued[orderID]
		if len(pending) == 0 {
			delete(d.queued, orderID)
			d.pushMu.Unlock()
			return
		}
		status := pending[0]
		d.queued[orderID] = pending[1:]
		d.pushMu.Unlock()

		d.send(orderID, status)
	}
}

func (d *Dashboard) send(orderID string, status order.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.WriteTimeout)
	defer cancel()

	if err := d.store.UpdateStatus(ctx, d.cfg.Kind, orderID, status); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Stringer("status", status).Msg("admin: remote status update failed, keeping local change until next refresh")
		return
	}
	log.Info().Str("order_id", orderID).Stringer("status", status).Msg("admin: remote status updated")
}

// Wait blocks until background status updates have finished.
func (d *Dashboard) Wait() {
	d.wg.Wait()
}
