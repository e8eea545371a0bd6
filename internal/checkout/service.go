package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/littletreat/internal/catalog"
	"github.com/vasiliy-maslov/littletreat/internal/order"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidAddress = errors.New("flat and apartment are required")
)

const (
	defaultPersistTimeout = 30 * time.Second
	defaultIDAttempts     = 3
)

// Persister stores a submitted order. Implementations must acknowledge the
// write and return order.ErrDuplicateOrderID when the id is taken.
type Persister interface {
	AppendOrder(ctx context.Context, sheet string, o order.Order, submissionID uuid.UUID) error
}

type Config struct {
	Kind         order.Kind
	Prefix       string
	WhatsApp     string
	Sheet        string
	DeliveryDate string

	// Persist enables the background write to the order store.
	Persist        bool
	PersistTimeout time.Duration
	IDAttempts     int
}

type Request struct {
	Cart    *catalog.Cart
	Address order.Address

	// Slot is the delivery slot label picked by the customer, if any.
	Slot string
}

type Receipt struct {
	// OrderID is provisional when the order is persisted: if the store
	// already holds it, the background write stores a regenerated id instead.
	OrderID string `json:"orderId"`
	// SubmissionID is stored with the order and never changes. It is empty
	// when persistence is off.
	SubmissionID string          `json:"submissionId,omitempty"`
	Message      string          `json:"message"`
	WhatsAppURL  string          `json:"whatsappUrl"`
	Total        decimal.Decimal `json:"total"`
	Items        string          `json:"items"`
}

type Service interface {
	Submit(ctx context.Context, req Request) (*Receipt, error)
	// Wait blocks until background writes have finished.
	Wait()
}

type service struct {
	cfg       Config
	persister Persister
	now       func() time.Time
	newID     func(prefix string) string
	wg        sync.WaitGroup
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithIDGenerator(gen func(prefix string) string) Option {
	return func(s *service) { s.newID = gen }
}

// NewService returns a checkout service. A nil persister disables
// persistence regardless of cfg.Persist.
func NewService(cfg Config, persister Persister, opts ...Option) Service {
	if cfg.Prefix == "" {
		cfg.Prefix = cfg.Kind.DefaultPrefix()
	}
	if cfg.Sheet == "" {
		cfg.Sheet = cfg.Kind.DefaultSheet()
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	if cfg.IDAttempts <= 0 {
		cfg.IDAttempts = defaultIDAttempts
	}
	s := &service{
		cfg:       cfg,
		persister: persister,
		now:       time.Now,
		newID:     order.GenerateID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Submit(ctx context.Context, req Request) (*Receipt, error) {
	if req.Cart == nil || req.Cart.IsEmpty() {
		log.Warn().Msg("checkout: attempt to submit an empty cart")
		return nil, ErrEmptyCart
	}
	addr := order.Address{
		Flat:      strings.TrimSpace(req.Address.Flat),
		Apartment: strings.TrimSpace(req.Address.Apartment),
	}
	if addr.Flat == "" || addr.Apartment == "" {
		log.Warn().Msg("checkout: attempt to submit without a delivery address")
		return nil, ErrInvalidAddress
	}

	cartLines := req.Cart.SelectedItems()
	total := req.Cart.Total()
	items := order.FormatItems(s.orderLines(cartLines))
	message := buildMessage(s.cfg.Kind, cartLines, total, addr, req.Slot)

	receipt := &Receipt{
		OrderID:     s.newID(s.cfg.Prefix),
		Message:     message,
		WhatsAppURL: WhatsAppURL(s.cfg.WhatsApp, message),
		Total:       total,
		Items:       items,
	}

	if s.cfg.Persist && s.persister != nil {
		// UTC so the store and dashboards agree on "today" after converting
		// to their own zone.
		o := order.Order{
			OrderID:   receipt.OrderID,
			Address:   addr,
			Items:     items,
			Total:     order.FormatRupees(total),
			Status:    order.WorkflowFor(s.cfg.Kind).Initial(),
			Timestamp: s.now().UTC(),
		}
		if s.cfg.Kind == order.KindFood {
			o.DeliveryDate = s.cfg.DeliveryDate
			o.DeliveryTime = req.Slot
		}
		submissionID, err := uuid.NewV4()
		if err != nil {
			log.Error().Err(err).Str("order_id", o.OrderID).Msg("checkout: failed to generate submission id, order not saved")
		} else {
			receipt.SubmissionID = submissionID.String()
			s.persistInBackground(o, submissionID)
		}
	}

	log.Info().Str("order_id", receipt.OrderID).Stringer("kind", s.cfg.Kind).Str("total", total.String()).Msg("checkout: order handed off to whatsapp")
	return receipt, nil
}

// orderLines converts cart lines to the stored items text. Chocolate orders
// are always counted in pieces.
func (s *service) orderLines(cartLines []catalog.CartLine) []order.Line {
	lines := make([]order.Line, 0, len(cartLines))
	for _, cl := range cartLines {
		unit := string(cl.Item.Unit)
		if s.cfg.Kind == order.KindChocolate {
			unit = string(catalog.UnitPiece)
		}
		lines = append(lines, order.Line{
			Name:     cl.Item.Name,
			Quantity: cl.Quantity,
			Unit:     unit,
			Subtotal: cl.Subtotal,
		})
	}
	return lines
}

// persistInBackground writes o without blocking the caller. The request
// context is not used: the write outlives the HTTP request.
func (s *service) persistInBackground(o order.Order, submissionID uuid.UUID) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
		defer cancel()

		if err := s.persist(ctx, o, submissionID); err != nil {
			log.Error().Err(err).Str("order_id", o.OrderID).Stringer("submission_id", submissionID).Msg("checkout: remote write failed, order exists only in whatsapp")
		}
	}()
}

func (s *service) persist(ctx context.Context, o order.Order, submissionID uuid.UUID) error {
	for attempt := 1; ; attempt++ {
		err := s.persister.AppendOrder(ctx, s.cfg.Sheet, o, submissionID)
		if err == nil {
			log.Info().Str("order_id", o.OrderID).Str("sheet", s.cfg.Sheet).Msg("checkout: order saved to store")
			return nil
		}
		if !errors.Is(err, order.ErrDuplicateOrderID) || attempt >= s.cfg.IDAttempts {
			return fmt.Errorf("checkout: save order %s: %w", o.OrderID, err)
		}
		previous := o.OrderID
		o.OrderID = s.newID(s.cfg.Prefix)
		log.Warn().Str("order_id", previous).Str("new_order_id", o.OrderID).Msg("checkout: order id taken, retrying with a new id")
	}
}

func (s *service) Wait() {
	s.wg.Wait()
}
