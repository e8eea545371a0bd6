package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/littletreat/internal/order"
)

// AppendInput is an order row as submitted by a storefront.
type AppendInput struct {
	SheetName     string `validate:"max=100"`
	OrderID       string `validate:"required,max=64"`
	Date          string `validate:"max=64"`
	Time          string `validate:"max=64"`
	CustomerName  string `validate:"max=200"`
	Phone         string `validate:"max=32"`
	FlatNumber    string `validate:"max=200"`
	ApartmentName string `validate:"max=200"`
	Items         string `validate:"required"`
	Total         string `validate:"required,max=64"`
	Status        string `validate:"max=32"`
	Timestamp     string
	SubmissionID  string `validate:"omitempty,uuid"`
}

type Service interface {
	// Append stores an order. The returned flag is false when the submission
	// id had already been stored.
	Append(ctx context.Context, in AppendInput) (*Row, bool, error)
	UpdateStatus(ctx context.Context, sheet, orderID string, status order.Status) error
	// List returns the rows of the sheet a read of requested resolves to,
	// newest first, along with that sheet's name.
	List(ctx context.Context, requested string) (string, []Row, error)
}

type service struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo Repository) Service {
	return &service{
		repo:     repo,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *service) Append(ctx context.Context, in AppendInput) (*Row, bool, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, false, fmt.Errorf("service: %w: %v", ErrInvalidRequest, err)
	}

	sheet := WriteSheet(strings.TrimSpace(in.SheetName))
	row := &Row{
		Sheet:        sheet,
		OrderID:      strings.TrimSpace(in.OrderID),
		DeliveryDate: in.Date,
		DeliveryTime: in.Time,
		CustomerName: in.CustomerName,
		Phone:        in.Phone,
		Flat:         in.FlatNumber,
		Apartment:    in.ApartmentName,
		Items:        in.Items,
		Total:        in.Total,
		Status:       order.StatusPending.String(),
		CreatedAt:    s.createdAt(in.Timestamp, in.OrderID),
	}
	// Only the chocolate sheet accepts a caller-chosen status.
	if isChocolateSheet(sheet) && in.Status != "" {
		row.Status = in.Status
	}
	if in.SubmissionID != "" {
		id, err := uuid.FromString(in.SubmissionID)
		if err != nil {
			return nil, false, fmt.Errorf("service: %w: submission id: %v", ErrInvalidRequest, err)
		}
		row.SubmissionID = uuid.NullUUID{UUID: id, Valid: true}
	}

	inserted, err := s.repo.Append(ctx, row)
	if err != nil {
		return nil, false, fmt.Errorf("service: %w", err)
	}
	if inserted {
		log.Info().Str("sheet", sheet).Str("order_id", row.OrderID).Msg("service: order appended")
	} else {
		log.Info().Str("sheet", sheet).Str("order_id", row.OrderID).Stringer("submission_id", row.SubmissionID.UUID).Msg("service: duplicate submission ignored")
	}
	return row, inserted, nil
}

func (s *service) createdAt(raw, orderID string) time.Time {
	if raw == "" {
		return s.now().UTC()
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		log.Warn().Err(err).Str("order_id", orderID).Str("timestamp", raw).Msg("service: unparseable timestamp, using current time")
		return s.now().UTC()
	}
	return ts.UTC()
}

func (s *service) UpdateStatus(ctx context.Context, sheet, orderID string, status order.Status) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("service: %w: order id is required", ErrInvalidRequest)
	}
	workflow := order.FoodWorkflow
	if isChocolateSheet(sheet) {
		workflow = order.ChocolateWorkflow
	}
	if !workflow.Allows(status) {
		return fmt.Errorf("service: %q on %s: %w", status, sheet, order.ErrInvalidStatus)
	}

	if err := s.repo.UpdateStatus(ctx, sheet, orderID, status.String()); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	log.Info().Str("sheet", sheet).Str("order_id", orderID).Stringer("status", status).Msg("service: order status updated")
	return nil
}

func (s *service) List(ctx context.Context, requested string) (string, []Row, error) {
	sheet := ReadSheet(requested)
	rows, err := s.repo.List(ctx, sheet)
	if err != nil {
		return sheet, nil, fmt.Errorf("service: %w", err)
	}
	return sheet, rows, nil
}
