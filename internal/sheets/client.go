package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/littletreat/internal/order"
)

var (
	ErrConfigMissing   = errors.New("order store endpoint is not configured")
	ErrFetch           = errors.New("failed to fetch orders")
	ErrRemoteWrite     = errors.New("order store rejected the write")
	ErrLockUnavailable = errors.New("order store is busy")
)

const maxBodyBytes = 8 << 20

// URLSource resolves the order store endpoint on every call so an override
// saved at runtime takes effect without a restart.
type URLSource interface {
	Resolve() (string, error)
}

// StaticURL is a URLSource that never changes.
type StaticURL string

func (u StaticURL) Resolve() (string, error) {
	if u == "" {
		return "", ErrConfigMissing
	}
	return string(u), nil
}

// RetryPolicy bounds retries of writes. Reads are never retried.
type RetryPolicy struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
}

var DefaultRetryPolicy = RetryPolicy{
	Attempts:  4,
	BaseDelay: 500 * time.Millisecond,
	MaxDelay:  5 * time.Second,
}

type Client struct {
	endpoint   URLSource
	httpClient *http.Client
	retry      RetryPolicy
}

func NewClient(endpoint URLSource, timeout time.Duration, retry RetryPolicy) *Client {
	if retry.Attempts <= 0 {
		retry.Attempts = 1
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: retry,
	}
}

// FetchOrders reads every order of sheet and decodes it in kind's schema.
func (c *Client) FetchOrders(ctx context.Context, sheet string, kind order.Kind) ([]order.Order, error) {
	base, err := c.resolve()
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("sheets: parse endpoint: %w: %v", ErrConfigMissing, err)
	}
	q := u.Query()
	q.Set("action", ActionGetOrders)
	q.Set("sheet", sheet)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("sheets: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets: get orders: %w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("sheets: get orders: %w: status %d", ErrFetch, resp.StatusCode)
	}

	var env Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		return nil, fmt.Errorf("sheets: decode orders: %w: %v", ErrFetch, err)
	}
	if env.Status != StatusSuccess {
		return nil, fmt.Errorf("sheets: get orders: %w: %s", ErrFetch, env.describe())
	}
	if env.SheetUsed != "" && env.SheetUsed != sheet {
		log.Warn().Str("sheet", sheet).Str("sheet_used", env.SheetUsed).Msg("sheets: store answered from a different sheet")
	}

	orders := make([]order.Order, 0, len(env.Orders))
	for _, w := range env.Orders {
		orders = append(orders, w.toOrder(kind))
	}
	return orders, nil
}

// AppendOrder adds o to sheet. submissionID makes the write idempotent so it
// can be retried safely.
func (c *Client) AppendOrder(ctx context.Context, sheet string, o order.Order, submissionID uuid.UUID) error {
	body := newAppendRequest(sheet, o, submissionID.String())
	if err := c.post(ctx, body); err != nil {
		return fmt.Errorf("sheets: append order %s: %w", o.OrderID, err)
	}
	return nil
}

// UpdateStatus sets the status of orderID using the action the kind's
// backend expects.
func (c *Client) UpdateStatus(ctx context.Context, kind order.Kind, orderID string, status order.Status) error {
	body := UpdateStatusRequest{
		Action:    ActionUpdateStatus,
		OrderID:   orderID,
		Status:    status.String(),
		SheetName: kind.DefaultSheet(),
	}
	if kind == order.KindChocolate {
		body.Action = ActionUpdateChocolateStatus
	}
	if err := c.post(ctx, body); err != nil {
		return fmt.Errorf("sheets: update status of %s: %w", orderID, err)
	}
	return nil
}

func (c *Client) resolve() (string, error) {
	base, err := c.endpoint.Resolve()
	if err != nil {
		if errors.Is(err, ErrConfigMissing) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrConfigMissing, err)
	}
	if base == "" {
		return "", ErrConfigMissing
	}
	return base, nil
}

// post sends an acknowledged write, retrying transport failures, 5xx answers
// and a busy store with exponential backoff.
func (c *Client) post(ctx context.Context, payload any) error {
	base, err := c.resolve()
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := c.postOnce(ctx, base, data)
		if err == nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("sheets: write failed, will retry")
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx))
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.BaseDelay
	if c.retry.MaxDelay > 0 {
		b.MaxInterval = c.retry.MaxDelay
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(c.retry.Attempts-1))
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

func (c *Client) postOnce(ctx context.Context, base string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &retryableError{err: fmt.Errorf("%w: %v", ErrRemoteWrite, err)}
	}
	defer resp.Body.Close()

	var env Envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env)

	if decodeErr == nil && env.Status == StatusError {
		if err := env.codeError(); err != nil {
			return err
		}
	}
	switch {
	case resp.StatusCode >= 500:
		return &retryableError{err: fmt.Errorf("%w: status %d", ErrRemoteWrite, resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: status %d: %s", ErrRemoteWrite, resp.StatusCode, env.describe())
	case decodeErr != nil:
		return fmt.Errorf("%w: decode response: %v", ErrRemoteWrite, decodeErr)
	case env.Status != StatusSuccess:
		return fmt.Errorf("%w: %s", ErrRemoteWrite, env.describe())
	}
	return nil
}

// codeError maps the store's error codes onto sentinel errors.
func (e Envelope) codeError() error {
	switch e.Code {
	case CodeDuplicateOrderID:
		return fmt.Errorf("%w: %s", order.ErrDuplicateOrderID, e.describe())
	case CodeNotFound:
		return fmt.Errorf("%w: %s", order.ErrOrderNotFound, e.describe())
	case CodeLockUnavailable:
		return &retryableError{err: fmt.Errorf("%w: %s", ErrLockUnavailable, e.describe())}
	}
	if e.Message == "Order not found" || e.Error == "Order not found" {
		return order.ErrOrderNotFound
	}
	return nil
}

func (e Envelope) describe() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Error != "":
		return e.Error
	case e.Status != "":
		return "status " + e.Status
	default:
		return "empty response"
	}
}
