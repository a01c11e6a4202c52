package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/khanhERP/laundry-pos/internal/events"
	"github.com/khanhERP/laundry-pos/internal/obs"
	"github.com/khanhERP/laundry-pos/internal/order"
	"github.com/khanhERP/laundry-pos/internal/resilience"
)

type orderGetter interface {
	Get(ctx context.Context, id uuid.UUID) (order.Order, error)
}

type submissionStore interface {
	SaveSubmission(ctx context.Context, orderID uuid.UUID, providerRef string, submittedAt time.Time) error
}

// Submitter delivers invoice payloads to the e-invoice provider. It runs as
// an asynq handler so failed submissions are retried with backoff.
type Submitter struct {
	Orders  orderGetter
	Builder Builder
	Store   submissionStore
	Events  *events.Bus
	Logger  zerolog.Logger

	BaseURL string
	APIKey  string
	HTTP    resilience.HTTPClient
}

// ProcessTask implements asynq.Handler for TaskSubmit.
func (s *Submitter) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload SubmitTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invoice: decode task payload: %w: %w", err, asynq.SkipRetry)
	}
	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		return fmt.Errorf("invoice: invalid order id %q: %w", payload.OrderID, asynq.SkipRetry)
	}
	return s.Submit(ctx, orderID)
}

// Submit builds and delivers the invoice for one paid order.
func (s *Submitter) Submit(ctx context.Context, orderID uuid.UUID) error {
	if s == nil || s.Orders == nil || s.BaseURL == "" {
		return errors.New("invoice: submitter not configured")
	}
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	doc, err := s.Builder.Build(o)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	start := time.Now()
	ref, err := s.deliver(ctx, doc)
	result := "ok"
	if err != nil {
		result = "error"
	}
	if obs.InvoiceSubmitTotal != nil {
		obs.InvoiceSubmitTotal.WithLabelValues(result).Inc()
		obs.InvoiceSubmitLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
	if err != nil {
		s.Logger.Error().Err(err).Str("order_id", orderID.String()).Msg("invoice submission failed")
		s.emit(ctx, events.TopicInvoiceFailed, o, map[string]any{"reason": err.Error()})
		return err
	}

	if s.Store != nil {
		if err := s.Store.SaveSubmission(ctx, orderID, ref, time.Now()); err != nil {
			return fmt.Errorf("invoice: persist submission: %w", err)
		}
	}
	s.Logger.Info().Str("order_id", orderID.String()).Str("provider_ref", ref).Msg("invoice submitted")
	s.emit(ctx, events.TopicInvoiceSubmitted, o, map[string]any{
		"orderId":     orderID.String(),
		"providerRef": ref,
	})
	return nil
}

func (s *Submitter) deliver(ctx context.Context, doc Payload) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/v1/invoices", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.HTTP.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("invoice: submit request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("invoice: provider returned status %d", resp.StatusCode)
	}
	var decoded struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("invoice: decode provider response: %w", err)
	}
	return decoded.Reference, nil
}

func (s *Submitter) emit(ctx context.Context, topic string, o order.Order, payload map[string]any) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, topic, pgtype.UUID{Bytes: o.ID, Valid: true}, payload)
}
