package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/khanhERP/laundry-pos/internal/pricing"
	"github.com/khanhERP/laundry-pos/internal/resilience"
)

// ChargeRequest asks the QR provider to confirm a scanned payment.
type ChargeRequest struct {
	OrderID   string        `json:"orderId"`
	Reference string        `json:"reference"`
	Amount    pricing.Money `json:"amount"`
	Currency  string        `json:"currency"`
}

// ChargeResult is the provider's confirmation.
type ChargeResult struct {
	Confirmed bool   `json:"confirmed"`
	Reference string `json:"reference"`
}

// Provider confirms non-cash tenders with an upstream processor.
type Provider interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// HTTPProvider confirms QR tenders against a bank gateway over HTTP.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Client  resilience.HTTPClient
}

// Charge implements Provider.
func (p *HTTPProvider) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if p == nil || p.BaseURL == "" {
		return ChargeResult{}, errors.New("payment: provider not configured")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return ChargeResult{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return ChargeResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.Client.Do(ctx, httpReq)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("payment: charge request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return ChargeResult{}, fmt.Errorf("payment: charge rejected with status %d", resp.StatusCode)
	}
	var result ChargeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ChargeResult{}, fmt.Errorf("payment: decode charge response: %w", err)
	}
	return result, nil
}
