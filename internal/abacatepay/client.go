package abacatepay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/pixcheckout/internal/config"
	"go.uber.org/zap"
)

const (
	createTimeout = 30 * time.Second
	checkTimeout  = 15 * time.Second
)

type chargePayload struct {
	ID           string `json:"id"`
	BRCode       string `json:"brCode"`
	BRCodeBase64 string `json:"brCodeBase64"`
	ExpiresAt    string `json:"expiresAt"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
}

type envelope struct {
	Data  *chargePayload  `json:"data"`
	Error json.RawMessage `json:"error"`
}

type createChargeBody struct {
	Amount      int64             `json:"amount"`
	ExpiresIn   int64             `json:"expiresIn"`
	Description string            `json:"description"`
	Customer    Customer          `json:"customer"`
	Metadata    map[string]string `json:"metadata"`
}

type Client struct {
	apiKey  string
	baseURL string
	log     *zap.Logger
	client  *http.Client
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(cfg.AbacatePayAPIKey),
		baseURL: strings.TrimRight(cfg.AbacatePayBaseURL, "/"),
		log:     log.Named("abacatepay.client"),
		client:  &http.Client{},
	}
}

func (c *Client) CreateCharge(ctx context.Context, req CreateChargeRequest) (Charge, error) {
	body := createChargeBody{
		Amount:      req.Amount,
		ExpiresIn:   req.ExpiresIn,
		Description: req.Description,
		Customer:    req.Customer,
		Metadata: map[string]string{
			"order_id": fmt.Sprintf("%d", req.OrderID),
			"product":  req.Product,
		},
	}

	payload, err := c.doRequest(ctx, http.MethodPost, "/pixQrCode/create", nil, body, createTimeout)
	if err != nil {
		return Charge{}, err
	}

	return Charge{
		PaymentID:    payload.ID,
		BRCode:       payload.BRCode,
		BRCodeBase64: payload.BRCodeBase64,
		ExpiresAt:    payload.ExpiresAt,
		Amount:       payload.Amount,
		Status:       payload.Status,
	}, nil
}

func (c *Client) CheckStatus(ctx context.Context, paymentID string) (ChargeStatus, error) {
	query := url.Values{}
	query.Set("id", paymentID)

	payload, err := c.doRequest(ctx, http.MethodGet, "/pixQrCode/check", query, nil, checkTimeout)
	if err != nil {
		return ChargeStatus{}, err
	}

	return ChargeStatus{Status: payload.Status, ExpiresAt: payload.ExpiresAt}, nil
}

func (c *Client) SimulatePayment(ctx context.Context, paymentID string) (ChargeStatus, error) {
	query := url.Values{}
	query.Set("id", paymentID)

	payload, err := c.doRequest(ctx, http.MethodPost, "/pixQrCode/simulate-payment", query, map[string]any{"metadata": map[string]any{}}, checkTimeout)
	if err != nil {
		return ChargeStatus{}, err
	}

	return ChargeStatus{Status: payload.Status, ExpiresAt: payload.ExpiresAt}, nil
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body any,
	timeout time.Duration,
) (*chargePayload, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredentials
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(encoded)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.log.Error("provider returned error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return nil, ErrProviderResponse
	}

	var parsed envelope
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.log.Error("provider returned malformed body",
			zap.String("path", path),
			zap.ByteString("body", raw),
		)
		return nil, ErrProviderResponse
	}
	if hasEmbeddedError(parsed.Error) {
		c.log.Error("provider returned application error",
			zap.String("path", path),
			zap.ByteString("body", raw),
		)
		return nil, ErrProviderResponse
	}
	if parsed.Data == nil {
		c.log.Error("provider response missing data",
			zap.String("path", path),
			zap.ByteString("body", raw),
		)
		return nil, ErrProviderResponse
	}

	return parsed.Data, nil
}

// hasEmbeddedError reports whether the response envelope carries a
// non-null, non-empty error value.
func hasEmbeddedError(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", "false", `""`:
		return false
	default:
		return true
	}
}
