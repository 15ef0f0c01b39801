package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/pricesync/internal/clock"
	"github.com/smallbiznis/pricesync/internal/connector/domain"
)

const (
	defaultAPIVersion = "2024-10"
	defaultTimeout    = 15 * time.Second
	headerAccessToken = "X-Shopify-Access-Token"
	maxErrorBody      = 512
)

type Factory struct {
	clock clock.Clock
}

func NewFactory(clk clock.Clock) *Factory {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Factory{clock: clk}
}

func (f *Factory) Target() domain.Target {
	return domain.TargetShopify
}

func (f *Factory) NewGateway(cfg domain.Config) (domain.Gateway, error) {
	token := strings.TrimSpace(cfg.Credentials["access_token"])
	if token == "" {
		return nil, domain.ErrInvalidCredentials
	}

	baseURL := strings.TrimSpace(cfg.Settings.BaseURL)
	if baseURL == "" {
		shop := strings.TrimSpace(cfg.Credentials["shop_domain"])
		if shop == "" {
			return nil, domain.ErrInvalidCredentials
		}
		if !strings.HasPrefix(shop, "http://") && !strings.HasPrefix(shop, "https://") {
			shop = "https://" + shop
		}
		baseURL = shop
	}

	version := strings.TrimSpace(cfg.Settings.APIVersion)
	if version == "" {
		version = defaultAPIVersion
	}
	timeout := cfg.Settings.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Adapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: version,
		token:      token,
		clock:      f.clock,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Adapter talks to the Shopify REST Admin API.
type Adapter struct {
	baseURL    string
	apiVersion string
	token      string
	clock      clock.Clock
	httpClient *http.Client
}

func (a *Adapter) Target() domain.Target {
	return domain.TargetShopify
}

type variantEnvelope struct {
	Variant variantPayload `json:"variant"`
}

type variantPayload struct {
	ID    json.Number `json:"id,omitempty"`
	Price string      `json:"price"`
}

// statusError carries a non-2xx response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("shopify responded %d: %s", e.code, e.body)
}

func (e *statusError) HTTPStatusCode() int { return e.code }

// UpdatePrice reads the variant first and skips the write when the price
// already matches, so retries with the same price are no-ops.
func (a *Adapter) UpdatePrice(ctx context.Context, req domain.UpdatePriceRequest) (*domain.UpdatePriceResult, error) {
	variantID := normalizeVariantID(req.ExternalID)
	if variantID == "" || req.Price < 0 || strings.TrimSpace(req.Currency) == "" {
		return nil, domain.ErrInvalidRequest
	}

	current, err := a.do(ctx, http.MethodGet, variantID, nil)
	if err != nil {
		return a.failure(req, err), nil
	}
	oldPrice, err := parseAmount(current.Variant.Price, req.Currency)
	if err != nil {
		return a.failure(req, err), nil
	}

	if oldPrice == req.Price {
		return a.success(req, oldPrice, oldPrice), nil
	}

	body := variantEnvelope{Variant: variantPayload{
		ID:    json.Number(variantID),
		Price: formatAmount(req.Price, req.Currency),
	}}
	updated, err := a.do(ctx, http.MethodPut, variantID, body)
	if err != nil {
		return a.failure(req, err), nil
	}

	newPrice := req.Price
	if parsed, err := parseAmount(updated.Variant.Price, req.Currency); err == nil {
		newPrice = parsed
	}
	return a.success(req, oldPrice, newPrice), nil
}

func (a *Adapter) do(ctx context.Context, method, variantID string, payload any) (*variantEnvelope, error) {
	endpoint := fmt.Sprintf("%s/admin/api/%s/variants/%s.json", a.baseURL, a.apiVersion, variantID)

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set(headerAccessToken, a.token)
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &statusError{code: resp.StatusCode, body: msg}
	}

	var out variantEnvelope
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode shopify variant: %w", err)
	}
	return &out, nil
}

func (a *Adapter) success(req domain.UpdatePriceRequest, oldPrice, newPrice int64) *domain.UpdatePriceResult {
	return &domain.UpdatePriceResult{
		ExternalID: req.ExternalID,
		Success:    true,
		OldPrice:   &oldPrice,
		NewPrice:   &newPrice,
		Currency:   req.Currency,
		UpdatedAt:  a.clock.Now(),
	}
}

func (a *Adapter) failure(req domain.UpdatePriceRequest, err error) *domain.UpdatePriceResult {
	return domain.Failure(req, err.Error(), isRetryableError(err), a.clock.Now())
}

func isRetryableStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// isRetryableError treats transport failures as transient and defers to the
// status code for HTTP errors. Decode failures are terminal.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return isRetryableStatus(se.code)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// normalizeVariantID accepts numeric ids and GraphQL gids such as
// gid://shopify/ProductVariant/123.
func normalizeVariantID(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.LastIndex(raw, "/"); idx >= 0 {
		raw = raw[idx+1:]
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return raw
}
