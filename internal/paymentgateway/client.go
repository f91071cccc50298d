package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	paymentgatewaytypes "github.com/frahmantamala/listing-marketplace/internal/core/datamodel/paymentgateway"
)

var ErrCheckoutNotFound = errors.New("checkout not found")

type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

// Client talks to the hosted checkout gateway over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) CreateCheckout(ctx context.Context, req *paymentgatewaytypes.CheckoutRequest) (*paymentgatewaytypes.Checkout, error) {
	if err := req.Validate(); err != nil {
		c.logger.Error("checkout request validation failed", "error", err)
		return nil, fmt.Errorf("validation error: %w", err)
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkouts", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var checkout paymentgatewaytypes.Checkout
	if err := c.do(httpReq, &checkout, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	if checkout.Reference == "" || checkout.URL == "" {
		return nil, errors.New("gateway returned a checkout without reference or url")
	}

	c.logger.Info("checkout created",
		"reference", checkout.Reference,
		"listing_id", req.Metadata[paymentgatewaytypes.MetadataListingID],
		"amount", req.Amount)

	return &checkout, nil
}

func (c *Client) GetCheckout(ctx context.Context, reference string) (*paymentgatewaytypes.Checkout, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/checkouts/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var checkout paymentgatewaytypes.Checkout
	if err := c.do(httpReq, &checkout, http.StatusOK); err != nil {
		return nil, err
	}
	return &checkout, nil
}

func (c *Client) do(req *http.Request, out interface{}, okStatuses ...int) error {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrCheckoutNotFound
	}

	ok := false
	for _, s := range okStatuses {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
