package paypalgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Order is the subset of a provider order this service cares about: the id
// and where to send the buyer. Capture happens on the provider's side after
// approval, out of process.
type Order struct {
	ID          string
	Status      string
	ApprovalURL string
}

type CreateOrderParams struct {
	AmountUSD   float64
	FilmID      string
	UserID      string
	Description string
	ReturnURL   string
	CancelURL   string
}

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the PayPal REST API. Access tokens from the
// client-credentials grant are cached until shortly before expiry.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
	logger       *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// CreateOrder creates a provider order for the USD face amount and returns
// the approval URL the buyer is redirected to.
func (c *Client) CreateOrder(ctx context.Context, p CreateOrderParams) (*Order, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("paypal auth failed: %w", err)
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": fmt.Sprintf("%s:%s", p.UserID, p.FilmID),
				"description":  p.Description,
				"amount": map[string]string{
					"currency_code": "USD",
					"value":         strconv.FormatFloat(p.AmountUSD, 'f', 2, 64),
				},
			},
		},
		"application_context": map[string]string{
			"return_url":  p.ReturnURL,
			"cancel_url":  p.CancelURL,
			"user_action": "PAY_NOW",
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/checkout/orders", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("paypal API returned status %d", resp.StatusCode)
	}

	var orderResp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	order := &Order{
		ID:     orderResp.ID,
		Status: orderResp.Status,
	}
	for _, link := range orderResp.Links {
		if link.Rel == "approve" {
			order.ApprovalURL = link.Href
			break
		}
	}

	if order.ApprovalURL == "" {
		return nil, fmt.Errorf("paypal order %s has no approval link", order.ID)
	}

	c.logger.Info("paypal order created",
		"order_id", order.ID,
		"status", order.Status,
		"amount_usd", p.AmountUSD,
		"film_id", p.FilmID)

	return order, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token endpoint returned status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("paypal token response missing access_token")
	}

	c.accessToken = tokenResp.AccessToken
	// renew a minute early to avoid using a token mid-expiry
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)

	return c.accessToken, nil
}
