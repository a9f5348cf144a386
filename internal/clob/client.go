package clob

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Credentials are the L2 API credentials issued by the CLOB.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
}

// OrderResponse is the CLOB's answer to an order submission.
type OrderResponse struct {
	Success      bool     `json:"success"`
	ErrorMsg     string   `json:"errorMsg"`
	OrderID      string   `json:"orderID"`
	Status       string   `json:"status"`
	TransactHash []string `json:"transactionsHashes"`
}

// Client submits signed orders to the CLOB REST API.
type Client struct {
	baseURL    string
	creds      Credentials
	signer     *Signer
	httpClient *http.Client
}

// NewClient creates a CLOB client. The signer is used both to sign orders
// and to derive the POLY_ADDRESS auth header.
func NewClient(baseURL string, creds Credentials, signer *Signer) *Client {
	return &Client{
		baseURL:    baseURL,
		creds:      creds,
		signer:     signer,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// BuyFOK signs and submits a fill-or-kill buy order. FOK means the order
// either fills immediately at price or better, or is killed entirely.
func (c *Client) BuyFOK(ctx context.Context, tokenID string, price, size decimal.Decimal) (*OrderResponse, error) {
	order, err := c.signer.BuyOrder(tokenID, price, size)
	if err != nil {
		return nil, fmt.Errorf("failed to build order: %w", err)
	}
	signed, err := c.signer.Sign(order)
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}

	log.Debug().
		Str("token_id", tokenID).
		Str("price", price.String()).
		Str("size", size.String()).
		Msg("📤 Submitting FOK order")

	return c.postOrder(ctx, signed)
}

func (c *Client) postOrder(ctx context.Context, signed *SignedOrder) (*OrderResponse, error) {
	body, err := json.Marshal(signed.apiPayload(c.creds.APIKey, "FOK"))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/order", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.signRequest(req, http.MethodPost, "/order", string(body)); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var orderResp OrderResponse
	if err := json.Unmarshal(respBody, &orderResp); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !orderResp.Success {
		msg := orderResp.ErrorMsg
		if msg == "" {
			msg = string(respBody)
		}
		return &orderResp, fmt.Errorf("order rejected (status %d): %s", resp.StatusCode, msg)
	}
	return &orderResp, nil
}

// signRequest attaches the L2 HMAC auth headers. The signed message is
// timestamp + method + path + body, keyed by the URL-safe base64 secret.
func (c *Client) signRequest(req *http.Request, method, path, body string) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	secret, err := decodeSecret(c.creds.Secret)
	if err != nil {
		return fmt.Errorf("invalid api secret: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp + method + path + body))
	signature := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("POLY_API_KEY", c.creds.APIKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", c.creds.Passphrase)
	req.Header.Set("POLY_ADDRESS", c.signer.signerAddress.Hex())
	return nil
}

// decodeSecret handles both padded and unpadded URL-safe base64 secrets.
func decodeSecret(secret string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(secret); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(secret)
}
