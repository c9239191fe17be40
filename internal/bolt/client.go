// Package bolt is the HTTP adapter to the external Bolt node, which
// broadcasts signed transactions to the settlement network.
package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ronoel/bolt-payment-gateway/internal/domain"
	"github.com/ronoel/bolt-payment-gateway/internal/observability"
)

const defaultHTTPTimeout = 10 * time.Second

type broadcastRequest struct {
	SerializedTx     string `json:"serializedTx"`
	Amount           string `json:"amount"`
	RecipientAddress string `json:"recipientAddress"`
}

type broadcastResponse struct {
	TxID   string  `json:"txid"`
	Fee    float64 `json:"fee"`
	Sender string  `json:"sender"`
	Amount string  `json:"amount"`
}

// BroadcastResult carries the network-confirmed fields of a broadcast.
type BroadcastResult struct {
	TxID   string
	Sender string
	Amount int64
}

type Client struct {
	baseURL string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient installs a custom HTTP client. The client must carry its
// own timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Broadcast submits a serialized transaction for the given base-asset
// amount to the recipient address and returns the confirmed transaction
// fields. All failures surface as domain.UpstreamError.
func (c *Client) Broadcast(ctx context.Context, serializedTx string, amount int64, recipient string) (*BroadcastResult, error) {
	payload, err := json.Marshal(broadcastRequest{
		SerializedTx:     serializedTx,
		Amount:           strconv.FormatInt(amount, 10),
		RecipientAddress: recipient,
	})
	if err != nil {
		return nil, &domain.UpstreamError{Op: "broadcast", Transient: false, Err: err}
	}

	url := c.baseURL + "/api/v1/transaction/bolt/broadcast"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.UpstreamError{Op: "broadcast", Transient: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	observability.ObserveBroadcast(time.Since(start))
	if err != nil {
		return nil, &domain.UpstreamError{Op: "broadcast", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.UpstreamError{
			Op:        "broadcast",
			Transient: true,
			Err:       fmt.Errorf("bolt node returned status %d", resp.StatusCode),
		}
	}

	var body broadcastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &domain.UpstreamError{
			Op:        "broadcast parse",
			Transient: false,
			Err:       fmt.Errorf("decode broadcast response: %w", err),
		}
	}

	confirmed, err := strconv.ParseInt(body.Amount, 10, 64)
	if err != nil {
		return nil, &domain.UpstreamError{
			Op:        "broadcast parse",
			Transient: false,
			Err:       fmt.Errorf("parse confirmed amount %q: %w", body.Amount, err),
		}
	}

	return &BroadcastResult{TxID: body.TxID, Sender: body.Sender, Amount: confirmed}, nil
}
