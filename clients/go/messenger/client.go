// Package messenger provides the Go client for the Encryption-Messenger
// relay: the HTTP API client, the NFT access gate, the on-chain ownership
// oracle, and the polling sync loop.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Client is a relay API client. The relay requires no authentication: every
// request is anonymous, and the sender address on a message is self-asserted.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new relay client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the relay.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Status, e.Message)
}

// ErrSelfAddressed is returned by SendMessage when sender and recipient are
// the same address. The relay rejects these too; checking locally saves the
// round trip.
var ErrSelfAddressed = fmt.Errorf("cannot send a message to yourself")

// doRequest performs an HTTP request against the relay.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	return respBody, nil
}

// PublicKeyRecord is a directory entry.
type PublicKeyRecord struct {
	Address   string    `json:"address"`
	PublicKey string    `json:"public_key"`
	Nickname  string    `json:"nickname,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a ciphertext envelope as returned by the relay.
type Message struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Ciphertext string    `json:"ciphertext"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListPublicKeys retrieves the full directory snapshot.
func (c *Client) ListPublicKeys(ctx context.Context) ([]PublicKeyRecord, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/public-keys", nil)
	if err != nil {
		return nil, err
	}

	var records []PublicKeyRecord
	if err := json.Unmarshal(respBody, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// PublishKeyRequest is the body for a directory submission.
type PublishKeyRequest struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
	Nickname  string `json:"nickname,omitempty"`
}

// PublishKey upserts the directory record for address. A later submission
// for the same address silently overwrites an earlier one.
func (c *Client) PublishKey(ctx context.Context, address, publicKey, nickname string) (*PublicKeyRecord, error) {
	body, _ := json.Marshal(PublishKeyRequest{
		Address:   address,
		PublicKey: publicKey,
		Nickname:  nickname,
	})

	respBody, err := c.doRequest(ctx, http.MethodPost, "/public-keys", body)
	if err != nil {
		return nil, err
	}

	var rec PublicKeyRecord
	if err := json.Unmarshal(respBody, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListMessages retrieves the full relay store in append order. The relay
// serves every envelope to every caller; use FilterForViewer for display.
func (c *Client) ListMessages(ctx context.Context) ([]Message, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/messages", nil)
	if err != nil {
		return nil, err
	}

	var messages []Message
	if err := json.Unmarshal(respBody, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessageRequest is the body for a relay submission.
type SendMessageRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Ciphertext string `json:"ciphertext"`
}

// SendReceipt confirms an accepted envelope.
type SendReceipt struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// SendMessage appends a ciphertext envelope to the relay.
func (c *Client) SendMessage(ctx context.Context, from, to, ciphertext string) (*SendReceipt, error) {
	if strings.EqualFold(from, to) {
		return nil, ErrSelfAddressed
	}

	body, _ := json.Marshal(SendMessageRequest{From: from, To: to, Ciphertext: ciphertext})

	respBody, err := c.doRequest(ctx, http.MethodPost, "/messages", body)
	if err != nil {
		return nil, err
	}

	var receipt SendReceipt
	if err := json.Unmarshal(respBody, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks relay health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FilterForViewer keeps only the envelopes the viewer participates in,
// as sender or recipient. Address comparison is case-insensitive.
func FilterForViewer(messages []Message, viewer string) []Message {
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if strings.EqualFold(msg.From, viewer) || strings.EqualFold(msg.To, viewer) {
			out = append(out, msg)
		}
	}
	return out
}

// SortNewestFirst orders messages by CreatedAt descending for display.
// Messages sharing a timestamp keep their relative (insertion) order.
func SortNewestFirst(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
}
