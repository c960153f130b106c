// Package sms dispatches SMS notifications through a Hubtel-style messaging
// gateway.
//
// Dispatch is strictly best-effort: Send never returns a Go error. Every
// failure path, from missing credentials to a gateway 5xx, is folded into the
// returned Result so that callers (notably the reservation status reactor)
// can log and move on without error plumbing.
package sms

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront-relay/internal/phone"
)

// DefaultBaseURL is the production messaging gateway endpoint.
const DefaultBaseURL = "https://smsc.hubtel.com"

const maxResponseBytes = 64 << 10

// Result reports the outcome of a single dispatch attempt.
type Result struct {
	Success bool
	// Error is a best-effort description of the failure, empty on success.
	Error string
}

func failure(msg string) Result { return Result{Error: msg} }

// Client sends SMS messages using basic auth over base64(clientID:clientSecret).
type Client struct {
	http         *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	senderID     string
}

// NewClient creates an SMS client. Credentials may be empty: the client still
// constructs, and Send degrades to failure results without network calls.
func NewClient(httpClient *http.Client, baseURL, clientID, clientSecret, senderID string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:         httpClient,
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		senderID:     senderID,
	}
}

// payload is the fixed gateway request shape: plain-text message with a
// delivery receipt requested.
type payload struct {
	From               string `json:"From"`
	To                 string `json:"To"`
	Content            string `json:"Content"`
	Type               int    `json:"Type"`
	RegisteredDelivery int    `json:"RegisteredDelivery"`
}

// Send dispatches one SMS. It short-circuits without a network call when
// credentials are missing, the recipient fails normalization, or the trimmed
// message is empty. Any 2xx gateway response counts as success; everything
// else is a failure Result. One attempt, no retries.
func (c *Client) Send(ctx context.Context, to, message string) Result {
	if c.clientID == "" || c.clientSecret == "" {
		return failure("sms credentials not configured")
	}

	recipient, ok := phone.Normalize(to)
	if !ok {
		return failure("recipient phone number is empty")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return failure("message is empty")
	}

	body, err := json.Marshal(payload{
		From:               c.senderID,
		To:                 recipient,
		Content:            message,
		Type:               0,
		RegisteredDelivery: 1,
	})
	if err != nil {
		return failure("encode payload: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages/send", bytes.NewReader(body))
	if err != nil {
		return failure("build request: " + err.Error())
	}
	creds := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+creds)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return failure("call sms gateway: " + err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure("sms gateway responded " + resp.Status + ": " + gatewayError(respBody))
	}

	return Result{Success: true}
}

// gatewayError pulls a human-readable message out of an error response body,
// falling back to the raw (truncated) body when it is not the expected JSON.
func gatewayError(body []byte) string {
	var msg string
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "Message", "message", "error":
			v, err := d.Str()
			if err != nil {
				return err
			}
			if msg == "" {
				msg = v
			}
			return nil
		default:
			return d.Skip()
		}
	}); err == nil && msg != "" {
		return msg
	}

	const max = 256
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}
