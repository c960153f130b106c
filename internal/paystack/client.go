// Package paystack implements transaction verification against the Paystack
// API (https://paystack.com/docs/api/verification/).
package paystack

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-relay/internal/domain/order"
)

// DefaultBaseURL is the production Paystack API endpoint.
const DefaultBaseURL = "https://api.paystack.co"

// maxResponseBytes bounds how much of a verification response is read.
const maxResponseBytes = 1 << 20

// Client verifies transactions with Paystack using a secret-key bearer token.
type Client struct {
	http      *http.Client
	baseURL   string
	secretKey string
}

// NewClient creates a Paystack client. httpClient may carry instrumentation
// (e.g. an otelhttp transport); it must not be nil.
func NewClient(httpClient *http.Client, baseURL, secretKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:      httpClient,
		baseURL:   baseURL,
		secretKey: secretKey,
	}
}

var _ order.Verifier = (*Client)(nil)

// Verify issues GET /transaction/verify/{reference} and normalizes the
// response. A transaction counts as verified only when the top-level status
// flag is true and data.status equals "success". Transport failures, non-2xx
// responses, and payload shape mismatches (including a missing data.amount)
// are surfaced to the caller.
func (c *Client) Verify(ctx context.Context, reference string) (order.Verification, error) {
	u := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return order.Verification{}, errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return order.Verification{}, errors.Wrap(err, "call paystack")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return order.Verification{}, errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return order.Verification{}, errors.Errorf("paystack responded %d: %s", resp.StatusCode, trimBody(body))
	}

	return decodeVerification(body)
}

// decodeVerification extracts the status flag, transaction status, and paid
// amount from a verification payload, skipping everything else. For a
// successful transaction the amount is required: an absent or ill-typed
// data.amount is an error, never a silent zero. Declined lookups (data null,
// no amount) still decode cleanly as unverified.
func decodeVerification(body []byte) (order.Verification, error) {
	var (
		statusFlag bool
		txStatus   string
		amount     int64
		haveAmount bool
	)

	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			v, err := d.Bool()
			if err != nil {
				return errors.Wrap(err, "status")
			}
			statusFlag = v
			return nil
		case "data":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "status":
					v, err := d.Str()
					if err != nil {
						return errors.Wrap(err, "data.status")
					}
					txStatus = v
					return nil
				case "amount":
					v, err := d.Int64()
					if err != nil {
						return errors.Wrap(err, "data.amount")
					}
					amount = v
					haveAmount = true
					return nil
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return order.Verification{}, errors.Wrap(err, "decode verification response")
	}

	verified := statusFlag && txStatus == "success"
	if verified && !haveAmount {
		return order.Verification{}, errors.New("verification response missing data.amount")
	}

	return order.Verification{
		Verified:    verified,
		AmountMinor: amount,
	}, nil
}

// trimBody shortens an error body for inclusion in error messages.
func trimBody(body []byte) string {
	const max = 256
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}
