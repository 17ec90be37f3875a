// Package facilitator talks to an x402 payment facilitator. Verification and
// settlement are separate calls with separate outcomes: a payload can be
// valid and still fail to settle.
package facilitator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/imroc/req/v3"
)

type Client struct {
	http *req.Client
}

type Option func(*req.Client)

func WithTimeout(d time.Duration) Option {
	return func(c *req.Client) { c.SetTimeout(d) }
}

func WithAPIKey(key string) Option {
	return func(c *req.Client) {
		if key != "" {
			c.SetCommonBearerAuthToken(key)
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := req.C().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30*time.Second).
		SetCommonHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return &Client{http: c}
}

// Verify asks the facilitator to check the signed payment against the
// requirements. A rejected payment is a result with IsValid=false; errors are
// reserved for transport and protocol failures.
func (c *Client) Verify(ctx context.Context, p *PaymentPayload, r Requirements) (*VerifyResult, error) {
	var out VerifyResult
	raw, status, err := c.post(ctx, "/verify", p, r, &out)
	if err != nil {
		return nil, fmt.Errorf("facilitator verify: %w", err)
	}
	if status >= 300 && (out.IsValid || out.InvalidReason == "") {
		return nil, fmt.Errorf("facilitator verify: unexpected status %d", status)
	}
	if !out.IsValid && out.InvalidReason == "" {
		out.InvalidReason = "payment rejected by facilitator"
	}
	out.Raw = raw
	return &out, nil
}

// Settle submits a verified payment to the settlement network.
func (c *Client) Settle(ctx context.Context, p *PaymentPayload, r Requirements) (*SettleResult, error) {
	var out SettleResult
	raw, status, err := c.post(ctx, "/settle", p, r, &out)
	if err != nil {
		return nil, fmt.Errorf("facilitator settle: %w", err)
	}
	if status >= 300 && (out.Success || out.ErrorReason == "") {
		return nil, fmt.Errorf("facilitator settle: unexpected status %d", status)
	}
	if !out.Success && out.ErrorReason == "" {
		out.ErrorReason = "settlement rejected by facilitator"
	}
	out.Raw = raw
	return &out, nil
}

// post returns the raw body and status code. Non-2xx responses are only
// treated as outcomes by the callers when the body names a reason.
func (c *Client) post(ctx context.Context, path string, p *PaymentPayload, r Requirements, out any) (json.RawMessage, int, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request{Version: p.Version, PaymentPayload: p, PaymentRequirements: r}).
		Post(path)
	if err != nil {
		return nil, 0, err
	}

	raw := resp.Bytes()
	if resp.StatusCode >= 500 {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if !resp.IsSuccessState() {
			return nil, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return json.RawMessage(raw), resp.StatusCode, nil
}
