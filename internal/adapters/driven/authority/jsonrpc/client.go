package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driven"
	"github.com/custodia-labs/keyward/internal/logger"
)

// Method names understood by the authority.
const (
	MethodGetAccountData = "get_account_data"
	MethodReplaceKey     = "replace_wireguard_key"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 1 << 20

// Verify interface compliance.
var _ driven.AccountAuthority = (*Client)(nil)

// Client talks to the account and key authority.
type Client struct {
	url     string
	http    *http.Client
	limiter *RateLimiter
	nextID  atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateLimiter replaces the limiter built from the settings.
func WithRateLimiter(l *RateLimiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// New creates a client for the endpoint in settings.
func New(settings domain.AuthoritySettings, opts ...Option) (*Client, error) {
	u, err := url.Parse(settings.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: authority url: %v", domain.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: authority url must be http or https, got %q", domain.ErrInvalidInput, settings.URL)
	}

	c := &Client{
		url:  u.String(),
		http: &http.Client{Timeout: settings.Timeout},
		limiter: NewRateLimiter(RateLimitConfig{
			RequestsPerSecond: settings.RequestsPerSecond,
			BurstSize:         settings.Burst,
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

type accountParams struct {
	AccountToken string `json:"account_token"`
}

type accountResult struct {
	Expiry time.Time `json:"expiry"`
}

type replaceKeyParams struct {
	AccountToken string     `json:"account_token"`
	OldKey       domain.Key `json:"old_key"`
	NewKey       domain.Key `json:"new_key"`
}

type replaceKeyResult struct {
	IPv4Address netip.Prefix `json:"ipv4_address"`
	IPv6Address netip.Prefix `json:"ipv6_address"`
}

// GetAccountData fetches the account expiry.
func (c *Client) GetAccountData(ctx context.Context, accountToken string) (domain.AccountData, error) {
	var result accountResult
	if err := c.call(ctx, MethodGetAccountData, accountParams{AccountToken: accountToken}, &result); err != nil {
		return domain.AccountData{}, err
	}
	if result.Expiry.IsZero() {
		return domain.AccountData{}, fmt.Errorf("%w: %s: missing expiry", ErrMalformedResponse, MethodGetAccountData)
	}
	return domain.AccountData{AccountNumber: accountToken, Expiry: result.Expiry}, nil
}

// ReplaceKey swaps oldKey for newKey and returns the addresses assigned to newKey.
func (c *Client) ReplaceKey(
	ctx context.Context,
	accountToken string,
	oldKey, newKey domain.Key,
) (domain.AssociatedAddresses, error) {
	params := replaceKeyParams{AccountToken: accountToken, OldKey: oldKey, NewKey: newKey}

	var result replaceKeyResult
	if err := c.call(ctx, MethodReplaceKey, params, &result); err != nil {
		return domain.AssociatedAddresses{}, err
	}
	return domain.AssociatedAddresses{IPv4: result.IPv4Address, IPv6: result.IPv6Address}, nil
}

// call performs one JSON-RPC request and decodes its result into out.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return transient(method, err)
	}

	id := c.nextID.Add(1)
	body, err := json.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", domain.ErrRPC, method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrRPC, method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logger.Debug("authority: -> %s (id %d)", method, id)
	resp, err := c.http.Do(req)
	if err != nil {
		return transient(method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.RecordRateLimitError(parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Method: method}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return transient(method, err)
	}

	var envelope response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, method, err)
	}
	if envelope.ID != id {
		return fmt.Errorf("%w: %s: response id %d, want %d", ErrMalformedResponse, method, envelope.ID, id)
	}
	if envelope.Error != nil {
		logger.Debug("authority: <- %s error %d", method, envelope.Error.Code)
		return envelope.Error
	}
	if len(envelope.Result) == 0 {
		return fmt.Errorf("%w: %s: missing result", ErrMalformedResponse, method)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, method, err)
	}

	logger.Debug("authority: <- %s ok", method)
	return nil
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return at.Sub(now)
	}
	return 0
}
