package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmerrifield20/educoin/internal/educoin/service"
	"github.com/jmerrifield20/educoin/internal/ledger"
)

// Wire types shared with the daemon.
type (
	Block         = ledger.Block
	Transaction   = ledger.Transaction
	RewardEntry   = ledger.RewardEntry
	TransferEntry = ledger.TransferEntry
	Standing      = service.Standing
	Status        = service.Status
)

// Sentinel errors matched against the "code" field of error responses.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAmountOverflow      = errors.New("amount overflows balance")
	ErrInvalidParticipant  = errors.New("invalid participant")
	ErrIssuerTransfer      = errors.New("issuer cannot transfer")
	ErrChainInvalid        = errors.New("chain invalid")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrResponseTooLarge    = errors.New("response exceeds limit")
)

// maxResponseBytes caps how much of a response body is read.
var maxResponseBytes = 8 << 20

var codeErrors = map[string]error{
	"insufficient_balance": ErrInsufficientBalance,
	"invalid_amount":       ErrInvalidAmount,
	"amount_overflow":      ErrAmountOverflow,
	"invalid_participant":  ErrInvalidParticipant,
	"issuer_transfer":      ErrIssuerTransfer,
	"chain_invalid":        ErrChainInvalid,
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("educoind %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("educoind %d: %s", e.Status, e.Message)
}

// Unwrap lets errors.Is match the sentinel for the response code.
func (e *APIError) Unwrap() error {
	if err, ok := codeErrors[e.Code]; ok {
		return err
	}
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	return nil
}

// Verification is the result of GET /chain/verify.
type Verification struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Index int    `json:"index,omitempty"`
}

// LoginResult holds a teacher token returned by Login.
type LoginResult struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// Client talks to an educoind server.
type Client struct {
	base        string
	httpClient  *http.Client
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a teacher token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// New creates a Client for the daemon at base, e.g. "http://localhost:8080".
func New(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", base)
	}
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error.
func MustNew(base string, opts ...Option) *Client {
	c, err := New(base, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Login exchanges the shared teacher secret for a token and attaches it to
// subsequent requests.
func (c *Client) Login(ctx context.Context, teacher, secret string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"teacher": teacher, "secret": secret}
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/teacher", body, &out); err != nil {
		return nil, err
	}
	c.bearerToken = out.Token
	return &out, nil
}

// Reward issues amount coins to student and returns the sealed block.
// teacher may be empty when the daemon takes the name from the token.
func (c *Client) Reward(ctx context.Context, teacher, student string, amount int64) (*Block, error) {
	req := map[string]any{"student": student, "amount": amount}
	if teacher != "" {
		req["teacher"] = teacher
	}
	var out struct {
		Block *Block `json:"block"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/rewards", req, &out); err != nil {
		return nil, err
	}
	return out.Block, nil
}

// Transfer moves amount coins between students and returns the sealed block.
// teacher optionally names the supervising teacher and may be empty.
func (c *Client) Transfer(ctx context.Context, teacher, from, to string, amount int64) (*Block, error) {
	req := map[string]any{"from": from, "to": to, "amount": amount}
	if teacher != "" {
		req["teacher"] = teacher
	}
	var out struct {
		Block *Block `json:"block"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/transfers", req, &out); err != nil {
		return nil, err
	}
	return out.Block, nil
}

// Balance returns one participant's balance.
func (c *Client) Balance(ctx context.Context, participant string) (int64, error) {
	var out struct {
		Balance int64 `json:"balance"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/balances/"+url.PathEscape(participant), nil, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

// Balances returns the whole balance table.
func (c *Client) Balances(ctx context.Context) (map[string]int64, error) {
	var out struct {
		Balances map[string]int64 `json:"balances"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/balances", nil, &out); err != nil {
		return nil, err
	}
	return out.Balances, nil
}

// Leaderboard returns standings by balance; limit 0 means all.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	path := "/api/v1/leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Standings []Standing `json:"standings"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Standings, nil
}

// Status returns the chain overview.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.call(ctx, http.MethodGet, "/api/v1/chain", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Blocks returns every sealed block, oldest first unless newestFirst is set.
func (c *Client) Blocks(ctx context.Context, newestFirst bool) ([]Block, error) {
	path := "/api/v1/blocks"
	if newestFirst {
		path += "?order=desc"
	}
	var out struct {
		Blocks []Block `json:"blocks"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Blocks, nil
}

// Block returns the block with the given 1-based index.
func (c *Client) Block(ctx context.Context, index int) (*Block, error) {
	var out Block
	if err := c.call(ctx, http.MethodGet, "/api/v1/blocks/"+strconv.Itoa(index), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify asks the daemon to walk its chain.
func (c *Client) Verify(ctx context.Context) (*Verification, error) {
	var out Verification
	if err := c.call(ctx, http.MethodGet, "/api/v1/chain/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rewards returns the reward history in the order rewards were issued.
func (c *Client) Rewards(ctx context.Context) ([]RewardEntry, error) {
	var out struct {
		Rewards []RewardEntry `json:"rewards"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/history/rewards", nil, &out); err != nil {
		return nil, err
	}
	return out.Rewards, nil
}

// Transfers returns the transfer history in submission order.
func (c *Client) Transfers(ctx context.Context) ([]TransferEntry, error) {
	var out struct {
		Transfers []TransferEntry `json:"transfers"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/history/transfers", nil, &out); err != nil {
		return nil, err
	}
	return out.Transfers, nil
}

// VerifyLocal recomputes every block hash and link of blocks on the caller's
// side. blocks must be in chain order.
func VerifyLocal(blocks []Block) error {
	for i := 1; i < len(blocks); i++ {
		prev, curr := &blocks[i-1], &blocks[i]
		if curr.PreviousHash != prev.Hash {
			return &ledger.ChainError{Index: curr.Index, Err: ledger.ErrChainBroken}
		}
		if ledger.HashBlock(curr) != curr.Hash {
			return &ledger.ChainError{Index: curr.Index, Err: ledger.ErrHashMismatch}
		}
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, reqBody, respBody any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxResponseBytes)+1))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxResponseBytes {
		return fmt.Errorf("%w: %s %s is larger than %d bytes", ErrResponseTooLarge, method, path, maxResponseBytes)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Code = payload.Code
		}
		return apiErr
	}

	if respBody != nil && len(body) > 0 {
		if err := json.Unmarshal(body, respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
