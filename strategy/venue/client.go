// Package venue adapts an external yield venue exposing the vault REST
// surface. Requests are HMAC-SHA256 signed with a shared secret.
package venue

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client calls the venue's vault API.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

func NewClient(baseURL, secret string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9090"
	}
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		http:    &http.Client{},
	}
}

func (c *Client) sign(body []byte) string {
	m := hmac.New(sha256.New, []byte(c.secret))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if c.secret != "" {
		req.Header.Set("X-Vault-Signature", c.sign(body))
	}
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.secret != "" {
		req.Header.Set("X-Vault-Signature", c.sign([]byte(path)))
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("venue: %s", e.Error)
	}
	return json.Unmarshal(body, out)
}

type depositRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	MinReturn decimal.Decimal `json:"min_return"`
}

type depositResponse struct {
	NetAmount decimal.Decimal `json:"net_amount"`
}

// Deposit forwards funds into the vault and returns the net amount credited.
func (c *Client) Deposit(ctx context.Context, amount, minReturn decimal.Decimal) (decimal.Decimal, error) {
	var resp depositResponse
	if err := c.post(ctx, "/vault/deposit", depositRequest{Amount: amount, MinReturn: minReturn}, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.NetAmount, nil
}

type redeemRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	MinReturn decimal.Decimal `json:"min_return"`
	All       bool            `json:"all"`
}

type redeemResponse struct {
	AmountReturned decimal.Decimal `json:"amount_returned"`
}

// Redeem pulls funds back from the vault. A zero amount redeems everything.
func (c *Client) Redeem(ctx context.Context, amount, minReturn decimal.Decimal) (decimal.Decimal, error) {
	req := redeemRequest{Amount: amount, MinReturn: minReturn, All: amount.Sign() <= 0}
	var resp redeemResponse
	if err := c.post(ctx, "/vault/redeem", req, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.AmountReturned, nil
}

type balanceResponse struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Balance reports the vault's current custodied value.
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	var resp balanceResponse
	if err := c.get(ctx, "/vault/balance", &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.TotalAmount, nil
}

type rewardsResponse struct {
	Rewards []rewardEntry `json:"rewards"`
}

type rewardEntry struct {
	Token  string          `json:"token"`
	Amount decimal.Decimal `json:"amount"`
}

// Rewards lists the vault's secondary reward token balances.
func (c *Client) Rewards(ctx context.Context) ([]rewardEntry, error) {
	var resp rewardsResponse
	if err := c.get(ctx, "/vault/rewards", &resp); err != nil {
		return nil, err
	}
	return resp.Rewards, nil
}
