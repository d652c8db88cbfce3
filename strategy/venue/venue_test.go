package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nolossgames/savings-pool-server/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testSecret = "vault-secret"

// fakeVault is a minimal in-memory vault honoring the REST surface.
func fakeVault(t *testing.T, balance *decimal.Decimal) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	verify := func(r *http.Request, body []byte) bool {
		m := hmac.New(sha256.New, []byte(testSecret))
		m.Write(body)
		return r.Header.Get("X-Vault-Signature") == hex.EncodeToString(m.Sum(nil))
	}
	mux.HandleFunc("POST /vault/deposit", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !verify(r, body) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad signature"})
			return
		}
		var req struct {
			Amount    decimal.Decimal `json:"amount"`
			MinReturn decimal.Decimal `json:"min_return"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		*balance = balance.Add(req.Amount)
		_ = json.NewEncoder(w).Encode(map[string]any{"net_amount": req.Amount})
	})
	mux.HandleFunc("POST /vault/redeem", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Amount decimal.Decimal `json:"amount"`
			All    bool            `json:"all"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		amt := req.Amount
		if req.All {
			amt = *balance
		}
		*balance = balance.Sub(amt)
		_ = json.NewEncoder(w).Encode(map[string]any{"amount_returned": amt})
	})
	mux.HandleFunc("GET /vault/balance", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"total_amount": *balance})
	})
	mux.HandleFunc("GET /vault/rewards", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"rewards": []map[string]any{
			{"token": "CRV", "amount": "2.5"},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func ownedAdapter(t *testing.T, url string) (*Adapter, context.Context) {
	t.Helper()
	a := New(NewClient(url, testSecret))
	require.NoError(t, a.TransferOwnership("pool-1"))
	return a, strategy.WithCaller(context.Background(), "pool-1")
}

func TestAdapter_DepositRedeemRoundTrip(t *testing.T) {
	balance := decimal.Zero
	srv := fakeVault(t, &balance)
	a, ctx := ownedAdapter(t, srv.URL)

	net, err := a.Deposit(ctx, decimal.NewFromInt(10), decimal.NewFromInt(10))
	require.NoError(t, err)
	require.True(t, net.Equal(decimal.NewFromInt(10)))

	total, err := a.TotalAmount(ctx)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.NewFromInt(10)))

	returned, err := a.Redeem(ctx, decimal.Zero, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.True(t, returned.Equal(decimal.NewFromInt(10)))
	require.True(t, balance.IsZero())
}

func TestAdapter_SlippageFloor(t *testing.T) {
	balance := decimal.Zero
	srv := fakeVault(t, &balance)
	a, ctx := ownedAdapter(t, srv.URL)

	// The fake vault credits the full amount, so a floor above it must trip
	// the adapter's own guard.
	_, err := a.Deposit(ctx, decimal.NewFromInt(10), decimal.NewFromInt(11))
	require.ErrorIs(t, err, strategy.ErrSlippage)
}

func TestAdapter_RejectsBadSignature(t *testing.T) {
	balance := decimal.Zero
	srv := fakeVault(t, &balance)
	a := New(NewClient(srv.URL, "wrong-secret"))
	require.NoError(t, a.TransferOwnership("pool-1"))
	ctx := strategy.WithCaller(context.Background(), "pool-1")

	_, err := a.Deposit(ctx, decimal.NewFromInt(10), decimal.Zero)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad signature")
}

func TestAdapter_OwnerGuard(t *testing.T) {
	balance := decimal.Zero
	srv := fakeVault(t, &balance)
	a, _ := ownedAdapter(t, srv.URL)

	_, err := a.Deposit(strategy.WithCaller(context.Background(), "other"), decimal.NewFromInt(1), decimal.Zero)
	require.ErrorIs(t, err, strategy.ErrNotOwner)
	_, err = a.Redeem(context.Background(), decimal.Zero, decimal.Zero)
	require.ErrorIs(t, err, strategy.ErrNotOwner)
}

func TestAdapter_Rewards(t *testing.T) {
	balance := decimal.Zero
	srv := fakeVault(t, &balance)
	a, ctx := ownedAdapter(t, srv.URL)

	rewards, err := a.RewardTokens(ctx)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	require.Equal(t, "CRV", rewards[0].Token)
	require.True(t, rewards[0].Amount.Equal(decimal.RequireFromString("2.5")))
}

func TestNewFromSettings_RequiresURL(t *testing.T) {
	_, err := NewFromSettings(map[string]string{})
	require.Error(t, err)
	s, err := NewFromSettings(map[string]string{"url": "http://localhost:9090"})
	require.NoError(t, err)
	require.NotNil(t, s)
}
