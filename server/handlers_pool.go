package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nolossgames/savings-pool-server/pool"
	"github.com/nolossgames/savings-pool-server/strategy"
)

type joinRequest struct {
	Player    string          `json:"player"`
	Amount    decimal.Decimal `json:"amount"`
	MinReturn decimal.Decimal `json:"min_return"`
	Proof     []string        `json:"proof,omitempty"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player == "" {
		writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
		return
	}
	if err := s.pool.JoinGame(r.Context(), req.Player, req.Amount, req.MinReturn, req.Proof); err != nil {
		writePoolError(w, err)
		return
	}
	entry, _ := s.pool.PlayerInfo(req.Player)
	writeJSON(w, http.StatusOK, entry)
}

type depositRequest struct {
	Player    string          `json:"player"`
	Amount    decimal.Decimal `json:"amount"`
	MinReturn decimal.Decimal `json:"min_return"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player == "" {
		writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
		return
	}
	if err := s.pool.MakeDeposit(r.Context(), req.Player, req.Amount, req.MinReturn); err != nil {
		writePoolError(w, err)
		return
	}
	entry, _ := s.pool.PlayerInfo(req.Player)
	writeJSON(w, http.StatusOK, entry)
}

type earlyWithdrawRequest struct {
	Player    string          `json:"player"`
	MinReturn decimal.Decimal `json:"min_return"`
}

func (s *Server) handleEarlyWithdraw(w http.ResponseWriter, r *http.Request) {
	var req earlyWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player == "" {
		writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
		return
	}
	amount, err := s.pool.EarlyWithdraw(r.Context(), req.Player, req.MinReturn)
	if err != nil {
		writePoolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"amount": amount})
}

type withdrawRequest struct {
	Player         string          `json:"player"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
}

type withdrawResponse struct {
	Payout  decimal.Decimal          `json:"payout"`
	Rewards []strategy.RewardBalance `json:"rewards,omitempty"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Player == "" {
		writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
		return
	}
	payout, rewards, err := s.pool.Withdraw(r.Context(), req.Player, req.ExpectedAmount)
	if err != nil {
		writePoolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawResponse{Payout: payout, Rewards: rewards})
}

type redeemRequest struct {
	MinReturn decimal.Decimal `json:"min_return"`
}

// handleRedeem triggers the one-shot redemption. Open to anyone once the game
// has completed; replays return the latched result.
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := s.pool.RedeemFromExternalPool(r.Context(), req.MinReturn); err != nil {
		writePoolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.pool.Redemption())
}

type statusResponse struct {
	Status                    pool.Status            `json:"status"`
	Asset                     string                 `json:"asset"`
	CurrentSegment            *uint64                `json:"current_segment,omitempty"`
	SegmentCount              uint64                 `json:"segment_count"`
	SegmentLength             string                 `json:"segment_length"`
	WaitingRoundSegmentLength string                 `json:"waiting_round_segment_length"`
	MaxPlayersCount           int                    `json:"max_players_count"`
	PlayerCount               int                    `json:"player_count"`
	WinnerCount               int                    `json:"winner_count"`
	TotalPrincipal            decimal.Decimal        `json:"total_principal"`
	NetTotalPrincipal         decimal.Decimal        `json:"net_total_principal"`
	TotalInterest             decimal.Decimal        `json:"total_interest"`
	Redemption                *pool.RedemptionResult `json:"redemption,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	cfg := s.pool.Config()
	resp := statusResponse{
		Status:                    s.pool.Status(),
		Asset:                     cfg.Asset,
		SegmentCount:              cfg.SegmentCount,
		SegmentLength:             cfg.SegmentLength.String(),
		WaitingRoundSegmentLength: cfg.WaitingRoundLength.String(),
		MaxPlayersCount:           cfg.MaxPlayers,
		PlayerCount:               s.pool.PlayerCount(),
		WinnerCount:               s.pool.WinnerCount(),
		TotalPrincipal:            s.pool.TotalGamePrincipal(),
		NetTotalPrincipal:         s.pool.NetTotalGamePrincipal(),
		TotalInterest:             s.pool.TotalGameInterest(),
		Redemption:                s.pool.Redemption(),
	}
	if seg, err := s.pool.CurrentSegment(); err == nil {
		resp.CurrentSegment = &seg
	}
	writeJSON(w, http.StatusOK, resp)
}

type playerResponse struct {
	pool.Player
	Winner bool         `json:"winner"`
	Events []pool.Event `json:"events,omitempty"`
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	entry, ok := s.pool.PlayerInfo(address)
	if !ok {
		writeError(w, http.StatusNotFound, "no active entry for address", "NOT_JOINED")
		return
	}
	resp := playerResponse{
		Player: entry,
		Winner: entry.PaidCount == s.pool.Config().SegmentCount,
	}
	if s.journal != nil {
		if events, err := s.journal.PlayerEvents(address); err == nil {
			resp.Events = events
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
