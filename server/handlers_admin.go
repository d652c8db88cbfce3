package server

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nolossgames/savings-pool-server/strategy"
)

type initializeRequest struct {
	IncentiveToken  string          `json:"incentive_token"`
	IncentiveAmount decimal.Decimal `json:"incentive_amount"`
	MerkleRoot      string          `json:"merkle_root"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	err := s.pool.Initialize(s.cfg.AdminAddress, req.IncentiveToken, req.IncentiveAmount, req.MerkleRoot)
	if err != nil {
		writePoolError(w, err)
		return
	}
	s.log.Info().Str("admin", s.cfg.AdminAddress).Msg("game initialized")
	writeJSON(w, http.StatusOK, map[string]string{"status": string(s.pool.Status())})
}

func (s *Server) handleEmergency(w http.ResponseWriter, _ *http.Request) {
	if err := s.pool.EnableEmergencyWithdraw(s.cfg.AdminAddress); err != nil {
		writePoolError(w, err)
		return
	}
	s.log.Warn().Msg("emergency withdraw enabled")
	writeJSON(w, http.StatusOK, map[string]string{"status": string(s.pool.Status())})
}

type feeWithdrawRequest struct {
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
}

type feeWithdrawResponse struct {
	Amount  decimal.Decimal          `json:"amount"`
	Rewards []strategy.RewardBalance `json:"rewards,omitempty"`
}

func (s *Server) handleFeeWithdraw(w http.ResponseWriter, r *http.Request) {
	var req feeWithdrawRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	amount, rewards, err := s.pool.AdminFeeWithdraw(r.Context(), s.cfg.AdminAddress, req.ExpectedAmount)
	if err != nil {
		writePoolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feeWithdrawResponse{Amount: amount, Rewards: rewards})
}
