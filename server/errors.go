package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nolossgames/savings-pool-server/pool"
	"github.com/nolossgames/savings-pool-server/strategy"
)

// APIError is the uniform error envelope.
type APIError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, APIError{Error: msg, Code: code})
}

// writePoolError maps engine errors onto HTTP statuses.
func writePoolError(w http.ResponseWriter, err error) {
	type mapping struct {
		target error
		status int
		code   string
	}
	mappings := []mapping{
		{pool.ErrNotInitialized, http.StatusConflict, "GAME_NOT_INITIALIZED"},
		{pool.ErrAlreadyInitialized, http.StatusConflict, "GAME_ALREADY_INITIALIZED"},
		{pool.ErrNotAdmin, http.StatusForbidden, "NOT_ADMIN"},
		{pool.ErrGameFull, http.StatusConflict, "GAME_FULL"},
		{pool.ErrAlreadyJoined, http.StatusConflict, "ALREADY_JOINED"},
		{pool.ErrNotAllowlisted, http.StatusForbidden, "NOT_ALLOWLISTED"},
		{pool.ErrWrongSegment, http.StatusConflict, "WRONG_SEGMENT"},
		{pool.ErrInvalidPayment, http.StatusBadRequest, "INVALID_PAYMENT"},
		{pool.ErrNotJoined, http.StatusNotFound, "NOT_JOINED"},
		{pool.ErrAlreadyPaid, http.StatusConflict, "ALREADY_PAID"},
		{pool.ErrGameCompleted, http.StatusConflict, "GAME_COMPLETED"},
		{pool.ErrGameNotCompleted, http.StatusConflict, "GAME_NOT_COMPLETED"},
		{pool.ErrAlreadyWithdrawn, http.StatusConflict, "ALREADY_WITHDRAWN"},
		{pool.ErrBelowExpected, http.StatusConflict, "BELOW_EXPECTED"},
		{pool.ErrMerkleRootRequired, http.StatusBadRequest, "MERKLE_ROOT_REQUIRED"},
		{pool.ErrNegativeIncentive, http.StatusBadRequest, "NEGATIVE_INCENTIVE"},
		{strategy.ErrSlippage, http.StatusConflict, "SLIPPAGE"},
	}
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			writeError(w, m.status, err.Error(), m.code)
			return
		}
	}
	writeError(w, http.StatusBadGateway, err.Error(), "TECHNICAL_ERROR")
}
