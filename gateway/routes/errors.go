package routes

import (
	"errors"
	"net/http"

	"subledger/core/runtime"
	"subledger/native/subscription"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Code  uint32 `json:"code,omitempty"`
}

// ledgerFailure maps a rejected transaction onto a status and a message that
// is distinct for every program error kind.
func ledgerFailure(err error) (int, errorResponse) {
	if perr, ok := subscription.AsError(err); ok {
		return http.StatusUnprocessableEntity, errorResponse{Error: perr.Message(), Kind: perr.Name(), Code: perr.Code()}
	}
	switch {
	case errors.Is(err, runtime.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, errorResponse{Error: "Insufficient funds!", Kind: "InsufficientFunds"}
	case errors.Is(err, runtime.ErrAccountAlreadyInUse):
		return http.StatusConflict, errorResponse{Error: "Account already exists!", Kind: "AccountAlreadyInUse"}
	case errors.Is(err, runtime.ErrMissingRequiredSignature):
		return http.StatusForbidden, errorResponse{Error: "Missing required signature!", Kind: "MissingRequiredSignature"}
	default:
		return http.StatusBadGateway, errorResponse{Error: "Ledger unavailable!"}
	}
}

type temporary interface {
	Temporary() bool
}

// isTemporary reports whether resubmitting may succeed.
func isTemporary(err error) bool {
	var t temporary
	return errors.As(err, &t) && t.Temporary()
}
