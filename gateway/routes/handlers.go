package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"subledger/core/runtime"
	"subledger/core/types"
	"subledger/native/subscription"
	"subledger/observability/logging"
)

const maxBodyBytes = 64 << 10

type handlers struct {
	ledger    Ledger
	resolver  KeyResolver
	programID types.Pubkey
	minPrice  decimal.Decimal
	attempts  uint
	delay     time.Duration
	logger    *slog.Logger
	validate  *validator.Validate
	newNonce  func() uuid.UUID
}

type planRequest struct {
	Name   string          `json:"name" validate:"required,max=32"`
	Price  decimal.Decimal `json:"price"`
	ImgURL string          `json:"img_url" validate:"required,url,max=64"`
}

type createCreatorRequest struct {
	Token         string        `json:"token" validate:"required,alphanum"`
	Name          string        `json:"name" validate:"required,max=32"`
	Subscriptions []planRequest `json:"subscriptions" validate:"max=32,dive"`
}

type createCreatorResponse struct {
	OK             bool   `json:"ok"`
	CreatorAccount string `json:"creatorAccount"`
	Signature      string `json:"signature"`
}

type balanceResponse struct {
	OK      bool    `json:"ok"`
	Balance float64 `json:"balance"`
}

type routeDoc struct {
	Msg    string     `json:"msg"`
	Params []paramDoc `json:"params"`
}

type paramDoc struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Explanation string `json:"explanation"`
}

var routeDocs = map[string]routeDoc{
	"GET /balance?addr=[ADDRESS]": {
		Msg:    "Returns account balance in SOL",
		Params: []paramDoc{},
	},
	"POST /createCreator": {
		Msg: "Creates creator plan with given params.",
		Params: []paramDoc{
			{Name: "token", Type: "String", Explanation: "API token identifying the creator's owner and payto keys"},
			{Name: "name", Type: "String", Explanation: "Name of the plan, up to 32 bytes"},
			{Name: "subscriptions", Type: "list[{name: string, price: number, img_url: string}]", Explanation: "Up to 32 plans, price in SOL"},
		},
	},
}

func (h *handlers) docs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, routeDocs)
}

func (h *handlers) balance(w http.ResponseWriter, r *http.Request) {
	key, err := types.ParsePubkey(strings.TrimSpace(r.URL.Query().Get("addr")))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid address!"})
		return
	}
	lamports, err := h.ledger.Balance(r.Context(), key)
	if err != nil {
		h.logger.Error("balance lookup failed", slog.String("account", key.String()), slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Ledger unavailable!"})
		return
	}
	sol, _ := lamportsToSOL(lamports).Float64()
	writeJSON(w, http.StatusOK, balanceResponse{OK: true, Balance: sol})
}

func (h *handlers) createCreator(w http.ResponseWriter, r *http.Request) {
	var req createCreatorRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Malformed request body!"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
		return
	}
	prices := make([]uint64, len(req.Subscriptions))
	names := make([]string, len(req.Subscriptions))
	images := make([]string, len(req.Subscriptions))
	for i, plan := range req.Subscriptions {
		if plan.Price.LessThan(h.minPrice) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("subscriptions[%d].price must be at least %s SOL", i, h.minPrice)})
			return
		}
		lamports, err := solToLamports(plan.Price)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("subscriptions[%d].price: %v", i, err)})
			return
		}
		prices[i], names[i], images[i] = lamports, plan.Name, plan.ImgURL
	}

	owner, payto, err := h.resolver.ResolveOwnerAndPayto(r.Context(), req.Token)
	if errors.Is(err, ErrKeyNotFound) {
		h.logger.Info("unknown facade token", logging.MaskField("token", req.Token))
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Unknown token!"})
		return
	}
	if err != nil {
		h.logger.Error("key resolution failed", logging.MaskField("token", req.Token), slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Key service unavailable!"})
		return
	}

	account := deriveCreatorAccount(owner, h.newNonce())
	ix, err := subscription.NewCreateCreatorAccountInstruction(h.programID, account, owner, payto, req.Name, prices, names, images)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Malformed request body!"})
		return
	}
	receipt, err := h.submit(r.Context(), &runtime.Transaction{
		FeePayer:     owner,
		Signers:      []types.Pubkey{owner, account},
		Instructions: []runtime.Instruction{ix},
	})
	if err != nil {
		status, body := ledgerFailure(err)
		h.logger.Warn("createCreator rejected",
			slog.String("account", account.String()),
			slog.Int("status", status),
			slog.Any("error", err))
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, createCreatorResponse{OK: true, CreatorAccount: account.String(), Signature: receipt.Signature})
}

// submit executes tx, resubmitting only while the ledger reports a
// temporary failure.
func (h *handlers) submit(ctx context.Context, tx *runtime.Transaction) (*runtime.Receipt, error) {
	var receipt *runtime.Receipt
	err := retry.Do(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		receipt, err = h.ledger.Execute(ctx, tx)
		return err
	},
		retry.Attempts(h.attempts),
		retry.Delay(h.delay),
		retry.RetryIf(isTemporary),
		retry.LastErrorOnly(true),
	)
	return receipt, err
}

// deriveCreatorAccount picks a fresh address for a catalog owned by owner.
func deriveCreatorAccount(owner types.Pubkey, nonce uuid.UUID) types.Pubkey {
	var account types.Pubkey
	copy(account[:], ethcrypto.Keccak256(owner[:], nonce[:]))
	return account
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	}
	return "Invalid request!"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
