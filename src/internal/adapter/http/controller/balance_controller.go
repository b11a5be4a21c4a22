package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type BalanceService interface {
	Balance(ctx context.Context, account domain.Account, asOf time.Time, ageWindow time.Duration) (domain.BalanceReport, error)
	ConvertedInWindow(ctx context.Context, custID string, window time.Duration) (decimal.Decimal, error)
	ListAccounts(ctx context.Context) ([]domain.AccountRef, error)
}

type BalanceController struct {
	service BalanceService
}

func NewBalanceController(service BalanceService) *BalanceController {
	return &BalanceController{service: service}
}

func (c *BalanceController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	balance := http.HandlerFunc(c.balance)
	accounts := http.HandlerFunc(c.accounts)
	if authMiddleware != nil {
		balance = authMiddleware(balance).ServeHTTP
		accounts = authMiddleware(accounts).ServeHTTP
	}

	mux.Handle("/accounts/balance", http.HandlerFunc(balance))
	mux.Handle("/accounts", http.HandlerFunc(accounts))
}

func (c *BalanceController) balance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		response := commons.ErrorResponse[models.BalanceResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	query := r.URL.Query()
	account := domain.Account{
		Name: strings.TrimSpace(query.Get("name")),
		Sub:  strings.TrimSpace(query.Get("sub")),
		Type: domain.AccountType(strings.ToUpper(strings.TrimSpace(query.Get("type")))),
	}
	if err := account.Validate(); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponseFromErr[models.BalanceResponse]("validation failed", err)
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	var asOf time.Time
	if raw := strings.TrimSpace(query.Get("asOf")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response := commons.ErrorResponse[models.BalanceResponse]("validation failed", "asOf must be RFC3339")
			writeJSON(w, http.StatusBadRequest, response)
			logResponse(r, http.StatusBadRequest, response, start)
			return
		}
		asOf = parsed
	}

	var window time.Duration
	if raw := strings.TrimSpace(query.Get("window")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			response := commons.ErrorResponse[models.BalanceResponse]("validation failed", "window must be a positive duration")
			writeJSON(w, http.StatusBadRequest, response)
			logResponse(r, http.StatusBadRequest, response, start)
			return
		}
		window = parsed
	}

	report, err := c.service.Balance(r.Context(), account, asOf, window)
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponseFromErr[models.BalanceResponse]("balance lookup failed", err)
		writeJSON(w, http.StatusInternalServerError, response)
		logResponse(r, http.StatusInternalServerError, response, start)
		return
	}

	response := commons.SuccessResponse("balance computed", models.FromBalanceReport(report))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *BalanceController) accounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		response := commons.ErrorResponse[[]models.AccountResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	refs, err := c.service.ListAccounts(r.Context())
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponseFromErr[[]models.AccountResponse]("account listing failed", err)
		writeJSON(w, http.StatusInternalServerError, response)
		logResponse(r, http.StatusInternalServerError, response, start)
		return
	}

	response := commons.SuccessResponse("accounts listed", models.FromAccountRefs(refs))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
