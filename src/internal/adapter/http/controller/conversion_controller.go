package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type ConversionService interface {
	ConvertForward(ctx context.Context, amount decimal.Decimal, from, to domain.Unit, quote domain.Quote) (domain.ConversionResult, error)
	ConvertInverse(ctx context.Context, targetNet decimal.Decimal, to, from domain.Unit, quote domain.Quote) (domain.ConversionResult, error)
}

type QuoteService interface {
	Latest(ctx context.Context) (domain.Quote, error)
}

type ConversionController struct {
	service ConversionService
	quotes  QuoteService
}

func NewConversionController(service ConversionService, quotes QuoteService) *ConversionController {
	return &ConversionController{service: service, quotes: quotes}
}

func (c *ConversionController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	handler := http.HandlerFunc(c.preview)
	if authMiddleware != nil {
		handler = authMiddleware(handler).ServeHTTP
	}

	mux.Handle("/conversions/preview", http.HandlerFunc(handler))
}

// preview prices a conversion without posting anything to the ledger.
func (c *ConversionController) preview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.ConvertResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponseFromErr[models.ConvertResponse]("invalid request body", err)
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponseFromErr[models.ConvertResponse]("validation failed", err)
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	amount, _ := decimal.NewFromString(strings.TrimSpace(req.Amount))
	from, _ := domain.ParseUnit(strings.ToUpper(strings.TrimSpace(req.From)))
	to, _ := domain.ParseUnit(strings.ToUpper(strings.TrimSpace(req.To)))

	quote, err := c.quotes.Latest(r.Context())
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponseFromErr[models.ConvertResponse]("exchange rate unavailable", err)
		writeJSON(w, http.StatusServiceUnavailable, response)
		logResponse(r, http.StatusServiceUnavailable, response, start)
		return
	}

	var result domain.ConversionResult
	if strings.EqualFold(strings.TrimSpace(req.Direction), models.DirectionInverse) {
		result, err = c.service.ConvertInverse(r.Context(), amount, to, from, quote)
	} else {
		result, err = c.service.ConvertForward(r.Context(), amount, from, to, quote)
	}
	if err != nil {
		logError(r, err, nil)
		status := http.StatusInternalServerError
		if errors.Is(err, commons.ErrInsufficientAmount) {
			status = http.StatusUnprocessableEntity
		}
		if errors.Is(err, commons.ErrExchangeRateUnavailable) {
			status = http.StatusServiceUnavailable
		}
		var verr *commons.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusBadRequest
		}

		response := commons.ErrorResponseFromErr[models.ConvertResponse]("conversion failed", err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("conversion priced", models.FromConversionResult(result))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
