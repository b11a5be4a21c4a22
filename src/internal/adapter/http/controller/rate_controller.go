package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
)

type RateController struct {
	quotes QuoteService
}

func NewRateController(quotes QuoteService) *RateController {
	return &RateController{quotes: quotes}
}

func (c *RateController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	handler := http.HandlerFunc(c.latest)
	if authMiddleware != nil {
		handler = authMiddleware(handler).ServeHTTP
	}

	mux.Handle("/rates/latest", http.HandlerFunc(handler))
}

func (c *RateController) latest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		response := commons.ErrorResponse[models.QuoteResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	quote, err := c.quotes.Latest(r.Context())
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponseFromErr[models.QuoteResponse]("exchange rate unavailable", err)
		writeJSON(w, http.StatusServiceUnavailable, response)
		logResponse(r, http.StatusServiceUnavailable, response, start)
		return
	}

	response := commons.SuccessResponse("latest quote", models.FromQuote(quote))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
