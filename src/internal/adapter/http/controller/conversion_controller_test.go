package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/http/controller"
	"github.com/api-sage/bridge-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/bridge-ledger/src/internal/adapter/rates"
	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/api-sage/bridge-ledger/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

func previewHandler() http.Handler {
	conversion := services.NewConversionService(services.ConversionConfig{
		FeePercent:                1.5,
		FlatFeeSats:               50,
		NotificationFeeSats:       100,
		NotificationThresholdSats: 5000,
		MinimalReceiptMsats:       1000,
	})
	quotes := rates.NewProvider(rates.StaticSource{Quote: domain.Quote{
		TokenAUSD:          decimal.RequireFromString("0.05078236"),
		TokenBUSD:          decimal.RequireFromString("0.2"),
		SettlementAssetUSD: decimal.RequireFromString("20000"),
		TokenATokenBRate:   decimal.RequireFromString("0.2539118"),
		FetchTime:          time.Now().UTC(),
		Source:             "test",
	}})

	mux := http.NewServeMux()
	controller.NewConversionController(conversion, quotes).RegisterRoutes(mux, nil)
	return mux
}

func TestPreviewForwardConversion(t *testing.T) {
	handler := previewHandler()

	body := `{"amount":"10","from":"TOKA","to":"SATS","direction":"forward"}`
	req := httptest.NewRequest(http.MethodPost, "/conversions/preview", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var response commons.Response[models.ConvertResponse]
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !response.Success || response.Data == nil {
		t.Fatalf("expected successful response, got %+v", response)
	}
	if response.Data.Net.Sats != "2451" {
		t.Fatalf("expected net 2451 sats, got %s", response.Data.Net.Sats)
	}
	if response.Data.Fee.Sats != "88" {
		t.Fatalf("expected fee 88 sats, got %s", response.Data.Fee.Sats)
	}
}

func TestPreviewRejectsMalformedRequest(t *testing.T) {
	handler := previewHandler()

	body := `{"amount":"-5","from":"TOKA","to":"SATS"}`
	req := httptest.NewRequest(http.MethodPost, "/conversions/preview", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestPreviewRejectsInsufficientAmount(t *testing.T) {
	handler := previewHandler()

	body := `{"amount":"0.1","from":"TOKA","to":"SATS"}`
	req := httptest.NewRequest(http.MethodPost, "/conversions/preview", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rr.Code)
	}
}

func TestPreviewRequiresPost(t *testing.T) {
	handler := previewHandler()

	req := httptest.NewRequest(http.MethodGet, "/conversions/preview", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}
