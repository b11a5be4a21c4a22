package models

import (
	"errors"
	"strings"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	DirectionForward = "forward"
	DirectionInverse = "inverse"
)

type ConvertRequest struct {
	Amount string `json:"amount"`
	From   string `json:"from"`
	To     string `json:"to"`
	// Direction "forward" converts Amount of From; "inverse" solves for the
	// source amount that nets Amount of To.
	Direction string `json:"direction"`
}

func (r ConvertRequest) Validate() error {
	var errs []string

	amount := strings.TrimSpace(r.Amount)
	if amount == "" {
		errs = append(errs, "amount is required")
	} else {
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			errs = append(errs, "amount must be numeric")
		} else if parsed.LessThanOrEqual(decimal.Zero) {
			errs = append(errs, "amount must be greater than zero")
		}
	}

	if _, err := domain.ParseUnit(strings.ToUpper(strings.TrimSpace(r.From))); err != nil {
		errs = append(errs, "from unit is not recognized")
	}
	if _, err := domain.ParseUnit(strings.ToUpper(strings.TrimSpace(r.To))); err != nil {
		errs = append(errs, "to unit is not recognized")
	}

	switch strings.ToLower(strings.TrimSpace(r.Direction)) {
	case DirectionForward, DirectionInverse, "":
	default:
		errs = append(errs, "direction must be forward or inverse")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type SnapshotResponse struct {
	TokenA string `json:"tokenA"`
	TokenB string `json:"tokenB"`
	USD    string `json:"usd"`
	Sats   string `json:"sats"`
	Msats  string `json:"msats"`
}

type ConvertResponse struct {
	From      string           `json:"from"`
	To        string           `json:"to"`
	ToConvert SnapshotResponse `json:"toConvert"`
	Net       SnapshotResponse `json:"net"`
	Fee       SnapshotResponse `json:"fee"`
	Change    SnapshotResponse `json:"change"`
	Degraded  bool             `json:"degraded,omitempty"`
	QuoteSrc  string           `json:"quoteSource"`
}

func FromConversionResult(result domain.ConversionResult) ConvertResponse {
	return ConvertResponse{
		From:      string(result.SourceUnit),
		To:        string(result.TargetUnit),
		ToConvert: fromSnapshot(result.ToConvert),
		Net:       fromSnapshot(result.NetToReceive),
		Fee:       fromSnapshot(result.Fee),
		Change:    fromSnapshot(result.Change),
		Degraded:  result.Degraded,
		QuoteSrc:  result.ToConvert.Source,
	}
}

func fromSnapshot(snapshot domain.ConversionSnapshot) SnapshotResponse {
	return SnapshotResponse{
		TokenA: snapshot.TokenA.String(),
		TokenB: snapshot.TokenB.String(),
		USD:    snapshot.USD.String(),
		Sats:   snapshot.Sats.String(),
		Msats:  snapshot.Msats.String(),
	}
}

type QuoteResponse struct {
	TokenAUSD          string `json:"tokenAUsd"`
	TokenBUSD          string `json:"tokenBUsd"`
	SettlementAssetUSD string `json:"settlementAssetUsd"`
	TokenATokenBRate   string `json:"tokenATokenBRate"`
	FetchTime          string `json:"fetchTime"`
	Source             string `json:"source"`
	Degraded           bool   `json:"degraded,omitempty"`
}

func FromQuote(quote domain.Quote) QuoteResponse {
	return QuoteResponse{
		TokenAUSD:          quote.TokenAUSD.String(),
		TokenBUSD:          quote.TokenBUSD.String(),
		SettlementAssetUSD: quote.SettlementAssetUSD.String(),
		TokenATokenBRate:   quote.TokenATokenBRate.String(),
		FetchTime:          quote.FetchTime.UTC().Format(time.RFC3339),
		Source:             quote.Source,
		Degraded:           quote.Degraded,
	}
}
