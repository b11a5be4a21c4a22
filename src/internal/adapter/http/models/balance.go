package models

import (
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/domain"
)

type BalanceLineResponse struct {
	GroupID      string `json:"groupId"`
	ShortID      string `json:"shortId"`
	Type         string `json:"type"`
	TypeLabel    string `json:"typeLabel"`
	Timestamp    string `json:"timestamp"`
	Description  string `json:"description"`
	Unit         string `json:"unit"`
	Amount       string `json:"amount"`
	RunningTotal string `json:"runningTotal"`
	Msats        string `json:"msats"`
}

type BalanceResponse struct {
	Account    string                `json:"account"`
	Sub        string                `json:"sub,omitempty"`
	Type       string                `json:"type"`
	AsOf       string                `json:"asOf"`
	Totals     map[string]string     `json:"totals"`
	TotalMsats string                `json:"totalMsats"`
	Lines      []BalanceLineResponse `json:"lines"`
}

func FromBalanceReport(report domain.BalanceReport) BalanceResponse {
	totals := make(map[string]string, len(report.Totals))
	for unit, amount := range report.Totals {
		totals[string(unit)] = amount.String()
	}

	lines := make([]BalanceLineResponse, 0, len(report.Lines))
	for _, line := range report.Lines {
		lines = append(lines, BalanceLineResponse{
			GroupID:      line.GroupID,
			ShortID:      line.ShortID,
			Type:         line.Type.Code(),
			TypeLabel:    line.Type.Label(),
			Timestamp:    line.Timestamp.UTC().Format(time.RFC3339),
			Description:  line.Description,
			Unit:         string(line.Unit),
			Amount:       line.Amount.String(),
			RunningTotal: line.RunningTotal.String(),
			Msats:        line.Msats.String(),
		})
	}

	return BalanceResponse{
		Account:    report.Account.Name,
		Sub:        report.Account.Sub,
		Type:       string(report.Account.Type),
		AsOf:       report.AsOf.UTC().Format(time.RFC3339),
		Totals:     totals,
		TotalMsats: report.TotalMsats.Round(0).String(),
		Lines:      lines,
	}
}

type AccountResponse struct {
	Name string `json:"name"`
	Sub  string `json:"sub,omitempty"`
	Type string `json:"type"`
}

func FromAccountRefs(refs []domain.AccountRef) []AccountResponse {
	out := make([]AccountResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, AccountResponse{Name: ref.Name, Sub: ref.Sub, Type: string(ref.Type)})
	}
	return out
}
