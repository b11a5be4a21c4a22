package services

import (
	"context"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/api-sage/bridge-ledger/src/internal/logger"
	"github.com/api-sage/bridge-ledger/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
)

// Verify that BalanceService implements the service_interfaces.BalanceService interface
var _ service_interfaces.BalanceService = (*BalanceService)(nil)

type BalanceService struct {
	ledgerRepo repo_interfaces.LedgerRepository
}

func NewBalanceService(ledgerRepo repo_interfaces.LedgerRepository) *BalanceService {
	return &BalanceService{ledgerRepo: ledgerRepo}
}

func (s *BalanceService) Balance(ctx context.Context, account domain.Account, asOf time.Time, ageWindow time.Duration) (domain.BalanceReport, error) {
	if err := account.Validate(); err != nil {
		return domain.BalanceReport{}, err
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	var since time.Time
	if ageWindow > 0 {
		since = asOf.Add(-ageWindow)
	}

	entries, err := s.ledgerRepo.ListByAccount(ctx, account.Name, account.Sub, since, asOf)
	if err != nil {
		logger.Error("balance service list entries failed", err, logger.Fields{
			"account": account.String(),
		})
		return domain.BalanceReport{}, err
	}

	report := domain.BalanceReport{
		Account:    account,
		AsOf:       asOf,
		Totals:     make(map[domain.Unit]decimal.Decimal),
		TotalMsats: decimal.Zero,
		Lines:      make([]domain.BalanceLine, 0, len(entries)),
	}

	for _, entry := range entries {
		leg, sign, touches := legFor(entry, account.Name, account.Sub)
		if !touches {
			continue
		}

		signed := leg.Amount
		msats, err := leg.Msats()
		if err != nil {
			return domain.BalanceReport{}, err
		}
		if sign < 0 {
			signed = signed.Neg()
			msats = msats.Neg()
		}

		report.Totals[leg.Unit] = report.Totals[leg.Unit].Add(signed)
		report.TotalMsats = report.TotalMsats.Add(msats)

		report.Lines = append(report.Lines, domain.BalanceLine{
			GroupID:      entry.GroupID,
			ShortID:      entry.ShortID,
			Type:         entry.Type,
			Timestamp:    entry.Timestamp,
			Description:  entry.Description,
			Unit:         leg.Unit,
			Amount:       signed,
			RunningTotal: report.Totals[leg.Unit],
			Msats:        msats.Round(0),
		})
	}

	return report, nil
}

func (s *BalanceService) ConvertedInWindow(ctx context.Context, custID string, window time.Duration) (decimal.Decimal, error) {
	since := time.Now().UTC().Add(-window)
	entries, err := s.ledgerRepo.ListByCustomer(ctx, custID, since)
	if err != nil {
		return decimal.Decimal{}, err
	}

	total := decimal.Zero
	for _, entry := range entries {
		if entry.Type != domain.LedgerTypeConversionCtoN && entry.Type != domain.LedgerTypeConversionNtoC {
			continue
		}
		msats, err := entry.Debit.Msats()
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(msats)
	}
	return total, nil
}

func (s *BalanceService) ListAccounts(ctx context.Context) ([]domain.AccountRef, error) {
	return s.ledgerRepo.ListAccounts(ctx)
}

// legFor picks the leg of the entry touching the account, with the signed
// direction per the account type's sign rule.
func legFor(entry domain.LedgerEntry, name, sub string) (domain.Leg, int, bool) {
	if entry.Debit.Account.Name == name && entry.Debit.Account.Sub == sub {
		return entry.Debit, entry.Debit.Account.DebitSign(), true
	}
	if entry.Credit.Account.Name == name && entry.Credit.Account.Sub == sub {
		return entry.Credit, entry.Credit.Account.CreditSign(), true
	}
	return domain.Leg{}, 0, false
}
