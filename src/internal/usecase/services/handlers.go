package services

import (
	"context"
	"fmt"

	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

// Chart of accounts. Accounts are value objects, so these names are the only
// registration they need.
const (
	accChainWallet      = "chain_wallet"
	accLightningNode    = "lightning_node"
	accCustomerDeposits = "customer_deposits"
	accFeeIncome        = "fee_income"
	accNetworkFees      = "network_fees"
	accRoutingIncome    = "routing_income"
	accExchangeClearing = "exchange_clearing"
)

// dispatch builds the ledger entries for one tracked event. An empty slice
// with a nil error means the event carries nothing to post (SKIPPED).
func (s *PipelineService) dispatch(ctx context.Context, event domain.TrackedEvent, quote domain.Quote) ([]domain.LedgerEntry, error) {
	switch payload := event.Payload.(type) {
	case domain.ChainTransfer:
		return s.handleChainTransfer(ctx, event, payload, quote)
	case domain.ChainOrderFill:
		return s.handleChainOrderFill(event, payload, quote)
	case domain.ChainCustom:
		return nil, nil
	case domain.NetworkInvoice:
		return s.handleNetworkInvoice(ctx, event, payload, quote)
	case domain.NetworkPayment:
		return s.handleNetworkPayment(event, payload, quote)
	case domain.ForwardedEvent:
		return s.handleForwarded(event, payload, quote)
	default:
		return nil, fmt.Errorf("no handler for event kind %q", event.Payload.Kind())
	}
}

// handleChainTransfer posts an inbound chain deposit and its conversion to
// the payment network: the full deposit, the fee, the converted net, and any
// change returned to the customer.
func (s *PipelineService) handleChainTransfer(ctx context.Context, event domain.TrackedEvent, p domain.ChainTransfer, quote domain.Quote) ([]domain.LedgerEntry, error) {
	conv, err := s.conversion.ConvertForward(ctx, p.Amount, p.Unit, domain.UnitSats, quote)
	if err != nil {
		return nil, err
	}

	customer := domain.NewAccount(accCustomerDeposits, event.CustID, domain.AccountTypeLiability)
	wallet := domain.NewAccount(accChainWallet, "", domain.AccountTypeAsset)
	node := domain.NewAccount(accLightningNode, "", domain.AccountTypeAsset)

	entries := []domain.LedgerEntry{
		s.newEntry(event, "", domain.LedgerTypeDeposit,
			fmt.Sprintf("Deposit %s %s from %s", p.Amount, p.Unit, p.From),
			domain.Leg{Account: wallet, Unit: p.Unit, Amount: p.Amount, Snapshot: conv.ToConvert},
			domain.Leg{Account: customer, Unit: p.Unit, Amount: p.Amount, Snapshot: conv.ToConvert},
		),
	}

	if conv.Fee.Msats.IsPositive() {
		entries = append(entries, s.newEntry(event, "fee", domain.LedgerTypeFeeIncome,
			fmt.Sprintf("Conversion fee on %s %s", p.Amount, p.Unit),
			domain.Leg{Account: customer, Unit: p.Unit, Amount: conv.Fee.AmountIn(p.Unit), Snapshot: conv.Fee},
			domain.Leg{Account: domain.NewAccount(accFeeIncome, "", domain.AccountTypeRevenue), Unit: domain.UnitMsats, Amount: conv.Fee.Msats, Snapshot: conv.Fee},
		))
	}

	entries = append(entries, s.newEntry(event, "conv", domain.LedgerTypeConversionCtoN,
		fmt.Sprintf("Convert %s %s to %s sats", p.Amount, p.Unit, conv.NetToReceive.Sats),
		domain.Leg{Account: customer, Unit: p.Unit, Amount: conv.NetToReceive.AmountIn(p.Unit), Snapshot: conv.NetToReceive},
		domain.Leg{Account: node, Unit: domain.UnitMsats, Amount: conv.NetToReceive.Msats, Snapshot: conv.NetToReceive},
	))

	if conv.Change.Msats.IsPositive() {
		entries = append(entries, s.newEntry(event, "change", domain.LedgerTypeContra,
			fmt.Sprintf("Change returned on deposit %s", p.TxID),
			domain.Leg{Account: customer, Unit: domain.UnitMsats, Amount: conv.Change.Msats, Snapshot: conv.Change},
			domain.Leg{Account: wallet, Unit: domain.UnitMsats, Amount: conv.Change.Msats, Snapshot: conv.Change},
		))
	}

	return entries, nil
}

// handleChainOrderFill records an internal-market fill as two entries through
// the clearing account, one per token side, so each entry balances in a
// single unit even though the market price differs from the quote.
func (s *PipelineService) handleChainOrderFill(event domain.TrackedEvent, p domain.ChainOrderFill, quote domain.Quote) ([]domain.LedgerEntry, error) {
	recvSnap, err := plainSnapshot(p.ReceivedAmount, p.ReceivedUnit, quote)
	if err != nil {
		return nil, err
	}
	paidSnap, err := plainSnapshot(p.PaidAmount, p.PaidUnit, quote)
	if err != nil {
		return nil, err
	}

	wallet := domain.NewAccount(accChainWallet, "", domain.AccountTypeAsset)
	clearing := domain.NewContraAccount(accExchangeClearing, "", domain.AccountTypeAsset)

	return []domain.LedgerEntry{
		s.newEntry(event, "", domain.LedgerTypeExchangeFill,
			fmt.Sprintf("Order %s fill: received %s %s", p.OrderID, p.ReceivedAmount, p.ReceivedUnit),
			domain.Leg{Account: wallet, Unit: p.ReceivedUnit, Amount: p.ReceivedAmount, Snapshot: recvSnap},
			domain.Leg{Account: clearing, Unit: p.ReceivedUnit, Amount: p.ReceivedAmount, Snapshot: recvSnap},
		),
		s.newEntry(event, "paid", domain.LedgerTypeExchangeFill,
			fmt.Sprintf("Order %s fill: paid %s %s", p.OrderID, p.PaidAmount, p.PaidUnit),
			domain.Leg{Account: clearing, Unit: p.PaidUnit, Amount: p.PaidAmount, Snapshot: paidSnap},
			domain.Leg{Account: wallet, Unit: p.PaidUnit, Amount: p.PaidAmount, Snapshot: paidSnap},
		),
	}, nil
}

// handleNetworkInvoice posts a settled network invoice and its conversion
// back to the chain token.
func (s *PipelineService) handleNetworkInvoice(ctx context.Context, event domain.TrackedEvent, p domain.NetworkInvoice, quote domain.Quote) ([]domain.LedgerEntry, error) {
	conv, err := s.conversion.ConvertForward(ctx, p.AmountMsats, domain.UnitMsats, domain.UnitTokenA, quote)
	if err != nil {
		return nil, err
	}

	customer := domain.NewAccount(accCustomerDeposits, event.CustID, domain.AccountTypeLiability)
	wallet := domain.NewAccount(accChainWallet, "", domain.AccountTypeAsset)
	node := domain.NewAccount(accLightningNode, "", domain.AccountTypeAsset)

	entries := []domain.LedgerEntry{
		s.newEntry(event, "", domain.LedgerTypeDeposit,
			fmt.Sprintf("Invoice %s settled for %s msats", p.PaymentHash, p.AmountMsats),
			domain.Leg{Account: node, Unit: domain.UnitMsats, Amount: p.AmountMsats, Snapshot: conv.ToConvert},
			domain.Leg{Account: customer, Unit: domain.UnitMsats, Amount: p.AmountMsats, Snapshot: conv.ToConvert},
		),
	}

	if conv.Fee.Msats.IsPositive() {
		entries = append(entries, s.newEntry(event, "fee", domain.LedgerTypeFeeIncome,
			fmt.Sprintf("Conversion fee on invoice %s", p.PaymentHash),
			domain.Leg{Account: customer, Unit: domain.UnitMsats, Amount: conv.Fee.Msats, Snapshot: conv.Fee},
			domain.Leg{Account: domain.NewAccount(accFeeIncome, "", domain.AccountTypeRevenue), Unit: domain.UnitMsats, Amount: conv.Fee.Msats, Snapshot: conv.Fee},
		))
	}

	entries = append(entries, s.newEntry(event, "conv", domain.LedgerTypeConversionNtoC,
		fmt.Sprintf("Convert %s msats to %s %s", p.AmountMsats, conv.NetToReceive.TokenA, domain.UnitTokenA),
		domain.Leg{Account: customer, Unit: domain.UnitMsats, Amount: conv.NetToReceive.Msats, Snapshot: conv.NetToReceive},
		domain.Leg{Account: wallet, Unit: domain.UnitTokenA, Amount: conv.NetToReceive.TokenA, Snapshot: conv.NetToReceive},
	))

	if conv.Change.Msats.IsPositive() {
		entries = append(entries, s.newEntry(event, "change", domain.LedgerTypeContra,
			fmt.Sprintf("Change returned on invoice %s", p.PaymentHash),
			domain.Leg{Account: customer, Unit: domain.UnitMsats, Amount: conv.Change.Msats, Snapshot: conv.Change},
			domain.Leg{Account: node, Unit: domain.UnitMsats, Amount: conv.Change.Msats, Snapshot: conv.Change},
		))
	}

	return entries, nil
}

// handleNetworkPayment posts an outbound payment as a customer withdrawal
// plus the network routing fee paid out of the node.
func (s *PipelineService) handleNetworkPayment(event domain.TrackedEvent, p domain.NetworkPayment, quote domain.Quote) ([]domain.LedgerEntry, error) {
	amountSnap, err := plainSnapshot(p.AmountMsats, domain.UnitMsats, quote)
	if err != nil {
		return nil, err
	}

	customer := domain.NewAccount(accCustomerDeposits, event.CustID, domain.AccountTypeLiability)
	node := domain.NewAccount(accLightningNode, "", domain.AccountTypeAsset)

	entries := []domain.LedgerEntry{
		s.newEntry(event, "", domain.LedgerTypeWithdrawal,
			fmt.Sprintf("Payment %s of %s msats to %s", p.PaymentHash, p.AmountMsats, p.Destination),
			domain.Leg{Account: customer, Unit: domain.UnitMsats, Amount: p.AmountMsats, Snapshot: amountSnap},
			domain.Leg{Account: node, Unit: domain.UnitMsats, Amount: p.AmountMsats, Snapshot: amountSnap},
		),
	}

	if p.FeeMsats.IsPositive() {
		feeSnap, err := plainSnapshot(p.FeeMsats, domain.UnitMsats, quote)
		if err != nil {
			return nil, err
		}
		entries = append(entries, s.newEntry(event, "fee", domain.LedgerTypeFeeExpense,
			fmt.Sprintf("Network fee on payment %s", p.PaymentHash),
			domain.Leg{Account: domain.NewAccount(accNetworkFees, "", domain.AccountTypeExpense), Unit: domain.UnitMsats, Amount: p.FeeMsats, Snapshot: feeSnap},
			domain.Leg{Account: node, Unit: domain.UnitMsats, Amount: p.FeeMsats, Snapshot: feeSnap},
		))
	}

	return entries, nil
}

// handleForwarded books the routing margin (in minus out) as income. A
// zero-margin forward posts nothing.
func (s *PipelineService) handleForwarded(event domain.TrackedEvent, p domain.ForwardedEvent, quote domain.Quote) ([]domain.LedgerEntry, error) {
	margin := p.AmountInMsats.Sub(p.AmountOutMsat)
	if !margin.IsPositive() {
		return nil, nil
	}

	snap, err := plainSnapshot(margin, domain.UnitMsats, quote)
	if err != nil {
		return nil, err
	}

	return []domain.LedgerEntry{
		s.newEntry(event, "", domain.LedgerTypeFeeIncome,
			fmt.Sprintf("Routing margin %s msats on %d->%d", margin, p.ChanIDIn, p.ChanIDOut),
			domain.Leg{Account: domain.NewAccount(accLightningNode, "", domain.AccountTypeAsset), Unit: domain.UnitMsats, Amount: margin, Snapshot: snap},
			domain.Leg{Account: domain.NewAccount(accRoutingIncome, "", domain.AccountTypeRevenue), Unit: domain.UnitMsats, Amount: margin, Snapshot: snap},
		),
	}, nil
}

func (s *PipelineService) newEntry(event domain.TrackedEvent, suffix string, entryType domain.LedgerType, description string, debit, credit domain.Leg) domain.LedgerEntry {
	groupID := domain.DeriveGroupID(event.Payload.Kind(), event.Payload.SourceID(), suffix)
	return domain.LedgerEntry{
		GroupID:       groupID,
		ShortID:       domain.ShortID(groupID),
		CustID:        event.CustID,
		Type:          entryType,
		Timestamp:     event.Timestamp,
		Description:   description,
		Debit:         debit,
		Credit:        credit,
		SourceEventID: event.ID,
	}
}

// plainSnapshot prices an amount with no fee context, for entries that move
// money without converting it.
func plainSnapshot(amount decimal.Decimal, unit domain.Unit, quote domain.Quote) (domain.ConversionSnapshot, error) {
	msats, err := quote.ToMsats(amount, unit)
	if err != nil {
		return domain.ConversionSnapshot{}, err
	}
	return domain.NewConversionSnapshot(msats, quote, decimal.Zero, decimal.Zero)
}
