package domain

import "fmt"

type LedgerType string

const (
	LedgerTypeFunding        LedgerType = "fund"
	LedgerTypeConversionCtoN LedgerType = "conv_cn"
	LedgerTypeConversionNtoC LedgerType = "conv_nc"
	LedgerTypeFeeIncome      LedgerType = "fee_in"
	LedgerTypeFeeExpense     LedgerType = "fee_out"
	LedgerTypeWithdrawal     LedgerType = "withdraw"
	LedgerTypeDeposit        LedgerType = "deposit"
	LedgerTypeContra         LedgerType = "contra"
	LedgerTypeExchangeFill   LedgerType = "fill"
)

var ledgerTypeLabels = map[LedgerType]string{
	LedgerTypeFunding:        "Funding",
	LedgerTypeConversionCtoN: "Conversion Chain to Network",
	LedgerTypeConversionNtoC: "Conversion Network to Chain",
	LedgerTypeFeeIncome:      "Fee Income",
	LedgerTypeFeeExpense:     "Fee Expense",
	LedgerTypeWithdrawal:     "Withdrawal",
	LedgerTypeDeposit:        "Deposit",
	LedgerTypeContra:         "Contra / Reconciliation",
	LedgerTypeExchangeFill:   "Exchange Fill",
}

// Code is the stable short discriminator persisted with every entry.
func (t LedgerType) Code() string {
	return string(t)
}

func (t LedgerType) Label() string {
	if label, ok := ledgerTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

func (t LedgerType) Valid() bool {
	_, ok := ledgerTypeLabels[t]
	return ok
}

func ParseLedgerType(code string) (LedgerType, error) {
	t := LedgerType(code)
	if !t.Valid() {
		return "", fmt.Errorf("unknown ledger type code %q", code)
	}
	return t, nil
}
