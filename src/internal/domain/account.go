package domain

import "fmt"

type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeEquity    AccountType = "EQUITY"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeRevenue, AccountTypeExpense, AccountTypeEquity:
		return true
	}
	return false
}

// Account is a value object identifying one side of a ledger entry. Accounts
// have no lifecycle of their own; they are constructed fresh for each entry.
type Account struct {
	Name string
	Sub  string
	Type AccountType
	// Contra inverts the account's normal balance sign, used for
	// reconciliation/offset accounts.
	Contra bool
}

func NewAccount(name, sub string, accountType AccountType) Account {
	return Account{Name: name, Sub: sub, Type: accountType}
}

func NewContraAccount(name, sub string, accountType AccountType) Account {
	return Account{Name: name, Sub: sub, Type: accountType, Contra: true}
}

// DebitSign reports the sign a debit leg contributes to this account's
// balance. Asset and Expense accounts increase on a debit; Liability,
// Revenue and Equity accounts decrease.
func (a Account) DebitSign() int {
	sign := -1
	if a.Type == AccountTypeAsset || a.Type == AccountTypeExpense {
		sign = 1
	}
	if a.Contra {
		sign = -sign
	}
	return sign
}

func (a Account) CreditSign() int {
	return -a.DebitSign()
}

func (a Account) String() string {
	if a.Sub == "" {
		return a.Name
	}
	return fmt.Sprintf("%s:%s", a.Name, a.Sub)
}

func (a Account) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("account name is required")
	}
	if !a.Type.Valid() {
		return fmt.Errorf("account type %q is not valid", a.Type)
	}
	return nil
}
