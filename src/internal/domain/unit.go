package domain

import "fmt"

// Unit is a currency unit the bridge can express an amount in. The msat is
// the canonical integer settlement unit and the pivot for all conversions.
type Unit string

const (
	UnitTokenA Unit = "TOKA"
	UnitTokenB Unit = "TOKB"
	UnitUSD    Unit = "USD"
	UnitSats   Unit = "SATS"
	UnitMsats  Unit = "MSATS"
)

func (u Unit) Valid() bool {
	switch u {
	case UnitTokenA, UnitTokenB, UnitUSD, UnitSats, UnitMsats:
		return true
	}
	return false
}

// ChainToken reports whether the unit is one of the base-chain tokens, which
// round to 3 decimal places everywhere in the system.
func (u Unit) ChainToken() bool {
	return u == UnitTokenA || u == UnitTokenB
}

func ParseUnit(code string) (Unit, error) {
	u := Unit(code)
	if !u.Valid() {
		return "", fmt.Errorf("unknown currency unit %q", code)
	}
	return u, nil
}
