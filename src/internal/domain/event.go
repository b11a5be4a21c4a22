package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventKindChainTransfer  EventKind = "chain_transfer"
	EventKindChainOrderFill EventKind = "chain_fill"
	EventKindChainCustom    EventKind = "chain_custom"
	EventKindInvoice        EventKind = "net_invoice"
	EventKindPayment        EventKind = "net_payment"
	EventKindForwarded      EventKind = "net_forward"
)

// EventPayload is the closed set of event shapes the pipeline processes.
// Each variant declares the fields its handler needs, so dispatch is typed
// rather than probed at runtime.
type EventPayload interface {
	Kind() EventKind
	SourceID() string
	Validate() error
}

// TrackedEvent is what upstream streamers deliver: at-least-once, unordered,
// possibly duplicated. The derived group id is the dedup and lock key.
type TrackedEvent struct {
	ID        string
	CustID    string
	Timestamp time.Time
	Payload   EventPayload
}

func (e TrackedEvent) GroupID() string {
	return DeriveGroupID(e.Payload.Kind(), e.Payload.SourceID(), "")
}

func (e TrackedEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if e.CustID == "" {
		return fmt.Errorf("event cust id is required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event timestamp is required")
	}
	if e.Payload == nil {
		return fmt.Errorf("event payload is required")
	}
	return e.Payload.Validate()
}

// ChainTransfer is a token transfer observed on the blockchain ledger.
type ChainTransfer struct {
	TxID    string
	OpIndex int
	From    string
	To      string
	Amount  decimal.Decimal
	Unit    Unit
	Memo    string
}

func (p ChainTransfer) Kind() EventKind { return EventKindChainTransfer }

func (p ChainTransfer) SourceID() string {
	return fmt.Sprintf("%s-%d", p.TxID, p.OpIndex)
}

func (p ChainTransfer) Validate() error {
	if p.TxID == "" {
		return fmt.Errorf("chain transfer tx id is required")
	}
	if !p.Unit.ChainToken() {
		return fmt.Errorf("chain transfer unit %q must be a chain token", p.Unit)
	}
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("chain transfer amount must be greater than zero")
	}
	return nil
}

// ChainOrderFill is an internal-market order fill on the blockchain ledger,
// exchanging one chain token for the other.
type ChainOrderFill struct {
	TxID           string
	OrderID        string
	PaidAmount     decimal.Decimal
	PaidUnit       Unit
	ReceivedAmount decimal.Decimal
	ReceivedUnit   Unit
	CounterOwner   string
}

func (p ChainOrderFill) Kind() EventKind { return EventKindChainOrderFill }

func (p ChainOrderFill) SourceID() string {
	return fmt.Sprintf("%s-%s", p.TxID, p.OrderID)
}

func (p ChainOrderFill) Validate() error {
	if p.TxID == "" || p.OrderID == "" {
		return fmt.Errorf("chain order fill tx id and order id are required")
	}
	if !p.PaidUnit.ChainToken() || !p.ReceivedUnit.ChainToken() {
		return fmt.Errorf("chain order fill units must be chain tokens")
	}
	if p.PaidUnit == p.ReceivedUnit {
		return fmt.Errorf("chain order fill must exchange distinct tokens")
	}
	if p.PaidAmount.LessThanOrEqual(decimal.Zero) || p.ReceivedAmount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("chain order fill amounts must be greater than zero")
	}
	return nil
}

// ChainCustom is a chain-native notification payload carrying an
// application-defined JSON body.
type ChainCustom struct {
	TxID     string
	OpIndex  int
	CustomID string
	Body     string
}

func (p ChainCustom) Kind() EventKind { return EventKindChainCustom }

func (p ChainCustom) SourceID() string {
	return fmt.Sprintf("%s-%d", p.TxID, p.OpIndex)
}

func (p ChainCustom) Validate() error {
	if p.TxID == "" {
		return fmt.Errorf("chain custom tx id is required")
	}
	if p.CustomID == "" {
		return fmt.Errorf("chain custom id is required")
	}
	return nil
}

// NetworkInvoice is a settled invoice on the payment network.
type NetworkInvoice struct {
	PaymentHash string
	AmountMsats decimal.Decimal
	Memo        string
	SettledAt   time.Time
}

func (p NetworkInvoice) Kind() EventKind { return EventKindInvoice }

func (p NetworkInvoice) SourceID() string { return p.PaymentHash }

func (p NetworkInvoice) Validate() error {
	if p.PaymentHash == "" {
		return fmt.Errorf("invoice payment hash is required")
	}
	if p.AmountMsats.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("invoice amount must be greater than zero")
	}
	return nil
}

// NetworkPayment is an outbound payment settled on the payment network.
type NetworkPayment struct {
	PaymentHash string
	AmountMsats decimal.Decimal
	FeeMsats    decimal.Decimal
	Destination string
}

func (p NetworkPayment) Kind() EventKind { return EventKindPayment }

func (p NetworkPayment) SourceID() string { return p.PaymentHash }

func (p NetworkPayment) Validate() error {
	if p.PaymentHash == "" {
		return fmt.Errorf("payment payment hash is required")
	}
	if p.AmountMsats.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("payment amount must be greater than zero")
	}
	if p.FeeMsats.IsNegative() {
		return fmt.Errorf("payment fee cannot be negative")
	}
	return nil
}

// ForwardedEvent is a routing forward through the bridge's node on the
// payment network.
type ForwardedEvent struct {
	ChanIDIn      uint64
	ChanIDOut     uint64
	AmountInMsats decimal.Decimal
	AmountOutMsat decimal.Decimal
	SettledAt     time.Time
}

func (p ForwardedEvent) Kind() EventKind { return EventKindForwarded }

func (p ForwardedEvent) SourceID() string {
	return fmt.Sprintf("%d-%d-%d", p.ChanIDIn, p.ChanIDOut, p.SettledAt.UnixNano())
}

func (p ForwardedEvent) Validate() error {
	if p.AmountInMsats.LessThanOrEqual(decimal.Zero) || p.AmountOutMsat.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("forwarded amounts must be greater than zero")
	}
	if p.AmountOutMsat.GreaterThan(p.AmountInMsats) {
		return fmt.Errorf("forwarded out amount cannot exceed in amount")
	}
	return nil
}
