package domain

// ConversionResult is the output of a fee-aware conversion. Each component
// carries its own snapshot so entry construction can re-express it in any
// supported unit.
type ConversionResult struct {
	// ToConvert is the gross source amount entering the conversion.
	ToConvert ConversionSnapshot
	// NetToReceive is what the counterparty ends up with after fees.
	NetToReceive ConversionSnapshot
	// Fee is the total fee taken (flat + percentage + any notification fee).
	Fee ConversionSnapshot
	// Change is the rounding/over-payment remainder returned to the sender.
	Change ConversionSnapshot

	SourceUnit Unit
	TargetUnit Unit
	// Degraded is set when the conversion was priced from a fallback quote.
	Degraded bool
}
