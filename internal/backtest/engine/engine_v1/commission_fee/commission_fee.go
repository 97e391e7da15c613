package commission_fee

// CommissionFee computes the fee in quote currency for a fill of the given
// notional value. It is applied independently at entry and at exit, on the
// closed quantity only.
type CommissionFee interface {
	Calculate(notional float64) float64
}

type Model string

const (
	ModelZero    Model = "zero"
	ModelPercent Model = "percent"
)

var AllModels = []any{
	ModelZero,
	ModelPercent,
}

// GetCommissionFeeHandler returns the fee model for the configuration.
// Unknown models fall back to zero commission.
func GetCommissionFeeHandler(model Model, percent float64) CommissionFee {
	switch model {
	case ModelPercent:
		return NewPercentCommissionFee(percent)
	case ModelZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
