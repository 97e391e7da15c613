package commission_fee

// PercentCommissionFee charges a flat percentage of the fill notional.
type PercentCommissionFee struct {
	percent float64
}

// NewPercentCommissionFee creates a percent-of-notional fee model. A negative
// percent is treated as zero.
func NewPercentCommissionFee(percent float64) CommissionFee {
	if percent < 0 {
		percent = 0
	}

	return &PercentCommissionFee{percent: percent}
}

// Calculate returns percent/100 of the notional.
func (c *PercentCommissionFee) Calculate(notional float64) float64 {
	if notional < 0 {
		notional = -notional
	}

	return notional * c.percent / 100
}
