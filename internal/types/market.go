package types

import (
	"time"
)

// Bar represents a single OHLCV candle. Bars are immutable and ordered
// ascending by time, one per fixed-resolution interval.
type Bar struct {
	Time   time.Time `csv:"time" yaml:"time"`
	Open   float64   `csv:"open" yaml:"open"`
	High   float64   `csv:"high" yaml:"high"`
	Low    float64   `csv:"low" yaml:"low"`
	Close  float64   `csv:"close" yaml:"close"`
	Volume float64   `csv:"volume" yaml:"volume"`
}

// TickTrade is a single aggregated trade print. IsBuyerMaker reports the
// passive side: when true the aggressor sold, when false the aggressor bought.
type TickTrade struct {
	Time         time.Time `csv:"time"`
	Price        float64   `csv:"price"`
	Quantity     float64   `csv:"quantity"`
	IsBuyerMaker bool      `csv:"is_buyer_maker"`
}

// BuyVolume returns the aggressive buy quantity of this trade.
func (t TickTrade) BuyVolume() float64 {
	if t.IsBuyerMaker {
		return 0
	}

	return t.Quantity
}

// SellVolume returns the aggressive sell quantity of this trade.
func (t TickTrade) SellVolume() float64 {
	if t.IsBuyerMaker {
		return t.Quantity
	}

	return 0
}

// Delta returns the signed quantity: positive for an aggressive buy,
// negative for an aggressive sell.
func (t TickTrade) Delta() float64 {
	if t.IsBuyerMaker {
		return -t.Quantity
	}

	return t.Quantity
}

// Notional returns the traded value in quote currency.
func (t TickTrade) Notional() float64 {
	return t.Price * t.Quantity
}
