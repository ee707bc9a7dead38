package models

import "time"

// OptionType distinguishes calls from puts, using NSE naming.
type OptionType string

const (
	OptionCall OptionType = "CE"
	OptionPut  OptionType = "PE"
)

// OptionLeg represents quoted data for a single option contract.
type OptionLeg struct {
	Strike   float64    `json:"strike"`
	Type     OptionType `json:"type"`
	LTP      float64    `json:"ltp"`
	OI       int64      `json:"oi"`
	OIChange int64      `json:"oiChange"`
	IV       float64    `json:"iv"`
	Delta    float64    `json:"delta"`
	Theta    float64    `json:"theta"`
}

// OptionChain represents an option chain snapshot for one expiry.
type OptionChain struct {
	Symbol          IndexSymbol `json:"symbol"`
	Expiry          time.Time   `json:"expiryDate"`
	UnderlyingPrice float64     `json:"underlyingPrice"`
	Calls           []OptionLeg `json:"calls"`
	Puts            []OptionLeg `json:"puts"`
}

// MaxOICall returns the call leg carrying the highest open interest,
// conventionally read as a resistance level. Returns false when the
// chain has no calls.
func (c *OptionChain) MaxOICall() (OptionLeg, bool) {
	return maxOI(c.Calls)
}

// MaxOIPut returns the put leg carrying the highest open interest,
// conventionally read as a support level. Returns false when the chain
// has no puts.
func (c *OptionChain) MaxOIPut() (OptionLeg, bool) {
	return maxOI(c.Puts)
}

func maxOI(legs []OptionLeg) (OptionLeg, bool) {
	if len(legs) == 0 {
		return OptionLeg{}, false
	}
	best := legs[0]
	for _, leg := range legs[1:] {
		if leg.OI > best.OI {
			best = leg
		}
	}
	return best, true
}
