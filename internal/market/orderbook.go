package market

import "time"

// Level is one price level of an order book side.
type Level struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook is a depth snapshot, best price first on each side.
type OrderBook struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// Imbalance returns the buy/sell volume imbalance in [-1, 1] over the
// snapshot depth. Positive means bid-heavy, negative means sell pressure.
func (ob OrderBook) Imbalance() float64 {
	var bid, ask float64
	for _, l := range ob.Bids {
		bid += l.Size
	}
	for _, l := range ob.Asks {
		ask += l.Size
	}
	total := bid + ask
	if total == 0 {
		return 0
	}
	return (bid - ask) / total
}

// AskDepthUSD returns the notional resting on the sell side. A thin value
// combined with elevated relative volume is the squeeze signal the savings
// policy looks for.
func (ob OrderBook) AskDepthUSD() float64 {
	var usd float64
	for _, l := range ob.Asks {
		usd += l.Price * l.Size
	}
	return usd
}

// Trade is one public trade print.
type Trade struct {
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"`
	Side      string    `json:"side"` // "buy" | "sell"
	Timestamp time.Time `json:"timestamp"`
}

// NotionalUSD is the trade's quote-currency value.
func (t Trade) NotionalUSD() float64 {
	return t.Price * t.Amount
}
