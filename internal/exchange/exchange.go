// Package exchange abstracts the trading venue: candle history, market
// orders, and a websocket last-tick cache.
package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Symbol    string
	Timeframe string
}

// Validate rejects bars with non-positive or inconsistent prices.
func (c Candle) Validate() error {
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("non-positive price in candle %s@%s", c.Symbol, c.Timestamp)
	}
	if c.High < c.Low {
		return fmt.Errorf("high below low in candle %s@%s", c.Symbol, c.Timestamp)
	}
	return nil
}

// OrderRequest describes an order to submit. Type is "market" or "limit";
// Price is ignored for market orders.
type OrderRequest struct {
	Symbol   string
	Side     string
	Type     string
	Price    float64
	Quantity float64
}

// Order is the venue's view of a submitted order.
type Order struct {
	OrderID   string
	Status    string
	FilledQty float64
	AvgPrice  float64
	Symbol    string
	Side      string
	Type      string
	Price     float64
	Quantity  float64
	CreatedAt time.Time
}

// Balance is one asset's account balance.
type Balance struct {
	Asset     string
	Available float64
	Locked    float64
	Total     float64
	Fiat      bool
}

// Tick is the most recent trade seen for a symbol.
type Tick struct {
	Symbol    string
	Price     float64
	Quantity  float64
	Timestamp time.Time
}

// Exchange is the interface the executor trades through.
type Exchange interface {
	Name() string
	FetchLatestCandles(ctx context.Context, symbol, timeframe string, count int) ([]Candle, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (Order, error)
	FetchBalances(ctx context.Context) (map[string]Balance, error)
}

// NormalizeSymbol converts e.g. eth-usdt to ETHUSDT for the Wallex API.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "-", ""))
}

// timeframeDuration maps the supported candle timeframes to their length.
var timeframeDuration = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// TimeframeDuration returns the bar length for a timeframe, or zero when
// the timeframe is unknown.
func TimeframeDuration(timeframe string) time.Duration {
	return timeframeDuration[timeframe]
}

// normalizeTimeframe converts e.g. "1m" to the resolution string the
// Wallex candle endpoint expects.
func normalizeTimeframe(timeframe string) string {
	return strings.TrimSuffix(timeframe, "m")
}
