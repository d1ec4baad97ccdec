package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	wallex "github.com/wallexchange/wallex-go"
)

// WallexExchange trades on Wallex through its REST client.
type WallexExchange struct {
	client *wallex.Client
	log    zerolog.Logger
}

func NewWallexExchange(apiKey string, log zerolog.Logger) *WallexExchange {
	return &WallexExchange{
		client: wallex.New(wallex.ClientOptions{APIKey: apiKey}),
		log:    log.With().Str("component", "wallex").Logger(),
	}
}

func (w *WallexExchange) Name() string { return "wallex" }

// retry wraps fn with exponential backoff for transient errors, capped at
// 5 minutes between attempts.
func (w *WallexExchange) retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	backoff := delay
	for i := 1; i <= attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		w.log.Warn().Err(err).Int("attempt", i).Int("max", attempts).
			Dur("backoff", backoff).Msg("request failed")
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 5*time.Minute {
			backoff *= 2
			if backoff > 5*time.Minute {
				backoff = 5 * time.Minute
			}
		}
	}
	return errors.New("all retry attempts failed")
}

// FetchLatestCandles fetches the most recent count bars for a symbol.
func (w *WallexExchange) FetchLatestCandles(ctx context.Context, symbol, timeframe string, count int) ([]Candle, error) {
	duration := TimeframeDuration(timeframe)
	if duration == 0 {
		return nil, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}

	end := time.Now().UTC()
	start := end.Add(-duration * time.Duration(count))

	var wallexCandles []*wallex.Candle
	err := w.retry(ctx, 3, 2*time.Second, func() error {
		var err error
		wallexCandles, err = w.client.Candles(NormalizeSymbol(symbol), normalizeTimeframe(timeframe), start, end)
		if err != nil {
			return fmt.Errorf("fetching candles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("FetchLatestCandles failed: %w", err)
	}

	candles := make([]Candle, 0, len(wallexCandles))
	for _, wc := range wallexCandles {
		c := Candle{
			Timestamp: wc.Timestamp.UTC().Truncate(time.Minute),
			Open:      parseNumber(&wc.Open),
			High:      parseNumber(&wc.High),
			Low:       parseNumber(&wc.Low),
			Close:     parseNumber(&wc.Close),
			Volume:    parseNumber(&wc.Volume),
			Symbol:    symbol,
			Timeframe: timeframe,
		}
		if err := c.Validate(); err != nil {
			continue // skip invalid bars
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (w *WallexExchange) SubmitOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}

	params := &wallex.OrderParams{
		Symbol:   NormalizeSymbol(req.Symbol),
		Type:     strings.ToUpper(req.Type),
		Side:     strings.ToUpper(req.Side),
		Price:    wallex.Number(strconv.FormatFloat(req.Price, 'f', 8, 64)),
		Quantity: wallex.Number(strconv.FormatFloat(req.Quantity, 'f', 8, 64)),
	}
	resp, err := w.client.PlaceOrder(params)
	if err != nil {
		return Order{}, fmt.Errorf("placing order: %w", err)
	}

	return Order{
		OrderID:   resp.ClientOrderID,
		Status:    strings.ToUpper(resp.Status),
		FilledQty: parseNumber(resp.ExecutedQty),
		AvgPrice:  parseNumber(resp.ExecutedPrice),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Price:     req.Price,
		Quantity:  req.Quantity,
		CreatedAt: resp.CreatedAt.UTC(),
	}, nil
}

func (w *WallexExchange) GetOrderStatus(ctx context.Context, orderID string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}

	resp, err := w.client.Order(orderID)
	if err != nil {
		return Order{}, fmt.Errorf("fetching order status: %w", err)
	}

	return Order{
		OrderID:   resp.ClientOrderID,
		Status:    strings.ToUpper(resp.Status),
		FilledQty: parseNumber(resp.ExecutedQty),
		AvgPrice:  parseNumber(resp.ExecutedPrice),
		Symbol:    resp.Symbol,
		Side:      strings.ToLower(resp.Side),
		Type:      strings.ToLower(resp.Type),
		Price:     parseNumber(&resp.Price),
		Quantity:  parseNumber(&resp.OrigQty),
		CreatedAt: resp.CreatedAt.UTC(),
	}, nil
}

// FetchBalances retrieves the current balance of every asset.
func (w *WallexExchange) FetchBalances(ctx context.Context) (map[string]Balance, error) {
	var wallexBalances map[string]*wallex.Balance
	err := w.retry(ctx, 3, 2*time.Second, func() error {
		var err error
		wallexBalances, err = w.client.Balances()
		if err != nil {
			return fmt.Errorf("fetching balances: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("FetchBalances failed: %w", err)
	}

	balances := make(map[string]Balance, len(wallexBalances))
	for asset, wb := range wallexBalances {
		available := parseNumber(&wb.Value)
		locked := parseNumber(&wb.Locked)
		balances[asset] = Balance{
			Asset:     asset,
			Available: available,
			Locked:    locked,
			Total:     available + locked,
			Fiat:      wb.Fiat,
		}
	}
	return balances, nil
}

// parseNumber safely dereferences a *wallex.Number.
func parseNumber(n *wallex.Number) float64 {
	if n == nil {
		return 0
	}
	out, _ := strconv.ParseFloat(string(*n), 64)
	return out
}
