// Package executor runs the polling loop: pull strategy definitions from
// the registry, analyze fresh market data, and turn confident signals
// into journaled market orders.
package executor

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/perpstack/trade-executor/internal/config"
	"github.com/perpstack/trade-executor/internal/db"
	"github.com/perpstack/trade-executor/internal/exchange"
	"github.com/perpstack/trade-executor/internal/metrics"
	"github.com/perpstack/trade-executor/internal/notifier"
	"github.com/perpstack/trade-executor/internal/registry"
	"github.com/perpstack/trade-executor/internal/signal"
	"github.com/perpstack/trade-executor/internal/strategy"
)

// StrategyRegistry lists the strategies the executor should run.
type StrategyRegistry interface {
	List(ctx context.Context) ([]registry.Definition, error)
}

// Journal records submitted orders.
type Journal interface {
	InsertOrder(ctx context.Context, rec db.OrderRecord) (int64, error)
}

// TickSource serves the freshest trade tick for one symbol.
type TickSource interface {
	LastTick() (exchange.Tick, bool)
	HasFreshTick() bool
}

// Executor drives one analysis pass per poll interval.
type Executor struct {
	cfg      config.Config
	registry StrategyRegistry
	venue    exchange.Exchange
	journal  Journal
	notify   notifier.Notifier
	log      zerolog.Logger

	// newTickSource builds a watcher for a symbol on first use; nil
	// disables websocket prices and the loop falls back to last close.
	newTickSource func(symbol string) TickSource

	mu      sync.RWMutex
	engines map[int64]*engineState
	ticks   map[string]TickSource
}

// engineState pairs a built engine with the registry params it was built
// from, so param drift can be applied without rebuilding.
type engineState struct {
	engine strategy.Strategy
	params strategy.Params
}

func New(cfg config.Config, reg StrategyRegistry, venue exchange.Exchange, journal Journal,
	notify notifier.Notifier, newTickSource func(symbol string) TickSource, log zerolog.Logger,
) *Executor {
	if notify == nil {
		notify = notifier.Noop{}
	}
	return &Executor{
		cfg:           cfg,
		registry:      reg,
		venue:         venue,
		journal:       journal,
		notify:        notify,
		newTickSource: newTickSource,
		log:           log.With().Str("component", "executor").Logger(),
		engines:       make(map[int64]*engineState),
		ticks:         make(map[string]TickSource),
	}
}

// Run polls until ctx is cancelled. The first pass runs immediately.
func (e *Executor) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := e.RunOnce(ctx); err != nil {
			e.log.Error().Err(err).Msg("poll pass failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single poll pass across every runnable strategy.
func (e *Executor) RunOnce(ctx context.Context) error {
	defs, err := e.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("listing strategies: %w", err)
	}

	for _, def := range defs {
		if len(def.Investors) == 0 {
			e.log.Debug().Int64("strategy", def.ID).Msg("no investors, skipping")
			continue
		}
		if def.IsOpen {
			e.log.Debug().Int64("strategy", def.ID).Msg("position already open, skipping")
			continue
		}
		if err := e.process(ctx, def); err != nil {
			e.log.Error().Err(err).Int64("strategy", def.ID).Str("token", def.Token).
				Msg("strategy pass failed")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (e *Executor) process(ctx context.Context, def registry.Definition) error {
	engine, err := e.engineFor(def)
	if err != nil {
		return err
	}

	symbol := e.symbolFor(def.Token)
	candles, err := e.venue.FetchLatestCandles(ctx, symbol, e.cfg.CandleTimeframe, e.cfg.CandleCount)
	if err != nil {
		return fmt.Errorf("fetching candles for %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("no candles for %s", symbol)
	}

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}
	currentPrice := e.currentPrice(symbol, closes[len(closes)-1])

	start := time.Now()
	sig := engine.Analyze(closes, currentPrice, volumes)
	metrics.AnalyzeDuration.WithLabelValues(engine.Name()).Observe(time.Since(start).Seconds())

	engine.RecordSignal(sig)
	metrics.SignalsTotal.WithLabelValues(engine.Name(), def.Token, string(sig.Kind)).Inc()
	e.log.Debug().Str("token", def.Token).Str("strategy", engine.Name()).
		Str("kind", string(sig.Kind)).Float64("confidence", sig.Confidence).
		Str("reason", sig.Reason).Msg("analyzed")

	if sig.Kind == signal.Hold || sig.Confidence < e.cfg.ConfidenceFloor {
		return nil
	}
	return e.submit(ctx, def, sig, symbol, currentPrice)
}

// submit places a market order for the signal and journals it with the
// strategy owner as the fee recipient.
func (e *Executor) submit(ctx context.Context, def registry.Definition, sig signal.Signal, symbol string, price float64) error {
	side := "buy"
	if sig.Kind == signal.Sell {
		side = "sell"
	}

	order, err := e.venue.SubmitOrder(ctx, exchange.OrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     "market",
		Price:    price,
		Quantity: e.cfg.OrderSize,
	})
	if err != nil {
		e.notify.SendWithRetry(fmt.Sprintf("order failed: %s %s %s: %v", def.Name, side, symbol, err))
		return fmt.Errorf("submitting %s order for %s: %w", side, symbol, err)
	}
	metrics.OrdersTotal.WithLabelValues(def.Token, side).Inc()

	if _, err := e.journal.InsertOrder(ctx, db.OrderRecord{
		OrderID:      order.OrderID,
		StrategyID:   def.ID,
		StrategyName: def.Name,
		Token:        def.Token,
		Symbol:       symbol,
		Side:         side,
		Quantity:     order.Quantity,
		Price:        order.Price,
		FilledQty:    order.FilledQty,
		AvgPrice:     order.AvgPrice,
		Status:       order.Status,
		Owner:        def.Owner,
		Confidence:   sig.Confidence,
		Reason:       sig.Reason,
		CreatedAt:    order.CreatedAt,
	}); err != nil {
		return fmt.Errorf("journaling order %s: %w", order.OrderID, err)
	}

	e.notify.SendWithRetry(fmt.Sprintf("%s %s %s qty=%v confidence=%.2f (%s)",
		def.Name, side, symbol, order.Quantity, sig.Confidence, sig.Reason))
	e.log.Info().Str("order_id", order.OrderID).Str("side", side).Str("symbol", symbol).
		Float64("confidence", sig.Confidence).Msg("order submitted")
	return nil
}

// engineFor returns the cached engine for a definition, building it on
// first sight and applying registry param drift in place.
func (e *Executor) engineFor(def registry.Definition) (strategy.Strategy, error) {
	overrides := e.overridesFor(def)

	e.mu.Lock()
	defer e.mu.Unlock()

	if st, ok := e.engines[def.ID]; ok {
		if !paramsEqual(st.params, overrides) {
			st.engine.UpdateParams(overrides)
			st.params = overrides.Clone()
		}
		return st.engine, nil
	}

	engine, err := strategy.New(def.Type, def.Token, overrides, e.log)
	if err != nil {
		return nil, fmt.Errorf("building engine for strategy %d: %w", def.ID, err)
	}
	e.engines[def.ID] = &engineState{engine: engine, params: overrides.Clone()}
	return engine, nil
}

// overridesFor merges registry params with the operator's config
// overrides; config wins.
func (e *Executor) overridesFor(def registry.Definition) strategy.Params {
	out := strategy.Params{}
	for k, v := range def.Params {
		out[k] = v
	}
	if byType, ok := e.cfg.StrategyParams[def.Token]; ok {
		for k, v := range byType[def.Type] {
			out[k] = v
		}
	}
	return out
}

// currentPrice prefers a fresh websocket tick over the last close.
func (e *Executor) currentPrice(symbol string, lastClose float64) float64 {
	src := e.tickSource(symbol)
	if src == nil {
		return lastClose
	}
	if src.HasFreshTick() {
		if tick, ok := src.LastTick(); ok && tick.Price > 0 {
			return tick.Price
		}
	}
	return lastClose
}

func (e *Executor) tickSource(symbol string) TickSource {
	if e.newTickSource == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	src, ok := e.ticks[symbol]
	if !ok {
		src = e.newTickSource(symbol)
		e.ticks[symbol] = src
	}
	return src
}

func (e *Executor) symbolFor(token string) string {
	return token + "-USDT"
}

// PerformanceSummaries exposes each live engine's signal-history summary
// for the API layer, keyed "NAME token".
func (e *Executor) PerformanceSummaries() map[string]map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]map[string]float64, len(e.engines))
	for _, st := range e.engines {
		key := st.engine.Name() + " " + st.engine.Token()
		out[key] = st.engine.PerformanceSummary()
	}
	return out
}

func paramsEqual(a, b strategy.Params) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if !reflect.DeepEqual(b[k], v) {
			return false
		}
	}
	return true
}
