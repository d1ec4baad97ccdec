package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpstack/trade-executor/internal/config"
	"github.com/perpstack/trade-executor/internal/db"
	"github.com/perpstack/trade-executor/internal/exchange"
	"github.com/perpstack/trade-executor/internal/registry"
)

type fakeRegistry struct {
	defs []registry.Definition
	err  error
}

func (f *fakeRegistry) List(context.Context) ([]registry.Definition, error) {
	return f.defs, f.err
}

type fakeVenue struct {
	closes    []float64
	fetchErr  error
	submitErr error
	submitted []exchange.OrderRequest
}

func (f *fakeVenue) Name() string { return "fake" }

func (f *fakeVenue) FetchLatestCandles(_ context.Context, symbol, timeframe string, count int) ([]exchange.Candle, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	candles := make([]exchange.Candle, len(f.closes))
	for i, c := range f.closes {
		candles[i] = exchange.Candle{
			Timestamp: time.Now().UTC(),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 100, Symbol: symbol, Timeframe: timeframe,
		}
	}
	return candles, nil
}

func (f *fakeVenue) SubmitOrder(_ context.Context, req exchange.OrderRequest) (exchange.Order, error) {
	if f.submitErr != nil {
		return exchange.Order{}, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return exchange.Order{
		OrderID:   "ord-1",
		Status:    "FILLED",
		FilledQty: req.Quantity,
		AvgPrice:  req.Price,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Price:     req.Price,
		Quantity:  req.Quantity,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeVenue) GetOrderStatus(context.Context, string) (exchange.Order, error) {
	return exchange.Order{}, errors.New("not implemented")
}

func (f *fakeVenue) FetchBalances(context.Context) (map[string]exchange.Balance, error) {
	return nil, nil
}

type fakeJournal struct {
	records []db.OrderRecord
}

func (f *fakeJournal) InsertOrder(_ context.Context, rec db.OrderRecord) (int64, error) {
	f.records = append(f.records, rec)
	return int64(len(f.records)), nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Send(msg string) error          { f.messages = append(f.messages, msg); return nil }
func (f *fakeNotifier) SendWithRetry(msg string) error { return f.Send(msg) }

type fakeTick struct {
	price float64
	fresh bool
}

func (f *fakeTick) LastTick() (exchange.Tick, bool) {
	return exchange.Tick{Price: f.price, Timestamp: time.Now()}, f.price > 0
}
func (f *fakeTick) HasFreshTick() bool { return f.fresh }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ConfidenceFloor = 0.6
	cfg.OrderSize = 0.5
	return cfg
}

func definition(id int64, typ string) registry.Definition {
	return registry.Definition{
		ID:        id,
		Name:      "eth " + typ,
		Token:     "ETH",
		Type:      typ,
		Owner:     "0xowner",
		Investors: []string{"0x1"},
	}
}

func fallingCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(n-i)
	}
	return out
}

func alternatingCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100
		if i%2 == 1 {
			out[i] = 101
		}
	}
	return out
}

func TestRunOnceSubmitsConfidentSignal(t *testing.T) {
	// A falling series drives RSI deep into oversold: BUY at confidence 1.0.
	venue := &fakeVenue{closes: fallingCloses(30)}
	journal := &fakeJournal{}
	notify := &fakeNotifier{}
	e := New(testConfig(), &fakeRegistry{defs: []registry.Definition{definition(1, "rsi")}},
		venue, journal, notify, nil, zerolog.Nop())

	require.NoError(t, e.RunOnce(context.Background()))

	require.Len(t, venue.submitted, 1)
	assert.Equal(t, "buy", venue.submitted[0].Side)
	assert.Equal(t, "market", venue.submitted[0].Type)
	assert.Equal(t, "ETH-USDT", venue.submitted[0].Symbol)
	assert.Equal(t, 0.5, venue.submitted[0].Quantity)

	require.Len(t, journal.records, 1)
	rec := journal.records[0]
	assert.Equal(t, "ord-1", rec.OrderID)
	assert.Equal(t, "0xowner", rec.Owner, "strategy owner is the fee recipient")
	assert.Equal(t, int64(1), rec.StrategyID)
	assert.Equal(t, "ETH", rec.Token)
	assert.Equal(t, 1.0, rec.Confidence)

	assert.NotEmpty(t, notify.messages)
}

func TestRunOnceSkipsUnrunnableStrategies(t *testing.T) {
	noInvestors := definition(1, "rsi")
	noInvestors.Investors = nil
	open := definition(2, "rsi")
	open.IsOpen = true

	venue := &fakeVenue{closes: fallingCloses(30)}
	e := New(testConfig(), &fakeRegistry{defs: []registry.Definition{noInvestors, open}},
		venue, &fakeJournal{}, nil, nil, zerolog.Nop())

	require.NoError(t, e.RunOnce(context.Background()))
	assert.Empty(t, venue.submitted)
}

func TestRunOnceHoldSubmitsNothing(t *testing.T) {
	venue := &fakeVenue{closes: alternatingCloses(30)} // RSI near 50
	journal := &fakeJournal{}
	e := New(testConfig(), &fakeRegistry{defs: []registry.Definition{definition(1, "rsi")}},
		venue, journal, nil, nil, zerolog.Nop())

	require.NoError(t, e.RunOnce(context.Background()))
	assert.Empty(t, venue.submitted)
	assert.Empty(t, journal.records)

	// The hold signal is still recorded into the engine history.
	sums := e.PerformanceSummaries()
	require.Contains(t, sums, "RSI ETH")
	assert.Equal(t, 1.0, sums["RSI ETH"]["total_signals"])
	assert.Equal(t, 1.0, sums["RSI ETH"]["hold_signals"])
}

func TestRunOnceRespectsConfidenceFloor(t *testing.T) {
	// Flat closes with a fresh tick 30% above: the SMA engine buys at
	// confidence 0.6, below the raised floor.
	cfg := testConfig()
	cfg.ConfidenceFloor = 0.9

	venue := &fakeVenue{closes: make([]float64, 20)}
	for i := range venue.closes {
		venue.closes[i] = 100
	}
	tick := &fakeTick{price: 130, fresh: true}
	e := New(cfg, &fakeRegistry{defs: []registry.Definition{definition(1, "sma")}},
		venue, &fakeJournal{}, nil, func(string) TickSource { return tick }, zerolog.Nop())

	require.NoError(t, e.RunOnce(context.Background()))
	assert.Empty(t, venue.submitted)

	sums := e.PerformanceSummaries()
	require.Contains(t, sums, "SMA ETH")
	assert.Equal(t, 1.0, sums["SMA ETH"]["buy_signals"], "tick price was used for analysis")
}

func TestRunOnceFallsBackToLastCloseWithoutFreshTick(t *testing.T) {
	venue := &fakeVenue{closes: make([]float64, 20)}
	for i := range venue.closes {
		venue.closes[i] = 100
	}
	stale := &fakeTick{price: 130, fresh: false}
	e := New(testConfig(), &fakeRegistry{defs: []registry.Definition{definition(1, "sma")}},
		venue, &fakeJournal{}, nil, func(string) TickSource { return stale }, zerolog.Nop())

	require.NoError(t, e.RunOnce(context.Background()))
	assert.Empty(t, venue.submitted, "price equal to SMA stays inside the buffer")

	sums := e.PerformanceSummaries()
	assert.Equal(t, 1.0, sums["SMA ETH"]["hold_signals"])
}

func TestEngineCachingAndParamDrift(t *testing.T) {
	def := definition(1, "rsi")
	def.Params = map[string]any{"period": 9}
	reg := &fakeRegistry{defs: []registry.Definition{def}}
	venue := &fakeVenue{closes: alternatingCloses(30)}
	e := New(testConfig(), reg, venue, &fakeJournal{}, nil, nil, zerolog.Nop())

	require.NoError(t, e.RunOnce(context.Background()))
	require.NoError(t, e.RunOnce(context.Background()))
	assert.Len(t, e.engines, 1, "engine is built once per definition")
	assert.Equal(t, 9, e.engines[1].engine.Params().Int("period"))

	// Registry params drift; the cached engine picks them up in place.
	reg.defs[0].Params = map[string]any{"period": 21}
	require.NoError(t, e.RunOnce(context.Background()))
	assert.Len(t, e.engines, 1)
	assert.Equal(t, 21, e.engines[1].engine.Params().Int("period"))
}

func TestRunOnceSurvivesVenueErrors(t *testing.T) {
	venue := &fakeVenue{closes: fallingCloses(30), submitErr: errors.New("venue down")}
	journal := &fakeJournal{}
	notify := &fakeNotifier{}
	e := New(testConfig(), &fakeRegistry{defs: []registry.Definition{definition(1, "rsi")}},
		venue, journal, notify, nil, zerolog.Nop())

	require.NoError(t, e.RunOnce(context.Background()), "per-strategy failures do not abort the pass")
	assert.Empty(t, journal.records)
	assert.NotEmpty(t, notify.messages, "operator is notified of the failed order")
}

func TestRunOnceUnknownStrategyType(t *testing.T) {
	venue := &fakeVenue{closes: fallingCloses(30)}
	e := New(testConfig(), &fakeRegistry{defs: []registry.Definition{definition(1, "ichimoku")}},
		venue, &fakeJournal{}, nil, nil, zerolog.Nop())

	require.NoError(t, e.RunOnce(context.Background()))
	assert.Empty(t, venue.submitted)
	assert.Empty(t, e.engines)
}

func TestRunOnceRegistryErrorPropagates(t *testing.T) {
	e := New(testConfig(), &fakeRegistry{err: errors.New("registry down")},
		&fakeVenue{}, &fakeJournal{}, nil, nil, zerolog.Nop())
	assert.Error(t, e.RunOnce(context.Background()))
}

func TestConfigOverridesBeatRegistryParams(t *testing.T) {
	cfg := testConfig()
	cfg.StrategyParams = map[string]map[string]map[string]any{
		"ETH": {"rsi": {"period": 7}},
	}
	def := definition(1, "rsi")
	def.Params = map[string]any{"period": 14, "overbought": 80.0}

	e := New(cfg, &fakeRegistry{defs: []registry.Definition{def}},
		&fakeVenue{closes: alternatingCloses(30)}, &fakeJournal{}, nil, nil, zerolog.Nop())

	require.NoError(t, e.RunOnce(context.Background()))
	p := e.engines[1].engine.Params()
	assert.Equal(t, 7, p.Int("period"), "operator config wins")
	assert.Equal(t, 80.0, p.Float("overbought"), "registry params still apply")
}
