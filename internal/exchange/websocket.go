package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// TickWatcher streams trades for one symbol over the venue websocket and
// keeps only the most recent tick. Broadcasting every tick would overwhelm
// the polling executor; it reads the cache on demand instead.
type TickWatcher interface {
	Start(ctx context.Context)
	LastTick() (Tick, bool)
	HasFreshTick() bool
	IsConnected() bool
	Health() error
	Close()
}

// wallexTrade is a trade message from the Wallex broadcaster channel.
type wallexTrade struct {
	IsBuyOrder bool      `json:"isBuyOrder"`
	Quantity   string    `json:"quantity"`
	Price      string    `json:"price"`
	Timestamp  time.Time `json:"timestamp"`
}

// connectionState tracks the websocket session for health checks.
type connectionState int

const (
	disconnected connectionState = iota
	connecting
	connected
	reconnecting
)

// freshness is how recent the cached tick must be for HasFreshTick.
const freshness = time.Second

// WallexTickWatcher implements TickWatcher against the Wallex Socket.IO
// endpoint, reconnecting with capped exponential backoff.
type WallexTickWatcher struct {
	symbol string
	log    zerolog.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	cancel    context.CancelFunc
	closed    bool
	state     connectionState
	healthErr error

	lastTick     *Tick
	lastTickTime time.Time
}

func NewWallexTickWatcher(symbol string, log zerolog.Logger) *WallexTickWatcher {
	return &WallexTickWatcher{
		symbol: NormalizeSymbol(symbol),
		state:  disconnected,
		log:    log.With().Str("component", "tickwatcher").Str("symbol", NormalizeSymbol(symbol)).Logger(),
	}
}

// Start connects in the background and keeps the last-tick cache updated
// until ctx is cancelled or Close is called.
func (w *WallexTickWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.state = connecting
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	go func() {
		defer w.Close()
		retryDelay := time.Second
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if err := w.connectAndStream(ctx); err != nil {
					w.mu.Lock()
					w.state = reconnecting
					w.healthErr = err
					w.mu.Unlock()
					w.log.Warn().Err(err).Dur("retry_in", retryDelay).Msg("disconnected")
					select {
					case <-ctx.Done():
						return
					case <-time.After(retryDelay):
					}
					if retryDelay < time.Minute {
						retryDelay *= 2
					} else {
						retryDelay = time.Minute
					}
					continue
				}
				return
			}
		}
	}()
}

// LastTick returns the cached tick, if any has arrived yet.
func (w *WallexTickWatcher) LastTick() (Tick, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.lastTick == nil {
		return Tick{}, false
	}
	return *w.lastTick, true
}

// HasFreshTick reports whether the cached tick arrived within the
// freshness window.
func (w *WallexTickWatcher) HasFreshTick() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastTick != nil && time.Since(w.lastTickTime) < freshness
}

func (w *WallexTickWatcher) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state == connected && w.conn != nil
}

// Health returns the last connection error, if any.
func (w *WallexTickWatcher) Health() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.healthErr
}

func (w *WallexTickWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	if w.conn != nil {
		w.conn.Close()
	}
	w.state = disconnected
	w.log.Info().Msg("tick watcher closed")
}

func (w *WallexTickWatcher) cacheTick(trade wallexTrade) {
	tick := trade.toTick(w.symbol)

	w.mu.Lock()
	w.lastTick = &tick
	w.lastTickTime = time.Now()
	w.mu.Unlock()
}

func (t wallexTrade) toTick(symbol string) Tick {
	price, _ := strconv.ParseFloat(t.Price, 64)
	qty, _ := strconv.ParseFloat(t.Quantity, 64)
	return Tick{
		Symbol:    symbol,
		Price:     price,
		Quantity:  qty,
		Timestamp: t.Timestamp.UTC(),
	}
}

// subscribeMessage subscribes to a Socket.IO broadcaster channel,
// e.g. {"channel": "ETHUSDT@trade"}.
type subscribeMessage struct {
	Channel string `json:"channel"`
}

// connectAndStream handles a single websocket session.
func (w *WallexTickWatcher) connectAndStream(ctx context.Context) error {
	w.mu.Lock()
	w.state = connecting
	w.healthErr = nil
	w.mu.Unlock()

	u := url.URL{Scheme: "wss", Host: "api.wallex.ir", Path: "/socket.io/"}
	query := u.Query()
	query.Set("EIO", "4")
	query.Set("transport", "websocket")
	u.RawQuery = query.Encode()

	c, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.conn = c
	w.state = connected
	w.mu.Unlock()

	w.log.Info().Msg("connection established")
	defer func() {
		c.Close()
		w.mu.Lock()
		w.conn = nil
		w.state = disconnected
		w.mu.Unlock()
	}()

	channel := w.symbol + "@trade"
	subscribe := func() error {
		payload, err := json.Marshal(subscribeMessage{Channel: channel})
		if err != nil {
			return err
		}
		return c.WriteMessage(websocket.TextMessage, fmt.Appendf(nil, `42["subscribe",%s]`, payload))
	}

	// Socket.IO connect ("40"), then subscribe.
	if err := c.WriteMessage(websocket.TextMessage, []byte("40")); err != nil {
		return err
	}
	if err := subscribe(); err != nil {
		return err
	}

	handshakeComplete := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, message, err := c.ReadMessage()
		if err != nil {
			return err
		}
		msg := string(message)
		switch {
		case msg == "2":
			// Socket.IO ping, respond with pong.
			if err := c.WriteMessage(websocket.TextMessage, []byte("3")); err != nil {
				return err
			}
		case msg == "40" && !handshakeComplete:
			handshakeComplete = true
			if err := subscribe(); err != nil {
				return err
			}
			w.log.Debug().Str("channel", channel).Msg("subscribed")
		case len(msg) >= 2 && msg[:2] == "42":
			w.handleEvent(msg[2:], channel)
		}
	}
}

// handleEvent parses a Socket.IO event frame and caches trades addressed
// to our channel.
func (w *WallexTickWatcher) handleEvent(jsonPart, channel string) {
	var event []any
	if err := json.Unmarshal([]byte(jsonPart), &event); err != nil || len(event) < 3 {
		return
	}
	name, _ := event[0].(string)
	ch, _ := event[1].(string)
	if name != "Broadcaster" || ch != channel {
		return
	}
	data, err := json.Marshal(event[2])
	if err != nil {
		return
	}
	var trade wallexTrade
	if err := json.Unmarshal(data, &trade); err != nil {
		return
	}
	w.cacheTick(trade)
}
