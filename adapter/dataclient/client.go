// Package dataclient is a reference implementation of data.Client over a
// gorilla/websocket connection to a CLOB-style market data feed. It is
// grounded on the teacher's feeds/polymarket_ws.go: reconnect-with-
// backoff, subscribe/unsubscribe by kind, and a depth decoder that feeds
// book.Delta values into the cache's order book and marketdata.Quote/
// Trade values into the data engine. Nothing under pkg/* imports this
// package; the data engine only depends on the data.Client interface.
package dataclient

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gotradekernel/kernel/pkg/bus"
	"github.com/gotradekernel/kernel/pkg/cache"
	"github.com/gotradekernel/kernel/pkg/data"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/kernerr"
)

// Config is read from the environment, after the caller has loaded a
// .env file with godotenv.Load(), the same ambient convention
// adapter/execclient uses.
type Config struct {
	WSURL             string
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
	PingInterval      time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		WSURL:             envOr("DATA_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		ReconnectMinDelay: envDurationOr("DATA_WS_RECONNECT_MIN", time.Second),
		ReconnectMaxDelay: envDurationOr("DATA_WS_RECONNECT_MAX", 30*time.Second),
		PingInterval:      envDurationOr("DATA_WS_PING_INTERVAL", 30*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// Client implements data.Client against the venue's WebSocket feed. It
// is safe for concurrent use; state is guarded by mu.
type Client struct {
	mu sync.Mutex

	cfg   Config
	bus   *bus.Bus
	cache *cache.Cache

	engine *data.Engine

	conn      *websocket.Conn
	connected bool
	running   bool
	stopCh    chan struct{}

	subs map[data.SubscriptionKey]struct{}
	// assetByInstrument/instrumentByAsset let the read loop translate the
	// venue's token id wire field to/from the kernel's InstrumentId,
	// since the WebSocket payload never repeats the venue code.
	assetByInstrument map[ident.InstrumentId]string
	instrumentByAsset map[string]ident.InstrumentId
}

var _ data.Client = (*Client)(nil)

// New constructs a Client. SetEngine must be called with the data.Engine
// that owns this Client before Start, since decoded updates are pushed
// through the engine's OnQuote/OnTrade, not returned from Subscribe.
func New(cfg Config, b *bus.Bus, c *cache.Cache) *Client {
	return &Client{
		cfg:               cfg,
		bus:               b,
		cache:             c,
		stopCh:            make(chan struct{}),
		subs:              make(map[data.SubscriptionKey]struct{}),
		assetByInstrument: make(map[ident.InstrumentId]string),
		instrumentByAsset: make(map[string]ident.InstrumentId),
	}
}

// SetEngine wires the data.Engine whose OnQuote/OnTrade this Client
// drives as it decodes WebSocket messages.
func (cl *Client) SetEngine(e *data.Engine) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.engine = e
}

// Start begins the reconnect-with-backoff connection loop in the
// background. It is idempotent.
func (cl *Client) Start() {
	cl.mu.Lock()
	if cl.running {
		cl.mu.Unlock()
		return
	}
	cl.running = true
	cl.mu.Unlock()

	go cl.connectionLoop()
	log.Info().Str("url", cl.cfg.WSURL).Msg("dataclient: feed started")
}

// Stop closes the connection and halts the connection loop.
func (cl *Client) Stop() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if !cl.running {
		return
	}
	cl.running = false
	close(cl.stopCh)
	if cl.conn != nil {
		cl.conn.Close()
	}
}

// Subscribe registers key and, if connected, sends the wire subscribe
// message immediately; otherwise it is replayed by resubscribeAll after
// the next successful connect.
func (cl *Client) Subscribe(key data.SubscriptionKey) error {
	symbol, _ := key.InstrumentId.Parts()

	cl.mu.Lock()
	cl.subs[key] = struct{}{}
	cl.assetByInstrument[key.InstrumentId] = symbol
	cl.instrumentByAsset[symbol] = key.InstrumentId
	conn := cl.conn
	cl.mu.Unlock()

	if conn == nil {
		return nil
	}
	return sendSubscribe(conn, symbol)
}

// Unsubscribe removes key and, if connected, sends the wire unsubscribe
// message.
func (cl *Client) Unsubscribe(key data.SubscriptionKey) error {
	symbol, _ := key.InstrumentId.Parts()

	cl.mu.Lock()
	delete(cl.subs, key)
	conn := cl.conn
	cl.mu.Unlock()

	if conn == nil {
		return nil
	}
	return sendUnsubscribe(conn, symbol)
}

// RequestHistorical is unsupported: this venue's public WebSocket feed
// is push-only and never offered a historical-backfill endpoint in the
// reference client.
func (cl *Client) RequestHistorical(key data.SubscriptionKey, fromTsEvent, toTsEvent int64) ([]any, error) {
	return nil, kernerr.New(kernerr.NotFound, "dataclient: venue feed has no historical backfill endpoint")
}

func (cl *Client) resubscribeAll(conn *websocket.Conn) {
	cl.mu.Lock()
	symbols := make([]string, 0, len(cl.subs))
	for key := range cl.subs {
		symbol, _ := key.InstrumentId.Parts()
		symbols = append(symbols, symbol)
	}
	cl.mu.Unlock()

	for _, symbol := range symbols {
		if err := sendSubscribe(conn, symbol); err != nil {
			log.Warn().Err(err).Str("asset", symbol).Msg("dataclient: resubscribe failed")
		}
	}
}

func (cl *Client) instrumentForAsset(asset string) (ident.InstrumentId, bool) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	id, ok := cl.instrumentByAsset[asset]
	return id, ok
}
