// Package execclient is a reference implementation of execution.Client
// against a CLOB-style REST venue. It is grounded on the teacher's
// Polymarket CLOB client: EIP-712 order signing, HMAC request signing,
// and GTC/GTD/FOK/FAK time-in-force mapping to pkg/order's TimeInForce.
// Nothing under pkg/* imports this package; the core depends only on
// the execution.Client interface.
package execclient

import (
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/execution"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"
)

// Polygon mainnet CTF Exchange contract the order signature domain is
// bound to, and the chain id EIP-712 signs against.
const (
	ctfExchange = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	chainID     = 137

	sigTypeEOA       = 0
	sigTypePolyProxy = 1
)

// orderType is the venue's time-in-force/marketability tag.
type orderType string

const (
	orderTypeGTC orderType = "GTC"
	orderTypeGTD orderType = "GTD"
	orderTypeFOK orderType = "FOK"
	orderTypeFAK orderType = "FAK"
)

// Config is read from the environment (spec's ambient stack loads it via
// godotenv, the same way the teacher does for every adapter).
type Config struct {
	BaseURL       string
	WalletKeyHex  string
	FunderAddress string
	APIKey        string
	APISecret     string
	Passphrase    string
	SigType       int
	DryRun        bool
}

// ConfigFromEnv reads Config the way the teacher's exec.NewClient did,
// after the caller has loaded a .env file with godotenv.Load().
func ConfigFromEnv() Config {
	sigType := sigTypePolyProxy
	if os.Getenv("SIG_TYPE") == "0" {
		sigType = sigTypeEOA
	}
	return Config{
		BaseURL:       envOr("CLOB_BASE_URL", "https://clob.polymarket.com"),
		WalletKeyHex:  os.Getenv("WALLET_PRIVATE_KEY"),
		FunderAddress: os.Getenv("FUNDER_ADDRESS"),
		APIKey:        os.Getenv("CLOB_API_KEY"),
		APISecret:     os.Getenv("CLOB_API_SECRET"),
		Passphrase:    os.Getenv("CLOB_PASSPHRASE"),
		SigType:       sigType,
		DryRun:        os.Getenv("DRY_RUN") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// venueOrder tracks the minimal state Client needs to answer
// GenerateMassStatus without round-tripping to the REST API for every
// field pkg/execution's reconciliation wants.
type venueOrder struct {
	venueOrderId ident.VenueOrderId
	instrumentId ident.InstrumentId
	side         enum.Side
	quantity     num.Quantity
	filledQty    num.Quantity
	price        *num.Price
	status       enum.OrderStatus
	tsEvent      int64
}

// Client implements execution.Client against the CLOB REST API. It is
// safe for concurrent use; the underlying http.Client and privateKey are
// read-only after construction and the order cache has its own mutex.
type Client struct {
	cfg        Config
	privateKey *ecdsa.PrivateKey
	address    string
	httpClient *http.Client

	orders map[ident.VenueOrderId]*venueOrder
}

var _ execution.Client = (*Client)(nil)

// New constructs a Client from cfg. A missing WalletKeyHex is tolerated
// in dry-run mode (no signature is ever produced) but rejected
// otherwise.
func New(cfg Config) (*Client, error) {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		orders:     make(map[ident.VenueOrderId]*venueOrder),
	}

	if cfg.WalletKeyHex != "" {
		hexKey := cfg.WalletKeyHex
		if len(hexKey) > 2 && hexKey[:2] == "0x" {
			hexKey = hexKey[2:]
		}
		pk, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return nil, kernerr.New(kernerr.InvalidInput, "execclient: invalid wallet private key: %v", err)
		}
		c.privateKey = pk
		c.address = crypto.PubkeyToAddress(pk.PublicKey).Hex()
	} else if !cfg.DryRun {
		return nil, kernerr.New(kernerr.InvalidInput, "execclient: WALLET_PRIVATE_KEY required outside dry-run")
	}

	log.Info().Bool("dry_run", cfg.DryRun).Str("address", c.address).Msg("execclient: venue client initialized")
	return c, nil
}

func sideString(s enum.Side) string {
	if s == enum.SideBuy {
		return "BUY"
	}
	return "SELL"
}

// wireOrderType maps pkg/order's TimeInForce (plus an explicit
// expiration) onto the venue's GTC/GTD/FOK/FAK vocabulary.
func wireOrderType(base *order.Base) orderType {
	if base.ExpireTimeNs != nil {
		return orderTypeGTD
	}
	switch base.TimeInForce {
	case enum.TimeInForceFOK:
		return orderTypeFOK
	case enum.TimeInForceIOC:
		return orderTypeFAK
	default:
		return orderTypeGTC
	}
}

// Submit builds, signs, and posts o. On success it records the venue's
// assigned order id locally so a later GenerateMassStatus can report it
// even if the REST API were unreachable; it does not itself apply an
// Accepted event, since the core learns of acceptance only through the
// execution-report channel the adapter feeds separately.
func (c *Client) Submit(o order.Order) error {
	base := o.Common()
	tokenID, _ := base.InstrumentId.Parts()
	wt := wireOrderType(base)

	price := decimal.Zero
	if base.Price != nil {
		price = base.Price.Decimal()
	}
	size := base.Quantity.Decimal()

	if c.cfg.DryRun {
		venueId := ident.NewVenueOrderId(fmt.Sprintf("DRY-%s", base.ClientOrderId.String()))
		c.recordOrder(venueId, base, wt)
		log.Info().Str("client_order_id", base.ClientOrderId.String()).Str("venue_order_id", venueId.String()).
			Msg("execclient: dry-run order accepted")
		return nil
	}

	signed, err := c.buildSignedOrder(tokenID, price, size, sideString(base.Side), wt, base.ExpireTimeNs)
	if err != nil {
		return kernerr.New(kernerr.Transport, "execclient: sign order: %v", err)
	}

	resp, err := c.post("/order", orderPayload{Order: *signed, Owner: c.cfg.APIKey, OrderType: wt, PostOnly: base.PostOnly})
	if err != nil {
		return kernerr.New(kernerr.Transport, "execclient: submit order: %v", err)
	}

	result, err := parseOrderAck(resp)
	if err != nil {
		return kernerr.New(kernerr.Transport, "execclient: parse order ack: %v", err)
	}
	venueId := ident.NewVenueOrderId(result.OrderID)
	c.recordOrder(venueId, base, wt)
	return nil
}

func (c *Client) recordOrder(venueId ident.VenueOrderId, base *order.Base, wt orderType) {
	c.orders[venueId] = &venueOrder{
		venueOrderId: venueId,
		instrumentId: base.InstrumentId,
		side:         base.Side,
		quantity:     base.Quantity,
		filledQty:    base.FilledQty,
		price:        base.Price,
		status:       enum.OrderStatusAccepted,
		tsEvent:      base.TsInit,
	}
}

// Cancel cancels one order by venue order id. The venue order id is
// required; a nil one is rejected with InvalidInput.
func (c *Client) Cancel(clientOrderId ident.ClientOrderId, venueOrderId *ident.VenueOrderId) error {
	if venueOrderId == nil {
		return kernerr.New(kernerr.InvalidInput, "execclient: cancel requires a venue order id")
	}
	if c.cfg.DryRun {
		delete(c.orders, *venueOrderId)
		return nil
	}
	if _, err := c.deleteWithBody("/order", map[string]string{"orderID": venueOrderId.String()}); err != nil {
		return kernerr.New(kernerr.Transport, "execclient: cancel order: %v", err)
	}
	delete(c.orders, *venueOrderId)
	return nil
}

// Modify is not supported by the venue's order-replace semantics (CLOB
// venues of this style require cancel-then-resubmit); it always returns
// a Transport error so the engine folds it into a ModifyRejected event.
func (c *Client) Modify(clientOrderId ident.ClientOrderId, newQty *num.Quantity, newPrice, newTrigger *num.Price) error {
	return kernerr.New(kernerr.Transport, "execclient: venue does not support in-place order amendment")
}

// GenerateMassStatus returns every order this Client instance has
// submitted and not yet seen cancelled, as the venue's reconciliation
// snapshot.
func (c *Client) GenerateMassStatus() (execution.MassStatus, error) {
	reports := make([]execution.VenueOrderReport, 0, len(c.orders))
	for _, vo := range c.orders {
		reports = append(reports, execution.VenueOrderReport{
			VenueOrderId: vo.venueOrderId,
			InstrumentId: vo.instrumentId,
			Side:         vo.side,
			Quantity:     vo.quantity,
			FilledQty:    vo.filledQty,
			Price:        vo.price,
			Status:       vo.status,
			TsEvent:      vo.tsEvent,
		})
	}
	return execution.MassStatus{VenueOrders: reports}, nil
}
