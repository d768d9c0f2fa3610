package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"broker-gateway/internal/config"
	"broker-gateway/internal/errors"
	"broker-gateway/internal/models"
	"broker-gateway/internal/store"
	"broker-gateway/internal/symbols"
)

const zerodhaName = "zerodha"

func init() {
	MustRegister(zerodhaName, func(cfg *config.Config) (Driver, error) {
		return NewZerodhaDriver(cfg)
	})
	if err := symbols.Default().Load(zerodhaName, symbols.ZerodhaTable(symbols.DefaultUniverse)); err != nil {
		panic(err)
	}
}

// ZerodhaDriver implements the Driver interface on Zerodha Kite Connect.
type ZerodhaDriver struct {
	client      *kiteconnect.Client
	cfg         config.BrokerConfig
	auto        bool
	sessionPath string

	accessToken   string
	authenticated bool
	sessionMu     sync.Mutex // guards token refresh and session state

	instruments store.InstrumentStore
	tokenCache  map[string]models.Instrument // native "EXCH:SYM" -> instrument
	cacheMu     sync.RWMutex
}

// NewZerodhaDriver creates a Zerodha driver and loads any saved session plus
// the cached master contract into the symbol tables.
func NewZerodhaDriver(cfg *config.Config) (*ZerodhaDriver, error) {
	if cfg.Broker.APIKey == "" {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "zerodha requires BROKER_API_KEY")
	}

	z := &ZerodhaDriver{
		client:      kiteconnect.New(cfg.Broker.APIKey),
		cfg:         cfg.Broker,
		auto:        cfg.AutoLogin(),
		sessionPath: cfg.Broker.SessionFile(zerodhaName),
		tokenCache:  make(map[string]models.Instrument),
	}

	if st, err := store.NewSQLiteStore(filepath.Join(filepath.Dir(cfg.Broker.SessionPath), "instruments.db")); err == nil {
		z.instruments = st
		if err := z.loadCachedTables(context.Background()); err != nil {
			return nil, err
		}
	}

	_ = z.loadSession()
	return z, nil
}

// loadCachedTables extends the zerodha symbol table with a previously synced
// master contract. It must run before the registry freezes; a late load is a
// construction-ordering bug and fails the driver rather than disappearing.
func (z *ZerodhaDriver) loadCachedTables(ctx context.Context) error {
	for _, exchange := range []models.Exchange{models.NSE, models.BSE, models.NFO, models.MCX} {
		instruments, err := z.instruments.GetInstruments(ctx, zerodhaName, exchange)
		if err != nil || len(instruments) == 0 {
			continue
		}
		if err := symbols.Default().Load(zerodhaName, symbols.ZerodhaTable(instruments)); err != nil {
			return errors.Wrap(err, "extend symbol table from instrument cache")
		}
		z.cacheMu.Lock()
		for _, inst := range instruments {
			z.tokenCache[symbols.Join(inst.Exchange, inst.Symbol)] = inst
		}
		z.cacheMu.Unlock()
	}
	return nil
}

// Name returns the broker name.
func (z *ZerodhaDriver) Name() string { return zerodhaName }

// Capabilities reports the full capability set; Kite Connect backs all of it.
func (z *ZerodhaDriver) Capabilities() Capabilities {
	return Capabilities{
		Funds:      true,
		Margins:    true,
		Positions:  true,
		Quotes:     true,
		Historical: true,
		Orders:     true,
		Orderbook:  true,
		Tradebook:  true,
		Streaming:  true,
	}
}

// sessionData represents persisted session data. The broker name is checked
// on load so a token never crosses driver boundaries.
type sessionData struct {
	Broker      string    `json:"broker"`
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Authenticate establishes a broker session. A valid persisted session is
// reused; otherwise the flow depends on login mode: auto runs the TOTP login
// without a browser, manual surfaces the login URL for the caller to visit.
func (z *ZerodhaDriver) Authenticate(ctx context.Context) error {
	if err := z.loadSession(); err == nil && z.IsAuthenticated() {
		if _, err := z.client.GetUserProfile(); err == nil {
			return nil
		}
	}

	if z.auto {
		return z.autoLogin(ctx)
	}

	return &errors.ManualLoginError{Broker: zerodhaName, LoginURL: z.client.GetLoginURL()}
}

// autoLogin performs the Kite web login with stored credentials and a
// generated TOTP, then captures the request token from the redirect.
func (z *ZerodhaDriver) autoLogin(ctx context.Context) error {
	if z.cfg.UserID == "" || z.cfg.Password == "" || z.cfg.TOTPSecret == "" {
		return errors.NewAuthError(zerodhaName, "auto_login",
			errors.Wrap(errors.ErrInvalidCredentials, "auto mode requires user id, password and TOTP secret"))
	}

	jar, _ := cookiejar.New(nil)
	httpClient := &http.Client{Jar: jar, Timeout: 30 * time.Second}

	// Step 1: password login
	resp, err := httpClient.PostForm("https://kite.zerodha.com/api/login", url.Values{
		"user_id":  {z.cfg.UserID},
		"password": {z.cfg.Password},
	})
	if err != nil {
		return errors.NewAuthError(zerodhaName, "login", err)
	}
	var loginResp struct {
		Status string `json:"status"`
		Data   struct {
			RequestID string `json:"request_id"`
		} `json:"data"`
		Message string `json:"message"`
	}
	err = json.NewDecoder(resp.Body).Decode(&loginResp)
	resp.Body.Close()
	if err != nil || loginResp.Status != "success" {
		return errors.NewAuthError(zerodhaName, "login",
			fmt.Errorf("login rejected: %s", loginResp.Message))
	}

	// Step 2: two-factor with TOTP
	code, err := totp.GenerateCode(z.cfg.TOTPSecret, time.Now())
	if err != nil {
		return errors.NewAuthError(zerodhaName, "totp", err)
	}
	resp, err = httpClient.PostForm("https://kite.zerodha.com/api/twofa", url.Values{
		"user_id":      {z.cfg.UserID},
		"request_id":   {loginResp.Data.RequestID},
		"twofa_value":  {code},
		"twofa_type":   {"totp"},
		"skip_session": {"true"},
	})
	if err != nil {
		return errors.NewAuthError(zerodhaName, "twofa", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.NewAuthError(zerodhaName, "twofa", errors.ErrInvalidCredentials)
	}

	// Step 3: hit the connect login URL and capture the request token from
	// the redirect chain instead of following it to the app's redirect URI.
	var requestToken string
	httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if token := req.URL.Query().Get("request_token"); token != "" {
			requestToken = token
			return http.ErrUseLastResponse
		}
		return nil
	}
	resp, err = httpClient.Get(z.client.GetLoginURL())
	if err != nil && requestToken == "" {
		return errors.NewAuthError(zerodhaName, "request_token", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	if requestToken == "" {
		return errors.NewAuthError(zerodhaName, "request_token",
			fmt.Errorf("redirect did not carry a request token"))
	}

	return z.CompleteLogin(ctx, requestToken)
}

// CompleteLogin exchanges a request token for an access token and persists
// the session.
func (z *ZerodhaDriver) CompleteLogin(ctx context.Context, requestToken string) error {
	session, err := z.client.GenerateSession(requestToken, z.cfg.APISecret)
	if err != nil {
		return errors.NewAuthError(zerodhaName, "generate_session", err)
	}

	z.sessionMu.Lock()
	z.accessToken = session.AccessToken
	z.authenticated = true
	z.client.SetAccessToken(session.AccessToken)
	z.sessionMu.Unlock()

	return z.saveSession(session.AccessToken)
}

// Logout invalidates the session and removes the persisted token.
func (z *ZerodhaDriver) Logout(ctx context.Context) error {
	z.sessionMu.Lock()
	defer z.sessionMu.Unlock()

	if z.authenticated {
		_, _ = z.client.InvalidateAccessToken()
	}
	z.accessToken = ""
	z.authenticated = false

	if err := os.Remove(z.sessionPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove session file")
	}
	return nil
}

// IsAuthenticated reports whether a session is live.
func (z *ZerodhaDriver) IsAuthenticated() bool {
	z.sessionMu.Lock()
	defer z.sessionMu.Unlock()
	return z.authenticated
}

func (z *ZerodhaDriver) loadSession() error {
	data, err := os.ReadFile(z.sessionPath)
	if err != nil {
		return err
	}
	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}
	if session.Broker != "" && session.Broker != zerodhaName {
		return errors.Wrapf(errors.ErrConfigInvalid, "session belongs to broker %q", session.Broker)
	}
	if time.Now().After(session.ExpiresAt) {
		return errors.ErrSessionExpired
	}

	z.sessionMu.Lock()
	z.accessToken = session.AccessToken
	z.authenticated = true
	z.client.SetAccessToken(session.AccessToken)
	z.sessionMu.Unlock()
	return nil
}

func (z *ZerodhaDriver) saveSession(accessToken string) error {
	if err := os.MkdirAll(filepath.Dir(z.sessionPath), 0700); err != nil {
		return err
	}

	// Zerodha tokens expire at 6 AM IST the next day.
	loc, _ := time.LoadLocation("Asia/Kolkata")
	now := time.Now().In(loc)
	expiresAt := time.Date(now.Year(), now.Month(), now.Day()+1, 6, 0, 0, 0, loc)

	data, err := json.Marshal(sessionData{
		Broker:      zerodhaName,
		AccessToken: accessToken,
		UserID:      z.cfg.UserID,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(z.sessionPath, data, 0600)
}

// GetFunds returns the equity segment funds exactly as Kite reports them.
func (z *ZerodhaDriver) GetFunds(ctx context.Context) (*models.FundsSnapshot, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	margins, err := z.client.GetUserMargins()
	if err != nil {
		return nil, errors.NewBrokerError(zerodhaName, "margins", "failed to get funds", err)
	}

	equity := margins.Equity
	return &models.FundsSnapshot{
		AvailableCash:   equity.Available.Cash,
		UsedMargin:      equity.Used.Debits,
		TotalEquity:     equity.Net,
		CollateralValue: equity.Available.Collateral,
	}, nil
}

// GetMargins returns margins for one segment. A segment the account has no
// access to comes back zeroed from Kite; that is margin data the broker does
// not expose, so it fails with MarginUnavailableError rather than reporting
// zeros as real numbers.
func (z *ZerodhaDriver) GetMargins(ctx context.Context, segment models.MarginSegment) (*models.SegmentMargin, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	margins, err := z.client.GetUserMargins()
	if err != nil {
		return nil, errors.NewBrokerError(zerodhaName, "margins", "failed to get margins", err)
	}

	var m kiteconnect.Margins
	switch segment {
	case models.SegmentEquity:
		m = margins.Equity
	case models.SegmentCommodity:
		m = margins.Commodity
	default:
		return nil, errors.NewMarginUnavailableError(zerodhaName, fmt.Sprintf("unknown segment %q", segment))
	}

	if !m.Enabled {
		return nil, errors.NewMarginUnavailableError(zerodhaName, fmt.Sprintf("segment %q not enabled for account", segment))
	}

	return &models.SegmentMargin{
		Segment:   segment,
		Available: m.Available.Cash + m.Available.Collateral,
		Used:      m.Used.Debits,
		Net:       m.Net,
	}, nil
}

// GetPositions fetches open positions, combining day and net books.
func (z *ZerodhaDriver) GetPositions(ctx context.Context) ([]models.Position, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	positions, err := z.client.GetPositions()
	if err != nil {
		return nil, errors.NewBrokerError(zerodhaName, "positions", "failed to get positions", err)
	}

	all := append(positions.Day, positions.Net...)
	seen := make(map[string]bool, len(all))
	result := make([]models.Position, 0, len(all))

	for _, p := range all {
		key := fmt.Sprintf("%s:%s:%s", p.Exchange, p.Tradingsymbol, p.Product)
		if seen[key] || p.Quantity == 0 {
			continue
		}
		seen[key] = true

		result = append(result, models.Position{
			Symbol:       p.Tradingsymbol,
			Exchange:     models.Exchange(p.Exchange),
			Product:      models.ProductType(p.Product),
			Quantity:     int(p.Quantity),
			AveragePrice: p.AveragePrice,
			LastPrice:    p.LastPrice,
			PnL:          (p.LastPrice - p.AveragePrice) * float64(p.Quantity) * float64(p.Multiplier),
			Multiplier:   int(p.Multiplier),
		})
	}
	return result, nil
}

// PlaceOrder submits an order. The request symbol arrives broker-native.
func (z *ZerodhaDriver) PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResponse, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	orderType, err := zerodhaOrderType(req.OrderType)
	if err != nil {
		return nil, err
	}

	exchange, tradingSymbol := symbols.Split(req.Symbol)
	validity := string(req.Validity)
	if validity == "" {
		validity = string(models.ValidityDay)
	}

	params := kiteconnect.OrderParams{
		Exchange:        string(exchange),
		Tradingsymbol:   tradingSymbol,
		TransactionType: string(req.Transaction),
		OrderType:       orderType,
		Product:         string(req.Product),
		Quantity:        req.Quantity,
		Price:           req.Price,
		TriggerPrice:    req.TriggerPrice,
		Validity:        validity,
		Tag:             req.Tag,
	}

	resp, err := z.client.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		return nil, errors.NewBrokerError(zerodhaName, "place_order", "order rejected by broker", err)
	}

	return &models.OrderResponse{
		OrderID: resp.OrderID,
		Status:  "PLACED",
	}, nil
}

// ModifyOrder applies changes to a pending order.
func (z *ZerodhaDriver) ModifyOrder(ctx context.Context, orderID string, changes *models.OrderChanges) (*models.OrderResponse, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}
	if changes.Empty() {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "modify order: no changes given")
	}

	params := kiteconnect.OrderParams{}
	if changes.Quantity != nil {
		params.Quantity = *changes.Quantity
	}
	if changes.Price != nil {
		params.Price = *changes.Price
	}
	if changes.TriggerPrice != nil {
		params.TriggerPrice = *changes.TriggerPrice
	}
	if changes.OrderType != nil {
		orderType, err := zerodhaOrderType(*changes.OrderType)
		if err != nil {
			return nil, err
		}
		params.OrderType = orderType
	}
	if changes.Validity != nil {
		params.Validity = string(*changes.Validity)
	}

	resp, err := z.client.ModifyOrder(kiteconnect.VarietyRegular, orderID, params)
	if err != nil {
		return nil, errors.NewBrokerError(zerodhaName, "modify_order", "modify rejected by broker", err)
	}

	return &models.OrderResponse{OrderID: resp.OrderID, Status: "MODIFIED"}, nil
}

// CancelOrder cancels a pending order.
func (z *ZerodhaDriver) CancelOrder(ctx context.Context, orderID string) error {
	if !z.IsAuthenticated() {
		return errors.ErrNotAuthenticated
	}
	if _, err := z.client.CancelOrder(kiteconnect.VarietyRegular, orderID, nil); err != nil {
		return errors.NewBrokerError(zerodhaName, "cancel_order", "cancel rejected by broker", err)
	}
	return nil
}

// GetOrders fetches the day's orderbook.
func (z *ZerodhaDriver) GetOrders(ctx context.Context) ([]models.Order, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	orders, err := z.client.GetOrders()
	if err != nil {
		return nil, errors.NewBrokerError(zerodhaName, "orders", "failed to get orders", err)
	}

	result := make([]models.Order, len(orders))
	for i, o := range orders {
		orderType, ok := zerodhaOrderTypesReverse[o.OrderType]
		if !ok {
			orderType = models.OrderType(o.OrderType)
		}
		result[i] = models.Order{
			ID:           o.OrderID,
			Symbol:       o.TradingSymbol,
			Exchange:     models.Exchange(o.Exchange),
			Transaction:  models.TransactionType(o.TransactionType),
			OrderType:    orderType,
			Product:      models.ProductType(o.Product),
			Quantity:     int(o.Quantity),
			Price:        o.Price,
			TriggerPrice: o.TriggerPrice,
			Validity:     models.Validity(o.Validity),
			Tag:          o.Tag,
			Status:       o.Status,
			FilledQty:    int(o.FilledQuantity),
			AveragePrice: o.AveragePrice,
			PlacedAt:     o.OrderTimestamp.Time,
		}
	}
	return result, nil
}

// GetTrades fetches the day's tradebook.
func (z *ZerodhaDriver) GetTrades(ctx context.Context) ([]models.Trade, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	trades, err := z.client.GetTrades()
	if err != nil {
		return nil, errors.NewBrokerError(zerodhaName, "trades", "failed to get trades", err)
	}

	result := make([]models.Trade, len(trades))
	for i, t := range trades {
		result[i] = models.Trade{
			ID:          t.TradeID,
			OrderID:     t.OrderID,
			Symbol:      t.TradingSymbol,
			Exchange:    models.Exchange(t.Exchange),
			Transaction: models.TransactionType(t.TransactionType),
			Product:     models.ProductType(t.Product),
			Quantity:    int(t.Quantity),
			Price:       t.AveragePrice,
			ExecutedAt:  t.FillTimestamp.Time,
		}
	}
	return result, nil
}

// instrumentFor resolves a native "EXCH:SYM" to its instrument, consulting
// the in-memory cache, the SQLite master cache, then the Kite API.
func (z *ZerodhaDriver) instrumentFor(ctx context.Context, native string) (*models.Instrument, error) {
	z.cacheMu.RLock()
	inst, ok := z.tokenCache[native]
	z.cacheMu.RUnlock()
	if ok {
		return &inst, nil
	}

	exchange, tradingSymbol := symbols.Split(native)
	if z.instruments != nil {
		if cached, err := z.instruments.GetInstrument(ctx, zerodhaName, exchange, tradingSymbol); err == nil {
			z.cacheMu.Lock()
			z.tokenCache[native] = *cached
			z.cacheMu.Unlock()
			return cached, nil
		}
	}

	if err := z.fetchInstruments(ctx, exchange); err != nil {
		return nil, err
	}

	z.cacheMu.RLock()
	inst, ok = z.tokenCache[native]
	z.cacheMu.RUnlock()
	if !ok {
		return nil, errors.NewUnknownSymbolError(zerodhaName, native)
	}
	return &inst, nil
}

// fetchInstruments downloads the master contract for an exchange into the
// in-memory cache.
func (z *ZerodhaDriver) fetchInstruments(ctx context.Context, exchange models.Exchange) error {
	instruments, err := z.client.GetInstruments()
	if err != nil {
		return errors.NewBrokerError(zerodhaName, "instruments", "failed to get instruments", err)
	}

	z.cacheMu.Lock()
	defer z.cacheMu.Unlock()
	for _, inst := range instruments {
		if inst.Exchange != string(exchange) {
			continue
		}
		converted := convertKiteInstrument(inst)
		z.tokenCache[symbols.Join(converted.Exchange, converted.Symbol)] = converted
	}
	return nil
}

// SyncInstruments downloads the full master contract and persists it for
// token lookups and symbol-table seeding on the next start.
func (z *ZerodhaDriver) SyncInstruments(ctx context.Context) (int, error) {
	instruments, err := z.client.GetInstruments()
	if err != nil {
		return 0, errors.NewBrokerError(zerodhaName, "instruments", "failed to download master contract", err)
	}

	converted := make([]models.Instrument, 0, len(instruments))
	z.cacheMu.Lock()
	for _, inst := range instruments {
		c := convertKiteInstrument(inst)
		converted = append(converted, c)
		z.tokenCache[symbols.Join(c.Exchange, c.Symbol)] = c
	}
	z.cacheMu.Unlock()

	if z.instruments != nil {
		if err := z.instruments.SaveInstruments(ctx, zerodhaName, converted); err != nil {
			return 0, err
		}
	}
	return len(converted), nil
}

func convertKiteInstrument(inst kiteconnect.Instrument) models.Instrument {
	return models.Instrument{
		Token:     uint32(inst.InstrumentToken),
		Symbol:    strings.ToUpper(inst.Tradingsymbol),
		Name:      inst.Name,
		Exchange:  models.Exchange(inst.Exchange),
		Segment:   inst.Segment,
		LotSize:   int(inst.LotSize),
		TickSize:  inst.TickSize,
		Expiry:    inst.Expiry.Time,
		Strike:    inst.StrikePrice,
		InstrType: inst.InstrumentType,
	}
}

var _ Driver = (*ZerodhaDriver)(nil)
