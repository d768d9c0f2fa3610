package broker

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/time/rate"

	"broker-gateway/internal/config"
	"broker-gateway/internal/errors"
	"broker-gateway/internal/symbols"
)

const (
	fyersName    = "fyers"
	fyersAPIBase = "https://api-t1.fyers.in/api/v3"
	fyersVagator = "https://api-t2.fyers.in/vagator/v2"
)

func init() {
	MustRegister(fyersName, func(cfg *config.Config) (Driver, error) {
		return NewFyersDriver(cfg)
	})
	if err := symbols.Default().Load(fyersName, symbols.FyersTable(symbols.DefaultUniverse)); err != nil {
		panic(err)
	}
}

// FyersDriver implements the Driver interface on the Fyers v3 REST API.
type FyersDriver struct {
	Unsupported

	cfg         config.BrokerConfig
	auto        bool
	sessionPath string
	http        *http.Client

	// Fyers enforces 10/sec and 200/min per app; stay just under both.
	secLimiter *rate.Limiter
	minLimiter *rate.Limiter

	accessToken   string
	authenticated bool
	sessionMu     sync.Mutex
}

// NewFyersDriver creates a Fyers driver and loads any saved session.
func NewFyersDriver(cfg *config.Config) (*FyersDriver, error) {
	if cfg.Broker.APIKey == "" {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "fyers requires BROKER_API_KEY")
	}

	f := &FyersDriver{
		Unsupported: Unsupported{Broker: fyersName},
		cfg:         cfg.Broker,
		auto:        cfg.AutoLogin(),
		sessionPath: cfg.Broker.SessionFile(fyersName),
		http:        &http.Client{Timeout: 30 * time.Second},
		secLimiter:  rate.NewLimiter(rate.Limit(9), 9),
		minLimiter:  rate.NewLimiter(rate.Every(time.Minute/195), 195),
	}
	_ = f.loadSession()
	return f, nil
}

// Name returns the broker name.
func (f *FyersDriver) Name() string { return fyersName }

// Capabilities reports what the v3 REST API backs. Margins come from the
// funds endpoint; commodity needs a commodity-enabled account.
func (f *FyersDriver) Capabilities() Capabilities {
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

// fyersEnvelope is the common response wrapper: s is "ok" or "error".
type fyersEnvelope struct {
	S       string `json:"s"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e fyersEnvelope) err() error {
	if e.S == "ok" || e.S == "" {
		return nil
	}
	return errors.NewBrokerError(fyersName, fmt.Sprintf("%d", e.Code), e.Message, nil)
}

// call performs one authenticated API request, honoring both rate windows.
func (f *FyersDriver) call(ctx context.Context, method, path string, body, out interface{}) error {
	if err := f.secLimiter.Wait(ctx); err != nil {
		return err
	}
	if err := f.minLimiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fyersAPIBase+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	f.sessionMu.Lock()
	req.Header.Set("Authorization", f.cfg.APIKey+":"+f.accessToken)
	f.sessionMu.Unlock()

	resp, err := f.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrConnectionFailed, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return errors.ErrRateLimited
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return errors.ErrSessionExpired
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}

// Authenticate establishes a session: reuse a persisted token, run the TOTP
// flow in auto mode, or hand back the login URL for manual completion.
func (f *FyersDriver) Authenticate(ctx context.Context) error {
	if err := f.loadSession(); err == nil && f.IsAuthenticated() {
		var check struct {
			fyersEnvelope
		}
		if err := f.call(ctx, http.MethodGet, "/profile", nil, &check); err == nil && check.S == "ok" {
			return nil
		}
	}

	if f.auto {
		return f.totpLogin(ctx)
	}

	return &errors.ManualLoginError{Broker: fyersName, LoginURL: f.loginURL()}
}

func (f *FyersDriver) loginURL() string {
	q := url.Values{
		"client_id":     {f.cfg.APIKey},
		"redirect_uri":  {f.cfg.RedirectURI},
		"response_type": {"code"},
		"state":         {"sample"},
	}
	return fyersAPIBase + "/generate-authcode?" + q.Encode()
}

// totpLogin walks the vagator OTP flow: login OTP, TOTP verify, PIN verify,
// token issue, then auth-code validation. All identifiers except the TOTP
// travel base64-encoded.
func (f *FyersDriver) totpLogin(ctx context.Context) error {
	if f.cfg.UserID == "" || f.cfg.TOTPSecret == "" || f.cfg.TOTPPin == "" ||
		f.cfg.APISecret == "" || f.cfg.RedirectURI == "" {
		return errors.NewAuthError(fyersName, "totp_login",
			errors.Wrap(errors.ErrInvalidCredentials, "auto mode requires user id, TOTP secret, PIN, API secret and redirect URI"))
	}

	b64 := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	postJSON := func(rawURL string, payload, out interface{}, bearer string) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		resp, err := f.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return json.NewDecoder(resp.Body).Decode(out)
	}

	// Step 1: request a login OTP.
	var otpResp struct {
		RequestKey string `json:"request_key"`
	}
	if err := postJSON(fyersVagator+"/send_login_otp_v2",
		map[string]string{"fy_id": b64(f.cfg.UserID), "app_id": "2"}, &otpResp, ""); err != nil {
		return errors.NewAuthError(fyersName, "send_otp", err)
	}
	if otpResp.RequestKey == "" {
		return errors.NewAuthError(fyersName, "send_otp", fmt.Errorf("no request key returned"))
	}

	// Step 2: answer the OTP with a generated TOTP.
	code, err := totp.GenerateCode(f.cfg.TOTPSecret, time.Now())
	if err != nil {
		return errors.NewAuthError(fyersName, "totp", err)
	}
	var verifyResp struct {
		RequestKey string `json:"request_key"`
	}
	if err := postJSON(fyersVagator+"/verify_otp",
		map[string]string{"request_key": otpResp.RequestKey, "otp": code}, &verifyResp, ""); err != nil {
		return errors.NewAuthError(fyersName, "verify_otp", err)
	}
	if verifyResp.RequestKey == "" {
		return errors.NewAuthError(fyersName, "verify_otp", errors.ErrInvalidCredentials)
	}

	// Step 3: verify the trading PIN to get an interim bearer token.
	var pinResp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := postJSON(fyersVagator+"/verify_pin_v2", map[string]string{
		"request_key":   verifyResp.RequestKey,
		"identity_type": "pin",
		"identifier":    b64(f.cfg.TOTPPin),
	}, &pinResp, ""); err != nil {
		return errors.NewAuthError(fyersName, "verify_pin", err)
	}
	if pinResp.Data.AccessToken == "" {
		return errors.NewAuthError(fyersName, "verify_pin", errors.ErrInvalidCredentials)
	}

	// Step 4: request an auth code for the app. The app_id drops the
	// "-100" suffix of the API key.
	appID := f.cfg.APIKey
	if len(appID) > 4 {
		appID = appID[:len(appID)-4]
	}
	var tokenResp struct {
		URL string `json:"Url"`
	}
	if err := postJSON(fyersAPIBase+"/token", map[string]interface{}{
		"fyers_id":       f.cfg.UserID,
		"app_id":         appID,
		"redirect_uri":   f.cfg.RedirectURI,
		"appType":        "100",
		"code_challenge": "",
		"state":          "None",
		"scope":          "",
		"nonce":          "",
		"response_type":  "code",
		"create_cookie":  true,
	}, &tokenResp, pinResp.Data.AccessToken); err != nil {
		return errors.NewAuthError(fyersName, "token", err)
	}

	redirect, err := url.Parse(tokenResp.URL)
	if err != nil {
		return errors.NewAuthError(fyersName, "token", err)
	}
	authCode := redirect.Query().Get("auth_code")
	if authCode == "" {
		return errors.NewAuthError(fyersName, "token", fmt.Errorf("redirect carried no auth code"))
	}

	// Step 5: exchange the auth code for the API access token.
	return f.CompleteLogin(ctx, authCode)
}

// CompleteLogin exchanges an auth code for an access token and persists the
// session. The checksum is SHA-256 over "clientID:secret".
func (f *FyersDriver) CompleteLogin(ctx context.Context, authCode string) error {
	hash := sha256.Sum256([]byte(f.cfg.APIKey + ":" + f.cfg.APISecret))

	data, err := json.Marshal(map[string]string{
		"grant_type": "authorization_code",
		"appIdHash":  fmt.Sprintf("%x", hash),
		"code":       authCode,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fyersAPIBase+"/validate-authcode", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return errors.NewAuthError(fyersName, "validate_authcode", err)
	}
	defer resp.Body.Close()

	var authResp struct {
		fyersEnvelope
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return errors.NewAuthError(fyersName, "validate_authcode", err)
	}
	if authResp.S != "ok" || authResp.AccessToken == "" {
		return errors.NewAuthError(fyersName, "validate_authcode",
			fmt.Errorf("auth code rejected: %s", authResp.Message))
	}

	f.sessionMu.Lock()
	f.accessToken = authResp.AccessToken
	f.authenticated = true
	f.sessionMu.Unlock()

	return f.saveSession(authResp.AccessToken)
}

// Logout drops the session locally. Fyers has no token-invalidation endpoint.
func (f *FyersDriver) Logout(ctx context.Context) error {
	f.sessionMu.Lock()
	f.accessToken = ""
	f.authenticated = false
	f.sessionMu.Unlock()

	if err := os.Remove(f.sessionPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove session file")
	}
	return nil
}

// IsAuthenticated reports whether a session is live.
func (f *FyersDriver) IsAuthenticated() bool {
	f.sessionMu.Lock()
	defer f.sessionMu.Unlock()
	return f.authenticated
}

func (f *FyersDriver) loadSession() error {
	data, err := os.ReadFile(f.sessionPath)
	if err != nil {
		return err
	}
	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}
	if session.Broker != "" && session.Broker != fyersName {
		return errors.Wrapf(errors.ErrConfigInvalid, "session belongs to broker %q", session.Broker)
	}
	if time.Now().After(session.ExpiresAt) {
		return errors.ErrSessionExpired
	}

	f.sessionMu.Lock()
	f.accessToken = session.AccessToken
	f.authenticated = true
	f.sessionMu.Unlock()
	return nil
}

func (f *FyersDriver) saveSession(accessToken string) error {
	if err := os.MkdirAll(filepath.Dir(f.sessionPath), 0700); err != nil {
		return err
	}

	// Fyers tokens also lapse at the start of the next trading day.
	loc, _ := time.LoadLocation("Asia/Kolkata")
	now := time.Now().In(loc)
	expiresAt := time.Date(now.Year(), now.Month(), now.Day()+1, 6, 0, 0, 0, loc)

	data, err := json.Marshal(sessionData{
		Broker:      fyersName,
		AccessToken: accessToken,
		UserID:      f.cfg.UserID,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(f.sessionPath, data, 0600)
}

var _ Driver = (*FyersDriver)(nil)
