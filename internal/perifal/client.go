// Package perifal talks to the Linked-Go ("Warmlink") cloud service that
// fronts Perifal LV-418 heat pumps. The wire protocol was reverse-engineered
// from the vendor's Android app: JSON POST endpoints returning an envelope of
// {error_code, error_msg, objectResult}, with "0" for success and "-100" for
// an expired session token.
package perifal

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Mb29661/LV418/internal/logger"
)

// DefaultBaseURL is the vendor's production endpoint.
const DefaultBaseURL = "https://cloud.linked-go.com:449/crmservice/api"

const (
	errCodeOK      = "0"
	errCodeExpired = "-100"

	requestTimeout = 15 * time.Second
)

// TimeLayout is the timestamp format the history endpoint expects.
const TimeLayout = "2006-01-02 15:04:05"

// Client holds one session against the vendor cloud. Token state is mutable
// and unsynchronized, so a Client must not be shared between goroutines;
// construct a fresh one per request or per poll cycle.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	log      *logger.Logger

	token  string
	userID string
}

// NewClient builds a client for the given account. An empty baseURL selects
// the vendor's production endpoint.
func NewClient(baseURL, username, password string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: requestTimeout},
		log:      log,
	}
}

// UserID returns the account id handed back by the last successful login.
func (c *Client) UserID() string { return c.userID }

type envelope struct {
	ErrorCode    string          `json:"error_code"`
	ErrorMsg     string          `json:"error_msg"`
	ObjectResult json.RawMessage `json:"objectResult"`
}

// request posts a JSON payload and decodes the response envelope. The session
// token, when held, rides along in the x-token header.
func (c *Client) request(ctx context.Context, endpoint string, payload any) (*envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request for %s: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint+"?lang=sv", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("User-Agent", "okhttp/5.1.0")
	if c.token != "" {
		req.Header.Set("x-token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("post %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return &env, nil
}

// Login authenticates and stores the session token and user id. The password
// goes over the wire as an MD5 digest because the vendor protocol demands it;
// this is not a security choice of ours. Returns false on any failure.
func (c *Client) Login(ctx context.Context) bool {
	payload := map[string]string{
		"userName":    c.username,
		"password":    md5Hex(c.password),
		"loginSource": "Android",
		"type":        "2",
		"areaCode":    "sv",
		"appId":       "16",
	}

	env, err := c.request(ctx, "/app/user/login", payload)
	if err != nil {
		c.logError("cloud_login_failed", err)
		return false
	}
	if env.ErrorCode != errCodeOK {
		if c.log != nil {
			c.log.Infow("cloud_login_rejected", "error_code", env.ErrorCode, "error_msg", env.ErrorMsg)
		}
		return false
	}

	var res struct {
		Token  string      `json:"x-token"`
		UserID json.Number `json:"userId"`
	}
	if err := json.Unmarshal(env.ObjectResult, &res); err != nil {
		c.logError("cloud_login_decode_failed", err)
		return false
	}
	c.token = res.Token
	c.userID = res.UserID.String()
	return true
}

// GetAllParameters fetches current values for the named parameter codes and
// returns a code→value map. An expired session triggers exactly one re-login
// and retry; any other failure yields an empty map, which callers must treat
// as "temporarily unavailable" rather than fatal.
func (c *Client) GetAllParameters(ctx context.Context, deviceCode string, codes []string) map[string]string {
	return c.getAllParameters(ctx, deviceCode, codes, true)
}

func (c *Client) getAllParameters(ctx context.Context, deviceCode string, codes []string, retryLogin bool) map[string]string {
	payload := map[string]any{
		"deviceCode":    deviceCode,
		"protocalCodes": codes, // the vendor API really does spell it this way
	}

	env, err := c.request(ctx, "/app/device/getDataByCode", payload)
	if err != nil {
		c.logError("cloud_params_failed", err)
		return map[string]string{}
	}

	switch {
	case env.ErrorCode == errCodeOK:
		var params []struct {
			Code  string `json:"code"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal(env.ObjectResult, &params); err != nil {
			c.logError("cloud_params_decode_failed", err)
			return map[string]string{}
		}
		out := make(map[string]string, len(params))
		for _, p := range params {
			out[p.Code] = p.Value
		}
		return out

	case env.ErrorCode == errCodeExpired && retryLogin:
		if c.log != nil {
			c.log.Infow("cloud_token_expired", "op", "getDataByCode")
		}
		if c.Login(ctx) {
			return c.getAllParameters(ctx, deviceCode, codes, false)
		}
		return map[string]string{}

	default:
		if c.log != nil {
			c.log.Infow("cloud_params_rejected", "error_code", env.ErrorCode, "error_msg", env.ErrorMsg)
		}
		return map[string]string{}
	}
}

// GetDeviceStatus reports online/fault status for a device.
func (c *Client) GetDeviceStatus(ctx context.Context, deviceCode string) map[string]any {
	env, err := c.request(ctx, "/app/device/getDeviceStatus", map[string]string{"deviceCode": deviceCode})
	if err != nil {
		c.logError("cloud_device_status_failed", err)
		return map[string]any{}
	}
	if env.ErrorCode != errCodeOK {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(env.ObjectResult, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// HistoryPoint is one sample of a vendor history series. AddressValue arrives
// as either a JSON string or number depending on the channel.
type HistoryPoint struct {
	DateTime     string      `json:"dateTime"` // "YYYY-MM-DD HH" for hourly data
	AddressValue json.Number `json:"addressValue"`
}

// Value returns the sample as a float, zero if unparsable.
func (p HistoryPoint) Value() float64 {
	f, _ := p.AddressValue.Float64()
	return f
}

// HistorySeries is the vendor's time series for one numeric address channel.
type HistorySeries struct {
	Title     string         `json:"title"`
	ValueList []HistoryPoint `json:"valueList"`
}

// GetHistory fetches the series for one address channel over [start, end].
// Frequency is one of "day" (hourly points), "week", "month" or "year".
// Returns an empty series on failure, with a single retry on token expiry.
func (c *Client) GetHistory(ctx context.Context, deviceCode, address string, start, end time.Time, frequency string) HistorySeries {
	return c.getHistory(ctx, deviceCode, address, start, end, frequency, true)
}

func (c *Client) getHistory(ctx context.Context, deviceCode, address string, start, end time.Time, frequency string, retryLogin bool) HistorySeries {
	payload := map[string]any{
		"deviceCode": deviceCode,
		"address":    address,
		"startTime":  start.Format(TimeLayout),
		"endTime":    end.Format(TimeLayout),
		"frequency":  frequency,
		"timeZone":   1,
		"sessionid":  "",
	}

	env, err := c.request(ctx, "/device/snapshot/listCollectData", payload)
	if err != nil {
		c.logError("cloud_history_failed", err)
		return HistorySeries{}
	}

	switch {
	case env.ErrorCode == errCodeOK:
		var s HistorySeries
		if err := json.Unmarshal(env.ObjectResult, &s); err != nil {
			c.logError("cloud_history_decode_failed", err)
			return HistorySeries{}
		}
		return s

	case env.ErrorCode == errCodeExpired && retryLogin:
		if c.log != nil {
			c.log.Infow("cloud_token_expired", "op", "listCollectData")
		}
		if c.Login(ctx) {
			return c.getHistory(ctx, deviceCode, address, start, end, frequency, false)
		}
		return HistorySeries{}

	default:
		if c.log != nil {
			c.log.Infow("cloud_history_rejected", "error_code", env.ErrorCode, "error_msg", env.ErrorMsg)
		}
		return HistorySeries{}
	}
}

// Control writes one parameter value to the device. Unlike the read calls
// there is no retry on token expiry: blindly repeating a write risks duplicate
// side effects on physical equipment, so a failure surfaces immediately.
func (c *Client) Control(ctx context.Context, deviceCode, code, value string) bool {
	payload := map[string]any{
		"param": []map[string]string{{
			"deviceCode":   deviceCode,
			"protocolCode": code,
			"value":        value,
		}},
	}

	env, err := c.request(ctx, "/app/device/control", payload)
	if err != nil {
		c.logError("cloud_control_failed", err)
		return false
	}
	if env.ErrorCode != errCodeOK {
		if c.log != nil {
			c.log.Infow("cloud_control_rejected", "code", code, "error_code", env.ErrorCode, "error_msg", env.ErrorMsg)
		}
		return false
	}
	return true
}

func (c *Client) logError(msg string, err error) {
	if c.log != nil {
		c.log.Errorw(msg, "err", err)
	}
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
