package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harmonyui/harmonycn/internal/errors"
	"github.com/harmonyui/harmonycn/internal/telemetry"
)

// GrantType is the device code grant type sent when polling.
const GrantType = "urn:ietf:params:oauth:grant-type:device_code"

// SlowDownStep is added to the poll interval on every slow_down response.
const SlowDownStep = 5 * time.Second

const defaultInterval = 5 * time.Second

// State is the position of a Flow in the handshake.
type State int

const (
	StateRequestingCode State = iota
	StateAwaitingUser
	StatePolling
	StateGranted
	StateDenied
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateRequestingCode:
		return "requesting_code"
	case StateAwaitingUser:
		return "awaiting_user"
	case StatePolling:
		return "polling"
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateGranted || s == StateDenied || s == StateExpired
}

// Poll outcomes, also used as metric labels.
const (
	OutcomeGranted  = "granted"
	OutcomePending  = "authorization_pending"
	OutcomeSlowDown = "slow_down"
	OutcomeExpired  = "expired_token"
	OutcomeDenied   = "access_denied"
	OutcomeError    = "error"
)

// HTTPClient is the subset of *http.Client used by Flow.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Flow.
type Config struct {
	ClientID string

	// BaseURL is the authorization host (default https://github.com).
	BaseURL string

	HTTPClient HTTPClient
	Logger     *slog.Logger
	Metrics    *telemetry.Metrics
}

// DeviceCode is the host's answer to a code request.
type DeviceCode struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       time.Duration
	Interval        time.Duration
}

// Credential is a granted access token.
type Credential struct {
	AccessToken string
	TokenType   string
	Scope       string
}

// PollResult is the outcome of a single token request.
type PollResult struct {
	Outcome    string
	Credential *Credential
}

// Prompter shows the user code to the user.
type Prompter interface {
	Prompt(code DeviceCode) error
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(code DeviceCode) error

// Prompt calls f.
func (f PrompterFunc) Prompt(code DeviceCode) error {
	return f(code)
}

// Flow is the device authorization state machine.
type Flow struct {
	cfg      Config
	state    State
	code     *DeviceCode
	interval time.Duration
}

// NewFlow creates a flow in StateRequestingCode.
func NewFlow(cfg Config) *Flow {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://github.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Flow{cfg: cfg, state: StateRequestingCode}
}

// State returns the current state.
func (f *Flow) State() State {
	return f.state
}

// Interval returns the delay to wait before the next poll.
func (f *Flow) Interval() time.Duration {
	return f.interval
}

// Code returns the device code, or nil before RequestCode succeeds.
func (f *Flow) Code() *DeviceCode {
	return f.code
}

// RequestCode asks the host for a device and user code.
func (f *Flow) RequestCode(ctx context.Context) (*DeviceCode, error) {
	if f.state != StateRequestingCode {
		return nil, f.stateError("request a device code")
	}
	if f.cfg.ClientID == "" {
		f.state = StateDenied
		return nil, errors.New(errors.CodeAuthDenied).
			WithDetail("no OAuth client id configured").
			WithSuggestion("Set auth.clientId in components.json or the GITHUB_CLIENT_ID environment variable")
	}

	values, _, err := f.post(ctx, "/login/device/code", url.Values{
		"client_id": {f.cfg.ClientID},
	})
	if err != nil {
		f.state = StateDenied
		return nil, errors.New(errors.CodeAuthTransport).
			WithDetail("device code request failed").
			Wrap(err)
	}
	if e := values.Get("error"); e != "" {
		f.state = StateDenied
		return nil, errors.New(errors.CodeAuthDenied).WithDetail(e)
	}

	code, err := parseDeviceCode(values)
	if err != nil {
		f.state = StateDenied
		return nil, errors.New(errors.CodeAuthTransport).
			WithDetail("malformed device code response").
			Wrap(err)
	}

	f.code = code
	f.interval = code.Interval
	f.state = StateAwaitingUser
	return code, nil
}

func parseDeviceCode(v url.Values) (*DeviceCode, error) {
	code := &DeviceCode{
		DeviceCode:      v.Get("device_code"),
		UserCode:        v.Get("user_code"),
		VerificationURI: v.Get("verification_uri"),
	}
	if code.DeviceCode == "" || code.UserCode == "" || code.VerificationURI == "" {
		return nil, fmt.Errorf("missing device_code, user_code or verification_uri")
	}

	expires, err := strconv.Atoi(v.Get("expires_in"))
	if err != nil {
		return nil, fmt.Errorf("expires_in: %w", err)
	}
	code.ExpiresIn = time.Duration(expires) * time.Second

	code.Interval = defaultInterval
	if s := v.Get("interval"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("interval: %w", err)
		}
		if n > 0 {
			code.Interval = time.Duration(n) * time.Second
		}
	}
	return code, nil
}

// Prompt shows the user code once and moves the flow to polling.
func (f *Flow) Prompt(p Prompter) error {
	if f.state != StateAwaitingUser {
		return f.stateError("prompt the user")
	}
	if p != nil {
		if err := p.Prompt(*f.code); err != nil {
			return err
		}
	}
	f.state = StatePolling
	return nil
}

// Poll performs one token request and applies its outcome.
func (f *Flow) Poll(ctx context.Context) (PollResult, error) {
	if f.state != StatePolling {
		return PollResult{}, f.stateError("poll")
	}

	values, status, err := f.post(ctx, "/login/oauth/access_token", url.Values{
		"client_id":   {f.cfg.ClientID},
		"device_code": {f.code.DeviceCode},
		"grant_type":  {GrantType},
	})
	if err != nil {
		f.record(OutcomeError)
		f.state = StateDenied
		return PollResult{Outcome: OutcomeError}, errors.New(errors.CodeAuthTransport).
			WithDetail("token request failed").
			Wrap(err)
	}

	if token := values.Get("access_token"); token != "" {
		f.record(OutcomeGranted)
		f.state = StateGranted
		return PollResult{
			Outcome: OutcomeGranted,
			Credential: &Credential{
				AccessToken: token,
				TokenType:   values.Get("token_type"),
				Scope:       values.Get("scope"),
			},
		}, nil
	}

	outcome := values.Get("error")
	f.record(outcomeLabel(outcome))
	switch outcome {
	case OutcomePending:
		return PollResult{Outcome: outcome}, nil
	case OutcomeSlowDown:
		f.interval += SlowDownStep
		f.cfg.Logger.Debug("device flow asked to slow down", "interval", f.interval)
		return PollResult{Outcome: outcome}, nil
	case OutcomeExpired:
		f.state = StateExpired
		return PollResult{Outcome: outcome}, errors.New(errors.CodeAuthExpired).
			WithDetail("the device code expired before it was authorized")
	case "":
		f.state = StateDenied
		return PollResult{Outcome: OutcomeError}, errors.New(errors.CodeAuthDenied).
			WithDetailf("token response without access_token (status %d)", status)
	default:
		f.state = StateDenied
		return PollResult{Outcome: outcome}, errors.New(errors.CodeAuthDenied).WithDetail(outcome)
	}
}

// expire moves a non-terminal flow to StateExpired.
func (f *Flow) expire() {
	if !f.state.Terminal() {
		f.state = StateExpired
	}
}

func (f *Flow) record(outcome string) {
	f.cfg.Metrics.RecordDevicePoll(outcome)
}

func outcomeLabel(outcome string) string {
	switch outcome {
	case OutcomePending, OutcomeSlowDown, OutcomeExpired, OutcomeDenied:
		return outcome
	default:
		return OutcomeError
	}
}

func (f *Flow) stateError(action string) error {
	return errors.Newf(errors.CategoryAuth, "cannot %s in state %s", action, f.state)
}

// post sends a form-encoded request and decodes the response, which the
// host may send either form-encoded or as JSON.
func (f *Flow) post(ctx context.Context, path string, form url.Values) (url.Values, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode >= 500 {
		return nil, resp.StatusCode, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	values, err := decodeResponse(resp.Header.Get("Content-Type"), body)
	return values, resp.StatusCode, err
}

func decodeResponse(contentType string, body []byte) (url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" {
		var m map[string]any
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, err
		}
		values := url.Values{}
		for k, v := range m {
			switch x := v.(type) {
			case string:
				values.Set(k, x)
			case float64:
				values.Set(k, strconv.FormatFloat(x, 'f', -1, 64))
			}
		}
		return values, nil
	}
	return url.ParseQuery(strings.TrimSpace(string(body)))
}
