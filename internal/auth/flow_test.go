package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/harmonyui/harmonycn/internal/errors"
)

// fakeHost answers device code requests and replays poll responses in
// order.
type fakeHost struct {
	t        *testing.T
	mu       sync.Mutex
	code     string
	polls    []string
	requests int
	server   *httptest.Server
}

func newFakeHost(t *testing.T, code string, polls ...string) *fakeHost {
	t.Helper()
	h := &fakeHost{t: t, code: code, polls: polls}
	mux := http.NewServeMux()
	mux.HandleFunc("/login/device/code", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("device code method = %s", r.Method)
		}
		r.ParseForm()
		if r.PostForm.Get("client_id") != "client-1" {
			t.Errorf("client_id = %q", r.PostForm.Get("client_id"))
		}
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		w.Write([]byte(h.code))
	})
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("grant_type") != GrantType {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("device_code") != "dev-123" {
			t.Errorf("device_code = %q", r.PostForm.Get("device_code"))
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.requests >= len(h.polls) {
			t.Errorf("unexpected poll %d", h.requests+1)
			w.Write([]byte("error=access_denied"))
			return
		}
		body := h.polls[h.requests]
		h.requests++
		if len(body) > 0 && body[0] == '{' {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		w.Write([]byte(body))
	})
	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)
	return h
}

func (h *fakeHost) pollCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests
}

func (h *fakeHost) flow() *Flow {
	return NewFlow(Config{ClientID: "client-1", BaseURL: h.server.URL})
}

const deviceCodeBody = "device_code=dev-123&user_code=ABCD-1234&verification_uri=https%3A%2F%2Fgithub.com%2Flogin%2Fdevice&expires_in=900&interval=5"

// recordingSleeper returns immediately and remembers every interval.
type recordingSleeper struct {
	intervals []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.intervals = append(s.intervals, d)
	return ctx.Err()
}

func TestRun_PendingThenGranted(t *testing.T) {
	host := newFakeHost(t, deviceCodeBody,
		"error=authorization_pending",
		"error=authorization_pending",
		"access_token=gho_abc&token_type=bearer&scope=repo",
	)
	flow := host.flow()

	var prompted DeviceCode
	prompter := PrompterFunc(func(code DeviceCode) error {
		prompted = code
		return nil
	})
	sleeper := &recordingSleeper{}

	cred, err := Run(context.Background(), flow, prompter, sleeper)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if cred.AccessToken != "gho_abc" || cred.Scope != "repo" {
		t.Errorf("credential = %+v", cred)
	}
	if got := host.pollCount(); got != 3 {
		t.Errorf("polls = %d, want 3", got)
	}
	if flow.State() != StateGranted {
		t.Errorf("state = %s", flow.State())
	}
	if prompted.UserCode != "ABCD-1234" || prompted.VerificationURI != "https://github.com/login/device" {
		t.Errorf("prompted = %+v", prompted)
	}
	for _, d := range sleeper.intervals {
		if d != 5*time.Second {
			t.Errorf("interval = %v, want 5s", d)
		}
	}
}

func TestRun_SlowDownRaisesLaterIntervals(t *testing.T) {
	host := newFakeHost(t, deviceCodeBody,
		"error=slow_down",
		"error=authorization_pending",
		"access_token=gho_abc",
	)
	sleeper := &recordingSleeper{}

	if _, err := Run(context.Background(), host.flow(), nil, sleeper); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := []time.Duration{5 * time.Second, 10 * time.Second, 10 * time.Second}
	if len(sleeper.intervals) != len(want) {
		t.Fatalf("intervals = %v, want %v", sleeper.intervals, want)
	}
	for i := range want {
		if sleeper.intervals[i] != want[i] {
			t.Errorf("interval %d = %v, want %v", i, sleeper.intervals[i], want[i])
		}
	}
}

func TestRun_TerminalErrors(t *testing.T) {
	tests := []struct {
		name      string
		poll      string
		wantCode  string
		wantState State
	}{
		{"expired", "error=expired_token", errors.CodeAuthExpired, StateExpired},
		{"denied", "error=access_denied", errors.CodeAuthDenied, StateDenied},
		{"unknown error", "error=incorrect_client_credentials", errors.CodeAuthDenied, StateDenied},
		{"empty token", "access_token=&token_type=bearer", errors.CodeAuthDenied, StateDenied},
		{"json denied", `{"error": "access_denied"}`, errors.CodeAuthDenied, StateDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newFakeHost(t, deviceCodeBody, tt.poll)
			flow := host.flow()

			cred, err := Run(context.Background(), flow, nil, &recordingSleeper{})
			if !errors.HasCode(err, tt.wantCode) {
				t.Fatalf("err = %v, want %s", err, tt.wantCode)
			}
			if cred != nil {
				t.Error("no credential expected")
			}
			if flow.State() != tt.wantState {
				t.Errorf("state = %s, want %s", flow.State(), tt.wantState)
			}
		})
	}
}

func TestRun_JSONGrant(t *testing.T) {
	host := newFakeHost(t, deviceCodeBody, `{"access_token": "gho_json", "token_type": "bearer", "scope": ""}`)

	cred, err := Run(context.Background(), host.flow(), nil, &recordingSleeper{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if cred.AccessToken != "gho_json" {
		t.Errorf("token = %q", cred.AccessToken)
	}
}

func TestRun_CancelExpires(t *testing.T) {
	host := newFakeHost(t, deviceCodeBody, "error=authorization_pending")
	flow := host.flow()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleeper := SleeperFunc(func(ctx context.Context, d time.Duration) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("poll loop should run under the expires_in deadline")
		}
		cancel()
		return ctx.Err()
	})

	_, err := Run(ctx, flow, nil, sleeper)
	if !errors.HasCode(err, errors.CodeAuthExpired) {
		t.Fatalf("err = %v, want E112", err)
	}
	if flow.State() != StateExpired {
		t.Errorf("state = %s", flow.State())
	}
	if host.pollCount() != 0 {
		t.Errorf("polls = %d, want 0", host.pollCount())
	}
}

func TestFlow_RequestCodeTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	flow := NewFlow(Config{ClientID: "client-1", BaseURL: baseURL})
	_, err := flow.RequestCode(context.Background())
	if !errors.HasCode(err, errors.CodeAuthTransport) {
		t.Fatalf("err = %v, want E110", err)
	}
	if flow.State() != StateDenied {
		t.Errorf("state = %s", flow.State())
	}
}

func TestFlow_MalformedDeviceCode(t *testing.T) {
	host := newFakeHost(t, "device_code=dev-123&expires_in=soon")
	flow := host.flow()

	if _, err := flow.RequestCode(context.Background()); !errors.HasCode(err, errors.CodeAuthTransport) {
		t.Fatalf("err = %v, want E110", err)
	}
}

func TestFlow_StateGuards(t *testing.T) {
	host := newFakeHost(t, deviceCodeBody)
	flow := host.flow()

	if _, err := flow.Poll(context.Background()); err == nil {
		t.Error("Poll before RequestCode should fail")
	}
	if err := flow.Prompt(nil); err == nil {
		t.Error("Prompt before RequestCode should fail")
	}

	code, err := flow.RequestCode(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if flow.State() != StateAwaitingUser || flow.Interval() != 5*time.Second || code.ExpiresIn != 900*time.Second {
		t.Errorf("after RequestCode: state %s interval %v code %+v", flow.State(), flow.Interval(), code)
	}
	if _, err := flow.RequestCode(context.Background()); err == nil {
		t.Error("second RequestCode should fail")
	}
}

func TestFlow_MissingClientID(t *testing.T) {
	flow := NewFlow(Config{BaseURL: "http://127.0.0.1:0"})
	if _, err := flow.RequestCode(context.Background()); !errors.HasCode(err, errors.CodeAuthDenied) {
		t.Errorf("err = %v, want E111", err)
	}
}
