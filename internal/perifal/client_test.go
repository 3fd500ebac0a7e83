package perifal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fakeCloud simulates the vendor API envelope behavior for one test.
type fakeCloud struct {
	t *testing.T

	logins      atomic.Int32
	paramCalls  atomic.Int32
	expireFirst bool // first data call answers -100, later ones succeed
	rejectLogin bool
}

func (f *fakeCloud) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/app/user/login", func(w http.ResponseWriter, r *http.Request) {
		f.logins.Add(1)

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("login body: %v", err)
		}
		// MD5 of "secret"
		if got := body["password"]; got != "5ebe2294ecd0e0f08eab7690d2a6ee69" {
			f.t.Errorf("login password digest = %q", got)
		}

		if f.rejectLogin {
			writeEnvelope(w, "-1", "bad credentials", nil)
			return
		}
		writeEnvelope(w, "0", "", map[string]any{"x-token": "tok-1", "userId": 4711})
	})

	mux.HandleFunc("/app/device/getDataByCode", func(w http.ResponseWriter, r *http.Request) {
		n := f.paramCalls.Add(1)

		if r.Header.Get("x-token") == "" {
			f.t.Error("data call without x-token header")
		}
		var body struct {
			DeviceCode    string   `json:"deviceCode"`
			ProtocalCodes []string `json:"protocalCodes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("data body: %v", err)
		}
		if body.DeviceCode != "DEV1" || len(body.ProtocalCodes) == 0 {
			f.t.Errorf("unexpected data request: %+v", body)
		}

		if f.expireFirst && n == 1 {
			writeEnvelope(w, "-100", "token expired", nil)
			return
		}
		writeEnvelope(w, "0", "", []map[string]string{
			{"code": "T01", "value": "30.0"},
			{"code": "T02", "value": "40.0"},
		})
	})

	mux.HandleFunc("/app/device/control", func(w http.ResponseWriter, r *http.Request) {
		// Always expired: control must NOT retry.
		writeEnvelope(w, "-100", "token expired", nil)
	})

	mux.HandleFunc("/device/snapshot/listCollectData", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, "0", "", map[string]any{
			"title": "Power In",
			"valueList": []map[string]any{
				{"dateTime": "2026-08-29 10", "addressValue": "1.5"},
				{"dateTime": "2026-08-29 11", "addressValue": 2.25},
			},
		})
	})

	return mux
}

func writeEnvelope(w http.ResponseWriter, code, msg string, obj any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error_code":   code,
		"error_msg":    msg,
		"objectResult": obj,
	})
}

func newTestClient(t *testing.T, f *fakeCloud) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "user@example.com", "secret", nil), srv
}

func TestLogin_StoresTokenAndUserID(t *testing.T) {
	f := &fakeCloud{t: t}
	c, _ := newTestClient(t, f)

	if !c.Login(context.Background()) {
		t.Fatal("Login() = false, want true")
	}
	if c.token != "tok-1" {
		t.Fatalf("token = %q", c.token)
	}
	if c.UserID() != "4711" {
		t.Fatalf("userID = %q", c.UserID())
	}
}

func TestLogin_FalseOnRejection(t *testing.T) {
	f := &fakeCloud{t: t, rejectLogin: true}
	c, _ := newTestClient(t, f)

	if c.Login(context.Background()) {
		t.Fatal("Login() = true for rejected credentials")
	}
	if c.token != "" {
		t.Fatalf("token = %q after failed login", c.token)
	}
}

func TestGetAllParameters_ReturnsCodeValueMap(t *testing.T) {
	f := &fakeCloud{t: t}
	c, _ := newTestClient(t, f)
	ctx := context.Background()

	if !c.Login(ctx) {
		t.Fatal("login failed")
	}
	params := c.GetAllParameters(ctx, "DEV1", []string{"T01", "T02"})
	if params["T01"] != "30.0" || params["T02"] != "40.0" {
		t.Fatalf("params = %v", params)
	}
}

func TestGetAllParameters_RetriesOnceOnExpiry(t *testing.T) {
	f := &fakeCloud{t: t, expireFirst: true}
	c, _ := newTestClient(t, f)
	ctx := context.Background()

	if !c.Login(ctx) {
		t.Fatal("login failed")
	}
	params := c.GetAllParameters(ctx, "DEV1", []string{"T01"})

	if len(params) != 2 {
		t.Fatalf("params = %v, want retried result", params)
	}
	// Initial login + exactly one re-login.
	if got := f.logins.Load(); got != 2 {
		t.Fatalf("logins = %d, want 2", got)
	}
	if got := f.paramCalls.Load(); got != 2 {
		t.Fatalf("data calls = %d, want 2", got)
	}
}

func TestGetAllParameters_EmptyOnTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // dead endpoint
	c := NewClient(srv.URL, "user@example.com", "secret", nil)

	params := c.GetAllParameters(context.Background(), "DEV1", []string{"T01"})
	if params == nil {
		t.Fatal("params = nil, want empty map")
	}
	if len(params) != 0 {
		t.Fatalf("params = %v, want empty", params)
	}
}

func TestControl_NoRetryOnExpiry(t *testing.T) {
	f := &fakeCloud{t: t}
	c, _ := newTestClient(t, f)
	ctx := context.Background()

	if !c.Login(ctx) {
		t.Fatal("login failed")
	}
	loginsBefore := f.logins.Load()

	if c.Control(ctx, "DEV1", "Power", "1") {
		t.Fatal("Control() = true for expired session")
	}
	if got := f.logins.Load(); got != loginsBefore {
		t.Fatalf("control triggered %d extra logins, want 0", got-loginsBefore)
	}
}

func TestGetHistory_ParsesMixedValueTypes(t *testing.T) {
	f := &fakeCloud{t: t}
	c, _ := newTestClient(t, f)
	ctx := context.Background()

	if !c.Login(ctx) {
		t.Fatal("login failed")
	}
	end := time.Now()
	s := c.GetHistory(ctx, "DEV1", "2054", end.Add(-24*time.Hour), end, "day")

	if s.Title != "Power In" {
		t.Fatalf("title = %q", s.Title)
	}
	if len(s.ValueList) != 2 {
		t.Fatalf("len = %d", len(s.ValueList))
	}
	if s.ValueList[0].Value() != 1.5 || s.ValueList[1].Value() != 2.25 {
		t.Fatalf("values = %v, %v", s.ValueList[0].Value(), s.ValueList[1].Value())
	}
}
