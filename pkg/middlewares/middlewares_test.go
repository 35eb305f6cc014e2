package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/jake-scott/kasa-cloud/internal/pkg/logging"
)

func TestCorrelation(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantHeader string
		wantTxnID  string
	}{
		{name: "absent"},
		{name: "valid", header: "abc-123_x", wantHeader: "abc-123_x", wantTxnID: "abc-123_x"},
		{name: "malformed", header: "bad id!", wantHeader: "<Bad_Correlation_Id>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTxnID string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotTxnID, _ = logging.TxnID(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/devices", nil)
			if tt.header != "" {
				req.Header.Set(DefaultCorrelationHeader, tt.header)
			}
			w := httptest.NewRecorder()
			NewCorrelation("", next).ServeHTTP(w, req)

			if got := w.Header().Get(DefaultCorrelationHeader); got != tt.wantHeader {
				t.Errorf("response header = %q, want %q", got, tt.wantHeader)
			}
			if gotTxnID != tt.wantTxnID {
				t.Errorf("txn id = %q, want %q", gotTxnID, tt.wantTxnID)
			}
		})
	}
}

func TestLogging(t *testing.T) {
	var gotTxnID string
	r := mux.NewRouter()
	r.Use(NewCorrelationMw(DefaultCorrelationHeader), NewLoggingMw(true))
	r.HandleFunc("/devices/{alias}", func(w http.ResponseWriter, r *http.Request) {
		gotTxnID, _ = logging.TxnID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})

	t.Run("keeps correlation id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/devices/Kettle", nil)
		req.Header.Set(DefaultCorrelationHeader, "req-42")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusTeapot {
			t.Errorf("status = %d", w.Code)
		}
		if got := w.Header().Get("X-Txn-ID"); got != "req-42" || gotTxnID != "req-42" {
			t.Errorf("X-Txn-ID = %q, context txn id = %q", got, gotTxnID)
		}
	})

	t.Run("generates txn id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/devices/Kettle", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get("X-Txn-ID")
		if got == "" || got != gotTxnID {
			t.Errorf("X-Txn-ID = %q, context txn id = %q", got, gotTxnID)
		}
	})
}

func TestRecovery(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	NewRecovery(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestCors(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := NewCors(CorsOptions([]string{"https://home.example"}, false), next)

	req := httptest.NewRequest(http.MethodOptions, "/devices", nil)
	req.Header.Set("Origin", "https://home.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://home.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/devices", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q for foreign origin", got)
	}
}
