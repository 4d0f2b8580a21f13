package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"moby-metaserver/pkg/logging/logging"
)

func TestTimeoutPassesThroughFastHandler(t *testing.T) {
	t.Parallel()

	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"status":"Ok"}`))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/find", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rr.Code)
	}
	if rr.Body.String() != `{"status":"Ok"}` {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected copied content type, got %q", ct)
	}
}

func TestTimeoutAnswersGatewayTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	h := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		<-release
		_, _ = w.Write([]byte("late"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/getdata", nil))

	if rr.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", rr.Code)
	}
	if rr.Body.String() != errorBody {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestRecovererReturnsErrorEnvelope(t *testing.T) {
	t.Parallel()

	// Timeout sits inside Recoverer in the router; a panic must cross it.
	h := Recoverer()(Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/platforms", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if rr.Body.String() != errorBody {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestLoggingContextAttachesRequestLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	h := chimw.RequestID(LoggingContext(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.L(r.Context()).Info("inside")
	})))

	req := httptest.NewRequest(http.MethodGet, "/find?title=Doom", nil)
	req.Header.Set("User-Agent", "x86Launcher2")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("inside").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/find" {
		t.Fatalf("expected path field, got %v", fields["path"])
	}
	if fields["user_agent"] != "x86Launcher2" {
		t.Fatalf("expected user_agent field, got %v", fields["user_agent"])
	}
	if id, _ := fields["request_id"].(string); id == "" {
		t.Fatal("expected request_id field")
	}
}

func TestLoggingContextPassesStatusThrough(t *testing.T) {
	t.Parallel()

	h := LoggingContext(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if logging.FromContext(r.Context()) == nil {
			t.Error("expected logger in context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
