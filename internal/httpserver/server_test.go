package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/framelab/framebench-web/internal/adapter"
	"github.com/framelab/framebench-web/internal/bench"
	"github.com/framelab/framebench-web/internal/config"
	"github.com/framelab/framebench-web/internal/frame"
	"github.com/framelab/framebench-web/internal/version"
)

func TestHealthzOK(t *testing.T) {
	t.Parallel()

	_, ts := newTestHTTPServer(t, config.Config{}, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	if strings.TrimSpace(string(body)) != `{"status":"ok"}` {
		t.Fatalf("unexpected body %q", string(body))
	}

	respAPI, err := http.Get(ts.URL + "/api/healthz")
	if err != nil {
		t.Fatalf("GET /api/healthz failed: %v", err)
	}
	respAPI.Body.Close()
	if respAPI.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for /api/healthz, got %d", respAPI.StatusCode)
	}
}

func TestReadyzStates(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()

	// Bench manager not configured -> degraded.
	_, ts := newTestHTTPServer(t, cfg, nil, nil)
	defer ts.Close()

	assertReadyz(t, ts.URL+"/readyz", http.StatusServiceUnavailable, "degraded", "bench_not_configured")
	assertReadyz(t, ts.URL+"/api/readyz", http.StatusServiceUnavailable, "degraded", "bench_not_configured")

	// Manager configured but without samples -> initializing.
	manager := newTestManager(t)
	_, tsInit := newTestHTTPServer(t, cfg, nil, manager)
	defer tsInit.Close()

	assertReadyz(t, tsInit.URL+"/readyz", http.StatusServiceUnavailable, "initializing", "waiting_for_samples")

	// Fold one sample and expect ready.
	manager.Observe(frame.FromRaw(nil, 16, 0, false))
	assertReadyz(t, tsInit.URL+"/readyz", http.StatusOK, "ok", "")
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()

	version.Set(version.Info{Version: "v0.0.1", Commit: "abc123", BuildTime: "now"})

	_, ts := newTestHTTPServer(t, defaultTestConfig(), nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/version")
	if err != nil {
		t.Fatalf("GET /api/version failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var info version.Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if info.Version != "v0.0.1" || info.Commit != "abc123" || info.BuildTime != "now" {
		t.Fatalf("unexpected version payload %+v", info)
	}
}

func TestStaticIndexServed(t *testing.T) {
	t.Parallel()

	_, ts := newTestHTTPServer(t, defaultTestConfig(), nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "framebench") {
		t.Fatalf("dashboard markup missing from response body")
	}
}

func TestAPIAdapters(t *testing.T) {
	t.Parallel()

	adapters := []adapter.Info{
		{ID: "card0", PCI: "0000:01:00.0", PCIID: "1002:73df", RenderNode: "/dev/dri/renderD128"},
	}

	_, ts := newTestHTTPServer(t, defaultTestConfig(), adapters, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/adapters")
	if err != nil {
		t.Fatalf("GET /api/adapters failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var payload []adapter.Info
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(payload) != 1 || payload[0].ID != "card0" {
		t.Fatalf("unexpected adapter payload %+v", payload)
	}
}

func TestAPIWindow(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t)

	_, ts := newTestHTTPServer(t, defaultTestConfig(), nil, manager)
	defer ts.Close()

	// No sample yet.
	resp, err := http.Get(ts.URL + "/api/window")
	if err != nil {
		t.Fatalf("GET /api/window failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without samples, got %d", resp.StatusCode)
	}

	manager.Observe(frame.FromRaw(nil, 10, 0, false))
	manager.Observe(frame.FromRaw(nil, 20, 0, false))

	resp2, err := http.Get(ts.URL + "/api/window")
	if err != nil {
		t.Fatalf("GET /api/window failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp2.StatusCode)
	}

	var snapshot bench.Snapshot
	if err := json.NewDecoder(resp2.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Frames != 2 {
		t.Fatalf("unexpected frame count %d", snapshot.Frames)
	}
	if snapshot.Min.FrameTime != 10 || snapshot.Max.FrameTime != 20 {
		t.Fatalf("unexpected aggregates: min=%v max=%v", snapshot.Min.FrameTime, snapshot.Max.FrameTime)
	}
}

func TestAPIWindowDeleteResets(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t)
	manager.Observe(frame.FromRaw(nil, 10, 0, false))

	_, ts := newTestHTTPServer(t, defaultTestConfig(), nil, manager)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/window", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /api/window failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	if manager.Ready() {
		t.Fatal("manager should not be ready after reset")
	}
}

func TestWebSocketHelloStatsAndReset(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t)
	manager.Observe(frame.FromRaw(nil, 16, 0, false))

	cfg := defaultTestConfig()
	adapters := []adapter.Info{{ID: "card0"}}

	_, ts := newTestHTTPServer(t, cfg, adapters, manager)
	defer ts.Close()

	wsURL := toWebsocketURL(ts.URL + "/ws")
	cctx, ccancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer ccancel()

	conn, _, err := websocket.Dial(cctx, wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	hello := readJSONMessage(t, cctx, conn)
	if hello["type"] != "hello" {
		t.Fatalf("expected hello message, got %q", hello["type"])
	}
	if _, ok := hello["adapters"]; !ok {
		t.Fatal("hello message missing adapters")
	}

	// The current snapshot is delivered on subscription.
	stats := readJSONMessage(t, cctx, conn)
	if stats["type"] != "stats" {
		t.Fatalf("expected stats message, got %q", stats["type"])
	}
	last, ok := stats["last"].(map[string]interface{})
	if !ok {
		t.Fatal("stats payload missing last sample")
	}
	if _, ok := last["frame_time_ms"]; !ok {
		t.Fatal("expected frame_time_ms in last sample")
	}

	if err := conn.Write(cctx, websocket.MessageText, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	pong := readJSONMessage(t, cctx, conn)
	if pong["type"] != "pong" {
		t.Fatalf("expected pong, got %q", pong["type"])
	}

	if err := conn.Write(cctx, websocket.MessageText, []byte(`{"type":"reset"}`)); err != nil {
		t.Fatalf("write reset: %v", err)
	}
	ack := readJSONMessage(t, cctx, conn)
	if ack["type"] != "reset_ack" {
		t.Fatalf("expected reset_ack, got %q", ack["type"])
	}
	if manager.Ready() {
		t.Fatal("manager should not be ready after ws reset")
	}
}

func newTestManager(t *testing.T) *bench.Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager, err := bench.NewManager(time.Second, nil, nil, false, logger)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func newTestHTTPServer(t *testing.T, cfg config.Config, adapters []adapter.Info, benchManager *bench.Manager) (*Server, *httptest.Server) {
	t.Helper()

	if cfg.ListenAddr == "" {
		cfg = defaultTestConfig()
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(cfg, logger, adapters, benchManager)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return srv, ts
}

func assertReadyz(t *testing.T, url string, expectedStatus int, expected string, reason string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		t.Fatalf("expected status %d for %s, got %d", expectedStatus, url, resp.StatusCode)
	}

	var payload readyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode readyz response: %v", err)
	}

	if payload.Status != expected {
		t.Fatalf("expected status %q, got %q", expected, payload.Status)
	}
	if reason == "" {
		if payload.Reason != "" {
			t.Fatalf("expected empty reason, got %q", payload.Reason)
		}
	} else if payload.Reason != reason {
		t.Fatalf("expected reason %q, got %q", reason, payload.Reason)
	}
}

func readJSONMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	msgType, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("websocket read: %v", err)
	}
	if msgType != websocket.MessageText {
		t.Fatalf("unexpected message type %v", msgType)
	}

	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return msg
}

func defaultTestConfig() config.Config {
	return config.Config{
		ListenAddr:     ":0",
		SampleInterval: 250 * time.Millisecond,
		AllowedOrigins: []string{"*"},
		WS: config.WebsocketConfig{
			MaxClients:   1024,
			WriteTimeout: 3 * time.Second,
			ReadTimeout:  30 * time.Second,
		},
	}
}

func toWebsocketURL(httpURL string) string {
	u, err := url.Parse(httpURL)
	if err != nil {
		return httpURL
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String()
}
