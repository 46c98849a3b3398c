package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/remtech/relay/internal/app"
	"github.com/remtech/relay/internal/config"
)

func testServer(t *testing.T) (*httptest.Server, context.CancelFunc) {
	t.Helper()
	cfg := &config.Config{
		Mode:          "release",
		ReadLimit:     32768,
		PingPeriod:    54 * time.Second,
		WaitingTTL:    5 * time.Minute,
		ActiveTTL:     time.Hour,
		SweepInterval: 30 * time.Second,
		AllowOrigins:  []string{"*"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	hub := app.NewHub(cfg.WaitingTTL, cfg.ActiveTTL)
	srv := httptest.NewServer(SetupRouter(ctx, cfg, hub))
	return srv, cancel
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return ws
}

func readMsg(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	if err := ws.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return m
}

func TestHealthz(t *testing.T) {
	srv, cancel := testServer(t)
	defer cancel()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
}

func TestWebsocketGreetingAndHello(t *testing.T) {
	srv, cancel := testServer(t)
	defer cancel()
	defer srv.Close()

	ws := dialWS(t, srv)
	defer ws.Close()

	greeting := readMsg(t, ws)
	if greeting["type"] != "connected" {
		t.Fatalf("greeting=%v, want connected", greeting)
	}
	connID, _ := greeting["connectionId"].(string)
	if connID == "" {
		t.Fatal("greeting missing connectionId")
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello","role":"user"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack := readMsg(t, ws)
	if ack["type"] != "hello_ack" || ack["role"] != "user" || ack["connectionId"] != connID {
		t.Fatalf("unexpected hello_ack: %v", ack)
	}
}

func TestWebsocketRejectsMalformedFrames(t *testing.T) {
	srv, cancel := testServer(t)
	defer cancel()
	defer srv.Close()

	ws := dialWS(t, srv)
	defer ws.Close()
	readMsg(t, ws) // connected

	if err := ws.WriteMessage(websocket.TextMessage, []byte("{oops")); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := readMsg(t, ws)
	if m["type"] != "error" || m["code"] != "BAD_JSON" {
		t.Fatalf("got %v, want BAD_JSON error", m)
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"warp"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	m = readMsg(t, ws)
	if m["type"] != "error" || m["code"] != "BAD_MESSAGE" {
		t.Fatalf("got %v, want BAD_MESSAGE error", m)
	}
}

func TestWebsocketCallFlowEndToEnd(t *testing.T) {
	srv, cancel := testServer(t)
	defer cancel()
	defer srv.Close()

	tech := dialWS(t, srv)
	defer tech.Close()
	readMsg(t, tech) // connected
	if err := tech.WriteMessage(websocket.TextMessage, []byte(`{"type":"register_tech","techId":"Maria-QSR"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack := readMsg(t, tech)
	if ack["type"] != "register_tech_ack" || ack["techId"] != "maria-qsr" {
		t.Fatalf("unexpected ack: %v", ack)
	}

	user := dialWS(t, srv)
	defer user.Close()
	readMsg(t, user) // connected
	if err := user.WriteMessage(websocket.TextMessage, []byte(`{"type":"call_request","techId":"maria-qsr"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	created := readMsg(t, user)
	if created["type"] != "call_created" {
		t.Fatalf("got %v, want call_created", created)
	}
	sid := created["sessionId"].(string)

	incoming := readMsg(t, tech)
	if incoming["type"] != "incoming_call" || incoming["sessionId"] != sid {
		t.Fatalf("got %v, want incoming_call for %s", incoming, sid)
	}

	join := `{"type":"join_session","sessionId":"` + sid + `","role":"user"}`
	if err := user.WriteMessage(websocket.TextMessage, []byte(join)); err != nil {
		t.Fatalf("write: %v", err)
	}
	joined := readMsg(t, user)
	if joined["type"] != "session_joined" || joined["status"] != "waiting" {
		t.Fatalf("got %v, want waiting session_joined", joined)
	}
}
