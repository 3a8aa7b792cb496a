package ws_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	router "github.com/avelis/collabd/internal/adapters/http"
	"github.com/avelis/collabd/internal/adapters/ws"
	"github.com/avelis/collabd/internal/auth"
	"github.com/avelis/collabd/internal/config"
	"github.com/avelis/collabd/internal/domain"
	"github.com/avelis/collabd/internal/protocol"
	"github.com/avelis/collabd/internal/session"
	"github.com/avelis/collabd/internal/store/memory"
)

const (
	testSecret  = "integration-secret"
	testProject = domain.ProjectID("p1")
)

type testServer struct {
	srv      *httptest.Server
	sessions *session.Manager
	store    *memory.MembershipStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ms := memory.NewMembershipStore()
	sessions := session.NewManager(ms, 10*time.Millisecond)
	verifier := auth.NewVerifier(testSecret)
	ctl := ws.NewController(verifier, sessions, ws.Options{
		ReadLimit:  32768,
		PingPeriod: 30 * time.Second,
		SendBuffer: 32,
	})

	cfg := &config.Config{Mode: "release", StaticPath: t.TempDir()}
	ctx, cancel := context.WithCancel(context.Background())
	r := router.SetupRouter(ctx, cfg, sessions, ctl)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return &testServer{srv: srv, sessions: sessions, store: ms}
}

func (ts *testServer) wsURL(token string) string {
	u := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func signToken(t *testing.T, uid, name string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		UserID: uid,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func dial(t *testing.T, ts *testServer, uid, name string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL(signToken(t, uid, name)), nil)
	if err != nil {
		t.Fatalf("dial as %s: %v", uid, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write event: %v", err)
	}
}

// waitFor reads frames until one of the wanted type arrives, decoding
// it into v. Frames of other types are discarded.
func waitFor(t *testing.T, conn *websocket.Conn, want protocol.EventType, v any) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("bad frame %q: %v", data, err)
		}
		if env.Type != want {
			continue
		}
		if v != nil {
			if err := json.Unmarshal(data, v); err != nil {
				t.Fatalf("decode %s: %v", want, err)
			}
		}
		return
	}
}

func TestHandshakeRejectsMissingToken(t *testing.T) {
	ts := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL(""), nil)
	if err == nil {
		t.Fatal("handshake succeeded without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestHandshakeRejectsInvalidToken(t *testing.T) {
	ts := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL("not-a-jwt"), nil)
	if err == nil {
		t.Fatal("handshake succeeded with a bogus token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestJoinDeniedOverWire(t *testing.T) {
	ts := newTestServer(t)

	conn := dial(t, ts, "c", "Carol") // not a project member
	sendEvent(t, conn, protocol.JoinProject{Type: protocol.EvtJoinProject, ProjectID: testProject})

	var ack protocol.JoinAck
	waitFor(t, conn, protocol.EvtJoinAck, &ack)
	if ack.Status != protocol.StatusError || ack.Message != "Access denied" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if ts.sessions.OccupancyOf(testProject) != 0 {
		t.Error("denied join changed occupancy")
	}
}

func TestSessionFlowOverWire(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Add(testProject, "a")
	ts.store.Add(testProject, "b")

	connA := dial(t, ts, "a", "Alice")
	sendEvent(t, connA, protocol.JoinProject{Type: protocol.EvtJoinProject, ProjectID: testProject})

	// The joiner's lifecycle event is queued during the join itself,
	// ahead of the ack.
	waitFor(t, connA, protocol.EvtRoomWaiting, nil)
	var ack protocol.JoinAck
	waitFor(t, connA, protocol.EvtJoinAck, &ack)
	if ack.Status != protocol.StatusOK || len(ack.ExistingUsers) != 0 {
		t.Fatalf("unexpected first join ack: %+v", ack)
	}

	connB := dial(t, ts, "b", "Bob")
	sendEvent(t, connB, protocol.JoinProject{Type: protocol.EvtJoinProject, ProjectID: testProject})

	waitFor(t, connB, protocol.EvtRoomActive, nil)
	waitFor(t, connB, protocol.EvtJoinAck, &ack)
	if ack.Status != protocol.StatusOK || len(ack.ExistingUsers) != 1 || ack.ExistingUsers[0].ID != "a" {
		t.Fatalf("unexpected second join ack: %+v", ack)
	}

	var joined protocol.UserJoined
	waitFor(t, connA, protocol.EvtUserJoined, &joined)
	if joined.UserID != "b" || joined.UserName != "Bob" {
		t.Fatalf("unexpected user:joined: %+v", joined)
	}
	waitFor(t, connA, protocol.EvtRoomActive, nil)

	sendEvent(t, connB, protocol.ChatSend{Type: protocol.EvtChatMessage, ProjectID: testProject, Text: "hello"})
	var msg protocol.ChatMessage
	waitFor(t, connA, protocol.EvtChatMessage, &msg)
	if msg.User.ID != "b" || msg.Message != "hello" {
		t.Fatalf("unexpected chat: %+v", msg)
	}

	// B drops; A hears the full departure sequence.
	connB.Close()
	var left protocol.UserLeft
	waitFor(t, connA, protocol.EvtUserLeft, &left)
	if left.UserID != "b" {
		t.Fatalf("user:left for %q, want b", left.UserID)
	}
	waitFor(t, connA, protocol.EvtCursorLeave, nil)
	waitFor(t, connA, protocol.EvtRoomWaiting, nil)
	waitFor(t, connA, protocol.EvtChatClear, nil)
}

func TestNotifyEndpointDeliversToConnection(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts, "a", "Alice")

	// The ws registration races the HTTP notify below; wait for it.
	waitUntil(t, func() bool {
		_, ok := ts.sessions.Lookup("a")
		return ok
	})

	body := []byte(`{"userId":"a","event":"invitation:new","payload":{"projectId":"p9"}}`)
	resp, err := http.Post(ts.srv.URL+"/api/notify", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("notify request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("notify status = %d, want 204", resp.StatusCode)
	}

	var n protocol.Notify
	waitFor(t, conn, protocol.EventType("invitation:new"), &n)
	if string(n.Payload) != `{"projectId":"p9"}` {
		t.Errorf("unexpected notify payload: %s", n.Payload)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}
