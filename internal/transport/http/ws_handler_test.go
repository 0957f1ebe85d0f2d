package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"codium-engine/internal/app"
	"codium-engine/internal/domain"
	"codium-engine/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketBattleFlow(t *testing.T) {
	service := newTestService()
	wsHandler := NewWSHandler(service, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?setId=shrine-1&playerId=p1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The first frame shows the opening question.
	_, payload := readNext(conn, t, "question")
	if payload["setId"] != "shrine-1" {
		t.Fatalf("expected question for shrine-1, got %v", payload)
	}
	if payload["state"] != "active" {
		t.Fatalf("expected active state, got %v", payload["state"])
	}

	// A wrong answer costs a life but keeps the run going.
	// Snapshot updates may interleave with the verdict frame.
	writeAnswer(conn, t, "notquoted")
	_, payload = readUntil(conn, t, "verdict")
	verdict, _ := payload["verdict"].(map[string]any)
	if verdict == nil || verdict["accepted"] != false {
		t.Fatalf("expected rejected verdict, got %v", payload)
	}
	if payload["state"] != "active" {
		t.Fatalf("expected run still active, got %v", payload["state"])
	}

	// The correct answer wins the single-question run.
	writeAnswer(conn, t, `"hello"`)
	_, payload = readUntil(conn, t, "finished")
	result, _ := payload["result"].(map[string]any)
	if result == nil || result["state"] != "won" {
		t.Fatalf("expected won result, got %v", payload)
	}
	if payload["saved"] != true {
		t.Fatalf("expected progress saved, got %v", payload)
	}

	// Rankings reflect the submitted score.
	if err := conn.WriteJSON(map[string]any{"type": "leaderboard"}); err != nil {
		t.Fatalf("write leaderboard request: %v", err)
	}
	// Reaching the rankings frame is enough; row shape is covered elsewhere.
	_, _ = readUntil(conn, t, "rankings")
}

func TestWebSocketDisconnectStopsSpawning(t *testing.T) {
	service := newTestService()
	wsHandler := NewWSHandler(service, 2*time.Millisecond)

	server := httptest.NewServer(http.HandlerFunc(wsHandler.ServeWS))
	defer server.Close()

	before := runtime.NumGoroutine()

	u := "ws" + server.URL[len("http"):] + "?setId=shrine-1&playerId=p1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readNext(conn, t, "question")
	// Wait for the cadence to tick so the spawn loop is definitely running.
	_, _ = readUntil(conn, t, "spawn")

	// Drop the connection with the session still active. The handler must
	// cancel the spawn loop; otherwise its ticker goroutine lives forever.
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("goroutines did not settle after disconnect: before=%d now=%d", before, runtime.NumGoroutine())
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	service := newTestService()
	wsHandler := NewWSHandler(service, time.Minute)

	server := httptest.NewServer(http.HandlerFunc(wsHandler.ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL + "?setId=shrine-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func newTestService() *app.EngineService {
	sets := memory.NewSetRepository(memory.NewStaticSetLoader(sampleSets()), time.Minute)
	ledger := app.NewLedger(memory.NewProgressStore())
	return app.NewEngineService(memory.NewSessionStore(), sets, ledger, memory.NewLeaderboard(), app.DefaultSpawnConfig(), 10)
}

func writeAnswer(conn *websocket.Conn, t *testing.T, value string) {
	t.Helper()
	msg := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"values": []string{value},
		},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write answer: %v", err)
	}
}

func readUntil(conn *websocket.Conn, t *testing.T, want string) (string, map[string]any) {
	t.Helper()
	for i := 0; i < 10; i++ {
		msgType, payload := readNext(conn, t, "")
		if msgType == want {
			return msgType, payload
		}
	}
	t.Fatalf("no %s frame within 10 reads", want)
	return "", nil
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	// Non-object payloads (e.g. ranking rows) yield a nil map.
	var payload map[string]any
	_ = json.Unmarshal(msg.Payload, &payload)
	return msg.Type, payload
}

func sampleSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"shrine-1": {
			ID:            "shrine-1",
			Title:         "String Shrine",
			StartingLives: 3,
			Questions: []domain.Question{
				{
					ID:            "q1",
					Prompt:        "Pick the string literal that prints hello.",
					Mode:          domain.ModeExactKind,
					ExpectedKind:  domain.KindStringLiteral,
					CorrectAnswer: `"hello"`,
					Distractors:   []string{"hello", "5"},
				},
			},
		},
	}
}
