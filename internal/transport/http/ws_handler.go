package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"codium-engine/internal/app"
	"codium-engine/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler runs one battle session per websocket connection.
type WSHandler struct {
	service       *app.EngineService
	spawnInterval time.Duration
	upgrader      websocket.Upgrader
}

func NewWSHandler(service *app.EngineService, spawnInterval time.Duration) *WSHandler {
	if spawnInterval <= 0 {
		spawnInterval = time.Second
	}
	return &WSHandler{
		service:       service,
		spawnInterval: spawnInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Values []string `json:"values"`
}

type spawnPayload struct {
	Candidate string `json:"candidate"`
}

type livesPayload struct {
	PlayerLives   int    `json:"playerLives"`
	OpponentLives int    `json:"opponentLives"`
	State         string `json:"state"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// battle use cases. Message types in: answer, timeout, restart, leaderboard.
// Out: question, spawn, verdict, lives, finished, rankings, error.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	setID := r.URL.Query().Get("setId")
	playerID := r.URL.Query().Get("playerId")
	displayName := r.URL.Query().Get("name")
	if setID == "" || playerID == "" || displayName == "" {
		http.Error(w, "missing setId, playerId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	snapshot, err := h.service.Start(r.Context(), playerID, displayName, setID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := snapshot.SessionID

	updates, cancelUpdates, err := h.service.Subscribe(sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancelUpdates()
	defer h.service.Leave(sessionID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var pumps sync.WaitGroup

	// Single writer goroutine; everything else funnels through send.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	emit := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-closeSignals:
			return false
		}
	}

	pumps.Add(1)
	go func() {
		defer pumps.Done()
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if !emit(outboundMessage[any]{Type: "question", Payload: update}) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// The spawn loop ends with the run; restarts attach a fresh one. The
	// active loop's cancel is kept so a disconnect mid-run stops it too.
	var spawnCancel func()
	startSpawning := func() {
		if spawnCancel != nil {
			spawnCancel()
		}
		picks, cancel, err := h.service.StartSpawning(sessionID, h.spawnInterval)
		if err != nil {
			log.Printf("spawn start failed for %s: %v", sessionID, err)
			return
		}
		spawnCancel = cancel
		pumps.Add(1)
		go func() {
			defer pumps.Done()
			for candidate := range picks {
				if !emit(outboundMessage[any]{Type: "spawn", Payload: spawnPayload{Candidate: candidate}}) {
					return
				}
			}
		}()
	}

	send <- outboundMessage[any]{Type: "question", Payload: snapshot}
	startSpawning()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			outcome, err := h.service.Submit(r.Context(), sessionID, domain.Submission{Values: payload.Values})
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			h.emitOutcome(send, outcome)
		case "timeout":
			outcome, err := h.service.ExpireTimer(r.Context(), sessionID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			h.emitOutcome(send, outcome)
		case "restart":
			snapshot, err := h.service.Restart(sessionID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "question", Payload: snapshot}
			startSpawning()
		case "leaderboard":
			rows, err := h.service.Ranking(r.Context(), playerID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "rankings", Payload: rows}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	if spawnCancel != nil {
		spawnCancel()
	}
	pumps.Wait()
	close(send)
	<-writerDone
}

func (h *WSHandler) emitOutcome(send chan<- outboundMessage[any], outcome app.RunOutcome) {
	send <- outboundMessage[any]{Type: "verdict", Payload: outcome.Result}
	send <- outboundMessage[any]{Type: "lives", Payload: livesPayload{
		PlayerLives:   outcome.Result.PlayerLives,
		OpponentLives: outcome.Result.OpponentLives,
		State:         outcome.Result.State,
	}}
	if outcome.Result.Finished {
		send <- outboundMessage[any]{Type: "finished", Payload: outcome}
	}
}
