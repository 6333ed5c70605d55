package http

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/randyrektor/obs-gameshow-overlay/internal/app"
	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

// WSHandler wires websocket connections into the game service. Both the
// admin panel and contestant views speak the same action protocol; every
// accepted action is answered by a full-state broadcast to all connections.
type WSHandler struct {
	game     *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(game *app.GameService) *WSHandler {
	return &WSHandler{
		game: game,
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type actionPayload struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Score           int    `json:"score"`
	Answer          string `json:"answer"`
	Seconds         int    `json:"seconds"`
	ClientTimestamp int64  `json:"clientTimestamp"`
}

type reorderPayload struct {
	IDs []string `json:"ids"`
}

type gameTypePayload struct {
	GameType domain.GameType `json:"gameType"`
}

type questionsPayload struct {
	Questions []domain.Question `json:"questions"`
	Index     int               `json:"index"`
}

// ServeWS upgrades the request and runs the action/broadcast loop until the
// peer goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// The transport key ties this socket to whatever contestant later binds
	// presence through it, so disconnects clear the right contestant.
	connKey := fmt.Sprintf("%p", conn)
	defer h.game.Disconnect(connKey)

	if id := r.URL.Query().Get("contestantId"); id != "" {
		if err := h.game.Connect(id, connKey); err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		}
	}

	updates, cancel := h.game.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.dispatch(connKey, inbound); ok {
			send <- msg
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch applies one inbound action. It returns a direct reply when there
// is one; state updates flow through the broadcast subscription instead.
func (h *WSHandler) dispatch(connKey string, inbound inboundMessage) (outboundMessage[any], bool) {
	fail := func(err error) (outboundMessage[any], bool) {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}, true
	}

	switch inbound.Type {
	case "addContestant":
		var p actionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		created, err := h.game.AddContestant(p.Name)
		if err != nil {
			return fail(err)
		}
		return outboundMessage[any]{Type: "contestantAdded", Payload: created}, true

	case "removeContestant":
		var p actionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		if err := h.game.RemoveContestant(p.ID); err != nil {
			return fail(err)
		}

	case "reorderContestants":
		var p reorderPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		if err := h.game.ReorderContestants(p.IDs); err != nil {
			return fail(err)
		}

	case "updateScore":
		var p actionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		if err := h.game.UpdateScore(p.ID, p.Score); err != nil {
			return fail(err)
		}

	case "resetBuzzers":
		h.game.ResetBuzzers()

	case "resetScores":
		h.game.ResetScores()

	case "setGameType":
		var p gameTypePayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		if err := h.game.SetGameType(p.GameType); err != nil {
			return fail(err)
		}

	case "setGameConfig":
		var cfg domain.GameConfig
		if err := json.Unmarshal(inbound.Payload, &cfg); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		h.game.SetGameConfig(cfg)

	case "setQuestions":
		var p questionsPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		h.game.SetQuestions(p.Questions)

	case "setCurrentQuestion":
		var p questionsPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		if err := h.game.SetCurrentQuestion(p.Index); err != nil {
			return fail(err)
		}

	case "setCorrectAnswer":
		var p actionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		h.game.SetCorrectAnswer(p.Answer)

	case "revealAnswers":
		h.game.RevealAnswers()

	case "buzz":
		var p actionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		h.game.Buzz(p.ID, p.ClientTimestamp)

	case "submitAnswer":
		var p actionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		h.game.SubmitAnswer(p.ID, p.Answer)

	case "startTimer":
		var p actionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		h.game.StartTimer(p.Seconds)

	case "stopTimer":
		h.game.StopTimer()

	case "resumeTimer":
		h.game.ResumeTimer()

	case "setTimerDuration":
		var p actionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		h.game.SetTimerDuration(p.Seconds)

	case "connect":
		var p actionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return fail(fmt.Errorf("invalid payload: %w", err))
		}
		if err := h.game.Connect(p.ID, connKey); err != nil {
			return fail(err)
		}

	default:
		return fail(fmt.Errorf("unsupported message type %q", inbound.Type))
	}
	return outboundMessage[any]{}, false
}
