package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/review"
)

type WSHandler struct {
	service  *app.QuizService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
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
	OptionIndex int `json:"optionIndex"`
}

type jumpPayload struct {
	GroupIndex int    `json:"groupIndex"`
	QuestionID string `json:"questionId"`
}

type groupPayload struct {
	GroupIndex int    `json:"groupIndex"`
	Filter     string `json:"filter,omitempty"`
}

type bookmarkPayload struct {
	QuestionID string `json:"questionId"`
}

type settingPayload struct {
	Name string `json:"name"`
}

type movePayload struct {
	Delta int `json:"delta"`
}

type resultPayload struct {
	Command string `json:"command"`
	Value   any    `json:"value,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// session use cases of one profile. Every engine event of the profile is
// forwarded with the event type as message type.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	profileID := r.URL.Query().Get("profileId")
	if profileID == "" {
		http.Error(w, "missing profileId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Subscribe(profileID)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer goroutine; gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write error", "profile", profileID, "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(ev.Type), Payload: ev}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	resumable, err := h.service.Resumable(r.Context(), profileID)
	if err != nil {
		h.logger.Warn("resumable check failed", "profile", profileID, "error", err)
	}
	send <- outboundMessage[any]{Type: "hello", Payload: map[string]any{"profileId": profileID, "resumable": resumable}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		value, err := h.dispatch(r, profileID, inbound)
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Command: inbound.Type, Message: err.Error()}}
			continue
		}
		send <- outboundMessage[any]{Type: "result", Payload: resultPayload{Command: inbound.Type, Value: value}}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, profileID string, in inboundMessage) (any, error) {
	ctx := r.Context()
	switch in.Type {
	case "start":
		var req app.StartRequest
		if err := decode(in.Payload, &req); err != nil {
			return nil, err
		}
		engine, err := h.service.Start(ctx, profileID, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{"sessionId": engine.ID(), "groups": engine.GroupCount()}, nil
	case "resume":
		engine, err := h.service.Resume(ctx, profileID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"sessionId": engine.ID(), "groupIndex": engine.CurrentGroupIndex()}, nil
	case "bookmark":
		var p bookmarkPayload
		if err := decode(in.Payload, &p); err != nil {
			return nil, err
		}
		return h.service.ToggleBookmark(ctx, profileID, p.QuestionID)
	case "toggleSetting":
		var p settingPayload
		if err := decode(in.Payload, &p); err != nil {
			return nil, err
		}
		return h.service.ToggleSetting(ctx, profileID, p.Name)
	}

	engine, err := h.service.Session(profileID)
	if err != nil {
		return nil, err
	}
	switch in.Type {
	case "answer":
		var p answerPayload
		if err := decode(in.Payload, &p); err != nil {
			return nil, err
		}
		a, err := engine.Answer(p.OptionIndex)
		if errors.Is(err, domain.ErrAlreadyAttempted) {
			return a, nil
		}
		return a, err
	case "next":
		return engine.GoNext()
	case "previous":
		return engine.GoPrevious()
	case "jump":
		var p jumpPayload
		if err := decode(in.Payload, &p); err != nil {
			return nil, err
		}
		return nil, engine.JumpTo(p.GroupIndex, p.QuestionID)
	case "submitGroup":
		return engine.SubmitGroup()
	case "lifeline":
		return engine.UseLifeline()
	case "markReview":
		return engine.ToggleMarkForReview()
	case "toggleExpanded":
		var p groupPayload
		if err := decode(in.Payload, &p); err != nil {
			return nil, err
		}
		return engine.ToggleExpanded(p.GroupIndex)
	case "reviewFilter":
		var p groupPayload
		if err := decode(in.Payload, &p); err != nil {
			return nil, err
		}
		kind, err := review.ParseFilterKind(p.Filter)
		if err != nil {
			return nil, err
		}
		return engine.SetReviewFilter(p.GroupIndex, kind)
	case "reviewMove":
		var p movePayload
		if err := decode(in.Payload, &p); err != nil {
			return nil, err
		}
		return engine.NavigateReview(p.Delta), nil
	case "abort":
		engine.Abort()
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported message type %q", in.Type)
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
