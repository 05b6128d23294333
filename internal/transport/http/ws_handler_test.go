package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-runner/internal/app"
	"quiz-runner/internal/clock"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/infra/memory"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "p1")
	defer conn.Close()

	if typ, _ := readUntil(t, conn, "hello"); typ != "hello" {
		t.Fatalf("expected hello, got %s", typ)
	}

	send(t, conn, "start", map[string]any{})
	_, payload := readUntil(t, conn, "question-changed")
	question := payload["question"].(map[string]any)
	if question["displayId"] != "HIS1" {
		t.Fatalf("expected HIS1 first, got %v", question["displayId"])
	}

	// options are shown in input order while shuffle is off; index 1 is correct
	send(t, conn, "answer", map[string]any{"optionIndex": 1})
	_, payload = readUntil(t, conn, "attempt-recorded")
	attempt := payload["attempt"].(map[string]any)
	if attempt["status"] != string(domain.StatusCorrect) {
		t.Fatalf("expected correct attempt, got %v", attempt["status"])
	}

	send(t, conn, "next", nil)
	_, payload = readUntil(t, conn, "question-changed")
	question = payload["question"].(map[string]any)
	if question["displayId"] != "HIS2" {
		t.Fatalf("expected HIS2 next, got %v", question["displayId"])
	}
}

func TestWebSocketUnknownCommand(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "p1")
	defer conn.Close()
	readUntil(t, conn, "hello")

	send(t, conn, "answer", map[string]any{"optionIndex": 0})
	_, payload := readUntil(t, conn, "error")
	if payload["message"] != domain.ErrSessionNotFound.Error() {
		t.Fatalf("expected session not found, got %v", payload["message"])
	}

	send(t, conn, "start", nil)
	readUntil(t, conn, "question-changed")
	send(t, conn, "dance", nil)
	_, payload = readUntil(t, conn, "error")
	if payload["command"] != "dance" {
		t.Fatalf("expected error for dance, got %v", payload)
	}
}

func TestSessionEndpoints(t *testing.T) {
	server, service := newTestServer(t)
	defer server.Close()

	res, err := http.Get(server.URL + "/api/profiles/p1/session")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	var status sessionStatus
	if err := json.NewDecoder(res.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	res.Body.Close()
	if status.Resumable || status.Live {
		t.Fatalf("expected no session, got %+v", status)
	}

	if _, err := service.Start(context.Background(), "p1", app.StartRequest{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	res, err = http.Get(server.URL + "/api/profiles/p1/session")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	status = sessionStatus{}
	_ = json.NewDecoder(res.Body).Decode(&status)
	res.Body.Close()
	if !status.Resumable || !status.Live || status.Summary == nil || status.Summary.Total != 3 {
		t.Fatalf("expected live session over 3 questions, got %+v", status)
	}

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/profiles/p1/session", nil)
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete session: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.StatusCode)
	}
	if ok, _ := service.Resumable(context.Background(), "p1"); ok {
		t.Fatalf("expected session gone after restart")
	}

	res, err = http.Get(server.URL + "/api/profiles/p1/settings")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	var settings domain.Settings
	_ = json.NewDecoder(res.Body).Decode(&settings)
	res.Body.Close()
	if !settings.Haptics || settings.Shuffle {
		t.Fatalf("expected default settings, got %+v", settings)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService) {
	t.Helper()
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleQuestions()), time.Minute)
	service := app.NewQuizService(
		memory.NewSessionStore(),
		questions,
		app.NewPersistence(memory.NewKVStore(), nil),
		domain.DefaultSessionConfig(),
		app.WithClock(clock.NewManual(time.Unix(0, 0))),
		app.WithSeed(1),
	)
	return httptest.NewServer(NewRouter(service, nil, nil)), service
}

func dial(t *testing.T, server *httptest.Server, profileID string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?profileId=" + profileID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips messages until one of type expect arrives.
func readUntil(t *testing.T, conn *websocket.Conn, expect string) (string, map[string]any) {
	t.Helper()
	for i := 0; i < 50; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", expect, err)
		}
		if msg.Type == expect {
			return msg.Type, msg.Payload
		}
	}
	t.Fatalf("no %s message within 50 reads", expect)
	return "", nil
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q3", DisplayID: "POL1", Prompt: "Fundamental duties?", Options: []string{"10", "11", "12"}, CorrectOption: "11"},
		{ID: "q2", DisplayID: "HIS2", Prompt: "Harappan port?", Options: []string{"Mohenjo-daro", "Lothal", "Kalibangan"}, CorrectOption: "Lothal"},
		{ID: "q1", DisplayID: "HIS1", Prompt: "Founder of the Maurya empire?", Options: []string{"Ashoka", "Chandragupta Maurya", "Bindusara"}, CorrectOption: "Chandragupta Maurya"},
	}
}
