package interviewapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
)

func TestClient_RoundTrips(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/interview/start", func(w http.ResponseWriter, r *http.Request) {
		var req models.StartSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Config.Company != "Acme" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(models.StartSessionResult{
			SessionID:     "s1",
			FirstQuestion: &models.Question{ID: "q1", Text: "Hi?", TimeLimit: 120},
		})
	})
	mux.HandleFunc("/interview/s1/turn", func(w http.ResponseWriter, r *http.Request) {
		var req models.SubmitTurnRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(models.TurnResult{AIAnswer: "echo " + req.Answer, InterviewStatus: models.InterviewCompleted})
	})
	mux.HandleFunc("/interview/s1/next", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.NextQuestionResult{Completed: true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL + "/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	start, err := c.StartSession(ctx, models.InterviewConfig{Company: "Acme", Position: "Dev", Mode: models.ModeStandard})
	if err != nil || start.SessionID != "s1" || start.FirstQuestion.ID != "q1" {
		t.Fatalf("start=%+v err=%v", start, err)
	}
	turn, err := c.SubmitTurn(ctx, "s1", models.SubmitTurnRequest{Answer: "hello"})
	if err != nil || turn.AIAnswer != "echo hello" || turn.InterviewStatus != models.InterviewCompleted {
		t.Fatalf("turn=%+v err=%v", turn, err)
	}
	next, err := c.GetNextQuestion(ctx, "s1")
	if err != nil || !next.Completed {
		t.Fatalf("next=%+v err=%v", next, err)
	}
}

func TestClient_MapsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/interview/missing/next":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"NOT_FOUND","message":"interview not found"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = c.GetNextQuestion(context.Background(), "missing")
	if !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("err=%v, want NOT_FOUND", err)
	}
	_, err = c.SubmitTurn(context.Background(), "s1", models.SubmitTurnRequest{Answer: "x"})
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("err=%v, want UNAVAILABLE", err)
	}

	srv.Close()
	_, err = c.StartSession(context.Background(), models.InterviewConfig{})
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("unreachable err=%v", err)
	}
}

func TestClient_DictationURL(t *testing.T) {
	c, err := New("https://api.example.com/v1")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := c.DictationURL("abc"); got != "wss://api.example.com/v1/ws/dictation/abc" {
		t.Fatalf("url=%s", got)
	}
	if _, err := New("not a url"); !utils.IsCode(err, utils.CodeConfiguration) {
		t.Fatalf("invalid url err=%v", err)
	}
}
