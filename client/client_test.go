package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vault/engine"
)

func solutionServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			UserID   string `json:"user_id"`
			Solution string `json:"solution"`
		}
		w.Header().Set("Content-Type", "application/json")

		if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.UserID == "" || request.Solution == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": "Invalid request data"})
			return
		}
		if request.Solution != "DEEPER" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": "Incorrect solution", "incorrect": true})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "first_complete": true})
	}))
}

func TestSubmitSolutionJudgedWrongAnswer(t *testing.T) {
	srv := solutionServer(t)
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.SubmitSolution(context.Background(), "E1", "user-a", "WRONG")
	if !errors.Is(err, engine.ErrIncorrectSolution) {
		t.Fatalf("judged wrong answer err = %v, want ErrIncorrectSolution", err)
	}
}

func TestSubmitSolutionRejectedRequestIsNotIncorrect(t *testing.T) {
	srv := solutionServer(t)
	defer srv.Close()

	c := New(srv.URL)
	// The server rejects this before judging anything
	_, err := c.SubmitSolution(context.Background(), "E1", "", "DEEPER")
	if errors.Is(err, engine.ErrIncorrectSolution) {
		t.Fatal("request rejection must not read as a wrong answer")
	}
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("rejected request err = %v, want ErrValidation", err)
	}
}

func TestSubmitSolutionWin(t *testing.T) {
	srv := solutionServer(t)
	defer srv.Close()

	c := New(srv.URL)
	outcome, err := c.SubmitSolution(context.Background(), "E1", "user-a", "DEEPER")
	if err != nil {
		t.Fatalf("SubmitSolution: %v", err)
	}
	if !outcome.Success || !outcome.FirstComplete {
		t.Errorf("outcome = %+v, want first complete", outcome)
	}

	// The engine-facing adapter reports the same verdict
	result, err := c.SubmitEventSolution(context.Background(), "E1", "user-a", "DEEPER")
	if err != nil {
		t.Fatalf("SubmitEventSolution: %v", err)
	}
	if !result.Success || !result.FirstComplete {
		t.Errorf("result = %+v, want first complete", result)
	}
}
