// Package client implements the engine's registry and feed contracts over
// the Vault HTTP API, for device clients running outside the server
// process (gallery kiosks, installers, scripted investigators).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"vault/engine"
	"vault/models"
)

// ErrRemoteUnsupported marks registry operations the server performs on
// the client's behalf. The event solution never leaves the server, so the
// completion CAS cannot be driven remotely; use Client.SubmitSolution.
var ErrRemoteUnsupported = errors.New("operation is performed server-side; use Client.SubmitSolution")

// Client is an engine.Registry over the HTTP API. Requests carry an
// explicit timeout so a dead network surfaces a NetworkError instead of an
// indefinite spinner.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API at baseURL (e.g. "https://vault.example/api/v1")
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type eventResponse struct {
	Event *models.GlobalEvent `json:"event"`
}

// apiError is the server's error envelope. Incorrect marks a judged wrong
// answer, separating it from request-validation rejections.
type apiError struct {
	Error     string `json:"error"`
	Incorrect bool   `json:"incorrect"`
}

type unlockResponse struct {
	Success         bool                 `json:"success"`
	AlreadyUnlocked bool                 `json:"already_unlocked"`
	Record          *models.UnlockRecord `json:"record"`
}

// SolutionOutcome is the server's verdict on a solution submission
type SolutionOutcome struct {
	Success          bool                `json:"success"`
	FirstComplete    bool                `json:"first_complete"`
	AlreadyCompleted bool                `json:"already_completed"`
	Event            *models.GlobalEvent `json:"event"`
}

func (c *Client) GetActiveEvent(ctx context.Context) (*models.GlobalEvent, error) {
	var resp eventResponse
	status, _, err := c.doJSON(ctx, http.MethodGet, "/events/active", nil, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching active event", status)
	}
	return resp.Event, nil
}

func (c *Client) GetEvent(ctx context.Context, eventID string) (*models.GlobalEvent, error) {
	var resp eventResponse
	status, _, err := c.doJSON(ctx, http.MethodGet, "/events/"+eventID, nil, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("event %s: %w", eventID, engine.ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching event", status)
	}
	return resp.Event, nil
}

func (c *Client) InsertUnlockRecord(ctx context.Context, contentID, deviceID, method string) (*models.UnlockRecord, error) {
	body := map[string]string{"content_id": contentID, "device_id": deviceID, "method": method}

	var resp unlockResponse
	status, _, err := c.doJSON(ctx, http.MethodPost, "/unlocks/", body, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d requesting unlock", status)
	}
	if resp.AlreadyUnlocked {
		return nil, fmt.Errorf("unlock for %s: %w", contentID, engine.ErrDuplicate)
	}
	return resp.Record, nil
}

func (c *Client) GetUnlockRecord(ctx context.Context, contentID string) (*models.UnlockRecord, error) {
	var record models.UnlockRecord
	status, _, err := c.doJSON(ctx, http.MethodGet, "/unlocks/"+contentID, nil, &record)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("unlock for %s: %w", contentID, engine.ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching unlock", status)
	}
	return &record, nil
}

func (c *Client) GetUnlockedContentIDs(ctx context.Context) ([]string, error) {
	var records []models.UnlockRecord
	status, _, err := c.doJSON(ctx, http.MethodGet, "/unlocks/", nil, &records)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching unlocks", status)
	}

	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ContentID)
	}
	return ids, nil
}

func (c *Client) UpdateEventIfNotCompleted(ctx context.Context, eventID, completedBy string) (*models.GlobalEvent, error) {
	return nil, ErrRemoteUnsupported
}

func (c *Client) InsertEventCompletion(ctx context.Context, eventID, userID string, timeTakenSeconds int64) error {
	return ErrRemoteUnsupported
}

// SubmitSolution submits the shared event solution. The server performs
// the comparison and the completion CAS; the outcome is translated to the
// engine's error taxonomy. Only a judged wrong answer maps to
// ErrIncorrectSolution; a request the server rejected without judging it
// comes back as ErrValidation.
func (c *Client) SubmitSolution(ctx context.Context, eventID, userID, solution string) (*SolutionOutcome, error) {
	body := map[string]string{"user_id": userID, "solution": solution}

	var outcome SolutionOutcome
	status, apiErr, err := c.doJSON(ctx, http.MethodPost, "/events/"+eventID+"/solution", body, &outcome)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("event %s: %w", eventID, engine.ErrNotFound)
	case status == http.StatusBadRequest && apiErr != nil && apiErr.Incorrect:
		return nil, engine.ErrIncorrectSolution
	case status == http.StatusBadRequest:
		message := "request rejected"
		if apiErr != nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return nil, fmt.Errorf("%w: %s", engine.ErrValidation, message)
	case status != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d submitting solution", status)
	case outcome.AlreadyCompleted:
		return &outcome, engine.ErrAlreadyCompleted
	}
	return &outcome, nil
}

// SubmitEventSolution implements engine.SolutionSubmitter: events fetched
// through this registry come back redacted, so the engine delegates the
// judgment here instead of comparing locally.
func (c *Client) SubmitEventSolution(ctx context.Context, eventID, userID, solution string) (engine.SolutionResult, error) {
	outcome, err := c.SubmitSolution(ctx, eventID, userID, solution)
	if err != nil {
		return engine.SolutionResult{}, err
	}
	return engine.SolutionResult{Success: outcome.Success, FirstComplete: outcome.FirstComplete}, nil
}

// doJSON runs one API request. Transport failures and timeouts come back
// as engine.NetworkError; HTTP-level failures are returned as the status
// code plus the decoded error envelope for the caller to interpret.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) (int, *apiError, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &engine.NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope apiError
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return resp.StatusCode, nil, nil
		}
		return resp.StatusCode, &envelope, nil
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil, nil
}
