// Copyright (C) 2025 the deskhand authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"deskhand/internal/errors"
)

// OperationRecord is the agent's account of one executed command.
type OperationRecord struct {
	ID            string   `json:"id"`
	Command       string   `json:"command"`
	OperationType string   `json:"operation_type"`
	FilesAffected []string `json:"files_affected"`
	Timestamp     int64    `json:"timestamp"`
	Status        string   `json:"status"`
	CanUndo       bool     `json:"can_undo"`
}

// Client speaks the worker agent's localhost JSON API. It carries no
// supervision logic; callers pair it with a Supervisor.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger
}

// NewClient constructs a client for the agent at baseURL. The timeout
// bounds whole requests, not individual probes; zero means no bound
// (command execution can legitimately take a while).
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		log:     logger.With().Str("component", "agent-client").Logger(),
	}
}

type executeRequest struct {
	Command   string `json:"command"`
	Timestamp int64  `json:"timestamp"`
}

// Execute forwards a command to the agent and returns its operation
// record. The caller is responsible for having validated paths and
// confirmed risk before this point; the client does no gating.
func (c *Client) Execute(ctx context.Context, command string) (*OperationRecord, error) {
	body, err := json.Marshal(executeRequest{Command: command, Timestamp: time.Now().Unix()})
	if err != nil {
		return nil, errors.Wrap(errors.CodeAgent, "failed to encode command", err)
	}

	var record OperationRecord
	if err := c.postJSON(ctx, "/execute", body, &record); err != nil {
		return nil, err
	}
	c.log.Info().Str("operation", record.OperationType).Str("id", record.ID).
		Msg("command executed")
	return &record, nil
}

// History fetches the most recent operation records, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]OperationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	endpoint := fmt.Sprintf("%s/history?limit=%d", c.baseURL, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(errors.CodeAgent, "failed to build history request", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.CodeAgent, "failed to fetch history", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New(errors.CodeAgent,
			fmt.Sprintf("agent returned %s for history", resp.Status))
	}

	var records []OperationRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, errors.Wrap(errors.CodeAgent, "failed to parse history", err)
	}
	return records, nil
}

// Undo asks the agent to revert a previously executed operation.
func (c *Client) Undo(ctx context.Context, operationID string) error {
	if operationID == "" {
		return errors.New(errors.CodeAgent, "operation id is required")
	}
	path := "/undo/" + url.PathEscape(operationID)
	if err := c.postJSON(ctx, path, nil, nil); err != nil {
		return err
	}
	c.log.Info().Str("id", operationID).Msg("operation undone")
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.CodeAgent, "failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(errors.CodeAgent, "agent request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(errors.CodeAgent, fmt.Sprintf("agent returned %s", resp.Status))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errors.CodeAgent, "failed to parse agent response", err)
	}
	return nil
}
