// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultHTTPClient is shared by every client command. A turn may wait on
// the provider's full timeout, so this is generous.
var defaultHTTPClient = &http.Client{
	Timeout: 90 * time.Second,
}

type chatResponse struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
	DemoMode  bool      `json:"demo_mode"`
}

type historyResponse struct {
	ConversationID string `json:"conversation_id"`
	Turns          []struct {
		Role      string    `json:"role"`
		Content   string    `json:"content"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"turns"`
}

type statusResponse struct {
	Status   string `json:"status"`
	DemoMode bool   `json:"demo_mode"`
	Model    string `json:"model"`
}

// apiClient talks to a running parley server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(addr string) *apiClient {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &apiClient{
		baseURL: strings.TrimRight(base, "/"),
		http:    defaultHTTPClient,
	}
}

func (c *apiClient) chat(ctx context.Context, conversationID, message string) (*chatResponse, error) {
	var out chatResponse
	body := map[string]string{"message": message}
	if conversationID != "" {
		body["conversation_id"] = conversationID
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) clear(ctx context.Context, conversationID string) error {
	body := map[string]string{}
	if conversationID != "" {
		body["conversation_id"] = conversationID
	}
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/clear", body, &out); err != nil {
		return err
	}
	if !out.Success {
		return parleyerr.New(parleyerr.CodeCLIResponseInvalid, "server did not confirm the clear")
	}
	return nil
}

func (c *apiClient) history(ctx context.Context, conversationID string) (*historyResponse, error) {
	path := "/api/history"
	if conversationID != "" {
		path += "?" + url.Values{"conversation_id": {conversationID}}.Encode()
	}
	var out historyResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) status(ctx context.Context) (*statusResponse, error) {
	var out statusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends body as JSON (when non-nil) and decodes a 200 response into
// dest. Error responses surface the server's {"error": ...} message.
func (c *apiClient) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return parleyerr.Wrap(err, parleyerr.CodeCLIRequestFailure, "encoding request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return parleyerr.Wrap(err, parleyerr.CodeCLIRequestFailure, "building request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isDialError(err) {
			return parleyerr.Errorf(parleyerr.CodeCLIServerNotRunning, "parley is not running at %s", c.baseURL)
		}
		return parleyerr.Wrap(err, parleyerr.CodeCLIRequestFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return parleyerr.Errorf(parleyerr.CodeCLIRequestFailure, "server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return parleyerr.Errorf(parleyerr.CodeCLIRequestFailure, "server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return parleyerr.Wrap(err, parleyerr.CodeCLIResponseInvalid, "invalid response")
	}
	return nil
}

// isDialError reports whether err is a failure to connect.
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("address", "", "server address (host:port or URL); defaults to server.host:server.port")
}

// serverAddress returns --address, falling back to the configured listen
// address.
func serverAddress(cmd *cobra.Command) string {
	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		return addr
	}
	return net.JoinHostPort(viper.GetString("server.host"), strconv.Itoa(viper.GetInt("server.port")))
}
