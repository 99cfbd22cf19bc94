// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closedAddress returns an address nothing is listening on.
func closedAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestNewAPIClient_AddsScheme(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:5019", newAPIClient("127.0.0.1:5019").baseURL)
	assert.Equal(t, "https://chat.example.com", newAPIClient("https://chat.example.com/").baseURL)
}

func TestAPIClient_Chat(t *testing.T) {
	ts, st := startDemoServer(t)
	client := newAPIClient(ts.URL)

	resp, err := client.chat(context.Background(), "c1", "hello")
	require.NoError(t, err)
	assert.True(t, resp.DemoMode)
	assert.Contains(t, resp.Response, "demo mode")
	assert.False(t, resp.Timestamp.IsZero())
	assert.Equal(t, 2, st.Len("c1"))
}

func TestAPIClient_ChatServerErrorMessage(t *testing.T) {
	ts, _ := startDemoServer(t)

	_, err := newAPIClient(ts.URL).chat(context.Background(), "", "   ")
	require.Error(t, err)
	assert.True(t, parleyerr.HasCode(err, parleyerr.CodeCLIRequestFailure))
	assert.Contains(t, err.Error(), "server returned 400: Message is required")
}

func TestAPIClient_Clear(t *testing.T) {
	ts, st := startDemoServer(t)
	client := newAPIClient(ts.URL)

	_, err := client.chat(context.Background(), "", "hello")
	require.NoError(t, err)
	require.Equal(t, 2, st.Len("default"))

	require.NoError(t, client.clear(context.Background(), ""))
	assert.Equal(t, 0, st.Len("default"))
}

func TestAPIClient_History(t *testing.T) {
	ts, _ := startDemoServer(t)
	client := newAPIClient(ts.URL)

	_, err := client.chat(context.Background(), "work notes", "hello")
	require.NoError(t, err)

	h, err := client.history(context.Background(), "work notes")
	require.NoError(t, err)
	assert.Equal(t, "work notes", h.ConversationID)
	require.Len(t, h.Turns, 2)
	assert.Equal(t, "user", h.Turns[0].Role)
	assert.Equal(t, "hello", h.Turns[0].Content)
	assert.Equal(t, "assistant", h.Turns[1].Role)

	h, err = client.history(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "default", h.ConversationID)
	assert.Empty(t, h.Turns)
}

func TestAPIClient_Status(t *testing.T) {
	ts, _ := startDemoServer(t)

	st, err := newAPIClient(ts.URL).status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "operational", st.Status)
	assert.True(t, st.DemoMode)
	assert.Equal(t, "demo", st.Model)
}

func TestAPIClient_NotRunning(t *testing.T) {
	_, err := newAPIClient(closedAddress(t)).status(context.Background())
	require.Error(t, err)
	assert.True(t, parleyerr.HasCode(err, parleyerr.CodeCLIServerNotRunning))
	assert.Contains(t, err.Error(), "parley is not running")
}

func TestAPIClient_InvalidResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer ts.Close()

	_, err := newAPIClient(ts.URL).status(context.Background())
	require.Error(t, err)
	assert.True(t, parleyerr.HasCode(err, parleyerr.CodeCLIResponseInvalid))
}

func TestAPIClient_NonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := newAPIClient(ts.URL).status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server returned 502: bad gateway")
}

func TestChatCommand_OneShot(t *testing.T) {
	ts, st := startDemoServer(t)
	root, buf := newTestRoot(t, "chat", "--address", ts.URL, "hello", "there")

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "demo mode")

	turns := st.Turns("default")
	require.Len(t, turns, 2)
	assert.Equal(t, "hello there", turns[0].Content)
}

func TestChatCommand_Conversation(t *testing.T) {
	ts, st := startDemoServer(t)
	root, buf := newTestRoot(t, "chat", "--address", ts.URL, "--conversation", "work", "thanks")

	require.NoError(t, root.Execute())
	assert.Equal(t, "You're welcome! Happy to help. Is there anything else you'd like to know?\n", buf.String())
	assert.Equal(t, 2, st.Len("work"))
	assert.Equal(t, 0, st.Len("default"))
}

func TestChatCommand_NotRunning(t *testing.T) {
	root, _ := newTestRoot(t, "chat", "--address", closedAddress(t), "hello")

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parley is not running")
}

func TestClearCommand(t *testing.T) {
	ts, st := startDemoServer(t)
	client := newAPIClient(ts.URL)
	_, err := client.chat(context.Background(), "work", "hello")
	require.NoError(t, err)

	root, buf := newTestRoot(t, "clear", "--address", ts.URL, "-C", "work")

	require.NoError(t, root.Execute())
	assert.Equal(t, "Cleared conversation work\n", buf.String())
	assert.Equal(t, 0, st.Len("work"))
}

func TestHistoryCommand(t *testing.T) {
	ts, _ := startDemoServer(t)
	_, err := newAPIClient(ts.URL).chat(context.Background(), "work", "thanks")
	require.NoError(t, err)

	root, buf := newTestRoot(t, "history", "--address", ts.URL, "-C", "work")

	require.NoError(t, root.Execute())
	out := buf.String()
	assert.Contains(t, out, "user: thanks\n")
	assert.Contains(t, out, "assistant: You're welcome!")
}

func TestHistoryCommand_Empty(t *testing.T) {
	ts, _ := startDemoServer(t)
	root, buf := newTestRoot(t, "history", "--address", ts.URL)

	require.NoError(t, root.Execute())
	assert.Equal(t, "Conversation default is empty\n", buf.String())
}

func TestStatusCommand(t *testing.T) {
	ts, _ := startDemoServer(t)
	root, buf := newTestRoot(t, "status", "--address", ts.URL)

	require.NoError(t, root.Execute())
	out := buf.String()
	assert.Contains(t, out, ": operational")
	assert.Contains(t, out, "mode:  demo")
	assert.Contains(t, out, "model: demo")
}

func TestStatusCommand_NotRunning(t *testing.T) {
	addr := closedAddress(t)
	root, buf := newTestRoot(t, "status", "--address", addr)

	require.NoError(t, root.Execute())
	assert.Equal(t, "Parley at "+addr+" is not running (connection refused)\n", buf.String())
}

func TestServerAddress_FallsBackToConfig(t *testing.T) {
	root, _ := newTestRoot(t, "status")
	t.Setenv("PARLEY_SERVER_PORT", "6123")

	var got string
	for _, c := range root.Commands() {
		if c.Name() == "status" {
			c.RunE = func(cmd *cobra.Command, _ []string) error {
				got = serverAddress(cmd)
				return nil
			}
		}
	}

	require.NoError(t, root.Execute())
	assert.Equal(t, "127.0.0.1:6123", got)
}
