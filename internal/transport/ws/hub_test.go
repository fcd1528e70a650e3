package ws

import (
	"cfstudy/internal/model"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, conn *Connection) Message {
	t.Helper()
	select {
	case data := <-conn.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestHub_BroadcastToUserReachesEveryTab(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	tab1 := NewConnection("u1")
	tab2 := NewConnection("u1")
	other := NewConnection("u2")
	hub.Register(tab1)
	hub.Register(tab2)
	hub.Register(other)
	require.Eventually(t, func() bool { return hub.ConnectionCount("u1") == 2 }, time.Second, 5*time.Millisecond)

	hub.BroadcastToUser("u1", "counterfactual_updated", map[string]int64{"revision": 3})

	for _, c := range []*Connection{tab1, tab2} {
		msg := receive(t, c)
		assert.Equal(t, MessageType("counterfactual_updated"), msg.Type)
		assert.JSONEq(t, `{"revision":3}`, string(msg.Payload))
	}
	select {
	case <-other.Send:
		t.Fatal("message leaked to another participant")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	conn := NewConnection("u1")
	hub.Register(conn)
	hub.Unregister(conn)

	require.Eventually(t, func() bool { return hub.ConnectionCount("u1") == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-conn.Send
	assert.False(t, ok, "send queue closed")
}

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*model.ParticipantClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &model.ParticipantClaims{UserID: "u1"}, nil
}

func TestHandler_ParticipantWS(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(NewHandler(hub, stubValidator{}).ParticipantWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	client, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=good", nil)
	require.NoError(t, err)
	defer client.Close()
	require.Eventually(t, func() bool { return hub.ConnectionCount("u1") == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastToUser("u1", "generation_failed", map[string]string{"recordingId": "r1"})

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, MessageType("generation_failed"), msg.Type)
}
