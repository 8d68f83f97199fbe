package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/codesync/codesync/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestServerMessageWireFormat(t *testing.T) {
	t.Run("joined", func(t *testing.T) {
		msg := &ServerMessage{
			Joined: &Joined{
				Clients: []types.ClientInfo{
					{SocketId: "sock-1", Username: "alice"},
				},
				Username: "alice",
				SocketId: "sock-1",
			},
		}

		bytes, err := json.Marshal(msg)
		assert.NoError(t, err, "expected no error during serialization")
		assert.JSONEq(t,
			`{"joined":{"clients":[{"socketId":"sock-1","username":"alice"}],"username":"alice","socketId":"sock-1"}}`,
			string(bytes), "expected joined event wire format")
	})

	t.Run("code-change", func(t *testing.T) {
		bytes, err := json.Marshal(NewCodeChangeMessage("x=1"))
		assert.NoError(t, err, "expected no error during serialization")
		assert.JSONEq(t, `{"code-change":{"code":"x=1"}}`, string(bytes),
			"expected code-change event wire format")
	})

	t.Run("empty chat history is an empty array", func(t *testing.T) {
		bytes, err := json.Marshal(NewChatHistoryMessage(nil))
		assert.NoError(t, err, "expected no error during serialization")
		assert.JSONEq(t, `{"chat-history":[]}`, string(bytes),
			"expected an explicit empty array for an empty history")
	})

	t.Run("chat-message", func(t *testing.T) {
		ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		msg := &ServerMessage{
			Chat: &ChatEvent{
				Username:  "alice",
				Message:   "hello",
				Timestamp: ts,
			},
		}

		bytes, err := json.Marshal(msg)
		assert.NoError(t, err, "expected no error during serialization")
		assert.JSONEq(t,
			`{"chat-message":{"username":"alice","message":"hello","timestamp":"2025-06-01T12:00:00Z"}}`,
			string(bytes), "expected chat-message event wire format")
	})

	t.Run("disconnected", func(t *testing.T) {
		bytes, err := json.Marshal(NewDisconnectedMessage("sock-1", "alice"))
		assert.NoError(t, err, "expected no error during serialization")
		assert.JSONEq(t, `{"disconnected":{"socketId":"sock-1","username":"alice"}}`,
			string(bytes), "expected disconnected event wire format")
	})
}

func TestClientMessageUnmarshal(t *testing.T) {
	tcases := []struct {
		name  string
		raw   string
		check func(t *testing.T, msg ClientMessage)
	}{
		{
			name: "join",
			raw:  `{"join":{"roomId":"r1","username":"alice"}}`,
			check: func(t *testing.T, msg ClientMessage) {
				assert.NotNil(t, msg.Join, "expected join event to be set")
				assert.Equal(t, "r1", msg.Join.RoomId)
				assert.Equal(t, "alice", msg.Join.Username)
			},
		},
		{
			name: "code-change",
			raw:  `{"code-change":{"roomId":"r1","code":"x=1"}}`,
			check: func(t *testing.T, msg ClientMessage) {
				assert.NotNil(t, msg.CodeChange, "expected code-change event to be set")
				assert.Equal(t, "r1", msg.CodeChange.RoomId)
				assert.Equal(t, "x=1", msg.CodeChange.Code)
			},
		},
		{
			name: "sync-code",
			raw:  `{"sync-code":{"socketId":"sock-2","code":"x=1"}}`,
			check: func(t *testing.T, msg ClientMessage) {
				assert.NotNil(t, msg.SyncCode, "expected sync-code event to be set")
				assert.Equal(t, "sock-2", msg.SyncCode.SocketId)
				assert.Equal(t, "x=1", msg.SyncCode.Code)
			},
		},
		{
			name: "chat-message",
			raw:  `{"chat-message":{"roomId":"r1","username":"alice","message":"hello"}}`,
			check: func(t *testing.T, msg ClientMessage) {
				assert.NotNil(t, msg.Chat, "expected chat-message event to be set")
				assert.Equal(t, "r1", msg.Chat.RoomId)
				assert.Equal(t, "alice", msg.Chat.Username)
				assert.Equal(t, "hello", msg.Chat.Message)
			},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			var msg ClientMessage
			err := json.Unmarshal([]byte(tc.raw), &msg)
			assert.NoError(t, err, "expected no error during unmarshal")
			tc.check(t, msg)
		})
	}
}
