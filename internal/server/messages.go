package server

import (
	"time"

	"github.com/codesync/codesync/internal/types"
)

// ClientMessage is the inbound event envelope. Exactly one event field is
// set per message; the JSON keys are the wire event names.
type ClientMessage struct {
	Join       *JoinRequest `json:"join,omitempty"`
	CodeChange *CodeChange  `json:"code-change,omitempty"`
	SyncCode   *SyncCode    `json:"sync-code,omitempty"`
	Chat       *ChatSend    `json:"chat-message,omitempty"`
	client     *Client      `json:"-"`
}

type JoinRequest struct {
	RoomId   string `json:"roomId"`
	Username string `json:"username"`
}

type CodeChange struct {
	RoomId string `json:"roomId,omitempty"`
	Code   string `json:"code"`
}

type SyncCode struct {
	SocketId string `json:"socketId"`
	Code     string `json:"code"`
}

type ChatSend struct {
	RoomId   string `json:"roomId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ChatHistory is the ordered chat replay sent to a joining connection.
type ChatHistory []types.ChatMessage

// ServerMessage is the outbound event envelope.
type ServerMessage struct {
	Joined       *Joined       `json:"joined,omitempty"`
	CodeChange   *CodeChange   `json:"code-change,omitempty"`
	ChatHistory  *ChatHistory  `json:"chat-history,omitempty"`
	Chat         *ChatEvent    `json:"chat-message,omitempty"`
	Disconnected *Disconnected `json:"disconnected,omitempty"`
	// SkipClient is excluded from room broadcasts of this message.
	SkipClient *Client `json:"-"`
}

type Joined struct {
	Clients  []types.ClientInfo `json:"clients"`
	Username string             `json:"username"`
	SocketId string             `json:"socketId"`
}

type ChatEvent struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Disconnected struct {
	SocketId string `json:"socketId"`
	Username string `json:"username"`
}

func NewCodeChangeMessage(code string) *ServerMessage {
	return &ServerMessage{
		CodeChange: &CodeChange{Code: code},
	}
}

func NewChatHistoryMessage(msgs []types.ChatMessage) *ServerMessage {
	history := ChatHistory(msgs)
	if history == nil {
		history = ChatHistory{}
	}

	return &ServerMessage{ChatHistory: &history}
}

func NewDisconnectedMessage(socketId, username string) *ServerMessage {
	return &ServerMessage{
		Disconnected: &Disconnected{
			SocketId: socketId,
			Username: username,
		},
	}
}
