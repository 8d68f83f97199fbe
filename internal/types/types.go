package types

import (
	"time"
)

// ClientInfo identifies one live connection in a room.
type ClientInfo struct {
	SocketId string `json:"socketId"`
	Username string `json:"username"`
}

type ChatMessage struct {
	RoomId    string    `json:"roomId"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
