package database

import "time"

type ChatMessage struct {
	Id        int
	RoomId    string
	Username  string
	Message   string
	CreatedAt time.Time
}

type Document struct {
	RoomId    string
	Content   string
	UpdatedAt time.Time
}
