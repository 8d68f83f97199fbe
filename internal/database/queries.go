package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	appendMessageQuery = "INSERT INTO chat_messages (room_id, username, message, created_at) " +
		"VALUES ($1, $2, $3, $4) RETURNING id"
	messagesByRoomQuery = "SELECT id, room_id, username, message, created_at FROM chat_messages " +
		"WHERE room_id = $1 ORDER BY created_at ASC, id ASC"
	upsertDocumentQuery = "INSERT INTO documents (room_id, content, updated_at) VALUES ($1, $2, $3) " +
		"ON CONFLICT (room_id) DO UPDATE SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at"
	getDocumentQuery = "SELECT room_id, content, updated_at FROM documents WHERE room_id = $1 LIMIT 1"
)

// AppendMessage persists a chat message, assigning its timestamp at
// persistence time.
func (s *PgStore) AppendMessage(roomId, username, message string) (ChatMessage, error) {
	msg := ChatMessage{
		RoomId:    roomId,
		Username:  username,
		Message:   message,
		CreatedAt: time.Now().UTC().Round(time.Millisecond),
	}

	res := s.conn.QueryRow(
		appendMessageQuery,
		msg.RoomId,
		msg.Username,
		msg.Message,
		msg.CreatedAt,
	)

	if err := res.Scan(&msg.Id); err != nil {
		return ChatMessage{}, err
	}

	return msg, nil
}

// MessagesByRoom returns the room's chat history ascending by timestamp.
// An unknown room yields an empty slice, not an error.
func (s *PgStore) MessagesByRoom(roomId string) ([]ChatMessage, error) {
	rows, err := s.conn.Query(messagesByRoomQuery, roomId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]ChatMessage, 0)
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.Id, &msg.RoomId, &msg.Username, &msg.Message, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}

// UpsertDocument stores the room's latest document content, last writer wins.
func (s *PgStore) UpsertDocument(roomId, content string) error {
	_, err := s.conn.Exec(
		upsertDocumentQuery,
		roomId,
		content,
		time.Now().UTC(),
	)

	return err
}

// GetDocument returns the room's last persisted document snapshot. A room
// with no snapshot reports found=false with a nil error.
func (s *PgStore) GetDocument(roomId string) (Document, bool, error) {
	row := s.conn.QueryRow(getDocumentQuery, roomId)

	var doc Document
	err := row.Scan(&doc.RoomId, &doc.Content, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, err
	}

	return doc, true, nil
}
