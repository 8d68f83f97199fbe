package database

type Store interface {
	Ping() error
	AppendMessage(roomId, username, message string) (ChatMessage, error)
	MessagesByRoom(roomId string) ([]ChatMessage, error)
	UpsertDocument(roomId, content string) error
	GetDocument(roomId string) (Document, bool, error)
}
