package database

import (
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockStore) AppendMessage(roomId, username, message string) (ChatMessage, error) {
	args := m.Called(roomId, username, message)
	return args.Get(0).(ChatMessage), args.Error(1)
}
func (m *MockStore) MessagesByRoom(roomId string) ([]ChatMessage, error) {
	args := m.Called(roomId)
	if msgs, ok := args.Get(0).([]ChatMessage); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStore) UpsertDocument(roomId, content string) error {
	args := m.Called(roomId, content)
	return args.Error(0)
}
func (m *MockStore) GetDocument(roomId string) (Document, bool, error) {
	args := m.Called(roomId)
	return args.Get(0).(Document), args.Bool(1), args.Error(2)
}
