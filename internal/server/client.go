package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/codesync/codesync/internal/stats"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Client is one live websocket connection. Its id is unique for the
// connection's lifetime and never reused; the username is set once when the
// connection joins a room.
type Client struct {
	id        string
	conn      *websocket.Conn
	relay     *RelayServer
	log       *log.Logger
	stats     stats.StatsProvider
	username  string
	userLock  sync.RWMutex
	send      chan *ServerMessage
	rooms     map[string]*Room
	roomsLock sync.RWMutex
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewClient(conn *websocket.Conn, rs *RelayServer, l *log.Logger, sp stats.StatsProvider) *Client {
	return &Client{
		id:    uuid.NewString(),
		conn:  conn,
		relay: rs,
		log:   l,
		stats: sp,
		send:  make(chan *ServerMessage, 256),
		rooms: make(map[string]*Room),
		stop:  make(chan struct{}),
	}
}

func (c *Client) SocketId() string {
	return c.id
}

func (c *Client) Username() string {
	c.userLock.RLock()
	defer c.userLock.RUnlock()
	return c.username
}

func (c *Client) setUsername(name string) {
	c.userLock.Lock()
	defer c.userLock.Unlock()
	c.username = name
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			continue
		}

		msg.client = c
		c.dispatch(&msg)
	}
}

// dispatch routes one inbound event. Events from the same connection are
// processed in the order they were sent since Read is the only caller.
func (c *Client) dispatch(msg *ClientMessage) {
	switch {
	case msg.Join != nil:
		select {
		case c.relay.joinChan <- msg:
		default:
			c.log.Printf("join channel full, dropping join for room %q", msg.Join.RoomId)
		}
	case msg.CodeChange != nil:
		c.forwardToRoom(msg.CodeChange.RoomId, msg)
	case msg.Chat != nil:
		c.forwardToRoom(msg.Chat.RoomId, msg)
	case msg.SyncCode != nil:
		select {
		case c.relay.syncChan <- msg:
		default:
			c.log.Printf("sync channel full, dropping sync-code for %q", msg.SyncCode.SocketId)
		}
	default:
		c.log.Println("received message with no known event")
	}
}

func (c *Client) forwardToRoom(roomId string, msg *ClientMessage) {
	r, ok := c.getRoom(roomId)
	if !ok {
		c.log.Printf("not a member of room %q, dropping event", roomId)
		return
	}

	select {
	case r.eventChan <- msg:
	default:
		c.log.Printf("event channel full for room %q", r.id)
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		c.stats.Incr(DroppedMessages)
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// cleanup tears down the connection: each joined room broadcasts the
// departure before the relay drops the registry entry.
func (c *Client) cleanup() {
	c.leaveAllRooms()
	c.relay.deRegisterChan <- c
	c.stopClient()
}

func (c *Client) leaveAllRooms() {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()

	for _, room := range c.rooms {
		room.leaveChan <- c
	}
}

func (c *Client) addRoom(r *Room) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()

	c.rooms[r.id] = r
}

func (c *Client) delRoom(id string) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()

	delete(c.rooms, id)
}

func (c *Client) getRoom(id string) (*Room, bool) {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()

	room, ok := c.rooms[id]
	return room, ok
}
