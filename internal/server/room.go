package server

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/codesync/codesync/internal/database"
	"github.com/codesync/codesync/internal/types"
)

const idleRoomTimeout = 30 * time.Second

// Room serializes all events for one room id on a single goroutine, which
// gives broadcasts the same relative order as the inbound events that
// produced them. Rooms are created lazily on first join and unloaded once
// idle; the durable document and chat history outlive them.
type Room struct {
	id         string
	rs         *RelayServer
	joinChan   chan *ClientMessage
	leaveChan  chan *Client
	eventChan  chan *ClientMessage
	clients    map[*Client]struct{}
	clientLock sync.RWMutex
	log        *log.Logger
	// killTimer unloads the room after its last client leaves
	killTimer *time.Timer
	exit      chan struct{}
	done      chan struct{}
}

func newRoom(id string, rs *RelayServer) *Room {
	r := &Room{
		id:        id,
		rs:        rs,
		joinChan:  make(chan *ClientMessage, 256),
		leaveChan: make(chan *Client, 256),
		eventChan: make(chan *ClientMessage, 256),
		clients:   make(map[*Client]struct{}),
		log:       rs.log,
		exit:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	r.killTimer = time.NewTimer(idleRoomTimeout)
	r.killTimer.Stop()

	return r
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.id)

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case c := <-r.leaveChan:
			r.handleLeave(c)
		case msg := <-r.eventChan:
			if msg.CodeChange != nil {
				r.handleCodeChange(msg)
			} else if msg.Chat != nil {
				r.handleChat(msg)
			}
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case <-r.exit:
			r.handleRoomExit()
			return
		}
	}
}

// handleJoin registers the joiner, replays room state to it, then announces
// the new membership to everyone. The joiner receives, in order: the stored
// document (when one exists), the chat history, and the joined broadcast.
func (r *Room) handleJoin(join *ClientMessage) {
	r.killTimer.Stop()

	c := join.client
	c.setUsername(join.Join.Username)
	r.rs.registry.Register(c.id, join.Join.Username)
	r.addClient(c)

	doc, found, err := r.rs.db.GetDocument(r.id)
	if err != nil {
		r.log.Printf("room %q: join: get document: %v", r.id, err)
	} else if found {
		c.queueMessage(NewCodeChangeMessage(doc.Content))
	}

	history, err := r.rs.db.MessagesByRoom(r.id)
	if err != nil {
		r.log.Printf("room %q: join: fetch chat history: %v", r.id, err)
	} else {
		c.queueMessage(NewChatHistoryMessage(toWireMessages(history)))
	}

	r.broadcast(&ServerMessage{
		Joined: &Joined{
			Clients:  r.memberList(),
			Username: join.Join.Username,
			SocketId: c.id,
		},
	})
}

// handleCodeChange relays the edit to every other member and persists the
// snapshot on the side. The broadcast never waits on the store.
func (r *Room) handleCodeChange(msg *ClientMessage) {
	r.broadcast(&ServerMessage{
		CodeChange: &CodeChange{Code: msg.CodeChange.Code},
		SkipClient: msg.client,
	})

	code := msg.CodeChange.Code
	go func() {
		if err := r.rs.db.UpsertDocument(r.id, code); err != nil {
			r.log.Printf("room %q: code-change: upsert document: %v", r.id, err)
			r.rs.stats.Incr(PersistFailures)
		}
	}()
}

// handleChat persists first and broadcasts only on success, so every member
// sees the timestamp the store assigned. A failed persist drops the message.
func (r *Room) handleChat(msg *ClientMessage) {
	saved, err := r.rs.db.AppendMessage(r.id, msg.Chat.Username, msg.Chat.Message)
	if err != nil {
		r.log.Printf("room %q: chat-message: append: %v", r.id, err)
		r.rs.stats.Incr(PersistFailures)
		return
	}

	r.rs.stats.Incr(MessagesPersisted)
	r.broadcast(&ServerMessage{
		Chat: &ChatEvent{
			Username:  saved.Username,
			Message:   saved.Message,
			Timestamp: saved.CreatedAt,
		},
	})
}

func (r *Room) handleLeave(c *Client) {
	r.clientLock.RLock()
	_, ok := r.clients[c]
	r.clientLock.RUnlock()
	if !ok {
		r.log.Printf("client %q not found in room %q", c.id, r.id)
		return
	}

	msg := NewDisconnectedMessage(c.id, c.Username())
	msg.SkipClient = c
	r.broadcast(msg)

	r.removeClient(c)
}

func (r *Room) handleRoomTimeout() {
	r.log.Printf("room %q timed out", r.id)
	select {
	case r.rs.unloadRoomChan <- r.id:
	default:
		r.log.Printf("unload channel full, retrying room %q later", r.id)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) handleRoomExit() {
	r.log.Printf("room %q is exiting", r.id)

	r.clientLock.Lock()
	for c := range r.clients {
		c.delRoom(r.id)
		delete(r.clients, c)
	}
	r.clientLock.Unlock()

	// joins that arrived after the unload was requested go back to the
	// relay, which creates a fresh room for them
	for {
		select {
		case join := <-r.joinChan:
			select {
			case r.rs.joinChan <- join:
			default:
				r.log.Printf("join channel full, dropping join for room %q", r.id)
			}
		default:
			close(r.done)
			return
		}
	}
}

func (r *Room) addClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
	c.addRoom(r)
}

func (r *Room) removeClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	delete(r.clients, c)
	c.delRoom(r.id)

	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.id)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

// isActive reports whether the room has members or a pending join. An
// active room must not be unloaded.
func (r *Room) isActive() bool {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	return len(r.clients) > 0 || len(r.joinChan) > 0
}

func (r *Room) memberIds() []string {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	ids := make([]string, 0, len(r.clients))
	for c := range r.clients {
		ids = append(ids, c.id)
	}

	return ids
}

// memberList resolves current members against the presence registry,
// sorted by socket id so the clients list is deterministic.
func (r *Room) memberList() []types.ClientInfo {
	members := r.rs.registry.Resolve(r.memberIds())
	sort.Slice(members, func(i, j int) bool {
		return members[i].SocketId < members[j].SocketId
	})

	return members
}

func (r *Room) broadcast(msg *ServerMessage) {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	for client := range r.clients {
		if client == msg.SkipClient {
			continue
		}

		client.queueMessage(msg)
	}
}

func toWireMessages(msgs []database.ChatMessage) []types.ChatMessage {
	wire := make([]types.ChatMessage, len(msgs))
	for i, m := range msgs {
		wire[i] = types.ChatMessage{
			RoomId:    m.RoomId,
			Username:  m.Username,
			Message:   m.Message,
			Timestamp: m.CreatedAt,
		}
	}

	return wire
}
