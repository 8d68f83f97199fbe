package server

import (
	"context"
	"log"
	"sync"

	"github.com/codesync/codesync/internal/database"
	"github.com/codesync/codesync/internal/stats"
	"github.com/codesync/codesync/internal/types"
)

// Metric names registered with the stats provider.
const (
	ActiveConnections = "ActiveConnections"
	ActiveRooms       = "ActiveRooms"
	MessagesPersisted = "MessagesPersisted"
	PersistFailures   = "PersistFailures"
	DroppedMessages   = "DroppedMessages"
)

// RelayServer owns the presence registry, the live connection index, and
// the set of active rooms. Join and sync-code events are handled here;
// everything else is routed to the target room's goroutine.
type RelayServer struct {
	log            *log.Logger
	db             database.Store
	stats          stats.StatsProvider
	registry       *PresenceRegistry
	clients        map[string]*Client
	clientsLock    sync.RWMutex
	rooms          map[string]*Room
	roomsLock      sync.RWMutex
	joinChan       chan *ClientMessage
	syncChan       chan *ClientMessage
	registerChan   chan *Client
	deRegisterChan chan *Client
	unloadRoomChan chan string
	stop           chan struct{}
	done           chan struct{}
}

func NewRelayServer(logger *log.Logger, db database.Store, sp stats.StatsProvider) (*RelayServer, error) {
	rs := &RelayServer{
		log:            logger,
		db:             db,
		stats:          sp,
		registry:       NewPresenceRegistry(),
		clients:        make(map[string]*Client),
		rooms:          make(map[string]*Room),
		joinChan:       make(chan *ClientMessage, 256),
		syncChan:       make(chan *ClientMessage, 256),
		registerChan:   make(chan *Client, 256),
		deRegisterChan: make(chan *Client, 256),
		unloadRoomChan: make(chan string, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	for _, name := range []string{ActiveConnections, ActiveRooms, MessagesPersisted, PersistFailures, DroppedMessages} {
		sp.RegisterMetric(name)
	}

	return rs, nil
}

func (rs *RelayServer) Run() {
	for {
		select {
		case joinMsg := <-rs.joinChan:
			rs.handleJoin(joinMsg)
		case syncMsg := <-rs.syncChan:
			rs.handleSyncCode(syncMsg)
		case client := <-rs.registerChan:
			rs.addClient(client)
			rs.stats.Incr(ActiveConnections)
		case client := <-rs.deRegisterChan:
			rs.removeClient(client)
			rs.stats.Decr(ActiveConnections)
		case id := <-rs.unloadRoomChan:
			rs.unloadRoom(id)
		case <-rs.stop:
			rs.log.Println("shutting down rooms")
			rs.roomsLock.Lock()
			for id, r := range rs.rooms {
				close(r.exit)
				<-r.done
				delete(rs.rooms, id)
			}
			rs.roomsLock.Unlock()

			close(rs.done)
			return
		}
	}
}

// handleJoin routes a join to its room, creating the room on first use.
// Rooms have no explicit creation step.
func (rs *RelayServer) handleJoin(joinMsg *ClientMessage) {
	roomId := joinMsg.Join.RoomId

	rs.roomsLock.Lock()
	room, ok := rs.rooms[roomId]
	if !ok {
		room = newRoom(roomId, rs)
		rs.rooms[roomId] = room
		go room.start()
		rs.stats.Incr(ActiveRooms)
	}
	rs.roomsLock.Unlock()

	select {
	case room.joinChan <- joinMsg:
	default:
		rs.log.Printf("join channel full on room %q", roomId)
	}
}

// handleSyncCode unicasts a code-change to the named connection. No
// broadcast, no persistence; a missing target is logged and dropped.
func (rs *RelayServer) handleSyncCode(msg *ClientMessage) {
	target, ok := rs.getClient(msg.SyncCode.SocketId)
	if !ok {
		rs.log.Printf("sync-code: no connection %q", msg.SyncCode.SocketId)
		return
	}

	target.queueMessage(NewCodeChangeMessage(msg.SyncCode.Code))
}

// MembersOf reports the connections currently joined to a room, resolved
// against the presence registry.
func (rs *RelayServer) MembersOf(roomId string) []types.ClientInfo {
	rs.roomsLock.RLock()
	room, ok := rs.rooms[roomId]
	rs.roomsLock.RUnlock()
	if !ok {
		return []types.ClientInfo{}
	}

	return room.memberList()
}

func (rs *RelayServer) RegisterClient(c *Client) {
	rs.registerChan <- c
}

func (rs *RelayServer) addClient(c *Client) {
	rs.clientsLock.Lock()
	defer rs.clientsLock.Unlock()
	rs.clients[c.id] = c
}

func (rs *RelayServer) removeClient(c *Client) {
	rs.clientsLock.Lock()
	delete(rs.clients, c.id)
	rs.clientsLock.Unlock()

	rs.registry.Unregister(c.id)
}

func (rs *RelayServer) getClient(id string) (*Client, bool) {
	rs.clientsLock.RLock()
	defer rs.clientsLock.RUnlock()
	c, ok := rs.clients[id]
	return c, ok
}

func (rs *RelayServer) unloadRoom(id string) {
	rs.roomsLock.Lock()
	room, ok := rs.rooms[id]
	if ok && room.isActive() {
		// a join raced the idle timeout; the room stays
		rs.log.Printf("room %q became active again, skipping unload", id)
		ok = false
	}
	if ok {
		delete(rs.rooms, id)
	}
	rs.roomsLock.Unlock()

	if !ok {
		return
	}

	rs.log.Printf("removing room %q", id)
	close(room.exit)
	<-room.done
	rs.stats.Decr(ActiveRooms)
}

func (rs *RelayServer) Shutdown(ctx context.Context) error {
	rs.log.Println("received shutdown signal")

	rs.clientsLock.RLock()
	for _, c := range rs.clients {
		c.stopClient()
	}
	rs.clientsLock.RUnlock()

	close(rs.stop)

	select {
	case <-rs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
