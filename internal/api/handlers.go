package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/codesync/codesync/internal/server"
	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

type NewRoomResponse struct {
	RoomId string `json:"roomId"`
}

func (s *CodeSyncApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *CodeSyncApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Printf("health check: %v", err)
		s.writeJson(w, http.StatusInternalServerError, HealthResponse{
			Status:  "fail",
			Storage: "disconnected",
		})
		return
	}

	s.writeJson(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Storage: "connected",
	})
}

// newRoomId mints a fresh room id for clients that don't generate their
// own. Rooms still come into existence only when someone joins them.
func (s *CodeSyncApp) newRoomId(w http.ResponseWriter, r *http.Request) {
	id, err := shortid.Generate()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, NewRoomResponse{RoomId: id})
}

func (s *CodeSyncApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, "*") ||
				slices.Contains(s.allowedOrigins, origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(conn, s.rs, s.log, s.stats)

	s.rs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
