package registry

import (
	"encoding/json"
	"net/http"
)

// Server handles registry-related HTTP requests.
type Server struct {
	store *Store
}

// NewServer creates a new registry server.
func NewServer(store *Store) *Server {
	return &Server{
		store: store,
	}
}

// HandleListTopics returns the known topics, or one topic with ?name=.
// GET /api/topics
func (s *Server) HandleListTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if name := r.URL.Query().Get("name"); name != "" {
		t, ok := s.store.GetTopic(name)
		if !ok {
			http.Error(w, "Unknown topic", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(t)
		return
	}
	json.NewEncoder(w).Encode(s.store.ListTopics())
}
