package rest

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) HandleListSchemas(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]any{"schemas": s.schemas.Names()})
}

func (s *Server) HandleGetSchema(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	desc, err := s.schemas.Describe(name)
	if err != nil {
		respondWithFailure(w, err)
		return
	}
	respondOK(w, map[string]any{"name": name, "description": desc})
}
