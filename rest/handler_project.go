package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/model"
	"go.uber.org/zap"
)

func (s *Server) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	ids, err := s.projects.ListProjects(r.Context())
	if err != nil {
		logger.Error("error listing projects", zap.Error(err))
		respondWithFailure(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respondOK(w, map[string]any{"projects": ids})
}

func (s *Server) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["projectId"]
	project, err := s.projects.GetProject(r.Context(), id)
	if err != nil {
		respondWithFailure(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, project)
}

func (s *Server) HandlePutProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["projectId"]
	var project model.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid project document: "+err.Error())
		return
	}
	defer r.Body.Close()
	if project.Id == "" {
		project.Id = id
	}
	if project.Id != id {
		respondWithError(w, http.StatusBadRequest, "project id in body does not match path")
		return
	}
	if err := s.projects.SaveProject(r.Context(), project); err != nil {
		logger.Error("error saving project", zap.String("project", id), zap.Error(err))
		respondWithFailure(w, err)
		return
	}
	respondOK(w, map[string]any{"project_id": id})
}

func (s *Server) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["projectId"]
	if err := s.projects.DeleteProject(r.Context(), id); err != nil {
		respondWithFailure(w, err)
		return
	}
	respondOKWithoutBody(w)
}
