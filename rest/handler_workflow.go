package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/promptflow/engine"
	"github.com/mohitkumar/promptflow/logger"
	"go.uber.org/zap"
)

type WorkflowRunRequest struct {
	Variables map[string]any `json:"variables"`
}

func (s *Server) HandleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectId, workflowId := vars["projectId"], vars["workflowId"]

	var runReq WorkflowRunRequest
	if err := json.NewDecoder(r.Body).Decode(&runReq); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid run request: "+err.Error())
		return
	}
	defer r.Body.Close()

	wf, err := s.projects.GetWorkflow(r.Context(), projectId, workflowId)
	if err != nil {
		respondWithFailure(w, err)
		return
	}
	reports, err := s.engine.Run(r.Context(), *wf, runReq.Variables)
	switch {
	case errors.Is(err, engine.ErrStepFailed):
		respondOK(w, map[string]any{"status": "failed", "outputs": reports, "error": err.Error()})
	case err != nil:
		logger.Error("error running workflow", zap.String("project", projectId), zap.String("workflow", workflowId), zap.Error(err))
		respondWithFailure(w, err)
	default:
		respondOK(w, map[string]any{"status": "success", "outputs": reports})
	}
}
