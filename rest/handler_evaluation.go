package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/promptflow/evaluation"
	"github.com/mohitkumar/promptflow/logger"
	"go.uber.org/zap"
)

type EvaluationRunRequest struct {
	WorkflowIds []string `json:"workflow_ids"`
}

func (s *Server) HandleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	projectId := mux.Vars(r)["projectId"]
	var req evaluation.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid evaluation: "+err.Error())
		return
	}
	defer r.Body.Close()
	ev, err := s.evaluations.CreateEvaluation(r.Context(), projectId, req)
	if err != nil {
		respondWithFailure(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, ev)
}

func (s *Server) HandleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ev, err := s.evaluations.GetEvaluation(r.Context(), vars["projectId"], vars["evaluationId"])
	if err != nil {
		respondWithFailure(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ev)
}

func (s *Server) HandleDeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.evaluations.DeleteEvaluation(r.Context(), vars["projectId"], vars["evaluationId"]); err != nil {
		respondWithFailure(w, err)
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleRunEvaluation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req EvaluationRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid run request: "+err.Error())
		return
	}
	defer r.Body.Close()

	results, err := s.evaluations.Run(r.Context(), evaluation.RunRequest{
		ProjectId:    vars["projectId"],
		EvaluationId: vars["evaluationId"],
		WorkflowIds:  req.WorkflowIds,
	})
	if err != nil {
		logger.Error("error running evaluation", zap.String("project", vars["projectId"]), zap.String("evaluation", vars["evaluationId"]), zap.Error(err))
		respondWithFailure(w, err)
		return
	}
	respondOK(w, map[string]any{"status": "success", "results": results})
}

func (s *Server) HandleSaveNotes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req evaluation.NotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid notes request: "+err.Error())
		return
	}
	defer r.Body.Close()
	req.ProjectId = vars["projectId"]
	req.EvaluationId = vars["evaluationId"]
	if err := s.evaluations.SaveNotes(r.Context(), req); err != nil {
		respondWithFailure(w, err)
		return
	}
	respondOK(w, map[string]any{"status": "success"})
}
