package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/promptflow/evaluation"
	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/metadata"
	"github.com/mohitkumar/promptflow/persistence"
	"github.com/mohitkumar/promptflow/schema"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port        int
	projects    metadata.ProjectService
	schemas     *schema.Registry
	engine      evaluation.WorkflowRunner
	evaluations *evaluation.Runner
}

func NewServer(httpPort int, projects metadata.ProjectService, schemas *schema.Registry, engine evaluation.WorkflowRunner, evaluations *evaluation.Runner) (*Server, error) {

	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		projects:    projects,
		schemas:     schemas,
		engine:      engine,
		evaluations: evaluations,
		Port:        httpPort,
	}

	router := mux.NewRouter()
	router.HandleFunc("/projects", s.HandleListProjects).Methods(http.MethodGet)
	router.HandleFunc("/projects/{projectId}", s.HandleGetProject).Methods(http.MethodGet)
	router.HandleFunc("/projects/{projectId}", s.HandlePutProject).Methods(http.MethodPut)
	router.HandleFunc("/projects/{projectId}", s.HandleDeleteProject).Methods(http.MethodDelete)

	router.HandleFunc("/projects/{projectId}/workflows/{workflowId}/run", s.HandleRunWorkflow).Methods(http.MethodPost)

	router.HandleFunc("/schemas", s.HandleListSchemas).Methods(http.MethodGet)
	router.HandleFunc("/schemas/{name}", s.HandleGetSchema).Methods(http.MethodGet)

	router.HandleFunc("/projects/{projectId}/evaluations", s.HandleCreateEvaluation).Methods(http.MethodPost)
	router.HandleFunc("/projects/{projectId}/evaluations/{evaluationId}", s.HandleGetEvaluation).Methods(http.MethodGet)
	router.HandleFunc("/projects/{projectId}/evaluations/{evaluationId}", s.HandleDeleteEvaluation).Methods(http.MethodDelete)
	router.HandleFunc("/projects/{projectId}/evaluations/{evaluationId}/run", s.HandleRunEvaluation).Methods(http.MethodPost)
	router.HandleFunc("/projects/{projectId}/evaluations/{evaluationId}/notes", s.HandleSaveNotes).Methods(http.MethodPost)

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI, zap.String("method", r.Method))
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondOKWithoutBody(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithFailure maps domain errors onto status codes.
func respondWithFailure(w http.ResponseWriter, err error) {
	var invalid *metadata.InvalidProjectError
	switch {
	case errors.Is(err, persistence.ErrProjectNotFound),
		errors.Is(err, metadata.ErrWorkflowNotFound),
		errors.Is(err, evaluation.ErrEvaluationNotFound),
		errors.Is(err, evaluation.ErrWorkflowNotFound),
		errors.Is(err, evaluation.ErrRunNotFound),
		errors.Is(err, schema.ErrUnknownSchema):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalid),
		errors.Is(err, evaluation.ErrNoWorkflows),
		errors.Is(err, evaluation.ErrNoVariableSets),
		errors.Is(err, evaluation.ErrInvalidVariableSets),
		errors.Is(err, evaluation.ErrDuplicateVariableSet):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
