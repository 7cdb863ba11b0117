package rpc

import (
	"net/http"

	"connectrpc.com/connect"
)

// Fully-qualified service names.
const (
	LearningServiceName = "codelens.v1.LearningService"
	ProjectServiceName  = "codelens.v1.ProjectService"
	AssistServiceName   = "codelens.v1.AssistService"
	ArchiveServiceName  = "codelens.v1.ArchiveService"
)

// Procedure paths.
const (
	LearningServiceTriggerLearningProcedure = "/" + LearningServiceName + "/TriggerLearning"
	LearningServiceGetStatusProcedure       = "/" + LearningServiceName + "/GetStatus"
	LearningServiceWatchStatusProcedure     = "/" + LearningServiceName + "/WatchStatus"
	ProjectServiceGetStateProcedure         = "/" + ProjectServiceName + "/GetState"
	ProjectServiceGetFileTreeProcedure      = "/" + ProjectServiceName + "/GetFileTree"
	ProjectServiceReadFileProcedure         = "/" + ProjectServiceName + "/ReadFile"
	AssistServiceChatProcedure              = "/" + AssistServiceName + "/Chat"
	AssistServiceTransformProcedure         = "/" + AssistServiceName + "/Transform"
	ArchiveServiceListRunArtifactsProcedure = "/" + ArchiveServiceName + "/ListRunArtifacts"
	ArchiveServiceGetRunAnalysisProcedure   = "/" + ArchiveServiceName + "/GetRunAnalysis"
)

// serviceMux routes one service's procedures and answers 404 for the rest.
func serviceMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

func NewLearningServiceHandler(h *LearningHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	o := handlerOptions(opts)
	return "/" + LearningServiceName + "/", serviceMux(map[string]http.Handler{
		LearningServiceTriggerLearningProcedure: connect.NewUnaryHandler(LearningServiceTriggerLearningProcedure, h.TriggerLearning, o...),
		LearningServiceGetStatusProcedure:       connect.NewUnaryHandler(LearningServiceGetStatusProcedure, h.GetStatus, o...),
		LearningServiceWatchStatusProcedure:     connect.NewServerStreamHandler(LearningServiceWatchStatusProcedure, h.WatchStatus, o...),
	})
}

func NewProjectServiceHandler(h *ProjectHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	o := handlerOptions(opts)
	return "/" + ProjectServiceName + "/", serviceMux(map[string]http.Handler{
		ProjectServiceGetStateProcedure:    connect.NewUnaryHandler(ProjectServiceGetStateProcedure, h.GetState, o...),
		ProjectServiceGetFileTreeProcedure: connect.NewUnaryHandler(ProjectServiceGetFileTreeProcedure, h.GetFileTree, o...),
		ProjectServiceReadFileProcedure:    connect.NewUnaryHandler(ProjectServiceReadFileProcedure, h.ReadFile, o...),
	})
}

func NewAssistServiceHandler(h *AssistHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	o := handlerOptions(opts)
	return "/" + AssistServiceName + "/", serviceMux(map[string]http.Handler{
		AssistServiceChatProcedure:      connect.NewUnaryHandler(AssistServiceChatProcedure, h.Chat, o...),
		AssistServiceTransformProcedure: connect.NewUnaryHandler(AssistServiceTransformProcedure, h.Transform, o...),
	})
}

func NewArchiveServiceHandler(h *ArchiveHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	o := handlerOptions(opts)
	return "/" + ArchiveServiceName + "/", serviceMux(map[string]http.Handler{
		ArchiveServiceListRunArtifactsProcedure: connect.NewUnaryHandler(ArchiveServiceListRunArtifactsProcedure, h.ListRunArtifacts, o...),
		ArchiveServiceGetRunAnalysisProcedure:   connect.NewUnaryHandler(ArchiveServiceGetRunAnalysisProcedure, h.GetRunAnalysis, o...),
	})
}
