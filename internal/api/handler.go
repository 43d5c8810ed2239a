package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"sunto-go/internal/completion"
	"sunto-go/internal/ingest"
	"sunto-go/internal/logger"
	"sunto-go/internal/types"
	"sunto-go/internal/workflow"
)

const (
	// multipartSlack covers form fields and boundaries around the file part.
	multipartSlack   = 1 << 20
	multipartMemory  = 32 << 20
	jsonBodyLimit    = 16 << 20
	msgInternalError = "Errore interno del server"
	msgBadRequest    = "Richiesta non valida"
)

type Ingester interface {
	Ingest(ctx context.Context, req types.UploadRequest) (types.TranscriptionResult, error)
}

type Completer interface {
	Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResult, error)
	EnhancePrompt(ctx context.Context, description string) (string, error)
}

type WorkflowRunner interface {
	Run(ctx context.Context, content string, steps []types.WorkflowStep) ([]types.StepResult, error)
}

type Deps struct {
	Ingester  Ingester
	Completer Completer
	Workflows WorkflowRunner
	Limits    ingest.Limits
	Logger    *logger.Logger
}

// Handler is the proxy boundary. It holds no state beyond its collaborators.
type Handler struct {
	ingester  Ingester
	completer Completer
	workflows WorkflowRunner
	limits    ingest.Limits
	log       *logger.Logger
	root      http.Handler
}

func NewHandler(d Deps) *Handler {
	if d.Limits == nil {
		d.Limits = ingest.DefaultLimits()
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	h := &Handler{
		ingester:  d.Ingester,
		completer: d.Completer,
		workflows: d.Workflows,
		limits:    d.Limits,
		log:       d.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("POST /ai-process", h.aiProcess)
	mux.HandleFunc("POST /enhance-prompt", h.enhancePrompt)
	mux.HandleFunc("POST /workflow", h.runWorkflow)
	h.root = cors(h.withRequestLog(mux))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

type ctxKey struct{}

func (h *Handler) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := logger.RequestID(r)
		w.Header().Set(logger.RequestIDHeader, reqID)
		entry := h.log.WithRequest(r, reqID)
		entry.Info("request received")
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, entry)))
	})
}

func (h *Handler) reqLog(r *http.Request) *logrus.Entry {
	if e, ok := r.Context().Value(ctxKey{}).(*logrus.Entry); ok {
		return e
	}
	return h.log.Entry
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// aiProcess serves both ingestion (multipart) and completion (JSON).
func (h *Handler) aiProcess(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.ingest(w, r)
		return
	}
	h.complete(w, r)
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	log := h.reqLog(r).WithField("handler", "ingest")

	r.Body = http.MaxBytesReader(w, r.Body, h.limits.Largest()+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.fail(w, log, h.limits.TooLarge(types.ModeMedia))
			return
		}
		h.fail(w, log, types.Wrap(types.KindValidation, msgBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	mode, err := ingest.ParseMode(r.FormValue("mode"))
	if err != nil {
		h.fail(w, log, err)
		return
	}
	req := types.UploadRequest{
		FileName: r.FormValue("fileName"),
		Language: r.FormValue("languageCode"),
		Mode:     mode,
	}
	if req.Language == "" {
		req.Language = types.DefaultLanguage
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// Left to the ingester so a missing key still wins over a missing file.
	case err != nil:
		h.fail(w, log, types.Wrap(types.KindValidation, msgBadRequest, err))
		return
	default:
		defer file.Close()
		req.File = file
		req.Size = header.Size
		req.ContentType = header.Header.Get("Content-Type")
		if req.FileName == "" {
			req.FileName = header.Filename
		}
	}

	log = log.WithFields(logrus.Fields{"file_name": req.FileName, "size": req.Size, "language": req.Language, "mode": req.Mode})
	res, err := h.ingester.Ingest(r.Context(), req)
	if err != nil {
		h.fail(w, log, err)
		return
	}
	log.WithField("duration_ms", res.DurationMs).Info("ingestion succeeded")
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	log := h.reqLog(r).WithField("handler", "complete")

	var req types.CompletionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, log, err)
		return
	}
	if strings.TrimSpace(req.Refine) != "" {
		req.Prompt = completion.RefinementPrompt(req.Refine)
		req.Refine = ""
		if req.ActionType == "" {
			req.ActionType = types.ActionCustom
		}
		log = log.WithField("refinement", true)
	}
	log = log.WithFields(logrus.Fields{"action_type": req.ActionType, "prompt_len": len(req.Prompt), "content_len": len(req.Content)})
	res, err := h.completer.Complete(r.Context(), req)
	if err != nil {
		h.fail(w, log, err)
		return
	}
	log.Info("completion succeeded")
	writeJSON(w, http.StatusOK, res)
}

type enhanceRequest struct {
	UserDescription string `json:"userDescription"`
}

type enhanceResponse struct {
	EnhancedPrompt string `json:"enhancedPrompt"`
}

func (h *Handler) enhancePrompt(w http.ResponseWriter, r *http.Request) {
	log := h.reqLog(r).WithField("handler", "enhance_prompt")

	var req enhanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, log, err)
		return
	}
	prompt, err := h.completer.EnhancePrompt(r.Context(), req.UserDescription)
	if err != nil {
		h.fail(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, enhanceResponse{EnhancedPrompt: prompt})
}

type workflowRequest struct {
	Content string               `json:"content"`
	Steps   []types.WorkflowStep `json:"steps"`
}

type workflowResponse struct {
	Success    bool               `json:"success"`
	Content    string             `json:"content,omitempty"`
	Steps      []types.StepResult `json:"steps"`
	Error      string             `json:"error,omitempty"`
	FailedStep *int               `json:"failedStep,omitempty"`
}

func (h *Handler) runWorkflow(w http.ResponseWriter, r *http.Request) {
	log := h.reqLog(r).WithField("handler", "workflow")

	var req workflowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, log, err)
		return
	}
	steps, err := h.workflows.Run(r.Context(), req.Content, req.Steps)
	if steps == nil {
		steps = []types.StepResult{}
	}
	if err != nil {
		var stepErr *workflow.StepError
		if !errors.As(err, &stepErr) {
			h.fail(w, log, err)
			return
		}
		kind := types.KindOf(err)
		log.WithError(err).WithFields(logrus.Fields{"kind": kind, "failed_step": stepErr.Index}).Warn("workflow failed")
		idx := stepErr.Index
		writeJSON(w, StatusFor(kind), workflowResponse{
			Steps:      steps,
			Error:      types.MessageOf(err, msgInternalError),
			FailedStep: &idx,
		})
		return
	}
	log.WithField("steps", len(steps)).Info("workflow succeeded")
	writeJSON(w, http.StatusOK, workflowResponse{
		Success: true,
		Content: steps[len(steps)-1].Content,
		Steps:   steps,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, jsonBodyLimit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return types.Wrap(types.KindValidation, msgBadRequest, err)
	}
	return nil
}

// fail logs err with its kind and writes the caller-safe message.
func (h *Handler) fail(w http.ResponseWriter, log *logrus.Entry, err error) {
	kind := types.KindOf(err)
	status := StatusFor(kind)
	entry := log.WithField("error", err.Error()).WithFields(logrus.Fields{"kind": kind, "status": status})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}
	writeJSON(w, status, map[string]string{"error": types.MessageOf(err, msgInternalError)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// StatusFor maps a failure kind to the HTTP status returned to callers.
func StatusFor(kind types.Kind) int {
	switch kind {
	case types.KindValidation,
		types.KindFileTooLarge,
		types.KindUnsupportedDocument,
		types.KindUploadRejected,
		types.KindJobCreationFailed,
		types.KindPollingFailed,
		types.KindProviderTranscription,
		types.KindEmptyTranscription:
		return http.StatusBadRequest
	case types.KindPollingTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(allowedHeaders, ", "))
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var allowedHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}
