package batch

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-matcher/internal/analyzer"
	"resume-matcher/internal/documents"
	"resume-matcher/internal/shared/apperr"
	"resume-matcher/internal/shared/server/middleware"
	"resume-matcher/internal/shared/server/respond"
)

// MaxUploadBytes caps a whole multipart match request.
const MaxUploadBytes = 10 << 20 // 10MB

// Handler wires HTTP match requests to the Coordinator.
type Handler struct {
	Coordinator   *Coordinator
	Loader        *documents.Loader
	IncludeSkills bool
}

// NewHandler constructs a Handler. loader may be nil when no object store is configured.
func NewHandler(coord *Coordinator, loader *documents.Loader, includeSkills bool) *Handler {
	return &Handler{Coordinator: coord, Loader: loader, IncludeSkills: includeSkills}
}

// RegisterRoutes attaches match routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/match", h.match)
	rg.POST("/match/from-store", h.matchFromStore)
}

func (h *Handler) match(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)

	var files []*multipart.FileHeader
	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "upload exceeds 10MB", nil)
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid multipart form", nil)
			return
		}
	} else {
		files = form.File["resumes"]
	}
	jobDescription := c.PostForm("job_description")
	c.Set(middleware.DocumentCountKey, len(files))

	if err := h.Coordinator.Validate(len(files), jobDescription); err != nil {
		h.fail(c, err)
		return
	}

	docs := make([]documents.Document, 0, len(files))
	for _, fh := range files {
		doc, err := documents.FromMultipart(fh)
		if err != nil {
			doc = documents.Unreadable(fh.Filename, err)
		}
		docs = append(docs, doc)
	}
	log.Printf("Processing %d resume(s)", len(docs))
	h.run(c, docs, jobDescription)
}

type fromStoreRequest struct {
	Keys           []string `json:"keys"`
	JobDescription string   `json:"jobDescription"`
}

func (h *Handler) matchFromStore(c *gin.Context) {
	var req fromStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	c.Set(middleware.DocumentCountKey, len(req.Keys))
	if err := h.Coordinator.Validate(len(req.Keys), req.JobDescription); err != nil {
		h.fail(c, err)
		return
	}
	if h.Loader == nil {
		respond.Error(c, http.StatusServiceUnavailable, "service_unavailable", "document store is not configured", nil)
		return
	}

	docs, err := h.Loader.Load(c.Request.Context(), req.Keys)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.run(c, docs, req.JobDescription)
}

func (h *Handler) run(c *gin.Context, docs []documents.Document, jobDescription string) {
	ctx := analyzer.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	res, err := h.Coordinator.Run(ctx, docs, jobDescription)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set(middleware.BatchIDKey, res.BatchID)
	c.Header("X-Batch-Id", res.BatchID)
	respond.OK(c, Present(res, h.IncludeSkills))
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case apperr.KindConfiguration:
		respond.Error(c, http.StatusServiceUnavailable, "service_unavailable", apperr.Headline(apperr.KindConfiguration), strings.TrimSpace(err.Error()))
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Critical error analyzing resumes: "+err.Error(), nil)
	}
}
