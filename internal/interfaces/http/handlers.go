package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/zoompay/internal/application/service"
	"github.com/garyjia/zoompay/internal/application/workflow"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// Version is reported by the health check
const Version = "1.0.0"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	svc            Services
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{svc: services, maxUploadBytes: maxUploadBytes, logger: logger}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	ok(c, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	})
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles POST /auth/signup
func (h *Handlers) Signup(c *gin.Context) {
	var req service.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}
	user, err := h.svc.Auth.Signup(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, user)
}

// Login handles POST /auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}
	session, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, session)
}

// Me handles GET /me
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.svc.Auth.Me(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, user)
}

// UpdateMe handles PUT /me
func (h *Handlers) UpdateMe(c *gin.Context) {
	var req service.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}
	user, err := h.svc.Auth.UpdateProfile(c.Request.Context(), currentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, user)
}

// ChangePassword handles PUT /me/password
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req service.PasswordChangeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "invalid JSON body")
		return
	}
	if err := h.svc.Auth.ChangePassword(c.Request.Context(), currentActor(c), req); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"changed": true})
}

// Permissions handles GET /permissions
func (h *Handlers) Permissions(c *gin.Context) {
	ok(c, h.svc.Router.Permissions(currentActor(c).Role))
}

// GetBlob handles GET /blobs/*path
func (h *Handlers) GetBlob(c *gin.Context) {
	m, err := h.svc.Documents.Blob(c.Request.Context(), currentActor(c), c.Param("path"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, m.ContentType, m.Data)
}

// GetPreview handles GET /previews/*path
func (h *Handlers) GetPreview(c *gin.Context) {
	m, err := h.svc.Documents.Preview(c.Request.Context(), currentActor(c), c.Param("path"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, m.ContentType, m.Data)
}

// textBody is the JSON body of comment-bearing transitions. Only the key the
// route cares about is read.
type textBody struct {
	Comment string `json:"comment"`
	Reason  string `json:"reason"`
	Notes   string `json:"notes"`
	Text    string `json:"text"`
}

// bindText reads an optional JSON body. An empty body yields empty fields so
// the engine reports the missing text as a validation error.
func bindText(c *gin.Context) (textBody, bool) {
	var body textBody
	if c.Request.ContentLength == 0 {
		return body, true
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "body", "invalid JSON body")
		return body, false
	}
	return body, true
}

// readUpload reads a multipart file field. A missing field is an empty upload.
// At most maxUploadBytes+1 bytes are kept; the engine rejects oversized documents
// after its role and status checks.
func (h *Handlers) readUpload(c *gin.Context, field string) (workflow.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return workflow.Upload{}, nil
	}
	if err != nil {
		return workflow.Upload{}, domainwf.NewValidationError(field, "invalid multipart form")
	}

	f, err := fh.Open()
	if err != nil {
		return workflow.Upload{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		return workflow.Upload{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return workflow.Upload{Filename: fh.Filename, Data: data}, nil
}

func sendWorkbook(c *gin.Context, wb *service.Workbook) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", wb.Filename))
	c.Data(http.StatusOK, xlsxContentType, wb.Data)
}
