package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mixmint/mixmint-downloads/internal/api/middleware"
	apierrors "github.com/mixmint/mixmint-downloads/internal/api/shared/errors"
	"github.com/mixmint/mixmint-downloads/internal/blob"
	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/download"
	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/settings"
)

const (
	DOWNLOAD_FILE_PATH      = "/api/v1/downloads/file"
	UPLOAD_FORM_FIELD       = "file"
	DEFAULT_MAX_UPLOAD_SIZE = 500 << 20
)

// Handler defines the interface for REST API handlers
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// IssueToken issues a short-lived download token for an entitled user
	// POST /api/v1/downloads/tokens
	IssueToken(c *gin.Context)

	// DownloadFile redeems a token and streams the file
	// GET /api/v1/downloads/file?token=<token>
	DownloadFile(c *gin.Context)

	// CheckAccess reports whether the caller may download a content item
	// GET /api/v1/access/:content_type/:content_id
	CheckAccess(c *gin.Context)

	// Upload stores the file of a content item owned by the caller
	// POST /api/v1/uploads/:content_type/:content_id
	Upload(c *gin.Context)

	// UpdateSettings changes platform settings (requires API key)
	// PUT /api/v1/admin/settings
	UpdateSettings(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// HandlerConfig holds the REST handler configuration
type HandlerConfig struct {
	// MaxUploadSize bounds the size of an uploaded file in bytes
	MaxUploadSize int64
}

// handler implements the Handler interface
type handler struct {
	config   HandlerConfig
	service  download.Service
	settings settings.Provider
}

// NewHandler creates a new REST API handler
func NewHandler(cfg HandlerConfig, svc download.Service, provider settings.Provider) Handler {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DEFAULT_MAX_UPLOAD_SIZE
	}
	return &handler{
		config:   cfg,
		service:  svc,
		settings: provider,
	}
}

// IssueToken issues a download token for the authenticated user
func (h *handler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	contentType, err := req.Validate()
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	issued, err := h.service.Issue(c.Request.Context(), download.IssueRequest{
		UserID:      middleware.UserID(c),
		ContentID:   req.ContentID,
		ContentType: contentType,
		VersionID:   req.VersionID,
		ClientIP:    c.ClientIP(),
	})
	if err != nil {
		respondDomainError(c, err, "Failed to generate download token")
		return
	}

	c.JSON(http.StatusOK, IssueTokenResponse{
		Token:       issued.Token,
		ExpiresAt:   issued.ExpiresAt,
		DownloadURL: DOWNLOAD_FILE_PATH + "?token=" + url.QueryEscape(issued.Token),
	})
}

// DownloadFile redeems the token and streams the file to the client
func (h *handler) DownloadFile(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		respondBadRequest(c, "Download token is required")
		return
	}

	dl, err := h.service.Redeem(c.Request.Context(), download.RedeemRequest{
		Token:     token,
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondDomainError(c, err, "Failed to retrieve file")
		return
	}
	defer func() {
		if err := dl.Body.Close(); err != nil {
			logger.WarnCtx(c.Request.Context(), "Failed to close download stream", zap.Error(err))
		}
	}()

	headers := map[string]string{
		"Content-Disposition": contentDisposition(downloadFilename(dl.Filename, dl.ContentType)),
		"Cache-Control":       "no-store",
	}
	c.DataFromReader(http.StatusOK, dl.ContentLength, dl.ContentType, dl.Body, headers)
}

// CheckAccess resolves the caller's entitlement to a content item
func (h *handler) CheckAccess(c *gin.Context) {
	contentType, ok := domain.ParseContentType(c.Param("content_type"))
	if !ok {
		respondBadRequest(c, "Invalid content type")
		return
	}
	contentID := c.Param("content_id")
	if err := validateID("content_id", contentID); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	decision, err := h.service.CheckAccess(c.Request.Context(), middleware.UserID(c), contentType, contentID)
	if err != nil {
		respondDomainError(c, err, "Failed to check access")
		return
	}

	c.JSON(http.StatusOK, AccessResponse{
		Allowed: decision.Allowed,
		Via:     string(decision.Via),
	})
}

// Upload stores the multipart file as the content item's file
func (h *handler) Upload(c *gin.Context) {
	contentType, ok := domain.ParseContentType(c.Param("content_type"))
	if !ok {
		respondBadRequest(c, "Invalid content type")
		return
	}
	contentID := c.Param("content_id")
	if err := validateID("content_id", contentID); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	// Allow some room for the multipart envelope
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxUploadSize+1<<20)
	fileHeader, err := c.FormFile(UPLOAD_FORM_FIELD)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, apierrors.NewPayloadTooLargeError("Upload is too large"))
			return
		}
		respondBadRequest(c, "A file is required", err.Error())
		return
	}
	if fileHeader.Size > h.config.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, apierrors.NewPayloadTooLargeError("Upload is too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondInternalError(c, err, "Failed to read upload")
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		respondInternalError(c, err, "Failed to read upload")
		return
	}

	result, err := h.service.Upload(c.Request.Context(), download.UploadRequest{
		UserID:      middleware.UserID(c),
		ContentID:   contentID,
		ContentType: contentType,
		Filename:    fileHeader.Filename,
		MediaType:   fileHeader.Header.Get("Content-Type"),
		Body:        body,
	})
	if err != nil {
		respondDomainError(c, err, "Failed to store upload")
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		StorageKey: result.StorageKey,
		MediaType:  result.MediaType,
	})
}

// UpdateSettings persists a partial settings change
func (h *handler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	update := req.toUpdate()
	if err := update.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := h.settings.Update(c.Request.Context(), update); err != nil {
		respondInternalError(c, err, "Failed to update settings")
		return
	}

	c.Status(http.StatusNoContent)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "mixmint-downloads-api",
	})
}

// downloadFilename appends the media type's extension when the title has none
func downloadFilename(title, contentType string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "download"
	}
	if path.Ext(name) == "" {
		name += blob.ExtensionFor(contentType)
	}
	return name
}

// contentDisposition builds an attachment header with an ASCII filename and,
// for non-ASCII titles, an RFC 5987 filename* parameter
func contentDisposition(filename string) string {
	var ascii strings.Builder
	nonASCII := false
	for _, r := range filename {
		switch {
		case r > 0x7e:
			nonASCII = true
			ascii.WriteRune('_')
		case r < 0x20, r == '"', r == '\\':
			ascii.WriteRune('_')
		default:
			ascii.WriteRune(r)
		}
	}

	value := fmt.Sprintf(`attachment; filename="%s"`, ascii.String())
	if nonASCII {
		value += "; filename*=UTF-8''" + url.PathEscape(filename)
	}
	return value
}
