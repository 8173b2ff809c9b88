package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixmint/mixmint-downloads/internal/api/middleware"
	apierrors "github.com/mixmint/mixmint-downloads/internal/api/shared/errors"
	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/download"
	"github.com/mixmint/mixmint-downloads/internal/mocks"
	"github.com/mixmint/mixmint-downloads/internal/settings"
)

const (
	testUserID    = "6f1b7a52-1c4e-4f55-9d4a-3d2f0a1e8c11"
	testContentID = "0b6a3f1e-6a0e-4b8a-9a57-3f7c2e4d5b90"
	testClientIP  = "192.0.2.1"
	testToken     = "abababababababababababababababababababababababababababababababab"
)

type testHandler struct {
	router   *gin.Engine
	service  *mocks.MockDownloadService
	settings *mocks.MockSettingsProvider
}

// setupHandler mounts the handler methods without the auth middleware.
// The X-Test-User header stands in for an authenticated session.
func setupHandler(t *testing.T, maxUploadSize int64) *testHandler {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	svc := mocks.NewMockDownloadService(ctrl)
	provider := mocks.NewMockSettingsProvider(ctrl)
	h := NewHandler(HandlerConfig{MaxUploadSize: maxUploadSize}, svc, provider)

	withUser := func(c *gin.Context) {
		if userID := c.GetHeader("X-Test-User"); userID != "" {
			c.Set(string(middleware.AUTH_SUBJECT_KEY), userID)
		}
		c.Next()
	}

	router := gin.New()
	router.GET("/health", h.HealthCheck)
	router.POST("/api/v1/downloads/tokens", withUser, h.IssueToken)
	router.GET("/api/v1/downloads/file", h.DownloadFile)
	router.GET("/api/v1/access/:content_type/:content_id", withUser, h.CheckAccess)
	router.POST("/api/v1/uploads/:content_type/:content_id", withUser, h.Upload)
	router.PUT("/api/v1/admin/settings", h.UpdateSettings)

	return &testHandler{router: router, service: svc, settings: provider}
}

func (th *testHandler) do(req *http.Request) *httptest.ResponseRecorder {
	req.RemoteAddr = testClientIP + ":54321"
	w := httptest.NewRecorder()
	th.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) apierrors.APIError {
	var apiErr apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

// =============================================================================
// IssueToken
// =============================================================================

func TestIssueToken_Success(t *testing.T) {
	th := setupHandler(t, 0)
	expiresAt := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)

	th.service.EXPECT().
		Issue(gomock.Any(), download.IssueRequest{
			UserID:      testUserID,
			ContentID:   testContentID,
			ContentType: domain.ContentTypeZip,
			ClientIP:    testClientIP,
		}).
		Return(&domain.IssuedToken{Token: testToken, ExpiresAt: expiresAt}, nil)

	req := jsonRequest(t, http.MethodPost, "/api/v1/downloads/tokens", map[string]string{
		"content_id":   testContentID,
		"content_type": "album",
	})
	req.Header.Set("X-Test-User", testUserID)
	w := th.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp IssueTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testToken, resp.Token)
	assert.True(t, expiresAt.Equal(resp.ExpiresAt))
	assert.Equal(t, "/api/v1/downloads/file?token="+testToken, resp.DownloadURL)
}

func TestIssueToken_WithVersion(t *testing.T) {
	th := setupHandler(t, 0)
	versionID := "9a0c2b7e-8f3d-4c1a-b6e5-2d4f6a8c0e13"

	th.service.EXPECT().
		Issue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, req download.IssueRequest) (*domain.IssuedToken, error) {
			require.NotNil(t, req.VersionID)
			assert.Equal(t, versionID, *req.VersionID)
			assert.Equal(t, domain.ContentTypeTrack, req.ContentType)
			return &domain.IssuedToken{Token: testToken, ExpiresAt: time.Now()}, nil
		})

	req := jsonRequest(t, http.MethodPost, "/api/v1/downloads/tokens", map[string]string{
		"content_id":   testContentID,
		"content_type": "track",
		"version_id":   versionID,
	})
	req.Header.Set("X-Test-User", testUserID)
	w := th.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIssueToken_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{name: "malformed json", body: "{not json"},
		{name: "missing content id", body: map[string]string{"content_type": "track"}},
		{name: "unknown content type", body: map[string]string{"content_id": testContentID, "content_type": "playlist"}},
		{name: "content id not a uuid", body: map[string]string{"content_id": "42", "content_type": "track"}},
		{name: "version id not a uuid", body: map[string]string{"content_id": testContentID, "content_type": "track", "version_id": "v2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := setupHandler(t, 0)

			req := jsonRequest(t, http.MethodPost, "/api/v1/downloads/tokens", tt.body)
			req.Header.Set("X-Test-User", testUserID)
			w := th.do(req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, apierrors.ErrCodeValidationFailed, decodeAPIError(t, w).Code)
		})
	}
}

func TestIssueToken_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apierrors.ErrorCode
	}{
		{name: "no session", err: domain.ErrUnauthorized, wantStatus: http.StatusUnauthorized, wantCode: apierrors.ErrCodeUnauthorized},
		{name: "not entitled", err: domain.ErrAccessDenied, wantStatus: http.StatusForbidden, wantCode: apierrors.ErrCodeForbidden},
		{name: "content missing", err: domain.ErrContentNotFound, wantStatus: http.StatusNotFound, wantCode: apierrors.ErrCodeNotFound},
		{name: "version missing", err: domain.ErrVersionNotFound, wantStatus: http.StatusNotFound, wantCode: apierrors.ErrCodeNotFound},
		{name: "concurrency cap", err: domain.ErrTooManyDownloads, wantStatus: http.StatusTooManyRequests, wantCode: apierrors.ErrCodeRateLimited},
		{name: "token generation", err: fmt.Errorf("%w: insert failed", domain.ErrTokenGeneration), wantStatus: http.StatusInternalServerError, wantCode: apierrors.ErrCodeInternalError},
		{name: "unexpected", err: errors.New("connection reset"), wantStatus: http.StatusInternalServerError, wantCode: apierrors.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := setupHandler(t, 0)
			th.service.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			req := jsonRequest(t, http.MethodPost, "/api/v1/downloads/tokens", map[string]string{
				"content_id":   testContentID,
				"content_type": "track",
			})
			w := th.do(req)

			assert.Equal(t, tt.wantStatus, w.Code)
			apiErr := decodeAPIError(t, w)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Empty(t, apiErr.Details)
				assert.NotContains(t, w.Body.String(), "connection reset")
			}
		})
	}
}

// =============================================================================
// DownloadFile
// =============================================================================

func TestDownloadFile_StreamsFile(t *testing.T) {
	th := setupHandler(t, 0)
	body := &trackingBody{Reader: strings.NewReader("ID3 mp3 bytes")}

	th.service.EXPECT().
		Redeem(gomock.Any(), download.RedeemRequest{
			Token:     testToken,
			ClientIP:  testClientIP,
			UserAgent: "curl/8.5.0",
		}).
		Return(&download.Download{
			Body:          body,
			ContentType:   "audio/mpeg",
			ContentLength: 13,
			Filename:      "Sunset Mix.mp3",
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads/file?token="+testToken, nil)
	req.Header.Set("User-Agent", "curl/8.5.0")
	w := th.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ID3 mp3 bytes", w.Body.String())
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "13", w.Header().Get("Content-Length"))
	assert.Equal(t, `attachment; filename="Sunset Mix.mp3"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.True(t, body.closed)
}

func TestDownloadFile_AddsExtensionFromMediaType(t *testing.T) {
	th := setupHandler(t, 0)

	th.service.EXPECT().Redeem(gomock.Any(), gomock.Any()).Return(&download.Download{
		Body:          io.NopCloser(strings.NewReader("PK")),
		ContentType:   "application/zip",
		ContentLength: 2,
		Filename:      "Summer Sessions",
	}, nil)

	w := th.do(httptest.NewRequest(http.MethodGet, "/api/v1/downloads/file?token="+testToken, nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="Summer Sessions.zip"`, w.Header().Get("Content-Disposition"))
}

func TestDownloadFile_MissingToken(t *testing.T) {
	th := setupHandler(t, 0)

	w := th.do(httptest.NewRequest(http.MethodGet, "/api/v1/downloads/file", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierrors.ErrCodeBadRequest, decodeAPIError(t, w).Code)
}

func TestDownloadFile_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    apierrors.ErrorCode
		wantMessage string
	}{
		{
			name:        "invalid token",
			err:         domain.ErrInvalidToken,
			wantStatus:  http.StatusForbidden,
			wantCode:    apierrors.ErrCodeForbidden,
			wantMessage: "invalid or expired download link",
		},
		{
			name:        "quota exhausted",
			err:         domain.ErrAccessDenied,
			wantStatus:  http.StatusForbidden,
			wantCode:    apierrors.ErrCodeForbidden,
			wantMessage: "Access denied",
		},
		{
			name:        "content removed",
			err:         domain.ErrContentNotFound,
			wantStatus:  http.StatusNotFound,
			wantCode:    apierrors.ErrCodeNotFound,
			wantMessage: "Content not found",
		},
		{
			name:        "storage failure",
			err:         errors.New("failed to open object: bucket unavailable"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    apierrors.ErrCodeInternalError,
			wantMessage: "Failed to retrieve file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := setupHandler(t, 0)
			th.service.EXPECT().Redeem(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			w := th.do(httptest.NewRequest(http.MethodGet, "/api/v1/downloads/file?token="+testToken, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			apiErr := decodeAPIError(t, w)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Empty(t, w.Header().Get("Content-Disposition"))
		})
	}
}

// =============================================================================
// CheckAccess
// =============================================================================

func TestCheckAccess(t *testing.T) {
	tests := []struct {
		name     string
		decision domain.AccessDecision
		wantBody string
	}{
		{
			name:     "purchased",
			decision: domain.AccessDecision{Allowed: true, Via: domain.AccessSourcePurchase},
			wantBody: `{"allowed":true,"via":"purchase"}`,
		},
		{
			name:     "subscribed",
			decision: domain.AccessDecision{Allowed: true, Via: domain.AccessSourceSubscription},
			wantBody: `{"allowed":true,"via":"subscription"}`,
		},
		{
			name:     "denied",
			decision: domain.Denied,
			wantBody: `{"allowed":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := setupHandler(t, 0)
			th.service.EXPECT().
				CheckAccess(gomock.Any(), testUserID, domain.ContentTypeTrack, testContentID).
				Return(tt.decision, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/access/track/"+testContentID, nil)
			req.Header.Set("X-Test-User", testUserID)
			w := th.do(req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestCheckAccess_InvalidParams(t *testing.T) {
	th := setupHandler(t, 0)

	w := th.do(httptest.NewRequest(http.MethodGet, "/api/v1/access/video/"+testContentID, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = th.do(httptest.NewRequest(http.MethodGet, "/api/v1/access/track/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// Upload
// =============================================================================

func multipartRequest(t *testing.T, target, field, filename string, content []byte) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_Success(t *testing.T) {
	th := setupHandler(t, 1024)
	content := []byte("RIFF wav data")

	th.service.EXPECT().
		Upload(gomock.Any(), download.UploadRequest{
			UserID:      testUserID,
			ContentID:   testContentID,
			ContentType: domain.ContentTypeTrack,
			Filename:    "mix.wav",
			MediaType:   "application/octet-stream",
			Body:        content,
		}).
		Return(&download.UploadResult{StorageKey: "dj/track/c/mix.wav", MediaType: "audio/wav"}, nil)

	req := multipartRequest(t, "/api/v1/uploads/track/"+testContentID, UPLOAD_FORM_FIELD, "mix.wav", content)
	req.Header.Set("X-Test-User", testUserID)
	w := th.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"storage_key":"dj/track/c/mix.wav","media_type":"audio/wav"}`, w.Body.String())
}

func TestUpload_TooLarge(t *testing.T) {
	th := setupHandler(t, 1024)

	req := multipartRequest(t, "/api/v1/uploads/track/"+testContentID, UPLOAD_FORM_FIELD, "big.wav", bytes.Repeat([]byte("x"), 2048))
	req.Header.Set("X-Test-User", testUserID)
	w := th.do(req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, apierrors.ErrCodePayloadTooLarge, decodeAPIError(t, w).Code)
}

func TestUpload_MissingFile(t *testing.T) {
	th := setupHandler(t, 1024)

	req := multipartRequest(t, "/api/v1/uploads/track/"+testContentID, "", "", nil)
	req.Header.Set("X-Test-User", testUserID)
	w := th.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload_NotOwner(t *testing.T) {
	th := setupHandler(t, 1024)
	th.service.EXPECT().Upload(gomock.Any(), gomock.Any()).Return(nil, domain.ErrAccessDenied)

	req := multipartRequest(t, "/api/v1/uploads/zip/"+testContentID, UPLOAD_FORM_FIELD, "set.zip", []byte("PK"))
	req.Header.Set("X-Test-User", testUserID)
	w := th.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

// =============================================================================
// UpdateSettings
// =============================================================================

func TestUpdateSettings_Success(t *testing.T) {
	th := setupHandler(t, 0)

	th.settings.EXPECT().
		Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, update settings.Update) error {
			require.NotNil(t, update.MaxConcurrentDownloads)
			assert.Equal(t, 5, *update.MaxConcurrentDownloads)
			assert.Nil(t, update.TokenTTLSeconds)
			assert.Nil(t, update.DownloadRateLimitPerMinute)
			return nil
		})

	w := th.do(jsonRequest(t, http.MethodPut, "/api/v1/admin/settings", map[string]int{
		"max_concurrent_downloads": 5,
	}))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestUpdateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{name: "malformed json", body: "[1,2"},
		{name: "empty update", body: map[string]int{}},
		{name: "ttl out of range", body: map[string]int{"token_ttl_seconds": 5}},
		{name: "ttl beyond five minutes", body: map[string]int{"token_ttl_seconds": 600}},
		{name: "rate limit zero", body: map[string]int{"download_rate_limit_per_minute": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := setupHandler(t, 0)

			w := th.do(jsonRequest(t, http.MethodPut, "/api/v1/admin/settings", tt.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, apierrors.ErrCodeValidationFailed, decodeAPIError(t, w).Code)
		})
	}
}

func TestUpdateSettings_StoreError(t *testing.T) {
	th := setupHandler(t, 0)
	th.settings.EXPECT().Update(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	w := th.do(jsonRequest(t, http.MethodPut, "/api/v1/admin/settings", map[string]int{
		"token_ttl_seconds": 120,
	}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// =============================================================================
// Helpers
// =============================================================================

func TestHealthCheck(t *testing.T) {
	th := setupHandler(t, 0)

	w := th.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"mixmint-downloads-api"}`, w.Body.String())
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{name: "plain", filename: "Sunset Mix.mp3", want: `attachment; filename="Sunset Mix.mp3"`},
		{name: "quotes and backslashes", filename: `DJ "K" \ Live.mp3`, want: `attachment; filename="DJ _K_ _ Live.mp3"`},
		{name: "non ascii", filename: "Café.mp3", want: `attachment; filename="Caf_.mp3"; filename*=UTF-8''Caf%C3%A9.mp3`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, contentDisposition(tt.filename))
		})
	}
}

func TestDownloadFilename(t *testing.T) {
	assert.Equal(t, "Live Set.zip", downloadFilename("Live Set", "application/zip"))
	assert.Equal(t, "Live Set.mp3", downloadFilename("Live Set.mp3", "application/zip"))
	assert.Equal(t, "download", downloadFilename("  ", "application/x-unknown-type"))
}
