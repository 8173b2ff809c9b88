package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixmint/mixmint-downloads/internal/domain"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   ErrorCode
		wantStatus int
	}{
		{name: "unauthorized", err: domain.ErrUnauthorized, wantCode: ErrCodeUnauthorized, wantStatus: http.StatusUnauthorized},
		{name: "access denied", err: domain.ErrAccessDenied, wantCode: ErrCodeForbidden, wantStatus: http.StatusForbidden},
		{name: "wrapped invalid token", err: fmt.Errorf("redeem: %w", domain.ErrInvalidToken), wantCode: ErrCodeForbidden, wantStatus: http.StatusForbidden},
		{name: "content missing", err: domain.ErrContentNotFound, wantCode: ErrCodeNotFound, wantStatus: http.StatusNotFound},
		{name: "version missing", err: domain.ErrVersionNotFound, wantCode: ErrCodeNotFound, wantStatus: http.StatusNotFound},
		{name: "concurrency cap", err: domain.ErrTooManyDownloads, wantCode: ErrCodeRateLimited, wantStatus: http.StatusTooManyRequests},
		{name: "upload too large", err: fmt.Errorf("%w: kv limit", domain.ErrUploadTooLarge), wantCode: ErrCodePayloadTooLarge, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "rate limited", err: domain.ErrRateLimited, wantCode: ErrCodeRateLimited, wantStatus: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr, ok := FromDomain(tt.err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantStatus, apiErr.Status())
			assert.Empty(t, apiErr.Details)
		})
	}
}

func TestFromDomain_InvalidTokenHidesCause(t *testing.T) {
	apiErr, ok := FromDomain(fmt.Errorf("%w: ip mismatch", domain.ErrInvalidToken))

	require.True(t, ok)
	assert.Equal(t, domain.ErrInvalidToken.Error(), apiErr.Message)
	assert.NotContains(t, apiErr.Error(), "ip mismatch")
}

func TestFromDomain_Internal(t *testing.T) {
	_, ok := FromDomain(fmt.Errorf("%w: insert failed", domain.ErrTokenGeneration))
	assert.False(t, ok)

	_, ok = FromDomain(fmt.Errorf("connection reset"))
	assert.False(t, ok)
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrCodeValidationFailed.HTTPStatus())
	assert.Equal(t, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrCodeInternalError.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrorCode("unknown").HTTPStatus())
}

func TestNew_JoinsDetails(t *testing.T) {
	apiErr := NewBadRequestError("Invalid request", "content_id is required", "content_type is required")

	assert.Equal(t, "content_id is required, content_type is required", apiErr.Details)
	assert.JSONEq(t, `{"code":"bad_request","message":"Invalid request","details":"content_id is required, content_type is required"}`, apiErr.Error())
}
