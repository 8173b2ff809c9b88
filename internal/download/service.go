package download

import (
	"context"
	"fmt"
	"io"

	"github.com/mixmint/mixmint-downloads/internal/adapter"
	"github.com/mixmint/mixmint-downloads/internal/blob"
	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/emitter"
	"github.com/mixmint/mixmint-downloads/internal/entitlement"
	"github.com/mixmint/mixmint-downloads/internal/quota"
	"github.com/mixmint/mixmint-downloads/internal/settings"
	"github.com/mixmint/mixmint-downloads/internal/store"
)

// IssueRequest asks for a download token
type IssueRequest struct {
	UserID      string
	ContentID   string
	ContentType domain.ContentType
	VersionID   *string
	ClientIP    string
}

// RedeemRequest presents a download token
type RedeemRequest struct {
	Token     string
	ClientIP  string
	UserAgent string
}

// Download is an opened file ready to be streamed. The caller must close Body.
type Download struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Filename      string
}

// UploadRequest carries a file uploaded by the owning DJ
type UploadRequest struct {
	UserID      string
	ContentID   string
	ContentType domain.ContentType
	Filename    string
	MediaType   string
	Body        []byte
}

// UploadResult is where an upload was stored
type UploadResult struct {
	StorageKey string `json:"storage_key"`
	MediaType  string `json:"media_type"`
}

// Service is the download gate. Tokens can only be issued through Issue,
// which always runs the concurrency guard and entitlement resolution first.
//
//go:generate mockgen -source=service.go -destination=../mocks/download.go -package=mocks -mock_names=Service=MockDownloadService
type Service interface {
	// Issue checks the concurrency cap and entitlement and persists a new token
	Issue(ctx context.Context, req IssueRequest) (*domain.IssuedToken, error)
	// Redeem validates and consumes a token and opens the file it grants
	Redeem(ctx context.Context, req RedeemRequest) (*Download, error)
	// CheckAccess resolves entitlement without side effects
	CheckAccess(ctx context.Context, userID string, contentType domain.ContentType, contentID string) (domain.AccessDecision, error)
	// Upload stores a new file for a content item owned by the caller
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}

// Config holds the download service configuration
type Config struct {
	// Bucket is the blob store bucket holding content files
	Bucket string
}

type service struct {
	config   Config
	store    store.Store
	resolver entitlement.Resolver
	ledger   quota.Ledger
	blobs    blob.Store
	settings settings.Provider
	emitter  emitter.Emitter
	clock    adapter.Clock
	random   io.Reader
}

// NewService creates the download service.
// random is the entropy source of tokens; nil uses crypto/rand.
func NewService(
	cfg Config,
	st store.Store,
	resolver entitlement.Resolver,
	ledger quota.Ledger,
	blobs blob.Store,
	settingsProvider settings.Provider,
	em emitter.Emitter,
	clock adapter.Clock,
	random io.Reader,
) Service {
	return &service{
		config:   cfg,
		store:    st,
		resolver: resolver,
		ledger:   ledger,
		blobs:    blobs,
		settings: settingsProvider,
		emitter:  em,
		clock:    clock,
		random:   random,
	}
}

// CheckAccess resolves entitlement against the non-transactional store
func (s *service) CheckAccess(ctx context.Context, userID string, contentType domain.ContentType, contentID string) (domain.AccessDecision, error) {
	if userID == "" {
		return domain.Denied, domain.ErrUnauthorized
	}
	decision, err := s.resolver.ResolveAccess(ctx, s.store, userID, contentType, contentID)
	if err != nil {
		return domain.Denied, fmt.Errorf("failed to resolve access: %w", err)
	}
	return decision, nil
}
