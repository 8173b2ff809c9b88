package domain

import (
	"strings"
	"time"
)

// ContentType identifies the kind of downloadable content
type ContentType string

const (
	ContentTypeTrack ContentType = "track"
	ContentTypeZip   ContentType = "zip"
)

// ParseContentType normalizes a content type from the API boundary.
// "album" is accepted as an alias of "zip".
func ParseContentType(s string) (ContentType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ContentTypeTrack):
		return ContentTypeTrack, true
	case string(ContentTypeZip), "album":
		return ContentTypeZip, true
	default:
		return "", false
	}
}

// Valid checks if the content type is a known value
func (c ContentType) Valid() bool {
	return c == ContentTypeTrack || c == ContentTypeZip
}

// AccessSource records how a user became entitled to a content item
type AccessSource string

const (
	AccessSourceNone         AccessSource = ""
	AccessSourcePurchase     AccessSource = "purchase"
	AccessSourceSubscription AccessSource = "subscription"
)

// Valid checks if the access source can back a download token
func (a AccessSource) Valid() bool {
	return a == AccessSourcePurchase || a == AccessSourceSubscription
}

// Plan is a subscription tier
type Plan string

const (
	PlanBasic Plan = "basic"
	PlanPro   Plan = "pro"
	PlanSuper Plan = "super"
)

// CanAccessFanOnly reports whether the plan unlocks fan-only content
func (p Plan) CanAccessFanOnly() bool {
	return p == PlanSuper
}

// AccessDecision is the result of entitlement resolution
type AccessDecision struct {
	Allowed bool         `json:"allowed"`
	Via     AccessSource `json:"via"`
}

// Denied is the decision returned for every unmatched resolution path
var Denied = AccessDecision{Allowed: false, Via: AccessSourceNone}

// IssuedToken is returned to the client after a successful issuance
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DownloadEventType represents the type of download lifecycle event
type DownloadEventType string

const (
	DownloadEventTokenIssued DownloadEventType = "token_issued"
	DownloadEventRedeemed    DownloadEventType = "redeemed"
)

// DownloadEvent is the message published to NATS for every lifecycle change
type DownloadEvent struct {
	ID           string            `json:"id"`
	EventType    DownloadEventType `json:"event_type"`
	UserID       string            `json:"user_id"`
	ContentID    string            `json:"content_id"`
	ContentType  ContentType       `json:"content_type"`
	AccessSource AccessSource      `json:"access_source"`
	IPAddress    string            `json:"ip_address,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}
