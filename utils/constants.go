package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Follow-up escalation tiers, measured from the follow-up's creation.
const (
	FollowUpTierOne   = 24 * time.Hour
	FollowUpTierTwo   = 72 * time.Hour
	FollowUpTierThree = 120 * time.Hour
)

// Phone digit bounds accepted by the outbound gateway (E.164).
const (
	MinPhoneDigits = 7
	MaxPhoneDigits = 15
)

// WebhookDedupeKey is the redis key prefix for inbound message dedupe.
const WebhookDedupeKey = "webhook:seen:"

// Context keys carried on request contexts built by the HTTP layer.
const (
	RequestIDKey  = "X-Request-ID"
	UserAgentKey  = "User-Agent"
	IPAddressKey  = "IP-Address"
	EndpointKey   = "Endpoint"
	TimeoutKey    = "Timeout"
	CancelFuncKey = "CancelFunc"
)

// RefreshTokenTTL is the time-to-live for refresh tokens
const RefreshTokenTTL = 7 * 24 * time.Hour
