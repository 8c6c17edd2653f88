package store

import (
	"context"
	"time"
)

// ChannelType identifies the upstream wire format a channel speaks.
type ChannelType string

const (
	// ChannelTypeOpenAIChat is the OpenAI Chat Completions API.
	ChannelTypeOpenAIChat ChannelType = "openai_chat"

	// ChannelTypeOpenAIResponses is the OpenAI Responses API.
	ChannelTypeOpenAIResponses ChannelType = "openai_responses"

	// ChannelTypeAnthropic is the Anthropic Messages API.
	ChannelTypeAnthropic ChannelType = "anthropic"
)

// Valid reports whether t is a known channel type.
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelTypeOpenAIChat, ChannelTypeOpenAIResponses, ChannelTypeAnthropic:
		return true
	}
	return false
}

// Status is the lifecycle state of a channel or group.
type Status string

const (
	// StatusActive marks a row as eligible for routing.
	StatusActive Status = "active"

	// StatusDisabled removes a row from routing without deleting it.
	StatusDisabled Status = "disabled"
)

// Channel is one configured upstream provider connection.
type Channel struct {
	// ID is the primary key.
	ID int64

	// Name is a human-readable label for logs and the admin surface.
	Name string

	// Type selects the adapter used to talk to this channel.
	Type ChannelType

	// BaseURL is the upstream API root, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey is the upstream secret. It must never appear in client
	// responses or logs.
	APIKey string

	// Models is the declared list of upstream model names.
	Models []string

	// Status gates routing eligibility.
	Status Status

	// Weight is the relative traffic share for weighted balancing (>= 1).
	Weight int

	// Priority is the failover rank; higher wins.
	Priority int

	// MaxRetries bounds retry attempts for non-streaming calls.
	// Zero or negative disables retry.
	MaxRetries int

	// Timeout bounds each upstream request.
	Timeout time.Duration
}

// Group is a virtual model exposed to clients. Its name is the externally
// visible model string.
type Group struct {
	ID              int64
	Name            string
	BalanceStrategy string
	Status          Status
}

// GroupChannel is a (group, channel) membership with optional per-group
// overrides. A nil Weight or Priority means "use the channel's own value";
// an empty ModelMapping means "send the group name upstream".
type GroupChannel struct {
	GroupID      int64
	ChannelID    int64
	ModelMapping string
	Weight       *int
	Priority     *int
}

// APIKeyInfo is the resolved identity behind a client API key.
type APIKeyInfo struct {
	ID        int64
	Key       string
	UserID    int64
	Quota     int64
	UsedQuota int64
	Enabled   bool
}

// ModelPrice is the price per one million tokens for a model.
type ModelPrice struct {
	Model  string
	Input  float64
	Output float64
}

// Store is the configuration storage contract consumed by the routing,
// auth, and pricing layers.
type Store interface {
	// GetGroupByName returns the group with the given name, or nil if no
	// such group exists.
	GetGroupByName(ctx context.Context, name string) (*Group, error)

	// ListGroupChannels returns all memberships of a group.
	ListGroupChannels(ctx context.Context, groupID int64) ([]GroupChannel, error)

	// GetActiveChannels returns the channels among ids whose status is
	// active, in the order of ids. Missing or disabled ids are skipped.
	GetActiveChannels(ctx context.Context, ids []int64) ([]Channel, error)

	// ListGroupsContainingChannel returns every group that has the channel
	// as a member.
	ListGroupsContainingChannel(ctx context.Context, channelID int64) ([]Group, error)

	// GetAPIKey resolves a raw client key, or returns nil if unknown.
	GetAPIKey(ctx context.Context, rawKey string) (*APIKeyInfo, error)

	// AddUsedQuota adds delta to an API key's consumed quota.
	AddUsedQuota(ctx context.Context, apiKeyID int64, delta int64) error

	// GetModelPrice returns pricing for a model, or nil if unpriced.
	GetModelPrice(ctx context.Context, model string) (*ModelPrice, error)

	// Close releases the underlying database.
	Close() error
}
