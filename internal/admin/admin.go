// Package admin implements the operator surface of the bot: posting the claim
// prompt, inspecting and replenishing the key pool, and resetting accounts.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shampis/trialbot/internal/ledger"
)

var (
	// ErrChannelNotFound indicates the configured prompt channel does not exist.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrNotFound indicates the account has not claimed a key.
	ErrNotFound = errors.New("account has not claimed a key")

	// ErrInvalidAccount indicates an empty or malformed account reference.
	ErrInvalidAccount = errors.New("invalid account reference")
)

// ChannelRef names a channel within a guild.
type ChannelRef struct {
	Guild string
	Name  string
}

func (r ChannelRef) String() string {
	return "#" + r.Name
}

// Prompter publishes the claim prompt into a channel. Implementations return
// an error wrapping ErrChannelNotFound when no such channel exists.
type Prompter interface {
	PostClaimPrompt(ctx context.Context, channel ChannelRef) error
}

// KeyPool is the part of the key pool store admin operations use.
type KeyPool interface {
	Count() int
	Append(keys []string) (int, error)
}

// Ledger is the part of the assignment ledger admin operations use.
type Ledger interface {
	Remove(accountID string) (ledger.Record, error)
	List() []ledger.Entry
}

// Service bundles the admin operations over the two stores.
type Service struct {
	pool     KeyPool
	ledger   Ledger
	prompter Prompter
}

// NewService returns a Service. prompter may be nil for offline use, in which
// case PostClaimPrompt fails.
func NewService(pool KeyPool, l Ledger, prompter Prompter) *Service {
	return &Service{pool: pool, ledger: l, prompter: prompter}
}

// PostClaimPrompt publishes the claim invitation in channel.
func (s *Service) PostClaimPrompt(ctx context.Context, channel ChannelRef) error {
	if s.prompter == nil {
		return fmt.Errorf("posting claim prompt: no chat connection")
	}
	return s.prompter.PostClaimPrompt(ctx, channel)
}

// Remaining returns the number of keys left in the pool.
func (s *Service) Remaining() int {
	return s.pool.Count()
}

// BulkAdd appends every non-empty trimmed line of raw to the back of the pool.
// It returns how many keys were added and the new pool size.
func (s *Service) BulkAdd(raw string) (added, total int, err error) {
	keys := SplitKeys(raw)
	total, err = s.pool.Append(keys)
	if err != nil {
		return 0, 0, fmt.Errorf("adding keys: %w", err)
	}
	return len(keys), total, nil
}

// ResetAccount deletes the assignment of the account referenced by ref so it
// can claim again. ref is an account id or a mention of one.
func (s *Service) ResetAccount(ref string) (string, ledger.Record, error) {
	id := ParseAccountRef(ref)
	if id == "" {
		return "", ledger.Record{}, ErrInvalidAccount
	}
	rec, err := s.ledger.Remove(id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return id, ledger.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return id, ledger.Record{}, fmt.Errorf("resetting %s: %w", id, err)
	}
	return id, rec, nil
}

// Assignments lists every account holding a key.
func (s *Service) Assignments() []ledger.Entry {
	return s.ledger.List()
}

// SplitKeys splits raw on line breaks, trims each line and drops empty ones.
func SplitKeys(raw string) []string {
	var keys []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			keys = append(keys, line)
		}
	}
	return keys
}

// ParseAccountRef extracts an account id from a raw id or a user mention such
// as <@123> or <@!123>.
func ParseAccountRef(ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimPrefix(ref, "<@")
	ref = strings.TrimPrefix(ref, "!")
	ref = strings.TrimSuffix(ref, ">")
	return strings.TrimSpace(ref)
}
