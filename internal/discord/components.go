package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ComponentHandler handles a click on a message component.
type ComponentHandler func(ctx context.Context, i *discordgo.Interaction)

// componentRegistry routes component interactions by custom id. Handlers are
// keyed by id rather than bound to a message, so buttons on messages posted
// before a restart are still served.
type componentRegistry struct {
	mu       sync.RWMutex
	handlers map[string]ComponentHandler
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{handlers: map[string]ComponentHandler{}}
}

// Register installs h for customID, replacing any previous handler.
func (r *componentRegistry) Register(customID string, h ComponentHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[customID] = h
}

// Lookup returns the handler for customID.
func (r *componentRegistry) Lookup(customID string) (ComponentHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[customID]
	return h, ok
}
