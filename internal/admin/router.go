package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Command names.
const (
	CommandSetup     = "setup"
	CommandKeys      = "keys"
	CommandAddKeys   = "addkeys"
	CommandResetUser = "resetuser"
)

// Invocation is one parsed text command.
type Invocation struct {
	// Name is the lowercased command name without the prefix.
	Name string

	// Args is everything after the name, with inner line breaks kept.
	Args string

	// IsAdmin is whether the caller holds the administrator capability.
	IsAdmin bool

	// Guild is the guild the command was sent in.
	Guild string
}

// Reply is the response to a command. Lifetime is how long the reply stays
// visible before the adapter deletes it; zero keeps it.
type Reply struct {
	Text     string
	Lifetime time.Duration
}

const (
	shortLifetime = 5 * time.Second
	longLifetime  = 10 * time.Second
)

// CommandObserver is notified of every handled command.
type CommandObserver interface {
	ObserveCommand(name string)
}

// Router maps text commands to admin operations.
type Router struct {
	svc      *Service
	prefix   string
	channel  string
	observer CommandObserver
}

// NewRouter returns a Router. prefix is the command prefix (such as "!") and
// channel is the name of the channel the setup command posts into.
func NewRouter(svc *Service, prefix, channel string, observer CommandObserver) *Router {
	return &Router{svc: svc, prefix: prefix, channel: channel, observer: observer}
}

// Parse recognizes one of the router's commands in a message. It returns
// false for ordinary messages and unknown commands.
func (r *Router) Parse(content string) (Invocation, bool) {
	if r.prefix == "" || !strings.HasPrefix(content, r.prefix) {
		return Invocation{}, false
	}
	rest := strings.TrimPrefix(content, r.prefix)
	name, args, _ := strings.Cut(rest, " ")
	if i := strings.IndexAny(name, "\r\n\t"); i >= 0 {
		args = rest[i+1:]
		name = name[:i]
	}
	name = strings.ToLower(name)

	switch name {
	case CommandSetup, CommandKeys, CommandAddKeys, CommandResetUser:
		return Invocation{Name: name, Args: strings.TrimSpace(args)}, true
	default:
		return Invocation{}, false
	}
}

// Handle runs inv and returns the reply to show the caller.
func (r *Router) Handle(ctx context.Context, inv Invocation) Reply {
	if !inv.IsAdmin {
		return Reply{Text: "❌ You need the **Administrator** permission to use this command.", Lifetime: longLifetime}
	}
	if r.observer != nil {
		r.observer.ObserveCommand(inv.Name)
	}

	switch inv.Name {
	case CommandSetup:
		return r.setup(ctx, inv.Guild)
	case CommandKeys:
		return Reply{Text: fmt.Sprintf("🔑 **%d** trial key(s) remaining.", r.svc.Remaining()), Lifetime: longLifetime}
	case CommandAddKeys:
		return r.addKeys(inv.Args)
	case CommandResetUser:
		return r.resetUser(inv.Args)
	default:
		return Reply{Text: fmt.Sprintf("❌ Unknown command `%s%s`.", r.prefix, inv.Name), Lifetime: longLifetime}
	}
}

func (r *Router) setup(ctx context.Context, guild string) Reply {
	err := r.svc.PostClaimPrompt(ctx, ChannelRef{Guild: guild, Name: r.channel})
	switch {
	case errors.Is(err, ErrChannelNotFound):
		return Reply{
			Text: fmt.Sprintf("❌ Channel `#%s` not found!\n"+
				"Please create it first or update `trial_channel` in the bot configuration.", r.channel),
			Lifetime: longLifetime,
		}
	case err != nil:
		return Reply{Text: fmt.Sprintf("❌ Could not post the claim message: %v", err), Lifetime: longLifetime}
	}
	return Reply{Text: fmt.Sprintf("✅ Setup complete! Message posted in #%s", r.channel), Lifetime: shortLifetime}
}

func (r *Router) addKeys(args string) Reply {
	if len(SplitKeys(args)) == 0 {
		return Reply{Text: fmt.Sprintf("Usage: `%s%s KEY1` with one key per line.", r.prefix, CommandAddKeys), Lifetime: longLifetime}
	}
	added, total, err := r.svc.BulkAdd(args)
	if err != nil {
		return Reply{Text: "❌ Failed to save the new keys. Check the bot logs.", Lifetime: longLifetime}
	}
	return Reply{Text: fmt.Sprintf("✅ Added **%d** key(s). Total: **%d** keys.", added, total), Lifetime: longLifetime}
}

func (r *Router) resetUser(args string) Reply {
	ref, _, _ := strings.Cut(args, " ")
	id, rec, err := r.svc.ResetAccount(ref)
	switch {
	case errors.Is(err, ErrInvalidAccount):
		return Reply{Text: fmt.Sprintf("Usage: `%s%s @user` or `%s%s USER_ID`", r.prefix, CommandResetUser, r.prefix, CommandResetUser), Lifetime: longLifetime}
	case errors.Is(err, ErrNotFound):
		return Reply{Text: fmt.Sprintf("❌ User with ID `%s` has not claimed a key yet.", id), Lifetime: longLifetime}
	case err != nil:
		return Reply{Text: "❌ Failed to reset the user. Check the bot logs.", Lifetime: longLifetime}
	}

	name := rec.Username
	if name == "" {
		name = "Unknown"
	}
	return Reply{
		Text:     fmt.Sprintf("✅ Reset trial for user **%s** (ID: `%s`). They can claim again.", name, id),
		Lifetime: longLifetime,
	}
}
