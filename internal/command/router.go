// Package command routes prefixed text commands to their handlers.
package command

import (
	"context"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Context carries everything a handler needs about the inbound message.
type Context struct {
	Ctx       context.Context
	Session   *discordgo.Session
	Message   *discordgo.MessageCreate
	GuildID   string
	ChannelID string
	AuthorID  string
	Args      []string
}

// HandlerFunc handles one command invocation. A returned error is logged
// by the dispatcher; user-facing replies are the handler's job.
type HandlerFunc func(*Context) error

// Router resolves a verb to exactly one handler, case-insensitively.
// Unknown verbs are silently ignored. A per-user token bucket drops
// command spam before it reaches a handler.
type Router struct {
	prefix   string
	log      zerolog.Logger
	handlers map[string]HandlerFunc

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRouter(prefix string, log zerolog.Logger) *Router {
	return &Router{
		prefix:   prefix,
		log:      log.With().Str("component", "router").Logger(),
		handlers: make(map[string]HandlerFunc),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Register binds a verb (and any aliases) to a handler.
func (r *Router) Register(verb string, h HandlerFunc, aliases ...string) {
	r.handlers[strings.ToLower(verb)] = h
	for _, a := range aliases {
		r.handlers[strings.ToLower(a)] = h
	}
}

// Parse splits a raw message into verb and arguments. ok is false when
// the message does not carry the command prefix.
func Parse(content, prefix string) (verb string, args []string, ok bool) {
	if !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// Dispatch parses the message and runs the matching handler, if any.
func (r *Router) Dispatch(ctx *Context, content string) {
	verb, args, ok := Parse(content, r.prefix)
	if !ok {
		return
	}

	handler, ok := r.handlers[verb]
	if !ok {
		// Permissive-ignore: unknown verbs are not an error.
		return
	}

	if !r.allow(ctx.AuthorID) {
		r.log.Debug().Str("user", ctx.AuthorID).Str("verb", verb).Msg("rate limited")
		return
	}

	ctx.Args = args
	if err := handler(ctx); err != nil {
		r.log.Error().Str("verb", verb).Str("guild", ctx.GuildID).Err(err).Msg("command failed")
	}
}

// allow checks the per-user limiter: 1 command/sec sustained, bursts of 4.
func (r *Router) allow(userID string) bool {
	r.mu.Lock()
	lim, ok := r.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(1), 4)
		r.limiters[userID] = lim
	}
	r.mu.Unlock()
	return lim.Allow()
}
