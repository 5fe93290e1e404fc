// Package discord adapts the Discord gateway and REST API to the issuance
// domain: join events flow in, direct messages flow out.
package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// EventHandler receives translated gateway events. The orchestrator
// implements it.
type EventHandler interface {
	OnNewMember(ctx context.Context, memberID id.MemberID) error
	OnSessionReady(ctx context.Context, identity string)
}

// Gateway owns the websocket session and translates raw gateway payloads
// into domain events. Handler callbacks run on discordgo's dispatch
// goroutines, so everything they call must be safe for concurrent use.
type Gateway struct {
	session *discordgo.Session
	guildID string
	handler EventHandler
	logger  *slog.Logger
	timeout time.Duration
}

// NewGateway builds a session for the bot token. The guildID scopes join
// events; an empty guildID accepts joins from every guild the bot is in.
// Attach must be called before Run.
func NewGateway(token, guildID string, logger *slog.Logger, timeout time.Duration) (*Gateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "build discord session")
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	return &Gateway{
		session: session,
		guildID: guildID,
		logger:  logger,
		timeout: timeout,
	}, nil
}

// Attach registers the event handler. It is a separate step because the
// orchestrator needs the session-backed notifier before it exists, and the
// gateway needs the orchestrator.
func (g *Gateway) Attach(handler EventHandler) {
	g.handler = handler
	g.session.AddHandler(g.handleReady)
	g.session.AddHandler(g.handleMemberAdd)
}

// Session exposes the underlying session for the REST-side notifier.
func (g *Gateway) Session() *discordgo.Session {
	return g.session
}

// Run opens the websocket and blocks until ctx is canceled.
func (g *Gateway) Run(ctx context.Context) error {
	if g.handler == nil {
		return dErrors.New(dErrors.CodeInternal, "gateway has no event handler attached")
	}
	if err := g.session.Open(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "open discord gateway")
	}
	<-ctx.Done()
	if err := g.session.Close(); err != nil {
		g.logger.Warn("closing discord session", "error", err)
	}
	return ctx.Err()
}

func (g *Gateway) handleReady(_ *discordgo.Session, event *discordgo.Ready) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	g.handler.OnSessionReady(ctx, event.User.Username)
}

func (g *Gateway) handleMemberAdd(_ *discordgo.Session, event *discordgo.GuildMemberAdd) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	if g.guildID != "" && event.GuildID != g.guildID {
		g.logger.DebugContext(ctx, "ignoring join from foreign guild", "guild_id", event.GuildID)
		return
	}

	memberID, err := id.ParseMemberID(event.User.ID)
	if err != nil {
		g.logger.ErrorContext(ctx, "member join carried unparseable user id",
			"user_id", event.User.ID, "error", err)
		return
	}

	if err := g.handler.OnNewMember(ctx, memberID); err != nil {
		g.logger.ErrorContext(ctx, "member join handling failed",
			"member_id", memberID, "error", err)
	}
}
