// Package discord wires the gateway session to the command router, the
// playback core and the audio node.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/kingsrock/kingsbot/internal/command"
	"github.com/kingsrock/kingsbot/internal/config"
	"github.com/kingsrock/kingsbot/internal/lavalink"
	"github.com/kingsrock/kingsbot/internal/music"
	"github.com/kingsrock/kingsbot/internal/recruitment"
	"github.com/kingsrock/kingsbot/internal/spotify"
	"github.com/kingsrock/kingsbot/internal/storage"
)

// Bot is the Discord bot.
type Bot struct {
	dg      *discordgo.Session
	cfg     *config.Config
	log     zerolog.Logger
	router  *command.Router
	manager *lavalink.Manager
	ops     *music.Operations
	reactor *music.Reactor
	spotify *spotify.Resolver
	recruit *recruitment.Flow
}

// NewBot builds the session and all its collaborators. store may be nil
// when no database is configured; recruitment commands are then absent.
func NewBot(cfg *config.Config, store *storage.Storage, log zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	b := &Bot{
		dg:     dg,
		cfg:    cfg,
		log:    log.With().Str("component", "discord").Logger(),
		router: command.NewRouter(cfg.CommandPrefix, log),
	}

	b.manager = lavalink.NewManager(lavalink.Config{
		Host:           cfg.LavalinkHost,
		Port:           cfg.LavalinkPort,
		Password:       cfg.LavalinkPassword,
		Secure:         cfg.LavalinkSecure,
		SearchPlatform: cfg.SearchPlatform,
	}, dg, log)

	registry := music.NewSessionRegistry(b.manager)
	loops := music.NewLoopStore()
	b.ops = music.NewOperations(registry, loops, b.manager, log)
	b.reactor = music.NewReactor(registry, loops, b.manager, b, log)

	if cfg.SpotifyEnabled() {
		b.spotify = spotify.New(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	}
	if store != nil {
		b.recruit = recruitment.New(store, cfg.RecruitmentChannelID, cfg.RecruitmentNotifyID, log)
	}

	b.registerCommands()
	return b, nil
}

// Run opens the gateway and blocks until the context ends.
func (b *Bot) Run(ctx context.Context) error {
	b.configureIntents()
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onMessageCreate(ctx))
	b.dg.AddHandler(b.manager.OnVoiceStateUpdate)
	b.dg.AddHandler(b.manager.OnVoiceServerUpdate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	go b.manager.Run(ctx)
	go b.reactor.Run(ctx)
	go b.rotateActivity(ctx)

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing session")
	return nil
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("bot is ready")
}

// onMessageCreate routes guild messages through the command router and
// feeds direct messages to any in-flight questionnaire.
func (b *Bot) onMessageCreate(ctx context.Context) func(*discordgo.Session, *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}

		if m.GuildID == "" {
			if b.recruit != nil {
				b.recruit.HandleDM(m.Author.ID, m.Content)
			}
			return
		}

		b.router.Dispatch(&command.Context{
			Ctx:       ctx,
			Session:   s,
			Message:   m,
			GuildID:   m.GuildID,
			ChannelID: m.ChannelID,
			AuthorID:  m.Author.ID,
		}, m.Content)
	}
}

// Notify implements music.Notifier.
func (b *Bot) Notify(channelID, message string) {
	if _, err := b.dg.ChannelMessageSend(channelID, message); err != nil {
		b.log.Warn().Str("channel", channelID).Err(err).Msg("failed to send notification")
	}
}

// userVoiceChannel returns the voice channel the user currently occupies,
// or "" when they are not voice-connected.
func (b *Bot) userVoiceChannel(guildID, userID string) string {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

func (b *Bot) reply(ctx *command.Context, text string) {
	if _, err := ctx.Session.ChannelMessageSendReply(ctx.ChannelID, text, ctx.Message.Reference()); err != nil {
		b.log.Warn().Str("channel", ctx.ChannelID).Err(err).Msg("failed to reply")
	}
}
