package discord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kingsrock/kingsbot/internal/command"
	"github.com/kingsrock/kingsbot/internal/music"
	"github.com/kingsrock/kingsbot/internal/spotify"
)

func (b *Bot) registerCommands() {
	r := b.router

	r.Register("join", b.cmdJoin)
	r.Register("leave", b.cmdLeave)
	r.Register("play", b.cmdPlay)
	r.Register("skip", b.cmdSkip)
	r.Register("stop", b.cmdStop)
	r.Register("pause", b.cmdPause)
	r.Register("resume", b.cmdResume)
	r.Register("queue", b.cmdQueue)
	r.Register("loop", b.cmdLoop)

	r.Register("help", b.cmdHelp)
	r.Register("who", b.cmdWho)
	r.Register("rules", b.cmdRules)

	if b.recruit != nil {
		r.Register("recruitment", b.recruit.Apply)
		r.Register("trialstatus", b.recruit.Status, "trial-status")
	}
}

// errorText maps the operation error taxonomy to reply text. ok is false
// for external failures that deserve a log entry on top of the apology.
func errorText(err error) (string, bool) {
	switch {
	case errors.Is(err, music.ErrNoVoiceChannel):
		return "❌ You need to be in a voice channel!", true
	case errors.Is(err, music.ErrAlreadyConnected):
		return "❌ I'm already in a voice channel!", true
	case errors.Is(err, music.ErrNotConnected):
		return "❌ I'm not in a voice channel!", true
	case errors.Is(err, music.ErrEmptyQuery):
		return "❌ Please provide a song name or URL!", true
	case errors.Is(err, music.ErrNoResults):
		return "❌ No results found!", true
	case errors.Is(err, music.ErrNothingPlaying):
		return "❌ Nothing is playing!", true
	case errors.Is(err, music.ErrAlreadyPaused):
		return "❌ Playback is already paused!", true
	case errors.Is(err, music.ErrNotPaused):
		return "❌ Playback is not paused!", true
	case errors.Is(err, music.ErrInvalidLoopMode):
		return "❌ Invalid option! Use `track`, `queue` or `off`.", true
	}
	return "❌ Something went wrong. Please try again later.", false
}

// fail replies with the mapped error text and propagates only unexpected
// errors to the dispatcher's log.
func (b *Bot) fail(ctx *command.Context, err error) error {
	text, known := errorText(err)
	b.reply(ctx, text)
	if known {
		return nil
	}
	return err
}

func (b *Bot) cmdJoin(ctx *command.Context) error {
	vc := b.userVoiceChannel(ctx.GuildID, ctx.AuthorID)
	if _, err := b.ops.Join(ctx.Ctx, ctx.GuildID, vc, ctx.ChannelID); err != nil {
		return b.fail(ctx, err)
	}
	b.reply(ctx, fmt.Sprintf("✅ Joined <#%s>!", vc))
	return nil
}

func (b *Bot) cmdLeave(ctx *command.Context) error {
	if err := b.ops.Leave(ctx.Ctx, ctx.GuildID); err != nil {
		return b.fail(ctx, err)
	}
	b.reply(ctx, "👋 Left the voice channel!")
	return nil
}

func (b *Bot) cmdPlay(ctx *command.Context) error {
	query := strings.Join(ctx.Args, " ")

	// Spotify links resolve to a plain search query first; the node then
	// finds the track on its own platform.
	if b.spotify != nil && spotify.TrackID(query) != "" {
		resolved, err := b.spotify.SearchQuery(ctx.Ctx, query)
		if err != nil {
			return b.fail(ctx, err)
		}
		query = resolved
	}

	vc := b.userVoiceChannel(ctx.GuildID, ctx.AuthorID)
	res, err := b.ops.Play(ctx.Ctx, ctx.GuildID, vc, ctx.ChannelID, ctx.AuthorID, query)
	if err != nil {
		return b.fail(ctx, err)
	}

	if res.PlaylistName != "" {
		b.reply(ctx, fmt.Sprintf("✅ Added playlist **%s** with **%d** tracks to the queue!", res.PlaylistName, len(res.Tracks)))
	} else {
		b.reply(ctx, fmt.Sprintf("✅ Added %s to the queue!", music.TrackLine(res.Tracks[0])))
	}
	return nil
}

func (b *Bot) cmdSkip(ctx *command.Context) error {
	res, err := b.ops.Skip(ctx.Ctx, ctx.GuildID)
	if err != nil {
		return b.fail(ctx, err)
	}
	if res.Stopped {
		b.reply(ctx, fmt.Sprintf("⏭️ Skipped %s! Queue is empty, stopping playback.", music.TrackLine(res.Skipped)))
	} else {
		b.reply(ctx, fmt.Sprintf("⏭️ Skipped %s!", music.TrackLine(res.Skipped)))
	}
	return nil
}

func (b *Bot) cmdStop(ctx *command.Context) error {
	if err := b.ops.Stop(ctx.Ctx, ctx.GuildID); err != nil {
		return b.fail(ctx, err)
	}
	b.reply(ctx, "⏹️ Stopped playback and cleared the queue!")
	return nil
}

func (b *Bot) cmdPause(ctx *command.Context) error {
	if err := b.ops.Pause(ctx.Ctx, ctx.GuildID); err != nil {
		return b.fail(ctx, err)
	}
	b.reply(ctx, "⏸️ Paused playback!")
	return nil
}

func (b *Bot) cmdResume(ctx *command.Context) error {
	if err := b.ops.Resume(ctx.Ctx, ctx.GuildID); err != nil {
		return b.fail(ctx, err)
	}
	b.reply(ctx, "▶️ Resumed playback!")
	return nil
}

func (b *Bot) cmdQueue(ctx *command.Context) error {
	view, filled, err := b.ops.QueueView(ctx.GuildID)
	if err != nil {
		return b.fail(ctx, err)
	}
	if !filled {
		b.reply(ctx, "❌ Queue is empty!")
		return nil
	}
	b.reply(ctx, view)
	return nil
}

func (b *Bot) cmdLoop(ctx *command.Context) error {
	token := ""
	if len(ctx.Args) > 0 {
		token = ctx.Args[0]
	}

	mode, err := b.ops.SetLoop(ctx.Ctx, ctx.GuildID, token)
	if err != nil {
		return b.fail(ctx, err)
	}
	b.reply(ctx, fmt.Sprintf("Loop mode set to %s", mode.Display()))
	return nil
}
