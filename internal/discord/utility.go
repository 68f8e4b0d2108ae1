package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/kingsrock/kingsbot/internal/command"
	"github.com/kingsrock/kingsbot/internal/version"
)

const embedColor = 0x5865F2

func (b *Bot) cmdHelp(ctx *command.Context) error {
	p := b.cfg.CommandPrefix
	embed := &discordgo.MessageEmbed{
		Title: "📖 " + version.AppName + " Commands",
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "🎵 Music",
				Value: "`" + p + "play <song or URL>` - Play a song or add it to the queue\n" +
					"`" + p + "skip` - Skip the current track\n" +
					"`" + p + "stop` - Stop playback and clear the queue\n" +
					"`" + p + "pause` / `" + p + "resume` - Pause or resume playback\n" +
					"`" + p + "queue` - Show the current queue\n" +
					"`" + p + "loop [track|queue|off]` - Set or cycle the loop mode\n" +
					"`" + p + "join` / `" + p + "leave` - Summon or dismiss the bot",
			},
			{
				Name: "🏰 Server",
				Value: "`" + p + "who` - About this server\n" +
					"`" + p + "rules` - Server rules\n" +
					"`" + p + "recruitment` - Apply to join the team\n" +
					"`" + p + "trialstatus` - Check your application status",
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: version.AppName + " v" + version.AppVersion,
		},
	}
	return b.replyEmbed(ctx, embed)
}

func (b *Bot) cmdWho(ctx *command.Context) error {
	embed := &discordgo.MessageEmbed{
		Title: "👑 About KingsRock",
		Color: embedColor,
		Description: "KingsRock is a competitive esports community. " +
			"We field teams across several titles, run regular scrims and " +
			"in-house tournaments, and keep a friendly place to hang out " +
			"between matches.",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Want to join?", Value: "Use `" + b.cfg.CommandPrefix + "recruitment` to apply!"},
		},
	}
	return b.replyEmbed(ctx, embed)
}

func (b *Bot) cmdRules(ctx *command.Context) error {
	embed := &discordgo.MessageEmbed{
		Title: "📜 Server Rules",
		Color: embedColor,
		Description: "**1.** Be respectful. No harassment, hate speech or personal attacks.\n" +
			"**2.** No spam, advertising or self-promotion without staff approval.\n" +
			"**3.** Keep content in the right channels.\n" +
			"**4.** No NSFW content anywhere.\n" +
			"**5.** Follow the staff's instructions.\n" +
			"**6.** Use English in public channels.\n\n" +
			"Breaking the rules may lead to a warning, mute or ban.",
	}
	return b.replyEmbed(ctx, embed)
}

func (b *Bot) replyEmbed(ctx *command.Context, embed *discordgo.MessageEmbed) error {
	if _, err := ctx.Session.ChannelMessageSendEmbed(ctx.ChannelID, embed); err != nil {
		b.log.Warn().Str("channel", ctx.ChannelID).Err(err).Msg("failed to send embed")
	}
	return nil
}

// rotateActivity cycles the bot presence on a fixed interval.
func (b *Bot) rotateActivity(ctx context.Context) {
	activities := []discordgo.Activity{
		{Name: "KingsRock Official Server | " + b.cfg.CommandPrefix + "help", Type: discordgo.ActivityTypeWatching},
		{Name: "your requests | " + b.cfg.CommandPrefix + "play", Type: discordgo.ActivityTypeListening},
		{Name: "with the queue", Type: discordgo.ActivityTypeGame},
		{Name: "recruitment applications", Type: discordgo.ActivityTypeWatching},
		{Name: "scrims and tournaments", Type: discordgo.ActivityTypeCompeting},
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			act := activities[i%len(activities)]
			i++
			err := b.dg.UpdateStatusComplex(discordgo.UpdateStatusData{
				Activities: []*discordgo.Activity{&act},
				Status:     string(discordgo.StatusOnline),
			})
			if err != nil {
				b.log.Debug().Err(err).Msg("failed to update presence")
			}
		}
	}
}
