package recruitment

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/kingsrock/kingsbot/internal/command"
)

type statusStyle struct {
	emoji   string
	color   int
	message string
}

var statusStyles = map[string]statusStyle{
	"pending": {
		emoji:   "⏳",
		color:   0xFEE75C,
		message: "Your application is **pending** review. Our admins will get to it shortly!",
	},
	"reviewed": {
		emoji:   "🔎",
		color:   0x5865F2,
		message: "Your application has been **reviewed** by our admins. A decision will be made soon!",
	},
	"accepted": {
		emoji:   "🎉",
		color:   0x57F287,
		message: "Congratulations! Your trial application has been **accepted**! Welcome to KingsRock Esports!",
	},
	"rejected": {
		emoji:   "😞",
		color:   0xED4245,
		message: "Unfortunately, your application has been **rejected**. Feel free to apply again in the future!",
	},
}

// Status handles the trial-status command: look up the user's most
// recent application and render it.
func (f *Flow) Status(ctx *command.Context) error {
	s, m := ctx.Session, ctx.Message

	app, err := f.store.LatestApplicationByUser(ctx.Ctx, ctx.AuthorID)
	if err != nil {
		f.log.Error().Err(err).Msg("failed to query application")
		_, _ = s.ChannelMessageSendReply(ctx.ChannelID, "❌ An error occurred. Please try again later.", m.Reference())
		return err
	}

	if app == nil {
		_, err := s.ChannelMessageSendEmbedReply(ctx.ChannelID, &discordgo.MessageEmbed{
			Color: 0x5865F2,
			Title: "📄 Trial Application Status",
			Description: "You haven't submitted a trial application yet.\n\n" +
				"💡 Use `!recruitment` to apply for a trial position!",
			Footer: &discordgo.MessageEmbedFooter{Text: "KingsRock Esports"},
		}, m.Reference())
		return err
	}

	status := strings.ToLower(app.Status)
	style, ok := statusStyles[status]
	if !ok {
		status, style = "pending", statusStyles["pending"]
	}

	_, err = s.ChannelMessageSendEmbedReply(ctx.ChannelID, &discordgo.MessageEmbed{
		Color:       style.color,
		Title:       fmt.Sprintf("%s Trial Application Status", style.emoji),
		Description: style.message,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "IGN", Value: app.IGN, Inline: true},
			{Name: "Role", Value: orNA(app.Role), Inline: true},
			{Name: "Rank", Value: orNA(app.Rank), Inline: true},
			{Name: "Status", Value: fmt.Sprintf("%s **%s**", style.emoji, capitalize(status)), Inline: true},
			{Name: "Submitted", Value: app.CreatedAt.Format("Jan 2, 2006 15:04"), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "KingsRock Esports • Status updates are managed by our KR Admins"},
	}, m.Reference())
	return err
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
