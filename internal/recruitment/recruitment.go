// Package recruitment implements the trial-application flow: a linear DM
// questionnaire stored in the datastore, plus the status lookup command.
package recruitment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/kingsrock/kingsbot/internal/command"
	"github.com/kingsrock/kingsbot/internal/storage"
)

// questionTimeout is how long the applicant has per question.
const questionTimeout = 2 * time.Minute

type question struct {
	key      string
	prompt   string
	required bool
}

var questions = []question{
	{key: "surname", prompt: "**What is your Surname (Last Name)?**\n_(Type \"skip\" to skip)_"},
	{key: "ign", prompt: "**What is your In-Game Name (IGN)?**", required: true},
	{key: "role", prompt: "**What role do you play?**\n_(e.g., Duelist, Controller, Initiator, Sentinel)_\n_(Type \"skip\" to skip)_"},
	{key: "rank", prompt: "**What is your current rank?**\n_(e.g., Diamond 2, Immortal 1)_\n_(Type \"skip\" to skip)_"},
	{key: "tracker_link", prompt: "**Provide your Tracker link:**\n_(e.g., https://tracker.gg/valorant/profile/...)_\n_(Type \"skip\" to skip)_"},
}

var errCancelled = errors.New("application cancelled")

// Flow runs DM questionnaires. One questionnaire per user at a time;
// inbound DMs are matched to the waiting questionnaire by author.
type Flow struct {
	store           *storage.Storage
	channelID       string
	notifyChannelID string
	log             zerolog.Logger

	mu      sync.Mutex
	pending map[string]chan string
}

func New(store *storage.Storage, channelID, notifyChannelID string, log zerolog.Logger) *Flow {
	return &Flow{
		store:           store,
		channelID:       channelID,
		notifyChannelID: notifyChannelID,
		log:             log.With().Str("component", "recruitment").Logger(),
		pending:         make(map[string]chan string),
	}
}

// HandleDM feeds a direct message into an in-flight questionnaire.
// Returns true when the message was consumed as an answer.
func (f *Flow) HandleDM(userID, content string) bool {
	f.mu.Lock()
	ch, ok := f.pending[userID]
	f.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case ch <- content:
	default:
		// The questionnaire is between questions; drop the extra message.
	}
	return true
}

func (f *Flow) begin(userID string) (chan string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pending[userID]; ok {
		return nil, false
	}
	ch := make(chan string, 1)
	f.pending[userID] = ch
	return ch, true
}

func (f *Flow) end(userID string) {
	f.mu.Lock()
	delete(f.pending, userID)
	f.mu.Unlock()
}

// await blocks for the user's next DM answer or the per-question timeout.
func (f *Flow) await(ctx context.Context, ch chan string) (string, error) {
	select {
	case answer := <-ch:
		return strings.TrimSpace(answer), nil
	case <-time.After(questionTimeout):
		return "", fmt.Errorf("timed out waiting for an answer")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Apply handles the recruitment command end to end.
func (f *Flow) Apply(ctx *command.Context) error {
	s, m := ctx.Session, ctx.Message

	if ctx.ChannelID != f.channelID {
		_, err := s.ChannelMessageSendReply(ctx.ChannelID,
			fmt.Sprintf("❌ This command can only be used in <#%s>.", f.channelID), m.Reference())
		return err
	}

	active, err := f.store.RecruitmentActive(ctx.Ctx)
	if err != nil {
		f.log.Error().Err(err).Msg("failed to read recruitment status")
		_, _ = s.ChannelMessageSendReply(ctx.ChannelID, "❌ An error occurred. Please try again later.", m.Reference())
		return err
	}
	if !active {
		_, err := s.ChannelMessageSendEmbedReply(ctx.ChannelID, &discordgo.MessageEmbed{
			Color:       0xFF4444,
			Title:       "🚫 Recruitment Closed",
			Description: "Recruitment is currently **closed**. Please check back later!",
		}, m.Reference())
		return err
	}

	dm, err := s.UserChannelCreate(ctx.AuthorID)
	if err != nil {
		_, _ = s.ChannelMessageSendReply(ctx.ChannelID,
			"❌ I couldn't send you a DM. Please make sure your DMs are open and try again.", m.Reference())
		return nil
	}

	answers, ok := f.begin(ctx.AuthorID)
	if !ok {
		_, _ = s.ChannelMessageSendReply(ctx.ChannelID, "❌ You already have an application in progress. Check your DMs!", m.Reference())
		return nil
	}
	defer f.end(ctx.AuthorID)

	_, _ = s.ChannelMessageSendEmbedReply(ctx.ChannelID, &discordgo.MessageEmbed{
		Color:       0x5865F2,
		Title:       "📬 Recruitment Application Started",
		Description: fmt.Sprintf("<@%s>, check your DMs! I've sent you the application form.", ctx.AuthorID),
	}, m.Reference())

	_, err = s.ChannelMessageSendEmbed(dm.ID, &discordgo.MessageEmbed{
		Color: 0x5865F2,
		Title: "👑 KingsRock Esports — Recruitment Application",
		Description: "Welcome! Please answer the following questions to submit your trial application.\n\n" +
			"• You have **2 minutes** per question.\n" +
			"• Type **\"cancel\"** at any time to abort.\n" +
			"• Type **\"skip\"** to skip optional questions.\n\n" +
			"Let's get started! 🚀",
		Footer: &discordgo.MessageEmbedFooter{Text: "KingsRock Esports Recruitment"},
	})
	if err != nil {
		return fmt.Errorf("failed to open questionnaire: %w", err)
	}

	app, err := f.collect(ctx.Ctx, s, dm.ID, answers)
	if err != nil {
		if !errors.Is(err, errCancelled) {
			f.log.Warn().Str("user", ctx.AuthorID).Err(err).Msg("questionnaire aborted")
		}
		return nil
	}
	app.DiscordUsername = m.Author.Username
	app.DiscordUserID = ctx.AuthorID
	app.Status = "pending"

	if err := f.store.InsertApplication(ctx.Ctx, app); err != nil {
		f.log.Error().Err(err).Msg("failed to save application")
		_, _ = s.ChannelMessageSend(dm.ID, "❌ There was an error submitting your application. Please try again later.")
		return err
	}

	f.confirm(s, dm.ID, ctx.AuthorID, app)
	return nil
}

// collect walks the questionnaire and returns the filled application.
func (f *Flow) collect(ctx context.Context, s *discordgo.Session, dmID string, answers chan string) (*storage.Application, error) {
	app := &storage.Application{}

	for _, q := range questions {
		if _, err := s.ChannelMessageSend(dmID, q.prompt); err != nil {
			return nil, fmt.Errorf("failed to send question: %w", err)
		}

		answer, err := f.ask(ctx, s, dmID, q, answers)
		if err != nil {
			return nil, err
		}

		switch q.key {
		case "surname":
			app.Surname = nullable(answer)
		case "ign":
			app.IGN = answer
		case "role":
			app.Role = nullable(answer)
		case "rank":
			app.Rank = nullable(answer)
		case "tracker_link":
			app.TrackerLink = nullable(answer)
		}
	}
	return app, nil
}

// ask waits for one answer, handling cancel, skip and the required-field
// re-ask.
func (f *Flow) ask(ctx context.Context, s *discordgo.Session, dmID string, q question, answers chan string) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		answer, err := f.await(ctx, answers)
		if err != nil {
			_, _ = s.ChannelMessageSend(dmID, "⏰ You took too long to respond. Application cancelled.")
			return "", errCancelled
		}

		lower := strings.ToLower(answer)
		if answer == "" || lower == "cancel" {
			_, _ = s.ChannelMessageSend(dmID, "❌ Application cancelled.")
			return "", errCancelled
		}
		if lower == "skip" {
			if !q.required {
				return "", nil
			}
			_, _ = s.ChannelMessageSend(dmID, "⚠️ This field is required and cannot be skipped. Please provide an answer.")
			continue
		}
		return answer, nil
	}

	_, _ = s.ChannelMessageSend(dmID, "❌ Application cancelled.")
	return "", errCancelled
}

func (f *Flow) confirm(s *discordgo.Session, dmID, userID string, app *storage.Application) {
	_, err := s.ChannelMessageSendEmbed(dmID, &discordgo.MessageEmbed{
		Color:       0x57F287,
		Title:       "✅ Application Submitted Successfully!",
		Description: "Your trial application has been submitted to KingsRock Esports. Our admins will review it shortly.",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Surname", Value: orSkipped(app.Surname), Inline: true},
			{Name: "IGN", Value: app.IGN, Inline: true},
			{Name: "Role", Value: orSkipped(app.Role), Inline: true},
			{Name: "Rank", Value: orSkipped(app.Rank), Inline: true},
			{Name: "Tracker", Value: orSkipped(app.TrackerLink)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "KingsRock Esports • Good luck!"},
	})
	if err != nil {
		f.log.Warn().Err(err).Msg("failed to send DM confirmation")
	}

	if f.notifyChannelID == "" {
		return
	}
	_, err = s.ChannelMessageSendEmbed(f.notifyChannelID, &discordgo.MessageEmbed{
		Color:       0x57F287,
		Title:       "📋 New Recruitment Application",
		Description: fmt.Sprintf("<@%s> has submitted a trial application!", userID),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "IGN", Value: app.IGN, Inline: true},
			{Name: "Role", Value: orNA(app.Role), Inline: true},
			{Name: "Rank", Value: orNA(app.Rank), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Review this application on the KR Web Portal"},
	})
	if err != nil {
		f.log.Warn().Err(err).Msg("failed to notify recruitment channel")
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func orSkipped(s sql.NullString) string {
	if !s.Valid || s.String == "" {
		return "_Skipped_"
	}
	return s.String
}

func orNA(s sql.NullString) string {
	if !s.Valid || s.String == "" {
		return "N/A"
	}
	return s.String
}
