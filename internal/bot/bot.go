package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reactcheck/internal/common"
	"reactcheck/internal/config"
	"reactcheck/internal/metrics"
	"reactcheck/internal/tracking"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

var errMissingPermissions = errors.New("missing administrator permissions")

// Invocation is a command message, with only what the commands look at
type Invocation struct {
	GuildID    string
	ChannelID  string
	AuthorID   string
	AuthorName string
	Content    string
}

type Bot struct {
	settings  *config.Settings
	platform  Platform
	store     *config.Store
	registry  *tracking.Registry
	scheduler *tracking.Scheduler
	limiter   *common.RateLimiter
	clock     common.Clock

	// Context of Run, set before any handler is registered
	ctx context.Context
}

func NewBot(settings *config.Settings, platform Platform, store *config.Store, clock common.Clock) *Bot {

	bot := &Bot{
		settings: settings,
		platform: platform,
		store:    store,
		registry: tracking.NewRegistry(),
		limiter:  common.NewRateLimiter(settings.StartLimit, clock),
		clock:    clock,
		ctx:      context.Background(),
	}
	reporter := tracking.NewReporter(platform, store, settings.RoleID, settings.TrackDuration, settings.TestDuration, clock)
	bot.scheduler = tracking.NewScheduler(bot.registry, reporter, clock, settings.PollInterval, settings.ReportWorkers)
	return bot
}

// Run connects to Discord and serves commands until ctx is done
func Run(ctx context.Context, token string, settings *config.Settings) error {

	// Create session
	discord, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("could not create discord session: %w", err)
	}
	discord.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentMessageContent

	store := config.LoadStore(settings.ConfigFile)
	bot := NewBot(settings, NewDiscordPlatform(discord), store, common.SystemClock{})
	bot.ctx = ctx

	// Event handlers
	discord.AddHandler(bot.Ready)
	discord.AddHandler(bot.Receive)

	if settings.MetricsAddr != "" {
		server := metrics.NewServer(settings.MetricsAddr)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Could not stop the metrics server")
			}
		}()
	}

	// Open session
	if err := discord.Open(); err != nil {
		return fmt.Errorf("could not open discord connection: %w", err)
	}
	defer discord.Close()

	// Keep the bot running until the context is cancelled
	log.Info().Msg("Bot is running")
	<-ctx.Done()
	log.Info().Msg("Shutting down")
	bot.scheduler.Stop()
	return nil
}

// Ready starts the scheduler the first time the gateway connection is ready
func (bot *Bot) Ready(discord *discordgo.Session, ready *discordgo.Ready) {
	log.Info().Str("user", ready.User.Username).Str("id", ready.User.ID).Int("guilds", len(ready.Guilds)).Msg("Connected to Discord")

	if err := bot.scheduler.Start(bot.ctx); err != nil {
		log.Error().Err(err).Msg("Could not start the tracking scheduler")
	}
}

func (bot *Bot) Receive(discord *discordgo.Session, message *discordgo.MessageCreate) {

	// Reject my own messages and the ones from other bots
	if message.Author == nil || message.Author.Bot {
		return
	}
	if discord.State != nil && discord.State.User != nil && message.Author.ID == discord.State.User.ID {
		return
	}

	bot.Handle(bot.ctx, Invocation{
		GuildID:    message.GuildID,
		ChannelID:  message.ChannelID,
		AuthorID:   message.Author.ID,
		AuthorName: message.Author.Username,
		Content:    message.Content,
	})
}

// Handle parses a command message, runs the command and sends the answers
func (bot *Bot) Handle(ctx context.Context, invocation Invocation) {

	parseResult := Parse(bot.settings.Prefix, invocation.Content)
	if parseResult.Ignored() {
		return
	}

	// Every command needs a server
	if invocation.GuildID == "" {
		log.Debug().Str("author", invocation.AuthorID).Msg("Ignoring command sent in a private message")
		bot.sendResponses(ctx, invocation.ChannelID, GuildOnly())
		return
	}

	if parseResult.parseid != PARSEID_OK {
		log.Debug().Str("content", invocation.Content).Str("reason", parseResult.errorMessage).Msg("Wrong input")
		bot.sendResponses(ctx, invocation.ChannelID, InputNotValid(parseResult.errorMessage))
		return
	}

	log.Debug().Str("content", invocation.Content).Str("guild", invocation.GuildID).Msg("Command understood")
	responses, err := bot.execute(ctx, invocation, parseResult)
	if err != nil {
		responses = bot.commandError(invocation, err)
	}
	bot.sendResponses(ctx, invocation.ChannelID, responses)
}

func (bot *Bot) execute(ctx context.Context, invocation Invocation, parseResult ParseResult) ([]Response, error) {
	switch parseResult.command {
	case COMMAND_TRACK:
		return bot.track(ctx, invocation, false)
	case COMMAND_TESTTRACK:
		return bot.track(ctx, invocation, true)
	case COMMAND_CANCEL:
		messageId, ok := parseResult.arguments.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected type of message id %T", parseResult.arguments)
		}
		return bot.cancel(invocation, messageId), nil
	case COMMAND_CANCELALL:
		return bot.cancelAll(invocation), nil
	case COMMAND_SETCHANNEL:
		return bot.setChannel(ctx, invocation)
	case COMMAND_LIST:
		return ActiveChecks(bot.registry.ByGuild(invocation.GuildID), bot.clock.Now()), nil
	case COMMAND_HELP:
		return HelpMessage(bot.settings.Prefix), nil
	default:
		return nil, fmt.Errorf("command %d is not one of the possible ones", parseResult.command)
	}
}

// commandError decides what the author gets to see when a command fails
func (bot *Bot) commandError(invocation Invocation, err error) []Response {
	if errors.Is(err, errMissingPermissions) {
		log.Info().Str("author", invocation.AuthorID).Str("guild", invocation.GuildID).Msg("Rejected command for missing permissions")
		return MissingPermissions()
	}
	log.Error().Err(err).Str("content", invocation.Content).Str("guild", invocation.GuildID).Msg("Error running command")
	return CommandFailed()
}

func (bot *Bot) sendResponses(ctx context.Context, channelId string, responses []Response) {
	for _, response := range responses {
		if err := bot.platform.Send(ctx, channelId, response.Message()); err != nil {
			log.Error().Err(err).Str("channel", channelId).Msg("Could not send response")
		}
	}
}

func (bot *Bot) track(ctx context.Context, invocation Invocation, testMode bool) ([]Response, error) {

	analysis := bot.limiter.Allow(invocation.GuildID)
	if !analysis.Allowed {
		return TooManyChecks(analysis.Wait), nil
	}

	duration := bot.settings.TrackDuration
	mode := "normal"
	if testMode {
		duration = bot.settings.TestDuration
		mode = "test"
	}

	// Take the roster before posting, so a failure leaves no orphan check message
	roster, err := bot.platform.Roster(ctx, invocation.GuildID)
	if err != nil {
		return nil, err
	}

	now := bot.clock.Now()
	embed := CheckEmbed(testMode, tracking.FormatDuration(duration), invocation.AuthorName, now)
	messageId, err := bot.platform.PostCheck(ctx, invocation.ChannelID, embed)
	if err != nil {
		return nil, err
	}

	record := tracking.NewRecord(messageId, invocation.GuildID, invocation.ChannelID, invocation.AuthorID, roster, now, duration, testMode)
	bot.registry.Insert(record)
	metrics.ChecksStarted.WithLabelValues(mode).Inc()
	metrics.ActiveChecks.Set(float64(bot.registry.Len()))

	log.Info().
		Str("check", messageId).
		Str("guild", invocation.GuildID).
		Str("mode", mode).
		Int("members", len(record.Roster)).
		Time("end", record.EndTime).
		Msg("Started tracking")
	return nil, nil
}

func (bot *Bot) cancel(invocation Invocation, messageId string) []Response {
	if !bot.registry.Remove(messageId) {
		return NoActiveTracking()
	}
	metrics.ChecksCancelled.Inc()
	metrics.ActiveChecks.Set(float64(bot.registry.Len()))
	log.Info().Str("check", messageId).Str("author", invocation.AuthorName).Msg("Tracking cancelled")
	return TrackingCancelled(messageId)
}

func (bot *Bot) cancelAll(invocation Invocation) []Response {
	count := bot.registry.Clear()
	if count == 0 {
		return NoActiveSessions()
	}
	metrics.ChecksCancelled.Add(float64(count))
	metrics.ActiveChecks.Set(0)
	log.Info().Int("count", count).Str("author", invocation.AuthorName).Msg("All tracking sessions cancelled")
	return AllTrackingCancelled(count)
}

func (bot *Bot) setChannel(ctx context.Context, invocation Invocation) ([]Response, error) {

	admin, err := bot.platform.IsAdministrator(ctx, invocation.GuildID, invocation.AuthorID, invocation.ChannelID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, errMissingPermissions
	}

	saved := true
	if err := bot.store.SetReportChannel(invocation.GuildID, invocation.ChannelID); err != nil {
		log.Error().Err(err).Msg("Error saving config")
		saved = false
	}
	log.Info().Str("guild", invocation.GuildID).Str("channel", invocation.ChannelID).Msg("Report channel set")
	return ReportChannelSet(invocation.ChannelID, saved), nil
}
