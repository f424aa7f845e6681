package tracking

import (
	"context"
	"errors"
	"slices"
	"time"

	"reactcheck/internal/common"
	"reactcheck/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Outcome of processing one expired record
type Outcome int

const (
	// The check message, its channel or its guild was gone
	OutcomeSkipped Outcome = iota
	// Nothing to report, or nowhere to report it
	OutcomeNoReport
	OutcomeReported
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNoReport:
		return "no_report"
	case OutcomeReported:
		return "reported"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// NonReactors returns the members of the roster that are not among the reactors,
// in roster order and without duplicates
func NonReactors(roster []string, reactors []string) []string {
	reacted := make(map[string]struct{}, len(reactors))
	for _, reactor := range reactors {
		reacted[reactor] = struct{}{}
	}
	nonReactors := []string{}
	for _, member := range roster {
		if _, ok := reacted[member]; ok {
			continue
		}
		// Mark as seen so a repeated roster entry shows up once
		reacted[member] = struct{}{}
		nonReactors = append(nonReactors, member)
	}
	return nonReactors
}

// Reporter turns an expired record into a report and concludes the check message
type Reporter struct {
	platform      Platform
	channels      ReportChannels
	roleID        string
	trackDuration time.Duration
	testDuration  time.Duration
	clock         common.Clock
}

// NewReporter creates a reporter. Only members holding roleID are reported;
// an empty roleID reports every non-reactor still in the guild
func NewReporter(platform Platform, channels ReportChannels, roleID string, trackDuration, testDuration time.Duration, clock common.Clock) *Reporter {
	return &Reporter{
		platform:      platform,
		channels:      channels,
		roleID:        roleID,
		trackDuration: trackDuration,
		testDuration:  testDuration,
		clock:         clock,
	}
}

func (rp *Reporter) Generate(ctx context.Context, record Record) Outcome {
	logger := log.With().Str("check", record.MessageID).Str("guild", record.GuildID).Logger()

	// Resolve guild, channel and message. Any of them missing ends the check here
	if err := rp.platform.Guild(ctx, record.GuildID); err != nil {
		logger.Warn().Err(err).Msg("Guild of the check is gone, skipping report")
		return OutcomeSkipped
	}
	if err := rp.platform.Channel(ctx, record.ChannelID); err != nil {
		logger.Warn().Err(err).Str("channel", record.ChannelID).Msg("Channel of the check is gone, skipping report")
		return OutcomeSkipped
	}
	if _, err := rp.platform.Message(ctx, record.ChannelID, record.MessageID); err != nil {
		logger.Warn().Err(err).Msg("Check message is gone, skipping report")
		return OutcomeSkipped
	}

	outcome := rp.report(ctx, logger, record)
	rp.conclude(ctx, logger, record)
	return outcome
}

func (rp *Reporter) report(ctx context.Context, logger zerolog.Logger, record Record) Outcome {

	reactors, err := rp.platform.Reactors(ctx, record.ChannelID, record.MessageID, AffirmativeEmoji)
	if err != nil {
		logger.Error().Err(err).Msg("Could not read the reactions of the check")
		return OutcomeFailed
	}

	nonReactors := NonReactors(record.Roster, reactors)
	if len(nonReactors) == 0 {
		logger.Info().Msg("Everyone reacted, no report needed")
		return OutcomeNoReport
	}

	channelID, ok := rp.channels.ReportChannel(record.GuildID)
	if !ok {
		logger.Warn().Msg("No report channel set for guild")
		return OutcomeNoReport
	}

	members, err := rp.roleHolders(ctx, record.GuildID, nonReactors)
	if err != nil {
		logger.Error().Err(err).Msg("Could not read the roles of the non-reactors")
		return OutcomeFailed
	}
	if len(members) == 0 {
		logger.Info().Int("nonReactors", len(nonReactors)).Msg("No member with the tracked role failed to react")
		return OutcomeNoReport
	}

	period := FormatDuration(rp.trackDuration)
	if record.TestMode {
		period = FormatDuration(rp.testDuration)
	}
	embeds := ReportEmbeds(Report{
		NonReactors: members,
		TestMode:    record.TestMode,
		Period:      period,
		JumpURL:     JumpURL(record.GuildID, record.ChannelID, record.MessageID),
		Time:        rp.clock.Now(),
	})
	for _, embed := range embeds {
		if err := rp.platform.SendEmbed(ctx, channelID, embed); err != nil {
			logger.Error().Err(err).Str("channel", channelID).Msg("Could not post the report")
			return OutcomeFailed
		}
		metrics.ReportsSent.Inc()
	}
	logger.Info().Int("nonReactors", len(members)).Str("channel", channelID).Msg("Posted non-reactors report")
	return OutcomeReported
}

// roleHolders keeps the members that are still in the guild and hold the tracked role
func (rp *Reporter) roleHolders(ctx context.Context, guildID string, userIDs []string) ([]string, error) {
	members := []string{}
	for _, userID := range userIDs {
		roles, present, err := rp.platform.MemberRoles(ctx, guildID, userID)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		if rp.roleID == "" || slices.Contains(roles, rp.roleID) {
			members = append(members, userID)
		}
	}
	return members, nil
}

func (rp *Reporter) conclude(ctx context.Context, logger zerolog.Logger, record Record) {
	err := rp.platform.Conclude(ctx, record.ChannelID, record.MessageID, ConcludedEmbed(rp.clock.Now()))
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Warn().Err(err).Msg("Check message vanished before it could be concluded")
	case err != nil:
		logger.Error().Err(err).Msg("Could not update the check message")
	default:
		logger.Info().Msg("Activity check concluded")
	}
}
