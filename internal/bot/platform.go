package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"reactcheck/internal/tracking"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Page sizes allowed by the Discord API
const (
	reactionsPage = 100
	membersPage   = 1000
)

// Platform is everything the commands and the reports need from Discord
type Platform interface {
	tracking.Platform
	// PostCheck sends the check embed and attaches the affirmative marker to it
	PostCheck(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (string, error)
	// Roster lists the non-bot members of a guild
	Roster(ctx context.Context, guildID string) ([]string, error)
	IsAdministrator(ctx context.Context, guildID, userID, channelID string) (bool, error)
	Send(ctx context.Context, channelID string, message *discordgo.MessageSend) error
}

type discordPlatform struct {
	session *discordgo.Session
}

func NewDiscordPlatform(session *discordgo.Session) Platform {
	return &discordPlatform{session: session}
}

// notFound turns the "unknown ..." answers of the API into tracking.ErrNotFound
func notFound(err error, what string, id string) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", tracking.ErrNotFound, what, id)
	}
	return fmt.Errorf("could not fetch %s %s: %w", what, id, err)
}

func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMember
}

func (p *discordPlatform) Guild(ctx context.Context, guildID string) error {
	if _, err := p.session.State.Guild(guildID); err == nil {
		return nil
	}
	if _, err := p.session.Guild(guildID, discordgo.WithContext(ctx)); err != nil {
		return notFound(err, "guild", guildID)
	}
	return nil
}

func (p *discordPlatform) Channel(ctx context.Context, channelID string) error {
	if _, err := p.session.State.Channel(channelID); err == nil {
		return nil
	}
	if _, err := p.session.Channel(channelID, discordgo.WithContext(ctx)); err != nil {
		return notFound(err, "channel", channelID)
	}
	return nil
}

func (p *discordPlatform) Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	message, err := p.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, notFound(err, "message", messageID)
	}
	return message, nil
}

func (p *discordPlatform) Reactors(ctx context.Context, channelID, messageID, emoji string) ([]string, error) {
	reactors := []string{}
	after := ""
	for {
		users, err := p.session.MessageReactions(channelID, messageID, emoji, reactionsPage, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, notFound(err, "reactions of message", messageID)
		}
		for _, user := range users {
			if !user.Bot {
				reactors = append(reactors, user.ID)
			}
		}
		if len(users) < reactionsPage {
			return reactors, nil
		}
		after = users[len(users)-1].ID
	}
}

func (p *discordPlatform) MemberRoles(ctx context.Context, guildID, userID string) ([]string, bool, error) {
	if member, err := p.session.State.Member(guildID, userID); err == nil {
		return member.Roles, true, nil
	}
	member, err := p.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if isUnknownMember(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("could not fetch member %s: %w", userID, err)
	}
	return member.Roles, true, nil
}

func (p *discordPlatform) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	if _, err := p.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return notFound(err, "channel", channelID)
	}
	return nil
}

func (p *discordPlatform) Conclude(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error {
	if _, err := p.session.ChannelMessageEditEmbed(channelID, messageID, embed, discordgo.WithContext(ctx)); err != nil {
		return notFound(err, "message", messageID)
	}
	if err := p.session.MessageReactionsRemoveAll(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("could not clear reactions of message %s: %w", messageID, err)
	}
	return nil
}

func (p *discordPlatform) PostCheck(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (string, error) {
	message, err := p.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("could not post check: %w", err)
	}
	if err := p.session.MessageReactionAdd(channelID, message.ID, tracking.AffirmativeEmoji, discordgo.WithContext(ctx)); err != nil {
		log.Warn().Err(err).Str("check", message.ID).Msg("Could not add the affirmative reaction")
	}
	return message.ID, nil
}

func (p *discordPlatform) Roster(ctx context.Context, guildID string) ([]string, error) {
	roster := []string{}
	after := ""
	for {
		members, err := p.session.GuildMembers(guildID, after, membersPage, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("could not list members of guild %s: %w", guildID, err)
		}
		for _, member := range members {
			if member.User != nil && !member.User.Bot {
				roster = append(roster, member.User.ID)
			}
		}
		if len(members) < membersPage {
			return roster, nil
		}
		after = members[len(members)-1].User.ID
	}
}

func (p *discordPlatform) IsAdministrator(ctx context.Context, guildID, userID, channelID string) (bool, error) {
	permissions, err := p.session.State.UserChannelPermissions(userID, channelID)
	if err != nil {
		permissions, err = p.session.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
		if err != nil {
			return false, fmt.Errorf("could not compute permissions of user %s in guild %s: %w", userID, guildID, err)
		}
	}
	return permissions&discordgo.PermissionAdministrator != 0, nil
}

func (p *discordPlatform) Send(ctx context.Context, channelID string, message *discordgo.MessageSend) error {
	_, err := p.session.ChannelMessageSendComplex(channelID, message, discordgo.WithContext(ctx))
	return err
}
