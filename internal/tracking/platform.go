package tracking

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
)

// ErrNotFound is returned by a Platform when a guild, channel or message no longer exists
var ErrNotFound = errors.New("not found")

// Platform is what report generation needs from the chat platform
type Platform interface {
	Guild(ctx context.Context, guildID string) error
	Channel(ctx context.Context, channelID string) error
	Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	// Reactors returns the ids of the non-bot users that reacted with emoji
	Reactors(ctx context.Context, channelID, messageID, emoji string) ([]string, error)
	// MemberRoles returns the roles of a member, and false if the user is no longer in the guild
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, bool, error)
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
	// Conclude replaces the embed of a check message and strips its reactions
	Conclude(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error
}

// ReportChannels tells where the reports of a guild go
type ReportChannels interface {
	ReportChannel(guildID string) (string, bool)
}
