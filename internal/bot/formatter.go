package bot

import (
	"fmt"
	"strings"
	"time"

	"reactcheck/internal/tracking"

	"github.com/bwmarrin/discordgo"
)

const (
	colorBlue   int = 0x3498db
	colorOrange int = 0xe67e22
	colorGreen  int = 0x2ecc71
	colorTeal   int = 0x008080
)

func CheckEmbed(testMode bool, period string, authorName string, now time.Time) *discordgo.MessageEmbed {

	embed := &discordgo.MessageEmbed{
		Title: "📋 Reaction Check",
		Description: fmt.Sprintf("Please react with %s to confirm you've seen this message!\n\n**You have %s to react.**",
			tracking.AffirmativeEmoji, period),
		Color:     colorBlue,
		Timestamp: now.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Started by %s", authorName)},
	}
	if testMode {
		embed.Title = "🧪 TEST Reaction Check"
		embed.Description = fmt.Sprintf("Please react with %s to confirm you've seen this message!\n\n**You have %s to react (TEST MODE)**",
			tracking.AffirmativeEmoji, period)
		embed.Color = colorOrange
		embed.Footer.Text += " | TEST MODE"
	}
	return embed
}

func InputNotValid(errorMessage string) []Response {
	return []Response{ResponseString{fmt.Sprintf("❌ %s", errorMessage)}}
}

func GuildOnly() []Response {
	return []Response{ResponseString{"This command can only be used in a server!"}}
}

func MissingPermissions() []Response {
	return []Response{ResponseString{"❌ You need Administrator permissions to use this command!"}}
}

func CommandFailed() []Response {
	return []Response{ResponseString{"❌ Something went wrong while running this command."}}
}

func TooManyChecks(wait time.Duration) []Response {
	seconds := int64(wait.Round(time.Second) / time.Second)
	return []Response{ResponseString{fmt.Sprintf("⏳ Too many checks started recently in this server. Try again in %d seconds.", max(seconds, 1))}}
}

func TrackingCancelled(messageId string) []Response {
	embed := discordgo.MessageEmbed{
		Title:       "✅ Tracking Cancelled",
		Description: fmt.Sprintf("Stopped tracking for message ID: `%s`", messageId),
		Color:       colorGreen,
	}
	return []Response{ResponseEmbed{&embed}}
}

func NoActiveTracking() []Response {
	return []Response{ResponseString{"❌ No active tracking found for that message ID!"}}
}

func AllTrackingCancelled(count int) []Response {
	embed := discordgo.MessageEmbed{
		Title:       "✅ All Tracking Cancelled",
		Description: fmt.Sprintf("Stopped tracking for **%d** active message(s)", count),
		Color:       colorGreen,
	}
	return []Response{ResponseEmbed{&embed}}
}

func NoActiveSessions() []Response {
	return []Response{ResponseString{"❌ No active tracking sessions to cancel!"}}
}

func ReportChannelSet(channelId string, saved bool) []Response {
	embed := discordgo.MessageEmbed{
		Title:       "✅ Report Channel Set",
		Description: fmt.Sprintf("Non-reactor reports will now be posted to <#%s>", channelId),
		Color:       colorGreen,
	}
	if !saved {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Could not save to disk: this setting will be lost on restart"}
	}
	return []Response{ResponseEmbed{&embed}}
}

func ActiveChecks(records []tracking.Record, now time.Time) []Response {

	embed := discordgo.MessageEmbed{Title: "Active reaction checks", Color: colorTeal}
	if len(records) == 0 {
		embed.Description = "There are no active checks in this server"
		return []Response{ResponseEmbed{&embed}}
	}

	lines := make([]string, 0, len(records))
	for _, record := range records {
		remaining := record.EndTime.Sub(now).Round(time.Second)
		if remaining < 0 {
			remaining = 0
		}
		line := fmt.Sprintf("`%s` in <#%s>, %d member(s), ends in %s", record.MessageID, record.ChannelID, len(record.Roster), remaining)
		if record.TestMode {
			line += " (test)"
		}
		lines = append(lines, line)
	}
	embed.Description = strings.Join(lines, "\n")
	return []Response{ResponseEmbed{&embed}}
}

func HelpMessage(prefix string) []Response {

	embed := discordgo.MessageEmbed{Title: "Commands available", Color: colorTeal}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%strack`", prefix),
		Value:  "Start a reaction check. Members who have not reacted when it ends are reported",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%stesttrack`", prefix),
		Value:  "Start a short reaction check to try things out",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%scancel <message_id>`", prefix),
		Value:  "Stop tracking one check",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%scancelall`", prefix),
		Value:  "Stop tracking every active check",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%ssetchannel`", prefix),
		Value:  "Post reports to this channel (administrators only)",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%slist`", prefix),
		Value:  "Print the active checks of this server",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%shelp`", prefix),
		Value:  "Print the usage of the different commands",
		Inline: false,
	})
	return []Response{ResponseEmbed{&embed}}
}
