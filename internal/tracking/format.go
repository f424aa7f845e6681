package tracking

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	// Entries in one embed field
	PageSize = 20
	// Fields of entries in one embed, keeps a full report under the embed size limit
	PagesPerEmbed = 5
)

const (
	colorRed    = 0xe74c3c
	colorOrange = 0xe67e22
	colorGreen  = 0x2ecc71
)

// Report is everything needed to render the non-reactor report of one check
type Report struct {
	NonReactors []string
	TestMode    bool
	Period      string
	JumpURL     string
	Time        time.Time
}

// Paginate splits entries into consecutive pages of at most size entries
func Paginate[T any](entries []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	pages := make([][]T, 0, (len(entries)+size-1)/size)
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		pages = append(pages, entries[start:end])
	}
	return pages
}

// PageName labels the page at index out of total pages.
// The first page is plain, every continuation is numbered
func PageName(index, total int) string {
	if index == 0 {
		return "Non-Reactors"
	}
	return fmt.Sprintf("Non-Reactors (cont. %d/%d)", index+1, total)
}

func ReportEntry(userID string) string {
	return fmt.Sprintf("• <@%s> (ID: %s)", userID, userID)
}

// ReportEmbeds renders a report as one or more embeds.
// The link to the original message goes on the last one
func ReportEmbeds(report Report) []*discordgo.MessageEmbed {
	entries := make([]string, len(report.NonReactors))
	for i, userID := range report.NonReactors {
		entries[i] = ReportEntry(userID)
	}
	pages := Paginate(entries, PageSize)

	title := "⚠️ Non-Reactors Report"
	color := colorRed
	if report.TestMode {
		title = "🧪 TEST " + title
		color = colorOrange
	}
	timestamp := report.Time.UTC().Format(time.RFC3339)

	groups := Paginate(pages, PagesPerEmbed)
	if len(groups) == 0 {
		groups = [][][]string{{}}
	}
	embeds := make([]*discordgo.MessageEmbed, 0, len(groups))
	for g, group := range groups {
		embed := &discordgo.MessageEmbed{
			Title:     title,
			Color:     color,
			Timestamp: timestamp,
		}
		if g == 0 {
			embed.Description = fmt.Sprintf("**%d member(s)** did not react within %s", len(report.NonReactors), report.Period)
		} else {
			embed.Title = fmt.Sprintf("%s (cont.)", title)
		}
		for p, page := range group {
			index := g*PagesPerEmbed + p
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   PageName(index, len(pages)),
				Value:  strings.Join(page, "\n"),
				Inline: false,
			})
		}
		embeds = append(embeds, embed)
	}

	last := embeds[len(embeds)-1]
	last.Fields = append(last.Fields, &discordgo.MessageEmbedField{
		Name:   "Original Message",
		Value:  fmt.Sprintf("[Jump to message](%s)", report.JumpURL),
		Inline: false,
	})
	return embeds
}

// ConcludedEmbed replaces the check embed once the check is over
func ConcludedEmbed(now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✅ Activity Check Concluded",
		Description: "This activity check has concluded. Thank you for participating!",
		Color:       colorGreen,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Tracking completed"},
	}
}

func JumpURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

// FormatDuration writes a duration the way people say it: "24 hours", "20 seconds"
func FormatDuration(d time.Duration) string {
	unit := func(n int64, name string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", name)
		}
		return fmt.Sprintf("%d %ss", n, name)
	}
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return unit(int64(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return unit(int64(d/time.Minute), "minute")
	default:
		return unit(int64(d/time.Second), "second")
	}
}
