package tracking

import (
	"slices"
	"time"
)

// The marker members have to attach to a check message
const AffirmativeEmoji = "✅"

// Record is one active reaction check tied to one posted message
type Record struct {
	MessageID string
	GuildID   string
	ChannelID string
	EndTime   time.Time
	Initiator string
	Roster    []string
	TestMode  bool
}

// NewRecord builds the record for a check posted at start that lasts for duration.
// The roster is copied and deduplicated, keeping the first occurrence of every member
func NewRecord(messageID, guildID, channelID, initiator string, roster []string, start time.Time, duration time.Duration, testMode bool) Record {
	seen := make(map[string]struct{}, len(roster))
	members := make([]string, 0, len(roster))
	for _, member := range roster {
		if _, ok := seen[member]; ok {
			continue
		}
		seen[member] = struct{}{}
		members = append(members, member)
	}
	return Record{
		MessageID: messageID,
		GuildID:   guildID,
		ChannelID: channelID,
		EndTime:   start.UTC().Add(duration),
		Initiator: initiator,
		Roster:    members,
		TestMode:  testMode,
	}
}

// A record has expired once now reaches its end time
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.EndTime)
}

func (r Record) clone() Record {
	r.Roster = slices.Clone(r.Roster)
	return r
}
