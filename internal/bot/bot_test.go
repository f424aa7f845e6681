package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reactcheck/internal/common"
	"reactcheck/internal/config"
	"reactcheck/internal/tracking"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	guildID      = "guild"
	channelID    = "channel"
	reportsID    = "reports"
	trackedRole  = "role"
	adminID      = "admin"
	memberAuthor = "member"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type sent struct {
	channelID string
	message   *discordgo.MessageSend
}

// fakeDiscord plays one guild: it numbers posted checks and remembers every message sent
type fakeDiscord struct {
	mu sync.Mutex

	members   map[string][]string
	reactions map[string][]string
	posted    []string
	sent      []sent
	concluded []string
	nextID    int
	rosterErr error
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{members: map[string][]string{}, reactions: map[string][]string{}, nextID: 1000}
}

func (d *fakeDiscord) Guild(_ context.Context, id string) error {
	if id != guildID {
		return tracking.ErrNotFound
	}
	return nil
}

func (d *fakeDiscord) Channel(_ context.Context, id string) error {
	if id != channelID && id != reportsID {
		return tracking.ErrNotFound
	}
	return nil
}

func (d *fakeDiscord) Message(_ context.Context, channel, messageID string) (*discordgo.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range d.posted {
		if id == messageID {
			return &discordgo.Message{ID: messageID, ChannelID: channel}, nil
		}
	}
	return nil, tracking.ErrNotFound
}

func (d *fakeDiscord) Reactors(_ context.Context, _, messageID, _ string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reactions[messageID], nil
}

func (d *fakeDiscord) MemberRoles(_ context.Context, _, userID string) ([]string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	roles, ok := d.members[userID]
	return roles, ok, nil
}

func (d *fakeDiscord) SendEmbed(_ context.Context, channel string, embed *discordgo.MessageEmbed) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sent{channelID: channel, message: &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}})
	return nil
}

func (d *fakeDiscord) Conclude(_ context.Context, _, messageID string, _ *discordgo.MessageEmbed) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.concluded = append(d.concluded, messageID)
	return nil
}

func (d *fakeDiscord) PostCheck(_ context.Context, _ string, _ *discordgo.MessageEmbed) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := fmt.Sprintf("%d", d.nextID)
	d.nextID++
	d.posted = append(d.posted, id)
	return id, nil
}

func (d *fakeDiscord) Roster(_ context.Context, _ string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rosterErr != nil {
		return nil, d.rosterErr
	}
	roster := []string{}
	for userID := range d.members {
		roster = append(roster, userID)
	}
	return roster, nil
}

func (d *fakeDiscord) IsAdministrator(_ context.Context, _, userID, _ string) (bool, error) {
	return userID == adminID, nil
}

func (d *fakeDiscord) Send(_ context.Context, channel string, message *discordgo.MessageSend) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sent{channelID: channel, message: message})
	return nil
}

// takeSent returns the messages sent so far and forgets them
func (d *fakeDiscord) takeSent() []sent {
	d.mu.Lock()
	defer d.mu.Unlock()
	messages := d.sent
	d.sent = nil
	return messages
}

func text(message *discordgo.MessageSend) string {
	if message.Content != "" {
		return message.Content
	}
	parts := []string{}
	for _, embed := range message.Embeds {
		parts = append(parts, embed.Title, embed.Description)
	}
	return strings.Join(parts, "\n")
}

func newTestBot(t *testing.T) (*Bot, *fakeDiscord, *common.FakeClock) {
	t.Helper()
	settings := config.DefaultSettings()
	settings.RoleID = trackedRole
	settings.ConfigFile = filepath.Join(t.TempDir(), "config.json")
	discord := newFakeDiscord()
	clock := common.NewFakeClock(start)
	return NewBot(&settings, discord, config.LoadStore(settings.ConfigFile), clock), discord, clock
}

func command(content string, author string) Invocation {
	return Invocation{GuildID: guildID, ChannelID: channelID, AuthorID: author, AuthorName: author, Content: content}
}

func TestGuildOnly(t *testing.T) {
	bot, discord, _ := newTestBot(t)
	for _, content := range []string{"!track", "!cancel 1", "!cancelall", "!setchannel"} {
		bot.Handle(context.Background(), Invocation{ChannelID: "dm", AuthorID: memberAuthor, Content: content})
	}
	messages := discord.takeSent()
	require.Len(t, messages, 4)
	for _, message := range messages {
		assert.Equal(t, "This command can only be used in a server!", message.message.Content)
	}
	assert.Equal(t, 0, bot.registry.Len())
}

func TestIgnoredMessages(t *testing.T) {
	bot, discord, _ := newTestBot(t)
	bot.Handle(context.Background(), command("hello", memberAuthor))
	bot.Handle(context.Background(), command("!unknown", memberAuthor))
	bot.Handle(context.Background(), command("!", memberAuthor))
	assert.Empty(t, discord.takeSent())
}

func TestTrackAndCancel(t *testing.T) {
	ctx := context.Background()
	bot, discord, clock := newTestBot(t)
	discord.members["a"] = []string{trackedRole}
	discord.members["b"] = nil

	bot.Handle(ctx, command("!track", memberAuthor))
	assert.Empty(t, discord.takeSent())

	record, ok := bot.registry.Get("1000")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"a", "b"}, record.Roster)
	assert.True(t, clock.Now().Add(24*time.Hour).Equal(record.EndTime))
	assert.False(t, record.TestMode)
	assert.Equal(t, memberAuthor, record.Initiator)

	bot.Handle(ctx, command("!testtrack", memberAuthor))
	record, ok = bot.registry.Get("1001")
	require.True(t, ok)
	assert.True(t, record.TestMode)
	assert.True(t, clock.Now().Add(20*time.Second).Equal(record.EndTime))

	t.Run("list", func(t *testing.T) {
		bot.Handle(ctx, command("!list", memberAuthor))
		messages := discord.takeSent()
		require.Len(t, messages, 1)
		listing := text(messages[0].message)
		assert.Contains(t, listing, "`1000`")
		assert.Contains(t, listing, "`1001`")
		assert.Contains(t, listing, "(test)")
	})

	t.Run("cancel one", func(t *testing.T) {
		bot.Handle(ctx, command("!cancel 1000", memberAuthor))
		messages := discord.takeSent()
		require.Len(t, messages, 1)
		assert.Contains(t, text(messages[0].message), "Tracking Cancelled")
		_, ok := bot.registry.Get("1000")
		assert.False(t, ok)

		bot.Handle(ctx, command("!cancel 1000", memberAuthor))
		messages = discord.takeSent()
		require.Len(t, messages, 1)
		assert.Equal(t, "❌ No active tracking found for that message ID!", messages[0].message.Content)
	})

	t.Run("cancel malformed id", func(t *testing.T) {
		bot.Handle(ctx, command("!cancel abc", memberAuthor))
		messages := discord.takeSent()
		require.Len(t, messages, 1)
		assert.Equal(t, "❌ Invalid message ID! Please provide a valid number.", messages[0].message.Content)
		assert.Equal(t, 1, bot.registry.Len())
	})

	t.Run("cancel all", func(t *testing.T) {
		bot.Handle(ctx, command("!track", memberAuthor))
		bot.Handle(ctx, command("!cancelall", memberAuthor))
		messages := discord.takeSent()
		require.Len(t, messages, 1)
		assert.Contains(t, text(messages[0].message), "**2** active message(s)")
		assert.Equal(t, 0, bot.registry.Len())

		bot.Handle(ctx, command("!cancelall", memberAuthor))
		messages = discord.takeSent()
		require.Len(t, messages, 1)
		assert.Equal(t, "❌ No active tracking sessions to cancel!", messages[0].message.Content)
	})
}

func TestTrackIsThrottled(t *testing.T) {
	ctx := context.Background()
	bot, discord, clock := newTestBot(t)

	for i := 0; i < 5; i++ {
		bot.Handle(ctx, command("!testtrack", memberAuthor))
	}
	assert.Empty(t, discord.takeSent())
	assert.Equal(t, 5, bot.registry.Len())

	bot.Handle(ctx, command("!testtrack", memberAuthor))
	messages := discord.takeSent()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].message.Content, "Too many checks")
	assert.Equal(t, 5, bot.registry.Len())

	clock.Advance(time.Minute)
	bot.Handle(ctx, command("!testtrack", memberAuthor))
	assert.Equal(t, 6, bot.registry.Len())
}

func TestTrackRosterFailure(t *testing.T) {
	bot, discord, _ := newTestBot(t)
	discord.rosterErr = fmt.Errorf("gateway down")

	bot.Handle(context.Background(), command("!track", memberAuthor))

	messages := discord.takeSent()
	require.Len(t, messages, 1)
	assert.Equal(t, "❌ Something went wrong while running this command.", messages[0].message.Content)
	assert.Empty(t, discord.posted)
	assert.Equal(t, 0, bot.registry.Len())
}

func TestSetChannel(t *testing.T) {
	ctx := context.Background()
	bot, discord, _ := newTestBot(t)

	bot.Handle(ctx, command("!setchannel", memberAuthor))
	messages := discord.takeSent()
	require.Len(t, messages, 1)
	assert.Equal(t, "❌ You need Administrator permissions to use this command!", messages[0].message.Content)
	_, ok := bot.store.ReportChannel(guildID)
	assert.False(t, ok)

	invocation := command("!setchannel", adminID)
	invocation.ChannelID = reportsID
	bot.Handle(ctx, invocation)
	messages = discord.takeSent()
	require.Len(t, messages, 1)
	assert.Contains(t, text(messages[0].message), "<#reports>")

	channel, ok := config.LoadStore(bot.settings.ConfigFile).ReportChannel(guildID)
	require.True(t, ok)
	assert.Equal(t, reportsID, channel)
}

func TestHelp(t *testing.T) {
	bot, discord, _ := newTestBot(t)
	bot.Handle(context.Background(), command("!help", memberAuthor))
	messages := discord.takeSent()
	require.Len(t, messages, 1)
	require.Len(t, messages[0].message.Embeds, 1)
	assert.Len(t, messages[0].message.Embeds[0].Fields, 7)
}

func TestTestCheckEndToEnd(t *testing.T) {
	ctx := context.Background()
	bot, discord, clock := newTestBot(t)
	discord.members["A"] = []string{trackedRole}
	discord.members["B"] = []string{trackedRole}
	discord.members["C"] = []string{"other"}

	admin := command("!setchannel", adminID)
	admin.ChannelID = reportsID
	bot.Handle(ctx, admin)
	bot.Handle(ctx, command("!testtrack", memberAuthor))
	discord.takeSent()
	discord.reactions["1000"] = []string{"A"}

	clock.Advance(10 * time.Second)
	assert.Empty(t, bot.scheduler.Tick(ctx, clock.Now()))

	clock.Advance(10 * time.Second)
	assert.Equal(t, []string{"1000"}, bot.scheduler.Tick(ctx, clock.Now()))

	messages := discord.takeSent()
	require.Len(t, messages, 1)
	assert.Equal(t, reportsID, messages[0].channelID)
	report := messages[0].message.Embeds[0]
	require.Len(t, report.Fields, 2)
	assert.Equal(t, "• <@B> (ID: B)", report.Fields[0].Value)
	assert.Contains(t, report.Description, "20 seconds")
	assert.Equal(t, []string{"1000"}, discord.concluded)
	assert.Equal(t, 0, bot.registry.Len())
}
