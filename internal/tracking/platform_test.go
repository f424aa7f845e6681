package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type sentEmbed struct {
	channelID string
	embed     *discordgo.MessageEmbed
}

// fakePlatform is an in-memory guild with one channel
type fakePlatform struct {
	mu sync.Mutex

	guildID   string
	channelID string
	messages  map[string]bool
	reactors  map[string][]string
	roles     map[string][]string

	reactorsErr error
	sendErr     error
	concludeErr error
	panicOn     string

	sent      []sentEmbed
	concluded []string
}

func newFakePlatform(guildID, channelID string) *fakePlatform {
	return &fakePlatform{
		guildID:   guildID,
		channelID: channelID,
		messages:  map[string]bool{},
		reactors:  map[string][]string{},
		roles:     map[string][]string{},
	}
}

func (p *fakePlatform) addMessage(messageID string, reactors ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[messageID] = true
	p.reactors[messageID] = reactors
}

func (p *fakePlatform) addMember(userID string, roles ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles[userID] = roles
}

func (p *fakePlatform) Guild(_ context.Context, guildID string) error {
	if guildID != p.guildID {
		return fmt.Errorf("%w: guild %s", ErrNotFound, guildID)
	}
	return nil
}

func (p *fakePlatform) Channel(_ context.Context, channelID string) error {
	if channelID != p.channelID {
		return fmt.Errorf("%w: channel %s", ErrNotFound, channelID)
	}
	return nil
}

func (p *fakePlatform) Message(_ context.Context, channelID, messageID string) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if messageID == p.panicOn {
		panic("message lookup exploded")
	}
	if !p.messages[messageID] {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (p *fakePlatform) Reactors(_ context.Context, _, messageID, emoji string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reactorsErr != nil {
		return nil, p.reactorsErr
	}
	if emoji != AffirmativeEmoji {
		return nil, nil
	}
	return append([]string(nil), p.reactors[messageID]...), nil
}

func (p *fakePlatform) MemberRoles(_ context.Context, _, userID string) ([]string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	roles, ok := p.roles[userID]
	return roles, ok, nil
}

func (p *fakePlatform) SendEmbed(_ context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, sentEmbed{channelID: channelID, embed: embed})
	return nil
}

func (p *fakePlatform) Conclude(_ context.Context, _, messageID string, _ *discordgo.MessageEmbed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.concludeErr != nil {
		return p.concludeErr
	}
	p.concluded = append(p.concluded, messageID)
	return nil
}

func (p *fakePlatform) sentEmbeds() []sentEmbed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentEmbed(nil), p.sent...)
}

func (p *fakePlatform) concludedMessages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.concluded...)
}

// reportedUsers lists every user mentioned in the entry fields of the sent reports
func (p *fakePlatform) reportedUsers() []string {
	users := []string{}
	for _, sent := range p.sentEmbeds() {
		for _, field := range sent.embed.Fields {
			if !strings.HasPrefix(field.Name, "Non-Reactors") {
				continue
			}
			for _, line := range strings.Split(field.Value, "\n") {
				start := strings.Index(line, "<@")
				end := strings.Index(line, ">")
				users = append(users, line[start+2:end])
			}
		}
	}
	return users
}

type reportChannels map[string]string

func (c reportChannels) ReportChannel(guildID string) (string, bool) {
	channelID, ok := c[guildID]
	return channelID, ok
}

var errBoom = errors.New("boom")
