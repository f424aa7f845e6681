package bot

import (
	"github.com/bwmarrin/discordgo"
)

type ResponseString struct {
	string
}
type ResponseEmbed struct {
	*discordgo.MessageEmbed
}

// A response is one message the bot sends back to the channel of a command
type Response interface {
	Message() *discordgo.MessageSend
}

func (response ResponseString) Message() *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: response.string}
}

func (response ResponseEmbed) Message() *discordgo.MessageSend {
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{response.MessageEmbed}}
}
