package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	COMMAND_TRACK      = iota
	COMMAND_TESTTRACK  = iota
	COMMAND_CANCEL     = iota
	COMMAND_CANCELALL  = iota
	COMMAND_SETCHANNEL = iota
	COMMAND_LIST       = iota
	COMMAND_HELP       = iota
)

const (
	PARSEID_OK                     = iota
	PARSEID_NO_BOT_PREFIX          = iota
	PARSEID_NO_COMMAND             = iota
	PARSEID_COMMAND_NOT_RECOGNISED = iota
	PARSEID_NO_INPUT               = iota
	PARSEID_NOT_A_MESSAGE_ID       = iota
)

var errorMessages map[int]string = map[int]string{
	PARSEID_NO_COMMAND:             "No command provided",
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_NO_INPUT:               "Command `%s` requires an argument",
	PARSEID_NOT_A_MESSAGE_ID:       "Invalid message ID! Please provide a valid number.",
}

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
	arguments    interface{}
}

// Ignored tells if the message should get no answer at all:
// it is not for the bot, or it names no command the bot knows
func (result ParseResult) Ignored() bool {
	switch result.parseid {
	case PARSEID_NO_BOT_PREFIX, PARSEID_NO_COMMAND, PARSEID_COMMAND_NOT_RECOGNISED:
		return true
	}
	return false
}

func Parse(prefix string, message string) ParseResult {

	// The message has to start with the bot prefix
	if !strings.HasPrefix(message, prefix) {
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}

	// Get the command if valid
	words := strings.Fields(message[len(prefix):])
	if len(words) == 0 {
		parseid := PARSEID_NO_COMMAND
		return ParseResult{parseid: parseid, errorMessage: errorMessages[parseid]}
	}
	commandString := strings.ToLower(words[0])
	words = words[1:]

	// Match the command
	switch commandString {
	case "track":
		// !track
		return ParseResult{command: COMMAND_TRACK, parseid: PARSEID_OK}
	case "testtrack":
		// !testtrack
		return ParseResult{command: COMMAND_TESTTRACK, parseid: PARSEID_OK}
	case "cancel":
		// !cancel <message_id>
		command := COMMAND_CANCEL
		if len(words) == 0 {
			parseid := PARSEID_NO_INPUT
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
		}
		return parseMessageId(command, words[0])
	case "cancelall":
		// !cancelall
		return ParseResult{command: COMMAND_CANCELALL, parseid: PARSEID_OK}
	case "setchannel":
		// !setchannel
		return ParseResult{command: COMMAND_SETCHANNEL, parseid: PARSEID_OK}
	case "list":
		// !list
		return ParseResult{command: COMMAND_LIST, parseid: PARSEID_OK}
	case "help":
		// !help
		return ParseResult{command: COMMAND_HELP, parseid: PARSEID_OK}
	default:
		log.Debug().Str("command", commandString).Msg("Ignoring unknown command")
		parseid := PARSEID_COMMAND_NOT_RECOGNISED
		return ParseResult{parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}
}

// Message ids are snowflakes: unsigned 64 bit numbers
func parseMessageId(command int, word string) ParseResult {
	if _, err := strconv.ParseUint(word, 10, 64); err != nil {
		parseid := PARSEID_NOT_A_MESSAGE_ID
		return ParseResult{command: command, parseid: parseid, errorMessage: errorMessages[parseid]}
	}
	return ParseResult{command: command, parseid: PARSEID_OK, arguments: word}
}
