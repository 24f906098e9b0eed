package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gamenight/internal/activities"
	"gamenight/internal/gamepool"

	"github.com/rs/zerolog/log"
)

const (
	COMMAND_STARTVOTE      = iota
	COMMAND_CANCELVOTE     = iota
	COMMAND_VOTESTATUS     = iota
	COMMAND_GAMEPOOL       = iota
	COMMAND_ADDGAME        = iota
	COMMAND_REMOVEGAME     = iota
	COMMAND_ADDACTIVITY    = iota
	COMMAND_REMOVEACTIVITY = iota
	COMMAND_ACTIVITIES     = iota
	COMMAND_SETCHANNEL     = iota
	COMMAND_WEEKLYPLAN     = iota
	COMMAND_HELP           = iota
	COMMAND_EDITGAME       = iota
	COMMAND_MANAGEACTIVITY = iota
)

const (
	ACTIVITY_TOGGLE = iota
	ACTIVITY_REMOVE = iota
	ACTIVITY_EDIT   = iota
)

const (
	PARSEID_OK                     = iota
	PARSEID_NO_BOT_PREFIX          = iota
	PARSEID_NO_COMMAND             = iota
	PARSEID_COMMAND_NOT_RECOGNISED = iota
	PARSEID_NO_INPUT               = iota
	PARSEID_NOT_A_NUMBER           = iota
	PARSEID_TOO_MANY_ARGUMENTS     = iota
	PARSEID_NOT_A_WEEKDAY          = iota
	PARSEID_UNKNOWN_FIELD          = iota
	PARSEID_UNKNOWN_ACTION         = iota
	PARSEID_NOT_A_SWITCH           = iota
)

var errorMessages map[int]string = map[int]string{
	PARSEID_NO_COMMAND:             "No command provided",
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_NO_INPUT:               "Command `%s` requires an argument",
	PARSEID_NOT_A_NUMBER:           "Input `%s` is not a number",
	PARSEID_TOO_MANY_ARGUMENTS:     "Command `%s` takes at most %d arguments",
	PARSEID_NOT_A_WEEKDAY:          "Input `%s` is not a day of the week",
	PARSEID_UNKNOWN_FIELD:          "Field `%s` cannot be edited, use one of %s",
	PARSEID_UNKNOWN_ACTION:         "Action `%s` not recognised, use toggle, remove or edit",
	PARSEID_NOT_A_SWITCH:           "Input `%s` is not on or off",
}

var gameFields = []string{"name", "description", "platform", "genre", "minplayers", "maxplayers", "active"}
var activityFields = []string{"name", "description", "location", "time", "weekday"}

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
	arguments    interface{}
}

// Nil means the configured default
type StartVoteArgs struct {
	Count *int
	Hours *int
}

type AddGameArgs struct {
	Name        string
	Description string
	Platform    string
	Genre       string
}

// Only the field being edited is set
type EditGameArgs struct {
	ID     string
	Edit   gamepool.GameEdit
	Active *bool
}

type ManageActivityArgs struct {
	Action int
	ID     string
	Edit   activities.ActivityEdit
}

type AddActivityArgs struct {
	Weekday time.Weekday
	Time    string
	Name    string
}

func Parse(prefix string, message string) ParseResult {

	noInput := func(command int, commandString string) ParseResult {
		parseid := PARSEID_NO_INPUT
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}

	// The message has to start with the bot prefix as a word of its own
	words := strings.Fields(message)
	if len(words) == 0 || words[0] != prefix {
		log.Debug().Msg("Reject message not intended for the bot")
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}
	words = words[1:]
	if len(words) == 0 {
		parseid := PARSEID_NO_COMMAND
		return ParseResult{parseid: parseid, errorMessage: errorMessages[parseid]}
	}
	commandString := strings.ToLower(words[0])
	words = words[1:]

	// Match the command
	switch commandString {
	case "startvote":
		// gamenight startvote [count] [hours]
		return parseStartVote(words)
	case "cancelvote":
		// gamenight cancelvote [reason...]
		return ParseResult{command: COMMAND_CANCELVOTE, parseid: PARSEID_OK, arguments: strings.Join(words, " ")}
	case "votestatus":
		return ParseResult{command: COMMAND_VOTESTATUS, parseid: PARSEID_OK}
	case "gamepool":
		return ParseResult{command: COMMAND_GAMEPOOL, parseid: PARSEID_OK}
	case "addgame":
		// gamenight addgame <name> [| description | platform | genre]
		command := COMMAND_ADDGAME
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		return parseAddGame(strings.Join(words, " "))
	case "editgame":
		// gamenight editgame <id> <field> <value>
		command := COMMAND_EDITGAME
		if len(words) < 3 {
			return noInput(command, commandString)
		}
		return parseEditGame(words)
	case "removegame":
		// gamenight removegame <id>
		command := COMMAND_REMOVEGAME
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: words[0]}
	case "addactivity":
		// gamenight addactivity <weekday> <HH:MM> <name>
		command := COMMAND_ADDACTIVITY
		if len(words) < 3 {
			return noInput(command, commandString)
		}
		return parseAddActivity(words)
	case "removeactivity":
		// gamenight removeactivity <id>
		command := COMMAND_REMOVEACTIVITY
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: words[0]}
	case "manageactivity":
		// gamenight manageactivity <toggle|remove|edit> <id> [<field> <value>]
		command := COMMAND_MANAGEACTIVITY
		if len(words) < 2 {
			return noInput(command, commandString)
		}
		return parseManageActivity(commandString, words)
	case "activities":
		return ParseResult{command: COMMAND_ACTIVITIES, parseid: PARSEID_OK}
	case "setchannel":
		// gamenight setchannel <channel_name>
		command := COMMAND_SETCHANNEL
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: strings.Join(words, " ")}
	case "weeklyplan":
		return ParseResult{command: COMMAND_WEEKLYPLAN, parseid: PARSEID_OK}
	case "help":
		return ParseResult{command: COMMAND_HELP, parseid: PARSEID_OK}
	default:
		parseid := PARSEID_COMMAND_NOT_RECOGNISED
		return ParseResult{parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}
}

func parseStartVote(words []string) ParseResult {

	command := COMMAND_STARTVOTE
	if len(words) > 2 {
		parseid := PARSEID_TOO_MANY_ARGUMENTS
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], "startvote", 2)}
	}
	numbers := make([]*int, 2)
	for i, word := range words {
		number, err := strconv.Atoi(word)
		if err != nil {
			parseid := PARSEID_NOT_A_NUMBER
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], word)}
		}
		numbers[i] = &number
	}
	return ParseResult{command: command, parseid: PARSEID_OK, arguments: StartVoteArgs{Count: numbers[0], Hours: numbers[1]}}
}

func parseAddGame(input string) ParseResult {

	fields := strings.Split(input, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	// Pad the optional fields
	for len(fields) < 4 {
		fields = append(fields, "")
	}
	args := AddGameArgs{Name: fields[0], Description: fields[1], Platform: fields[2], Genre: fields[3]}
	return ParseResult{command: COMMAND_ADDGAME, parseid: PARSEID_OK, arguments: args}
}

func parseAddActivity(words []string) ParseResult {

	command := COMMAND_ADDACTIVITY
	weekday, err := activities.ParseWeekday(words[0])
	if err != nil {
		parseid := PARSEID_NOT_A_WEEKDAY
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], words[0])}
	}
	args := AddActivityArgs{Weekday: weekday, Time: words[1], Name: strings.Join(words[2:], " ")}
	return ParseResult{command: command, parseid: PARSEID_OK, arguments: args}
}

func parseEditGame(words []string) ParseResult {

	command := COMMAND_EDITGAME
	args := EditGameArgs{ID: words[0]}
	field := strings.ToLower(words[1])
	value := strings.Join(words[2:], " ")
	switch field {
	case "name":
		args.Edit.Name = &value
	case "description":
		args.Edit.Description = &value
	case "platform":
		args.Edit.Platform = &value
	case "genre":
		args.Edit.Genre = &value
	case "minplayers", "maxplayers":
		number, err := strconv.Atoi(value)
		if err != nil {
			parseid := PARSEID_NOT_A_NUMBER
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], value)}
		}
		if field == "minplayers" {
			args.Edit.MinPlayers = &number
		} else {
			args.Edit.MaxPlayers = &number
		}
	case "active":
		active, ok := parseSwitch(value)
		if !ok {
			parseid := PARSEID_NOT_A_SWITCH
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], value)}
		}
		args.Active = &active
	default:
		return unknownField(command, words[1], gameFields)
	}
	return ParseResult{command: command, parseid: PARSEID_OK, arguments: args}
}

func parseManageActivity(commandString string, words []string) ParseResult {

	command := COMMAND_MANAGEACTIVITY
	args := ManageActivityArgs{ID: words[1]}
	switch strings.ToLower(words[0]) {
	case "toggle":
		args.Action = ACTIVITY_TOGGLE
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: args}
	case "remove":
		args.Action = ACTIVITY_REMOVE
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: args}
	case "edit":
		args.Action = ACTIVITY_EDIT
	default:
		parseid := PARSEID_UNKNOWN_ACTION
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], words[0])}
	}

	if len(words) < 4 {
		parseid := PARSEID_NO_INPUT
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}
	value := strings.Join(words[3:], " ")
	switch strings.ToLower(words[2]) {
	case "name":
		args.Edit.Name = &value
	case "description":
		args.Edit.Description = &value
	case "location":
		args.Edit.Location = &value
	case "time":
		args.Edit.Time = &value
	case "weekday":
		weekday, err := activities.ParseWeekday(value)
		if err != nil {
			parseid := PARSEID_NOT_A_WEEKDAY
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], value)}
		}
		args.Edit.Weekday = &weekday
	default:
		return unknownField(command, words[2], activityFields)
	}
	return ParseResult{command: command, parseid: PARSEID_OK, arguments: args}
}

func unknownField(command int, field string, fields []string) ParseResult {
	parseid := PARSEID_UNKNOWN_FIELD
	return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], field, strings.Join(fields, ", "))}
}

func parseSwitch(word string) (bool, bool) {
	switch strings.ToLower(word) {
	case "on", "yes", "true":
		return true, true
	case "off", "no", "false":
		return false, true
	}
	return false, false
}
