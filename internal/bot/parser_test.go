package bot

import (
	"testing"
	"time"

	"gamenight/internal/activities"
	"gamenight/internal/gamepool"

	"github.com/stretchr/testify/assert"
)

func intp(value int) *int {
	return &value
}

func strp(value string) *string {
	return &value
}

func TestParseRejectsForeignMessages(t *testing.T) {
	for _, message := range []string{"", "hello", "gamenightstartvote", "  other startvote"} {
		assert.Equal(t, PARSEID_NO_BOT_PREFIX, Parse("gamenight", message).parseid, message)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		message string
		parseid int
		error   string
	}{
		{"gamenight", PARSEID_NO_COMMAND, "No command provided"},
		{"gamenight dance", PARSEID_COMMAND_NOT_RECOGNISED, "Command `dance` not recognised"},
		{"gamenight addgame", PARSEID_NO_INPUT, "Command `addgame` requires an argument"},
		{"gamenight removegame", PARSEID_NO_INPUT, "Command `removegame` requires an argument"},
		{"gamenight setchannel", PARSEID_NO_INPUT, "Command `setchannel` requires an argument"},
		{"gamenight addactivity monday 19:00", PARSEID_NO_INPUT, "Command `addactivity` requires an argument"},
		{"gamenight addactivity someday 19:00 Quiz", PARSEID_NOT_A_WEEKDAY, "Input `someday` is not a day of the week"},
		{"gamenight startvote five", PARSEID_NOT_A_NUMBER, "Input `five` is not a number"},
		{"gamenight startvote 5 24 1", PARSEID_TOO_MANY_ARGUMENTS, "Command `startvote` takes at most 2 arguments"},
		{"gamenight editgame abc name", PARSEID_NO_INPUT, "Command `editgame` requires an argument"},
		{"gamenight editgame abc colour red", PARSEID_UNKNOWN_FIELD, "Field `colour` cannot be edited, use one of name, description, platform, genre, minplayers, maxplayers, active"},
		{"gamenight editgame abc maxplayers lots", PARSEID_NOT_A_NUMBER, "Input `lots` is not a number"},
		{"gamenight editgame abc active maybe", PARSEID_NOT_A_SWITCH, "Input `maybe` is not on or off"},
		{"gamenight manageactivity toggle", PARSEID_NO_INPUT, "Command `manageactivity` requires an argument"},
		{"gamenight manageactivity pause abc", PARSEID_UNKNOWN_ACTION, "Action `pause` not recognised, use toggle, remove or edit"},
		{"gamenight manageactivity edit abc time", PARSEID_NO_INPUT, "Command `manageactivity` requires an argument"},
		{"gamenight manageactivity edit abc colour red", PARSEID_UNKNOWN_FIELD, "Field `colour` cannot be edited, use one of name, description, location, time, weekday"},
		{"gamenight manageactivity edit abc weekday someday", PARSEID_NOT_A_WEEKDAY, "Input `someday` is not a day of the week"},
	}
	for _, test := range tests {
		result := Parse("gamenight", test.message)
		assert.Equal(t, test.parseid, result.parseid, test.message)
		assert.Equal(t, test.error, result.errorMessage, test.message)
	}
}

func TestParseStartVote(t *testing.T) {
	result := Parse("gamenight", "gamenight startvote")
	assert.Equal(t, PARSEID_OK, result.parseid)
	assert.Equal(t, COMMAND_STARTVOTE, result.command)
	assert.Equal(t, StartVoteArgs{}, result.arguments)

	result = Parse("gamenight", "gamenight   StartVote 7")
	assert.Equal(t, StartVoteArgs{Count: intp(7)}, result.arguments)

	// Range checks belong to the voting manager
	result = Parse("gamenight", "gamenight startvote 30 200")
	assert.Equal(t, PARSEID_OK, result.parseid)
	assert.Equal(t, StartVoteArgs{Count: intp(30), Hours: intp(200)}, result.arguments)

	// An explicit zero is not the same as leaving the value out
	result = Parse("gamenight", "gamenight startvote 0 0")
	assert.Equal(t, StartVoteArgs{Count: intp(0), Hours: intp(0)}, result.arguments)
}

func TestParseAddGame(t *testing.T) {
	result := Parse("gamenight", "gamenight addgame Twilight Imperium | Space opera | Board | Strategy")
	assert.Equal(t, PARSEID_OK, result.parseid)
	assert.Equal(t, COMMAND_ADDGAME, result.command)
	assert.Equal(t, AddGameArgs{Name: "Twilight Imperium", Description: "Space opera", Platform: "Board", Genre: "Strategy"}, result.arguments)

	result = Parse("gamenight", "gamenight addgame Chess")
	assert.Equal(t, AddGameArgs{Name: "Chess"}, result.arguments)
}

func TestParseAddActivity(t *testing.T) {
	result := Parse("gamenight", "gamenight addactivity thu 20:30 Pub quiz night")
	assert.Equal(t, PARSEID_OK, result.parseid)
	assert.Equal(t, AddActivityArgs{Weekday: time.Thursday, Time: "20:30", Name: "Pub quiz night"}, result.arguments)
}

func TestParseEditGame(t *testing.T) {
	result := Parse("gamenight", "gamenight editgame abc name Twilight Imperium")
	assert.Equal(t, PARSEID_OK, result.parseid)
	assert.Equal(t, COMMAND_EDITGAME, result.command)
	assert.Equal(t, EditGameArgs{ID: "abc", Edit: gamepool.GameEdit{Name: strp("Twilight Imperium")}}, result.arguments)

	result = Parse("gamenight", "gamenight editgame abc MaxPlayers 6")
	assert.Equal(t, EditGameArgs{ID: "abc", Edit: gamepool.GameEdit{MaxPlayers: intp(6)}}, result.arguments)

	off := false
	result = Parse("gamenight", "gamenight editgame abc active off")
	assert.Equal(t, EditGameArgs{ID: "abc", Active: &off}, result.arguments)
}

func TestParseManageActivity(t *testing.T) {
	result := Parse("gamenight", "gamenight manageactivity toggle abc")
	assert.Equal(t, PARSEID_OK, result.parseid)
	assert.Equal(t, COMMAND_MANAGEACTIVITY, result.command)
	assert.Equal(t, ManageActivityArgs{Action: ACTIVITY_TOGGLE, ID: "abc"}, result.arguments)

	result = Parse("gamenight", "gamenight manageactivity remove abc")
	assert.Equal(t, ManageActivityArgs{Action: ACTIVITY_REMOVE, ID: "abc"}, result.arguments)

	result = Parse("gamenight", "gamenight manageactivity edit abc location The Crown")
	assert.Equal(t, ManageActivityArgs{Action: ACTIVITY_EDIT, ID: "abc", Edit: activities.ActivityEdit{Location: strp("The Crown")}}, result.arguments)

	friday := time.Friday
	result = Parse("gamenight", "gamenight manageactivity edit abc weekday fri")
	assert.Equal(t, ManageActivityArgs{Action: ACTIVITY_EDIT, ID: "abc", Edit: activities.ActivityEdit{Weekday: &friday}}, result.arguments)
}

func TestParseSimpleCommands(t *testing.T) {
	commands := map[string]int{
		"votestatus": COMMAND_VOTESTATUS,
		"gamepool":   COMMAND_GAMEPOOL,
		"activities": COMMAND_ACTIVITIES,
		"weeklyplan": COMMAND_WEEKLYPLAN,
		"help":       COMMAND_HELP,
	}
	for word, command := range commands {
		result := Parse("gamenight", "gamenight "+word)
		assert.Equal(t, PARSEID_OK, result.parseid, word)
		assert.Equal(t, command, result.command, word)
	}

	result := Parse("gamenight", "gamenight cancelvote nobody showed up")
	assert.Equal(t, COMMAND_CANCELVOTE, result.command)
	assert.Equal(t, "nobody showed up", result.arguments)

	result = Parse("gamenight", "gamenight setchannel game night")
	assert.Equal(t, COMMAND_SETCHANNEL, result.command)
	assert.Equal(t, "game night", result.arguments)

	result = Parse("!gn", "!gn removegame abc")
	assert.Equal(t, COMMAND_REMOVEGAME, result.command)
	assert.Equal(t, "abc", result.arguments)
}

func TestVoteButtonId(t *testing.T) {
	id := VoteButtonId("2f1c-aa", "9b7e-cc")
	assert.Equal(t, "vote_2f1c-aa_9b7e-cc", id)

	sessionId, gameId, ok := ParseVoteButtonId(id)
	assert.True(t, ok)
	assert.Equal(t, "2f1c-aa", sessionId)
	assert.Equal(t, "9b7e-cc", gameId)

	for _, bad := range []string{"", "vote_", "vote_abc", "vote__abc", "vote_abc_", "poll_abc_def"} {
		_, _, ok := ParseVoteButtonId(bad)
		assert.False(t, ok, bad)
	}
}
