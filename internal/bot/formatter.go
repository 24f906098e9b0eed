package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gamenight/internal/activities"
	"gamenight/internal/gamepool"
	"gamenight/internal/planner"
	"gamenight/internal/voting"

	"github.com/bwmarrin/discordgo"
)

// Use "teal" color for the bot
const color int = 0x008080

// Discord allows five buttons per row
const buttonsPerRow int = 5

const (
	colorResults   int = 0xffd700
	colorCancelled int = 0xb22222
)

func Welcome(prefix string, channelName string) []Response {

	content := fmt.Sprintf("Hi, I will be posting the weekly plan to channel %s\n", channelName)
	content += fmt.Sprintf("You can change this anytime by typing \n> `%s setchannel <channel_name>`", prefix)
	return []Response{ResponseString{content}}
}

func InputNotValid(errorMessage string) []Response {

	return []Response{ResponseString{fmt.Sprintf("Input not valid: \n> %s", errorMessage)}}
}

func HelpMessage(prefix string) []Response {

	commands := []struct{ usage, description string }{
		{"startvote [count] [hours]", fmt.Sprintf("Start a vote among `count` random games (%d to %d) lasting `hours` hours (%d to %d)",
			voting.MinCandidates, voting.MaxCandidates, voting.MinDurationHours, voting.MaxDurationHours)},
		{"cancelvote [reason]", "Cancel the vote in progress"},
		{"votestatus", "Show the current standings of the vote in progress"},
		{"gamepool", "List the games that can be proposed in a vote"},
		{"addgame <name> [| description | platform | genre]", "Add a game to the pool"},
		{"editgame <id> <field> <value>", fmt.Sprintf("Change a game. Fields: %s", strings.Join(gameFields, ", "))},
		{"removegame <id>", "Remove a game from the pool"},
		{"activities", "List the weekly activities"},
		{"addactivity <weekday> <HH:MM> <name>", "Add a weekly activity"},
		{"removeactivity <id>", "Remove a weekly activity"},
		{"manageactivity <toggle|remove|edit> <id> [<field> <value>]", fmt.Sprintf("Pause, remove or change a weekly activity. Fields: %s", strings.Join(activityFields, ", "))},
		{"setchannel <channel_name>", "Change the channel the weekly plan is posted to"},
		{"weeklyplan", "Show the plan for this week"},
		{"help", "Print the usage of the different commands"},
	}
	embed := discordgo.MessageEmbed{Title: "Commands available", Color: color}
	for _, command := range commands {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("`%s %s`", prefix, command.usage),
			Value:  command.description,
			Inline: false,
		})
	}
	return []Response{ResponseEmbed{embed}}
}

// Embed of an open session, with the current standings
func VoteSession(view voting.View, games []gamepool.Game, now time.Time) *discordgo.MessageEmbed {

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🗳️ Game vote for %s", view.PeriodLabel),
		Description: fmt.Sprintf("Vote for the game you want to play! Closes in **%s**.", FormatRemaining(view.Remaining(now))),
		Color:       color,
		Timestamp:   view.StartTime.Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d voter(s) so far", view.TotalVoters)},
	}
	if view.CreatedBy != "" {
		embed.Description += fmt.Sprintf("\nStarted by <@%s>", view.CreatedBy)
	}
	scores := map[string]voting.Result{}
	for _, result := range view.Results {
		scores[result.ItemID] = result
	}
	for index, game := range games {
		result := scores[game.ID]
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%d. %s", index+1, game.Name),
			Value:  fmt.Sprintf("%s\n**%d vote(s)** (%d%%)", GameDetails(game), result.Score, result.Percentage),
			Inline: false,
		})
	}
	return embed
}

// One button per candidate, in rows of five
func VoteButtons(view voting.View, games []gamepool.Game) []discordgo.MessageComponent {

	var rows []discordgo.MessageComponent
	var row discordgo.ActionsRow
	for index, game := range games {
		row.Components = append(row.Components, discordgo.Button{
			Label:    truncate(fmt.Sprintf("%d. %s", index+1, game.Name), 80),
			Style:    discordgo.PrimaryButton,
			CustomID: VoteButtonId(view.ID, game.ID),
		})
		if len(row.Components) == buttonsPerRow {
			rows = append(rows, row)
			row = discordgo.ActionsRow{}
		}
	}
	if len(row.Components) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func VoteStatus(view voting.View, games []gamepool.Game, now time.Time) []Response {
	return []Response{ResponseEmbed{*VoteSession(view, games, now)}}
}

func VoteReminder(view voting.View, now time.Time) *discordgo.MessageEmbed {

	return &discordgo.MessageEmbed{
		Title:       "⏰ The vote is closing soon",
		Description: fmt.Sprintf("Only **%s** left to vote for %s. %d voter(s) so far.", FormatRemaining(view.Remaining(now)), view.PeriodLabel, view.TotalVoters),
		Color:       color,
	}
}

func VoteResults(view voting.View, results []voting.Result, games []gamepool.Game) *discordgo.MessageEmbed {

	names := map[string]string{}
	for _, game := range games {
		names[game.ID] = game.Name
	}
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🏆 Results of the vote for %s", view.PeriodLabel),
		Description: fmt.Sprintf("The vote is over! %d voter(s) took part.", view.TotalVoters),
		Color:       colorResults,
		Timestamp:   view.EndTime.Format(time.RFC3339),
	}
	for index, result := range results {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%d. %s", index+1, names[result.ItemID]),
			Value:  fmt.Sprintf("**%d vote(s)** (%d%%)", result.Score, result.Percentage),
			Inline: true,
		})
	}
	return embed
}

func VoteCancelled(view voting.View, reason string) *discordgo.MessageEmbed {

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("The vote for %s has been cancelled", view.PeriodLabel),
		Description: "No plan will come out of it.",
		Color:       colorCancelled,
	}
	if reason != "" {
		embed.Description = fmt.Sprintf("Reason: %s", reason)
	}
	return embed
}

func VotePostFailed() []Response {
	return []Response{ResponseString{"The vote has started, but I could not post it in this channel"}}
}

func NoActiveVote() []Response {
	return []Response{ResponseString{"There is no vote in progress"}}
}

// User facing message for every way a voting operation can be refused
func VoteRejected(err error) string {
	switch {
	case errors.Is(err, voting.ErrSessionAlreadyOpen):
		return "A vote is already in progress. Cancel it first."
	case errors.Is(err, voting.ErrNoCandidatesAvailable):
		return "There are no games in the pool. Add some before starting a vote."
	case errors.Is(err, voting.ErrSessionNotFound):
		return "This vote does not exist anymore."
	case errors.Is(err, voting.ErrSessionNotOpen):
		return "This vote is closed."
	case errors.Is(err, voting.ErrUnknownCandidate):
		return "This game is not part of the vote."
	case errors.Is(err, voting.ErrInvalidRequest):
		return fmt.Sprintf("Invalid vote: %s", err)
	default:
		return "Something went wrong, try again later."
	}
}

func VoteRecorded(game gamepool.Game) string {
	return fmt.Sprintf("Your vote for **%s** has been recorded", game.Name)
}

func GamePool(games []gamepool.Game) []Response {

	embed := discordgo.MessageEmbed{Title: "Game pool", Color: color}
	if len(games) == 0 {
		embed.Description = "The pool is empty"
		return []Response{ResponseEmbed{embed}}
	}
	for _, game := range games {
		name := game.Name
		if !game.Active {
			name += " (inactive)"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   name,
			Value:  fmt.Sprintf("%s\nid: `%s`", GameDetails(game), game.ID),
			Inline: false,
		})
	}
	return []Response{ResponseEmbed{embed}}
}

func GameDetails(game gamepool.Game) string {
	description := game.Description
	if description == "" {
		description = "No description"
	}
	return fmt.Sprintf("%s\n🖥️ %s | 🎯 %s", description, orUnspecified(game.Platform), orUnspecified(game.Genre))
}

func GameAdded(game gamepool.Game) []Response {
	return []Response{ResponseString{fmt.Sprintf("Game `%s` has been added to the pool with id `%s`", game.Name, game.ID)}}
}

func GameEdited(game gamepool.Game) []Response {
	state := "active"
	if !game.Active {
		state = "inactive"
	}
	return []Response{ResponseString{fmt.Sprintf("Game `%s` has been updated (%s)", game.Name, state)}}
}

func GameRemoved(game gamepool.Game) []Response {
	return []Response{ResponseString{fmt.Sprintf("Game `%s` has been removed from the pool", game.Name)}}
}

func GameRejected(err error) []Response {
	return []Response{ResponseString{fmt.Sprintf("Could not change the game pool: %s", err)}}
}

func Activities(list []activities.Activity) []Response {

	embed := discordgo.MessageEmbed{Title: "Weekly activities", Color: color}
	if len(list) == 0 {
		embed.Description = "No activities planned"
		return []Response{ResponseEmbed{embed}}
	}
	for _, activity := range list {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%s %s: %s", activity.Weekday, activity.Time, activity.Name),
			Value:  fmt.Sprintf("id: `%s`", activity.ID),
			Inline: false,
		})
	}
	return []Response{ResponseEmbed{embed}}
}

func ActivityAdded(activity activities.Activity) []Response {
	return []Response{ResponseString{fmt.Sprintf("Activity `%s` added on %s at %s with id `%s`", activity.Name, activity.Weekday, activity.Time, activity.ID)}}
}

func ActivityEdited(activity activities.Activity) []Response {
	return []Response{ResponseString{fmt.Sprintf("Activity `%s` now happens on %s at %s", activity.Name, activity.Weekday, activity.Time)}}
}

func ActivityToggled(activity activities.Activity) []Response {
	if activity.Active {
		return []Response{ResponseString{fmt.Sprintf("Activity `%s` is back in the weekly plan", activity.Name)}}
	}
	return []Response{ResponseString{fmt.Sprintf("Activity `%s` is paused", activity.Name)}}
}

func ActivityRemoved(activity activities.Activity) []Response {
	return []Response{ResponseString{fmt.Sprintf("Activity `%s` has been removed", activity.Name)}}
}

func ActivityRejected(err error) []Response {
	return []Response{ResponseString{fmt.Sprintf("Could not change the activities: %s", err)}}
}

func ChannelDoesNotExist(channelName string) []Response {

	return []Response{ResponseString{fmt.Sprintf("Channel `%s` does not exist in this server", channelName)}}
}

func ChannelChanged(channelName string) []Response {
	return []Response{ResponseString{fmt.Sprintf("From now on, I will be posting the weekly plan to `%s`", channelName)}}
}

func WeeklyPlan(plan planner.Plan) *discordgo.MessageEmbed {

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("📅 Plan for %s", plan.Period),
		Color:     color,
		Timestamp: plan.GeneratedAt.Format(time.RFC3339),
	}
	if plan.FromVote {
		embed.Description = "Games chosen by vote"
	} else {
		embed.Description = "Games picked at random"
	}

	gamesValue := "No games available"
	if len(plan.Games) > 0 {
		names := make([]string, len(plan.Games))
		for i, game := range plan.Games {
			names[i] = fmt.Sprintf("🎮 %s", game.Name)
		}
		gamesValue = strings.Join(names, "\n")
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Games", Value: gamesValue, Inline: false})

	activitiesValue := "No activities planned"
	if len(plan.Activities) > 0 {
		lines := make([]string, len(plan.Activities))
		for i, activity := range plan.Activities {
			lines[i] = fmt.Sprintf("**%s** %s %s", activity.Weekday, activity.Time, activity.Name)
			if activity.Location != "" {
				lines[i] += fmt.Sprintf(" (%s)", activity.Location)
			}
		}
		activitiesValue = strings.Join(lines, "\n")
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Activities", Value: activitiesValue, Inline: false})
	return embed
}

func FormatRemaining(remaining time.Duration) string {
	remaining = remaining.Round(time.Minute)
	hours := int(remaining.Hours())
	minutes := int(remaining.Minutes()) % 60
	if hours == 0 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%dh%02d", hours, minutes)
}

func orUnspecified(value string) string {
	if value == "" {
		return "Not specified"
	}
	return value
}

func truncate(value string, length int) string {
	runes := []rune(value)
	if len(runes) <= length {
		return value
	}
	return string(runes[:length-1]) + "…"
}
