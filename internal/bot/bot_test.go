package bot

import (
	"path/filepath"
	"testing"
	"time"

	"gamenight/internal/activities"
	"gamenight/internal/common"
	"gamenight/internal/gamepool"
	"gamenight/internal/planner"
	"gamenight/internal/voting"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	dir     string
	clock   *common.ManualClock
	pool    *gamepool.Pool
	bot     *Bot
	planner *planner.Planner
	manager *voting.Manager
}

// A bot with every collaborator wired but no discord connection
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{dir: t.TempDir(), clock: common.NewManualClock(t0)}

	var err error
	h.pool, err = gamepool.NewPool(filepath.Join(h.dir, "games.json"), h.clock)
	require.NoError(t, err)
	store, err := activities.NewStore(filepath.Join(h.dir, "activities.json"), h.clock)
	require.NoError(t, err)
	h.bot, err = CreateBot("", "gamenight", filepath.Join(h.dir, "bot.json"), h.pool, store, h.clock, VoteDefaults{GamesCount: 5, DurationHours: 24}, time.Hour, time.Minute)
	require.NoError(t, err)
	h.planner, err = planner.NewPlanner(filepath.Join(h.dir, "planner.json"), h.pool, store, h.bot, h.clock, 3, time.Monday, 10)
	require.NoError(t, err)
	scheduler := common.NewScheduler(h.clock)
	t.Cleanup(scheduler.Stop)
	h.manager, err = voting.NewManager(filepath.Join(h.dir, "votes.json"), h.pool, h.bot, h.planner, scheduler, h.clock, 3)
	require.NoError(t, err)
	h.bot.SetVoting(h.manager, h.planner)
	return h
}

func (h *harness) run(t *testing.T, message string, userId string) []Response {
	t.Helper()
	result := Parse("gamenight", message)
	require.Equal(t, PARSEID_OK, result.parseid, result.errorMessage)
	return h.bot.execute(nil, result, "guild", "channel", userId)
}

func text(t *testing.T, responses []Response) string {
	t.Helper()
	require.Len(t, responses, 1)
	response, ok := responses[0].(ResponseString)
	require.True(t, ok, "expected a plain message, got %T", responses[0])
	return response.string
}

func embed(t *testing.T, responses []Response) ResponseEmbed {
	t.Helper()
	require.Len(t, responses, 1)
	response, ok := responses[0].(ResponseEmbed)
	require.True(t, ok, "expected an embed, got %T", responses[0])
	return response
}

func TestGameCommands(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, text(t, h.run(t, "gamenight addgame Chess | Classic | Board | Strategy", "alice")), "Game `Chess` has been added")
	assert.Contains(t, text(t, h.run(t, "gamenight addgame chess", "bob")), gamepool.ErrDuplicateName.Error())

	pool := embed(t, h.run(t, "gamenight gamepool", "bob"))
	require.Len(t, pool.Fields, 1)
	assert.Equal(t, "Chess", pool.Fields[0].Name)
	assert.Contains(t, pool.Fields[0].Value, "Board | 🎯 Strategy")

	chess := h.pool.ListAll()[0]
	assert.Equal(t, "alice", chess.AddedBy)
	assert.Contains(t, text(t, h.run(t, "gamenight removegame nope", "bob")), gamepool.ErrGameNotFound.Error())
	assert.Equal(t, "Game `Chess` has been removed from the pool", text(t, h.run(t, "gamenight removegame "+chess.ID, "bob")))
	assert.Equal(t, "The pool is empty", embed(t, h.run(t, "gamenight gamepool", "bob")).Description)
}

func TestEditGameCommands(t *testing.T) {
	h := newHarness(t)
	h.run(t, "gamenight addgame Chess", "alice")
	h.run(t, "gamenight addgame Go", "alice")
	chess := h.pool.ListAll()[0]

	assert.Equal(t, "Game `Chess` has been updated (active)", text(t, h.run(t, "gamenight editgame "+chess.ID+" genre Abstract strategy", "bob")))
	edited, _ := h.pool.FindById(chess.ID)
	assert.Equal(t, "Abstract strategy", edited.Genre)

	assert.Contains(t, text(t, h.run(t, "gamenight editgame "+chess.ID+" name go", "bob")), gamepool.ErrDuplicateName.Error())
	assert.Contains(t, text(t, h.run(t, "gamenight editgame nope name Draughts", "bob")), gamepool.ErrGameNotFound.Error())
	assert.Contains(t, text(t, h.run(t, "gamenight editgame nope active off", "bob")), gamepool.ErrGameNotFound.Error())

	// Inactive games are never proposed
	assert.Equal(t, "Game `Chess` has been updated (inactive)", text(t, h.run(t, "gamenight editgame "+chess.ID+" active off", "bob")))
	h.run(t, "gamenight startvote", "alice")
	active, ok := h.manager.ActiveSession()
	require.True(t, ok)
	assert.NotContains(t, active.CandidateIDs, chess.ID)
	assert.Len(t, active.CandidateIDs, 1)
}

func TestStartVoteFromChat(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, VoteRejected(voting.ErrNoCandidatesAvailable), text(t, h.run(t, "gamenight startvote", "alice")))

	h.run(t, "gamenight addgame Chess", "alice")
	h.run(t, "gamenight addgame Go", "alice")

	// Without a connection the session exists but could not be posted
	assert.Equal(t, VotePostFailed(), h.run(t, "gamenight startvote", "alice"))
	active, ok := h.manager.ActiveSession()
	require.True(t, ok)
	assert.Len(t, active.CandidateIDs, 2)
	assert.Equal(t, "channel", active.ChannelRef)
	assert.Equal(t, "alice", active.CreatedBy)
	assert.Equal(t, t0.Add(24*time.Hour), active.EndTime)

	assert.Equal(t, VoteRejected(voting.ErrSessionAlreadyOpen), text(t, h.run(t, "gamenight startvote 2 4", "bob")))

	status := embed(t, h.run(t, "gamenight votestatus", "bob"))
	assert.Contains(t, status.Title, "Mon 12 Oct - Sun 18 Oct 2026")
	assert.Len(t, status.Fields, 2)
}

func TestStartVoteOutOfRange(t *testing.T) {
	h := newHarness(t)
	h.run(t, "gamenight addgame Chess", "alice")

	assert.Contains(t, text(t, h.run(t, "gamenight startvote 11", "alice")), "Invalid vote")
	assert.Contains(t, text(t, h.run(t, "gamenight startvote 3 169", "alice")), "Invalid vote")
	assert.Contains(t, text(t, h.run(t, "gamenight startvote 0", "alice")), "Invalid vote")
	assert.Contains(t, text(t, h.run(t, "gamenight startvote 1 0", "alice")), "Invalid vote")
	_, ok := h.manager.ActiveSession()
	assert.False(t, ok)
}

func TestVoteButtons(t *testing.T) {
	h := newHarness(t)
	h.run(t, "gamenight addgame Chess", "alice")
	h.run(t, "gamenight addgame Go", "alice")
	h.run(t, "gamenight startvote 2 3", "alice")
	active, _ := h.manager.ActiveSession()
	chess, _ := h.pool.FindById(active.CandidateIDs[0])

	assert.Equal(t, "Your vote for **Chess** has been recorded", h.bot.vote(VoteButtonId(active.ID, chess.ID), "bob"))
	// Voting twice for the same game changes nothing
	assert.Equal(t, "Your vote for **Chess** has been recorded", h.bot.vote(VoteButtonId(active.ID, chess.ID), "bob"))
	active, _ = h.manager.ActiveSession()
	assert.Equal(t, 1, active.TotalVoters)

	assert.Equal(t, VoteRejected(voting.ErrUnknownCandidate), h.bot.vote(VoteButtonId(active.ID, "other"), "bob"))
	assert.Equal(t, VoteRejected(voting.ErrSessionNotFound), h.bot.vote(VoteButtonId("old", chess.ID), "bob"))
	assert.Equal(t, "This button is not valid anymore.", h.bot.vote("vote_broken", "bob"))
	assert.Equal(t, "This button is not valid anymore.", h.bot.vote(VoteButtonId(active.ID, chess.ID), ""))
}

func TestCancelVoteFromChat(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, NoActiveVote(), h.run(t, "gamenight cancelvote", "alice"))
	assert.Equal(t, NoActiveVote(), h.run(t, "gamenight votestatus", "alice"))

	h.run(t, "gamenight addgame Chess", "alice")
	h.run(t, "gamenight startvote", "alice")
	active, _ := h.manager.ActiveSession()

	assert.Nil(t, h.run(t, "gamenight cancelvote it is raining", "alice"))
	_, ok := h.manager.ActiveSession()
	assert.False(t, ok)
	cancelled, ok := h.manager.Session(active.ID)
	require.True(t, ok)
	assert.Equal(t, voting.StatusCancelled, cancelled.Status)

	assert.Equal(t, VoteRejected(voting.ErrSessionNotOpen), h.bot.vote(VoteButtonId(active.ID, active.CandidateIDs[0]), "bob"))
}

func TestActivityCommands(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, text(t, h.run(t, "gamenight addactivity monday 19:00 Board games club", "alice")), "Activity `Board games club` added on Monday at 19:00")
	assert.Contains(t, text(t, h.run(t, "gamenight addactivity tue 7pm Pub", "alice")), activities.ErrInvalidTime.Error())

	list := embed(t, h.run(t, "gamenight activities", "bob"))
	require.Len(t, list.Fields, 1)
	assert.Equal(t, "Monday 19:00: Board games club", list.Fields[0].Name)

	assert.Contains(t, text(t, h.run(t, "gamenight removeactivity nope", "bob")), activities.ErrActivityNotFound.Error())
}

func TestManageActivityCommand(t *testing.T) {
	h := newHarness(t)
	h.run(t, "gamenight addactivity thursday 20:00 Quiz", "alice")
	quiz := h.bot.activities.List(false)[0]

	assert.Equal(t, "Activity `Quiz` is paused", text(t, h.run(t, "gamenight manageactivity toggle "+quiz.ID, "bob")))
	assert.Empty(t, h.bot.activities.ForWeek())
	assert.Equal(t, "Activity `Quiz` is back in the weekly plan", text(t, h.run(t, "gamenight manageactivity toggle "+quiz.ID, "bob")))
	assert.Len(t, h.bot.activities.ForWeek(), 1)

	assert.Equal(t, "Activity `Quiz` now happens on Friday at 20:00", text(t, h.run(t, "gamenight manageactivity edit "+quiz.ID+" weekday friday", "bob")))
	assert.Contains(t, text(t, h.run(t, "gamenight manageactivity edit "+quiz.ID+" time late", "bob")), activities.ErrInvalidTime.Error())
	assert.Contains(t, text(t, h.run(t, "gamenight manageactivity toggle nope", "bob")), activities.ErrActivityNotFound.Error())

	assert.Equal(t, "Activity `Quiz` has been removed", text(t, h.run(t, "gamenight manageactivity remove "+quiz.ID, "bob")))
	assert.Empty(t, h.bot.activities.List(false))
}

func TestWeeklyPlanCommand(t *testing.T) {
	h := newHarness(t)
	h.run(t, "gamenight addgame Chess", "alice")
	h.run(t, "gamenight addactivity thursday 20:00 Quiz", "alice")

	plan := embed(t, h.run(t, "gamenight weeklyplan", "bob"))
	assert.Equal(t, "📅 Plan for Mon 12 Oct - Sun 18 Oct 2026", plan.Title)
	assert.Equal(t, "Games picked at random", plan.Description)
	assert.Equal(t, "🎮 Chess", plan.Fields[0].Value)
	assert.Equal(t, "**Thursday** 20:00 Quiz", plan.Fields[1].Value)
}

func TestClosingAVoteFeedsThePlan(t *testing.T) {
	h := newHarness(t)
	h.run(t, "gamenight addgame Chess", "alice")
	h.run(t, "gamenight addgame Go", "alice")
	h.run(t, "gamenight startvote 2 2", "alice")
	active, _ := h.manager.ActiveSession()
	h.bot.vote(VoteButtonId(active.ID, active.CandidateIDs[1]), "bob")

	_, err := h.manager.CloseSession(active.ID)
	require.NoError(t, err)

	plan := embed(t, h.run(t, "gamenight weeklyplan", "bob"))
	assert.Equal(t, "Games chosen by vote", plan.Description)
	assert.Equal(t, "🎮 Go\n🎮 Chess", plan.Fields[0].Value)
}

func TestHelpUsesPrefix(t *testing.T) {
	h := newHarness(t)
	help := embed(t, h.run(t, "gamenight help", "bob"))
	require.Len(t, help.Fields, 14)
	assert.Equal(t, "`gamenight startvote [count] [hours]`", help.Fields[0].Name)
}

func TestGuildsArePersisted(t *testing.T) {
	h := newHarness(t)
	assert.True(t, h.bot.registerGuild("guild", "general"))
	assert.False(t, h.bot.registerGuild("guild", "other"))

	database := CreateDatabaseBot(filepath.Join(h.dir, "bot.json"))
	guilds, err := database.GetGuilds()
	require.NoError(t, err)
	assert.Equal(t, Guilds{"guild": {id: "guild", channelId: "general"}}, guilds)
}

func TestPublishingWithoutConnection(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.bot.PostPlan(planner.Plan{}), errNotConnected)
	assert.ErrorIs(t, h.bot.PublishReminder(voting.View{}), errNotConnected)
}

func TestHousekeepingSchedulesThePlan(t *testing.T) {
	h := newHarness(t)
	h.bot.housekeeping()
	assert.Equal(t, time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC), h.planner.NextPostAt())
}
