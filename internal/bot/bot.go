package bot

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"gamenight/internal/activities"
	"gamenight/internal/common"
	"gamenight/internal/gamepool"
	"gamenight/internal/planner"
	"gamenight/internal/voting"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const voteButtonPrefix string = "vote_"

var errNotConnected = errors.New("not connected to discord")

type Guild struct {
	id        string
	channelId string
}

type Guilds map[string]Guild

// What startvote uses when the user does not say
type VoteDefaults struct {
	GamesCount    int
	DurationHours int
}

type Bot struct {
	token            string
	prefix           string
	database         DatabaseBot
	mu               sync.Mutex
	guilds           Guilds
	discord          *discordgo.Session
	pool             *gamepool.Pool
	activities       *activities.Store
	voting           *voting.Manager
	planner          *planner.Planner
	clock            common.Clock
	voteDefaults     VoteDefaults
	reminderExecutor common.TimedExecutor
	mainCycle        time.Duration
	recoverOnce      sync.Once
}

func CreateBot(token string, prefix string, dbFilename string, pool *gamepool.Pool, store *activities.Store, clock common.Clock, voteDefaults VoteDefaults, reminderPollInterval time.Duration, mainCycle time.Duration) (*Bot, error) {

	bot := &Bot{
		token:        token,
		prefix:       prefix,
		pool:         pool,
		activities:   store,
		clock:        clock,
		voteDefaults: voteDefaults,
		mainCycle:    mainCycle,
	}
	// Database
	bot.database = CreateDatabaseBot(dbFilename)
	// Initialise values from the database if present
	guilds, err := bot.database.GetGuilds()
	if err != nil {
		return nil, err
	}
	bot.guilds = guilds
	log.Info().Msg(fmt.Sprintf("Loaded %d guilds", len(bot.guilds)))
	// Safety net for reminders whose timer was lost
	bot.reminderExecutor = common.NewTimedExecutor(reminderPollInterval, clock, bot.checkReminders)

	return bot, nil
}

// The manager and the planner need the bot to talk to users,
// so they are attached once they exist
func (bot *Bot) SetVoting(manager *voting.Manager, weeklyPlanner *planner.Planner) {
	bot.voting = manager
	bot.planner = weeklyPlanner
}

func (bot *Bot) Run() error {
	// Create session
	discord, err := discordgo.New("Bot " + bot.token)
	if err != nil {
		return fmt.Errorf("could not create discord session: %w", err)
	}
	discord.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	// Event handlers
	discord.AddHandler(bot.Ready)
	discord.AddHandler(bot.Receive)
	discord.AddHandler(bot.Interact)

	bot.mu.Lock()
	bot.discord = discord
	bot.mu.Unlock()

	// Open session
	if err := discord.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	defer discord.Close()

	stop := make(chan struct{})
	go bot.mainLoop(stop)
	defer close(stop)

	// keep bot running until there is an os interruption
	log.Info().Msg("Bot is running")
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info().Msg("Shutting down")

	bot.mu.Lock()
	bot.discord = nil
	bot.mu.Unlock()
	return nil
}

// Sessions left behind by the previous run can only be dealt with
// once messages can be posted. Reconnections do not count
func (bot *Bot) Ready(discord *discordgo.Session, ready *discordgo.Ready) {
	log.Info().Msg(fmt.Sprintf("Connected as %s", ready.User.Username))
	bot.recoverOnce.Do(func() {
		if bot.voting != nil {
			bot.voting.Recover()
		}
	})
}

func (bot *Bot) mainLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(bot.mainCycle)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			bot.housekeeping()
		}
	}
}

func (bot *Bot) housekeeping() {
	bot.reminderExecutor.Execute()
	if bot.planner != nil {
		bot.planner.Tick()
	}
}

func (bot *Bot) checkReminders() {
	if bot.voting == nil {
		return
	}
	if sent := bot.voting.CheckReminders(); sent > 0 {
		log.Info().Msg(fmt.Sprintf("Sent %d late reminders", sent))
	}
}

func (bot *Bot) Receive(discord *discordgo.Session, message *discordgo.MessageCreate) {

	// Reject my own messages and those of other bots
	if message.Author == nil || message.Author.Bot || message.Author.ID == discord.State.User.ID {
		return
	}

	// Ignore messages from private channels
	if message.GuildID == "" {
		log.Debug().Msg("Ignoring private message")
		return
	}

	parseResult := Parse(bot.prefix, message.Content)
	if parseResult.parseid == PARSEID_NO_BOT_PREFIX {
		return
	}

	// Register the guild if it's the first time I see it
	if bot.registerGuild(message.GuildID, message.ChannelID) {
		log.Info().Msg(fmt.Sprintf("Sending welcome message to guild %s", message.GuildID))
		channelName, err := getChannelName(discord, message.GuildID, message.ChannelID)
		if err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Could not extract channel name for channel id %s", message.ChannelID))
		} else {
			bot.sendResponses(discord, message.ChannelID, Welcome(bot.prefix, channelName))
		}
	}

	log.Debug().Msg(fmt.Sprintf("Received message: %s", message.Content))
	var responses []Response
	if parseResult.parseid == PARSEID_OK {
		log.Info().Msg(fmt.Sprintf("Command understood: %s", message.Content))
		responses = bot.execute(discord, parseResult, message.GuildID, message.ChannelID, message.Author.ID)
	} else {
		// The command is invalid input, so it contains an error message
		log.Info().Msg(fmt.Sprintf("Wrong input: '%s'. Reason: %s", message.Content, parseResult.errorMessage))
		responses = InputNotValid(parseResult.errorMessage)
	}
	bot.sendResponses(discord, message.ChannelID, responses)
}

func (bot *Bot) execute(discord *discordgo.Session, parseResult ParseResult, guildId string, channelId string, userId string) []Response {

	switch parseResult.command {
	case COMMAND_STARTVOTE:
		return bot.startVote(parseResult.arguments.(StartVoteArgs), channelId, userId)
	case COMMAND_CANCELVOTE:
		return bot.cancelVote(parseResult.arguments.(string))
	case COMMAND_VOTESTATUS:
		return bot.voteStatus()
	case COMMAND_GAMEPOOL:
		return GamePool(bot.pool.ListAll())
	case COMMAND_ADDGAME:
		return bot.addGame(parseResult.arguments.(AddGameArgs), userId)
	case COMMAND_EDITGAME:
		return bot.editGame(parseResult.arguments.(EditGameArgs))
	case COMMAND_REMOVEGAME:
		return bot.removeGame(parseResult.arguments.(string))
	case COMMAND_ADDACTIVITY:
		return bot.addActivity(parseResult.arguments.(AddActivityArgs), userId)
	case COMMAND_REMOVEACTIVITY:
		return bot.removeActivity(parseResult.arguments.(string))
	case COMMAND_MANAGEACTIVITY:
		return bot.manageActivity(parseResult.arguments.(ManageActivityArgs))
	case COMMAND_ACTIVITIES:
		return Activities(bot.activities.List(false))
	case COMMAND_SETCHANNEL:
		return bot.channel(discord, parseResult.arguments.(string), guildId)
	case COMMAND_WEEKLYPLAN:
		return []Response{ResponseEmbed{*WeeklyPlan(bot.planner.Generate())}}
	case COMMAND_HELP:
		return HelpMessage(bot.prefix)
	default:
		panic(fmt.Sprintf("Command %d is not one of the possible ones", parseResult.command))
	}
}

func (bot *Bot) sendResponses(discord *discordgo.Session, channelId string, responses []Response) {
	for _, response := range responses {
		response.Send(channelId, discord)
	}
}

// Returns true when the guild had never been seen before
func (bot *Bot) registerGuild(guildId string, channelId string) bool {
	bot.mu.Lock()
	defer bot.mu.Unlock()
	if _, ok := bot.guilds[guildId]; ok {
		return false
	}
	log.Info().Msg(fmt.Sprintf("Initialising guild %s", guildId))
	bot.guilds[guildId] = Guild{id: guildId, channelId: channelId}
	bot.saveGuildsLocked()
	return true
}

func (bot *Bot) saveGuildsLocked() {
	if err := bot.database.SetGuilds(bot.guilds); err != nil {
		log.Error().Err(err).Msg("Could not save guilds")
	}
}

func (bot *Bot) startVote(args StartVoteArgs, channelId string, userId string) []Response {

	request := voting.StartRequest{
		ChannelRef:     channelId,
		CandidateCount: bot.voteDefaults.GamesCount,
		DurationHours:  bot.voteDefaults.DurationHours,
		CreatorID:      userId,
	}
	if args.Count != nil {
		request.CandidateCount = *args.Count
	}
	if args.Hours != nil {
		request.DurationHours = *args.Hours
	}

	view, err := bot.voting.StartSession(request)
	if err != nil {
		log.Info().Err(err).Msg(fmt.Sprintf("Vote requested by %s refused", userId))
		return []Response{ResponseString{VoteRejected(err)}}
	}
	// The session itself has been posted by the publisher
	if view.PostRef == "" {
		return VotePostFailed()
	}
	return nil
}

func (bot *Bot) cancelVote(reason string) []Response {

	active, ok := bot.voting.ActiveSession()
	if !ok {
		return NoActiveVote()
	}
	if _, err := bot.voting.CancelSession(active.ID, reason); err != nil {
		return []Response{ResponseString{VoteRejected(err)}}
	}
	return nil
}

func (bot *Bot) voteStatus() []Response {

	active, ok := bot.voting.ActiveSession()
	if !ok {
		return NoActiveVote()
	}
	return VoteStatus(active, bot.candidates(active), bot.clock.Now())
}

func (bot *Bot) addGame(args AddGameArgs, userId string) []Response {

	game, err := bot.pool.Add(gamepool.Game{
		Name:        args.Name,
		Description: args.Description,
		Platform:    args.Platform,
		Genre:       args.Genre,
		AddedBy:     userId,
	})
	if err != nil {
		return GameRejected(err)
	}
	return GameAdded(game)
}

func (bot *Bot) editGame(args EditGameArgs) []Response {

	if args.Active != nil {
		if err := bot.pool.SetActive(args.ID, *args.Active); err != nil {
			return GameRejected(err)
		}
		game, _ := bot.pool.FindById(args.ID)
		return GameEdited(game)
	}
	game, err := bot.pool.Edit(args.ID, args.Edit)
	if err != nil {
		return GameRejected(err)
	}
	return GameEdited(game)
}

func (bot *Bot) removeGame(id string) []Response {

	game, err := bot.pool.Remove(id)
	if err != nil {
		return GameRejected(err)
	}
	return GameRemoved(game)
}

func (bot *Bot) addActivity(args AddActivityArgs, userId string) []Response {

	activity, err := bot.activities.Add(activities.Activity{
		Name:    args.Name,
		Time:    args.Time,
		Weekday: args.Weekday,
		AddedBy: userId,
	})
	if err != nil {
		return ActivityRejected(err)
	}
	return ActivityAdded(activity)
}

func (bot *Bot) removeActivity(id string) []Response {

	activity, err := bot.activities.Remove(id)
	if err != nil {
		return ActivityRejected(err)
	}
	return ActivityRemoved(activity)
}

func (bot *Bot) manageActivity(args ManageActivityArgs) []Response {

	switch args.Action {
	case ACTIVITY_TOGGLE:
		activity, ok := bot.activities.FindById(args.ID)
		if !ok {
			return ActivityRejected(activities.ErrActivityNotFound)
		}
		if err := bot.activities.SetActive(args.ID, !activity.Active); err != nil {
			return ActivityRejected(err)
		}
		activity.Active = !activity.Active
		return ActivityToggled(activity)
	case ACTIVITY_REMOVE:
		return bot.removeActivity(args.ID)
	case ACTIVITY_EDIT:
		activity, err := bot.activities.Edit(args.ID, args.Edit)
		if err != nil {
			return ActivityRejected(err)
		}
		return ActivityEdited(activity)
	default:
		panic(fmt.Sprintf("Activity action %d is not one of the possible ones", args.Action))
	}
}

func (bot *Bot) channel(discord *discordgo.Session, channelName string, guildId string) []Response {

	// Try to find the id from the channel name
	channelId, err := getChannelId(discord, guildId, channelName)
	if err != nil {
		log.Info().Err(err).Msg(fmt.Sprintf("Could not extract channel id from channel name %s", channelName))
		return ChannelDoesNotExist(channelName)
	}

	// We have a new channel to send messages to
	log.Info().Msg(fmt.Sprintf("Changing channel used by guild %s to %s", guildId, channelName))
	bot.mu.Lock()
	bot.guilds[guildId] = Guild{id: guildId, channelId: channelId}
	bot.saveGuildsLocked()
	bot.mu.Unlock()
	return ChannelChanged(channelName)
}

func (bot *Bot) Interact(discord *discordgo.Session, interaction *discordgo.InteractionCreate) {

	if interaction.Type != discordgo.InteractionMessageComponent {
		return
	}
	customId := interaction.MessageComponentData().CustomID
	if !strings.HasPrefix(customId, voteButtonPrefix) {
		return
	}
	var userId string
	if interaction.Member != nil && interaction.Member.User != nil {
		userId = interaction.Member.User.ID
	} else if interaction.User != nil {
		userId = interaction.User.ID
	}

	content := bot.vote(customId, userId)
	err := discord.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("Could not answer vote button")
	}
}

// Cast the vote behind a button and return what the voter should read
func (bot *Bot) vote(customId string, userId string) string {

	sessionId, gameId, ok := ParseVoteButtonId(customId)
	if !ok || userId == "" {
		log.Warn().Msg(fmt.Sprintf("Malformed vote button %s", customId))
		return "This button is not valid anymore."
	}
	if err := bot.voting.CastVote(sessionId, gameId, userId); err != nil {
		log.Info().Err(err).Msg(fmt.Sprintf("Vote of %s for %s refused", userId, gameId))
		return VoteRejected(err)
	}
	game, ok := bot.pool.FindById(gameId)
	if !ok {
		game = gamepool.Game{ID: gameId, Name: gameId}
	}
	return VoteRecorded(game)
}

func VoteButtonId(sessionId string, gameId string) string {
	return fmt.Sprintf("%s%s_%s", voteButtonPrefix, sessionId, gameId)
}

// Ids are uuids, so they never contain an underscore
func ParseVoteButtonId(customId string) (string, string, bool) {
	if !strings.HasPrefix(customId, voteButtonPrefix) {
		return "", "", false
	}
	sessionId, gameId, found := strings.Cut(customId[len(voteButtonPrefix):], "_")
	if !found || sessionId == "" || gameId == "" {
		return "", "", false
	}
	return sessionId, gameId, true
}

func (bot *Bot) candidates(view voting.View) []gamepool.Game {
	games := make([]gamepool.Game, 0, len(view.CandidateIDs))
	for _, id := range view.CandidateIDs {
		game, ok := bot.pool.FindById(id)
		if !ok {
			game = gamepool.Game{ID: id, Name: "Removed game"}
		}
		games = append(games, game)
	}
	return games
}

func (bot *Bot) session() *discordgo.Session {
	bot.mu.Lock()
	defer bot.mu.Unlock()
	return bot.discord
}

func (bot *Bot) PublishSession(view voting.View) (string, error) {
	discord := bot.session()
	if discord == nil {
		return "", errNotConnected
	}
	games := bot.candidates(view)
	message, err := discord.ChannelMessageSendComplex(view.ChannelRef, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{VoteSession(view, games, bot.clock.Now())},
		Components: VoteButtons(view, games),
	})
	if err != nil {
		return "", err
	}
	return message.ID, nil
}

func (bot *Bot) RefreshSession(view voting.View) error {
	discord := bot.session()
	if discord == nil {
		return errNotConnected
	}
	if view.PostRef == "" {
		return nil
	}
	edit := discordgo.NewMessageEdit(view.ChannelRef, view.PostRef).SetEmbed(VoteSession(view, bot.candidates(view), bot.clock.Now()))
	_, err := discord.ChannelMessageEditComplex(edit)
	return err
}

func (bot *Bot) PublishReminder(view voting.View) error {
	discord := bot.session()
	if discord == nil {
		return errNotConnected
	}
	_, err := discord.ChannelMessageSendEmbed(view.ChannelRef, VoteReminder(view, bot.clock.Now()))
	return err
}

func (bot *Bot) PublishResults(view voting.View, results []voting.Result) error {
	discord := bot.session()
	if discord == nil {
		return errNotConnected
	}
	_, err := discord.ChannelMessageSendEmbed(view.ChannelRef, VoteResults(view, results, bot.candidates(view)))
	return err
}

func (bot *Bot) PublishCancellation(view voting.View, reason string) error {
	discord := bot.session()
	if discord == nil {
		return errNotConnected
	}
	_, err := discord.ChannelMessageSendEmbed(view.ChannelRef, VoteCancelled(view, reason))
	return err
}

// Post the plan to the channel of every guild
func (bot *Bot) PostPlan(plan planner.Plan) error {
	discord := bot.session()
	if discord == nil {
		return errNotConnected
	}
	bot.mu.Lock()
	channelIds := []string{}
	for _, guild := range bot.guilds {
		if guild.channelId != "" {
			channelIds = append(channelIds, guild.channelId)
		}
	}
	bot.mu.Unlock()
	if len(channelIds) == 0 {
		return errors.New("no channel to post the plan to")
	}

	var errs []error
	for _, channelId := range channelIds {
		if _, err := discord.ChannelMessageSendEmbed(channelId, WeeklyPlan(plan)); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", channelId, err))
		}
	}
	return errors.Join(errs...)
}

func getChannelName(discord *discordgo.Session, guildid string, channelid string) (string, error) {

	channels, err := discord.GuildChannels(guildid)
	if err != nil {
		return "", fmt.Errorf("could not extract list of channels of guild id %s", guildid)
	}
	for _, ch := range channels {
		if ch.ID == channelid {
			return ch.Name, nil
		}
	}
	return "", fmt.Errorf("no channel name found for channel id %s", channelid)
}

func getChannelId(discord *discordgo.Session, guildid string, channelName string) (string, error) {

	if discord == nil {
		return "", errNotConnected
	}
	channels, err := discord.GuildChannels(guildid)
	if err != nil {
		return "", fmt.Errorf("could not extract list of channels of guild id %s", guildid)
	}
	for _, ch := range channels {
		if ch.Name == channelName {
			return ch.ID, nil
		}
	}
	return "", fmt.Errorf("no channel id found for channel name %s", channelName)
}
