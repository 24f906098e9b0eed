package main

import (
	"os"
	"strings"
	"time"

	"gamenight/internal/activities"
	"gamenight/internal/bot"
	"gamenight/internal/common"
	"gamenight/internal/config"
	"gamenight/internal/gamepool"
	"gamenight/internal/planner"
	"gamenight/internal/voting"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Info().Msg("Hello from inside gamenight")

	if cfg.Discord.Token == "" {
		log.Fatal().Msg("DISCORD_TOKEN is not set")
	}

	clock := common.SystemClock{}

	// Game pool and weekly activities
	pool, err := gamepool.NewPool(cfg.DataFile("games.json"), clock)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load the game pool")
	}
	store, err := activities.NewStore(cfg.DataFile("activities.json"), clock)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load the activities")
	}

	// Create bot
	discordBot, err := bot.CreateBot(cfg.Discord.Token, cfg.Discord.Prefix, cfg.DataFile("bot.json"), pool, store, clock,
		bot.VoteDefaults{GamesCount: cfg.Vote.GamesCount, DurationHours: cfg.Vote.DurationHours},
		cfg.Vote.ReminderPollInterval, cfg.MainCycle)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create discord bot")
	}

	// Weekly planner, fed by the votes
	weeklyPlanner, err := planner.NewPlanner(cfg.DataFile("planner.json"), pool, store, discordBot, clock,
		cfg.Planner.GamesCount, cfg.Planner.Weekday, cfg.Planner.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load the planner")
	}

	// Voting
	scheduler := common.NewScheduler(clock)
	defer scheduler.Stop()
	manager, err := voting.NewManager(cfg.DataFile("votes.json"), pool, discordBot, weeklyPlanner, scheduler, clock, cfg.Vote.WinnersCount)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load the voting sessions")
	}
	discordBot.SetVoting(manager, weeklyPlanner)

	// Run bot. Overdue sessions are recovered once the gateway is ready
	if err := discordBot.Run(); err != nil {
		log.Fatal().Err(err).Msg("Bot stopped")
	}
}
