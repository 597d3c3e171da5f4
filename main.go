package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle-solver/internal/db"
	"github.com/robalobadob/wordle-solver/internal/httpserver"
	"github.com/robalobadob/wordle-solver/internal/store"
	"github.com/robalobadob/wordle-solver/internal/words"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("wordle-solver exited")
	}
	log.Info().Msg("shut down cleanly")
}

// run serves until ctx is cancelled. Everything it opens is closed before it returns.
func run(ctx context.Context) error {
	lists, err := words.Load(os.Getenv("WORDS_ANSWERS_FILE"), os.Getenv("WORDS_ALLOWED_FILE"))
	if err != nil {
		return err
	}
	prior, err := words.LoadPrior(os.Getenv("WORDS_PRIOR_FILE"))
	if err != nil {
		return err
	}
	a, g := lists.Stats()
	log.Info().Int("answers", a).Int("allowed", g).Int("prior", len(prior)).Msg("word lists loaded")

	conn, err := db.Open(getEnv("DB_PATH", "./data/app.db"))
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.Migrate(conn, db.Migrations()); err != nil {
		return err
	}

	mem := store.NewMemoryStore()
	go mem.RunSweeper(ctx, 5*time.Minute, envDuration("SESSION_TTL", 2*time.Hour), func(n int) {
		log.Debug().Int("sessions", n).Msg("expired sessions dropped")
	})

	rankTimeout := envDuration("RANK_TIMEOUT", 30*time.Second)
	srv := httpserver.New(mem, conn, httpserver.Config{
		Lists:       lists,
		Prior:       prior,
		RankTimeout: rankTimeout,
		Workers:     envInt("RANK_WORKERS", 0),
		DailySalt:   getEnv("DAILY_SALT", "local_dev_salt"),
	})
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting wordle-solver")
	return srv.Serve(ctx, ":"+port, rankTimeout+5*time.Second)
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil && d > 0 {
		return d
	}
	return def
}
