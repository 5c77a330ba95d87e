package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lox/tiersolve/internal/games/tictactoe"
	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/tierdb"
)

var cli struct {
	Debug bool `help:"enable debug logging"`

	Solve SolveCmd `cmd:"" help:"strong-solve a game's tiers into the sandbox database"`
	Check CheckCmd `cmd:"" help:"report the on-disk solving status of a sandbox"`
	Test  TestCmd  `cmd:"" help:"random-walk verify a solved tier"`
}

type SolveCmd struct {
	Game        string `help:"which game to solve" enum:"tictactoe" default:"tictactoe"`
	Sandbox     string `help:"sandbox directory for tier files" required:""`
	ConfigFile  string `help:"optional HCL run config; overrides the other flags when present"`
	MemoryLimit int64  `help:"resident record bytes allowed during immediate-transition solving" default:"536870912"`
	ChunkSize   int64  `help:"compression block size in bytes" default:"65536"`
	Workers     int    `help:"goroutines per tier scan" default:"4"`
	Force       bool   `help:"resolve tiers even if already solved"`
}

type CheckCmd struct {
	Sandbox string `help:"sandbox directory to inspect" required:""`
}

type TestCmd struct {
	Game    string `help:"which game to verify" enum:"tictactoe" default:"tictactoe"`
	Sandbox string `help:"sandbox directory for tier files" required:""`
	Tier    int64  `help:"tier to random-walk verify" required:""`
	Seed    int64  `help:"random seed" default:"1"`
	Count   int    `help:"number of random walks" default:"100"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("tiersolve"),
		kong.Description("tier solver engine and record database CLI"),
		kong.UsageOnError(),
	)

	setupLogger(cli.Debug)

	var err error
	switch ctx.Command() {
	case "solve":
		err = cli.Solve.Run()
	case "check":
		err = cli.Check.Run()
	case "test":
		err = cli.Test.Run()
	default:
		log.Fatal().Msgf("unknown command: %s", ctx.Command())
	}
	if err != nil {
		log.Fatal().Err(err).Msg("tiersolve failed")
	}
}

func setupLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

// applyConfigLogLevel raises or lowers the already-configured logger to
// an HCL run config's log_level, leaving -debug as the final word: a
// config file is read after the CLI flags are parsed, so -debug would
// otherwise silently get overridden by whatever the file says.
func applyConfigLogLevel(levelName string) {
	if levelName == "" || cli.Debug {
		return
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		log.Warn().Str("log_level", levelName).Msg("run config: unrecognized log level, leaving default")
		return
	}
	log.Logger = log.Logger.Level(level)
}

func resolveGame(name string) (gameapi.Game, error) {
	switch name {
	case "tictactoe", "":
		return tictactoe.New(), nil
	default:
		return nil, fmt.Errorf("tiersolve: unknown game %q", name)
	}
}

func (cmd *SolveCmd) Run() error {
	game, err := resolveGame(cmd.Game)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd.ConfigFile, cmd.Sandbox, cmd.MemoryLimit, cmd.ChunkSize, cmd.Workers)
	if err != nil {
		return err
	}
	applyConfigLogLevel(cfg.LogLevel)

	engine, err := newEngine(game, cfg)
	if err != nil {
		return err
	}

	summary, err := engine.Solve(cmd.Force)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}

	log.Info().
		Int("scanned", summary.Scanned).
		Int("solved", summary.Solved).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("solve finished")

	if summary.Failed > 0 {
		for tier, tierErr := range summary.Errors {
			log.Error().Int64("tier", int64(tier)).Err(tierErr).Msg("tier failed")
		}
		return fmt.Errorf("solve: %d tiers failed", summary.Failed)
	}
	return nil
}

func (cmd *CheckCmd) Run() error {
	dbCfg := tierdb.DefaultConfig(cmd.Sandbox)
	db, err := tierdb.NewDatabase(dbCfg, log.Logger)
	if err != nil {
		return err
	}
	fmt.Println(db.GameStatus())
	return nil
}

func (cmd *TestCmd) Run() error {
	game, err := resolveGame(cmd.Game)
	if err != nil {
		return err
	}
	cfg, err := loadConfig("", cmd.Sandbox, 0, 0, 0)
	if err != nil {
		return err
	}
	applyConfigLogLevel(cfg.LogLevel)
	engine, err := newEngine(game, cfg)
	if err != nil {
		return err
	}
	if err := engine.Test(gameapi.Tier(cmd.Tier), cmd.Seed, cmd.Count); err != nil {
		return fmt.Errorf("test: %w", err)
	}
	log.Info().Int64("tier", cmd.Tier).Int("count", cmd.Count).Msg("random-walk verification passed")
	return nil
}
