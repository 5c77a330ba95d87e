package tiersolve

import (
	"github.com/rs/zerolog"

	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/tierdag"
	"github.com/lox/tiersolve/sdk/tierdb"
	"github.com/lox/tiersolve/sdk/tierworker"
)

// Engine wires a game, its record database, and the tier DAG driver
// into one strong-solving run. There is no package-level state: every
// field a run needs lives on an Engine value the caller constructs and
// passes around explicitly (spec.md §9's "no module-level state" design
// note).
type Engine struct {
	game   gameapi.Game
	db     *tierdb.Database
	worker *tierworker.Worker
	cfg    Config
	logger zerolog.Logger
}

// NewEngine validates cfg, opens the tier database under
// cfg.SandboxPath, and returns an Engine ready to Solve.
func NewEngine(game gameapi.Game, cfg Config, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbCfg := tierdb.Config{
		SandboxPath:     cfg.SandboxPath,
		TargetBlockSize: cfg.DBChunkSize,
	}
	if namer, ok := game.(interface {
		GetTierName(tier gameapi.Tier, buf []byte) (int, error)
	}); ok {
		dbCfg.TierName = func(tier gameapi.Tier) (string, bool) {
			buf := make([]byte, gameapi.MaxTierName)
			n, err := namer.GetTierName(tier, buf)
			if err != nil || n == 0 {
				return "", false
			}
			return string(buf[:n]), true
		}
	}

	db, err := tierdb.NewDatabase(dbCfg, logger)
	if err != nil {
		return nil, err
	}

	worker := tierworker.WorkerInit(game, db, tierworker.Config{
		MemoryLimit: cfg.MemoryLimit,
		WorkerCount: cfg.WorkerCount,
	})

	return &Engine{
		game:   game,
		db:     db,
		worker: worker,
		cfg:    cfg,
		logger: logger.With().Str("component", "engine").Logger(),
	}, nil
}

// Solve strong-solves every tier reachable from the game's initial
// tier, skipping tiers already solved from a prior run unless force is
// set. The returned tierdag.Summary tallies solved/skipped/failed tiers
// (spec.md §4.I's summary counts); a non-nil error means the run is
// Undecided as a whole (a cycle in the tier graph, or a fatal
// per-engine failure rather than a per-tier one).
func (e *Engine) Solve(force bool) (tierdag.Summary, error) {
	dispatch := func(tier gameapi.Tier) (tierdag.Outcome, error) {
		report, err := e.worker.WorkerSolve(tierworker.MethodAuto, tier, force, nil)
		if err != nil {
			return tierdag.OutcomeSkipped, err
		}
		if report == nil {
			e.logger.Debug().Int64("tier", int64(tier)).Msg("tier already solved, skipping")
			return tierdag.OutcomeSkipped, nil
		}
		e.logger.Info().Int64("tier", int64(tier)).Str("report", report.String()).Msg("tier solved")
		return tierdag.OutcomeSolved, nil
	}

	driver := tierdag.New(e.game, dispatch, e.logger)
	summary, err := driver.Solve()
	if err != nil {
		return summary, err
	}

	if summary.Failed == 0 {
		if err := e.db.MarkFinished(); err != nil {
			return summary, err
		}
	}

	e.logger.Info().
		Int("scanned", summary.Scanned).
		Int("solved", summary.Solved).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("solve run complete")

	return summary, nil
}

// Status reports the overall game status recorded in the database.
func (e *Engine) Status() tierdb.GameStatus {
	return e.db.GameStatus()
}

// Test runs tierworker's random-walk verifier against tier.
func (e *Engine) Test(tier gameapi.Tier, seed int64, count int) error {
	return e.worker.WorkerTest(tier, nil, seed, count)
}
