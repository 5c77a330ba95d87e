package tierdag

import (
	"github.com/rs/zerolog"

	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/solverr"
)

// Outcome reports what a DispatchFunc did to a single tier.
type Outcome uint8

const (
	// OutcomeSolved means the tier was actually solved by this call.
	OutcomeSolved Outcome = iota
	// OutcomeSkipped means the tier was already solved and no work was
	// done.
	OutcomeSkipped
)

// DispatchFunc solves a single canonical tier. It is the driver's only
// point of contact with the actual solving machinery, which lets a
// caller substitute a remote or pooled dispatcher for
// tierworker.Worker.WorkerSolve without touching the dependency
// bookkeeping in this package.
type DispatchFunc func(tier gameapi.Tier) (Outcome, error)

// Summary tallies a Driver.Solve run.
type Summary struct {
	Scanned int
	Solved  int
	Skipped int
	Failed  int
	Errors  map[gameapi.Tier]error
}

// Driver walks a game's tier dependency graph and dispatches each
// canonical tier once every one of its children has completed,
// matching spec.md §4.I. Driver holds no per-run state between calls to
// Solve.
type Driver struct {
	game     gameapi.Game
	dispatch DispatchFunc
	logger   zerolog.Logger
}

// New builds a Driver bound to game, dispatching ready tiers through
// dispatch.
func New(game gameapi.Game, dispatch DispatchFunc, logger zerolog.Logger) *Driver {
	return &Driver{game: game, dispatch: dispatch, logger: logger}
}

// Solve runs the driver to completion. It returns a non-nil error only
// for fatal conditions that leave the run Undecided as a whole (a cycle
// in the tier graph, or a failure building the graph itself); ordinary
// per-tier dispatch failures are tallied in the returned Summary and do
// not stop the run (spec's "per-tier failures do not abort the run"
// rule).
func (d *Driver) Solve() (Summary, error) {
	g, err := buildGraph(d.game)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Errors: map[gameapi.Tier]error{}}

	var ready []gameapi.Tier
	for _, tier := range g.order {
		if g.nodes[tier].numUnsolvedChildren == 0 {
			ready = append(ready, tier)
		}
	}

	d.logger.Info().Int("tiers", len(g.order)).Int("ready", len(ready)).Msg("tier dag built")

	failed := map[gameapi.Tier]bool{}

	for len(ready) > 0 {
		tier := ready[0]
		ready = ready[1:]
		summary.Scanned++

		outcome, err := d.dispatch(tier)
		if err != nil {
			summary.Failed++
			summary.Errors[tier] = err
			failed[tier] = true
			d.logger.Warn().Int64("tier", int64(tier)).Err(err).Msg("tier dispatch failed")
			continue
		}

		switch outcome {
		case OutcomeSolved:
			summary.Solved++
		case OutcomeSkipped:
			summary.Skipped++
		}

		n := g.nodes[tier]
		for _, parent := range n.parents {
			pn, ok := g.nodes[parent]
			if !ok || failed[parent] {
				continue
			}
			pn.numUnsolvedChildren--
			if pn.numUnsolvedChildren == 0 {
				ready = append(ready, parent)
			} else if pn.numUnsolvedChildren < 0 {
				return summary, solverr.Wrapf(solverr.KindGraphStructure, "tier %d: num_unsolved_children went negative", parent)
			}
		}
	}

	if summary.Scanned < len(g.order) {
		d.logger.Warn().
			Int("scanned", summary.Scanned).
			Int("total", len(g.order)).
			Msg("tier dag run ended with unreachable tiers, likely blocked behind a failed child")
	}

	return summary, nil
}
