// Package tierdag builds the dependency graph over a game's tiers and
// drives them through a dispatch function in dependency order: every
// tier is dispatched only after all of its child tiers have completed
// (spec.md §4.I).
package tierdag

import (
	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/solverr"
)

type color uint8

const (
	notVisited color = iota
	inProgress
	closed
)

// node tracks one canonical tier's position in the dependency graph.
type node struct {
	tier                gameapi.Tier
	numUnsolvedChildren int
	parents             []gameapi.Tier
}

// graph is the canonicalized tier dependency graph discovered by an
// iterative DFS from the game's initial tier. Every node key and every
// tier named in parents/children is already a canonical tier: a
// non-canonical sibling is folded into its canonical representative the
// moment it is discovered, since only the canonical tier is ever
// actually solved (sdk/tierworker's resolveExternalChild applies the
// same rule when reading records).
type graph struct {
	nodes map[gameapi.Tier]*node
	order []gameapi.Tier // discovery order, for deterministic iteration
}

// buildGraph runs the iterative DFS described in spec.md §4.I: three
// colors to detect cycles (an InProgress tier reached again means a
// cycle), and a per-tier count of distinct canonical children used to
// seed the ready queue once it reaches zero.
func buildGraph(game gameapi.Game) (*graph, error) {
	g := &graph{nodes: make(map[gameapi.Tier]*node)}

	root, err := game.GetCanonicalTier(game.GetInitialTier())
	if err != nil {
		return nil, solverr.Wrap(solverr.KindArgument, err)
	}

	colors := map[gameapi.Tier]color{}

	type frame struct {
		tier     gameapi.Tier
		children []gameapi.Tier
		next     int
	}
	var stack []*frame

	push := func(tier gameapi.Tier) error {
		children, err := childTiersOf(game, tier)
		if err != nil {
			return err
		}
		colors[tier] = inProgress
		g.nodes[tier] = &node{tier: tier, numUnsolvedChildren: len(children)}
		g.order = append(g.order, tier)
		stack = append(stack, &frame{tier: tier, children: children})
		return nil
	}

	if err := push(root); err != nil {
		return nil, err
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.children) {
			colors[top.tier] = closed
			stack = stack[:len(stack)-1]
			continue
		}

		child := top.children[top.next]
		top.next++

		switch colors[child] {
		case notVisited:
			if err := push(child); err != nil {
				return nil, err
			}
		case inProgress:
			return nil, solverr.Wrapf(solverr.KindGraphStructure, "tier %d: cycle detected through tier %d", top.tier, child)
		case closed:
			// Already fully explored; nothing more to do.
		}

		// child is already canonical, since childTiersOf canonicalizes,
		// and its node now exists regardless of which branch above ran.
		addParent(g.nodes[child], top.tier)
	}

	return g, nil
}

func addParent(n *node, parent gameapi.Tier) {
	for _, p := range n.parents {
		if p == parent {
			return
		}
	}
	n.parents = append(n.parents, parent)
}

// childTiersOf fetches tier's child tiers and canonicalizes + dedupes
// them, mirroring tierworker's own canonicalizeChildTiers: the dag only
// ever reasons about canonical tiers, both for node identity and for
// the "distinct child" count that seeds num_unsolved_children (spec's
// "deduplicate symmetric parents, counting each child-contribution only
// once").
func childTiersOf(game gameapi.Game, tier gameapi.Tier) ([]gameapi.Tier, error) {
	buf := make([]gameapi.Tier, 16)
	var raw []gameapi.Tier
	for {
		n, err := game.GetChildTiers(tier, buf)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindArgument, err)
		}
		if n < len(buf) {
			raw = buf[:n]
			break
		}
		buf = make([]gameapi.Tier, len(buf)*2)
	}

	seen := make(map[gameapi.Tier]bool, len(raw))
	out := make([]gameapi.Tier, 0, len(raw))
	for _, t := range raw {
		canon, err := game.GetCanonicalTier(t)
		if err != nil {
			return nil, solverr.Wrap(solverr.KindArgument, err)
		}
		if canon == tier || seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, canon)
	}
	return out, nil
}
