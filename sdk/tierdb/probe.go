package tierdb

import (
	"github.com/lox/tiersolve/sdk/bparray"
	"github.com/lox/tiersolve/sdk/gameapi"
	"github.com/lox/tiersolve/sdk/value"
)

// Probe is a per-caller handle that keeps at most one tier's decoded
// file resident, reopening only when the caller's query moves to a
// different tier (spec.md §4.E, §5 "resource lifecycle"). A Probe is
// not safe for concurrent use; callers needing concurrent probing use
// one Probe per goroutine.
type Probe struct {
	db   *Database
	tier gameapi.Tier
	open bool
	arr  *bparray.Array
}

// NewProbe returns a Probe bound to db. It opens nothing until the
// first ProbeValue/ProbeRemoteness call.
func (db *Database) NewProbe() *Probe {
	return &Probe{db: db}
}

func (p *Probe) ensure(tier gameapi.Tier) error {
	if p.open && p.tier == tier {
		return nil
	}
	arr, err := p.db.readTierArray(tier)
	if err != nil {
		p.open = false
		p.arr = nil
		return err
	}
	p.arr = arr
	p.tier = tier
	p.open = true
	return nil
}

// ProbeValue reads the value at (tier, pos), switching the probe's
// cached tier first if needed.
func (p *Probe) ProbeValue(tier gameapi.Tier, pos int64) (value.Value, error) {
	if err := p.ensure(tier); err != nil {
		return value.Error, err
	}
	enc, err := p.arr.Get(pos)
	if err != nil {
		return value.Error, err
	}
	return value.Record(enc).GetValue(), nil
}

// ProbeRemoteness reads the remoteness at (tier, pos), switching the
// probe's cached tier first if needed.
func (p *Probe) ProbeRemoteness(tier gameapi.Tier, pos int64) (value.Remoteness, error) {
	if err := p.ensure(tier); err != nil {
		return 0, err
	}
	enc, err := p.arr.Get(pos)
	if err != nil {
		return 0, err
	}
	return value.Record(enc).GetRemoteness(), nil
}

// Close releases the probe's cached tier. Discarding a Probe without
// calling Close is safe; this only drops the reference early so the
// GC can reclaim it sooner.
func (p *Probe) Close() error {
	p.arr = nil
	p.open = false
	return nil
}
