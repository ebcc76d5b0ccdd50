package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/drivevault/drivevault/internal/fault"
	"github.com/drivevault/drivevault/internal/storage"
)

// Group commits several member stores as one array-valued write under a
// composite key joined from the member keys. Members lose the ability
// to commit themselves the moment they join.
type Group struct {
	base
	engine  *storage.Engine
	members []Member
}

// NewGroup binds members into a group. At least two members are
// required; a single store needs no group.
func NewGroup(engine *storage.Engine, members ...Member) (*Group, error) {
	if len(members) < 2 {
		return nil, fault.Correctablef("store: a group needs at least two members, got %d", len(members))
	}
	keys := make([]string, len(members))
	for i, m := range members {
		if err := m.joinGroup(); err != nil {
			return nil, err
		}
		keys[i] = m.Key()
	}

	g := &Group{engine: engine, members: members}
	g.base.key = strings.Join(keys, "+")
	g.base.snapshot = g.groupSnapshot
	g.base.write = func(ctx context.Context, payload string) error {
		return engine.Set(ctx, g.base.key, payload)
	}
	return g, nil
}

// Restore loads the composite record and distributes the member
// payloads. An absent key restores every member to its zero value.
func (g *Group) Restore(ctx context.Context) error {
	if err := g.beginRestore(); err != nil {
		return err
	}
	raw, err := g.engine.Get(ctx, g.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		for _, m := range g.members {
			if err := m.memberRestore("", false); err != nil {
				g.failRestore()
				return err
			}
		}
		g.finishRestore("", false)
		return nil
	case err != nil:
		g.failRestore()
		return err
	}

	var payloads []string
	if err := json.Unmarshal([]byte(raw), &payloads); err != nil {
		g.failRestore()
		return fmt.Errorf("store: decode group %q: %w", g.key, err)
	}
	if len(payloads) != len(g.members) {
		g.failRestore()
		return fmt.Errorf("store: group %q holds %d payloads for %d members: %w",
			g.key, len(payloads), len(g.members), fault.ErrCorrupted)
	}
	for i, m := range g.members {
		if err := m.memberRestore(payloads[i], true); err != nil {
			g.failRestore()
			return err
		}
	}
	g.finishRestore(raw, true)
	return nil
}

func (g *Group) groupSnapshot() (string, error) {
	payloads := make([]string, len(g.members))
	for i, m := range g.members {
		p, err := m.memberSnapshot()
		if err != nil {
			return "", err
		}
		payloads[i] = p
	}
	data, err := json.Marshal(payloads)
	if err != nil {
		return "", fmt.Errorf("store: encode group %q: %w", g.key, err)
	}
	return string(data), nil
}
