// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package priority assigns the campaign's submission order: a total,
// tie-free ranking of every member under a six-tier schedule. Named lists
// are explicit overrides checked before the stance fallback.
package priority

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ssext/submission/internal/models"
)

// Tier is a position in the six-tier schedule, 1 (first) to 6.
type Tier int

const (
	TierChampions Tier = iota + 1
	TierBridges
	TierGatekeepers
	TierReceptive
	TierSkeptical
	TierHostile
)

var tierNames = map[Tier]string{
	TierChampions:   "champions",
	TierBridges:     "bridges",
	TierGatekeepers: "gatekeepers",
	TierReceptive:   "receptive",
	TierSkeptical:   "skeptical",
	TierHostile:     "hostile",
}

func (t Tier) String() string {
	if n, ok := tierNames[t]; ok {
		return n
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Tiers lists the schedule in order.
func Tiers() []Tier {
	return []Tier{TierChampions, TierBridges, TierGatekeepers, TierReceptive, TierSkeptical, TierHostile}
}

// ParseTier accepts a tier name ("bridges") or number ("2").
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range Tiers() {
		if s == t.String() || s == fmt.Sprint(int(t)) || s == strings.TrimSuffix(t.String(), "s") {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown priority tier %q", s)
}

// Lists are the explicit named overrides for tiers 1-3, in fixed order.
type Lists struct {
	Champions   []string
	Bridges     []string
	Gatekeepers []string
}

// Placement is one member's position in the plan.
type Placement struct {
	Rank int
	ID   string
	Tier Tier
}

// Conflict flags a member claimed by more than one named tier. The member
// is placed in the first claiming tier; the rest are listed for review.
type Conflict struct {
	ID      string
	Placed  Tier
	Ignored []Tier
}

// Plan is the bijection from member id to rank 1..N.
type Plan struct {
	Order     []Placement
	Conflicts []Conflict
	byID      map[string]int
}

// Rank returns the member's rank, or 0 if the id is not in the plan.
func (p *Plan) Rank(id string) int {
	if i, ok := p.byID[id]; ok {
		return p.Order[i].Rank
	}
	return 0
}

// Placement returns the member's full placement.
func (p *Plan) Placement(id string) (Placement, bool) {
	i, ok := p.byID[id]
	if !ok {
		return Placement{}, false
	}
	return p.Order[i], true
}

// At returns the placement with the given rank.
func (p *Plan) At(rank int) (Placement, bool) {
	if rank < 1 || rank > len(p.Order) {
		return Placement{}, false
	}
	return p.Order[rank-1], true
}

// Counts is the number of members per tier.
func (p *Plan) Counts() map[Tier]int {
	out := make(map[Tier]int, len(Tiers()))
	for _, pl := range p.Order {
		out[pl.Tier]++
	}
	return out
}

// Orchestrator assigns ranks. It holds no state between calls.
type Orchestrator struct {
	lists Lists
}

// New creates an orchestrator over the given named lists.
func New(lists Lists) *Orchestrator {
	return &Orchestrator{lists: lists}
}

// Assign ranks every member. Tier membership for 1-3 is the named list (in
// list order) followed by any other member carrying the matching tier tag;
// tiers 4-6 take the remaining members by stance, ordered by chamber
// (senate first), then name, then id. Unknown ids in a named list fail.
func (o *Orchestrator) Assign(members []models.Member) (*Plan, error) {
	byID := make(map[string]models.Member, len(members))
	for _, m := range members {
		if _, dup := byID[m.ID]; dup {
			return nil, fmt.Errorf("assign priority: duplicate member %s", m.ID)
		}
		byID[m.ID] = m
	}

	named := []struct {
		tier Tier
		tag  models.Tier
		ids  []string
	}{
		{TierChampions, models.TierChampion, o.lists.Champions},
		{TierBridges, models.TierBridge, o.lists.Bridges},
		{TierGatekeepers, models.TierGatekeeper, o.lists.Gatekeepers},
	}

	var unknown []string
	for _, n := range named {
		for _, id := range n.ids {
			if _, ok := byID[id]; !ok {
				unknown = append(unknown, fmt.Sprintf("%s:%s", n.tier, id))
			}
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("assign priority: named lists reference unknown members: %s", strings.Join(unknown, ", "))
	}

	// Every tier that claims each member, in tier order.
	claims := make(map[string][]Tier)
	claim := func(id string, t Tier) {
		for _, have := range claims[id] {
			if have == t {
				return
			}
		}
		claims[id] = append(claims[id], t)
	}
	for _, n := range named {
		for _, id := range n.ids {
			claim(id, n.tier)
		}
	}
	for _, m := range members {
		for _, n := range named {
			if m.Strategy.Tier == n.tag {
				claim(m.ID, n.tier)
			}
		}
	}
	// First match wins in tier order.
	for _, ts := range claims {
		sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	}

	plan := &Plan{byID: make(map[string]int, len(members))}
	placed := make(map[string]bool, len(members))
	place := func(id string, t Tier) {
		placed[id] = true
		plan.byID[id] = len(plan.Order)
		plan.Order = append(plan.Order, Placement{Rank: len(plan.Order) + 1, ID: id, Tier: t})
	}

	for _, n := range named {
		var tagged []models.Member
		for _, id := range n.ids {
			if !placed[id] && claims[id][0] == n.tier {
				place(id, n.tier)
			}
		}
		for _, m := range members {
			if !placed[m.ID] && m.Strategy.Tier == n.tag && claims[m.ID][0] == n.tier {
				tagged = append(tagged, m)
			}
		}
		sortMembers(tagged)
		for _, m := range tagged {
			place(m.ID, n.tier)
		}
	}

	rest := map[models.Stance]Tier{
		models.StanceReceptive: TierReceptive,
		models.StanceSkeptical: TierSkeptical,
		models.StanceHostile:   TierHostile,
	}
	for _, st := range models.Stances() {
		var bucket []models.Member
		for _, m := range members {
			if !placed[m.ID] && m.Strategy.Stance == st {
				bucket = append(bucket, m)
			}
		}
		sortMembers(bucket)
		for _, m := range bucket {
			place(m.ID, rest[st])
		}
	}

	if len(plan.Order) != len(members) {
		return nil, fmt.Errorf("assign priority: placed %d of %d members", len(plan.Order), len(members))
	}

	ids := make([]string, 0, len(claims))
	for id, ts := range claims {
		if len(ts) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		ts := claims[id]
		plan.Conflicts = append(plan.Conflicts, Conflict{ID: id, Placed: ts[0], Ignored: ts[1:]})
		slog.Warn("member claimed by more than one priority tier",
			"recipient", id,
			"placed", ts[0].String(),
			"ignored", fmt.Sprint(ts[1:]),
		)
	}

	return plan, nil
}

func sortMembers(ms []models.Member) {
	chamberRank := func(c models.Chamber) int {
		if c == models.ChamberSenate {
			return 0
		}
		return 1
	}
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if ca, cb := chamberRank(a.Chamber), chamberRank(b.Chamber); ca != cb {
			return ca < cb
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}
