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

package campaign

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ssext/submission/internal/models"
	"github.com/ssext/submission/internal/priority"
)

// Selection narrows a run to a subset of the plan. Zero values select
// everything; set fields are ANDed together.
type Selection struct {
	FromRank int
	ToRank   int
	Tiers    []priority.Tier
	Stances  []models.Stance
	Chambers []models.Chamber
	IDs      []string
}

// All reports whether the selection is unrestricted.
func (s Selection) All() bool {
	return s.FromRank == 0 && s.ToRank == 0 &&
		len(s.Tiers) == 0 && len(s.Stances) == 0 && len(s.Chambers) == 0 && len(s.IDs) == 0
}

// Match reports whether a placed member is selected.
func (s Selection) Match(pl priority.Placement, m models.Member) bool {
	if s.FromRank > 0 && pl.Rank < s.FromRank {
		return false
	}
	if s.ToRank > 0 && pl.Rank > s.ToRank {
		return false
	}
	if len(s.Tiers) > 0 && !contains(s.Tiers, pl.Tier) {
		return false
	}
	if len(s.Stances) > 0 && !contains(s.Stances, m.Strategy.Stance) {
		return false
	}
	if len(s.Chambers) > 0 && !contains(s.Chambers, m.Chamber) {
		return false
	}
	if len(s.IDs) > 0 && !contains(s.IDs, m.ID) {
		return false
	}
	return true
}

func contains[T comparable](xs []T, x T) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// ParseRange parses "N", "N-M", "N-" or "-M" into inclusive rank bounds.
func ParseRange(s string) (from, to int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, nil
	}
	lo, hi, isRange := strings.Cut(s, "-")
	if !isRange {
		hi = lo
	}
	if lo != "" {
		if from, err = strconv.Atoi(strings.TrimSpace(lo)); err != nil || from < 1 {
			return 0, 0, fmt.Errorf("bad rank range %q", s)
		}
	}
	if hi != "" {
		if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || to < 1 {
			return 0, 0, fmt.Errorf("bad rank range %q", s)
		}
	}
	if from > 0 && to > 0 && from > to {
		return 0, 0, fmt.Errorf("bad rank range %q: start after end", s)
	}
	return from, to, nil
}
