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

// Package directory builds the canonical member table by joining the two
// chamber rosters, the contact directory and the stance classifier. Partial
// data never degrades to defaults: every unmatched or malformed row is
// reported and the whole load fails.
package directory

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ssext/submission/internal/models"
	"github.com/ssext/submission/internal/stance"
)

// Issue sources.
const (
	SourceSenateRoster = "senate_roster"
	SourceHouseRoster  = "house_roster"
	SourceRoster       = "roster"
	SourceContacts     = "contacts"
	SourceStrategy     = "strategy"
)

// Issue is one integrity problem found while loading or joining.
type Issue struct {
	Source  string
	Key     string
	Problem string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Source, i.Key, i.Problem)
}

// DataIntegrityError is fatal for the batch: it lists every issue found so
// the operator can fix the inputs in one pass.
type DataIntegrityError struct {
	Issues []Issue
}

func (e *DataIntegrityError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		lines[i] = is.String()
	}
	return fmt.Sprintf("data integrity: %d issues: %s", len(e.Issues), strings.Join(lines, "; "))
}

// IsDataIntegrity reports whether err is (or wraps) a DataIntegrityError.
func IsDataIntegrity(err error) bool {
	var die *DataIntegrityError
	return errors.As(err, &die)
}

// Paths locates the input tables.
type Paths struct {
	SenateRoster string
	HouseRoster  string
	Contacts     string
	Strategy     string
}

// Directory is the joined, read-only member table.
type Directory struct {
	members []models.Member
	byID    map[string]int
}

// Load reads all input tables and joins them. I/O and syntax errors are
// returned as-is; content problems are collected into a *DataIntegrityError.
func Load(p Paths) (*Directory, error) {
	var issues []Issue

	senate, senateIssues, err := loadSenate(p.SenateRoster)
	if err != nil {
		return nil, err
	}
	issues = append(issues, senateIssues...)

	house, houseIssues, err := loadHouse(p.HouseRoster)
	if err != nil {
		return nil, err
	}
	issues = append(issues, houseIssues...)

	contacts, contactIssues, err := loadContacts(p.Contacts)
	if err != nil {
		return nil, err
	}
	issues = append(issues, contactIssues...)

	classifier, err := stance.Load(p.Strategy)
	if err != nil {
		var tableErr *stance.TableError
		if !errors.As(err, &tableErr) {
			return nil, err
		}
		for _, prob := range tableErr.Problems {
			issues = append(issues, Issue{Source: SourceStrategy, Key: "table", Problem: prob})
		}
		classifier = stance.New(nil)
	}

	roster := append(senate, house...)
	dir, joinErr := Join(roster, contacts, classifier)

	if len(issues) > 0 {
		var die *DataIntegrityError
		if errors.As(joinErr, &die) {
			issues = append(issues, die.Issues...)
		}
		return nil, &DataIntegrityError{Issues: issues}
	}
	if joinErr != nil {
		return nil, joinErr
	}

	slog.Info("member directory loaded",
		"senate", len(senate),
		"house", len(house),
		"contacts", len(contacts),
		"classified", classifier.Len(),
	)
	return dir, nil
}

// Join merges roster, contacts and classifications by recipient id. It checks
// official chamber counts, seat uniqueness and one-to-one matching in both
// directions, and reports every failure at once.
func Join(roster []models.Recipient, contacts map[string]models.ContactInfo, classifier *stance.Classifier) (*Directory, error) {
	var issues []Issue

	var senateCount, houseCount int
	seen := make(map[string]bool, len(roster))
	districts := make(map[string]string)
	senators := make(map[string]int)

	members := make([]models.Member, 0, len(roster))
	for _, r := range roster {
		if seen[r.ID] {
			issues = append(issues, Issue{Source: SourceRoster, Key: r.ID, Problem: "duplicate id"})
			continue
		}
		seen[r.ID] = true

		switch r.Chamber {
		case models.ChamberSenate:
			senateCount++
			senators[r.State]++
			if senators[r.State] == 3 {
				issues = append(issues, Issue{Source: SourceRoster, Key: r.State, Problem: "more than two senators"})
			}
		case models.ChamberHouse:
			houseCount++
			if other, dup := districts[r.District]; dup {
				issues = append(issues, Issue{Source: SourceRoster, Key: r.ID, Problem: fmt.Sprintf("district %s already held by %s", r.District, other)})
			}
			districts[r.District] = r.ID
		}

		contact, hasContact := contacts[r.ID]
		if !hasContact {
			issues = append(issues, Issue{Source: SourceContacts, Key: r.ID, Problem: "no contact record"})
		}
		rec, hasStance := classifier.Classify(r.ID)
		if !hasStance {
			issues = append(issues, Issue{Source: SourceStrategy, Key: r.ID, Problem: "no stance record"})
		}
		if !hasContact || !hasStance {
			continue
		}

		members = append(members, models.Member{Recipient: r, Contact: contact, Strategy: rec})
	}

	if senateCount != SenateSize {
		issues = append(issues, Issue{Source: SourceRoster, Key: "senate", Problem: fmt.Sprintf("%d members, want %d", senateCount, SenateSize)})
	}
	if houseCount != HouseSize {
		issues = append(issues, Issue{Source: SourceRoster, Key: "house", Problem: fmt.Sprintf("%d members, want %d", houseCount, HouseSize)})
	}

	// Orphans: rows in the side tables that match no roster entry.
	for _, id := range sortedKeys(contacts) {
		if !seen[id] {
			issues = append(issues, Issue{Source: SourceContacts, Key: id, Problem: "orphan row, not in roster"})
		}
	}
	for _, id := range classifier.IDs() {
		if !seen[id] {
			issues = append(issues, Issue{Source: SourceStrategy, Key: id, Problem: "orphan row, not in roster"})
		}
	}

	if len(issues) > 0 {
		return nil, &DataIntegrityError{Issues: issues}
	}

	d := &Directory{members: members, byID: make(map[string]int, len(members))}
	for i, m := range members {
		d.byID[m.ID] = i
	}
	return d, nil
}

// Members returns a copy of the joined table in roster order.
func (d *Directory) Members() []models.Member {
	out := make([]models.Member, len(d.members))
	copy(out, d.members)
	return out
}

// Get looks up one member by id.
func (d *Directory) Get(id string) (models.Member, bool) {
	i, ok := d.byID[id]
	if !ok {
		return models.Member{}, false
	}
	return d.members[i], true
}

// Len is the number of joined members.
func (d *Directory) Len() int { return len(d.members) }

func sortedKeys(m map[string]models.ContactInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
