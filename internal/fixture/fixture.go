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

// Package fixture builds a synthetic but structurally faithful 535-member
// campaign (real apportionment, two senators per state, named priority
// lists) for tests across packages.
package fixture

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ssext/submission/internal/models"
)

// Apportionment after the 2020 census, in state-code order.
var apportionment = []struct {
	State string
	Seats int
}{
	{"AL", 7}, {"AK", 1}, {"AZ", 9}, {"AR", 4}, {"CA", 52}, {"CO", 8}, {"CT", 5}, {"DE", 1},
	{"FL", 28}, {"GA", 14}, {"HI", 2}, {"ID", 2}, {"IL", 17}, {"IN", 9}, {"IA", 4}, {"KS", 4},
	{"KY", 6}, {"LA", 6}, {"ME", 2}, {"MD", 8}, {"MA", 9}, {"MI", 13}, {"MN", 8}, {"MS", 4},
	{"MO", 8}, {"MT", 2}, {"NE", 3}, {"NV", 4}, {"NH", 2}, {"NJ", 12}, {"NM", 3}, {"NY", 26},
	{"NC", 14}, {"ND", 1}, {"OH", 15}, {"OK", 5}, {"OR", 6}, {"PA", 17}, {"RI", 2}, {"SC", 7},
	{"SD", 1}, {"TN", 9}, {"TX", 38}, {"UT", 4}, {"VT", 1}, {"VA", 11}, {"WA", 10}, {"WV", 2},
	{"WI", 8}, {"WY", 1},
}

var firstNames = []string{
	"Avery", "Blake", "Casey", "Dana", "Elliot", "Frances", "Glen", "Harper",
	"Imani", "Jesse", "Kendall", "Logan", "Morgan", "Noel", "Oakley", "Parker",
	"Quinn", "Reese", "Sage", "Taylor", "Uma", "Val", "Wren", "Yael",
}

var lastNames = []string{
	"Abbott", "Barrow", "Castillo", "Dunmore", "Ellery", "Fairbanks", "Garland", "Holloway",
	"Iverson", "Jennings", "Kowalski", "Lindqvist", "Mercado", "Nakamura", "Okafor", "Prescott",
	"Quintero", "Rasmussen", "Solberg", "Thibodeaux", "Underwood", "Valdivia", "Whitcombe",
}

// Named priority lists. Champions and bridges are non-hostile and
// gatekeepers hostile, so tiers 1-5 hold exactly 273 members.
var (
	Champions = []string{
		"S-OR-1", "S-VT-1", "S-MA-1", "S-RI-1", "S-NJ-1",
		"H-CT-1", "H-WA-7", "H-NY-8", "H-NY-14", "H-PA-2",
		"H-VA-8", "H-TX-37", "H-CT-3", "H-MA-5",
	}
	Bridges = []string{
		"S-LA-1", "S-ME-1", "S-ME-2", "S-AK-1", "S-VA-1",
		"S-CO-1", "H-PA-1", "H-MA-1", "H-ME-2",
	}
	Gatekeepers = []string{
		"S-SD-1", "S-ID-1", "S-SC-1", "H-LA-4",
		"H-MO-8", "H-TX-19", "H-AR-2", "H-OK-4",
	}
)

// Counts for the unnamed members, chosen to match the shipped roster.
const (
	unnamedReceptive = 200
	unnamedSkeptical = 42
	unnamedHostile   = 262
)

// Tables is the in-memory form of the four input files.
type Tables struct {
	Senate   []models.Recipient
	House    []models.Recipient
	Contacts map[string]models.ContactInfo
	Strategy map[string]models.StanceRecord
}

// Paths mirrors directory.Paths so callers can convert it directly.
type Paths struct {
	SenateRoster string
	HouseRoster  string
	Contacts     string
	Strategy     string
}

// Sender is a complete sender profile.
func Sender() models.SenderProfile {
	return models.SenderProfile{
		Prefix:       "Ms.",
		FirstName:    "Jordan",
		LastName:     "Rivera",
		Email:        "jordan.rivera@example.org",
		Phone:        "(503) 555-0142",
		Address1:     "1200 SE Morrison St",
		City:         "Portland",
		State:        "OR",
		Zip:          "97214",
		Organization: "Independent Policy Research",
	}
}

// Build returns the full 535-member fixture.
func Build() *Tables {
	t := &Tables{
		Contacts: make(map[string]models.ContactInfo, 535),
		Strategy: make(map[string]models.StanceRecord, 535),
	}

	i := 0
	name := func() string {
		n := firstNames[i%len(firstNames)] + " " + lastNames[i/len(firstNames)]
		i++
		return n
	}

	for _, a := range apportionment {
		for seat := 1; seat <= 2; seat++ {
			t.Senate = append(t.Senate, models.Recipient{
				ID:      fmt.Sprintf("S-%s-%d", a.State, seat),
				Name:    name(),
				Chamber: models.ChamberSenate,
				State:   a.State,
				Party:   partyFor(i),
			})
		}
	}
	for _, a := range apportionment {
		for d := 1; d <= a.Seats; d++ {
			district := fmt.Sprintf("%s-%d", a.State, d)
			if a.Seats == 1 {
				district = a.State + "-AL"
			}
			t.House = append(t.House, models.Recipient{
				ID:       "H-" + district,
				Name:     name(),
				Chamber:  models.ChamberHouse,
				State:    a.State,
				District: district,
				Party:    partyFor(i),
			})
		}
	}

	for k := range t.House {
		if t.House[k].ID == "H-NY-14" {
			t.House[k].Name = "Alexandria Ocasio-Cortez"
			t.House[k].Party = models.PartyDemocrat
		}
	}

	named := make(map[string]models.StanceRecord)
	for _, id := range Champions {
		named[id] = models.StanceRecord{Stance: models.StanceReceptive, Tier: models.TierChampion}
	}
	for _, id := range Bridges {
		named[id] = models.StanceRecord{Stance: models.StanceSkeptical, Tier: models.TierBridge}
	}
	for _, id := range Gatekeepers {
		named[id] = models.StanceRecord{Stance: models.StanceHostile, Tier: models.TierGatekeeper}
	}

	pool := make([]models.Stance, 0, unnamedReceptive+unnamedSkeptical+unnamedHostile)
	for n := 0; n < unnamedReceptive; n++ {
		pool = append(pool, models.StanceReceptive)
	}
	for n := 0; n < unnamedSkeptical; n++ {
		pool = append(pool, models.StanceSkeptical)
	}
	for n := 0; n < unnamedHostile; n++ {
		pool = append(pool, models.StanceHostile)
	}

	j := 0
	for _, r := range t.All() {
		t.Contacts[r.ID] = models.ContactInfo{
			DCOffice:    fmt.Sprintf("%d Example Office Building, Washington, DC 20510", 100+j%400),
			DCPhone:     "(202) 224-3121",
			Website:     "https://example.gov/" + r.ID,
			ContactForm: "https://example.gov/" + r.ID + "/contact",
		}
		if rec, ok := named[r.ID]; ok {
			t.Strategy[r.ID] = rec
			continue
		}
		// 5 is coprime with the pool size, so this visits every slot once.
		t.Strategy[r.ID] = models.StanceRecord{
			Stance: pool[(j*5)%len(pool)],
			Tier:   models.TierOrdinary,
		}
		j++
	}
	return t
}

func partyFor(i int) models.Party {
	if i%2 == 0 {
		return models.PartyDemocrat
	}
	return models.PartyRepublican
}

// All returns senators then representatives.
func (t *Tables) All() []models.Recipient {
	out := make([]models.Recipient, 0, len(t.Senate)+len(t.House))
	out = append(out, t.Senate...)
	return append(out, t.House...)
}

// Members returns the joined form, in roster order.
func (t *Tables) Members() []models.Member {
	var out []models.Member
	for _, r := range t.All() {
		out = append(out, models.Member{Recipient: r, Contact: t.Contacts[r.ID], Strategy: t.Strategy[r.ID]})
	}
	return out
}

// Find returns the joined member with the given id.
func (t *Tables) Find(id string) models.Member {
	for _, m := range t.Members() {
		if m.ID == id {
			return m
		}
	}
	panic("fixture: no member " + id)
}

// Write stores the four tables under dir in their on-disk formats.
func (t *Tables) Write(dir string) (Paths, error) {
	p := Paths{
		SenateRoster: filepath.Join(dir, "senate_roster.csv"),
		HouseRoster:  filepath.Join(dir, "house_roster.csv"),
		Contacts:     filepath.Join(dir, "contacts.yaml"),
		Strategy:     filepath.Join(dir, "strategy.yaml"),
	}

	senate := [][]string{{"id", "name", "state", "party"}}
	for _, r := range t.Senate {
		senate = append(senate, []string{r.ID, r.Name, r.State, string(r.Party)})
	}
	if err := writeCSV(p.SenateRoster, senate); err != nil {
		return Paths{}, err
	}

	house := [][]string{{"id", "name", "district", "party"}}
	for _, r := range t.House {
		house = append(house, []string{r.ID, r.Name, r.District, string(r.Party)})
	}
	if err := writeCSV(p.HouseRoster, house); err != nil {
		return Paths{}, err
	}

	type contactRow struct {
		ID           string          `yaml:"id"`
		DCOffice     string          `yaml:"dc_office"`
		DCPhone      string          `yaml:"dc_phone"`
		Website      string          `yaml:"website,omitempty"`
		ContactForm  string          `yaml:"contact_form,omitempty"`
		LocalOffices []models.Office `yaml:"local_offices,omitempty"`
	}
	var contacts struct {
		Members []contactRow `yaml:"members"`
	}
	for _, id := range sortedIDs(t.Contacts) {
		c := t.Contacts[id]
		contacts.Members = append(contacts.Members, contactRow{id, c.DCOffice, c.DCPhone, c.Website, c.ContactForm, c.LocalOffices})
	}
	if err := writeYAML(p.Contacts, contacts); err != nil {
		return Paths{}, err
	}

	type strategyRow struct {
		ID     string   `yaml:"id"`
		Stance string   `yaml:"stance"`
		Tier   string   `yaml:"tier"`
		Tags   []string `yaml:"tags,omitempty"`
	}
	var strategy struct {
		Members []strategyRow `yaml:"members"`
	}
	for _, id := range sortedIDs(t.Strategy) {
		s := t.Strategy[id]
		strategy.Members = append(strategy.Members, strategyRow{id, string(s.Stance), string(s.Tier), s.Tags})
	}
	if err := writeYAML(p.Strategy, strategy); err != nil {
		return Paths{}, err
	}

	return p, nil
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
