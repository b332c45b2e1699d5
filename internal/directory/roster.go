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

package directory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ssext/submission/internal/models"
)

// Official chamber sizes. Any other count is a load-time integrity failure.
const (
	SenateSize = 100
	HouseSize  = 435
	Total      = SenateSize + HouseSize
)

// rosterRow is one parsed CSV line before validation.
type rosterRow struct {
	line   int
	fields map[string]string
}

// readCSV reads a headed CSV file into rows keyed by lower-cased header,
// failing if any required column is absent.
func readCSV(path string, required ...string) ([]rosterRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read roster header %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	for _, col := range required {
		found := false
		for _, h := range header {
			if h == col {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("roster %s: missing column %q", path, col)
		}
	}

	var rows []rosterRow
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster %s: %w", path, err)
		}
		row := rosterRow{line: line, fields: make(map[string]string, len(header))}
		for i, h := range header {
			if i < len(rec) {
				row.fields[h] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// loadSenate parses the senate roster (id,name,state,party).
func loadSenate(path string) ([]models.Recipient, []Issue, error) {
	rows, err := readCSV(path, "id", "name", "state", "party")
	if err != nil {
		return nil, nil, err
	}

	var (
		out    []models.Recipient
		issues []Issue
	)
	for _, row := range rows {
		id, name := row.fields["id"], row.fields["name"]
		state := strings.ToUpper(row.fields["state"])

		if bad := checkIdentity(SourceSenateRoster, row.line, id, name); bad != nil {
			issues = append(issues, *bad)
			continue
		}
		if _, ok := models.StateName(state); !ok {
			issues = append(issues, Issue{Source: SourceSenateRoster, Key: id, Problem: fmt.Sprintf("unknown state %q", state)})
			continue
		}
		party, err := models.ParseParty(row.fields["party"])
		if err != nil {
			issues = append(issues, Issue{Source: SourceSenateRoster, Key: id, Problem: err.Error()})
			continue
		}

		out = append(out, models.Recipient{
			ID:      id,
			Name:    name,
			Chamber: models.ChamberSenate,
			State:   state,
			Party:   party,
		})
	}
	return out, issues, nil
}

// loadHouse parses the house roster (id,name,district,party).
func loadHouse(path string) ([]models.Recipient, []Issue, error) {
	rows, err := readCSV(path, "id", "name", "district", "party")
	if err != nil {
		return nil, nil, err
	}

	var (
		out    []models.Recipient
		issues []Issue
	)
	for _, row := range rows {
		id, name := row.fields["id"], row.fields["name"]

		if bad := checkIdentity(SourceHouseRoster, row.line, id, name); bad != nil {
			issues = append(issues, *bad)
			continue
		}
		state, _, err := models.ParseDistrict(row.fields["district"])
		if err != nil {
			issues = append(issues, Issue{Source: SourceHouseRoster, Key: id, Problem: err.Error()})
			continue
		}
		party, err := models.ParseParty(row.fields["party"])
		if err != nil {
			issues = append(issues, Issue{Source: SourceHouseRoster, Key: id, Problem: err.Error()})
			continue
		}

		out = append(out, models.Recipient{
			ID:       id,
			Name:     name,
			Chamber:  models.ChamberHouse,
			State:    state,
			District: strings.ToUpper(row.fields["district"]),
			Party:    party,
		})
	}
	return out, issues, nil
}

func checkIdentity(source string, line int, id, name string) *Issue {
	if id == "" {
		return &Issue{Source: source, Key: fmt.Sprintf("line %d", line), Problem: "empty id"}
	}
	if name == "" {
		return &Issue{Source: source, Key: id, Problem: "empty name"}
	}
	return nil
}
