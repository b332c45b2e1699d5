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

// Package stance loads the externally supplied stance and strategy table and
// answers pure lookups against it. Nothing here infers a classification.
package stance

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ssext/submission/internal/models"
)

// TableError lists every invalid or duplicate row found while loading.
type TableError struct {
	Problems []string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("strategy table: %d invalid rows: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// rawTable mirrors the YAML structure for unmarshalling.
type rawTable struct {
	Members []struct {
		ID     string   `yaml:"id"`
		Stance string   `yaml:"stance"`
		Tier   string   `yaml:"tier"`
		Tags   []string `yaml:"tags"`
		Notes  string   `yaml:"notes"`
	} `yaml:"members"`
}

// Classifier maps recipient id to its StanceRecord.
type Classifier struct {
	records map[string]models.StanceRecord
}

// New builds a classifier from already-validated records.
func New(records map[string]models.StanceRecord) *Classifier {
	c := &Classifier{records: make(map[string]models.StanceRecord, len(records))}
	for id, r := range records {
		c.records[id] = r
	}
	return c
}

// Load reads the strategy table. Any stance outside the closed taxonomy, any
// unknown tier tag and any duplicate id is reported in a *TableError; the
// offending rows are never defaulted.
func Load(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy table %s: %w", path, err)
	}

	var raw rawTable
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse strategy table YAML: %w", err)
	}

	records := make(map[string]models.StanceRecord, len(raw.Members))
	var problems []string
	for i, row := range raw.Members {
		id := strings.TrimSpace(row.ID)
		if id == "" {
			problems = append(problems, fmt.Sprintf("row %d: empty id", i+1))
			continue
		}
		if _, dup := records[id]; dup {
			problems = append(problems, fmt.Sprintf("%s: duplicate row", id))
			continue
		}

		st, err := models.ParseStance(row.Stance)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		tier, err := models.ParseTier(row.Tier)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", id, err))
			continue
		}

		records[id] = models.StanceRecord{
			Stance: st,
			Tier:   tier,
			Tags:   row.Tags,
			Notes:  row.Notes,
		}
	}

	if len(problems) > 0 {
		return nil, &TableError{Problems: problems}
	}
	return &Classifier{records: records}, nil
}

// Classify returns the stance record for a recipient id.
func (c *Classifier) Classify(id string) (models.StanceRecord, bool) {
	r, ok := c.records[id]
	return r, ok
}

// IDs returns every classified id in sorted order.
func (c *Classifier) IDs() []string {
	ids := make([]string, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len is the number of classified recipients.
func (c *Classifier) Len() int { return len(c.records) }
