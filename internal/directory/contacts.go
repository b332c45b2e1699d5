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
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ssext/submission/internal/models"
)

// rawContacts mirrors the contact directory YAML for unmarshalling.
type rawContacts struct {
	Members []struct {
		ID           string          `yaml:"id"`
		DCOffice     string          `yaml:"dc_office"`
		DCPhone      string          `yaml:"dc_phone"`
		Website      string          `yaml:"website"`
		ContactForm  string          `yaml:"contact_form"`
		LocalOffices []models.Office `yaml:"local_offices"`
	} `yaml:"members"`
}

// loadContacts parses the contact directory keyed by recipient id.
func loadContacts(path string) (map[string]models.ContactInfo, []Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read contact directory %s: %w", path, err)
	}

	var raw rawContacts
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse contact directory YAML: %w", err)
	}

	contacts := make(map[string]models.ContactInfo, len(raw.Members))
	var issues []Issue
	for i, m := range raw.Members {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			issues = append(issues, Issue{Source: SourceContacts, Key: fmt.Sprintf("row %d", i+1), Problem: "empty id"})
			continue
		}
		if _, dup := contacts[id]; dup {
			issues = append(issues, Issue{Source: SourceContacts, Key: id, Problem: "duplicate row"})
			continue
		}
		// Without a DC office the USPS channel has nowhere to go.
		if strings.TrimSpace(m.DCOffice) == "" {
			issues = append(issues, Issue{Source: SourceContacts, Key: id, Problem: "empty dc_office"})
			continue
		}

		contacts[id] = models.ContactInfo{
			DCOffice:     strings.TrimSpace(m.DCOffice),
			DCPhone:      strings.TrimSpace(m.DCPhone),
			Website:      strings.TrimSpace(m.Website),
			ContactForm:  strings.TrimSpace(m.ContactForm),
			LocalOffices: m.LocalOffices,
		}
	}
	return contacts, issues, nil
}
