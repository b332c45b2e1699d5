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

// Package manifest serialises the joined member, stance and tracker view
// into the spreadsheet table and its machine-readable twin.
package manifest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ssext/submission/internal/compose"
	"github.com/ssext/submission/internal/models"
	"github.com/ssext/submission/internal/outbox"
)

// Output file names.
const (
	CSVFile  = "SUBMISSION_MANIFEST.csv"
	JSONFile = "SUBMISSION_MANIFEST.json"
)

// Row is one recipient's line. Field order is the column order.
type Row struct {
	Priority         int    `json:"priority"`
	ID               string `json:"id"`
	Name             string `json:"name"`
	Chamber          string `json:"chamber"`
	StateDistrict    string `json:"state_district"`
	Party            string `json:"party"`
	Stance           string `json:"stance"`
	ContactForm      string `json:"contact_form"`
	DCPhone          string `json:"dc_phone"`
	WebFormFile      string `json:"web_form_file"`
	USPSFile         string `json:"usps_file"`
	Subject          string `json:"subject"`
	Topic            string `json:"topic"`
	WebFormStatus    string `json:"web_form_status"`
	USPSStatus       string `json:"usps_status"`
	CWCStatus        string `json:"cwc_xml_status"`
	GenerationStatus string `json:"generation_status"`
	MessageHash      string `json:"message_hash"`
}

var header = []string{
	"priority", "id", "name", "chamber", "state_district", "party", "stance",
	"contact_form", "dc_phone", "web_form_file", "usps_file", "subject", "topic",
	"web_form_status", "usps_status", "cwc_xml_status", "generation_status", "message_hash",
}

func (r Row) record() []string {
	return []string{
		strconv.Itoa(r.Priority), r.ID, r.Name, r.Chamber, r.StateDistrict, r.Party, r.Stance,
		r.ContactForm, r.DCPhone, r.WebFormFile, r.USPSFile, r.Subject, r.Topic,
		r.WebFormStatus, r.USPSStatus, r.CWCStatus, r.GenerationStatus, r.MessageHash,
	}
}

// NewRow derives a row from the member and its tracker record. Artifact
// file names come from the tracker and are blank when no file exists.
func NewRow(m models.Member, rec models.SubmissionRecord) Row {
	subject, _, topic, _ := compose.Describe(m.Strategy.Stance)

	row := Row{
		Priority:         rec.Priority,
		ID:               m.ID,
		Name:             m.Name,
		Chamber:          string(m.Chamber),
		StateDistrict:    m.Seat(),
		Party:            string(m.Party),
		Stance:           string(m.Strategy.Stance),
		ContactForm:      m.Contact.ContactForm,
		DCPhone:          m.Contact.DCPhone,
		Subject:          subject,
		Topic:            topic,
		WebFormStatus:    string(rec.StatusOf(models.ChannelWebForm)),
		USPSStatus:       string(rec.StatusOf(models.ChannelUSPS)),
		CWCStatus:        string(rec.StatusOf(models.ChannelCWC)),
		GenerationStatus: rec.GenerationStatus,
		MessageHash:      rec.MessageHash,
	}
	row.WebFormFile = artifactName(rec, models.ChannelWebForm)
	row.USPSFile = artifactName(rec, models.ChannelUSPS)
	return row
}

// artifactName is the base name of the file last written for c, or empty
// when the latest pass produced none.
func artifactName(rec models.SubmissionRecord, c models.Channel) string {
	st := rec.Channels[c]
	if st == nil || st.Artifact == "" {
		return ""
	}
	return filepath.Base(st.Artifact)
}

type document struct {
	CampaignID  string    `json:"campaign_id"`
	LastUpdated time.Time `json:"last_updated"`
	Count       int       `json:"count"`
	Recipients  []Row     `json:"recipients"`
}

// Write stores both manifest files in dir. Rows are written in the order
// given. Identical rows always produce identical bytes, except for the JSON
// last_updated field.
func Write(dir, campaignID string, rows []Row, now time.Time) error {
	csvData, err := EncodeCSV(rows)
	if err != nil {
		return err
	}
	jsonData, err := EncodeJSON(campaignID, rows, now)
	if err != nil {
		return err
	}

	if err := outbox.WriteFileAtomic(filepath.Join(dir, CSVFile), csvData); err != nil {
		return fmt.Errorf("write manifest CSV: %w", err)
	}
	if err := outbox.WriteFileAtomic(filepath.Join(dir, JSONFile), jsonData); err != nil {
		return fmt.Errorf("write manifest JSON: %w", err)
	}
	return nil
}

// EncodeCSV renders the spreadsheet table.
func EncodeCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(r.record()); err != nil {
			return nil, fmt.Errorf("manifest row %s: %w", r.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode manifest CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJSON renders the machine-readable document.
func EncodeJSON(campaignID string, rows []Row, now time.Time) ([]byte, error) {
	if rows == nil {
		rows = []Row{}
	}
	data, err := json.MarshalIndent(document{
		CampaignID:  campaignID,
		LastUpdated: now.UTC(),
		Count:       len(rows),
		Recipients:  rows,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest JSON: %w", err)
	}
	return append(data, '\n'), nil
}
