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

package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssext/submission/internal/fixture"
	"github.com/ssext/submission/internal/models"
	"github.com/ssext/submission/internal/priority"
)

var now = time.Date(2026, 3, 20, 15, 0, 0, 0, time.UTC)

func records(members []models.Member) []models.SubmissionRecord {
	out := make([]models.SubmissionRecord, 0, len(members))
	for i, m := range members {
		out = append(out, *models.NewSubmissionRecord(m.ID, i+1, now))
	}
	return out
}

func set(rec *models.SubmissionRecord, c models.Channel, st models.Status, followUp string) {
	rec.Channels[c] = &models.ChannelState{Status: st, FollowUpOn: followUp}
}

// TestSummarize_Empty verifies an untouched ledger reports zero touched.
func TestSummarize_Empty(t *testing.T) {
	members := fixture.Build().Members()
	s := Summarize(members, records(members))

	assert.Equal(t, 535, s.Records)
	assert.Zero(t, s.Touched)
	for _, c := range models.Channels() {
		assert.Equal(t, 535, s.ByChannel[c][models.StatusNotSent])
	}
	assert.Empty(t, s.Flagged)
}

// TestSummarize_Counts verifies per-channel, stance and chamber counts.
func TestSummarize_Counts(t *testing.T) {
	tables := fixture.Build()
	aoc := tables.Find("H-NY-14")
	hostile := tables.Find("H-OK-4")
	members := []models.Member{aoc, hostile, tables.Find("S-LA-1")}
	recs := records(members)

	set(&recs[0], models.ChannelWebForm, models.StatusSubmitted, "2026-04-01")
	set(&recs[0], models.ChannelUSPS, models.StatusGenerated, "")
	set(&recs[1], models.ChannelUSPS, models.StatusGenerated, "")
	recs[1].GenerationStatus = "web_form: channel unavailable"
	recs[0].GenerationStatus = models.GenerationOK

	s := Summarize(members, recs)
	assert.Equal(t, 3, s.Records)
	assert.Equal(t, 2, s.Touched)
	assert.Equal(t, 1, s.ByChannel[models.ChannelWebForm][models.StatusSubmitted])
	assert.Equal(t, 2, s.ByChannel[models.ChannelUSPS][models.StatusGenerated])
	assert.Equal(t, 1, s.ByChannel[models.ChannelUSPS][models.StatusNotSent])
	assert.Equal(t, 1, s.ByStance[models.StanceReceptive])
	assert.Equal(t, 1, s.ByStance[models.StanceHostile])
	assert.Equal(t, 2, s.ByChamber[models.ChamberHouse])
	assert.Zero(t, s.ByChamber[models.ChamberSenate])
	assert.Equal(t, []string{"H-OK-4"}, s.Flagged)
}

// TestDueFollowUps verifies only submitted channels at or past their date
// are reported, oldest first.
func TestDueFollowUps(t *testing.T) {
	tables := fixture.Build()
	members := []models.Member{tables.Find("H-NY-14"), tables.Find("S-LA-1"), tables.Find("H-OK-4")}
	recs := records(members)

	set(&recs[0], models.ChannelWebForm, models.StatusSubmitted, "2026-03-20")
	set(&recs[1], models.ChannelUSPS, models.StatusSubmitted, "2026-03-06")
	set(&recs[1], models.ChannelWebForm, models.StatusSubmitted, "2026-03-21")
	set(&recs[2], models.ChannelUSPS, models.StatusResponded, "2026-03-01")

	due := DueFollowUps(members, recs, now)
	require.Len(t, due, 2)
	assert.Equal(t, "S-LA-1", due[0].ID)
	assert.Equal(t, models.ChannelUSPS, due[0].Channel)
	assert.Equal(t, "H-NY-14", due[1].ID)
	assert.Equal(t, tables.Find("H-NY-14").Name, due[1].Name)
}

// TestWriteStatus verifies the rendered report mentions counts and follow-ups.
func TestWriteStatus(t *testing.T) {
	tables := fixture.Build()
	members := tables.Members()
	recs := records(members)
	set(&recs[0], models.ChannelWebForm, models.StatusSubmitted, "2026-03-17")

	var buf bytes.Buffer
	s := Summarize(members, recs)
	require.NoError(t, WriteStatus(&buf, s, DueFollowUps(members, recs, now), now))

	out := buf.String()
	assert.Contains(t, out, "SUBMISSION STATUS")
	assert.Contains(t, out, "Records:    535")
	assert.Contains(t, out, "PENDING FOLLOW-UPS (1)")
	assert.Contains(t, out, "due 2026-03-17 (3 days ago)")
}

// TestWriteStatus_Untouched verifies the hint shown before any generation.
func TestWriteStatus_Untouched(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, Summary{Records: 1200}, nil, now))
	assert.Contains(t, buf.String(), "Records: 1,200, none generated")
	assert.NotContains(t, buf.String(), "FOLLOW-UPS")
}

// TestSchedule verifies named tiers get a day each and stance tiers are
// batched without gaps.
func TestSchedule(t *testing.T) {
	plan, err := priority.New(priority.Lists{
		Champions:   fixture.Champions,
		Bridges:     fixture.Bridges,
		Gatekeepers: fixture.Gatekeepers,
	}).Assign(fixture.Build().Members())
	require.NoError(t, err)

	days := Schedule(plan, 0)

	type span struct {
		Label    string
		From, To int
	}
	var got []span
	for i, d := range days {
		assert.Equal(t, i+1, d.Number)
		got = append(got, span{d.Label, d.FromRank, d.ToRank})
	}
	want := []span{
		{"Champions", 1, 14},
		{"Bridges", 15, 23},
		{"Gatekeepers", 24, 31},
		{"Receptive batch 1", 32, 131},
		{"Receptive batch 2", 132, 231},
		{"Skeptical", 232, 273},
		{"Hostile batch 1", 274, 361},
		{"Hostile batch 2", 362, 448},
		{"Hostile batch 3", 449, 535},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("schedule mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSchedule(&buf, days, 14*24*time.Hour))
	assert.Contains(t, buf.String(), "Day 1: Champions")
	assert.Contains(t, buf.String(), "follow-up 2 weeks after submission")
}
