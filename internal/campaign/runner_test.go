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
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ssext/submission/internal/compose"
	"github.com/ssext/submission/internal/directory"
	"github.com/ssext/submission/internal/export"
	"github.com/ssext/submission/internal/fixture"
	"github.com/ssext/submission/internal/manifest"
	"github.com/ssext/submission/internal/models"
	"github.com/ssext/submission/internal/outbox"
	"github.com/ssext/submission/internal/priority"
	"github.com/ssext/submission/internal/tracker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var runTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type harness struct {
	runner  *Runner
	tracker *tracker.Tracker
	out     string
}

func newHarness(t *testing.T, members []models.Member, out string) *harness {
	t.Helper()
	now := func() time.Time { return runTime }

	plan, err := priority.New(priority.Lists{
		Champions:   fixture.Champions,
		Bridges:     fixture.Bridges,
		Gatekeepers: fixture.Gatekeepers,
	}).Assign(members)
	require.NoError(t, err)

	c, err := compose.New(compose.Config{Sender: fixture.Sender(), Now: now})
	require.NoError(t, err)

	tr, err := tracker.Open(filepath.Join(out, "submission_tracker.json"), tracker.Options{
		CampaignID: "SSExtAct2025",
		Now:        now,
	})
	require.NoError(t, err)

	return &harness{
		runner: NewRunner(RunnerConfig{
			Members:    members,
			Plan:       plan,
			Composer:   c,
			Outbox:     outbox.NewWriter(out),
			Tracker:    tr,
			CampaignID: "SSExtAct2025",
			Workers:    4,
			Now:        now,
		}),
		tracker: tr,
		out:     out,
	}
}

// loadMembers round-trips the fixture through the on-disk loader.
func loadMembers(t *testing.T, tables *fixture.Tables) []models.Member {
	t.Helper()
	p, err := tables.Write(t.TempDir())
	require.NoError(t, err)
	dir, err := directory.Load(directory.Paths(p))
	require.NoError(t, err)
	return dir.Members()
}

func countFiles(t *testing.T, dir, suffix string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			n++
		}
	}
	return n
}

func readTree(t *testing.T, root string, subdirs ...string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, sub := range subdirs {
		entries, err := os.ReadDir(filepath.Join(root, sub))
		require.NoError(t, err)
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join(root, sub, e.Name()))
			require.NoError(t, err)
			out[sub+"/"+e.Name()] = string(data)
		}
	}
	return out
}

// TestRun_FullBatch generates every channel for all 535 members.
func TestRun_FullBatch(t *testing.T) {
	h := newHarness(t, loadMembers(t, fixture.Build()), t.TempDir())

	res, err := h.runner.Run(context.Background(), Selection{})
	require.NoError(t, err)

	assert.False(t, res.Partial())
	assert.Equal(t, 535, res.Selected)
	assert.Equal(t, 535, res.Generated)
	assert.Empty(t, res.Unavailable)
	assert.Equal(t, 535+535+435, res.Written)

	assert.Equal(t, 535, countFiles(t, filepath.Join(h.out, "web_form"), ".txt"))
	assert.Equal(t, 535, countFiles(t, filepath.Join(h.out, "usps"), ".txt"))
	assert.Equal(t, 435, countFiles(t, filepath.Join(h.out, "cwc_xml"), ".xml"))
	assert.FileExists(t, filepath.Join(h.out, "usps", "mail_merge_data.csv"))

	assert.FileExists(t, filepath.Join(h.out, "web_form", "009_Alexandria_Ocasio-Cortez.txt"))
	assert.FileExists(t, filepath.Join(h.out, "cwc_xml", "H-NY-14_Alexandria_Ocasio-Cortez.xml"))

	// Every planned recipient has exactly one tracker record.
	recs := h.tracker.Records()
	require.Len(t, recs, 535)
	for i, rec := range recs {
		assert.Equal(t, i+1, rec.Priority)
		assert.Equal(t, models.GenerationOK, rec.GenerationStatus, rec.RecipientID)
		assert.Len(t, rec.MessageHash, 16)
		assert.Equal(t, models.StatusGenerated, rec.StatusOf(models.ChannelWebForm))
		assert.Equal(t, models.StatusGenerated, rec.StatusOf(models.ChannelUSPS))
		want := models.StatusGenerated
		if strings.HasPrefix(rec.RecipientID, "S-") {
			want = models.StatusNotSent
		}
		assert.Equal(t, want, rec.StatusOf(models.ChannelCWC), rec.RecipientID)
	}

	f, err := os.Open(filepath.Join(h.out, manifest.CSVFile))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 536)
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "535", rows[535][0])
	assert.FileExists(t, filepath.Join(h.out, manifest.JSONFile))
	assert.FileExists(t, filepath.Join(h.out, "submission_tracker.json"))
}

// TestRun_Deterministic verifies two independent full runs produce
// byte-identical text artifacts, and a rerun in place writes nothing.
func TestRun_Deterministic(t *testing.T) {
	members := loadMembers(t, fixture.Build())

	a := newHarness(t, members, t.TempDir())
	_, err := a.runner.Run(context.Background(), Selection{})
	require.NoError(t, err)

	b := newHarness(t, members, t.TempDir())
	_, err = b.runner.Run(context.Background(), Selection{})
	require.NoError(t, err)

	treeA := readTree(t, a.out, "web_form", "usps", "cwc_xml")
	treeB := readTree(t, b.out, "web_form", "usps", "cwc_xml")
	if diff := cmp.Diff(treeA, treeB); diff != "" {
		t.Errorf("artifacts differ between runs (-a +b):\n%s", diff)
	}

	csvA, err := os.ReadFile(filepath.Join(a.out, manifest.CSVFile))
	require.NoError(t, err)
	csvB, err := os.ReadFile(filepath.Join(b.out, manifest.CSVFile))
	require.NoError(t, err)
	assert.Equal(t, string(csvA), string(csvB))

	// Subset rerun into the same directory finds nothing to rewrite.
	again, err := a.runner.Run(context.Background(), Selection{FromRank: 1, ToRank: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, again.Selected)
	assert.Equal(t, 0, again.Written)
	assert.GreaterOrEqual(t, again.Unchanged, 100)
}

// TestRun_ChannelUnavailable removes one contact form and checks only the
// web-form channel is affected.
func TestRun_ChannelUnavailable(t *testing.T) {
	tables := fixture.Build()
	c := tables.Contacts["H-TX-3"]
	c.ContactForm = ""
	tables.Contacts["H-TX-3"] = c

	h := newHarness(t, loadMembers(t, tables), t.TempDir())
	res, err := h.runner.Run(context.Background(), Selection{})
	require.NoError(t, err)

	assert.False(t, res.Partial(), "a missing form is flagged, not a failure")
	require.Len(t, res.Unavailable, 1)
	assert.Equal(t, "H-TX-3", res.Unavailable[0].ID)
	assert.Equal(t, models.ChannelWebForm, res.Unavailable[0].Channel)

	assert.Equal(t, 534, countFiles(t, filepath.Join(h.out, "web_form"), ".txt"))
	assert.Equal(t, 535, countFiles(t, filepath.Join(h.out, "usps"), ".txt"))
	assert.Equal(t, 435, countFiles(t, filepath.Join(h.out, "cwc_xml"), ".xml"))

	rec, ok := h.tracker.Get("H-TX-3")
	require.True(t, ok)
	assert.Equal(t, models.StatusNotSent, rec.StatusOf(models.ChannelWebForm))
	assert.Equal(t, models.StatusGenerated, rec.StatusOf(models.ChannelUSPS))
	assert.Equal(t, models.StatusGenerated, rec.StatusOf(models.ChannelCWC))
	assert.Equal(t, "web_form: channel unavailable", rec.GenerationStatus)

	data, err := os.ReadFile(filepath.Join(h.out, manifest.CSVFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "web_form: channel unavailable")
}

// TestRun_Subset generates one tier without clearing other output.
func TestRun_Subset(t *testing.T) {
	h := newHarness(t, loadMembers(t, fixture.Build()), t.TempDir())

	stale := filepath.Join(h.out, "web_form", "999_Stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	res, err := h.runner.Run(context.Background(), Selection{Tiers: []priority.Tier{priority.TierChampions}})
	require.NoError(t, err)
	assert.Equal(t, 14, res.Selected)
	assert.FileExists(t, stale)
	assert.Equal(t, 14+1, countFiles(t, filepath.Join(h.out, "web_form"), ".txt"))

	recs := h.tracker.Records()
	require.Len(t, recs, 535)
	assert.Equal(t, models.StatusGenerated, recs[0].StatusOf(models.ChannelUSPS))
	assert.Equal(t, models.StatusNotSent, recs[14].StatusOf(models.ChannelUSPS))
	assert.Equal(t, models.GenerationPending, recs[14].GenerationStatus)

	// A full run clears the stale file.
	_, err = h.runner.Run(context.Background(), Selection{})
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

// TestRun_KeepsSubmittedStatus verifies regeneration does not regress
// operator transitions.
func TestRun_KeepsSubmittedStatus(t *testing.T) {
	h := newHarness(t, loadMembers(t, fixture.Build()), t.TempDir())
	_, err := h.runner.Run(context.Background(), Selection{IDs: []string{"H-NY-14"}})
	require.NoError(t, err)

	_, err = h.tracker.Transition("H-NY-14", models.ChannelWebForm, models.StatusSubmitted, tracker.TransitionOptions{})
	require.NoError(t, err)

	_, err = h.runner.Run(context.Background(), Selection{})
	require.NoError(t, err)

	rec, _ := h.tracker.Get("H-NY-14")
	assert.Equal(t, models.StatusSubmitted, rec.StatusOf(models.ChannelWebForm))
}

// TestRun_ComposeFailureIsPartial verifies a per-recipient failure is
// collected and the rest of the batch proceeds.
func TestRun_ComposeFailureIsPartial(t *testing.T) {
	members := fixture.Build().Members()
	for i := range members {
		if members[i].ID == "S-SD-1" {
			members[i].Strategy.Stance = "UNDECIDED"
		}
	}
	h := newHarness(t, members, t.TempDir())

	res, err := h.runner.Run(context.Background(), Selection{})
	require.NoError(t, err)
	assert.True(t, res.Partial())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "S-SD-1", res.Failures[0].ID)
	assert.Empty(t, res.Failures[0].Channel)
	assert.Equal(t, 534, res.Generated)

	rec, _ := h.tracker.Get("S-SD-1")
	assert.True(t, strings.HasPrefix(rec.GenerationStatus, "compose: "), rec.GenerationStatus)
	assert.Equal(t, models.StatusNotSent, rec.StatusOf(models.ChannelUSPS))
}

// TestRun_Canceled verifies a canceled context aborts the run.
func TestRun_Canceled(t *testing.T) {
	h := newHarness(t, fixture.Build().Members(), t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.runner.Run(ctx, Selection{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

// TestPreview renders one recipient without touching disk.
func TestPreview(t *testing.T) {
	out := t.TempDir()
	h := newHarness(t, fixture.Build().Members(), out)

	p, err := h.runner.Preview(9)
	require.NoError(t, err)
	assert.Equal(t, "H-NY-14", p.Member.ID)
	assert.Equal(t, priority.TierChampions, p.Placement.Tier)
	assert.Equal(t, "Expanding Social Security: Revenue-Constrained Benefit Extension", p.Package.Subject)
	require.Len(t, p.Artifacts, 3)
	assert.Equal(t, models.ChannelCWC, p.Artifacts[2].Channel)

	senator, err := h.runner.Preview(1)
	require.NoError(t, err)
	assert.Len(t, senator.Artifacts, 2)

	_, err = h.runner.Preview(536)
	assert.Error(t, err)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestParseRange covers the accepted forms.
func TestParseRange(t *testing.T) {
	cases := []struct {
		in       string
		from, to int
		bad      bool
	}{
		{in: "1-14", from: 1, to: 14},
		{in: "274-", from: 274},
		{in: "-31", to: 31},
		{in: "9", from: 9, to: 9},
		{in: ""},
		{in: "14-1", bad: true},
		{in: "a-b", bad: true},
		{in: "0-5", bad: true},
	}
	for _, tc := range cases {
		from, to, err := ParseRange(tc.in)
		if tc.bad {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.from, from, tc.in)
		assert.Equal(t, tc.to, to, tc.in)
	}
}

// TestSelection_Match checks AND semantics.
func TestSelection_Match(t *testing.T) {
	m := fixture.Build().Find("H-NY-14")
	pl := priority.Placement{Rank: 9, ID: m.ID, Tier: priority.TierChampions}

	assert.True(t, Selection{}.Match(pl, m))
	assert.True(t, Selection{FromRank: 1, ToRank: 14, Chambers: []models.Chamber{models.ChamberHouse}}.Match(pl, m))
	assert.False(t, Selection{FromRank: 10}.Match(pl, m))
	assert.False(t, Selection{Stances: []models.Stance{models.StanceHostile}}.Match(pl, m))
	assert.False(t, Selection{Tiers: []priority.Tier{priority.TierBridges}}.Match(pl, m))
	assert.True(t, Selection{}.All())
	assert.False(t, Selection{ToRank: 14}.All())
}

// manifestRows reads the CSV manifest keyed by recipient id.
func manifestRows(t *testing.T, out string) map[string]map[string]string {
	t.Helper()
	f, err := os.Open(filepath.Join(out, manifest.CSVFile))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	rows := make(map[string]map[string]string, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(rec))
		for i, col := range records[0] {
			row[col] = rec[i]
		}
		rows[row["id"]] = row
	}
	return rows
}

// TestRun_LostContactFormClearsFile verifies that regenerating after a
// recipient's form URL disappears leaves no manifest file name pointing at
// the deleted web-form file.
func TestRun_LostContactFormClearsFile(t *testing.T) {
	out := t.TempDir()
	first := newHarness(t, loadMembers(t, fixture.Build()), out)
	_, err := first.runner.Run(context.Background(), Selection{})
	require.NoError(t, err)
	before := manifestRows(t, out)["H-TX-3"]
	require.NotEmpty(t, before["web_form_file"])

	tables := fixture.Build()
	c := tables.Contacts["H-TX-3"]
	c.ContactForm = ""
	tables.Contacts["H-TX-3"] = c

	second := newHarness(t, loadMembers(t, tables), out)
	res, err := second.runner.Run(context.Background(), Selection{})
	require.NoError(t, err)
	require.Len(t, res.Unavailable, 1)

	rows := manifestRows(t, out)
	row := rows["H-TX-3"]
	assert.Empty(t, row["web_form_file"])
	assert.Equal(t, "web_form: channel unavailable", row["generation_status"])
	assert.NoFileExists(t, filepath.Join(out, "web_form", before["web_form_file"]))
	assert.FileExists(t, filepath.Join(out, "usps", row["usps_file"]))

	for id, r := range rows {
		if name := r["web_form_file"]; name != "" {
			assert.FileExists(t, filepath.Join(out, "web_form", name), id)
		}
		if name := r["usps_file"]; name != "" {
			assert.FileExists(t, filepath.Join(out, "usps", name), id)
		}
	}

	rec, ok := second.tracker.Get("H-TX-3")
	require.True(t, ok)
	assert.Empty(t, rec.Channels[models.ChannelWebForm].Artifact)
}

// cancelAfter cancels the run once it has exported n artifacts.
type cancelAfter struct {
	export.Exporter
	n      int64
	count  atomic.Int64
	cancel context.CancelFunc
}

func (c *cancelAfter) Export(e export.Entry) (export.Artifact, error) {
	if c.count.Add(1) == c.n {
		c.cancel()
	}
	return c.Exporter.Export(e)
}

// TestRun_CanceledMidRunSavesLedger verifies an interrupted run records the
// artifacts it already wrote.
func TestRun_CanceledMidRunSavesLedger(t *testing.T) {
	out := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t, fixture.Build().Members(), out)
	h.runner.exporters = []export.Exporter{&cancelAfter{Exporter: export.WebForm{}, n: 20, cancel: cancel}}

	_, err := h.runner.Run(ctx, Selection{})
	require.ErrorIs(t, err, context.Canceled)

	written := countFiles(t, filepath.Join(out, "web_form"), ".txt")
	require.Positive(t, written)
	require.Less(t, written, 535)

	reopened, err := tracker.Open(h.tracker.Path(), tracker.Options{})
	require.NoError(t, err)
	generated := 0
	for _, rec := range reopened.Records() {
		st := rec.Channels[models.ChannelWebForm]
		if st.Status == models.StatusGenerated {
			generated++
			assert.FileExists(t, filepath.Join(out, st.Artifact), rec.RecipientID)
		}
	}
	assert.Equal(t, written, generated)
	assert.FileExists(t, filepath.Join(out, manifest.CSVFile))
}
