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

// Package campaign runs the batch generation pass: compose and export every
// selected recipient in priority order, record the outcome in the tracker
// and rewrite the manifest. Per-recipient failures are collected, never
// fatal.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ssext/submission/internal/compose"
	"github.com/ssext/submission/internal/export"
	"github.com/ssext/submission/internal/manifest"
	"github.com/ssext/submission/internal/models"
	"github.com/ssext/submission/internal/outbox"
	"github.com/ssext/submission/internal/priority"
	"github.com/ssext/submission/internal/tracker"
)

// DefaultWorkers bounds the parallel compose and export pass.
const DefaultWorkers = 8

// Result summarises a completed run.
type Result struct {
	RunID       string
	Selected    int
	Generated   int
	Written     int // artifacts whose bytes changed on disk
	Unchanged   int
	Recipients  []RecipientResult // rank order
	Failures    []Failure
	Unavailable []Failure // recoverable channel gaps, e.g. no contact form
	Elapsed     time.Duration
}

// Partial reports whether any selected recipient failed.
func (r *Result) Partial() bool { return len(r.Failures) > 0 }

// RecipientResult tracks one recipient's outcome.
type RecipientResult struct {
	ID        string
	Rank      int
	Hash      string
	Variant   string
	Artifacts map[models.Channel]string // channel -> relative path
	Problems  []string
	Failed    bool

	written     int
	unchanged   int
	failures    []Failure
	unavailable []Failure
}

// Failure names a recipient and what went wrong.
type Failure struct {
	ID      string
	Rank    int
	Name    string
	Channel models.Channel // empty when composition itself failed
	Reason  string
}

// Runner performs generation passes.
type Runner struct {
	members    map[string]models.Member
	plan       *priority.Plan
	composer   *compose.Composer
	exporters  []export.Exporter
	outbox     *outbox.Writer
	tracker    *tracker.Tracker
	campaignID string
	workers    int
	now        func() time.Time
}

// RunnerConfig holds dependencies for the runner.
type RunnerConfig struct {
	Members    []models.Member
	Plan       *priority.Plan
	Composer   *compose.Composer
	Exporters  []export.Exporter // defaults to web form, USPS and CWC
	Outbox     *outbox.Writer
	Tracker    *tracker.Tracker
	CampaignID string
	Workers    int
	Now        func() time.Time
}

// NewRunner creates a generation runner.
func NewRunner(cfg RunnerConfig) *Runner {
	members := make(map[string]models.Member, len(cfg.Members))
	for _, m := range cfg.Members {
		members[m.ID] = m
	}

	exporters := cfg.Exporters
	if len(exporters) == 0 {
		exporters = []export.Exporter{
			export.WebForm{},
			export.USPS{},
			export.CWC{CampaignID: cfg.CampaignID, Sender: cfg.Composer.Sender()},
		}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		members:    members,
		plan:       cfg.Plan,
		composer:   cfg.Composer,
		exporters:  exporters,
		outbox:     cfg.Outbox,
		tracker:    cfg.Tracker,
		campaignID: cfg.CampaignID,
		workers:    workers,
		now:        now,
	}
}

// job is one selected recipient.
type job struct {
	placement priority.Placement
	member    models.Member
}

func (r *Runner) selectJobs(sel Selection) []job {
	var jobs []job
	for _, pl := range r.plan.Order {
		m, ok := r.members[pl.ID]
		if !ok {
			continue
		}
		if sel.Match(pl, m) {
			jobs = append(jobs, job{placement: pl, member: m})
		}
	}
	return jobs
}

// Run generates artifacts for the selection. An unrestricted selection
// first clears the channel directories. Every planned recipient gets a
// tracker record, selected or not.
func (r *Runner) Run(ctx context.Context, sel Selection) (*Result, error) {
	start := time.Now()
	jobs := r.selectJobs(sel)

	slog.Info("starting generation run",
		"run_id", r.tracker.RunID(),
		"selected", len(jobs),
		"workers", r.workers,
		"full", sel.All(),
	)

	for _, pl := range r.plan.Order {
		r.tracker.Ensure(pl.ID, pl.Rank)
	}

	if sel.All() {
		dirs := make([]string, 0, len(models.Channels()))
		for _, c := range models.Channels() {
			dirs = append(dirs, string(c))
		}
		if err := r.outbox.Reset(dirs...); err != nil {
			return nil, fmt.Errorf("reset output: %w", err)
		}
		r.tracker.ClearArtifacts(models.Channels()...)
	}

	results := make([]RecipientResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.process(j)
			return nil
		})
	}
	waitErr := g.Wait()

	result := &Result{
		RunID:    r.tracker.RunID(),
		Selected: len(jobs),
	}
	var merge []export.Entry
	for i, rr := range results {
		if rr.ID == "" {
			continue // never started
		}
		result.Recipients = append(result.Recipients, rr)
		status := models.GenerationOK
		if len(rr.Problems) > 0 {
			status = strings.Join(rr.Problems, "; ")
		}
		if err := r.tracker.SetGeneration(rr.ID, rr.Hash, status); err != nil {
			return nil, err
		}

		if !rr.Failed {
			result.Generated++
		}
		result.Written += rr.written
		result.Unchanged += rr.unchanged
		result.Failures = append(result.Failures, rr.failures...)
		result.Unavailable = append(result.Unavailable, rr.unavailable...)

		if _, ok := rr.Artifacts[models.ChannelUSPS]; ok {
			merge = append(merge, export.Entry{Rank: rr.Rank, Member: jobs[i].member})
		}
	}

	if waitErr != nil {
		// Keep the ledger in step with the files already on disk.
		saveErr := r.tracker.Save()
		if saveErr == nil {
			saveErr = r.WriteManifest()
		}
		slog.Warn("generation run interrupted",
			"run_id", result.RunID,
			"selected", result.Selected,
			"processed", len(result.Recipients),
			"written", result.Written,
			"error", waitErr,
		)
		if saveErr != nil {
			return nil, errors.Join(fmt.Errorf("generation run: %w", waitErr), saveErr)
		}
		return nil, fmt.Errorf("generation run: %w", waitErr)
	}

	if len(merge) > 0 {
		data, err := export.MailMerge(merge)
		if err != nil {
			return nil, err
		}
		if _, err := r.outbox.Write(string(models.ChannelUSPS), export.MailMergeFile, data); err != nil {
			return nil, fmt.Errorf("write mail merge file: %w", err)
		}
	}

	if err := r.tracker.Save(); err != nil {
		return nil, err
	}
	if err := r.WriteManifest(); err != nil {
		return nil, err
	}

	result.Elapsed = time.Since(start)
	slog.Info("generation run complete",
		"run_id", result.RunID,
		"selected", result.Selected,
		"generated", result.Generated,
		"written", result.Written,
		"unchanged", result.Unchanged,
		"failures", len(result.Failures),
		"unavailable", len(result.Unavailable),
		"elapsed", result.Elapsed,
	)
	return result, nil
}

// process composes and exports one recipient. It never returns an error:
// problems are recorded on the result.
func (r *Runner) process(j job) RecipientResult {
	m := j.member
	rr := RecipientResult{
		ID:        m.ID,
		Rank:      j.placement.Rank,
		Artifacts: make(map[models.Channel]string),
	}
	fail := func(c models.Channel, err error) {
		rr.Failed = true
		label := "compose"
		if c != "" {
			label = string(c)
		}
		rr.Problems = append(rr.Problems, fmt.Sprintf("%s: %v", label, err))
		rr.failures = append(rr.failures, Failure{ID: m.ID, Rank: rr.Rank, Name: m.Name, Channel: c, Reason: err.Error()})
		slog.Error("recipient generation failed",
			"recipient", m.ID,
			"rank", rr.Rank,
			"channel", label,
			"error", err,
		)
	}

	pkg, err := r.composer.Compose(m)
	if err != nil {
		fail("", err)
		return rr
	}
	rr.Hash = pkg.Hash
	rr.Variant = pkg.Variant

	entry := export.Entry{Rank: rr.Rank, Member: m, Package: pkg}
	for _, x := range r.exporters {
		c := x.Channel()
		a, err := x.Export(entry)
		if errors.Is(err, export.ErrChannelUnavailable) {
			r.clearArtifact(m.ID, c)
			rr.Problems = append(rr.Problems, fmt.Sprintf("%s: %v", c, export.ErrChannelUnavailable))
			rr.unavailable = append(rr.unavailable, Failure{ID: m.ID, Rank: rr.Rank, Name: m.Name, Channel: c, Reason: err.Error()})
			slog.Warn("channel unavailable, skipping",
				"recipient", m.ID,
				"rank", rr.Rank,
				"channel", c,
				"error", err,
			)
			continue
		}
		if err != nil {
			r.clearArtifact(m.ID, c)
			fail(c, err)
			continue
		}
		if a.Skipped {
			continue
		}

		res, err := r.outbox.Write(string(a.Channel), a.Name, a.Data)
		if err != nil {
			r.clearArtifact(m.ID, c)
			fail(c, err)
			continue
		}
		rr.Artifacts[c] = res.Path
		if res.Changed {
			rr.written++
		} else {
			rr.unchanged++
		}

		if err := r.tracker.SetArtifact(m.ID, c, res.Path); err != nil {
			fail(c, err)
			continue
		}
		if _, err := r.tracker.MarkGenerated(m.ID, c); err != nil {
			fail(c, err)
		}
	}

	slog.Debug("recipient generated",
		"recipient", m.ID,
		"rank", rr.Rank,
		"stance", pkg.Stance,
		"variant", pkg.Variant,
		"artifacts", len(rr.Artifacts),
	)
	return rr
}

// clearArtifact drops the recorded file for a channel that produced none
// this run.
func (r *Runner) clearArtifact(id string, c models.Channel) {
	if err := r.tracker.SetArtifact(id, c, ""); err != nil {
		slog.Error("clear artifact failed", "recipient", id, "channel", c, "error", err)
	}
}

// WriteManifest rewrites the manifest from the tracker's current state for
// every planned recipient, in rank order.
func (r *Runner) WriteManifest() error {
	return WriteManifest(r.outbox.Root(), r.campaignID, r.plan, r.members, r.tracker, r.now())
}

// WriteManifest builds manifest rows for every planned member from tr and
// writes them under dir. It needs no composer, so status commands can
// refresh the manifest without a sender profile.
func WriteManifest(dir, campaignID string, plan *priority.Plan, members map[string]models.Member, tr *tracker.Tracker, now time.Time) error {
	rows := make([]manifest.Row, 0, len(plan.Order))
	for _, pl := range plan.Order {
		m, ok := members[pl.ID]
		if !ok {
			continue
		}
		rec, ok := tr.Get(pl.ID)
		if !ok {
			rec = *models.NewSubmissionRecord(pl.ID, pl.Rank, now.UTC())
		}
		rows = append(rows, manifest.NewRow(m, rec))
	}
	if err := manifest.Write(dir, campaignID, rows, now); err != nil {
		return err
	}
	slog.Info("manifest written", "dir", dir, "rows", len(rows))
	return nil
}

// Preview is a dry rendering of one recipient's artifacts.
type Preview struct {
	Placement   priority.Placement
	Member      models.Member
	Package     models.MessagePackage
	Artifacts   []export.Artifact
	Unavailable []models.Channel
}

// Preview renders the recipient at rank without writing anything.
func (r *Runner) Preview(rank int) (*Preview, error) {
	pl, ok := r.plan.At(rank)
	if !ok {
		return nil, fmt.Errorf("preview: no recipient at rank %d (1-%d)", rank, len(r.plan.Order))
	}
	m, ok := r.members[pl.ID]
	if !ok {
		return nil, fmt.Errorf("preview: %s: %w", pl.ID, tracker.ErrUnknownRecipient)
	}

	pkg, err := r.composer.Compose(m)
	if err != nil {
		return nil, err
	}

	p := &Preview{Placement: pl, Member: m, Package: pkg}
	entry := export.Entry{Rank: pl.Rank, Member: m, Package: pkg}
	for _, x := range r.exporters {
		a, err := x.Export(entry)
		if errors.Is(err, export.ErrChannelUnavailable) {
			p.Unavailable = append(p.Unavailable, x.Channel())
			continue
		}
		if err != nil {
			return nil, err
		}
		if !a.Skipped {
			p.Artifacts = append(p.Artifacts, a)
		}
	}
	return p, nil
}
