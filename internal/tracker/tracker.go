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

// Package tracker provides the persistent submission ledger: one record per
// recipient, one state machine per (recipient, channel). Every change is
// appended to the channel's history.
//
// Several processes may hold the same ledger open. Save takes an advisory
// file lock, re-reads the ledger and merges per (recipient, channel): pairs
// this tracker changed since its last save take its state, every other pair
// keeps what is on disk. Histories are merged by event id.
package tracker

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/ssext/submission/internal/models"
	"github.com/ssext/submission/internal/outbox"
)

// DefaultFollowUpAfter is the wait between submission and follow-up.
const DefaultFollowUpAfter = 14 * 24 * time.Hour

var (
	// ErrInvalidTransition rejects a move the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnknownRecipient means the ledger has no record for the id.
	ErrUnknownRecipient = errors.New("unknown recipient")
)

// allowed lists the forward edges of the lifecycle.
var allowed = map[models.Status][]models.Status{
	models.StatusNotSent:   {models.StatusGenerated},
	models.StatusGenerated: {models.StatusSubmitted},
	models.StatusSubmitted: {models.StatusResponded, models.StatusFailed},
}

// CanTransition reports whether from -> to is a forward lifecycle edge.
func CanTransition(from, to models.Status) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ledger is the on-disk document.
type ledger struct {
	CampaignID string                     `json:"campaign_id"`
	UpdatedAt  time.Time                  `json:"updated_at"`
	Records    []*models.SubmissionRecord `json:"records"`
}

// Options configures a tracker.
type Options struct {
	CampaignID    string
	RunID         string // stamped on every transition; random if empty
	FollowUpAfter time.Duration
	Now           func() time.Time
}

// Tracker is the in-memory arena of submission records backed by a JSON
// ledger file.
type Tracker struct {
	mu       sync.Mutex
	path     string
	campaign string
	runID    string
	followUp time.Duration
	now      func() time.Time
	entropy  *ulid.MonotonicEntropy
	records  map[string]*models.SubmissionRecord

	// changed since the last save, consulted by merge
	statusDirty   map[key]bool
	artifactDirty map[key]bool
	genDirty      map[string]bool
}

type key struct {
	id string
	c  models.Channel
}

// Open loads the ledger at path. A missing file yields an empty tracker.
func Open(path string, opts Options) (*Tracker, error) {
	t := &Tracker{
		path:     path,
		campaign: opts.CampaignID,
		runID:    opts.RunID,
		followUp: opts.FollowUpAfter,
		now:      opts.Now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
		records:  make(map[string]*models.SubmissionRecord),
	}
	t.resetDirty()
	if t.runID == "" {
		t.runID = uuid.NewString()
	}
	if t.followUp == 0 {
		t.followUp = DefaultFollowUpAfter
	}
	if t.now == nil {
		t.now = time.Now
	}

	records, campaignID, err := readLedger(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("no submission ledger yet, starting empty", "path", path)
		return t, nil
	}
	if err != nil {
		return nil, err
	}
	t.records = records
	if t.campaign == "" {
		t.campaign = campaignID
	}

	slog.Info("submission ledger loaded", "path", path, "records", len(t.records))
	return t, nil
}

// readLedger parses the ledger at path, filling in missing channels.
func readLedger(path string) (map[string]*models.SubmissionRecord, string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", err
	}
	if err != nil {
		return nil, "", fmt.Errorf("read submission ledger: %w", err)
	}

	var doc ledger
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("parse submission ledger %s: %w", path, err)
	}
	records := make(map[string]*models.SubmissionRecord, len(doc.Records))
	for _, rec := range doc.Records {
		if rec == nil || rec.RecipientID == "" {
			continue
		}
		if rec.Channels == nil {
			rec.Channels = make(map[models.Channel]*models.ChannelState)
		}
		for _, c := range models.Channels() {
			if rec.Channels[c] == nil {
				rec.Channels[c] = &models.ChannelState{Status: models.StatusNotSent}
			}
		}
		records[rec.RecipientID] = rec
	}
	return records, doc.CampaignID, nil
}

func (t *Tracker) resetDirty() {
	t.statusDirty = make(map[key]bool)
	t.artifactDirty = make(map[key]bool)
	t.genDirty = make(map[string]bool)
}

// RunID identifies this process's transitions in the audit trail.
func (t *Tracker) RunID() string { return t.runID }

// Path is the ledger file.
func (t *Tracker) Path() string { return t.path }

// Ensure creates the record for id if it does not exist (all channels
// NOT_SENT) and sets its priority rank. It reports whether it created one.
func (t *Tracker) Ensure(id string, priority int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.records[id]; ok {
		rec.Priority = priority
		return false
	}
	t.records[id] = models.NewSubmissionRecord(id, priority, t.now().UTC())
	return true
}

// SetGeneration records the outcome of the latest generation pass.
func (t *Tracker) SetGeneration(id, messageHash, status string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownRecipient)
	}
	if messageHash != "" {
		rec.MessageHash = messageHash
	}
	rec.GenerationStatus = status
	t.genDirty[id] = true
	return nil
}

// SetArtifact records the output file last written for (id, c). An empty
// path means no current file exists for the channel.
func (t *Tracker) SetArtifact(id string, c models.Channel, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownRecipient)
	}
	st := channel(rec, c)
	if st.Artifact != path {
		st.Artifact = path
		t.artifactDirty[key{id, c}] = true
	}
	return nil
}

// ClearArtifacts forgets the artifact of every channel in channels, for use
// after their output directories were emptied.
func (t *Tracker) ClearArtifacts(channels ...models.Channel) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, rec := range t.records {
		for _, c := range channels {
			if st := rec.Channels[c]; st != nil && st.Artifact != "" {
				st.Artifact = ""
				t.artifactDirty[key{id, c}] = true
			}
		}
	}
}

// MarkGenerated advances a NOT_SENT channel to GENERATED. Channels already
// past NOT_SENT are left untouched so regeneration never regresses them.
func (t *Tracker) MarkGenerated(id string, c models.Channel) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		return false, fmt.Errorf("%s: %w", id, ErrUnknownRecipient)
	}
	st := channel(rec, c)
	if st.Status != models.StatusNotSent {
		return false, nil
	}
	t.apply(st, models.StatusGenerated, TransitionOptions{Note: "generated"})
	t.statusDirty[key{id, c}] = true
	return true, nil
}

// TransitionOptions carries operator-supplied detail for a transition.
type TransitionOptions struct {
	Force        bool // permit a move outside the lifecycle edges
	Note         string
	Confirmation string
}

// Transition moves (id, c) to status to. Re-entering the current terminal
// state is a logged no-op; re-entering a non-terminal state is recorded
// (resubmission). Any other move off a lifecycle edge fails with
// ErrInvalidTransition unless opts.Force is set.
func (t *Tracker) Transition(id string, c models.Channel, to models.Status, opts TransitionOptions) (models.Transition, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		return models.Transition{}, fmt.Errorf("%s: %w", id, ErrUnknownRecipient)
	}
	st := channel(rec, c)
	from := st.Status

	switch {
	case from == to && from.Terminal():
		tr := t.event(from, to, opts)
		tr.NoOp = true
		st.History = append(st.History, tr)
		t.statusDirty[key{id, c}] = true
		slog.Info("channel already in terminal state, ignoring",
			"recipient", id,
			"channel", c,
			"status", to,
		)
		return tr, nil
	case from == to, CanTransition(from, to):
	case opts.Force:
		slog.Warn("forcing transition outside lifecycle",
			"recipient", id,
			"channel", c,
			"from", from,
			"to", to,
		)
	default:
		return models.Transition{}, fmt.Errorf("%s %s: %s -> %s: %w", id, c, from, to, ErrInvalidTransition)
	}

	tr := t.apply(st, to, opts)
	t.statusDirty[key{id, c}] = true
	slog.Info("channel transition recorded",
		"recipient", id,
		"channel", c,
		"from", from,
		"to", to,
		"event", tr.ID,
	)
	return tr, nil
}

// apply mutates st; callers hold t.mu.
func (t *Tracker) apply(st *models.ChannelState, to models.Status, opts TransitionOptions) models.Transition {
	tr := t.event(st.Status, to, opts)
	tr.Forced = opts.Force && !CanTransition(st.Status, to) && st.Status != to

	at := tr.At
	st.Status = to
	st.UpdatedAt = &at
	if opts.Confirmation != "" {
		st.Confirmation = opts.Confirmation
	}
	switch to {
	case models.StatusSubmitted:
		st.FollowUpOn = at.Add(t.followUp).Format(time.DateOnly)
	case models.StatusNotSent, models.StatusGenerated:
		st.FollowUpOn = ""
	}
	st.History = append(st.History, tr)
	return tr
}

func (t *Tracker) event(from, to models.Status, opts TransitionOptions) models.Transition {
	now := t.now().UTC()
	return models.Transition{
		ID:           ulid.MustNew(ulid.Timestamp(now), t.entropy).String(),
		From:         from,
		To:           to,
		At:           now,
		RunID:        t.runID,
		Note:         opts.Note,
		Confirmation: opts.Confirmation,
	}
}

func channel(rec *models.SubmissionRecord, c models.Channel) *models.ChannelState {
	st, ok := rec.Channels[c]
	if !ok || st == nil {
		st = &models.ChannelState{Status: models.StatusNotSent}
		rec.Channels[c] = st
	}
	return st
}

// Get returns a copy of the record for id.
func (t *Tracker) Get(id string) (models.SubmissionRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		return models.SubmissionRecord{}, false
	}
	return clone(rec), true
}

// Records returns copies of every record ordered by priority, then id.
func (t *Tracker) Records() []models.SubmissionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sorted()
}

// Len is the number of records.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

func (t *Tracker) sorted() []models.SubmissionRecord {
	out := make([]models.SubmissionRecord, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, clone(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].RecipientID < out[j].RecipientID
	})
	return out
}

// Save merges this tracker's changes into the ledger on disk and writes it
// atomically while holding <path>.lock. After Save the tracker reflects the
// merged ledger, including changes saved by other processes.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	lock := flock.New(t.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock submission ledger: %w", err)
	}
	defer lock.Unlock()

	disk, _, err := readLedger(t.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	t.merge(disk)

	recs := t.sorted()
	doc := ledger{
		CampaignID: t.campaign,
		UpdatedAt:  t.now().UTC(),
		Records:    make([]*models.SubmissionRecord, len(recs)),
	}
	for i := range recs {
		doc.Records[i] = &recs[i]
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal submission ledger: %w", err)
	}
	if err := outbox.WriteFileAtomic(t.path, append(data, '\n')); err != nil {
		return fmt.Errorf("save submission ledger: %w", err)
	}
	t.resetDirty()
	slog.Debug("submission ledger saved", "path", t.path, "records", len(recs))
	return nil
}

// merge folds the on-disk records into t.records; callers hold t.mu.
func (t *Tracker) merge(disk map[string]*models.SubmissionRecord) {
	for id, theirs := range disk {
		ours, ok := t.records[id]
		if !ok {
			t.records[id] = theirs
			continue
		}
		if !t.genDirty[id] {
			ours.MessageHash = theirs.MessageHash
			ours.GenerationStatus = theirs.GenerationStatus
		}
		if !theirs.CreatedAt.IsZero() && theirs.CreatedAt.Before(ours.CreatedAt) {
			ours.CreatedAt = theirs.CreatedAt
		}
		for _, c := range models.Channels() {
			onDisk := theirs.Channels[c]
			mine := channel(ours, c)
			k := key{id, c}

			merged := *onDisk
			if t.statusDirty[k] {
				merged.Status = mine.Status
				merged.UpdatedAt = mine.UpdatedAt
				merged.FollowUpOn = mine.FollowUpOn
				merged.Confirmation = mine.Confirmation
				merged.History = mergeHistory(onDisk.History, mine.History)
			}
			if t.artifactDirty[k] {
				merged.Artifact = mine.Artifact
			}
			ours.Channels[c] = &merged
		}
	}
}

// mergeHistory is the union of both trails by event id, in id order. Event
// ids are ULIDs, so id order is time order.
func mergeHistory(a, b []models.Transition) []models.Transition {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]models.Transition, 0, len(a)+len(b))
	for _, list := range [][]models.Transition{a, b} {
		for _, tr := range list {
			if seen[tr.ID] {
				continue
			}
			seen[tr.ID] = true
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func clone(rec *models.SubmissionRecord) models.SubmissionRecord {
	out := *rec
	out.Channels = make(map[models.Channel]*models.ChannelState, len(rec.Channels))
	for c, st := range rec.Channels {
		if st == nil {
			continue
		}
		cp := *st
		if st.UpdatedAt != nil {
			at := *st.UpdatedAt
			cp.UpdatedAt = &at
		}
		cp.History = append([]models.Transition(nil), st.History...)
		out.Channels[c] = &cp
	}
	return out
}
