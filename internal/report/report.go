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

// Package report summarises tracker state for the operator: status counts,
// follow-ups that are due, and the day-by-day submission schedule.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ssext/submission/internal/models"
	"github.com/ssext/submission/internal/priority"
)

// Summary is the report-status view of the ledger.
type Summary struct {
	Records   int
	Touched   int // recipients with any channel past NOT_SENT
	ByChannel map[models.Channel]map[models.Status]int
	ByStance  map[models.Stance]int // touched recipients
	ByChamber map[models.Chamber]int
	Flagged   []string // recipients whose generation status is neither ok nor pending
}

// Summarize counts statuses across records. Members supply stance and
// chamber; records without a member are counted but not broken down.
func Summarize(members []models.Member, recs []models.SubmissionRecord) Summary {
	byID := make(map[string]models.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	s := Summary{
		Records:   len(recs),
		ByChannel: make(map[models.Channel]map[models.Status]int),
		ByStance:  make(map[models.Stance]int),
		ByChamber: make(map[models.Chamber]int),
	}
	for _, c := range models.Channels() {
		s.ByChannel[c] = make(map[models.Status]int)
	}

	for _, rec := range recs {
		touched := false
		for _, c := range models.Channels() {
			st := rec.StatusOf(c)
			s.ByChannel[c][st]++
			if st != models.StatusNotSent {
				touched = true
			}
		}
		if rec.GenerationStatus != models.GenerationOK && rec.GenerationStatus != models.GenerationPending {
			s.Flagged = append(s.Flagged, rec.RecipientID)
		}
		if !touched {
			continue
		}
		s.Touched++
		if m, ok := byID[rec.RecipientID]; ok {
			s.ByStance[m.Strategy.Stance]++
			s.ByChamber[m.Chamber]++
		}
	}
	sort.Strings(s.Flagged)
	return s
}

// FollowUp is a submitted channel whose follow-up date has arrived.
type FollowUp struct {
	ID      string
	Name    string
	Rank    int
	Channel models.Channel
	Due     time.Time
}

// DueFollowUps lists SUBMITTED channels with a follow-up date on or before
// now, oldest first, then by rank.
func DueFollowUps(members []models.Member, recs []models.SubmissionRecord, now time.Time) []FollowUp {
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	today := now.UTC().Format(time.DateOnly)

	var out []FollowUp
	for _, rec := range recs {
		for _, c := range models.Channels() {
			st, ok := rec.Channels[c]
			if !ok || st == nil || st.Status != models.StatusSubmitted || st.FollowUpOn == "" {
				continue
			}
			if st.FollowUpOn > today {
				continue
			}
			due, err := time.Parse(time.DateOnly, st.FollowUpOn)
			if err != nil {
				continue
			}
			out = append(out, FollowUp{ID: rec.RecipientID, Name: names[rec.RecipientID], Rank: rec.Priority, Channel: c, Due: due})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Due.Equal(out[j].Due) {
			return out[i].Due.Before(out[j].Due)
		}
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

// WriteStatus renders the summary and follow-ups as text.
func WriteStatus(w io.Writer, s Summary, due []FollowUp, now time.Time) error {
	var b strings.Builder
	rule := strings.Repeat("=", 50)

	fmt.Fprintf(&b, "%s\n  SUBMISSION STATUS\n%s\n\n", rule, rule)
	if s.Touched == 0 {
		fmt.Fprintf(&b, "  Records: %s, none generated or submitted yet.\n", humanize.Comma(int64(s.Records)))
		fmt.Fprintf(&b, "  Run 'generate' first, then submit messages.\n")
	} else {
		fmt.Fprintf(&b, "  Records:    %s\n", humanize.Comma(int64(s.Records)))
		fmt.Fprintf(&b, "  Touched:    %s\n", humanize.Comma(int64(s.Touched)))
	}

	for _, c := range models.Channels() {
		fmt.Fprintf(&b, "\n  %s:\n", c)
		for _, st := range models.Statuses() {
			if n := s.ByChannel[c][st]; n > 0 {
				fmt.Fprintf(&b, "    %-15s %5d\n", st, n)
			}
		}
	}

	if s.Touched > 0 {
		b.WriteString("\n  By stance:\n")
		for _, st := range models.Stances() {
			fmt.Fprintf(&b, "    %-15s %5d\n", st, s.ByStance[st])
		}
		b.WriteString("\n  By chamber:\n")
		for _, c := range []models.Chamber{models.ChamberSenate, models.ChamberHouse} {
			fmt.Fprintf(&b, "    %-15s %5d\n", c, s.ByChamber[c])
		}
	}

	if len(s.Flagged) > 0 {
		fmt.Fprintf(&b, "\n  Needs attention (%d): %s\n", len(s.Flagged), strings.Join(s.Flagged, ", "))
	}

	if len(due) > 0 {
		fmt.Fprintf(&b, "\n  PENDING FOLLOW-UPS (%d):\n", len(due))
		for _, f := range due {
			fmt.Fprintf(&b, "    %3d. %-30s %-8s due %s (%s)\n",
				f.Rank, f.Name, f.Channel, f.Due.Format(time.DateOnly),
				humanize.RelTime(f.Due, now, "ago", "from now"))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Day is one session of the manual submission schedule.
type Day struct {
	Number   int
	Label    string
	FromRank int
	ToRank   int
}

// Count is the number of recipients in the session.
func (d Day) Count() int { return d.ToRank - d.FromRank + 1 }

// DefaultBatch caps a day's session for the large stance tiers.
const DefaultBatch = 125

// Schedule splits the plan into daily sessions: one day per named tier,
// then the stance tiers in batches of at most batch recipients.
func Schedule(plan *priority.Plan, batch int) []Day {
	if batch <= 0 {
		batch = DefaultBatch
	}

	var days []Day
	rank := 1
	counts := plan.Counts()
	for _, t := range priority.Tiers() {
		n := counts[t]
		if n == 0 {
			continue
		}
		named := t <= priority.TierGatekeepers
		parts := 1
		if !named {
			parts = (n + batch - 1) / batch
		}
		for p := 0; p < parts; p++ {
			size := n / parts
			if p < n%parts {
				size++
			}
			label := titleCase(t.String())
			if parts > 1 {
				label = fmt.Sprintf("%s batch %d", label, p+1)
			}
			days = append(days, Day{Number: len(days) + 1, Label: label, FromRank: rank, ToRank: rank + size - 1})
			rank += size
		}
	}
	return days
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// WriteSchedule renders the daily sessions and the follow-up cadence.
func WriteSchedule(w io.Writer, days []Day, followUpAfter time.Duration) error {
	var b strings.Builder
	b.WriteString("DAILY SCHEDULE\n")
	for _, d := range days {
		fmt.Fprintf(&b, "  Day %d: %-22s ranks %3d-%3d (%s members)\n",
			d.Number, d.Label, d.FromRank, d.ToRank, humanize.Comma(int64(d.Count())))
	}

	b.WriteString("\nPER-MEMBER SUBMISSION\n")
	for i, step := range []string{
		"Open the member's contact_form URL from SUBMISSION_MANIFEST.csv",
		"Fill in sender details and select the TOPIC from the manifest",
		"Paste SUBJECT and the message body from the member's web_form file",
		"Submit the form and note any confirmation number",
		"Record it: submit mark <id> --channel web_form --status SUBMITTED --confirmation <number>",
	} {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
	}

	fmt.Fprintf(&b, "\nFOLLOW-UP\n  Submitted channels come due for follow-up %s after submission; see 'submit status'.\n",
		strings.TrimSpace(humanize.RelTime(time.Time{}, time.Time{}.Add(followUpAfter), "", "")))
	for _, step := range []string{
		"Week 2: phone the DC office of champions who have not responded",
		"Week 3: phone skeptical members' offices",
		"Week 4: resubmit the web form to non-responsive champions",
		"Month 2: mail USPS letters to all gatekeepers and champions",
		"Month 3: follow up with every member who responded",
	} {
		fmt.Fprintf(&b, "  - %s\n", step)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
