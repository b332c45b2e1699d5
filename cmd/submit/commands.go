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

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ssext/submission/internal/campaign"
	"github.com/ssext/submission/internal/compose"
	"github.com/ssext/submission/internal/config"
	"github.com/ssext/submission/internal/directory"
	"github.com/ssext/submission/internal/models"
	"github.com/ssext/submission/internal/outbox"
	"github.com/ssext/submission/internal/priority"
	"github.com/ssext/submission/internal/report"
	"github.com/ssext/submission/internal/tracker"
)

// session is the loaded campaign state shared by every command.
type session struct {
	cfg     *config.Config
	members []models.Member
	byID    map[string]models.Member
	plan    *priority.Plan
	tracker *tracker.Tracker
}

func openSession(opts *options) (*session, error) {
	// --- Load Configuration ---
	path := config.Path(opts.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	slog.Debug("configuration loaded", "path", path, "output_dir", cfg.OutputDir)

	// --- Load Directory ---
	dir, err := directory.Load(directory.Paths{
		SenateRoster: cfg.Data.SenateRoster,
		HouseRoster:  cfg.Data.HouseRoster,
		Contacts:     cfg.Data.Contacts,
		Strategy:     cfg.Data.Strategy,
	})
	if err != nil {
		var die *directory.DataIntegrityError
		if errors.As(err, &die) {
			for _, is := range die.Issues {
				slog.Error("data integrity issue", "source", is.Source, "key", is.Key, "problem", is.Problem)
			}
		}
		return nil, err
	}
	members := dir.Members()
	byID := make(map[string]models.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	// --- Assign Priority ---
	plan, err := priority.New(priority.Lists{
		Champions:   cfg.Priority.Champions,
		Bridges:     cfg.Priority.Bridges,
		Gatekeepers: cfg.Priority.Gatekeepers,
	}).Assign(members)
	if err != nil {
		return nil, fmt.Errorf("assign priority: %w", err)
	}

	// --- Open Tracker ---
	tr, err := tracker.Open(cfg.TrackerPath, tracker.Options{
		CampaignID:    cfg.CampaignID,
		FollowUpAfter: cfg.FollowUpAfter,
	})
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, members: members, byID: byID, plan: plan, tracker: tr}, nil
}

// runner builds the generation runner. It requires a complete sender profile.
func (s *session) runner() (*campaign.Runner, error) {
	c, err := compose.New(compose.Config{
		Sender:    s.cfg.Sender,
		MinLength: s.cfg.MinLength,
		MaxLength: s.cfg.MaxLength,
	})
	if err != nil {
		return nil, err
	}
	return campaign.NewRunner(campaign.RunnerConfig{
		Members:    s.members,
		Plan:       s.plan,
		Composer:   c,
		Outbox:     outbox.NewWriter(s.cfg.OutputDir),
		Tracker:    s.tracker,
		CampaignID: s.cfg.CampaignID,
		Workers:    s.cfg.Workers,
	}), nil
}

func newGenerateCmd(opts *options) *cobra.Command {
	var (
		ranks    string
		tiers    []string
		stances  []string
		chambers []string
		ids      []string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate artifacts for every recipient, or a subset when filters are given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := buildSelection(ranks, tiers, stances, chambers, ids)
			if err != nil {
				return err
			}

			s, err := openSession(opts)
			if err != nil {
				return err
			}
			r, err := s.runner()
			if err != nil {
				return err
			}

			// --- Run Generation ---
			result, err := r.Run(cmd.Context(), sel)
			if err != nil {
				return err
			}

			// --- Summary ---
			printResult(cmd.OutOrStdout(), result, s.cfg.OutputDir)
			if result.Partial() {
				return fmt.Errorf("%d of %d recipients had failures: %w",
					failedRecipients(result), result.Selected, errPartial)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ranks, "ranks", "", "Rank range: N, N-M, N- or -M")
	cmd.Flags().StringSliceVar(&tiers, "tier", nil, "Tier name or number (champions, bridges, gatekeepers, receptive, skeptical, hostile)")
	cmd.Flags().StringSliceVar(&stances, "stance", nil, "Stance (RECEPTIVE, SKEPTICAL, HOSTILE)")
	cmd.Flags().StringSliceVar(&chambers, "chamber", nil, "Chamber (senate, house)")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "Recipient id, e.g. H-NY-14")
	return cmd
}

// failedRecipients counts distinct recipients with at least one failure.
func failedRecipients(result *campaign.Result) int {
	seen := make(map[string]bool, len(result.Failures))
	for _, f := range result.Failures {
		seen[f.ID] = true
	}
	return len(seen)
}

func buildSelection(ranks string, tiers, stances, chambers, ids []string) (campaign.Selection, error) {
	var sel campaign.Selection
	var err error
	if sel.FromRank, sel.ToRank, err = campaign.ParseRange(ranks); err != nil {
		return sel, err
	}
	for _, v := range tiers {
		t, err := priority.ParseTier(v)
		if err != nil {
			return sel, err
		}
		sel.Tiers = append(sel.Tiers, t)
	}
	for _, v := range stances {
		st, err := models.ParseStance(v)
		if err != nil {
			return sel, err
		}
		sel.Stances = append(sel.Stances, st)
	}
	for _, v := range chambers {
		c, err := models.ParseChamber(v)
		if err != nil {
			return sel, err
		}
		sel.Chambers = append(sel.Chambers, c)
	}
	for _, v := range ids {
		sel.IDs = append(sel.IDs, strings.ToUpper(strings.TrimSpace(v)))
	}
	return sel, nil
}

func printResult(w io.Writer, result *campaign.Result, dir string) {
	fmt.Fprintf(w, "Generated %s of %s selected recipients into %s\n",
		humanize.Comma(int64(result.Generated)), humanize.Comma(int64(result.Selected)), dir)
	fmt.Fprintf(w, "  files written:   %s\n", humanize.Comma(int64(result.Written)))
	fmt.Fprintf(w, "  files unchanged: %s\n", humanize.Comma(int64(result.Unchanged)))
	fmt.Fprintf(w, "  elapsed:         %s\n", result.Elapsed.Round(time.Millisecond))

	if len(result.Unavailable) > 0 {
		fmt.Fprintf(w, "\n  Channel unavailable (%d):\n", len(result.Unavailable))
		for _, f := range result.Unavailable {
			fmt.Fprintf(w, "    %3d. %-10s %-8s %s\n", f.Rank, f.ID, f.Channel, f.Reason)
		}
	}
	if len(result.Failures) > 0 {
		fmt.Fprintf(w, "\n  FAILURES (%d):\n", len(result.Failures))
		for _, f := range result.Failures {
			ch := string(f.Channel)
			if ch == "" {
				ch = "compose"
			}
			fmt.Fprintf(w, "    %3d. %-10s %-8s %s\n", f.Rank, f.ID, ch, f.Reason)
		}
	}
}

func newPreviewCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "preview RANK",
		Short: "Render one recipient's artifacts without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rank, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid rank %q: %w", args[0], err)
			}

			s, err := openSession(opts)
			if err != nil {
				return err
			}
			r, err := s.runner()
			if err != nil {
				return err
			}
			p, err := r.Preview(rank)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Rank %d: %s (%s), tier %s, stance %s\n",
				p.Placement.Rank, p.Member.Name, p.Member.ID, p.Placement.Tier, p.Member.Strategy.Stance)
			fmt.Fprintf(w, "Body: %d characters, %s variant", len([]rune(p.Package.Body)), p.Package.Variant)
			if len(p.Package.Dropped) > 0 {
				fmt.Fprintf(w, ", dropped %s", strings.Join(p.Package.Dropped, ", "))
			}
			fmt.Fprintf(w, ", hash %s\n", p.Package.Hash)
			for _, c := range p.Unavailable {
				fmt.Fprintf(w, "\n--- %s: channel unavailable ---\n", c)
			}
			for _, a := range p.Artifacts {
				fmt.Fprintf(w, "\n--- %s/%s ---\n%s", a.Channel, a.Name, a.Data)
			}
			return nil
		},
	}
}

func newPlanCmd(opts *options) *cobra.Command {
	var tiers []string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the submission order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := buildSelection("", tiers, nil, nil, nil)
			if err != nil {
				return err
			}
			s, err := openSession(opts)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tID\tNAME\tPARTY\tSTANCE\tTIER")
			for _, pl := range s.plan.Order {
				m := s.byID[pl.ID]
				if !sel.Match(pl, m) {
					continue
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", pl.Rank, m.ID, m.Name, m.Party, m.Strategy.Stance, pl.Tier)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			for _, c := range s.plan.Conflicts {
				fmt.Fprintf(cmd.OutOrStdout(), "\nconflict: %s placed in %s, also listed in %v\n", c.ID, c.Placed, c.Ignored)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&tiers, "tier", nil, "Only show these tiers")
	return cmd
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarise submission status and due follow-ups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			now := time.Now()
			recs := s.tracker.Records()
			return report.WriteStatus(cmd.OutOrStdout(),
				report.Summarize(s.members, recs),
				report.DueFollowUps(s.members, recs, now),
				now)
		},
	}
}

func newMarkCmd(opts *options) *cobra.Command {
	var (
		channel string
		status  string
		to      models.Status
		c       models.Channel
		topts   tracker.TransitionOptions
	)

	cmd := &cobra.Command{
		Use:   "mark ID",
		Short: "Record a submission status change for one recipient channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if c, err = models.ParseChannel(channel); err != nil {
				return err
			}
			if to, err = models.ParseStatus(status); err != nil {
				return err
			}

			s, err := openSession(opts)
			if err != nil {
				return err
			}
			id := strings.ToUpper(strings.TrimSpace(args[0]))
			rank := s.plan.Rank(id)
			if rank == 0 {
				return fmt.Errorf("%s: %w", id, tracker.ErrUnknownRecipient)
			}
			if m := s.byID[id]; !m.Serves(c) {
				return fmt.Errorf("%s (%s): channel %s applies to House members only", id, m.Name, c)
			}
			s.tracker.Ensure(id, rank)

			ev, err := s.tracker.Transition(id, c, to, topts)
			if err != nil {
				return err
			}
			if err := s.tracker.Save(); err != nil {
				return err
			}
			if err := campaign.WriteManifest(s.cfg.OutputDir, s.cfg.CampaignID, s.plan, s.byID, s.tracker, time.Now()); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch {
			case ev.NoOp:
				fmt.Fprintf(w, "%s %s: already %s\n", id, c, ev.To)
			default:
				fmt.Fprintf(w, "%s %s: %s -> %s\n", id, c, ev.From, ev.To)
			}
			if rec, ok := s.tracker.Get(id); ok {
				if st := rec.Channels[c]; st != nil && st.FollowUpOn != "" {
					fmt.Fprintf(w, "follow up on %s\n", st.FollowUpOn)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "Channel: web_form, usps or cwc_xml (required)")
	cmd.Flags().StringVar(&status, "status", "", "New status: GENERATED, SUBMITTED, RESPONDED or FAILED (required)")
	cmd.Flags().BoolVar(&topts.Force, "force", false, "Allow a backward or skipped transition")
	cmd.Flags().StringVar(&topts.Note, "note", "", "Free-text note for the audit trail")
	cmd.Flags().StringVar(&topts.Confirmation, "confirmation", "", "Confirmation number from the form or carrier")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newWorkflowCmd(opts *options) *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Print the day-by-day manual submission schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			return report.WriteSchedule(cmd.OutOrStdout(), report.Schedule(s.plan, batch), s.cfg.FollowUpAfter)
		},
	}
	cmd.Flags().IntVar(&batch, "batch", report.DefaultBatch, "Maximum recipients per day for the stance tiers")
	return cmd
}
