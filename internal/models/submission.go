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

package models

import (
	"fmt"
	"strings"
	"time"
)

// Channel is a delivery channel with its own exported artifact.
type Channel string

const (
	ChannelWebForm Channel = "web_form"
	ChannelUSPS    Channel = "usps"
	ChannelCWC     Channel = "cwc_xml"
)

// Channels lists every channel in manifest column order.
func Channels() []Channel {
	return []Channel{ChannelWebForm, ChannelUSPS, ChannelCWC}
}

// ParseChannel accepts a channel name such as "web_form" or "usps".
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Channels() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown channel %q", s)
}

// Status is the delivery state of one (recipient, channel) pair.
type Status string

const (
	StatusNotSent   Status = "NOT_SENT"
	StatusGenerated Status = "GENERATED"
	StatusSubmitted Status = "SUBMITTED"
	StatusResponded Status = "RESPONDED"
	StatusFailed    Status = "FAILED"
)

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusNotSent, StatusGenerated, StatusSubmitted, StatusResponded, StatusFailed}
}

// ParseStatus validates s against the lifecycle states.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Statuses() {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	return s == StatusResponded || s == StatusFailed
}

// Transition is one entry in a channel's append-only audit trail.
type Transition struct {
	ID           string    `json:"id"`
	From         Status    `json:"from"`
	To           Status    `json:"to"`
	At           time.Time `json:"at"`
	RunID        string    `json:"run_id,omitempty"`
	Note         string    `json:"note,omitempty"`
	Confirmation string    `json:"confirmation,omitempty"`
	Forced       bool      `json:"forced,omitempty"`
	NoOp         bool      `json:"no_op,omitempty"`
}

// ChannelState is the current status of one channel plus its history.
type ChannelState struct {
	Status       Status       `json:"status"`
	UpdatedAt    *time.Time   `json:"updated_at,omitempty"`
	FollowUpOn   string       `json:"follow_up_on,omitempty"` // YYYY-MM-DD
	Confirmation string       `json:"confirmation,omitempty"`
	Artifact     string       `json:"artifact,omitempty"` // path under the output dir of the file last written
	History      []Transition `json:"history,omitempty"`
}

// SubmissionRecord is the mutable tracking record for one recipient.
// Records are never deleted; history is only appended to.
type SubmissionRecord struct {
	RecipientID      string                    `json:"recipient_id"`
	Priority         int                       `json:"priority"`
	MessageHash      string                    `json:"message_hash,omitempty"`
	GenerationStatus string                    `json:"generation_status"`
	Channels         map[Channel]*ChannelState `json:"channels"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// NewSubmissionRecord creates a record with every channel NOT_SENT.
func NewSubmissionRecord(recipientID string, priority int, now time.Time) *SubmissionRecord {
	rec := &SubmissionRecord{
		RecipientID:      recipientID,
		Priority:         priority,
		GenerationStatus: GenerationPending,
		Channels:         make(map[Channel]*ChannelState, len(Channels())),
		CreatedAt:        now,
	}
	for _, c := range Channels() {
		rec.Channels[c] = &ChannelState{Status: StatusNotSent}
	}
	return rec
}

// StatusOf returns the channel's status, NOT_SENT if it was never touched.
func (r *SubmissionRecord) StatusOf(c Channel) Status {
	if st, ok := r.Channels[c]; ok && st != nil {
		return st.Status
	}
	return StatusNotSent
}

// Generation status values written to the manifest. Anything else is a
// "; "-joined list of per-channel problems.
const (
	GenerationPending = "pending"
	GenerationOK      = "ok"
)
