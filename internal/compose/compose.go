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

// Package compose renders the stance-specific letter for one member. It is a
// pure function of (member, stance, sender): identical inputs always yield an
// identical body, subject and hash.
package compose

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ssext/submission/internal/fingerprint"
	"github.com/ssext/submission/internal/models"
)

// Default body bounds in characters (Unicode code points).
const (
	DefaultMinLength = 1500
	DefaultMaxLength = 2000
)

// Template variants.
const (
	VariantStandard = "standard"
	VariantCompact  = "compact"
)

// ErrMissingSenderProfile is matched by every *MissingSenderProfileError.
var ErrMissingSenderProfile = errors.New("missing sender profile")

// ErrBodyLengthViolation means no variant of the letter fits the bounds.
var ErrBodyLengthViolation = errors.New("body length violation")

// MissingSenderProfileError lists the blank required sender fields.
type MissingSenderProfileError struct {
	Fields []string
}

func (e *MissingSenderProfileError) Error() string {
	return fmt.Sprintf("missing sender profile: blank fields %s", strings.Join(e.Fields, ", "))
}

func (e *MissingSenderProfileError) Is(target error) bool {
	return target == ErrMissingSenderProfile
}

// Config holds the composer inputs shared by every letter.
type Config struct {
	Sender    models.SenderProfile
	MinLength int
	MaxLength int
	Now       func() time.Time // stamps GeneratedAt only
}

// Composer renders letters for one sender.
type Composer struct {
	sender   models.SenderProfile
	min, max int
	now      func() time.Time
}

// New validates the sender profile and bounds. A sender with any blank
// required field blocks composition entirely.
func New(cfg Config) (*Composer, error) {
	if missing := cfg.Sender.MissingFields(); len(missing) > 0 {
		return nil, &MissingSenderProfileError{Fields: missing}
	}

	c := &Composer{
		sender: cfg.Sender,
		min:    cfg.MinLength,
		max:    cfg.MaxLength,
		now:    cfg.Now,
	}
	if c.min == 0 {
		c.min = DefaultMinLength
	}
	if c.max == 0 {
		c.max = DefaultMaxLength
	}
	if c.min > c.max {
		return nil, fmt.Errorf("compose: min length %d exceeds max length %d", c.min, c.max)
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Sender returns the validated sender profile.
func (c *Composer) Sender() models.SenderProfile { return c.sender }

// Compose builds the message package for m. Optional segments are dropped
// whole, never truncated; if no standard rendering fits, the compact variant
// is tried before giving up with ErrBodyLengthViolation.
func (c *Composer) Compose(m models.Member) (models.MessagePackage, error) {
	b, ok := bundles[m.Strategy.Stance]
	if !ok {
		return models.MessagePackage{}, fmt.Errorf("compose %s: no template for stance %q", m.ID, m.Strategy.Stance)
	}

	fill := strings.NewReplacer(
		phTitle, m.Chamber.Title(),
		phName, m.Name,
		phConstituency, m.Constituency(),
	)

	body, dropped, ok := c.fit(b.segments, fill, c.signature())
	variant := VariantStandard
	if !ok {
		slog.Warn("letter exceeds length bounds, using compact variant",
			"recipient", m.ID,
			"stance", m.Strategy.Stance,
			"min", c.min,
			"max", c.max,
		)
		body, dropped, ok = c.fit(b.segments, fill, c.compactSignature())
		variant = VariantCompact
	}
	if !ok {
		return models.MessagePackage{}, fmt.Errorf("compose %s: %d characters outside [%d, %d]: %w",
			m.ID, utf8.RuneCountInString(body), c.min, c.max, ErrBodyLengthViolation)
	}

	return models.MessagePackage{
		RecipientID:  m.ID,
		Stance:       m.Strategy.Stance,
		Subject:      b.subject,
		ShortSubject: b.shortSubject,
		Topic:        b.topic,
		Body:         body,
		Hash:         fingerprint.SumString(body),
		Variant:      variant,
		Dropped:      dropped,
		GeneratedAt:  c.now().UTC(),
	}, nil
}

// fit renders every segment, then drops optional ones (highest drop first)
// while the body is over the max, keeping a drop only if the result stays at
// or above the min.
func (c *Composer) fit(segs []segment, fill *strings.Replacer, sig string) (string, []string, bool) {
	skip := make(map[string]bool)
	body := render(segs, fill, sig, skip)

	for _, s := range dropOrder(segs) {
		if length(body) <= c.max {
			break
		}
		skip[s.name] = true
		candidate := render(segs, fill, sig, skip)
		if length(candidate) < c.min {
			delete(skip, s.name)
			continue
		}
		body = candidate
	}

	var dropped []string
	for _, s := range segs {
		if skip[s.name] {
			dropped = append(dropped, s.name)
		}
	}
	n := length(body)
	return body, dropped, n >= c.min && n <= c.max
}

func dropOrder(segs []segment) []segment {
	var opt []segment
	for _, s := range segs {
		if s.drop > 0 {
			opt = append(opt, s)
		}
	}
	sort.SliceStable(opt, func(i, j int) bool { return opt[i].drop > opt[j].drop })
	return opt
}

func render(segs []segment, fill *strings.Replacer, sig string, skip map[string]bool) string {
	parts := make([]string, 0, len(segs)+1)
	for _, s := range segs {
		if skip[s.name] {
			continue
		}
		parts = append(parts, fill.Replace(s.text))
	}
	parts = append(parts, sig)
	return strings.Join(parts, "\n\n")
}

// signature is the full closing block with the sender's postal address.
func (c *Composer) signature() string {
	s := c.sender
	lines := []string{"Respectfully,", s.FullName(), s.Address1}
	if s.Address2 != "" {
		lines = append(lines, s.Address2)
	}
	lines = append(lines, cityLine(s), s.Email, s.Phone)
	return strings.Join(lines, "\n")
}

// compactSignature omits the secondary address line and folds the postal
// address onto one line.
func (c *Composer) compactSignature() string {
	s := c.sender
	return strings.Join([]string{
		"Respectfully,",
		s.FullName(),
		s.Address1 + ", " + cityLine(s),
		s.Email + " | " + s.Phone,
	}, "\n")
}

func cityLine(s models.SenderProfile) string {
	zip := s.Zip
	if s.Zip4 != "" {
		zip += "-" + s.Zip4
	}
	return fmt.Sprintf("%s, %s %s", s.City, s.State, zip)
}

func length(s string) int { return utf8.RuneCountInString(s) }
