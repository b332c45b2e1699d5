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

package compose

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssext/submission/internal/fixture"
	"github.com/ssext/submission/internal/models"
)

var fixedNow = time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)

func newComposer(t *testing.T, sender models.SenderProfile) *Composer {
	t.Helper()
	c, err := New(Config{Sender: sender, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return c
}

// TestCompose_AllWithinBounds verifies every member of a full roster gets a
// standard letter inside [1500, 2000] characters.
func TestCompose_AllWithinBounds(t *testing.T) {
	c := newComposer(t, fixture.Sender())
	members := fixture.Build().Members()
	require.Len(t, members, 535)

	for _, m := range members {
		pkg, err := c.Compose(m)
		require.NoError(t, err, m.ID)

		n := utf8.RuneCountInString(pkg.Body)
		assert.GreaterOrEqual(t, n, DefaultMinLength, m.ID)
		assert.LessOrEqual(t, n, DefaultMaxLength, m.ID)
		assert.Equal(t, VariantStandard, pkg.Variant, m.ID)
		assert.Empty(t, pkg.Dropped, m.ID)
		assert.Equal(t, m.Strategy.Stance, pkg.Stance)
		assert.Len(t, pkg.Hash, 16)
		assert.Equal(t, fixedNow, pkg.GeneratedAt)
	}
}

// TestCompose_Deterministic verifies identical inputs give identical packages
// apart from the generation timestamp.
func TestCompose_Deterministic(t *testing.T) {
	m := fixture.Build().Find("S-ME-1")

	a, err := newComposer(t, fixture.Sender()).Compose(m)
	require.NoError(t, err)

	later, err := New(Config{Sender: fixture.Sender(), Now: func() time.Time { return fixedNow.Add(48 * time.Hour) }})
	require.NoError(t, err)
	b, err := later.Compose(m)
	require.NoError(t, err)

	assert.Equal(t, a.Body, b.Body)
	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, a.Subject, b.Subject)
	assert.NotEqual(t, a.GeneratedAt, b.GeneratedAt)
}

// TestCompose_ReceptiveChampion checks the AOC scenario content.
func TestCompose_ReceptiveChampion(t *testing.T) {
	m := fixture.Build().Find("H-NY-14")
	pkg, err := newComposer(t, fixture.Sender()).Compose(m)
	require.NoError(t, err)

	assert.Equal(t, "Expanding Social Security: Revenue-Constrained Benefit Extension", pkg.Subject)
	assert.Equal(t, "Social Security Expansion Proposal", pkg.ShortSubject)
	assert.Equal(t, "Social Security", pkg.Topic)
	assert.True(t, strings.HasPrefix(pkg.Body, "Dear Representative Alexandria Ocasio-Cortez,\n\n"))
	assert.Contains(t, pkg.Body, "New York's 14th congressional district")
	assert.True(t, strings.HasSuffix(pkg.Body, "Respectfully,\nJordan Rivera\n1200 SE Morrison St\nPortland, OR 97214\njordan.rivera@example.org\n(503) 555-0142"))
	assert.NotContains(t, pkg.Body, "{")
}

// TestCompose_SenatorSalutation verifies chamber-appropriate address and the
// state used as constituency.
func TestCompose_SenatorSalutation(t *testing.T) {
	m := fixture.Build().Find("S-LA-1")
	pkg, err := newComposer(t, fixture.Sender()).Compose(m)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(pkg.Body, "Dear Senator "+m.Name+",\n\n"))
	assert.Contains(t, pkg.Body, "every retiree in Louisiana,")
	assert.Equal(t, "Budget/Spending", pkg.Topic)
}

// TestCompose_Hostile verifies the hostile subject and topic.
func TestCompose_Hostile(t *testing.T) {
	m := fixture.Build().Find("H-OK-4")
	pkg, err := newComposer(t, fixture.Sender()).Compose(m)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(pkg.Subject, "Protecting Social Security for 67 Million Retirees"))
	assert.Equal(t, "Social Security", pkg.Topic)
	assert.Contains(t, pkg.Body, "constituents in Oklahoma's 4th congressional district.")
}

// TestCompose_DropsOptionalClause verifies a long signature drops the lowest
// priority paragraph whole instead of truncating.
func TestCompose_DropsOptionalClause(t *testing.T) {
	sender := fixture.Sender()
	sender.Address2 = strings.Repeat("Attn: Policy Desk ", 17)

	pkg, err := newComposer(t, sender).Compose(fixture.Build().Find("H-NY-14"))
	require.NoError(t, err)

	assert.Equal(t, VariantStandard, pkg.Variant)
	assert.Equal(t, []string{"constituents"}, pkg.Dropped)
	assert.NotContains(t, pkg.Body, "For your constituents in")
	assert.Contains(t, pkg.Body, "stress-tested under adverse conditions.")
	assert.LessOrEqual(t, utf8.RuneCountInString(pkg.Body), DefaultMaxLength)
}

// TestCompose_CompactFallback verifies that when no standard rendering fits
// the compact variant is used.
func TestCompose_CompactFallback(t *testing.T) {
	sender := fixture.Sender()
	sender.Address2 = strings.Repeat("Attn: Policy Desk ", 58)

	for _, id := range []string{"H-NY-14", "S-ME-2", "H-AR-2"} {
		pkg, err := newComposer(t, sender).Compose(fixture.Build().Find(id))
		require.NoError(t, err, id)

		assert.Equal(t, VariantCompact, pkg.Variant, id)
		assert.NotContains(t, pkg.Body, "Attn: Policy Desk", id)
		assert.Contains(t, pkg.Body, "1200 SE Morrison St, Portland, OR 97214", id)
		assert.Contains(t, pkg.Body, "jordan.rivera@example.org | (503) 555-0142", id)
		n := utf8.RuneCountInString(pkg.Body)
		assert.True(t, n >= DefaultMinLength && n <= DefaultMaxLength, "%s: %d", id, n)
	}
}

// TestCompose_LengthViolation verifies ErrBodyLengthViolation when neither
// variant can reach the bounds.
func TestCompose_LengthViolation(t *testing.T) {
	c, err := New(Config{Sender: fixture.Sender(), MinLength: 1950, MaxLength: 2000})
	require.NoError(t, err)

	_, err = c.Compose(fixture.Build().Find("H-OK-4"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBodyLengthViolation))
	assert.Contains(t, err.Error(), "H-OK-4")
}

// TestNew_MissingSender verifies composition is blocked by blank sender fields.
func TestNew_MissingSender(t *testing.T) {
	sender := fixture.Sender()
	sender.Email = ""
	sender.Zip = "  "

	_, err := New(Config{Sender: sender})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingSenderProfile))

	var mse *MissingSenderProfileError
	require.True(t, errors.As(err, &mse))
	assert.Equal(t, []string{"email", "zip_code"}, mse.Fields)
}

// TestNew_InvertedBounds verifies min > max is rejected.
func TestNew_InvertedBounds(t *testing.T) {
	_, err := New(Config{Sender: fixture.Sender(), MinLength: 2100, MaxLength: 2000})
	require.Error(t, err)
}

// TestEnclosures verifies each stance has its mailing list.
func TestEnclosures(t *testing.T) {
	for _, s := range models.Stances() {
		assert.NotEmpty(t, Enclosures(s), s)
		assert.True(t, strings.HasPrefix(Enclosures(s)[0], "Executive Brief: "), s)
	}
	assert.Nil(t, Enclosures("UNKNOWN"))
}
