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

// Package models defines the data structures shared across the submission engine.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Chamber identifies which house of Congress a member sits in.
type Chamber string

const (
	ChamberHouse  Chamber = "house"
	ChamberSenate Chamber = "senate"
)

// ParseChamber accepts "house" or "senate" in any case.
func ParseChamber(s string) (Chamber, error) {
	switch Chamber(strings.ToLower(strings.TrimSpace(s))) {
	case ChamberHouse:
		return ChamberHouse, nil
	case ChamberSenate:
		return ChamberSenate, nil
	}
	return "", fmt.Errorf("unknown chamber %q", s)
}

// Title is the form of address used in salutations.
func (c Chamber) Title() string {
	if c == ChamberSenate {
		return "Senator"
	}
	return "Representative"
}

// Party is a member's party affiliation.
type Party string

const (
	PartyDemocrat    Party = "D"
	PartyRepublican  Party = "R"
	PartyIndependent Party = "I"
)

// ParseParty accepts the single-letter party codes D, R and I.
func ParseParty(s string) (Party, error) {
	switch Party(strings.ToUpper(strings.TrimSpace(s))) {
	case PartyDemocrat:
		return PartyDemocrat, nil
	case PartyRepublican:
		return PartyRepublican, nil
	case PartyIndependent:
		return PartyIndependent, nil
	}
	return "", fmt.Errorf("unknown party %q", s)
}

// Stance is a member's classified disposition toward the proposal.
// The taxonomy is closed: any other value is a load-time error.
type Stance string

const (
	StanceReceptive Stance = "RECEPTIVE"
	StanceSkeptical Stance = "SKEPTICAL"
	StanceHostile   Stance = "HOSTILE"
)

// Stances lists the taxonomy in priority order.
func Stances() []Stance {
	return []Stance{StanceReceptive, StanceSkeptical, StanceHostile}
}

// ParseStance validates s against the closed stance taxonomy.
func ParseStance(s string) (Stance, error) {
	switch Stance(strings.ToUpper(strings.TrimSpace(s))) {
	case StanceReceptive:
		return StanceReceptive, nil
	case StanceSkeptical:
		return StanceSkeptical, nil
	case StanceHostile:
		return StanceHostile, nil
	}
	return "", fmt.Errorf("unknown stance %q", s)
}

// Tier is the strategic tag that drives submission order.
type Tier string

const (
	TierChampion   Tier = "CHAMPION"
	TierBridge     Tier = "BRIDGE"
	TierGatekeeper Tier = "GATEKEEPER"
	TierOrdinary   Tier = "ORDINARY"
)

// ParseTier validates s against the tier tags. An empty value means ORDINARY.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToUpper(strings.TrimSpace(s))) {
	case TierChampion:
		return TierChampion, nil
	case TierBridge:
		return TierBridge, nil
	case TierGatekeeper:
		return TierGatekeeper, nil
	case TierOrdinary, "":
		return TierOrdinary, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// Recipient is one member of Congress. Immutable once loaded.
type Recipient struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Chamber  Chamber `json:"chamber"`
	State    string  `json:"state"`
	District string  `json:"district,omitempty"` // "NY-14" or "AK-AL"; empty for senators
	Party    Party   `json:"party"`
}

// Seat returns the district code for representatives and the state for senators.
func (r Recipient) Seat() string {
	if r.District != "" {
		return r.District
	}
	return r.State
}

// Serves reports whether channel c applies to r. CWC delivery exists only
// for the House.
func (r Recipient) Serves(c Channel) bool {
	return c != ChannelCWC || r.Chamber == ChamberHouse
}

// Office is a district or state office.
type Office struct {
	City    string `json:"city" yaml:"city"`
	Address string `json:"address" yaml:"address"`
	Phone   string `json:"phone" yaml:"phone"`
}

// ContactInfo holds the published contact facts for a member.
type ContactInfo struct {
	DCOffice     string   `json:"dc_office"`
	DCPhone      string   `json:"dc_phone"`
	Website      string   `json:"website,omitempty"`
	ContactForm  string   `json:"contact_form,omitempty"` // empty disables the web-form channel
	LocalOffices []Office `json:"local_offices,omitempty"`
}

// StanceRecord is the externally supplied classification for a member.
type StanceRecord struct {
	Stance Stance   `json:"stance"`
	Tier   Tier     `json:"tier"`
	Tags   []string `json:"tags,omitempty"` // committee and caucus memberships
	Notes  string   `json:"notes,omitempty"`
}

// Member is the canonical joined record: roster row, contact facts and
// classification for one recipient. Every downstream component consumes it.
type Member struct {
	Recipient
	Contact  ContactInfo  `json:"contact"`
	Strategy StanceRecord `json:"strategy"`
}

// SenderProfile identifies the constituent sending every message.
type SenderProfile struct {
	Prefix       string `yaml:"prefix" json:"prefix,omitempty"`
	FirstName    string `yaml:"first_name" json:"first_name"`
	LastName     string `yaml:"last_name" json:"last_name"`
	Email        string `yaml:"email" json:"email"`
	Phone        string `yaml:"phone" json:"phone"`
	Address1     string `yaml:"address_line_1" json:"address_line_1"`
	Address2     string `yaml:"address_line_2" json:"address_line_2,omitempty"`
	City         string `yaml:"city" json:"city"`
	State        string `yaml:"state" json:"state"`
	Zip          string `yaml:"zip_code" json:"zip_code"`
	Zip4         string `yaml:"zip_plus_4" json:"zip_plus_4,omitempty"`
	Organization string `yaml:"organization" json:"organization,omitempty"`
}

// FullName joins first and last name.
func (s SenderProfile) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// MissingFields returns the config keys of required fields that are blank.
func (s SenderProfile) MissingFields() []string {
	required := []struct {
		key   string
		value string
	}{
		{"first_name", s.FirstName},
		{"last_name", s.LastName},
		{"email", s.Email},
		{"phone", s.Phone},
		{"address_line_1", s.Address1},
		{"city", s.City},
		{"state", s.State},
		{"zip_code", s.Zip},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.key)
		}
	}
	return missing
}

// MessagePackage is the composed content for one recipient. Identical
// (recipient, stance, sender) inputs always yield an identical package,
// apart from GeneratedAt which is sidecar metadata and never rendered.
type MessagePackage struct {
	RecipientID  string    `json:"recipient_id"`
	Stance       Stance    `json:"stance"`
	Subject      string    `json:"subject"`
	ShortSubject string    `json:"short_subject"`
	Topic        string    `json:"topic"`
	Body         string    `json:"body"`
	Hash         string    `json:"message_hash"`
	Variant      string    `json:"variant"`           // "standard" or "compact"
	Dropped      []string  `json:"dropped,omitempty"` // optional clauses removed to fit the bound
	GeneratedAt  time.Time `json:"generated_at"`
}
