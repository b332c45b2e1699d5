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

// Package export encodes one composed message into the per-channel artifacts:
// the web-form paste file, the printable USPS letter and the House CWC 2.0
// XML document. Encoders are pure: the same entry always yields the same
// bytes.
package export

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ssext/submission/internal/models"
)

// ErrChannelUnavailable means the member cannot be reached on a channel,
// e.g. no contact-form URL. Other channels still proceed.
var ErrChannelUnavailable = errors.New("channel unavailable")

// separator divides header blocks in the text artifacts.
var separator = strings.Repeat("=", 60)

// Entry is everything an exporter needs for one recipient.
type Entry struct {
	Rank    int
	Member  models.Member
	Package models.MessagePackage
}

// Artifact is one encoded file. Name is relative to the channel directory.
type Artifact struct {
	Channel models.Channel
	Name    string
	Data    []byte
	Skipped bool // channel does not apply to this member
}

// Exporter encodes entries for one channel.
type Exporter interface {
	Channel() models.Channel
	Export(e Entry) (Artifact, error)
}

// ChamberName is the formal chamber name used on envelopes.
func ChamberName(c models.Chamber) string {
	name := "United States " + cases.Title(language.English).String(string(c))
	if c == models.ChamberHouse {
		name += " of Representatives"
	}
	return name
}

// SafeName turns a member name into a file-name fragment: accents stripped,
// spaces to underscores, anything outside [A-Za-z0-9_-] removed.
func SafeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	for _, r := range strings.TrimSpace(plain) {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r == '-' || r == '_':
			b.WriteRune(r)
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RankedName is the NNN_Safe_Name.txt form used by the text channels.
func RankedName(rank int, name string) string {
	return fmt.Sprintf("%03d_%s.txt", rank, SafeName(name))
}
