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

package export

import (
	"fmt"
	"strings"

	"github.com/ssext/submission/internal/compose"
	"github.com/ssext/submission/internal/models"
)

// USPS renders the printable letter with its envelope block. The date line
// is left blank for the signer so the file stays reproducible.
type USPS struct{}

func (USPS) Channel() models.Channel { return models.ChannelUSPS }

func (USPS) Export(e Entry) (Artifact, error) {
	m, p := e.Member, e.Package
	if strings.TrimSpace(m.Contact.DCOffice) == "" {
		return Artifact{}, fmt.Errorf("letter for %s: no DC office address: %w", m.ID, ErrChannelUnavailable)
	}

	envelope := Envelope(m)

	var b strings.Builder
	b.WriteString("ENVELOPE ADDRESS:\n")
	b.WriteString(envelope + "\n\n")
	b.WriteString(separator + "\n\n")
	b.WriteString("DATE: ____________________\n\n")
	b.WriteString(envelope + "\n\n")
	fmt.Fprintf(&b, "RE: %s\n\n", p.Subject)
	b.WriteString(p.Body + "\n\n")
	b.WriteString("Enclosures:\n")
	for _, enc := range compose.Enclosures(p.Stance) {
		fmt.Fprintf(&b, "  - %s\n", enc)
	}

	return Artifact{
		Channel: models.ChannelUSPS,
		Name:    RankedName(e.Rank, m.Name),
		Data:    []byte(b.String()),
	}, nil
}

// Envelope is the three-part mailing block for a member's DC office.
func Envelope(m models.Member) string {
	return fmt.Sprintf("The Honorable %s\n%s\n%s", m.Name, ChamberName(m.Chamber), m.Contact.DCOffice)
}
