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

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ssext/submission/internal/models"
)

// WebForm renders the copy-paste file for a member's contact form.
type WebForm struct{}

func (WebForm) Channel() models.Channel { return models.ChannelWebForm }

// Export fails with ErrChannelUnavailable when the member has no form URL.
func (WebForm) Export(e Entry) (Artifact, error) {
	m, p := e.Member, e.Package
	if strings.TrimSpace(m.Contact.ContactForm) == "" {
		return Artifact{}, fmt.Errorf("web form for %s: no contact-form URL: %w", m.ID, ErrChannelUnavailable)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "RECIPIENT: %s\n", m.Name)
	fmt.Fprintf(&b, "CHAMBER: %s\n", cases.Upper(language.English).String(string(m.Chamber)))
	fmt.Fprintf(&b, "STATE/DISTRICT: %s\n", m.Seat())
	fmt.Fprintf(&b, "PARTY: %s\n", m.Party)
	fmt.Fprintf(&b, "STANCE: %s\n", m.Strategy.Stance)
	fmt.Fprintf(&b, "CONTACT FORM: %s\n", m.Contact.ContactForm)
	fmt.Fprintf(&b, "DC PHONE: %s\n", m.Contact.DCPhone)
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "SUBJECT: %s\n", p.Subject)
	fmt.Fprintf(&b, "SHORT SUBJECT: %s\n", p.ShortSubject)
	fmt.Fprintf(&b, "TOPIC: %s\n", p.Topic)
	b.WriteString(separator + "\n\n")
	b.WriteString(p.Body)
	b.WriteString("\n")

	return Artifact{
		Channel: models.ChannelWebForm,
		Name:    RankedName(e.Rank, m.Name),
		Data:    []byte(b.String()),
	}, nil
}
