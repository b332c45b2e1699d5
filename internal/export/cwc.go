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
	"encoding/xml"
	"fmt"

	"github.com/ssext/submission/internal/models"
)

// CWCVersion is the schema version written into every document.
const CWCVersion = "2.0"

// Element names and nesting follow the CWC 2.0 delivery document exactly.
type cwcDocument struct {
	XMLName  xml.Name    `xml:"CWC"`
	Version  string      `xml:"CWCVersion"`
	Delivery cwcDelivery `xml:"Delivery"`
}

type cwcDelivery struct {
	CampaignID          string         `xml:"CampaignId"`
	Organization        string         `xml:"Organization"`
	OrganizationContact string         `xml:"OrganizationContact"`
	Recipient           cwcRecipient   `xml:"Recipient"`
	Constituent         cwcConstituent `xml:"Constituent"`
	Message             cwcMessage     `xml:"Message"`
}

type cwcRecipient struct {
	MemberCode string `xml:"MemberCode"`
}

type cwcConstituent struct {
	Prefix            string `xml:"Prefix"`
	FirstName         string `xml:"FirstName"`
	LastName          string `xml:"LastName"`
	Email             string `xml:"Email"`
	Phone             string `xml:"Phone"`
	Address1          string `xml:"Address1"`
	Address2          string `xml:"Address2"`
	City              string `xml:"City"`
	StateAbbreviation string `xml:"StateAbbreviation"`
	Zip               string `xml:"Zip"`
	Zip4              string `xml:"Zip4"`
}

type cwcMessage struct {
	Subject                string   `xml:"Subject"`
	LibraryOfCongressTopic string   `xml:"LibraryOfCongressTopic"`
	Body                   cwcCDATA `xml:"Body"`
}

type cwcCDATA struct {
	Text string `xml:",cdata"`
}

// CWC renders the House delivery document. Senators are skipped, not failed.
type CWC struct {
	CampaignID string
	Sender     models.SenderProfile
}

func (CWC) Channel() models.Channel { return models.ChannelCWC }

func (c CWC) Export(e Entry) (Artifact, error) {
	m, p := e.Member, e.Package
	if m.Chamber != models.ChamberHouse {
		return Artifact{Channel: models.ChannelCWC, Skipped: true}, nil
	}

	s := c.Sender
	doc := cwcDocument{
		Version: CWCVersion,
		Delivery: cwcDelivery{
			CampaignID:          c.CampaignID,
			Organization:        s.Organization,
			OrganizationContact: s.Email,
			Recipient:           cwcRecipient{MemberCode: m.District},
			Constituent: cwcConstituent{
				Prefix:            s.Prefix,
				FirstName:         s.FirstName,
				LastName:          s.LastName,
				Email:             s.Email,
				Phone:             s.Phone,
				Address1:          s.Address1,
				Address2:          s.Address2,
				City:              s.City,
				StateAbbreviation: s.State,
				Zip:               s.Zip,
				Zip4:              s.Zip4,
			},
			Message: cwcMessage{
				Subject:                p.Subject,
				LibraryOfCongressTopic: p.Topic,
				Body:                   cwcCDATA{Text: p.Body},
			},
		},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Artifact{}, fmt.Errorf("marshal CWC document for %s: %w", m.ID, err)
	}
	data := append([]byte(xml.Header), out...)
	data = append(data, '\n')

	return Artifact{
		Channel: models.ChannelCWC,
		Name:    fmt.Sprintf("%s_%s.xml", m.ID, SafeName(m.Name)),
		Data:    data,
	}, nil
}
