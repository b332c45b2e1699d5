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
	"bytes"
	"encoding/csv"
	"fmt"
)

// MailMergeFile is written alongside the USPS letters.
const MailMergeFile = "mail_merge_data.csv"

// MailMerge builds the bulk-printing address file for entries, in the
// order given.
func MailMerge(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"title", "full_name", "chamber", "address", "stance"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		m := e.Member
		if err := w.Write([]string{
			m.Chamber.Title(),
			m.Name,
			ChamberName(m.Chamber),
			m.Contact.DCOffice,
			string(m.Strategy.Stance),
		}); err != nil {
			return nil, fmt.Errorf("mail merge row %s: %w", m.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
