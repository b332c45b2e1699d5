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
	"strconv"
	"strings"
)

var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming",
}

// StateName returns the full name for a two-letter state code.
func StateName(code string) (string, bool) {
	name, ok := stateNames[strings.ToUpper(code)]
	return name, ok
}

// ParseDistrict splits a code such as "NY-14" or "AK-AL" into its state and
// district number. At-large districts return 0.
func ParseDistrict(code string) (state string, number int, err error) {
	st, d, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(code)), "-")
	if !ok {
		return "", 0, fmt.Errorf("district %q: want STATE-NUMBER", code)
	}
	if _, known := stateNames[st]; !known {
		return "", 0, fmt.Errorf("district %q: unknown state %q", code, st)
	}
	if d == "AL" {
		return st, 0, nil
	}
	n, err := strconv.Atoi(d)
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("district %q: bad district number", code)
	}
	return st, n, nil
}

// Ordinal renders 1 as "1st", 12 as "12th", 22 as "22nd".
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// Constituency describes who a member represents, for use in message text:
// "Oregon" for senators and at-large seats, "New York's 14th congressional
// district" for districts.
func (r Recipient) Constituency() string {
	name, _ := StateName(r.State)
	if r.Chamber == ChamberSenate || r.District == "" {
		return name
	}
	_, n, err := ParseDistrict(r.District)
	if err != nil || n == 0 {
		return name
	}
	return fmt.Sprintf("%s's %s congressional district", name, Ordinal(n))
}
