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

import "github.com/ssext/submission/internal/models"

// segment is one paragraph of a letter. Segments with drop > 0 are optional
// and are removed highest drop first when the body runs long.
type segment struct {
	name string
	text string
	drop int
}

// bundle is the stance-specific content: subjects, topic and body.
type bundle struct {
	subject      string
	shortSubject string
	topic        string
	segments     []segment
}

// Placeholders filled per recipient.
const (
	phTitle        = "{title}"
	phName         = "{name}"
	phConstituency = "{constituency}"
)

var bundles = map[models.Stance]bundle{
	models.StanceReceptive: {
		subject:      "Expanding Social Security: Revenue-Constrained Benefit Extension",
		shortSubject: "Social Security Expansion Proposal",
		topic:        "Social Security",
		segments: []segment{
			{name: "salutation", text: "Dear {title} {name},"},
			{name: "opening", text: "I am writing to bring to your attention a revenue-constrained proposal to expand Social Security benefits to every American adult living below the living wage threshold, without adding a single dollar to the federal deficit."},
			{name: "proposal", text: "THE PROPOSAL: The Social Security Extension Act would:\n" +
				"1. RESTRUCTURE FICA to fund a new Tier 2 benefit for 138 million eligible adults (67M current beneficiaries plus 71M working-age adults below a $2,200/month living wage)\n" +
				"2. IMPLEMENT mark-to-market taxation on economic income above $1 billion in wealth, raising $210 billion in Year 1 and $578 billion by Year 10\n" +
				"3. ESTABLISH a sovereign equity fund modeled on the Alaska Permanent Fund and Norway's Government Pension Fund"},
			{name: "key_numbers", text: "KEY NUMBERS FROM OUR MODEL:\n" +
				"- Year 1 benefits: $198-249/month per eligible adult\n" +
				"- Year 30 benefits: $798-1,731/month\n" +
				"- Income Gini reduction: 0.39 to 0.32, moving the US to Canada's level\n" +
				"- Solvency: guaranteed by design, because benefits adjust to available revenue"},
			{name: "growth", drop: 2, text: "The model projects GDP growth of 5.3% by Year 30 through consumption multiplier effects, and billionaire wealth continues to grow under the tax, from an $8.8B average today to $110B over 40 years."},
			{name: "stress_tests", drop: 1, text: "This proposal has been modeled under five behavioral response regimes and stress-tested under adverse conditions. A working paper, policy brief, and technical appendix are available."},
			{name: "constituents", drop: 3, text: "For your constituents in {constituency}, the benefit would reach every adult below the living wage threshold, whether retired, disabled, or working."},
			{name: "request", text: "I respectfully request the opportunity to provide a staff briefing on this proposal, and ask that you consider co-sponsoring enabling legislation."},
		},
	},
	models.StanceSkeptical: {
		subject:      "Strengthening Social Security Solvency — Bipartisan Framework",
		shortSubject: "Social Security Solvency Framework",
		topic:        "Budget/Spending",
		segments: []segment{
			{name: "salutation", text: "Dear {title} {name},"},
			{name: "opening", text: "I am writing regarding the Social Security solvency crisis. The trust fund is projected to be depleted by 2034, at which point 67 million beneficiaries face an automatic 23% benefit cut. I would like to bring a fiscally responsible solution to your attention."},
			{name: "proposal", text: "THE PROPOSAL: A revenue-constrained Social Security modernization that:\n" +
				"1. RESTRUCTURES FICA contributions to fund extended benefits with no new deficit spending\n" +
				"2. Applies a revenue constraint: benefits = available revenue / eligible population, so solvency holds by construction\n" +
				"3. Creates a sovereign equity fund on the Alaska Permanent Fund and Norway model for stable returns"},
			{name: "discipline", text: "FISCAL DISCIPLINE FEATURES:\n" +
				"- Zero deficit impact: the formula cannot spend beyond revenue\n" +
				"- Benefits ratchet down automatically if revenue declines\n" +
				"- A reserve fund covers temporary shortfalls without borrowing\n" +
				"- Independent actuarial review is built into the governance structure"},
			{name: "base_model", text: "The base model, FICA restructuring alone, delivers $106/month in Year 1 growing to $442/month by Year 30 for eligible adults below the living wage threshold."},
			{name: "wealth_tax", drop: 2, text: "An optional mark-to-market tax on billionaire economic income ($210B/year from 935 individuals) raises benefits to $249/month in Year 1 and $1,731/month by Year 30."},
			{name: "stress_tests", drop: 1, text: "Stress tests include a 50% capital flight scenario. Even under the most pessimistic assumptions the program remains solvent, because spending cannot exceed revenue."},
			{name: "constituents", drop: 3, text: "A solvent program matters to every retiree in {constituency}, and this framework protects them without new borrowing."},
			{name: "request", text: "I would welcome the opportunity to provide a 20-minute staff briefing with fiscal impact documentation."},
		},
	},
	models.StanceHostile: {
		subject:      "Protecting Social Security for 67 Million Retirees — Market-Based Approach",
		shortSubject: "Protecting Social Security Benefits",
		topic:        "Social Security",
		segments: []segment{
			{name: "salutation", text: "Dear {title} {name},"},
			{name: "opening", text: "Social Security faces a solvency crisis that will directly affect your constituents. By 2034 the trust fund will be depleted, and 67 million Americans, including retirees, disabled veterans, and survivors, face an automatic 23% benefit cut."},
			{name: "approach", text: "I am writing to share a market-based approach to protecting these benefits:\n" +
				"- Modernize Social Security's revenue structure using market-based returns, similar to the Alaska Permanent Fund, which has paid dividends to every Alaskan since 1982\n" +
				"- Revenue-constrained design: benefits can never exceed available revenue, so there is no deficit spending and no unfunded mandate\n" +
				"- Solvency guaranteed by construction, not by political promises"},
			{name: "numbers", text: "BY THE NUMBERS:\n" +
				"- 67 million Americans currently depend on Social Security\n" +
				"- 2034: projected trust fund depletion year\n" +
				"- 23%: automatic benefit cut at depletion\n" +
				"- $28.0 trillion: current US gross domestic product\n" +
				"- $106/month in additional benefits from Year 1, growing with market returns\n" +
				"- Zero new federal debt: benefits are paid only from revenue already collected"},
			{name: "norway", drop: 2, text: "Norway's Government Pension Fund, now worth $1.7 trillion, shows that a disciplined sovereign fund can deliver stable returns across decades and market cycles."},
			{name: "not_expansion", drop: 1, text: "This is not an expansion of government. It restructures existing revenue flows to protect benefits your constituents have earned, and the design prevents any spending beyond what revenue supports."},
			{name: "analysis", drop: 3, text: "A brief four-page analysis is available for your review."},
			{name: "request", text: "I respectfully request 20 minutes with your staff to discuss how this framework protects constituents in {constituency}."},
		},
	},
}

// Enclosures lists the documents mailed with the printed letter.
func Enclosures(s models.Stance) []string {
	switch s {
	case models.StanceReceptive:
		return []string{
			"Executive Brief: Social Security Extension Act",
			"Policy Brief: Revenue-Constrained Benefit Framework",
			"Key Model Outputs (1 page)",
		}
	case models.StanceSkeptical:
		return []string{
			"Executive Brief: Social Security Solvency Framework",
			"Fiscal Impact Summary (1 page)",
		}
	case models.StanceHostile:
		return []string{
			"Executive Brief: Protecting Social Security Benefits",
			"Alaska PFD Comparison (1 page)",
		}
	}
	return nil
}

// Describe returns the subject lines and topic for a stance.
func Describe(s models.Stance) (subject, shortSubject, topic string, ok bool) {
	b, ok := bundles[s]
	if !ok {
		return "", "", "", false
	}
	return b.subject, b.shortSubject, b.topic, true
}
