package generator

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"resume-tailor/resume/model"
)

// TopBullets is how many profile bullets are pre-selected for the prompt.
const TopBullets = 12

// RegionRules are the layout constraints sent to the model for a region.
type RegionRules struct {
	Region     model.Region `json:"region"`
	Pages      int          `json:"pages"`
	Style      string       `json:"style"`
	DateFormat string       `json:"date_format"`
}

// DefaultRules returns the built-in rules; unknown regions get GL.
func DefaultRules(region model.Region) RegionRules {
	switch region {
	case model.RegionUS:
		return RegionRules{Region: region, Pages: 1, Style: "no photo; concise; one-page", DateFormat: "YYYY-MM"}
	case model.RegionEU:
		return RegionRules{Region: region, Pages: 2, Style: "two-page allowed; simple", DateFormat: "YYYY-MM"}
	default:
		return RegionRules{Region: model.RegionGlobal, Pages: 1, Style: "one-page allowed; simple", DateFormat: "YYYY-MM"}
	}
}

const systemPrompt = `You write tailored resumes and cover letters for a single job posting.
Respond with one JSON object that matches the provided schema and nothing else.

Rules:
1) Use only facts from the candidate profile. Never invent employers, schools, dates or achievements.
2) Copy start and end dates exactly as given.
3) Every experience entry must use a company name that appears in the profile.
4) Copy certifications, awards and languages verbatim; omit them when the profile has none. Never emit placeholder text.
5) Use plain hyphens, never long dashes.
6) Order experience and projects by relevance to the posting, and open each bullet with an action verb and a measurable result where the profile supports one.
7) Put skills that match the posting first in skills_line without dropping the rest.
8) The cover letter names the company and role, cites concrete evidence from the profile and ends by asking for an interview.
9) In ats, list the posting keywords the resume covers and any screening risks you see.`

type bulletRef struct {
	Company string `json:"company"`
	Title   string `json:"title"`
	Bullet  string `json:"bullet"`
	score   int
}

var (
	tokenPattern = regexp.MustCompile(`[A-Za-z0-9+#.]+`)
	stopwords    = toSet(strings.Fields(`a an the and or for to of in on at with from by as is are was were
		be been being will would should could into about over under within across`))
)

func toSet(words []string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

// tokenCounts splits text into lowercase tokens longer than one character,
// skipping stopwords.
func tokenCounts(text string) map[string]int {
	counts := map[string]int{}
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if len(tok) <= 1 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		counts[tok]++
	}
	return counts
}

// selectBullets ranks every experience bullet by how often its tokens occur
// in the posting and keeps the best k. Ties keep profile order.
func selectBullets(p model.Profile, jd string, k int) []bulletRef {
	jdCounts := tokenCounts(jd)
	var all []bulletRef
	for _, e := range p.Experience {
		for _, b := range e.Bullets {
			if strings.TrimSpace(b) == "" {
				continue
			}
			score := 0
			for tok, n := range tokenCounts(b) {
				score += n * jdCounts[tok]
			}
			all = append(all, bulletRef{Company: e.Company, Title: e.Title, Bullet: b, score: score})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
	if k > 0 && len(all) > k {
		all = all[:k]
	}
	return all
}

type promptPayload struct {
	Profile     model.Profile     `json:"profile"`
	Job         promptJob         `json:"job"`
	Region      RegionRules       `json:"region_rules"`
	TopBullets  []bulletRef       `json:"top_bullets"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

type promptJob struct {
	Company  string `json:"company,omitempty"`
	Title    string `json:"title,omitempty"`
	Location string `json:"location,omitempty"`
}

// buildPrompt renders the user message. Output is stable for equal input;
// encoding/json sorts map keys.
func buildPrompt(p model.Profile, job model.JobPosting, rules RegionRules, prefs map[string]string) (string, error) {
	payload := promptPayload{
		Profile:     p,
		Job:         promptJob{Company: job.Company, Title: job.Title, Location: job.Location},
		Region:      rules,
		TopBullets:  selectBullets(p, job.JDText, TopBullets),
		Preferences: prefs,
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("CANDIDATE AND FORMAT CONTEXT\n")
	b.Write(raw)
	b.WriteString("\n\nJOB DESCRIPTION\n")
	b.WriteString(strings.TrimSpace(job.JDText))
	b.WriteString("\n\nThe top_bullets scored highest against this posting; use them as guidance, not as a limit.\n")
	if len(prefs) > 0 {
		b.WriteString("Honour the preferences where they do not conflict with the rules.\n")
	}
	b.WriteString("Return only the JSON object.")
	return b.String(), nil
}
