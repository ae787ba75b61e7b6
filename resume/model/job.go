package model

import (
	"regexp"
	"strings"
)

// Region selects formatting rules and templates.
type Region string

const (
	RegionUS     Region = "US"
	RegionEU     Region = "EU"
	RegionGlobal Region = "GL"
)

// JobPosting is one target job. ID becomes the artifact filename stem.
type JobPosting struct {
	ID       string `json:"id" validate:"nonblank"`
	Region   string `json:"region"`
	Company  string `json:"company"`
	Title    string `json:"title"`
	Location string `json:"location,omitempty"`
	JDText   string `json:"jdText" validate:"nonblank"`
}

// GenerationRequest is one tailoring call. It lives only as long as the request.
type GenerationRequest struct {
	Profile     Profile           `json:"profile"`
	Jobs        []JobPosting      `json:"jobs"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

var (
	usPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(usa|united states|u\.s\.a?\.?|america)\b`),
		regexp.MustCompile(`(?i)\b(new york|nyc|san francisco|los angeles|seattle|austin|boston|chicago|denver|atlanta|miami|dallas|houston|phoenix|philadelphia|washington\s*d\.?c\.?)\b`),
		regexp.MustCompile(`(?i)\b(california|texas|florida|colorado|massachusetts|georgia|illinois|arizona|pennsylvania|virginia|north carolina|ohio|michigan|new jersey|oregon|nevada)\b`),
		regexp.MustCompile(`(?i)\b(silicon valley|bay area|wall street)\b`),
	}
	euPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(europe|european union|eu|emea)\b`),
		regexp.MustCompile(`(?i)\b(london|berlin|paris|amsterdam|dublin|munich|frankfurt|zurich|stockholm|copenhagen|barcelona|madrid|milan|vienna|brussels|lisbon|prague|warsaw|oslo|helsinki)\b`),
		regexp.MustCompile(`(?i)\b(uk|united kingdom|britain|england|scotland|wales|ireland|germany|france|netherlands|switzerland|sweden|denmark|spain|italy|austria|belgium|portugal|poland|norway|finland|czech)\b`),
	}
)

// ParseRegion upper-cases code. Unknown codes are returned as-is so the
// renderer can apply its own fallback.
func ParseRegion(code string) Region {
	return Region(strings.ToUpper(strings.TrimSpace(code)))
}

// DetectRegion guesses a region from the posting text. US patterns are
// checked before EU ones; no match yields RegionGlobal.
func DetectRegion(text, company string) Region {
	hay := text + " " + company
	for _, p := range usPatterns {
		if p.MatchString(hay) {
			return RegionUS
		}
	}
	for _, p := range euPatterns {
		if p.MatchString(hay) {
			return RegionEU
		}
	}
	return RegionGlobal
}

// ResolveRegion returns the job's explicit region, or a detected one when empty.
func (j JobPosting) ResolveRegion() Region {
	if r := ParseRegion(j.Region); r != "" {
		return r
	}
	return DetectRegion(j.JDText+" "+j.Location, j.Company)
}
