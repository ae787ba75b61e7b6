package model

// PresentSentinel marks an ongoing experience or education entry.
const PresentSentinel = "Present"

// Profile is the candidate's structured résumé source. Slice order is display order.
type Profile struct {
	Name           string          `json:"name" validate:"nonblank"`
	Contact        Contact         `json:"contact"`
	Summary        string          `json:"summary"`
	Skills         []string        `json:"skills"`
	Experience     []Experience    `json:"experience" validate:"dive"`
	Education      []Education     `json:"education" validate:"dive"`
	Projects       []Project       `json:"projects" validate:"dive"`
	Certifications []Certification `json:"certifications,omitempty" validate:"dive"`
	Awards         []Award         `json:"awards,omitempty" validate:"dive"`
	Languages      []Language      `json:"languages,omitempty" validate:"dive"`
}

// Contact captures the header block.
type Contact struct {
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Location string   `json:"location"`
	Links    []string `json:"links"`
}

// Experience is a work history entry. Dates are opaque strings.
type Experience struct {
	Title    string   `json:"title"`
	Company  string   `json:"company" validate:"nonblank"`
	Location string   `json:"location"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Bullets  []string `json:"bullets"`
}

// Education is an education entry.
type Education struct {
	School   string `json:"school" validate:"nonblank"`
	Degree   string `json:"degree"`
	Location string `json:"location"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

// Period formats the entry's date range.
func (e Education) Period() string {
	return FormatPeriod(e.Start, e.End)
}

// Project is a notable project entry.
type Project struct {
	Name    string   `json:"name" validate:"nonblank"`
	Stack   []string `json:"stack"`
	Bullets []string `json:"bullets"`
}

// Certification is a certification entry.
type Certification struct {
	Name   string `json:"name" validate:"nonblank"`
	Issuer string `json:"issuer"`
	Date   string `json:"date"`
}

// Award is an award or honour.
type Award struct {
	Name string `json:"name" validate:"nonblank"`
	By   string `json:"by"`
	Date string `json:"date"`
}

// Language is a spoken language with a proficiency level.
type Language struct {
	Name  string `json:"name" validate:"nonblank"`
	Level string `json:"level"`
}

// FormatPeriod joins start and end with a hyphen, dropping empty parts.
func FormatPeriod(start, end string) string {
	switch {
	case start == "" && end == "":
		return ""
	case start == "":
		return end
	case end == "":
		return start
	default:
		return start + " - " + end
	}
}
