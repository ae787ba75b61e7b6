package model

// TailoredContent is the generator output for one job.
type TailoredContent struct {
	Resume      TailoredResume `json:"resume"`
	CoverLetter CoverLetter    `json:"cover_letter"`
	ATS         ATSReport      `json:"ats"`
}

// TailoredResume holds the job-specific résumé sections.
type TailoredResume struct {
	Summary        string               `json:"summary"`
	SkillsLine     []string             `json:"skills_line"`
	Experience     []TailoredExperience `json:"experience"`
	Projects       []TailoredProject    `json:"projects"`
	Education      []TailoredEducation  `json:"education"`
	Certifications []Certification      `json:"certifications,omitempty"`
	Awards         []Award              `json:"awards,omitempty"`
	Languages      []Language           `json:"languages,omitempty"`
}

type TailoredExperience struct {
	Title   string   `json:"title"`
	Company string   `json:"company"`
	Start   string   `json:"start,omitempty"`
	End     string   `json:"end,omitempty"`
	Bullets []string `json:"bullets"`
}

type TailoredProject struct {
	Name    string   `json:"name"`
	Stack   []string `json:"stack,omitempty"`
	Bullets []string `json:"bullets,omitempty"`
}

type TailoredEducation struct {
	School string `json:"school"`
	Degree string `json:"degree,omitempty"`
	Period string `json:"period,omitempty"`
}

// CoverLetter is the structured cover letter body.
type CoverLetter struct {
	Address  string   `json:"address"`
	Intro    string   `json:"intro"`
	WhyYou   string   `json:"why_you"`
	Evidence []string `json:"evidence"`
	WhyThem  string   `json:"why_them"`
	Close    string   `json:"close"`
}

// ATSReport lists matched JD keywords and screening risks.
type ATSReport struct {
	Matched []string `json:"jd_keywords_matched"`
	Risks   []string `json:"risks"`
}

// Untailored builds content straight from the profile without any generation call.
func Untailored(p Profile, job JobPosting) TailoredContent {
	out := TailoredContent{
		Resume: TailoredResume{
			Summary:        p.Summary,
			SkillsLine:     append([]string(nil), p.Skills...),
			Certifications: append([]Certification(nil), p.Certifications...),
			Awards:         append([]Award(nil), p.Awards...),
			Languages:      append([]Language(nil), p.Languages...),
		},
		ATS: ATSReport{Matched: []string{}, Risks: []string{"content not tailored to this posting"}},
	}
	for _, e := range p.Experience {
		out.Resume.Experience = append(out.Resume.Experience, TailoredExperience{
			Title:   e.Title,
			Company: e.Company,
			Start:   e.Start,
			End:     e.End,
			Bullets: append([]string(nil), e.Bullets...),
		})
	}
	for _, pr := range p.Projects {
		out.Resume.Projects = append(out.Resume.Projects, TailoredProject{
			Name:    pr.Name,
			Stack:   append([]string(nil), pr.Stack...),
			Bullets: append([]string(nil), pr.Bullets...),
		})
	}
	for _, ed := range p.Education {
		out.Resume.Education = append(out.Resume.Education, TailoredEducation{
			School: ed.School,
			Degree: ed.Degree,
			Period: ed.Period(),
		})
	}

	company := job.Company
	if company == "" {
		company = "your team"
	}
	role := job.Title
	if role == "" {
		role = "the open role"
	}
	out.CoverLetter = CoverLetter{
		Address: "Dear Hiring Manager,",
		Intro:   "I am applying for " + role + " at " + company + ".",
		WhyYou:  p.Summary,
		WhyThem: "",
		Close:   "Thank you for your consideration.",
	}
	return out
}
