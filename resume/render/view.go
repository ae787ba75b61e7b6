package render

import (
	"strings"

	"resume-tailor/resume/model"
)

const headerSep = ` \textbar{} `

// view is the template data. Every string in it is already TeX-escaped.
type view struct {
	Style     Style
	Pages     int
	Name      string
	Contact   string
	Links     string
	Company   string
	Title     string
	Summary   string
	Skills    []string
	Exp       []expView
	Projects  []projView
	Education []eduView
	Certs     []certView
	Awards    []awardView
	Languages []string
	Letter    letterView
}

type expView struct {
	Title   string
	Company string
	Period  string
	Bullets []string
}

type projView struct {
	Name    string
	Stack   string
	Bullets []string
}

type eduView struct {
	School string
	Degree string
	Period string
}

type certView struct {
	Name   string
	Issuer string
	Date   string
}

type awardView struct {
	Name string
	By   string
	Date string
}

type letterView struct {
	Address  string
	Intro    string
	WhyYou   string
	Evidence []string
	WhyThem  string
	Close    string
}

func buildView(in Input, spec RegionSpec) view {
	p := in.Profile
	c := in.Content
	v := view{
		Style:   spec.Style,
		Pages:   spec.Pages,
		Name:    EscapeTeX(p.Name),
		Contact: strings.Join(escapeAll([]string{p.Contact.Email, p.Contact.Phone, p.Contact.Location}), headerSep),
		Links:   strings.Join(escapeAll(p.Contact.Links), headerSep),
		Company: EscapeTeX(in.Job.Company),
		Title:   EscapeTeX(in.Job.Title),
		Summary: EscapeTeX(c.Resume.Summary),
		Skills:  escapeAll(c.Resume.SkillsLine),
	}
	for _, e := range c.Resume.Experience {
		v.Exp = append(v.Exp, expView{
			Title:   EscapeTeX(e.Title),
			Company: EscapeTeX(e.Company),
			Period:  EscapeTeX(model.FormatPeriod(e.Start, e.End)),
			Bullets: escapeAll(e.Bullets),
		})
	}
	for _, pr := range c.Resume.Projects {
		v.Projects = append(v.Projects, projView{
			Name:    EscapeTeX(pr.Name),
			Stack:   strings.Join(escapeAll(pr.Stack), ", "),
			Bullets: escapeAll(pr.Bullets),
		})
	}
	for _, ed := range c.Resume.Education {
		v.Education = append(v.Education, eduView{
			School: EscapeTeX(ed.School),
			Degree: EscapeTeX(ed.Degree),
			Period: EscapeTeX(ed.Period),
		})
	}
	for _, cert := range c.Resume.Certifications {
		v.Certs = append(v.Certs, certView{Name: EscapeTeX(cert.Name), Issuer: EscapeTeX(cert.Issuer), Date: EscapeTeX(cert.Date)})
	}
	for _, a := range c.Resume.Awards {
		v.Awards = append(v.Awards, awardView{Name: EscapeTeX(a.Name), By: EscapeTeX(a.By), Date: EscapeTeX(a.Date)})
	}
	for _, l := range c.Resume.Languages {
		entry := EscapeTeX(l.Name)
		if lvl := EscapeTeX(l.Level); lvl != "" {
			entry += " (" + lvl + ")"
		}
		if entry != "" {
			v.Languages = append(v.Languages, entry)
		}
	}
	cl := c.CoverLetter
	v.Letter = letterView{
		Address:  EscapeTeX(cl.Address),
		Intro:    EscapeTeX(cl.Intro),
		WhyYou:   EscapeTeX(cl.WhyYou),
		Evidence: escapeAll(cl.Evidence),
		WhyThem:  EscapeTeX(cl.WhyThem),
		Close:    EscapeTeX(cl.Close),
	}
	return v
}
