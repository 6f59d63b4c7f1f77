package models

// CV is the structured document stored as cv.json. Every field defaults to
// empty; list fields are kept non-nil by Normalize so they encode as [].
type CV struct {
	Name         string        `json:"name" yaml:"name"`
	Email        string        `json:"email" yaml:"email"`
	Phone        string        `json:"phone" yaml:"phone"`
	Location     string        `json:"location" yaml:"location"`
	Summary      string        `json:"summary" yaml:"summary"`
	Experience   []Experience  `json:"experience" yaml:"experience"`
	Education    []Education   `json:"education" yaml:"education"`
	Skills       []string      `json:"skills" yaml:"skills"`
	Courses      []Course      `json:"courses" yaml:"courses"`
	Certificates []Certificate `json:"certificates" yaml:"certificates"`
}

type Experience struct {
	Title       string `json:"title" yaml:"title"`
	Company     string `json:"company" yaml:"company"`
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	Description string `json:"description" yaml:"description"`
}

type Education struct {
	Degree      string `json:"degree" yaml:"degree"`
	Institution string `json:"institution" yaml:"institution"`
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
}

type Course struct {
	Title    string `json:"title" yaml:"title"`
	Provider string `json:"provider" yaml:"provider"`
	Date     string `json:"date" yaml:"date"`
	URL      string `json:"url" yaml:"url"`
}

type Certificate struct {
	Title  string `json:"title" yaml:"title"`
	Issuer string `json:"issuer" yaml:"issuer"`
	Date   string `json:"date" yaml:"date"`
	URL    string `json:"url" yaml:"url"`
}

// NewCV returns an empty, normalized document.
func NewCV() CV {
	var cv CV
	cv.Normalize()
	return cv
}

// Normalize replaces nil lists with empty ones.
func (c *CV) Normalize() {
	if c.Experience == nil {
		c.Experience = []Experience{}
	}
	if c.Education == nil {
		c.Education = []Education{}
	}
	if c.Skills == nil {
		c.Skills = []string{}
	}
	if c.Courses == nil {
		c.Courses = []Course{}
	}
	if c.Certificates == nil {
		c.Certificates = []Certificate{}
	}
}

// Clone returns a deep copy.
func (c CV) Clone() CV {
	out := c
	out.Experience = append([]Experience{}, c.Experience...)
	out.Education = append([]Education{}, c.Education...)
	out.Skills = append([]string{}, c.Skills...)
	out.Courses = append([]Course{}, c.Courses...)
	out.Certificates = append([]Certificate{}, c.Certificates...)
	return out
}

// Len returns the number of entries in section.
func (c *CV) Len(section Section) int {
	switch section {
	case SectionExperience:
		return len(c.Experience)
	case SectionEducation:
		return len(c.Education)
	case SectionCourses:
		return len(c.Courses)
	case SectionCertificates:
		return len(c.Certificates)
	default:
		return 0
	}
}
