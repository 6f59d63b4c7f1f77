package workspace

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"ocv/internal/models"
)

var (
	// ErrIndexOutOfRange is returned when removing an entry that does not exist.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrUnknownKey is returned when an entry value names a key the section
	// does not have.
	ErrUnknownKey = errors.New("unknown key")
)

// SetField sets one of the scalar CV fields.
func (w *Workspace) SetField(field models.Field, value string) error {
	switch field {
	case models.FieldName:
		w.CV.Name = value
	case models.FieldEmail:
		w.CV.Email = value
	case models.FieldPhone:
		w.CV.Phone = value
	case models.FieldLocation:
		w.CV.Location = value
	case models.FieldSummary:
		w.CV.Summary = value
	default:
		return fmt.Errorf("invalid field: %s", field)
	}
	return nil
}

// Field returns the value of a scalar CV field.
func (w *Workspace) Field(field models.Field) (string, error) {
	switch field {
	case models.FieldName:
		return w.CV.Name, nil
	case models.FieldEmail:
		return w.CV.Email, nil
	case models.FieldPhone:
		return w.CV.Phone, nil
	case models.FieldLocation:
		return w.CV.Location, nil
	case models.FieldSummary:
		return w.CV.Summary, nil
	default:
		return "", fmt.Errorf("invalid field: %s", field)
	}
}

// AddSkill appends a trimmed skill unless it is empty or already present.
// It reports whether the list changed.
func (w *Workspace) AddSkill(skill string) bool {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return false
	}
	for _, existing := range w.CV.Skills {
		if existing == skill {
			return false
		}
	}
	w.CV.Skills = append(w.CV.Skills, skill)
	return true
}

// AddSkills adds each skill in order and returns how many were new.
func (w *Workspace) AddSkills(skills ...string) int {
	added := 0
	for _, skill := range skills {
		if w.AddSkill(skill) {
			added++
		}
	}
	return added
}

// RemoveSkill deletes a skill and reports whether it was present.
func (w *Workspace) RemoveSkill(skill string) bool {
	skill = strings.TrimSpace(skill)
	for i, existing := range w.CV.Skills {
		if existing == skill {
			w.CV.Skills = append(w.CV.Skills[:i:i], w.CV.Skills[i+1:]...)
			return true
		}
	}
	return false
}

func (w *Workspace) AddExperience(entry models.Experience) {
	w.CV.Experience = append(w.CV.Experience, entry)
}

func (w *Workspace) AddEducation(entry models.Education) {
	w.CV.Education = append(w.CV.Education, entry)
}

func (w *Workspace) AddCourse(entry models.Course) {
	w.CV.Courses = append(w.CV.Courses, entry)
}

func (w *Workspace) AddCertificate(entry models.Certificate) {
	w.CV.Certificates = append(w.CV.Certificates, entry)
}

// AddEntry appends a row to section built from key/value pairs. Keys are
// the JSON field names of the section's entries.
func (w *Workspace) AddEntry(section models.Section, values map[string]string) error {
	keys, ok := sectionKeys[section]
	if !ok {
		return fmt.Errorf("invalid section: %s", section)
	}
	for key := range values {
		if _, ok := keys[key]; !ok {
			return fmt.Errorf("%w %q for %s (allowed: %s)", ErrUnknownKey, key, section, strings.Join(SectionKeys(section), ", "))
		}
	}

	switch section {
	case models.SectionExperience:
		w.AddExperience(models.Experience{
			Title:       values["title"],
			Company:     values["company"],
			From:        values["from"],
			To:          values["to"],
			Description: values["description"],
		})
	case models.SectionEducation:
		w.AddEducation(models.Education{
			Degree:      values["degree"],
			Institution: values["institution"],
			From:        values["from"],
			To:          values["to"],
		})
	case models.SectionCourses:
		w.AddCourse(models.Course{
			Title:    values["title"],
			Provider: values["provider"],
			Date:     values["date"],
			URL:      values["url"],
		})
	case models.SectionCertificates:
		w.AddCertificate(models.Certificate{
			Title:  values["title"],
			Issuer: values["issuer"],
			Date:   values["date"],
			URL:    values["url"],
		})
	}
	return nil
}

// RemoveEntry deletes the row at index from section.
func (w *Workspace) RemoveEntry(section models.Section, index int) error {
	if index < 0 || index >= w.CV.Len(section) {
		return fmt.Errorf("%w: %s has %d entries, got index %d", ErrIndexOutOfRange, section, w.CV.Len(section), index)
	}
	switch section {
	case models.SectionExperience:
		w.CV.Experience = append(w.CV.Experience[:index:index], w.CV.Experience[index+1:]...)
	case models.SectionEducation:
		w.CV.Education = append(w.CV.Education[:index:index], w.CV.Education[index+1:]...)
	case models.SectionCourses:
		w.CV.Courses = append(w.CV.Courses[:index:index], w.CV.Courses[index+1:]...)
	case models.SectionCertificates:
		w.CV.Certificates = append(w.CV.Certificates[:index:index], w.CV.Certificates[index+1:]...)
	}
	return nil
}

// ReplaceCV swaps in a whole document, keeping skills unique.
func (w *Workspace) ReplaceCV(cv models.CV) {
	cv.Normalize()
	skills := cv.Skills
	cv.Skills = []string{}
	w.CV = cv
	w.AddSkills(skills...)
}

// SectionKeys returns the accepted entry keys for section, sorted.
func SectionKeys(section models.Section) []string {
	keys := make([]string, 0, len(sectionKeys[section]))
	for key := range sectionKeys[section] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var sectionKeys = map[models.Section]map[string]struct{}{
	models.SectionExperience:   keySet("title", "company", "from", "to", "description"),
	models.SectionEducation:    keySet("degree", "institution", "from", "to"),
	models.SectionCourses:      keySet("title", "provider", "date", "url"),
	models.SectionCertificates: keySet("title", "issuer", "date", "url"),
}

func keySet(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		out[key] = struct{}{}
	}
	return out
}
