package models

import (
	"fmt"
	"strings"
)

// FormatVersion is the only container and manifest version this build reads
// or writes.
const FormatVersion = 1

// DefaultMediaType is recorded when the host does not report one.
const DefaultMediaType = "application/octet-stream"

// Section names one of the ordered sub-record lists of a CV.
type Section string

const (
	SectionExperience   Section = "experience"
	SectionEducation    Section = "education"
	SectionCourses      Section = "courses"
	SectionCertificates Section = "certificates"
)

// Field names one of the scalar CV fields.
type Field string

const (
	FieldName     Field = "name"
	FieldEmail    Field = "email"
	FieldPhone    Field = "phone"
	FieldLocation Field = "location"
	FieldSummary  Field = "summary"
)

var validSections = map[Section]struct{}{
	SectionExperience:   {},
	SectionEducation:    {},
	SectionCourses:      {},
	SectionCertificates: {},
}

var validFields = map[Field]struct{}{
	FieldName:     {},
	FieldEmail:    {},
	FieldPhone:    {},
	FieldLocation: {},
	FieldSummary:  {},
}

var sectionAliases = map[string]Section{
	"exp":         SectionExperience,
	"edu":         SectionEducation,
	"course":      SectionCourses,
	"certificate": SectionCertificates,
	"cert":        SectionCertificates,
	"certs":       SectionCertificates,
}

// Sections returns the CV list sections in document order.
func Sections() []Section {
	return []Section{SectionExperience, SectionEducation, SectionCourses, SectionCertificates}
}

// Fields returns the scalar CV fields in document order.
func Fields() []Field {
	return []Field{FieldName, FieldEmail, FieldPhone, FieldLocation, FieldSummary}
}

func ParseSection(raw string) (Section, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", fmt.Errorf("section is required")
	}
	if alias, ok := sectionAliases[value]; ok {
		return alias, nil
	}
	section := Section(value)
	if _, ok := validSections[section]; !ok {
		return "", fmt.Errorf("invalid section: %s", value)
	}
	return section, nil
}

func ParseField(raw string) (Field, error) {
	value := Field(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("field is required")
	}
	if _, ok := validFields[value]; !ok {
		return "", fmt.Errorf("invalid field: %s", value)
	}
	return value, nil
}
