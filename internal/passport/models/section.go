package models

import (
	"time"

	dErrors "passport/pkg/domain-errors"
)

// Section is one of the fixed passport sections. Sections are listed in display order.
type Section string

const (
	SectionLoves     Section = "LOVES"
	SectionHates     Section = "HATES"
	SectionStrengths Section = "STRENGTHS"
	SectionNeeds     Section = "NEEDS"
)

// Sections is the fixed, ordered set of passport sections.
var Sections = []Section{SectionLoves, SectionHates, SectionStrengths, SectionNeeds}

var sectionTitles = map[Section]string{
	SectionLoves:     "Loves",
	SectionHates:     "Hates",
	SectionStrengths: "Strengths",
	SectionNeeds:     "Needs",
}

func ParseSection(s string) (Section, error) {
	sec := Section(s)
	if !sec.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown section: "+s)
	}
	return sec, nil
}

func (s Section) IsValid() bool {
	_, ok := sectionTitles[s]
	return ok
}

func (s Section) Title() string {
	return sectionTitles[s]
}

// EntryType classifies a timeline entry.
type EntryType string

const (
	EntryIncident      EntryType = "INCIDENT"
	EntrySuccess       EntryType = "SUCCESS"
	EntryMilestone     EntryType = "MILESTONE"
	EntryNote          EntryType = "NOTE"
	EntryLike          EntryType = "LIKE"
	EntryDislike       EntryType = "DISLIKE"
	EntryMedical       EntryType = "MEDICAL"
	EntryEducational   EntryType = "EDUCATIONAL"
	EntryTherapy       EntryType = "THERAPY"
	EntrySchoolReport  EntryType = "SCHOOL_REPORT"
	EntryBehavior      EntryType = "BEHAVIOR"
	EntrySensory       EntryType = "SENSORY"
	EntryCommunication EntryType = "COMMUNICATION"
	EntrySocial        EntryType = "SOCIAL"
	EntryGoalSet       EntryType = "GOAL_SET"
	EntryGoalProgress  EntryType = "GOAL_PROGRESS"
	EntryGoalAchieved  EntryType = "GOAL_ACHIEVED"
)

var validEntryTypes = map[EntryType]bool{
	EntryIncident: true, EntrySuccess: true, EntryMilestone: true, EntryNote: true,
	EntryLike: true, EntryDislike: true,
	EntryMedical: true, EntryEducational: true, EntryTherapy: true, EntrySchoolReport: true,
	EntryBehavior: true, EntrySensory: true, EntryCommunication: true, EntrySocial: true,
	EntryGoalSet: true, EntryGoalProgress: true, EntryGoalAchieved: true,
}

func (t EntryType) IsValid() bool {
	return validEntryTypes[t]
}

// TimelineDetails holds the attributes only timeline entries carry.
type TimelineDetails struct {
	EntryType EntryType `json:"entry_type"`
	EntryDate time.Time `json:"entry_date"`
	Tags      []string  `json:"tags,omitempty"`
}

func (d TimelineDetails) Validate() error {
	if !d.EntryType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown timeline entry type")
	}
	if d.EntryDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "timeline entry date is required")
	}
	return nil
}
