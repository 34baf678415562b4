package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/manasdutta04/matchwise/internal/types"
)

// Job is the persisted form of a job profile. Skill and responsibility
// lists live in JSON columns so the schema survives extractor changes.
type Job struct {
	JobID               string         `gorm:"type:varchar(191);primaryKey"`
	Title               string         `gorm:"type:varchar(255);not null"`
	DescriptionText     string         `gorm:"type:text;not null"`
	RequiredSkillsJSON  datatypes.JSON `gorm:"type:json"`
	PreferredSkillsJSON datatypes.JSON `gorm:"type:json"`
	RequiredExperience  string         `gorm:"type:varchar(512)"`
	RequiredEducation   string         `gorm:"type:varchar(512)"`
	ResponsibilityJSON  datatypes.JSON `gorm:"type:json"`
	CreatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Job) TableName() string {
	return "jobs"
}

// Candidate is the persisted form of a candidate profile, keyed by the
// ingest source id (filename or opaque id).
type Candidate struct {
	CandidateID    string         `gorm:"type:varchar(191);primaryKey"`
	Name           string         `gorm:"type:varchar(255)"`
	Email          string         `gorm:"type:varchar(255);index:idx_candidates_email"`
	Phone          string         `gorm:"type:varchar(50)"`
	LinkedIn       string         `gorm:"type:varchar(255)"`
	SkillsJSON     datatypes.JSON `gorm:"type:json"`
	EducationJSON  datatypes.JSON `gorm:"type:json"`
	ExperienceJSON datatypes.JSON `gorm:"type:json"`

	// RawTextMD5 is the dedupe fingerprint; RawTextPathOSS points into the
	// object-store archive.
	RawTextMD5     string `gorm:"type:char(32);index:idx_candidates_raw_text_md5"`
	RawTextPathOSS string `gorm:"type:varchar(1024)"`

	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// Match holds one scored (job, candidate) pair. The composite unique
// index makes re-matching an upsert instead of a duplicate row.
type Match struct {
	MatchID     uint64 `gorm:"primaryKey;autoIncrement"`
	JobID       string `gorm:"type:varchar(191);not null;uniqueIndex:idx_matches_job_candidate,priority:1;index:idx_matches_job_score,priority:1"`
	CandidateID string `gorm:"type:varchar(191);not null;uniqueIndex:idx_matches_job_candidate,priority:2"`

	SkillsScore     float64 `gorm:"type:double"`
	ExperienceScore float64 `gorm:"type:double"`
	EducationScore  float64 `gorm:"type:double"`
	TotalScore      float64 `gorm:"type:double;index:idx_matches_job_score,priority:2"`

	MatchedSkillsJSON datatypes.JSON `gorm:"type:json"`
	MissingSkillsJSON datatypes.JSON `gorm:"type:json"`
	Shortlisted       bool           `gorm:"not null;default:false;index:idx_matches_shortlisted"`
	AssessmentJSON    datatypes.JSON `gorm:"type:json"`

	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Match) TableName() string {
	return "matches"
}

// Interview holds one interview assignment per (job, candidate) pair.
type Interview struct {
	InterviewID uint64 `gorm:"primaryKey;autoIncrement"`
	JobID       string `gorm:"type:varchar(191);not null;uniqueIndex:idx_interviews_job_candidate,priority:1"`
	CandidateID string `gorm:"type:varchar(191);not null;uniqueIndex:idx_interviews_job_candidate,priority:2"`

	Status        string         `gorm:"type:varchar(20);not null;default:'Pending';index:idx_interviews_status"`
	ScheduledDate string         `gorm:"type:varchar(10)"`
	SlotsJSON     datatypes.JSON `gorm:"type:json"`
	FormatsJSON   datatypes.JSON `gorm:"type:json"`
	Invitation    string         `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Interview) TableName() string {
	return "interviews"
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func fromJSON[T any](data datatypes.JSON) T {
	var out T
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return out
}

// JobFromProfile converts a domain profile into its row form.
func JobFromProfile(p *types.JobProfile) *Job {
	return &Job{
		JobID:               p.JobID,
		Title:               p.Title,
		DescriptionText:     p.Description,
		RequiredSkillsJSON:  toJSON(p.RequiredSkills),
		PreferredSkillsJSON: toJSON(p.PreferredSkills),
		RequiredExperience:  p.RequiredExperience,
		RequiredEducation:   p.RequiredEducation,
		ResponsibilityJSON:  toJSON(p.Responsibilities),
	}
}

// ToProfile converts a row back into the domain profile.
func (j *Job) ToProfile() *types.JobProfile {
	return &types.JobProfile{
		JobID:              j.JobID,
		Title:              j.Title,
		Description:        j.DescriptionText,
		RequiredSkills:     fromJSON[[]string](j.RequiredSkillsJSON),
		PreferredSkills:    fromJSON[[]string](j.PreferredSkillsJSON),
		RequiredExperience: j.RequiredExperience,
		RequiredEducation:  j.RequiredEducation,
		Responsibilities:   fromJSON[[]string](j.ResponsibilityJSON),
	}
}

// CandidateFromProfile converts a domain profile into its row form.
func CandidateFromProfile(p *types.CandidateProfile) *Candidate {
	return &Candidate{
		CandidateID:    p.SourceID,
		Name:           p.Contact.Name,
		Email:          p.Contact.Email,
		Phone:          p.Contact.Phone,
		LinkedIn:       p.Contact.LinkedIn,
		SkillsJSON:     toJSON(p.Skills),
		EducationJSON:  toJSON(p.Education),
		ExperienceJSON: toJSON(p.Experience),
	}
}

func (c *Candidate) ToProfile() *types.CandidateProfile {
	return &types.CandidateProfile{
		SourceID: c.CandidateID,
		Contact: types.ContactInfo{
			Name:     c.Name,
			Email:    c.Email,
			Phone:    c.Phone,
			LinkedIn: c.LinkedIn,
		},
		Skills:     fromJSON[[]string](c.SkillsJSON),
		Education:  fromJSON[[]types.EducationEntry](c.EducationJSON),
		Experience: fromJSON[[]types.ExperienceEntry](c.ExperienceJSON),
	}
}

// MatchFromResult converts a scored pair into its row form.
func MatchFromResult(r *types.MatchResult) *Match {
	m := &Match{
		JobID:             r.JobID,
		CandidateID:       r.CandidateID,
		SkillsScore:       r.SkillsScore,
		ExperienceScore:   r.ExperienceScore,
		EducationScore:    r.EducationScore,
		TotalScore:        r.TotalScore,
		MatchedSkillsJSON: toJSON(r.MatchedSkills),
		MissingSkillsJSON: toJSON(r.MissingSkills),
		Shortlisted:       r.Shortlisted,
	}
	if r.Qualitative != nil {
		m.AssessmentJSON = toJSON(r.Qualitative)
	}
	return m
}

func (m *Match) ToResult() *types.MatchResult {
	r := &types.MatchResult{
		JobID:           m.JobID,
		CandidateID:     m.CandidateID,
		SkillsScore:     m.SkillsScore,
		ExperienceScore: m.ExperienceScore,
		EducationScore:  m.EducationScore,
		TotalScore:      m.TotalScore,
		MatchedSkills:   fromJSON[[]string](m.MatchedSkillsJSON),
		MissingSkills:   fromJSON[[]string](m.MissingSkillsJSON),
		Shortlisted:     m.Shortlisted,
	}
	if len(m.AssessmentJSON) > 0 {
		qa := fromJSON[types.QualitativeAssessment](m.AssessmentJSON)
		r.Qualitative = &qa
	}
	return r
}

// InterviewFromAssignment converts a scheduler assignment into its row form.
func InterviewFromAssignment(a *types.InterviewAssignment) *Interview {
	return &Interview{
		JobID:         a.JobID,
		CandidateID:   a.CandidateID,
		Status:        string(a.Status),
		ScheduledDate: a.Date,
		SlotsJSON:     toJSON(a.Slots),
		FormatsJSON:   toJSON(a.Formats),
		Invitation:    a.Invitation,
	}
}

func (i *Interview) ToAssignment() *types.InterviewAssignment {
	return &types.InterviewAssignment{
		JobID:       i.JobID,
		CandidateID: i.CandidateID,
		Status:      types.InterviewStatus(i.Status),
		Date:        i.ScheduledDate,
		Slots:       fromJSON[[]string](i.SlotsJSON),
		Formats:     fromJSON[[]string](i.FormatsJSON),
		Invitation:  i.Invitation,
	}
}
