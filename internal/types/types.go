package types

// JobProfile is the structured form of a job posting.
type JobProfile struct {
	JobID       string `json:"job_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// RequiredSkills is an ordered set: case is preserved, duplicates are
	// removed under case-insensitive comparison.
	RequiredSkills  []string `json:"required_skills"`
	PreferredSkills []string `json:"preferred_skills,omitempty"`

	// Free-text descriptors, "Not specified" when discovery found nothing.
	RequiredExperience string `json:"required_experience"`
	RequiredEducation  string `json:"required_education"`

	Responsibilities []string `json:"responsibilities,omitempty"`

	Embedding []float64 `json:"embedding,omitempty"`
}

// ContactInfo holds whatever contact details extraction could find.
// Unknown fields stay empty.
type ContactInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// EducationEntry is one education record on a CV.
type EducationEntry struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

// ExperienceEntry is one work-experience record on a CV.
type ExperienceEntry struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// CandidateProfile is the structured form of a CV. Profiles are immutable
// once built; re-extraction replaces the whole record keyed by SourceID.
type CandidateProfile struct {
	// SourceID identifies the raw input (filename or opaque id).
	SourceID string `json:"source_id"`

	Contact    ContactInfo       `json:"contact_info"`
	Skills     []string          `json:"skills"`
	Education  []EducationEntry  `json:"education"`
	Experience []ExperienceEntry `json:"experience"`

	// RawText is the full CV text the profile was extracted from. Kept for
	// enrichment prompts and the raw-text archive; omitted from API output.
	RawText string `json:"-"`

	Embedding []float64 `json:"embedding,omitempty"`
}

// Recommendation is the qualitative verdict an augmenter may attach to a
// match. The string forms are the ones the LLM is prompted to emit.
type Recommendation string

const (
	RecommendationNone      Recommendation = ""
	RecommendHighly         Recommendation = "Highly Recommend"
	RecommendYes            Recommendation = "Recommend"
	RecommendConsider       Recommendation = "Consider"
	RecommendNotRecommended Recommendation = "Not Recommended"
)

// ParseRecommendation maps a raw LLM string onto a known verdict.
// Unknown strings collapse to RecommendationNone so a malformed verdict
// never influences shortlisting.
func ParseRecommendation(s string) Recommendation {
	switch Recommendation(s) {
	case RecommendHighly, RecommendYes, RecommendConsider, RecommendNotRecommended:
		return Recommendation(s)
	default:
		return RecommendationNone
	}
}

// QualitativeAssessment carries augmenter-derived explainability fields.
type QualitativeAssessment struct {
	Strengths      []string       `json:"strengths,omitempty"`
	Gaps           []string       `json:"gaps,omitempty"`
	Explanation    string         `json:"match_explanation,omitempty"`
	Recommendation Recommendation `json:"recommendation,omitempty"`
}

// MatchResult is the outcome of scoring one (job, candidate) pair.
// TotalScore is always the weighted sum of the three component scores;
// Shortlisted may diverge from the threshold rule only through a
// recommendation override.
type MatchResult struct {
	JobID       string `json:"job_id"`
	CandidateID string `json:"candidate_id"`

	SkillsScore     float64 `json:"skills_score"`
	ExperienceScore float64 `json:"experience_score"`
	EducationScore  float64 `json:"education_score"`
	TotalScore      float64 `json:"total_score"`

	MatchedSkills []string `json:"matched_skills,omitempty"`
	MissingSkills []string `json:"missing_skills,omitempty"`

	Shortlisted bool `json:"is_shortlisted"`

	Qualitative *QualitativeAssessment `json:"qualitative,omitempty"`
}

// InterviewStatus is the lifecycle state of an interview assignment.
type InterviewStatus string

const (
	InterviewPending   InterviewStatus = "Pending"
	InterviewScheduled InterviewStatus = "Scheduled"
	InterviewRejected  InterviewStatus = "Rejected"
)

// InterviewAssignment is the scheduler output for one shortlisted match.
// A non-shortlisted match yields Status == InterviewRejected with no date,
// slots, or invitation.
type InterviewAssignment struct {
	JobID       string `json:"job_id"`
	CandidateID string `json:"candidate_id"`

	Status InterviewStatus `json:"status"`

	// Date is "YYYY-MM-DD" of a business day; empty for rejected assignments.
	Date    string   `json:"scheduled_date,omitempty"`
	Slots   []string `json:"available_slots,omitempty"`
	Formats []string `json:"available_formats,omitempty"`

	Invitation string `json:"invitation,omitempty"`
}
