package extractor

import (
	"regexp"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"

	"github.com/manasdutta04/matchwise/internal/constants"
	"github.com/manasdutta04/matchwise/internal/logger"
	"github.com/manasdutta04/matchwise/internal/types"
)

var (
	// experienceYearsRe patterns in priority order; each captures the year count.
	experienceYearsRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\+?\s*years?(?:\s+of)?\s+experience`),
		regexp.MustCompile(`(?i)minimum\s+of\s+(\d+)\s*years?`),
		regexp.MustCompile(`(?i)at\s+least\s+(\d+)\s*years?`),
	}

	educationRe = regexp.MustCompile(`(?i)(Bachelor'?s|Master'?s|PhD|degree|diploma)(\s+in\s+[\w\s]+)?`)
)

// JobExtractor derives structured job profiles from free-text postings
// using deterministic rules only. Two identical inputs always yield the
// same profile.
type JobExtractor struct {
	log zerolog.Logger
}

func NewJobExtractor() *JobExtractor {
	return &JobExtractor{log: logger.Logger.With().Str("component", "job_extractor").Logger()}
}

// ExtractJobProfile parses a posting into a JobProfile. title may be empty,
// in which case the first non-empty line of the description is used.
// Empty or whitespace-only descriptions are rejected.
func (e *JobExtractor) ExtractJobProfile(jobID, title, description string) (*types.JobProfile, error) {
	if strings.TrimSpace(description) == "" {
		return nil, &ExtractionError{SourceID: jobID, Reason: "empty job description"}
	}
	if jobID == "" {
		jobID = uuid.Must(uuid.NewV4()).String()
	}
	if strings.TrimSpace(title) == "" {
		title = firstNonEmptyLine(description)
	}

	profile := &types.JobProfile{
		JobID:       jobID,
		Title:       strings.TrimSpace(title),
		Description: description,
	}

	skills := harvestCuedSkills(description)
	for _, item := range bulletItems(description) {
		skill, resp := classifyBullet(item)
		if skill != "" {
			skills = append(skills, skill)
		}
		if resp != "" {
			profile.Responsibilities = append(profile.Responsibilities, resp)
		}
	}
	profile.RequiredSkills = dedupeFold(skills)
	profile.PreferredSkills = dedupeFold(harvestPreferredSkills(description))
	profile.RequiredExperience = extractExperienceRequirement(description)
	profile.RequiredEducation = extractEducationRequirement(description)

	e.log.Debug().
		Str("job_id", profile.JobID).
		Int("required_skills", len(profile.RequiredSkills)).
		Int("responsibilities", len(profile.Responsibilities)).
		Msg("job profile extracted")
	return profile, nil
}

// extractExperienceRequirement tries the year patterns in priority order,
// then falls back to the first sentence mentioning experience, then to the
// explicit not-specified sentinel.
func extractExperienceRequirement(text string) string {
	for _, re := range experienceYearsRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[0])
		}
	}
	if s := firstSentenceContaining(text, "experience"); s != "" {
		return s
	}
	return constants.NotSpecified
}

func extractEducationRequirement(text string) string {
	if m := educationRe.FindStringSubmatch(text); m != nil {
		req := m[1] + m[2]
		return strings.TrimSpace(req)
	}
	return constants.NotSpecified
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
