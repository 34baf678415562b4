package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePosting = `Senior Backend Engineer

We are looking for a backend engineer to join our platform team.
Skills required: Python, Go, PostgreSQL and Docker.
Minimum of 5 years of experience building distributed systems.
Bachelor's degree in Computer Science or a related field is required.

Responsibilities:
- Design scalable service APIs
- Develop data pipelines for analytics
- Proficiency in Kubernetes
- Lead a small team of engineers

Preferred skills: Terraform, Kafka.
`

func TestExtractJobProfile(t *testing.T) {
	e := NewJobExtractor()
	profile, err := e.ExtractJobProfile("job-1", "Senior Backend Engineer", samplePosting)
	require.NoError(t, err)

	assert.Equal(t, "job-1", profile.JobID)
	assert.Equal(t, "Senior Backend Engineer", profile.Title)

	assert.Contains(t, profile.RequiredSkills, "Python")
	assert.Contains(t, profile.RequiredSkills, "PostgreSQL")
	assert.Contains(t, profile.RequiredSkills, "Docker")
	assert.Contains(t, profile.RequiredSkills, "Kubernetes")

	assert.Contains(t, profile.PreferredSkills, "Terraform")
	assert.Contains(t, profile.PreferredSkills, "Kafka")

	assert.Contains(t, profile.Responsibilities, "Design scalable service APIs")
	assert.Contains(t, profile.Responsibilities, "Develop data pipelines for analytics")
	assert.NotContains(t, profile.Responsibilities, "Proficiency in Kubernetes")
}

func TestExtractJobProfileExperiencePriority(t *testing.T) {
	e := NewJobExtractor()
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "years pattern wins",
			text: "Role requires 3+ years experience. Minimum of 10 years preferred.",
			want: "3+ years experience",
		},
		{
			name: "minimum of phrasing",
			text: "Candidates need a minimum of 7 years in the field.",
			want: "minimum of 7 years",
		},
		{
			name: "at least phrasing",
			text: "We require at least 2 years on the job.",
			want: "at least 2 years",
		},
		{
			name: "sentence fallback",
			text: "Some experience with cloud platforms is a plus.",
			want: "Some experience with cloud platforms is a plus",
		},
		{
			name: "not specified",
			text: "Great working environment and free coffee.",
			want: "Not specified",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := e.ExtractJobProfile("j", "Role", tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, profile.RequiredExperience)
		})
	}
}

func TestExtractJobProfileEducation(t *testing.T) {
	e := NewJobExtractor()

	profile, err := e.ExtractJobProfile("j", "Role", "Requires a Master's in Data Science.")
	require.NoError(t, err)
	assert.Equal(t, "Master's in Data Science", profile.RequiredEducation)

	profile, err = e.ExtractJobProfile("j", "Role", "No formal requirements here.")
	require.NoError(t, err)
	assert.Equal(t, "Not specified", profile.RequiredEducation)
}

func TestExtractJobProfileSkillDedupe(t *testing.T) {
	e := NewJobExtractor()
	text := "Skills required: Python, python, Go.\nExperience with Python and SQL."
	profile, err := e.ExtractJobProfile("j", "Role", text)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, s := range profile.RequiredSkills {
		seen[strings.ToLower(s)]++
	}
	assert.Equal(t, 1, seen["python"], "duplicates must fold case-insensitively")
	for _, s := range profile.RequiredSkills {
		assert.GreaterOrEqual(t, len(s), 3, "short noise tokens are dropped: %q", s)
	}
}

func TestExtractJobProfileEmptyDescription(t *testing.T) {
	e := NewJobExtractor()
	_, err := e.ExtractJobProfile("j", "Role", "   \n\t ")
	require.Error(t, err)
	var extErr *ExtractionError
	assert.ErrorAs(t, err, &extErr)
}

func TestExtractJobProfileDefaults(t *testing.T) {
	e := NewJobExtractor()
	profile, err := e.ExtractJobProfile("", "", "Platform Engineer\nSkills required: Go.")
	require.NoError(t, err)
	assert.NotEmpty(t, profile.JobID, "a job id is generated when absent")
	assert.Equal(t, "Platform Engineer", profile.Title, "title falls back to the first line")
}

func TestExtractJobProfileDeterministic(t *testing.T) {
	e := NewJobExtractor()
	a, err := e.ExtractJobProfile("j", "Role", samplePosting)
	require.NoError(t, err)
	b, err := e.ExtractJobProfile("j", "Role", samplePosting)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
