package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCV = `Jane Smith
jane.smith@example.com
+1 (555) 123-4567
linkedin.com/in/janesmith

Summary:
Backend engineer with a focus on data platforms.

Skills:
Python, Go, SQL
- Docker
- Kubernetes

Education:
Bachelor's in Computer Science, State University, 2016

Experience:
Software Engineer at Tech Inc (2018-2021)
- Built ingestion pipelines
- Maintained the billing service
Senior Engineer at Data Corp (2021-present)
`

func TestExtractCandidateProfile(t *testing.T) {
	e := NewCandidateExtractor()
	profile, err := e.ExtractCandidateProfile("cv-1", sampleCV)
	require.NoError(t, err)

	assert.Equal(t, "cv-1", profile.SourceID)
	assert.Equal(t, "Jane Smith", profile.Contact.Name)
	assert.Equal(t, "jane.smith@example.com", profile.Contact.Email)
	assert.NotEmpty(t, profile.Contact.Phone)
	assert.Equal(t, "linkedin.com/in/janesmith", profile.Contact.LinkedIn)

	assert.Contains(t, profile.Skills, "Python")
	assert.Contains(t, profile.Skills, "Go", "short skill names survive on a CV")
	assert.Contains(t, profile.Skills, "SQL")
	assert.Contains(t, profile.Skills, "Docker")
	assert.Contains(t, profile.Skills, "Kubernetes")

	require.Len(t, profile.Education, 1)
	assert.Equal(t, "Bachelor's in Computer Science", profile.Education[0].Degree)
	assert.Equal(t, "2016", profile.Education[0].Year)

	require.Len(t, profile.Experience, 2)
	assert.Equal(t, "Software Engineer", profile.Experience[0].Title)
	assert.Equal(t, "Tech Inc", profile.Experience[0].Company)
	assert.Equal(t, "2018-2021", profile.Experience[0].Duration)
	assert.Contains(t, profile.Experience[0].Description, "Built ingestion pipelines")
	assert.Equal(t, "Senior Engineer", profile.Experience[1].Title)
	assert.Equal(t, "2021-present", profile.Experience[1].Duration)
}

func TestExtractCandidateProfileEmptyText(t *testing.T) {
	e := NewCandidateExtractor()
	_, err := e.ExtractCandidateProfile("cv-1", " \n ")
	require.Error(t, err)
	var extErr *ExtractionError
	assert.ErrorAs(t, err, &extErr)
	assert.Contains(t, err.Error(), "cv-1")
}

func TestExtractCandidateProfileMissingSections(t *testing.T) {
	e := NewCandidateExtractor()
	profile, err := e.ExtractCandidateProfile("cv-2", "John Doe\njohn@example.com")
	require.NoError(t, err)

	assert.Equal(t, "John Doe", profile.Contact.Name)
	assert.Equal(t, "john@example.com", profile.Contact.Email)
	assert.Empty(t, profile.Skills)
	assert.Empty(t, profile.Education)
	assert.Empty(t, profile.Experience)
}

func TestExtractCandidateProfileGeneratesSourceID(t *testing.T) {
	e := NewCandidateExtractor()
	profile, err := e.ExtractCandidateProfile("", "John Doe\nSkills:\nPython")
	require.NoError(t, err)
	assert.NotEmpty(t, profile.SourceID)
}

func TestExtractCandidateSkillsDedupe(t *testing.T) {
	e := NewCandidateExtractor()
	cv := "Jane Doe\nSkills:\nPython, python, PYTHON, Java"
	profile, err := e.ExtractCandidateProfile("cv-3", cv)
	require.NoError(t, err)
	assert.Equal(t, []string{"Python", "Java"}, profile.Skills)
}

func TestExtractNameSkipsContactLines(t *testing.T) {
	text := "\n  jane@example.com\n555-123-4567\nJane Smith\n"
	assert.Equal(t, "Jane Smith", extractName(text))
}
