package screening

import (
	"fmt"
	"strings"

	"github.com/manasdutta04/matchwise/internal/types"
)

func pct(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}

// BuildMatchReport renders one scored match as human-readable text for
// recruiters.
func BuildMatchReport(job *types.JobProfile, candidate *types.CandidateProfile, result *types.MatchResult) string {
	candidateName := result.CandidateID
	if candidate != nil && candidate.Contact.Name != "" {
		candidateName = candidate.Contact.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Match Report: %s for %s\n\n", candidateName, job.Title)

	fmt.Fprintf(&b, "Overall Match Score: %s\n", pct(result.TotalScore))
	if result.Shortlisted {
		b.WriteString("Shortlisted: Yes\n")
	} else {
		b.WriteString("Shortlisted: No\n")
	}
	if result.Qualitative != nil && result.Qualitative.Recommendation != types.RecommendationNone {
		fmt.Fprintf(&b, "Recommendation: %s\n", result.Qualitative.Recommendation)
	}
	b.WriteString("\n")

	b.WriteString("Component Scores:\n")
	fmt.Fprintf(&b, "- Skills Match: %s\n", pct(result.SkillsScore))
	fmt.Fprintf(&b, "- Experience Match: %s\n", pct(result.ExperienceScore))
	fmt.Fprintf(&b, "- Education Match: %s\n\n", pct(result.EducationScore))

	if qa := result.Qualitative; qa != nil {
		if qa.Explanation != "" {
			fmt.Fprintf(&b, "Match Analysis: %s\n\n", qa.Explanation)
		}
		writeList(&b, "Strengths:", qa.Strengths)
		writeList(&b, "Improvement Areas:", qa.Gaps)
	}

	writeList(&b, "Matched Skills:", result.MatchedSkills)
	writeList(&b, "Missing Skills:", result.MissingSkills)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// BuildJobProfileSummary renders an extracted job profile as readable
// text. Responsibilities are capped at five to keep it one screen.
func BuildJobProfileSummary(job *types.JobProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job Summary: %s\n\n", job.Title)

	responsibilities := job.Responsibilities
	if len(responsibilities) > 5 {
		responsibilities = responsibilities[:5]
	}
	writeList(&b, "Key Responsibilities:", responsibilities)
	writeList(&b, "Required Skills:", job.RequiredSkills)
	writeList(&b, "Preferred Skills:", job.PreferredSkills)

	if job.RequiredExperience != "" {
		fmt.Fprintf(&b, "Required Experience: %s\n\n", job.RequiredExperience)
	}
	if job.RequiredEducation != "" {
		fmt.Fprintf(&b, "Required Education: %s\n\n", job.RequiredEducation)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// BuildJobSummary renders a one-screen overview of a ranked match run.
func BuildJobSummary(job *types.JobProfile, results []*types.MatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Screening Summary: %s\n", job.Title)

	shortlisted := 0
	for _, r := range results {
		if r.Shortlisted {
			shortlisted++
		}
	}
	fmt.Fprintf(&b, "Candidates evaluated: %d, shortlisted: %d\n\n", len(results), shortlisted)

	for i, r := range results {
		marker := ""
		if r.Shortlisted {
			marker = " [shortlisted]"
		}
		fmt.Fprintf(&b, "%d. %s - %s%s\n", i+1, r.CandidateID, pct(r.TotalScore), marker)
	}
	return b.String()
}

func writeList(b *strings.Builder, header string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(header + "\n")
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
