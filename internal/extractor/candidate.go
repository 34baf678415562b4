package extractor

import (
	"regexp"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"

	"github.com/manasdutta04/matchwise/internal/logger"
	"github.com/manasdutta04/matchwise/internal/types"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// Three phone shapes: international, US-style with separators, plain digits.
	phoneRes = []*regexp.Regexp{
		regexp.MustCompile(`\+\d{1,3}[\s\-]?\(?\d{1,4}\)?[\s\-]?\d{3,4}[\s\-]?\d{3,4}`),
		regexp.MustCompile(`\(?\d{3}\)?[\s\-.]\d{3}[\s\-.]\d{4}`),
		regexp.MustCompile(`\b\d{10,11}\b`),
	}

	linkedinRe = regexp.MustCompile(`(?i)linkedin\.com/in/[A-Za-z0-9\-_%]+`)

	yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	// experienceLineRe matches "Title at Company (2018-2020)" style lines,
	// the duration part being optional.
	experienceLineRe = regexp.MustCompile(`(?i)^(.+?)\s+(?:at|@|,)\s+(.+?)(?:\s*[(,]\s*([\d]{4}\s*[-–]\s*(?:[\d]{4}|present|current))\s*\)?)?\s*$`)

	durationRe = regexp.MustCompile(`(?i)[\d]{4}\s*[-–]\s*(?:[\d]{4}|present|current)`)
)

// CandidateExtractor derives structured candidate profiles from raw CV
// text using the same deterministic rules on every call.
type CandidateExtractor struct {
	log zerolog.Logger
}

func NewCandidateExtractor() *CandidateExtractor {
	return &CandidateExtractor{log: logger.Logger.With().Str("component", "candidate_extractor").Logger()}
}

// ExtractCandidateProfile parses CV text into a CandidateProfile. Empty or
// whitespace-only text is rejected. Fields the text does not carry stay
// zero-valued rather than erroring.
func (e *CandidateExtractor) ExtractCandidateProfile(sourceID, text string) (*types.CandidateProfile, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ExtractionError{SourceID: sourceID, Reason: "empty cv text"}
	}
	if sourceID == "" {
		sourceID = uuid.Must(uuid.NewV4()).String()
	}

	profile := &types.CandidateProfile{
		SourceID: sourceID,
		RawText:  text,
		Contact:  extractContact(text),
		Skills:   extractCandidateSkills(text),
	}
	profile.Education = extractEducation(sectionBody(text, "education", "educational background"))
	profile.Experience = extractExperience(sectionBody(text,
		"experience", "work experience", "professional experience", "employment history"))

	e.log.Debug().
		Str("source_id", profile.SourceID).
		Int("skills", len(profile.Skills)).
		Int("education", len(profile.Education)).
		Int("experience", len(profile.Experience)).
		Msg("candidate profile extracted")
	return profile, nil
}

func extractContact(text string) types.ContactInfo {
	c := types.ContactInfo{Name: extractName(text)}
	if m := emailRe.FindString(text); m != "" {
		c.Email = m
	}
	for _, re := range phoneRes {
		if m := re.FindString(text); m != "" {
			c.Phone = strings.TrimSpace(m)
			break
		}
	}
	if m := linkedinRe.FindString(text); m != "" {
		c.LinkedIn = m
	}
	return c
}

// extractName takes the first non-empty line that carries neither digits
// nor an @ sign. CVs lead with the candidate's name; address and contact
// lines carry digits or emails and are skipped.
func extractName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.ContainsAny(trimmed, "0123456789@") {
			continue
		}
		return trimmed
	}
	return ""
}

// extractCandidateSkills merges the skills section (split on commas,
// bullets, and newlines) with cue-phrase harvests from the full text.
// Unlike job requirements no minimum token length applies; short tool
// names like "C" and "Go" are real skills on a CV.
func extractCandidateSkills(text string) []string {
	var skills []string
	if body := sectionBody(text, "skills", "technical skills", "core competencies", "technologies"); body != "" {
		for _, line := range strings.Split(body, "\n") {
			if m := bulletRe.FindStringSubmatch(line); m != nil {
				line = m[1]
			}
			for _, tok := range skillSplitRe.Split(line, -1) {
				if tok = strings.Trim(tok, " \t\"'()•·-"); tok != "" {
					skills = append(skills, tok)
				}
			}
		}
	}
	skills = append(skills, harvestCuedSkills(text)...)
	return dedupeFold(skills)
}

func extractEducation(body string) []types.EducationEntry {
	var entries []types.EducationEntry
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "•·*- \t"))
		if line == "" {
			continue
		}
		entry := types.EducationEntry{}
		if m := educationRe.FindStringSubmatch(line); m != nil {
			entry.Degree = strings.TrimSpace(m[1] + m[2])
		} else {
			entry.Degree = line
		}
		if idx := strings.LastIndex(strings.ToLower(line), " at "); idx >= 0 {
			entry.Institution = strings.TrimSpace(yearRe.ReplaceAllString(line[idx+4:], ""))
			entry.Institution = strings.Trim(entry.Institution, " ,()")
		} else if parts := strings.SplitN(line, ",", 2); len(parts) == 2 {
			entry.Institution = strings.TrimSpace(yearRe.ReplaceAllString(parts[1], ""))
			entry.Institution = strings.Trim(entry.Institution, " ,()")
		}
		if y := yearRe.FindString(line); y != "" {
			entry.Year = y
		}
		entries = append(entries, entry)
	}
	return entries
}

func extractExperience(body string) []types.ExperienceEntry {
	var entries []types.ExperienceEntry
	var current *types.ExperienceEntry
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		// Bulleted lines describe the entry above them.
		if m := bulletRe.FindStringSubmatch(line); m != nil && current != nil {
			if current.Description != "" {
				current.Description += " "
			}
			current.Description += strings.TrimSpace(m[1])
			continue
		}
		entry := types.ExperienceEntry{Title: trimmed}
		if m := experienceLineRe.FindStringSubmatch(trimmed); m != nil {
			entry.Title = strings.TrimSpace(m[1])
			entry.Company = strings.TrimSpace(strings.Trim(durationRe.ReplaceAllString(m[2], ""), " ,()"))
			entry.Duration = strings.TrimSpace(m[3])
		}
		if entry.Duration == "" {
			entry.Duration = durationRe.FindString(trimmed)
		}
		entries = append(entries, entry)
		current = &entries[len(entries)-1]
	}
	return entries
}
