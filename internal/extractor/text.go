package extractor

import (
	"regexp"
	"strings"

	"github.com/manasdutta04/matchwise/internal/constants"
)

// Shared text-harvesting primitives for both extractors. All matching is
// case-insensitive; stored text keeps the original casing.

var (
	// skillCueRe finds a cue phrase and harvests the span after it up to a
	// sentence terminator (., ;, or end of line).
	skillCueRe = regexp.MustCompile(`(?im)(?:skills required|required skills|skills|proficiency in|experience with|knowledge of)(?:\s*:\s*|\s+)(.*?)(?:\.|;|$)`)

	// preferredCueRe does the same for nice-to-have skills.
	preferredCueRe = regexp.MustCompile(`(?im)(?:preferred skills|preferred qualifications|nice to have)(?:\s*:\s*|\s+)(.*?)(?:\.|;|$)`)

	// skillSplitRe splits a harvested span into individual tokens.
	skillSplitRe = regexp.MustCompile(`,|\sand\s|\sor\s`)

	// bulletRe matches a bulleted or numbered list item at line start.
	bulletRe = regexp.MustCompile(`^\s*(?:[•·▪*\-–]|\d+[.)])\s*(.+)$`)

	// bulletSkillStripRe removes the cue phrase from a bullet classified as
	// a skill ("Proficiency in Python" stores "Python").
	bulletSkillStripRe = regexp.MustCompile(`(?i)\b(?:ability to|experience with|knowledge of|proficiency in|proficiency|familiar with)\b`)

	sentenceSplitRe = regexp.MustCompile(`[.!?\n]`)
)

// bulletSkillCues mark a list item as a skill statement.
var bulletSkillCues = []string{
	"ability to", "experience with", "knowledge of", "proficiency", "familiar with",
}

// actionVerbs mark a list item as a responsibility.
var actionVerbs = []string{
	"develop", "design", "implement", "manage", "create", "build", "analyze", "oversee", "lead",
}

// splitSkillTokens breaks a harvested span on commas and the words
// "and"/"or", trims, and drops tokens below the minimum length.
func splitSkillTokens(span string) []string {
	var tokens []string
	for _, tok := range skillSplitRe.Split(span, -1) {
		tok = strings.Trim(tok, " \t\"'()")
		if len(tok) >= constants.MinSkillTokenLength {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// dedupeFold removes duplicates under case-insensitive comparison,
// keeping first occurrence and input order.
func dedupeFold(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, it := range items {
		key := strings.ToLower(strings.TrimSpace(it))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(it))
	}
	return out
}

// harvestCuedSkills collects skill tokens following every cue-phrase
// occurrence in text.
func harvestCuedSkills(text string) []string {
	var skills []string
	for _, m := range skillCueRe.FindAllStringSubmatch(text, -1) {
		skills = append(skills, splitSkillTokens(m[1])...)
	}
	return skills
}

// harvestPreferredSkills collects tokens following preferred/nice-to-have
// cues.
func harvestPreferredSkills(text string) []string {
	var skills []string
	for _, m := range preferredCueRe.FindAllStringSubmatch(text, -1) {
		skills = append(skills, splitSkillTokens(m[1])...)
	}
	return skills
}

// bulletItems returns the text of every bulleted/numbered list line.
func bulletItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			item := strings.TrimSpace(m[1])
			if item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}

// classifyBullet sorts one list item into a skill or a responsibility.
// Skill cues win over action verbs; an item with neither defaults to a
// skill, mirroring how postings mix tool lists into requirement bullets.
func classifyBullet(item string) (skill string, responsibility string) {
	lower := strings.ToLower(item)
	for _, cue := range bulletSkillCues {
		if strings.Contains(lower, cue) {
			stripped := strings.TrimSpace(bulletSkillStripRe.ReplaceAllString(item, ""))
			stripped = strings.TrimLeft(stripped, " :,-")
			return stripped, ""
		}
	}
	for _, verb := range actionVerbs {
		if strings.Contains(lower, verb) {
			return "", item
		}
	}
	return item, ""
}

// firstSentenceContaining returns the first full sentence of text that
// contains word (case-insensitive), or "".
func firstSentenceContaining(text, word string) string {
	for _, s := range sentenceSplitRe.Split(text, -1) {
		if strings.Contains(strings.ToLower(s), strings.ToLower(word)) {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// sectionBody returns the text between a heading line matching one of the
// given names and the next heading-looking line. CVs are heading-delimited
// documents; this is how both the skills and education walks find their
// input.
func sectionBody(text string, names ...string) string {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if isHeading(line, names) {
			start = i + 1
			break
		}
	}
	if start == -1 {
		return ""
	}
	end := len(lines)
	for i := start; i < len(lines); i++ {
		if looksLikeHeading(lines[i]) {
			end = i
			break
		}
	}
	return strings.Join(lines[start:end], "\n")
}

// isHeading reports whether line is a heading for one of the given names,
// allowing a trailing colon and surrounding whitespace.
func isHeading(line string, names []string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ":")))
	for _, n := range names {
		if trimmed == strings.ToLower(n) {
			return true
		}
	}
	return false
}

// knownHeadings are the section titles that terminate a section walk.
var knownHeadings = []string{
	"skills", "technical skills", "core competencies", "technologies",
	"education", "educational background",
	"experience", "work experience", "professional experience", "employment history",
	"projects", "certifications", "awards", "summary", "objective", "profile",
	"languages", "interests", "references", "contact", "publications",
}

// looksLikeHeading reports whether a line terminates the current section.
func looksLikeHeading(line string) bool {
	return isHeading(line, knownHeadings)
}
