package match

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/manasdutta04/matchwise/internal/config"
	"github.com/manasdutta04/matchwise/internal/constants"
	"github.com/manasdutta04/matchwise/internal/logger"
	"github.com/manasdutta04/matchwise/internal/types"
)

var (
	requiredYearsRe = regexp.MustCompile(`(\d+)\s*\+?\s*years?`)
	yearSpanRe      = regexp.MustCompile(`(?i)(\d{4})\s*[-–]\s*(\d{4}|present|current)`)
	plainYearsRe    = regexp.MustCompile(`(?i)(\d+)\s*\+?\s*years?`)
)

// Scorer computes match scores for (job, candidate) pairs. Scoring is a
// pure function of its inputs: the same pair always yields the same
// result, component scores stay in [0, 1], and the total is exactly the
// weighted sum of the components.
type Scorer struct {
	cfg config.MatchingConfig
	log zerolog.Logger
}

func NewScorer(cfg config.MatchingConfig) *Scorer {
	return &Scorer{
		cfg: cfg,
		log: logger.Logger.With().Str("component", "match_scorer").Logger(),
	}
}

// Score evaluates one candidate against one job. A job with no required
// skills scores the neutral 0.5 on the skills component; the same neutral
// applies to experience and education components the job does not specify.
func (s *Scorer) Score(job *types.JobProfile, candidate *types.CandidateProfile) *types.MatchResult {
	result := &types.MatchResult{
		JobID:       job.JobID,
		CandidateID: candidate.SourceID,
	}

	result.SkillsScore, result.MatchedSkills, result.MissingSkills = scoreSkills(job.RequiredSkills, candidate.Skills)
	result.ExperienceScore = scoreExperience(job.RequiredExperience, candidate.Experience)
	result.EducationScore = scoreEducation(job.RequiredEducation, candidate.Education)

	total := s.cfg.SkillsWeight*result.SkillsScore +
		s.cfg.ExperienceWeight*result.ExperienceScore +
		s.cfg.EducationWeight*result.EducationScore
	result.TotalScore = clamp01(total)
	result.Shortlisted = result.TotalScore >= s.cfg.ShortlistThreshold

	s.log.Debug().
		Str("job_id", job.JobID).
		Str("candidate_id", candidate.SourceID).
		Float64("total", result.TotalScore).
		Bool("shortlisted", result.Shortlisted).
		Msg("pair scored")
	return result
}

// ApplyRecommendation folds an augmenter verdict into the shortlist flag.
// Recommend and Highly Recommend force shortlisting, Not Recommended
// removes it, Consider and an absent verdict leave the threshold decision
// untouched. Scores never change.
func ApplyRecommendation(result *types.MatchResult, rec types.Recommendation) {
	switch rec {
	case types.RecommendHighly, types.RecommendYes:
		result.Shortlisted = true
	case types.RecommendNotRecommended:
		result.Shortlisted = false
	}
}

// scoreSkills counts required skills the candidate covers. A required
// skill is covered when it and a candidate skill contain each other in
// either direction, case-insensitively, so "AWS" covers "AWS Lambda" and
// "Amazon AWS" alike.
func scoreSkills(required, held []string) (score float64, matched, missing []string) {
	if len(required) == 0 {
		return constants.NeutralScore, nil, nil
	}
	for _, req := range required {
		if anySkillMatches(req, held) {
			matched = append(matched, req)
		} else {
			missing = append(missing, req)
		}
	}
	return float64(len(matched)) / float64(len(required)), matched, missing
}

func anySkillMatches(required string, held []string) bool {
	req := strings.ToLower(strings.TrimSpace(required))
	if req == "" {
		return false
	}
	for _, h := range held {
		hl := strings.ToLower(strings.TrimSpace(h))
		if hl == "" {
			continue
		}
		if strings.Contains(hl, req) || strings.Contains(req, hl) {
			return true
		}
	}
	return false
}

// scoreExperience compares required years against the sum of the
// candidate's stated durations, saturating at 1. Requirements without a
// parseable year count score the neutral 0.5.
func scoreExperience(required string, entries []types.ExperienceEntry) float64 {
	reqYears := parseRequiredYears(required)
	if reqYears <= 0 {
		return constants.NeutralScore
	}
	held := 0
	for _, e := range entries {
		held += durationYears(e.Duration)
	}
	if held >= reqYears {
		return 1.0
	}
	return float64(held) / float64(reqYears)
}

func parseRequiredYears(required string) int {
	if required == "" || required == constants.NotSpecified {
		return 0
	}
	m := requiredYearsRe.FindStringSubmatch(required)
	if m == nil {
		return 0
	}
	years, _ := strconv.Atoi(m[1])
	return years
}

// durationYears reads "2018-2021", "2020-present", or "3 years" style
// durations. Open-ended spans close at the current year.
func durationYears(duration string) int {
	if m := yearSpanRe.FindStringSubmatch(duration); m != nil {
		start, _ := strconv.Atoi(m[1])
		end := time.Now().Year()
		if y, err := strconv.Atoi(m[2]); err == nil {
			end = y
		}
		if end > start {
			return end - start
		}
		return 0
	}
	if m := plainYearsRe.FindStringSubmatch(duration); m != nil {
		years, _ := strconv.Atoi(m[1])
		return years
	}
	return 0
}

// degreeRank orders degrees for comparison. Unknown wording ranks 0.
func degreeRank(text string) int {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "phd") || strings.Contains(lower, "doctor"):
		return 4
	case strings.Contains(lower, "master"):
		return 3
	case strings.Contains(lower, "bachelor") || strings.Contains(lower, "degree"):
		return 2
	case strings.Contains(lower, "diploma") || strings.Contains(lower, "associate"):
		return 1
	default:
		return 0
	}
}

// scoreEducation compares the highest degree held against the required
// one. Meeting or exceeding the requirement scores 1, a lower degree
// scores proportionally, and an unstated requirement scores the neutral
// 0.5.
func scoreEducation(required string, entries []types.EducationEntry) float64 {
	reqRank := 0
	if required != "" && required != constants.NotSpecified {
		reqRank = degreeRank(required)
	}
	if reqRank == 0 {
		return constants.NeutralScore
	}
	best := 0
	for _, e := range entries {
		if r := degreeRank(e.Degree); r > best {
			best = r
		}
	}
	if best >= reqRank {
		return 1.0
	}
	return float64(best) / float64(reqRank)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
