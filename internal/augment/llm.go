package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/manasdutta04/matchwise/internal/config"
	"github.com/manasdutta04/matchwise/internal/logger"
	"github.com/manasdutta04/matchwise/internal/types"
)

const systemPrompt = "You are a senior technical recruiter. You analyze job postings, CVs, and match results. When asked for JSON you output a single valid JSON object with double-quoted field names and string values, and nothing outside the JSON. Inner double quotes inside string values must be escaped with a backslash."

const jobEnrichPromptTemplate = `Review this job posting together with the fields a rule-based parser extracted from it. Correct and complete the fields. Output a JSON object with exactly these keys:
- "required_skills": array of strings
- "preferred_skills": array of strings
- "required_experience": string
- "required_education": string
- "responsibilities": array of strings
Leave a key as an empty string or empty array if the posting does not state it.

Job posting:
"""
%s
"""

Parser output:
%s`

const candidateEnrichPromptTemplate = `Review this CV together with the fields a rule-based parser extracted from it. Correct and complete the fields. Output a JSON object with exactly these keys:
- "skills": array of strings
- "education": array of objects with "degree", "institution", "year"
- "experience": array of objects with "title", "company", "duration", "description"
Leave what the CV does not state empty.

CV text:
"""
%s
"""

Parser output:
%s`

const assessPromptTemplate = `Assess how well this candidate fits this job. The numeric scores below are fixed; do not re-score. Output a JSON object with exactly these keys:
- "strengths": array of strings, the candidate's concrete advantages for this job
- "gaps": array of strings, concrete shortfalls against the requirements
- "explanation": string, at most 120 words
- "recommendation": one of "Highly Recommend", "Recommend", "Consider", "Not Recommended"

Job requirements:
%s

Candidate profile:
%s

Computed scores:
%s`

const invitationPromptTemplate = `Write a short, professional interview invitation email body. It must contain, verbatim: the candidate name %q, the job title %q, the date %q, every slot of %s, and every format of %s. Sign off as %s (%s). Output plain text only, no JSON, no subject line.`

// LLMAugmenter implements Augmenter on top of an eino chat model. Each
// call runs up to MaxAttempts generations with a fixed backoff between
// attempts and a per-attempt timeout.
type LLMAugmenter struct {
	chatModel model.ToolCallingChatModel
	cfg       config.AugmenterConfig
	log       zerolog.Logger
}

// NewLLMAugmenter wires an augmenter from config. Returns ErrUnavailable
// when augmentation is disabled or no credentials are configured, so the
// caller can fall back to Disabled without a special case.
func NewLLMAugmenter(cfg config.AugmenterConfig) (*LLMAugmenter, error) {
	if !cfg.Enabled {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("augmenter enabled without api key: %w", ErrUnavailable)
	}
	chatModel, err := NewOpenAICompatChatModel(cfg.APIKey, cfg.Model, cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("augmenter chat model: %w", err)
	}
	return NewLLMAugmenterWithModel(chatModel, cfg), nil
}

// NewLLMAugmenterWithModel injects an already-built chat model.
func NewLLMAugmenterWithModel(chatModel model.ToolCallingChatModel, cfg config.AugmenterConfig) *LLMAugmenter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &LLMAugmenter{
		chatModel: chatModel,
		cfg:       cfg,
		log:       logger.Logger.With().Str("component", "llm_augmenter").Logger(),
	}
}

type jobEnrichment struct {
	RequiredSkills     []string `json:"required_skills"`
	PreferredSkills    []string `json:"preferred_skills"`
	RequiredExperience string   `json:"required_experience"`
	RequiredEducation  string   `json:"required_education"`
	Responsibilities   []string `json:"responsibilities"`
}

func (a *LLMAugmenter) EnrichJobProfile(ctx context.Context, profile *types.JobProfile) (*types.JobProfile, error) {
	parserView, _ := json.Marshal(jobEnrichment{
		RequiredSkills:     profile.RequiredSkills,
		PreferredSkills:    profile.PreferredSkills,
		RequiredExperience: profile.RequiredExperience,
		RequiredEducation:  profile.RequiredEducation,
		Responsibilities:   profile.Responsibilities,
	})
	prompt := fmt.Sprintf(jobEnrichPromptTemplate, profile.Description, parserView)

	var enrichment jobEnrichment
	if err := a.generateJSON(ctx, prompt, &enrichment); err != nil {
		return nil, &AugmentationError{Stage: "job enrichment", Err: err}
	}

	out := *profile
	if len(enrichment.RequiredSkills) > 0 {
		out.RequiredSkills = enrichment.RequiredSkills
	}
	if len(enrichment.PreferredSkills) > 0 {
		out.PreferredSkills = enrichment.PreferredSkills
	}
	if strings.TrimSpace(enrichment.RequiredExperience) != "" {
		out.RequiredExperience = enrichment.RequiredExperience
	}
	if strings.TrimSpace(enrichment.RequiredEducation) != "" {
		out.RequiredEducation = enrichment.RequiredEducation
	}
	if len(enrichment.Responsibilities) > 0 {
		out.Responsibilities = enrichment.Responsibilities
	}
	return &out, nil
}

type candidateEnrichment struct {
	Skills     []string                `json:"skills"`
	Education  []types.EducationEntry  `json:"education"`
	Experience []types.ExperienceEntry `json:"experience"`
}

func (a *LLMAugmenter) EnrichCandidateProfile(ctx context.Context, profile *types.CandidateProfile) (*types.CandidateProfile, error) {
	parserView, _ := json.Marshal(candidateEnrichment{
		Skills:     profile.Skills,
		Education:  profile.Education,
		Experience: profile.Experience,
	})
	prompt := fmt.Sprintf(candidateEnrichPromptTemplate, profile.RawText, parserView)

	var enrichment candidateEnrichment
	if err := a.generateJSON(ctx, prompt, &enrichment); err != nil {
		return nil, &AugmentationError{Stage: "candidate enrichment", Err: err}
	}

	out := *profile
	if len(enrichment.Skills) > 0 {
		out.Skills = enrichment.Skills
	}
	if len(enrichment.Education) > 0 {
		out.Education = enrichment.Education
	}
	if len(enrichment.Experience) > 0 {
		out.Experience = enrichment.Experience
	}
	return &out, nil
}

type matchAssessment struct {
	Strengths      []string `json:"strengths"`
	Gaps           []string `json:"gaps"`
	Explanation    string   `json:"explanation"`
	Recommendation string   `json:"recommendation"`
}

func (a *LLMAugmenter) AssessMatch(ctx context.Context, job *types.JobProfile, candidate *types.CandidateProfile, result *types.MatchResult) (*types.QualitativeAssessment, error) {
	jobView, _ := json.Marshal(job)
	candView, _ := json.Marshal(candidate)
	scoreView, _ := json.Marshal(map[string]float64{
		"skills":     result.SkillsScore,
		"experience": result.ExperienceScore,
		"education":  result.EducationScore,
		"total":      result.TotalScore,
	})
	prompt := fmt.Sprintf(assessPromptTemplate, jobView, candView, scoreView)

	var assessment matchAssessment
	if err := a.generateJSON(ctx, prompt, &assessment); err != nil {
		return nil, &AugmentationError{Stage: "match assessment", Err: err}
	}
	if strings.TrimSpace(assessment.Explanation) == "" {
		return nil, &AugmentationError{Stage: "match assessment", Err: fmt.Errorf("empty explanation")}
	}
	return &types.QualitativeAssessment{
		Strengths:      assessment.Strengths,
		Gaps:           assessment.Gaps,
		Explanation:    assessment.Explanation,
		Recommendation: types.ParseRecommendation(assessment.Recommendation),
	}, nil
}

func (a *LLMAugmenter) ComposeInvitation(ctx context.Context, ic InvitationContext) (string, error) {
	prompt := fmt.Sprintf(invitationPromptTemplate,
		ic.CandidateName, ic.JobTitle, ic.Date,
		strings.Join(ic.Slots, ", "), strings.Join(ic.Formats, ", "),
		ic.CompanyName, ic.ContactEmail)

	text, err := a.generate(ctx, prompt)
	if err != nil {
		return "", &AugmentationError{Stage: "invitation", Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &AugmentationError{Stage: "invitation", Err: fmt.Errorf("empty invitation")}
	}
	// Every scheduling fact must survive the rewrite.
	required := []string{ic.CandidateName, ic.JobTitle, ic.Date}
	required = append(required, ic.Slots...)
	required = append(required, ic.Formats...)
	for _, fact := range required {
		if fact != "" && !strings.Contains(text, fact) {
			return "", &AugmentationError{Stage: "invitation", Err: fmt.Errorf("generated invitation lost %q", fact)}
		}
	}
	return text, nil
}

// generateJSON runs one prompted generation and unmarshals the first JSON
// object of the response into out, repairing unescaped quotes on a second
// unmarshal attempt.
func (a *LLMAugmenter) generateJSON(ctx context.Context, prompt string, out any) error {
	content, err := a.generate(ctx, prompt)
	if err != nil {
		return err
	}
	content = strings.TrimPrefix(content, "\uFEFF")

	jsonStr := extractJSON(content)
	if jsonStr == "" {
		return fmt.Errorf("no JSON object in model response")
	}
	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		fixed := sanitizeJSON(jsonStr)
		if fixErr := json.Unmarshal([]byte(fixed), out); fixErr != nil {
			return fmt.Errorf("unmarshal model response after sanitization: %w", err)
		}
	}
	return nil
}

// generate calls the chat model with retry. Attempts are bounded by
// MaxAttempts with a fixed backoff in between; each attempt carries its
// own timeout. Context cancellation stops the retry loop immediately.
func (a *LLMAugmenter) generate(ctx context.Context, userPrompt string) (string, error) {
	if a.chatModel == nil {
		return "", ErrUnavailable
	}
	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	}

	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(a.cfg.Backoff()):
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if timeout := a.cfg.Timeout(); timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		resp, err := a.chatModel.Generate(attemptCtx, messages)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			lastErr = err
			a.log.Warn().Err(err).Int("attempt", attempt).Msg("generation attempt failed")
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if resp == nil || resp.Content == "" {
			lastErr = fmt.Errorf("model returned empty response")
			continue
		}
		return resp.Content, nil
	}
	return "", fmt.Errorf("all %d attempts failed: %w", a.cfg.MaxAttempts, lastErr)
}

var _ Augmenter = (*LLMAugmenter)(nil)
