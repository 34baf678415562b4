package augment

import (
	"context"
	"errors"
	"fmt"

	"github.com/manasdutta04/matchwise/internal/types"
)

// ErrUnavailable reports that the augmenter cannot serve enrichments at
// all (disabled, missing credentials, or no model configured). Callers
// keep the rule-based result on any augmenter error, this one included.
var ErrUnavailable = errors.New("augmenter unavailable")

// AugmentationError wraps a failed enrichment attempt with its stage.
type AugmentationError struct {
	Stage string
	Err   error
}

func (e *AugmentationError) Error() string {
	return fmt.Sprintf("augmentation failed at %s: %v", e.Stage, e.Err)
}

func (e *AugmentationError) Unwrap() error { return e.Err }

// InvitationContext carries the facts an invitation message is built from.
type InvitationContext struct {
	CandidateName string
	JobTitle      string
	Date          string
	Slots         []string
	Formats       []string
	CompanyName   string
	ContactEmail  string
	ContactPhone  string
}

// Augmenter is the optional LLM enrichment layer. Every method returns
// either an enrichment or an error; no method mutates its inputs, and no
// caller may depend on an augmenter being present. The pipeline result
// with a failing augmenter is byte-identical to the pipeline result with
// no augmenter at all.
type Augmenter interface {
	// EnrichJobProfile returns a refined copy of profile. Fields the
	// model leaves empty keep their rule-based values.
	EnrichJobProfile(ctx context.Context, profile *types.JobProfile) (*types.JobProfile, error)

	// EnrichCandidateProfile returns a refined copy of profile.
	EnrichCandidateProfile(ctx context.Context, profile *types.CandidateProfile) (*types.CandidateProfile, error)

	// AssessMatch produces a qualitative read of a scored match. The
	// numeric scores are never changed; only the assessment and its
	// recommendation come from the model.
	AssessMatch(ctx context.Context, job *types.JobProfile, candidate *types.CandidateProfile, result *types.MatchResult) (*types.QualitativeAssessment, error)

	// ComposeInvitation drafts an interview invitation. All facts in
	// InvitationContext must survive verbatim; callers verify and fall
	// back to the template otherwise.
	ComposeInvitation(ctx context.Context, ic InvitationContext) (string, error)
}

// Disabled is the no-op augmenter used when enrichment is turned off.
// Every call reports ErrUnavailable.
type Disabled struct{}

func (Disabled) EnrichJobProfile(ctx context.Context, profile *types.JobProfile) (*types.JobProfile, error) {
	return nil, ErrUnavailable
}

func (Disabled) EnrichCandidateProfile(ctx context.Context, profile *types.CandidateProfile) (*types.CandidateProfile, error) {
	return nil, ErrUnavailable
}

func (Disabled) AssessMatch(ctx context.Context, job *types.JobProfile, candidate *types.CandidateProfile, result *types.MatchResult) (*types.QualitativeAssessment, error) {
	return nil, ErrUnavailable
}

func (Disabled) ComposeInvitation(ctx context.Context, ic InvitationContext) (string, error) {
	return "", ErrUnavailable
}

var _ Augmenter = Disabled{}
