package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/manasdutta04/matchwise/internal/augment"
	"github.com/manasdutta04/matchwise/internal/extractor"
	"github.com/manasdutta04/matchwise/internal/logger"
	"github.com/manasdutta04/matchwise/internal/match"
	"github.com/manasdutta04/matchwise/internal/scheduler"
	"github.com/manasdutta04/matchwise/internal/storage"
	"github.com/manasdutta04/matchwise/internal/types"
)

// DuplicateCVError reports that an ingested CV text was already seen,
// byte for byte, under another source.
type DuplicateCVError struct {
	SourceID    string
	FirstSource string
	MD5         string
}

func (e *DuplicateCVError) Error() string {
	if e.FirstSource != "" {
		return fmt.Sprintf("cv %s duplicates %s (md5 %s)", e.SourceID, e.FirstSource, e.MD5)
	}
	return fmt.Sprintf("cv %s duplicates a previously ingested text (md5 %s)", e.SourceID, e.MD5)
}

// Repository is the persistence surface the pipeline needs. *storage.MySQL
// satisfies it.
type Repository interface {
	UpsertJob(ctx context.Context, profile *types.JobProfile) error
	GetJob(ctx context.Context, jobID string) (*types.JobProfile, error)
	ListJobs(ctx context.Context) ([]*types.JobProfile, error)
	UpsertCandidate(ctx context.Context, profile *types.CandidateProfile, rawTextMD5, rawTextPath string) error
	GetCandidate(ctx context.Context, candidateID string) (*types.CandidateProfile, error)
	ListCandidates(ctx context.Context) ([]*types.CandidateProfile, error)
	UpsertMatches(ctx context.Context, results []*types.MatchResult) error
	ListMatchesByJob(ctx context.Context, jobID string, shortlistedOnly bool) ([]*types.MatchResult, error)
	UpsertInterview(ctx context.Context, a *types.InterviewAssignment) error
	ListInterviewsByJob(ctx context.Context, jobID string) ([]*types.InterviewAssignment, error)
}

// Deduper fingerprints ingested raw text. *storage.Redis satisfies it.
type Deduper interface {
	CheckAndAddRawTextMD5(ctx context.Context, md5Hex, sourceID string) (exists bool, firstSource string, err error)
	RemoveRawTextMD5(ctx context.Context, md5Hex string) error
}

// Archiver keeps a copy of the raw CV text. *storage.MinIO satisfies it.
type Archiver interface {
	UploadRawText(ctx context.Context, sourceID, text string) (string, error)
	DeleteRawText(ctx context.Context, sourceID string) error
}

// Publisher emits pipeline events. *storage.RabbitMQ satisfies it.
type Publisher interface {
	PublishCVIngested(ctx context.Context, event storage.CVIngestedEvent) error
	PublishMatchNeeded(ctx context.Context, event storage.MatchNeededEvent) error
	PublishMatchCompleted(ctx context.Context, event storage.MatchCompletedEvent) error
}

// ErrNoPublisher reports that asynchronous matching was requested with no
// message queue configured.
var ErrNoPublisher = errors.New("no event publisher configured")

// Service drives the screening pipeline end to end: ingest, match,
// shortlist, schedule. Augmentation is best effort throughout; any
// augmenter failure falls back to the deterministic result and never
// fails the operation.
type Service struct {
	repo      Repository
	scorer    *match.Scorer
	scheduler *scheduler.Scheduler

	jobs       *extractor.JobExtractor
	candidates *extractor.CandidateExtractor

	aug     augment.Augmenter
	dedupe  Deduper
	archive Archiver
	events  Publisher

	log zerolog.Logger
}

type Option func(*Service)

func WithAugmenter(aug augment.Augmenter) Option {
	return func(s *Service) {
		if aug != nil {
			s.aug = aug
		}
	}
}

func WithDeduper(d Deduper) Option {
	return func(s *Service) { s.dedupe = d }
}

func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archive = a }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

func NewService(repo Repository, scorer *match.Scorer, sched *scheduler.Scheduler, options ...Option) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository must not be nil")
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer must not be nil")
	}
	if sched == nil {
		return nil, fmt.Errorf("scheduler must not be nil")
	}

	s := &Service{
		repo:       repo,
		scorer:     scorer,
		scheduler:  sched,
		jobs:       extractor.NewJobExtractor(),
		candidates: extractor.NewCandidateExtractor(),
		aug:        augment.Disabled{},
		log:        logger.Logger.With().Str("component", "screening").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// IngestJob extracts a job profile from posting text, optionally refines
// it, and persists it. Re-posting the same jobID replaces the profile.
func (s *Service) IngestJob(ctx context.Context, jobID, title, description string) (*types.JobProfile, error) {
	profile, err := s.jobs.ExtractJobProfile(jobID, title, description)
	if err != nil {
		return nil, err
	}

	if enriched, err := s.aug.EnrichJobProfile(ctx, profile); err == nil {
		profile = enriched
	} else {
		s.warnAugment(err, "job enrichment skipped")
	}

	if err := s.repo.UpsertJob(ctx, profile); err != nil {
		return nil, fmt.Errorf("persisting job %s: %w", profile.JobID, err)
	}
	s.log.Info().Str("job_id", profile.JobID).Int("required_skills", len(profile.RequiredSkills)).Msg("job ingested")
	return profile, nil
}

// IngestCV runs the candidate side of the pipeline: dedupe on the raw
// text, archive it, extract a profile, refine, persist. A duplicate text
// returns *DuplicateCVError without touching storage.
func (s *Service) IngestCV(ctx context.Context, sourceID, text string) (*types.CandidateProfile, error) {
	md5Hex := storage.RawTextMD5(text)

	if s.dedupe != nil {
		exists, firstSource, err := s.dedupe.CheckAndAddRawTextMD5(ctx, md5Hex, sourceID)
		if err != nil {
			s.log.Warn().Err(err).Str("source_id", sourceID).Msg("dedupe check failed, ingesting without it")
		} else if exists {
			return nil, &DuplicateCVError{SourceID: sourceID, FirstSource: firstSource, MD5: md5Hex}
		}
	}

	var objectPath string
	if s.archive != nil {
		path, err := s.archive.UploadRawText(ctx, sourceID, text)
		if err != nil {
			s.log.Warn().Err(err).Str("source_id", sourceID).Msg("raw text archive failed")
		} else {
			objectPath = path
		}
	}

	profile, err := s.candidates.ExtractCandidateProfile(sourceID, text)
	if err != nil {
		s.rollbackIngest(ctx, sourceID, md5Hex, objectPath)
		return nil, err
	}

	if enriched, err := s.aug.EnrichCandidateProfile(ctx, profile); err == nil {
		profile = enriched
	} else {
		s.warnAugment(err, "candidate enrichment skipped")
	}

	if err := s.repo.UpsertCandidate(ctx, profile, md5Hex, objectPath); err != nil {
		s.rollbackIngest(ctx, sourceID, md5Hex, objectPath)
		return nil, fmt.Errorf("persisting candidate %s: %w", sourceID, err)
	}

	if s.events != nil {
		event := storage.CVIngestedEvent{
			SourceID:   sourceID,
			RawTextMD5: md5Hex,
			ObjectPath: objectPath,
			IngestedAt: time.Now(),
		}
		if err := s.events.PublishCVIngested(ctx, event); err != nil {
			s.log.Warn().Err(err).Str("source_id", sourceID).Msg("cv ingested event not published")
		}
	}

	s.log.Info().Str("source_id", sourceID).Int("skills", len(profile.Skills)).Msg("cv ingested")
	return profile, nil
}

// rollbackIngest undoes the side effects of a failed ingest so the same
// text can be retried.
func (s *Service) rollbackIngest(ctx context.Context, sourceID, md5Hex, objectPath string) {
	if s.dedupe != nil {
		if err := s.dedupe.RemoveRawTextMD5(ctx, md5Hex); err != nil {
			s.log.Warn().Err(err).Str("source_id", sourceID).Msg("dedupe rollback failed")
		}
	}
	if s.archive != nil && objectPath != "" {
		if err := s.archive.DeleteRawText(ctx, sourceID); err != nil {
			s.log.Warn().Err(err).Str("source_id", sourceID).Msg("archive rollback failed")
		}
	}
}

// RunMatch scores every stored candidate against the job, attaches
// qualitative assessments where the augmenter can provide them, and
// persists the ranked results.
func (s *Service) RunMatch(ctx context.Context, jobID string) ([]*types.MatchResult, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.repo.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}

	results, err := s.scorer.BatchMatch(ctx, job, candidates)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*types.CandidateProfile, len(candidates))
	for _, c := range candidates {
		byID[c.SourceID] = c
	}
	for _, result := range results {
		candidate := byID[result.CandidateID]
		if candidate == nil {
			continue
		}
		qa, err := s.aug.AssessMatch(ctx, job, candidate, result)
		if err != nil {
			s.warnAugment(err, "match assessment skipped")
			continue
		}
		result.Qualitative = qa
		match.ApplyRecommendation(result, qa.Recommendation)
	}

	if err := s.repo.UpsertMatches(ctx, results); err != nil {
		return nil, fmt.Errorf("persisting matches for job %s: %w", jobID, err)
	}

	shortlisted := len(match.FilterShortlisted(results))
	if s.events != nil {
		event := storage.MatchCompletedEvent{
			JobID:       jobID,
			Candidates:  len(results),
			Shortlisted: shortlisted,
			CompletedAt: time.Now(),
		}
		if err := s.events.PublishMatchCompleted(ctx, event); err != nil {
			s.log.Warn().Err(err).Str("job_id", jobID).Msg("match completed event not published")
		}
	}

	s.log.Info().Str("job_id", jobID).Int("candidates", len(results)).Int("shortlisted", shortlisted).Msg("match run complete")
	return results, nil
}

// RequestMatch enqueues an asynchronous match run for the job. The
// match-needed consumer performs the run.
func (s *Service) RequestMatch(ctx context.Context, jobID string) error {
	if s.events == nil {
		return ErrNoPublisher
	}
	if _, err := s.repo.GetJob(ctx, jobID); err != nil {
		return err
	}
	event := storage.MatchNeededEvent{JobID: jobID, RequestedAt: time.Now()}
	if err := s.events.PublishMatchNeeded(ctx, event); err != nil {
		return fmt.Errorf("requesting match for job %s: %w", jobID, err)
	}
	s.log.Info().Str("job_id", jobID).Msg("match run requested")
	return nil
}

// HandleMatchNeeded is the consumer handler for match-needed events.
func (s *Service) HandleMatchNeeded(ctx context.Context, body []byte) error {
	var event storage.MatchNeededEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decoding match needed event: %w", err)
	}
	if event.JobID == "" {
		return errors.New("match needed event without job id")
	}
	_, err := s.RunMatch(ctx, event.JobID)
	if errors.Is(err, storage.ErrNotFound) {
		// Requeueing would loop forever; drop the event.
		s.log.Warn().Str("job_id", event.JobID).Msg("match requested for unknown job, dropping event")
		return nil
	}
	return err
}

// ListMatches returns the stored ranked results for a job, best first.
func (s *Service) ListMatches(ctx context.Context, jobID string, shortlistedOnly bool) ([]*types.MatchResult, error) {
	if _, err := s.repo.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.repo.ListMatchesByJob(ctx, jobID, shortlistedOnly)
}

// ScheduleInterviews assigns consecutive business-day interview dates to
// the job's shortlisted candidates and persists the assignments.
// Non-shortlisted matches are recorded as rejected.
func (s *Service) ScheduleInterviews(ctx context.Context, jobID string) ([]*types.InterviewAssignment, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	results, err := s.repo.ListMatchesByJob(ctx, jobID, false)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*types.CandidateProfile, len(results))
	for _, result := range results {
		candidate, err := s.repo.GetCandidate(ctx, result.CandidateID)
		if err != nil {
			s.log.Warn().Err(err).Str("candidate_id", result.CandidateID).Msg("candidate missing, skipping")
			continue
		}
		byID[result.CandidateID] = candidate
	}

	assignments := s.scheduler.BatchSchedule(ctx, results, byID, job)

	// Non-shortlisted matches are recorded as rejected so the interview
	// table reflects every evaluated candidate.
	for _, result := range results {
		if result.Shortlisted {
			continue
		}
		assignments = append(assignments, s.scheduler.Schedule(ctx, result, nil, job, time.Time{}))
	}
	for _, a := range assignments {
		if err := s.repo.UpsertInterview(ctx, a); err != nil {
			return nil, fmt.Errorf("persisting interview for %s: %w", a.CandidateID, err)
		}
	}

	s.log.Info().Str("job_id", jobID).Int("assignments", len(assignments)).Msg("interviews scheduled")
	return assignments, nil
}

// ListInterviews returns the stored assignments for a job, earliest first.
func (s *Service) ListInterviews(ctx context.Context, jobID string) ([]*types.InterviewAssignment, error) {
	if _, err := s.repo.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.repo.ListInterviewsByJob(ctx, jobID)
}

// GetJob returns one stored job profile.
func (s *Service) GetJob(ctx context.Context, jobID string) (*types.JobProfile, error) {
	return s.repo.GetJob(ctx, jobID)
}

// ListJobs returns all stored job profiles, newest first.
func (s *Service) ListJobs(ctx context.Context) ([]*types.JobProfile, error) {
	return s.repo.ListJobs(ctx)
}

// GetCandidate returns one stored candidate profile.
func (s *Service) GetCandidate(ctx context.Context, candidateID string) (*types.CandidateProfile, error) {
	return s.repo.GetCandidate(ctx, candidateID)
}

// ListCandidates returns all stored candidate profiles.
func (s *Service) ListCandidates(ctx context.Context) ([]*types.CandidateProfile, error) {
	return s.repo.ListCandidates(ctx)
}

func (s *Service) warnAugment(err error, msg string) {
	s.log.Warn().Err(err).Msg(msg)
}
