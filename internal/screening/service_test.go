package screening

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manasdutta04/matchwise/internal/augment"
	"github.com/manasdutta04/matchwise/internal/config"
	"github.com/manasdutta04/matchwise/internal/extractor"
	"github.com/manasdutta04/matchwise/internal/match"
	"github.com/manasdutta04/matchwise/internal/scheduler"
	"github.com/manasdutta04/matchwise/internal/storage"
	"github.com/manasdutta04/matchwise/internal/types"
)

type fakeRepo struct {
	jobs       map[string]*types.JobProfile
	candidates map[string]*types.CandidateProfile
	matches    map[string]*types.MatchResult
	interviews map[string]*types.InterviewAssignment

	failUpsertCandidate bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		jobs:       map[string]*types.JobProfile{},
		candidates: map[string]*types.CandidateProfile{},
		matches:    map[string]*types.MatchResult{},
		interviews: map[string]*types.InterviewAssignment{},
	}
}

func (f *fakeRepo) UpsertJob(ctx context.Context, p *types.JobProfile) error {
	f.jobs[p.JobID] = p
	return nil
}

func (f *fakeRepo) GetJob(ctx context.Context, jobID string) (*types.JobProfile, error) {
	j, ok := f.jobs[jobID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return j, nil
}

func (f *fakeRepo) ListJobs(ctx context.Context) ([]*types.JobProfile, error) {
	out := make([]*types.JobProfile, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeRepo) UpsertCandidate(ctx context.Context, p *types.CandidateProfile, md5, path string) error {
	if f.failUpsertCandidate {
		return errors.New("upsert refused")
	}
	f.candidates[p.SourceID] = p
	return nil
}

func (f *fakeRepo) GetCandidate(ctx context.Context, id string) (*types.CandidateProfile, error) {
	c, ok := f.candidates[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) ListCandidates(ctx context.Context) ([]*types.CandidateProfile, error) {
	out := make([]*types.CandidateProfile, 0, len(f.candidates))
	for _, c := range f.candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out, nil
}

func (f *fakeRepo) UpsertMatches(ctx context.Context, results []*types.MatchResult) error {
	for _, r := range results {
		f.matches[r.JobID+"/"+r.CandidateID] = r
	}
	return nil
}

func (f *fakeRepo) ListMatchesByJob(ctx context.Context, jobID string, shortlistedOnly bool) ([]*types.MatchResult, error) {
	var out []*types.MatchResult
	for _, r := range f.matches {
		if r.JobID != jobID {
			continue
		}
		if shortlistedOnly && !r.Shortlisted {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	return out, nil
}

func (f *fakeRepo) UpsertInterview(ctx context.Context, a *types.InterviewAssignment) error {
	f.interviews[a.JobID+"/"+a.CandidateID] = a
	return nil
}

func (f *fakeRepo) ListInterviewsByJob(ctx context.Context, jobID string) ([]*types.InterviewAssignment, error) {
	var out []*types.InterviewAssignment
	for _, a := range f.interviews {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type fakeDeduper struct {
	seen map[string]string
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: map[string]string{}}
}

func (f *fakeDeduper) CheckAndAddRawTextMD5(ctx context.Context, md5Hex, sourceID string) (bool, string, error) {
	if first, ok := f.seen[md5Hex]; ok {
		return true, first, nil
	}
	f.seen[md5Hex] = sourceID
	return false, "", nil
}

func (f *fakeDeduper) RemoveRawTextMD5(ctx context.Context, md5Hex string) error {
	delete(f.seen, md5Hex)
	return nil
}

type fakePublisher struct {
	ingested  []storage.CVIngestedEvent
	needed    []storage.MatchNeededEvent
	completed []storage.MatchCompletedEvent
}

func (f *fakePublisher) PublishCVIngested(ctx context.Context, e storage.CVIngestedEvent) error {
	f.ingested = append(f.ingested, e)
	return nil
}

func (f *fakePublisher) PublishMatchNeeded(ctx context.Context, e storage.MatchNeededEvent) error {
	f.needed = append(f.needed, e)
	return nil
}

func (f *fakePublisher) PublishMatchCompleted(ctx context.Context, e storage.MatchCompletedEvent) error {
	f.completed = append(f.completed, e)
	return nil
}

// failingAugmenter errors on every call, as an unreachable LLM would.
type failingAugmenter struct{}

func (failingAugmenter) EnrichJobProfile(ctx context.Context, p *types.JobProfile) (*types.JobProfile, error) {
	return nil, fmt.Errorf("enrich job: %w", augment.ErrUnavailable)
}

func (failingAugmenter) EnrichCandidateProfile(ctx context.Context, p *types.CandidateProfile) (*types.CandidateProfile, error) {
	return nil, fmt.Errorf("enrich candidate: %w", augment.ErrUnavailable)
}

func (failingAugmenter) AssessMatch(ctx context.Context, job *types.JobProfile, candidate *types.CandidateProfile, result *types.MatchResult) (*types.QualitativeAssessment, error) {
	return nil, fmt.Errorf("assess: %w", augment.ErrUnavailable)
}

func (failingAugmenter) ComposeInvitation(ctx context.Context, ic augment.InvitationContext) (string, error) {
	return "", fmt.Errorf("compose: %w", augment.ErrUnavailable)
}

// vetoAugmenter marks every assessed candidate Not Recommended.
type vetoAugmenter struct {
	augment.Disabled
}

func (vetoAugmenter) AssessMatch(ctx context.Context, job *types.JobProfile, candidate *types.CandidateProfile, result *types.MatchResult) (*types.QualitativeAssessment, error) {
	return &types.QualitativeAssessment{
		Explanation:    "Too junior for this role.",
		Recommendation: types.RecommendNotRecommended,
	}, nil
}

func newTestService(t *testing.T, repo Repository, options ...Option) *Service {
	t.Helper()
	cfg := config.Default()
	sched, err := scheduler.NewScheduler(cfg.Scheduler)
	require.NoError(t, err)
	svc, err := NewService(repo, match.NewScorer(cfg.Matching), sched, options...)
	require.NoError(t, err)
	return svc
}

const postingText = `Senior Backend Engineer

We are hiring a Senior Backend Engineer.
Required skills: Golang, Kubernetes, PostgreSQL.
5+ years experience building distributed systems.
Bachelor's in Computer Science or equivalent.
`

const cvText = `Alex Rivera
alex.rivera@example.com
(555) 123-4567

Skills
- Golang
- Kubernetes
- PostgreSQL

Education
Bachelor's in Computer Science at State University, 2016

Experience
Backend Engineer at Initech (2016-present)
- Built distributed systems in Golang.
`

func TestIngestJobPersistsProfile(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	profile, err := svc.IngestJob(context.Background(), "job-1", "Senior Backend Engineer", postingText)
	require.NoError(t, err)
	assert.Equal(t, "job-1", profile.JobID)
	assert.Contains(t, profile.RequiredSkills, "Golang")
	assert.Equal(t, profile, repo.jobs["job-1"])
}

func TestIngestJobEmptyDescription(t *testing.T) {
	svc := newTestService(t, newFakeRepo())

	_, err := svc.IngestJob(context.Background(), "job-1", "Title", "   ")
	var extractErr *extractor.ExtractionError
	require.ErrorAs(t, err, &extractErr)
}

func TestIngestCVDeduplicates(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := newTestService(t, repo, WithDeduper(newFakeDeduper()), WithPublisher(pub))

	first, err := svc.IngestCV(context.Background(), "cv-1.txt", cvText)
	require.NoError(t, err)
	assert.Equal(t, "Alex Rivera", first.Contact.Name)
	require.Len(t, pub.ingested, 1)

	_, err = svc.IngestCV(context.Background(), "cv-1-copy.txt", cvText)
	var dup *DuplicateCVError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "cv-1.txt", dup.FirstSource)

	// The duplicate must not be stored or announced.
	assert.Len(t, repo.candidates, 1)
	assert.Len(t, pub.ingested, 1)
}

func TestIngestCVRollbackAllowsRetry(t *testing.T) {
	repo := newFakeRepo()
	repo.failUpsertCandidate = true
	dedupe := newFakeDeduper()
	svc := newTestService(t, repo, WithDeduper(dedupe))

	_, err := svc.IngestCV(context.Background(), "cv-1.txt", cvText)
	require.Error(t, err)
	assert.Empty(t, dedupe.seen, "failed ingest must release the dedupe record")

	repo.failUpsertCandidate = false
	_, err = svc.IngestCV(context.Background(), "cv-1.txt", cvText)
	require.NoError(t, err)
}

func TestRunMatchRanksAndPersists(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := newTestService(t, repo, WithPublisher(pub))
	ctx := context.Background()

	_, err := svc.IngestJob(ctx, "job-1", "Senior Backend Engineer", postingText)
	require.NoError(t, err)
	_, err = svc.IngestCV(ctx, "cv-strong.txt", cvText)
	require.NoError(t, err)
	_, err = svc.IngestCV(ctx, "cv-weak.txt", "Pat Doe\npat@example.com\n\nSkills\n- Photoshop\n")
	require.NoError(t, err)

	results, err := svc.RunMatch(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cv-strong.txt", results[0].CandidateID)
	assert.True(t, results[0].TotalScore > results[1].TotalScore)
	assert.True(t, results[0].Shortlisted)
	assert.False(t, results[1].Shortlisted)

	stored, err := svc.ListMatches(ctx, "job-1", true)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "cv-strong.txt", stored[0].CandidateID)

	require.Len(t, pub.completed, 1)
	assert.Equal(t, 2, pub.completed[0].Candidates)
	assert.Equal(t, 1, pub.completed[0].Shortlisted)
}

func TestRequestMatchPublishesEvent(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := newTestService(t, repo, WithPublisher(pub))
	ctx := context.Background()

	_, err := svc.IngestJob(ctx, "job-1", "Senior Backend Engineer", postingText)
	require.NoError(t, err)

	require.NoError(t, svc.RequestMatch(ctx, "job-1"))
	require.Len(t, pub.needed, 1)
	assert.Equal(t, "job-1", pub.needed[0].JobID)

	err = svc.RequestMatch(ctx, "nope")
	require.ErrorIs(t, err, storage.ErrNotFound)

	noPub := newTestService(t, repo)
	require.ErrorIs(t, noPub.RequestMatch(ctx, "job-1"), ErrNoPublisher)
}

func TestHandleMatchNeeded(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.IngestJob(ctx, "job-1", "Senior Backend Engineer", postingText)
	require.NoError(t, err)
	_, err = svc.IngestCV(ctx, "cv-strong.txt", cvText)
	require.NoError(t, err)

	require.NoError(t, svc.HandleMatchNeeded(ctx, []byte(`{"job_id":"job-1"}`)))
	results, err := svc.ListMatches(ctx, "job-1", false)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// Unknown jobs are dropped, not requeued.
	require.NoError(t, svc.HandleMatchNeeded(ctx, []byte(`{"job_id":"ghost"}`)))

	require.Error(t, svc.HandleMatchNeeded(ctx, []byte(`not json`)))
	require.Error(t, svc.HandleMatchNeeded(ctx, []byte(`{}`)))
}

func TestRunMatchUnknownJob(t *testing.T) {
	svc := newTestService(t, newFakeRepo())

	_, err := svc.RunMatch(context.Background(), "nope")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecommendationOverridesShortlist(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, WithAugmenter(vetoAugmenter{}))
	ctx := context.Background()

	_, err := svc.IngestJob(ctx, "job-1", "Senior Backend Engineer", postingText)
	require.NoError(t, err)
	_, err = svc.IngestCV(ctx, "cv-strong.txt", cvText)
	require.NoError(t, err)

	results, err := svc.RunMatch(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Shortlisted, "Not Recommended must override the threshold")
	require.NotNil(t, results[0].Qualitative)
	assert.Equal(t, types.RecommendNotRecommended, results[0].Qualitative.Recommendation)
}

// A failing augmenter must yield byte-identical results to no augmenter.
func TestFailingAugmenterMatchesDisabledOutput(t *testing.T) {
	ctx := context.Background()

	run := func(options ...Option) ([]*types.MatchResult, []*types.InterviewAssignment) {
		repo := newFakeRepo()
		svc := newTestService(t, repo, options...)
		_, err := svc.IngestJob(ctx, "job-1", "Senior Backend Engineer", postingText)
		require.NoError(t, err)
		_, err = svc.IngestCV(ctx, "cv-strong.txt", cvText)
		require.NoError(t, err)
		results, err := svc.RunMatch(ctx, "job-1")
		require.NoError(t, err)
		assignments, err := svc.ScheduleInterviews(ctx, "job-1")
		require.NoError(t, err)
		return results, assignments
	}

	baseResults, baseAssignments := run()
	failResults, failAssignments := run(WithAugmenter(failingAugmenter{}))

	assert.Equal(t, baseResults, failResults)
	assert.Equal(t, baseAssignments, failAssignments)

	// An augmenter whose model answers prose instead of JSON must degrade
	// the same way.
	llmAug := augment.NewLLMAugmenterWithModel(proseModel{}, config.AugmenterConfig{
		Enabled:        true,
		MaxAttempts:    1,
		TimeoutSeconds: 1,
	})
	proseResults, proseAssignments := run(WithAugmenter(llmAug))
	assert.Equal(t, baseResults, proseResults)
	assert.Equal(t, baseAssignments, proseAssignments)
}

// proseModel answers every prompt with text that contains no JSON object
// and none of the invitation facts.
type proseModel struct{}

func (proseModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	return &schema.Message{Role: schema.Assistant, Content: "I am sorry, I cannot help with that."}, nil
}

func (proseModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (proseModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return proseModel{}, nil
}

func TestScheduleInterviewsPersistsAssignments(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.IngestJob(ctx, "job-1", "Senior Backend Engineer", postingText)
	require.NoError(t, err)
	_, err = svc.IngestCV(ctx, "cv-strong.txt", cvText)
	require.NoError(t, err)
	_, err = svc.IngestCV(ctx, "cv-weak.txt", "Pat Doe\npat@example.com\n\nSkills\n- Photoshop\n")
	require.NoError(t, err)
	_, err = svc.RunMatch(ctx, "job-1")
	require.NoError(t, err)

	assignments, err := svc.ScheduleInterviews(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	byStatus := map[types.InterviewStatus]int{}
	for _, a := range assignments {
		byStatus[a.Status]++
	}
	assert.Equal(t, 1, byStatus[types.InterviewScheduled])
	assert.Equal(t, 1, byStatus[types.InterviewRejected])

	stored, err := svc.ListInterviews(ctx, "job-1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	for _, a := range stored {
		if a.Status == types.InterviewScheduled {
			assert.NotEmpty(t, a.Date)
			assert.NotEmpty(t, a.Invitation)
			assert.Contains(t, a.Invitation, "Alex Rivera")
		} else {
			assert.Empty(t, a.Date)
			assert.Empty(t, a.Invitation)
		}
	}
}

func TestBuildMatchReport(t *testing.T) {
	job := &types.JobProfile{JobID: "job-1", Title: "Senior Backend Engineer"}
	candidate := &types.CandidateProfile{
		SourceID: "cv-1.txt",
		Contact:  types.ContactInfo{Name: "Alex Rivera"},
	}
	result := &types.MatchResult{
		JobID:           "job-1",
		CandidateID:     "cv-1.txt",
		SkillsScore:     1.0,
		ExperienceScore: 0.8,
		EducationScore:  0.5,
		TotalScore:      0.84,
		MatchedSkills:   []string{"Golang", "Kubernetes"},
		MissingSkills:   []string{"PostgreSQL"},
		Shortlisted:     true,
		Qualitative: &types.QualitativeAssessment{
			Strengths:      []string{"deep Go experience"},
			Gaps:           []string{"no PostgreSQL"},
			Explanation:    "Strong technical fit.",
			Recommendation: types.RecommendYes,
		},
	}

	report := BuildMatchReport(job, candidate, result)
	assert.Contains(t, report, "Match Report: Alex Rivera for Senior Backend Engineer")
	assert.Contains(t, report, "Overall Match Score: 84.0%")
	assert.Contains(t, report, "Shortlisted: Yes")
	assert.Contains(t, report, "Recommendation: Recommend")
	assert.Contains(t, report, "- Skills Match: 100.0%")
	assert.Contains(t, report, "Match Analysis: Strong technical fit.")
	assert.Contains(t, report, "Improvement Areas:\n- no PostgreSQL")
	assert.Contains(t, report, "Missing Skills:\n- PostgreSQL")
}

func TestBuildJobSummary(t *testing.T) {
	job := &types.JobProfile{Title: "Senior Backend Engineer"}
	results := []*types.MatchResult{
		{CandidateID: "cv-a.txt", TotalScore: 0.9, Shortlisted: true},
		{CandidateID: "cv-b.txt", TotalScore: 0.4},
	}

	summary := BuildJobSummary(job, results)
	assert.Contains(t, summary, "Candidates evaluated: 2, shortlisted: 1")
	assert.Contains(t, summary, "1. cv-a.txt - 90.0% [shortlisted]")
	assert.Contains(t, summary, "2. cv-b.txt - 40.0%")
}
