package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/manasdutta04/matchwise/internal/augment"
	"github.com/manasdutta04/matchwise/internal/config"
	"github.com/manasdutta04/matchwise/internal/logger"
	"github.com/manasdutta04/matchwise/internal/types"
)

// displayDateLayout is the long form used inside invitations; dateLayout
// is the storage form.
const (
	displayDateLayout = "Monday, January 02, 2006"
	dateLayout        = "2006-01-02"
)

// SchedulingError reports a scheduler misconfiguration. A non-shortlisted
// candidate is not an error; it yields a rejected assignment.
type SchedulingError struct {
	Reason string
}

func (e *SchedulingError) Error() string {
	return "scheduling failed: " + e.Reason
}

// Scheduler turns shortlisted match results into interview assignments on
// business days, with a rendered invitation per assignment.
type Scheduler struct {
	cfg config.SchedulerConfig
	aug augment.Augmenter
	now func() time.Time
	log zerolog.Logger
}

type Option func(*Scheduler)

// WithAugmenter lets an LLM draft invitation text. The template result is
// kept whenever the augmenter fails or drops a scheduling fact.
func WithAugmenter(aug augment.Augmenter) Option {
	return func(s *Scheduler) { s.aug = aug }
}

// WithClock fixes the scheduler's notion of today.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(cfg config.SchedulerConfig, options ...Option) (*Scheduler, error) {
	if len(cfg.Slots) == 0 {
		return nil, &SchedulingError{Reason: "no interview slots configured"}
	}
	if len(cfg.Formats) == 0 {
		return nil, &SchedulingError{Reason: "no interview formats configured"}
	}
	s := &Scheduler{
		cfg: cfg,
		now: time.Now,
		log: logger.Logger.With().Str("component", "scheduler").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// NextBusinessDay walks forward from start one calendar day at a time,
// counting only Monday through Friday, until businessDays of them have
// passed. With businessDays <= 0 the start date is returned unchanged.
func NextBusinessDay(start time.Time, businessDays int) time.Time {
	current := start
	added := 0
	for added < businessDays {
		current = current.AddDate(0, 0, 1)
		switch current.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			added++
		}
	}
	return current
}

// Schedule produces the interview assignment for one match result on the
// given date. Non-shortlisted results come back with status rejected and
// no date, slots, or invitation.
func (s *Scheduler) Schedule(ctx context.Context, result *types.MatchResult, candidate *types.CandidateProfile, job *types.JobProfile, date time.Time) *types.InterviewAssignment {
	if !result.Shortlisted {
		s.log.Warn().
			Str("job_id", result.JobID).
			Str("candidate_id", result.CandidateID).
			Float64("score", result.TotalScore).
			Msg("candidate not shortlisted, rejecting")
		return &types.InterviewAssignment{
			JobID:       result.JobID,
			CandidateID: result.CandidateID,
			Status:      types.InterviewRejected,
		}
	}

	assignment := &types.InterviewAssignment{
		JobID:       result.JobID,
		CandidateID: result.CandidateID,
		Status:      types.InterviewScheduled,
		Date:        date.Format(dateLayout),
		Slots:       s.cfg.Slots,
		Formats:     s.cfg.Formats,
	}
	assignment.Invitation = s.composeInvitation(ctx, candidate, job, date)
	return assignment
}

// BatchSchedule assigns consecutive business days to the shortlisted
// results in order: the first gets LeadBusinessDays from today, each
// following one the next business day. Non-shortlisted results are
// skipped, as are results whose candidate profile is missing.
func (s *Scheduler) BatchSchedule(ctx context.Context, results []*types.MatchResult, candidates map[string]*types.CandidateProfile, job *types.JobProfile) []*types.InterviewAssignment {
	date := NextBusinessDay(s.now(), s.cfg.LeadBusinessDays)
	return s.batchSchedule(ctx, results, candidates, job, date, true)
}

// BatchScheduleOn schedules every shortlisted result on the same shared
// date; candidates pick a slot from the offered list.
func (s *Scheduler) BatchScheduleOn(ctx context.Context, results []*types.MatchResult, candidates map[string]*types.CandidateProfile, job *types.JobProfile, date time.Time) []*types.InterviewAssignment {
	return s.batchSchedule(ctx, results, candidates, job, date, false)
}

func (s *Scheduler) batchSchedule(ctx context.Context, results []*types.MatchResult, candidates map[string]*types.CandidateProfile, job *types.JobProfile, date time.Time, advance bool) []*types.InterviewAssignment {
	var assignments []*types.InterviewAssignment
	for _, result := range results {
		if !result.Shortlisted {
			continue
		}
		candidate, ok := candidates[result.CandidateID]
		if !ok {
			s.log.Warn().Str("candidate_id", result.CandidateID).Msg("no profile for shortlisted candidate, skipping")
			continue
		}
		assignments = append(assignments, s.Schedule(ctx, result, candidate, job, date))
		if advance {
			date = NextBusinessDay(date, 1)
		}
	}
	return assignments
}

// composeInvitation prefers the augmenter draft and falls back to the
// template. The fallback is also taken when the draft loses any
// scheduling fact, which ComposeInvitation reports as an error.
func (s *Scheduler) composeInvitation(ctx context.Context, candidate *types.CandidateProfile, job *types.JobProfile, date time.Time) string {
	name := candidate.Contact.Name
	if name == "" {
		name = "Candidate"
	}

	if s.aug != nil {
		draft, err := s.aug.ComposeInvitation(ctx, augment.InvitationContext{
			CandidateName: name,
			JobTitle:      job.Title,
			Date:          date.Format(displayDateLayout),
			Slots:         s.cfg.Slots,
			Formats:       s.cfg.Formats,
			CompanyName:   s.cfg.CompanyName,
			ContactEmail:  s.cfg.ContactEmail,
			ContactPhone:  s.cfg.ContactPhone,
		})
		if err == nil {
			return draft
		}
		s.log.Warn().Err(err).Str("candidate_id", candidate.SourceID).Msg("invitation draft rejected, using template")
	}
	return s.renderInvitation(name, job.Title, date)
}

func (s *Scheduler) renderInvitation(candidateName, jobTitle string, date time.Time) string {
	var slots strings.Builder
	for _, slot := range s.cfg.Slots {
		fmt.Fprintf(&slots, "- %s\n", slot)
	}

	return strings.TrimSpace(fmt.Sprintf(`Subject: Interview Invitation: %[1]s Position at %[2]s

Dear %[3]s,

Congratulations! We are pleased to inform you that you have been shortlisted for the %[1]s position at %[2]s. Your skills and experience have impressed our hiring team, and we would like to invite you for an interview.

Interview Details:
- Date: %[4]s
- Available Time Slots:
%[5]s- Format: %[6]s

Please reply to this email with your preferred time slot and interview format at your earliest convenience.

If you have any questions before the interview or need to reschedule, please don't hesitate to contact us at %[7]s or call us at %[8]s.

We look forward to speaking with you soon!

Best regards,

%[2]s Talent Team
%[7]s
%[8]s`,
		jobTitle, s.cfg.CompanyName, candidateName,
		date.Format(displayDateLayout), slots.String(),
		strings.Join(s.cfg.Formats, ", "),
		s.cfg.ContactEmail, s.cfg.ContactPhone))
}
