package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/manasdutta04/matchwise/internal/config"
	"github.com/manasdutta04/matchwise/internal/logger"
	"github.com/manasdutta04/matchwise/internal/storage/models"
	"github.com/manasdutta04/matchwise/internal/types"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// MySQL is the relational store for jobs, candidates, matches, and
// interviews.
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config must not be nil")
	}

	var logLevel gormlogger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = gormlogger.Silent
	case 2:
		logLevel = gormlogger.Error
	case 3:
		logLevel = gormlogger.Warn
	default:
		logLevel = gormlogger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	m := &MySQL{db: db, cfg: cfg}
	if err := db.AutoMigrate(
		&models.Job{},
		&models.Candidate{},
		&models.Match{},
		&models.Interview{},
	); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	logger.Logger.Info().Str("database", cfg.Database).Msg("mysql connected, schema migrated")
	return m, nil
}

// DB exposes the underlying handle for transactional composition.
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertJob writes a job profile, replacing any previous row with the
// same job id.
func (m *MySQL) UpsertJob(ctx context.Context, profile *types.JobProfile) error {
	row := models.JobFromProfile(profile)
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description_text", "required_skills_json", "preferred_skills_json",
			"required_experience", "required_education", "responsibility_json", "updated_at",
		}),
	}).Create(row).Error
}

func (m *MySQL) GetJob(ctx context.Context, jobID string) (*types.JobProfile, error) {
	var row models.Job
	err := m.db.WithContext(ctx).First(&row, "job_id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row.ToProfile(), nil
}

func (m *MySQL) ListJobs(ctx context.Context) ([]*types.JobProfile, error) {
	var rows []models.Job
	if err := m.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	profiles := make([]*types.JobProfile, len(rows))
	for i := range rows {
		profiles[i] = rows[i].ToProfile()
	}
	return profiles, nil
}

// UpsertCandidate writes a candidate profile keyed by source id.
// rawTextMD5 and rawTextPath record the dedupe fingerprint and the
// object-store location of the raw text; both may be empty.
func (m *MySQL) UpsertCandidate(ctx context.Context, profile *types.CandidateProfile, rawTextMD5, rawTextPath string) error {
	row := models.CandidateFromProfile(profile)
	row.RawTextMD5 = rawTextMD5
	row.RawTextPathOSS = rawTextPath
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "candidate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "email", "phone", "linked_in", "skills_json", "education_json",
			"experience_json", "raw_text_md5", "raw_text_path_oss", "updated_at",
		}),
	}).Create(row).Error
}

func (m *MySQL) GetCandidate(ctx context.Context, candidateID string) (*types.CandidateProfile, error) {
	var row models.Candidate
	err := m.db.WithContext(ctx).First(&row, "candidate_id = ?", candidateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("candidate %s: %w", candidateID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row.ToProfile(), nil
}

func (m *MySQL) ListCandidates(ctx context.Context) ([]*types.CandidateProfile, error) {
	var rows []models.Candidate
	if err := m.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	profiles := make([]*types.CandidateProfile, len(rows))
	for i := range rows {
		profiles[i] = rows[i].ToProfile()
	}
	return profiles, nil
}

// UpsertMatch writes one scored pair. Re-matching the same pair updates
// the existing row via the composite unique index.
func (m *MySQL) UpsertMatch(ctx context.Context, result *types.MatchResult) error {
	row := models.MatchFromResult(result)
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}, {Name: "candidate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"skills_score", "experience_score", "education_score", "total_score",
			"matched_skills_json", "missing_skills_json", "shortlisted",
			"assessment_json", "updated_at",
		}),
	}).Create(row).Error
}

func (m *MySQL) UpsertMatches(ctx context.Context, results []*types.MatchResult) error {
	for _, r := range results {
		if err := m.UpsertMatch(ctx, r); err != nil {
			return fmt.Errorf("upserting match %s/%s: %w", r.JobID, r.CandidateID, err)
		}
	}
	return nil
}

// ListMatchesByJob returns a job's matches ordered by total score,
// highest first.
func (m *MySQL) ListMatchesByJob(ctx context.Context, jobID string, shortlistedOnly bool) ([]*types.MatchResult, error) {
	q := m.db.WithContext(ctx).Where("job_id = ?", jobID)
	if shortlistedOnly {
		q = q.Where("shortlisted = ?", true)
	}
	var rows []models.Match
	if err := q.Order("total_score DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	results := make([]*types.MatchResult, len(rows))
	for i := range rows {
		results[i] = rows[i].ToResult()
	}
	return results, nil
}

// UpsertInterview writes an interview assignment, one row per
// (job, candidate) pair.
func (m *MySQL) UpsertInterview(ctx context.Context, a *types.InterviewAssignment) error {
	row := models.InterviewFromAssignment(a)
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}, {Name: "candidate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "scheduled_date", "slots_json", "formats_json", "invitation", "updated_at",
		}),
	}).Create(row).Error
}

func (m *MySQL) ListInterviewsByJob(ctx context.Context, jobID string) ([]*types.InterviewAssignment, error) {
	var rows []models.Interview
	if err := m.db.WithContext(ctx).Where("job_id = ?", jobID).Order("scheduled_date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	assignments := make([]*types.InterviewAssignment, len(rows))
	for i := range rows {
		assignments[i] = rows[i].ToAssignment()
	}
	return assignments, nil
}
