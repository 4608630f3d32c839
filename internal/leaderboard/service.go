package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ravikumarch040/StudyAsist/internal/identifier"
	"github.com/ravikumarch040/StudyAsist/internal/serviceerr"
	"github.com/ravikumarch040/StudyAsist/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultTopLimit  = 50
	MaxTopLimit      = 100
	DefaultMineLimit = 20
	MaxMineLimit     = 50

	opSubmit = "leaderboard.submit"
	opTop    = "leaderboard.top"
	opMine   = "leaderboard.mine"

	// Zero max_score ranks and displays as a zero ratio.
	ratioExpression = "CASE WHEN e.max_score = 0 THEN 0 ELSE e.score / e.max_score END"
)

var (
	// ErrInvalidSubmission indicates a score submission the engine refuses to store.
	ErrInvalidSubmission = errors.New("leaderboard: invalid submission")

	errMissingDatabase = errors.New("database handle is required")
	errMissingUserID   = errors.New("user identifier is required")
	errNegativeStreak  = errors.New("streak days must not be negative")
	errNonFiniteScore  = errors.New("score, max score and percentage must be finite")
)

// ServiceConfig describes the dependencies of the leaderboard engine.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider identifier.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service stores score submissions and computes ranked views.
type Service struct {
	db         *gorm.DB
	idProvider identifier.Provider
	clock      func() time.Time
	logger     *zap.Logger
}

// NewService constructs the leaderboard engine.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, serviceerr.New("leaderboard.service.new", "missing_database", errMissingDatabase)
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = identifier.NewUUIDProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:         cfg.Database,
		idProvider: idProvider,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Submit appends a score. Non-positive max_score values are stored as given.
func (s *Service) Submit(ctx context.Context, userID string, submission Submission) (Entry, error) {
	if s.db == nil {
		return Entry{}, serviceerr.New(opSubmit, "missing_database", errMissingDatabase)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Entry{}, serviceerr.New(opSubmit, "missing_user_id", errMissingUserID)
	}
	if submission.StreakDays < 0 {
		return Entry{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, errNegativeStreak)
	}
	if !finiteScore(submission.Score, submission.MaxScore) {
		return Entry{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, errNonFiniteScore)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSubmit, "id_generation_failed", err, zap.String("user_id", userID))
		return Entry{}, serviceerr.New(opSubmit, "id_generation_failed", err)
	}

	entry := Entry{
		ID:              id,
		UserID:          userID,
		Score:           submission.Score,
		MaxScore:        submission.MaxScore,
		AssessmentTitle: optionalText(submission.AssessmentTitle),
		GoalName:        optionalText(submission.GoalName),
		StreakDays:      submission.StreakDays,
		CreatedAt:       s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logError(opSubmit, "insert_failed", err, zap.String("user_id", userID))
		return Entry{}, serviceerr.New(opSubmit, "insert_failed", err)
	}
	return entry, nil
}

type topRow struct {
	Score      float64
	MaxScore   float64
	StreakDays int
	UserName   string
	UserEmail  string
}

// Top returns entries ordered by descending score ratio, earliest submission first on ties.
// limit is clamped to [1, MaxTopLimit]; non-positive values select DefaultTopLimit.
func (s *Service) Top(ctx context.Context, limit int) ([]RankedEntry, error) {
	if s.db == nil {
		return nil, serviceerr.New(opTop, "missing_database", errMissingDatabase)
	}
	limit = ClampLimit(limit, DefaultTopLimit, MaxTopLimit)

	var rows []topRow
	err := s.db.WithContext(ctx).
		Table(Entry{}.TableName()+" AS e").
		Select("e.score, e.max_score, e.streak_days, u.name AS user_name, u.email AS user_email").
		Joins("JOIN " + users.User{}.TableName() + " AS u ON u.id = e.user_id").
		Order(ratioExpression + " DESC").
		Order("e.created_at ASC").
		Order("e.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		s.logError(opTop, "query_failed", err, zap.Int("limit", limit))
		return nil, serviceerr.New(opTop, "query_failed", err)
	}

	ranked := make([]RankedEntry, 0, len(rows))
	for index, row := range rows {
		ranked = append(ranked, RankedEntry{
			Rank:       index + 1,
			UserName:   users.User{Name: row.UserName, Email: row.UserEmail}.DisplayName(),
			Score:      row.Score,
			MaxScore:   row.MaxScore,
			Percentage: percentage(row.Score, row.MaxScore),
			StreakDays: row.StreakDays,
		})
	}
	return ranked, nil
}

// Mine returns the caller's own entries, newest first. limit is clamped to [1, MaxMineLimit].
func (s *Service) Mine(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, serviceerr.New(opMine, "missing_database", errMissingDatabase)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, serviceerr.New(opMine, "missing_user_id", errMissingUserID)
	}
	limit = ClampLimit(limit, DefaultMineLimit, MaxMineLimit)

	var entries []Entry
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		s.logError(opMine, "query_failed", err, zap.String("user_id", userID))
		return nil, serviceerr.New(opMine, "query_failed", err)
	}
	return entries, nil
}

// ClampLimit selects fallback for non-positive requests and caps at upper.
func ClampLimit(requested, fallback, upper int) int {
	if requested <= 0 {
		requested = fallback
	}
	if requested > upper {
		return upper
	}
	return requested
}

// percentage reports 0 for rows whose ratio cannot be represented.
func percentage(score, maxScore float64) float64 {
	if maxScore == 0 {
		return 0
	}
	rounded := math.Round(score/maxScore*100*10) / 10
	if isNonFinite(rounded) {
		return 0
	}
	return rounded
}

func finiteScore(score, maxScore float64) bool {
	if isNonFinite(score) || isNonFinite(maxScore) {
		return false
	}
	if maxScore == 0 {
		return true
	}
	return !isNonFinite(math.Round(score / maxScore * 100 * 10))
}

func isNonFinite(value float64) bool {
	return math.IsInf(value, 0) || math.IsNaN(value)
}

func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	serviceerr.Log(s.logger, "leaderboard service error", operation, reason, err, fields...)
}
