package leaderboard

import "time"

// Entry is a single immutable score submission.
type Entry struct {
	ID              string    `gorm:"column:id;primaryKey;size:36"`
	UserID          string    `gorm:"column:user_id;size:36;not null;index:idx_leaderboard_user_created,priority:1"`
	Score           float64   `gorm:"column:score;not null"`
	MaxScore        float64   `gorm:"column:max_score;not null"`
	AssessmentTitle *string   `gorm:"column:assessment_title;size:255"`
	GoalName        *string   `gorm:"column:goal_name;size:255"`
	StreakDays      int       `gorm:"column:streak_days;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;not null;index:idx_leaderboard_user_created,priority:2"`
}

// TableName exposes the table backing leaderboard entries.
func (Entry) TableName() string {
	return "leaderboard_entries"
}

// Percentage is score/max_score*100 rounded to one decimal, or 0 when max_score is 0.
func (e Entry) Percentage() float64 {
	return percentage(e.Score, e.MaxScore)
}

// Submission is the input to Submit.
type Submission struct {
	Score           float64
	MaxScore        float64
	AssessmentTitle string
	GoalName        string
	StreakDays      int
}

// RankedEntry is one row of the public leaderboard.
type RankedEntry struct {
	Rank       int
	UserName   string
	Score      float64
	MaxScore   float64
	Percentage float64
	StreakDays int
}
