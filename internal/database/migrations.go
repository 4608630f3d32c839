package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationUppercaseShareCodes = "2026-03-02_uppercase_share_codes"
	migrationZeroNullStreakDays  = "2026-03-02_zero_null_streak_days"

	tableSharedAssessments  = "shared_assessments"
	tableLeaderboardEntries = "leaderboard_entries"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	table string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationUppercaseShareCodes, table: tableSharedAssessments, apply: uppercaseShareCodes},
		{name: migrationZeroNullStreakDays, table: tableLeaderboardEntries, apply: zeroNullStreakDays},
	}

	for _, migration := range migrations {
		if !db.Migrator().HasTable(migration.table) {
			continue
		}
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Codes issued by older clients may be lower case; lookups normalize to upper case.
func uppercaseShareCodes(db *gorm.DB) error {
	return db.Table(tableSharedAssessments).
		Where("code <> UPPER(code)").
		Update("code", gorm.Expr("UPPER(code)")).Error
}

func zeroNullStreakDays(db *gorm.DB) error {
	return db.Table(tableLeaderboardEntries).
		Where("streak_days IS NULL").
		Update("streak_days", 0).Error
}
