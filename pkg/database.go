package pkg

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/lms-service/internal/config"
	"github.com/SAP-F-2025/lms-service/internal/models"
)

// InitDatabase opens the postgres connection, tunes the pool and migrates the
// schema when DB_AUTO_MIGRATE is set.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.Environment == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// Unique violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if cfg.DBAutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// Migrate creates tables and the indexes gorm tags cannot express.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Question{},
		&models.QuestionOption{},
		&models.Assessment{},
		&models.AssessmentQuestion{},
		&models.AssessmentAttempt{},
		&models.AssessmentAnswer{},
		&models.Schedule{},
		&models.Enrollment{},
		&models.ScheduleAssessment{},
		&models.TrainingMaterial{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// At most one in_progress attempt per trainee and assessment
	activeIndex := fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s ON assessment_attempts (assessment_id, trainee_id) WHERE status = '%s'`,
		models.ActiveAttemptIndex, models.AttemptInProgress,
	)
	if err := db.Exec(activeIndex).Error; err != nil {
		return fmt.Errorf("failed to create active attempt index: %w", err)
	}

	return nil
}
