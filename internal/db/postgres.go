package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/types"
	"github.com/opencampus-io/registrar-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "registrar", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	return AutoMigrate(s.db)
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

// AutoMigrate is shared with the test harness so both stores carry the same
// schema.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&types.User{},
		&types.StudentProfile{},
		&types.ProfessorProfile{},
		&types.Course{},
		&types.Enrollment{},
		&types.Assignment{},
		&types.Submission{},
		&types.Grade{},
		&types.AnchorJob{},
	)
}
