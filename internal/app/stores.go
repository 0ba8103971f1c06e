// Package app holds the wiring shared by the server and the operator CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/designengineer/course-api/internal/config"
	"github.com/designengineer/course-api/internal/database"
	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/repository"
	"github.com/designengineer/course-api/internal/repository/memory"
	"github.com/designengineer/course-api/internal/service"
)

// LessonCatalog reads and writes the lesson catalog.
type LessonCatalog interface {
	service.LessonStore
	Upsert(ctx context.Context, l model.Lesson) error
}

// Stores is the storage backend selected by STORE_DRIVER.
type Stores struct {
	Enrollments  service.EnrollmentStore
	Codes        service.AccessCodeStore
	Certificates service.CertificateStore
	Progress     service.ProgressStore
	Lessons      LessonCatalog

	db *sql.DB
}

// Close releases the database pool, if any.
func (s Stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OpenStores connects to MySQL and applies the schema, or builds an empty
// in-memory store for STORE_DRIVER=memory.
func OpenStores(ctx context.Context, cfg config.Config) (Stores, error) {
	if cfg.StoreDriver == "memory" {
		m := memory.New()
		return Stores{
			Enrollments:  m.Enrollments,
			Codes:        m.Codes,
			Certificates: m.Certificates,
			Progress:     m.Progress,
			Lessons:      m.Lessons,
		}, nil
	}
	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return Stores{}, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return Stores{}, err
	}
	return Stores{
		Enrollments:  repository.NewEnrollmentRepo(db),
		Codes:        repository.NewAccessCodeRepo(db),
		Certificates: repository.NewCertificateRepo(db),
		Progress:     repository.NewProgressRepo(db),
		Lessons:      repository.NewLessonRepo(db),
		db:           db,
	}, nil
}

// OpenDB opens the MySQL pool named by the DB_* settings.
func OpenDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return db, nil
}
