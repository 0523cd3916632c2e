package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"

	"github.com/egpaydcx/egpay-backend/internal/store/pgstore"
	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

func newMigrate(db *gorm.DB, dir string) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	return migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(dir), "postgres", driver)
}

// run applies every pending migration, or rolls back the given number of steps when steps > 0
func run(m *migrate.Migrate, steps int) error {
	var err error
	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func main() {
	dir := flag.String("dir", filepath.Join("migrations", "schema"), "migration files directory")
	down := flag.Int("down", 0, "roll back this many migrations instead of migrating up")
	flag.Parse()

	appConfig := config.New()
	logger := logger.New(appConfig.Environment)
	defer logger.Sync()

	db := pgstore.New(appConfig, logger)

	m, err := newMigrate(db, *dir)
	if err != nil {
		logger.Error("[main][newMigrate] failed to init migrations", map[string]string{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	if err := run(m, *down); err != nil {
		logger.Error("[main][run] failed to run migrations", map[string]string{
			"error": err.Error(),
			"down":  fmt.Sprintf("%d", *down),
		})
		os.Exit(1)
	}

	version, dirty, _ := m.Version()
	logger.Info("[main][run] migrations completed", map[string]string{
		"version": fmt.Sprintf("%d", version),
		"dirty":   fmt.Sprintf("%t", dirty),
	})
}
