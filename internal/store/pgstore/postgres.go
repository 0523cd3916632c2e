package pgstore

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/egpaydcx/egpay-backend/internal/types/environments"
	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

func New(appConfig *config.AppConfig, logger *logger.Logger) *gorm.DB {
	db, err := Open(DSN(appConfig.Postgres), appConfig.Environment)
	if err != nil {
		logger.Fatal("failed to connect to postgres", map[string]string{
			"error": err.Error(),
		})
	}

	logger.Info("database connected", map[string]string{
		"host": appConfig.Postgres.Host,
		"name": appConfig.Postgres.Name,
	})
	return db
}

func DSN(c config.DBConnection) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host,
		c.User,
		c.Pass,
		c.Name,
		c.Port,
		c.SSLMode,
	)
}

// Open connects with duplicate-key translation enabled, so unique violations surface as gorm.ErrDuplicatedKey.
func Open(dsn string, env environments.Environment) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if env == environments.Development {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn),
		&gorm.Config{
			NamingStrategy: schema.NamingStrategy{
				SingularTable: false,
			},
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(logLevel),
		})
	if err != nil {
		return nil, err
	}

	return db, nil
}
