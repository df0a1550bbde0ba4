package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0:8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"DEBUG"`
	PostgresConfig
	SMTPConfig
	SchedulerConfig
	ArchiveConfig
	StorageConfig
}

func NewConfig() (*Config, error) {
	config := &Config{}

	err := env.Parse(config)
	if err != nil {
		err = fmt.Errorf("config.NewConfig: %w", err)
	}
	return config, err
}

type PostgresConfig struct {
	Conn            string `env:"POSTGRES_CONN" envDefault:"postgres://test:test@db:5432/test?sslmode=disable"`
	AutoMigrateUp   string `env:"AUTO_MIGRATE_UP" envDefault:"true"`
	AutoMigrateDown string `env:"AUTO_MIGRATE_DOWN" envDefault:"false"`
	MigrationsURL   string `env:"MIGRATIONS_URL" envDefault:"file://internal/repository/db/migrations"`
}

func NewPostgresConfig() (*PostgresConfig, error) {
	config := &PostgresConfig{}

	err := env.Parse(config)
	if err != nil {
		err = fmt.Errorf("config.NewPostgresConfig: %w", err)
	}
	return config, err
}

type SMTPConfig struct {
	SMTPHost    string        `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort    int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser    string        `env:"SMTP_USERNAME"`
	SMTPPass    string        `env:"SMTP_PASSWORD"`
	SMTPFrom    string        `env:"SMTP_FROM" envDefault:"noreply@offerportal.local"`
	SMTPTLS     bool          `env:"SMTP_TLS" envDefault:"false"`
	SendTimeout time.Duration `env:"SMTP_SEND_TIMEOUT" envDefault:"15s"`
}

type SchedulerConfig struct {
	// SweepSpec is a cron expression, by default one sweep at midnight.
	SweepSpec string `env:"SWEEP_CRON" envDefault:"0 0 * * *"`
	// SweepHorizon bounds how far ahead of their deadline offers are
	// picked up by the sweep.
	SweepHorizon time.Duration `env:"SWEEP_HORIZON" envDefault:"120h"`
}

type ArchiveConfig struct {
	ArchiveDir string `env:"ARCHIVE_DIR" envDefault:"archives"`
	// ArchiveWindow is how long after closing an offer stays archivable.
	ArchiveWindow time.Duration `env:"ARCHIVE_WINDOW" envDefault:"336h"`
}

type StorageConfig struct {
	UploadDir string `env:"UPLOAD_DIR" envDefault:"uploads"`
}
