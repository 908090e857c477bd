package config

import (
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBUser                 string `env:"DB_USER,required"`
	DBPassword             string `env:"DB_PASSWORD,required"`
	DBHost                 string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME,required"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`

	// Affiliate rate reported to the upstream aggregator, in basis
	// points. Zero falls back to the engine's built-in rate.
	AffiliateFeeBps int `env:"AFFILIATE_FEE_BPS" envDefault:"0"`

	// Optional AMQP ingestion of swap events. Empty disables the
	// consumer.
	RewardsQueueURL  string `env:"REWARDS_QUEUE_URL"`
	RewardsQueueName string `env:"REWARDS_QUEUE_NAME" envDefault:"swap_rewards"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"10m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
