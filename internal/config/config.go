package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Offer    OfferConfig    `yaml:"offer"`
	Hold     HoldConfig     `yaml:"hold"`
	Worker   WorkerConfig   `yaml:"worker"`
	Rules    RulesConfig    `yaml:"rules"`
	LogEnv   string         `yaml:"log_env"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	EventsTopic        string   `yaml:"events_topic"`
	RulesTopic         string   `yaml:"rules_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

// PricingConfig mirrors spec §4.2's constants as configuration, per §9's
// note that TTL-shaped constants should be surfaced, not hardcoded.
type PricingConfig struct {
	DemandMinMultiplier float64 `yaml:"demand_min_multiplier"`
	DemandMaxMultiplier float64 `yaml:"demand_max_multiplier"`
	BundleDiscount      float64 `yaml:"bundle_discount"`
}

type OfferConfig struct {
	ExpiryMinutes    int     `yaml:"expiry_minutes"`
	MaxOffers        int     `yaml:"max_offers"`
	ConvertWeight    float64 `yaml:"convert_weight"`
	MarginWeight     float64 `yaml:"margin_weight"`
}

// HoldConfig resolves the ambiguity in spec §9: offer TTL 15m, order hold
// TTL 30m, seat sub-hold 15m. hold.Manager.ChangeSeat holds a seat for
// min(seat sub-hold, order hold TTL), not for the order's remaining time.
type HoldConfig struct {
	OfferTTLMinutes      int `yaml:"offer_ttl_minutes"`
	OrderHoldTTLMinutes  int `yaml:"order_hold_ttl_minutes"`
	SeatSubHoldMinutes   int `yaml:"seat_sub_hold_minutes"`
}

func (h HoldConfig) OfferTTL() time.Duration {
	return time.Duration(h.OfferTTLMinutes) * time.Minute
}

func (h HoldConfig) OrderHoldTTL() time.Duration {
	return time.Duration(h.OrderHoldTTLMinutes) * time.Minute
}

func (h HoldConfig) SeatSubHoldTTL() time.Duration {
	return time.Duration(h.SeatSubHoldMinutes) * time.Minute
}

type WorkerConfig struct {
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	SweepBatchSize       int `yaml:"sweep_batch_size"`
}

type RulesConfig struct {
	RefreshSeconds int `yaml:"refresh_seconds"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Default returns the spec-mandated defaults (§4.2-§4.7) so a config
// file only needs to override what differs from the reference policy.
func Default() *Config {
	return &Config{
		Pricing: PricingConfig{
			DemandMinMultiplier: 0.5,
			DemandMaxMultiplier: 3.0,
			BundleDiscount:      0.9,
		},
		Offer: OfferConfig{
			ExpiryMinutes: 15,
			MaxOffers:     5,
			ConvertWeight: 0.6,
			MarginWeight:  0.4,
		},
		Hold: HoldConfig{
			OfferTTLMinutes:     15,
			OrderHoldTTLMinutes: 30,
			SeatSubHoldMinutes:  15,
		},
		Worker: WorkerConfig{
			SweepIntervalSeconds: 30,
			SweepBatchSize:       200,
		},
		Rules: RulesConfig{
			RefreshSeconds: 60,
		},
		LogEnv: "development",
	}
}
