// Package config loads the process settings shared by the alerts binaries.
package config

import (
	"log/slog"
	"time"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/env"
)

const (
	defaultStage          = "dev"
	defaultPublishTimeout = 5 * time.Second
)

type Config struct {
	AWSRegion string
	Stage     string
	// Service names the deployment when the input does not.
	Service  string
	LogLevel slog.Level

	// EventBusName enables publishing compile summaries when set.
	EventBusName string
	// NotifyTopicARN enables text summaries on an SNS topic when set.
	NotifyTopicARN string
	PublishTimeout time.Duration

	// Audit enables the deployed alarm audit of verify runs.
	Audit         bool
	AuditPrefixes []string
}

func Load() (*Config, error) {
	region, err := env.GetRequired("AWS_REGION", env.ParseNonEmptyString)
	if err != nil {
		return nil, err
	}

	return LoadWithRegion(region), nil
}

// LoadWithRegion reads the settings for callers that resolve the region
// themselves, such as the CLI which takes it from the manifest.
func LoadWithRegion(region string) *Config {
	cfg := &Config{AWSRegion: region}

	cfg.Stage = env.Get("ALERTS_STAGE", defaultStage, env.ParseNonEmptyString)
	cfg.Service = env.Get("ALERTS_SERVICE", "", env.ParseString)
	cfg.LogLevel = env.Get("ALERTS_LOG_LEVEL", slog.LevelInfo, env.ParseLevel)

	cfg.EventBusName = env.Get("EVENT_BUS_NAME", "", env.ParseNonEmptyString)
	cfg.NotifyTopicARN = env.Get("ALERTS_NOTIFY_TOPIC_ARN", "", env.ParseNonEmptyString)
	cfg.PublishTimeout = env.Get("ALERTS_PUBLISH_TIMEOUT", defaultPublishTimeout, env.ParseDuration)

	cfg.Audit = env.Get("ALERTS_AUDIT", true, env.ParseBool)
	cfg.AuditPrefixes = env.Get("ALERTS_AUDIT_PREFIXES", nil, env.ParseList)

	return cfg
}
