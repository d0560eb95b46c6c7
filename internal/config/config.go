// Package config loads the snapkeeper configuration file.
package config

import "time"

type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	SNS        SNSConfig        `yaml:"sns"`
	Volumes    VolumesConfig    `yaml:"volumes"`
	Snapshots  SnapshotsConfig  `yaml:"snapshots"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type ConnectionConfig struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	ProxyHost string `yaml:"proxyHost"`
	ProxyPort int    `yaml:"proxyPort"`
}

type SNSConfig struct {
	Topic   string `yaml:"topic"`   // topic ARN, empty disables notifications
	Subject string `yaml:"subject"` // subject of the summary notification
}

type VolumesConfig struct {
	// Filter holds EC2 DescribeVolumes filters, e.g.
	// "tag:MakeSnapshot": ["true"]
	Filter map[string][]string `yaml:"filter"`
}

type SnapshotsConfig struct {
	KeepDay        int           `yaml:"keepDay"`
	KeepWeek       int           `yaml:"keepWeek"`
	KeepMonth      int           `yaml:"keepMonth"`
	Pause          time.Duration `yaml:"pause"` // e.g. 3s
	LegacyPrefixes []string      `yaml:"legacyPrefixes"`
	MarkerTag      string        `yaml:"markerTag"`
}

// ScheduleConfig holds one cron expression per period. An empty
// expression leaves the period out of daemon mode.
type ScheduleConfig struct {
	Day   string `yaml:"day"`
	Week  string `yaml:"week"`
	Month string `yaml:"month"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "logfmt", "json", "terminal"
	File   string `yaml:"file"`   // optional, appended to
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // e.g. ":9102", empty disables
}

// Keep returns the keep count configured for period.
func (c *Config) Keep(period string) int {
	switch period {
	case "day":
		return c.Snapshots.KeepDay
	case "week":
		return c.Snapshots.KeepWeek
	case "month":
		return c.Snapshots.KeepMonth
	}
	return 0
}

// Cron returns the cron expression configured for period.
func (c *Config) Cron(period string) string {
	switch period {
	case "day":
		return c.Schedule.Day
	case "week":
		return c.Schedule.Week
	case "month":
		return c.Schedule.Month
	}
	return ""
}
