package queue

import "time"

// Config holds configuration for the queue system.
type Config struct {
	// Type selects the queue backend: "redis" (default) or "sqs".
	Type            string        `mapstructure:"type"`
	Topic           string        `mapstructure:"topic"`
	GroupName       string        `mapstructure:"group_name"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	WorkerCount     int           `mapstructure:"worker_count"`
	BlockTimeout    time.Duration `mapstructure:"block_timeout"`
	ProcessTimeout  time.Duration `mapstructure:"process_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// SQS-specific config
	SQSQueueURL      string `mapstructure:"sqs_queue_url"`
	SQSQuarantineURL string `mapstructure:"sqs_quarantine_url"`
	SQSRegion        string `mapstructure:"sqs_region"`
	SQSWaitTime      int32  `mapstructure:"sqs_wait_time"`          // long poll seconds, default 20
	SQSVisTimeout    int32  `mapstructure:"sqs_visibility_timeout"` // seconds, default 30
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Topic:           "email-topic",
		GroupName:       "email-group",
		RedisAddr:       "localhost:6379",
		RedisDB:         0,
		WorkerCount:     4,
		BlockTimeout:    5 * time.Second,
		ProcessTimeout:  30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// streamKey returns the Redis stream key for a topic.
func streamKey(topic string) string {
	return "queue:" + topic
}

// quarantineStreamKey returns the Redis quarantine stream key for a topic.
func quarantineStreamKey(topic string) string {
	return "quarantine:" + topic
}
