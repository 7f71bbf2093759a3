package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Mailbox sync pass, daily at 01:00
	CronScheduleEmailSync string `env:"CRON_SCHEDULE_EMAIL_SYNC" envDefault:"0 0 1 * * *"`
}
