package config

const (
	defaultRemoteDir           = "~/fmqueue/remote"
	defaultInboundDir          = "~/fmqueue/inbound"
	defaultArchiveDir          = "~/fmqueue/archive"
	defaultFailedDir           = "~/fmqueue/failed"
	defaultLogDir              = "~/.local/share/fmqueue/logs"
	defaultWorkerTimeout       = 3600
	defaultNotifyTimeout       = 10
	defaultRetentionMaxAgeDays = 14
	defaultRetentionInterval   = 7
	defaultStampFile           = ".last_sweep"
	defaultItemDelayMS         = 500
	defaultPayloadPrefix       = "fm_payload"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RemoteDir:  defaultRemoteDir,
			InboundDir: defaultInboundDir,
			ArchiveDir: defaultArchiveDir,
			FailedDir:  defaultFailedDir,
			LogDir:     defaultLogDir,
		},
		Worker: Worker{
			TimeoutSeconds: defaultWorkerTimeout,
		},
		Notifications: Notifications{
			Enabled:        false,
			RequestTimeout: defaultNotifyTimeout,
		},
		Retention: Retention{
			MaxAgeDays:      defaultRetentionMaxAgeDays,
			MinIntervalDays: defaultRetentionInterval,
			StampFile:       defaultStampFile,
		},
		Queue: Queue{
			ItemDelayMS:   defaultItemDelayMS,
			PayloadPrefix: defaultPayloadPrefix,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
