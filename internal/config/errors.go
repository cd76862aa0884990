package config

const (
	UsageMessage           = "Usage: foldersync <source_directory> <replica_directory> <log_directory> <sync_interval_seconds>"
	InvalidIntervalMessage = "Invalid sync interval. Please provide a positive integer."
)

// ArgumentError reports bad command line arguments. Nothing has been
// created on disk when it is returned.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string {
	return e.Msg
}
