package config

const (
	DefaultEnvPrefix  = "WEATHERAGENT"
	DefaultConfigName = "weatheragent"
	DefaultLogLevel   = "info"
	DefaultPIDFile    = "weatheragent.pid"
	DefaultKeyEnvVar  = "WEATHER_API_KEY"
)

// DefaultConfigPaths are searched in order for weatheragent.toml.
var DefaultConfigPaths = []string{".", "/etc/weatheragent"}

// DefaultCities are polled when no city list is configured.
var DefaultCities = []string{
	"Portland,ME,US",
	"Boston,MA,US",
	"Albany,NY,US",
	"Burlington,VT,US",
	"New York,NY,US",
}

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "WEATHERAGENT"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = prefix
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelWarn    LogLevel = "warn"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}
