package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/hrvmon/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel           = "info"
	DefaultSampleRate         = 250
	DefaultQueueCapacity      = 500
	DefaultInputQueueCapacity = 30
	DefaultFilterWindow       = 5
	DefaultThresholdFactor    = 0.8
	DefaultMinHR              = 40
	DefaultMaxHR              = 200
	DefaultHRWindow           = 5
	DefaultSessionDuration    = 30 * time.Second
	DefaultDebounce           = 200 * time.Millisecond
	DefaultDisplayRefresh     = 500 * time.Millisecond
	DefaultSyntheticBPM       = 72.0
	DefaultSerialBaud         = 115200
	DefaultHistoryFile        = "/var/lib/hrvmon/Kubios_history.txt"
	DefaultMetricsDBPath      = "/var/lib/hrvmon/sessions.db"
	DefaultTelemetryListen    = "127.0.0.1:9464"
	DefaultMQTTTopic          = "Group2"
	DefaultCloudTimeout       = 30 * time.Second
	DefaultTokenURL           = "https://kubioscloud.auth.eu-west-1.amazoncognito.com/oauth2/token"
	DefaultAnalysisURL        = "https://analysis.kubioscloud.com/v2/analytics/analyze"

	defaultEnvPrefix  = "HRVMON"
	configPathEnv     = "HRVMON_CONFIG"
	defaultConfigName = "hrvmon"
	defaultConfigDir  = "/etc"
)

type CloudConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	TokenURL     string        `mapstructure:"token_url"`
	AnalysisURL  string        `mapstructure:"analysis_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	QoS      byte   `mapstructure:"qos"`
}

type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DBPath       string `mapstructure:"db_path"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout int    `mapstructure:"batch_timeout"`
}

type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

type Config struct {
	LogLevel           string          `mapstructure:"log_level"`
	SampleRate         int             `mapstructure:"sample_rate"`
	QueueCapacity      int             `mapstructure:"queue_capacity"`
	InputQueueCapacity int             `mapstructure:"input_queue_capacity"`
	FilterWindow       int             `mapstructure:"filter_window"`
	ThresholdFactor    float64         `mapstructure:"threshold_factor"`
	MinHR              int             `mapstructure:"min_hr"`
	MaxHR              int             `mapstructure:"max_hr"`
	HRWindow           int             `mapstructure:"hr_window"`
	SessionDuration    time.Duration   `mapstructure:"session_duration"`
	Debounce           time.Duration   `mapstructure:"debounce"`
	DisplayRefresh     time.Duration   `mapstructure:"display_refresh"`
	Sensor             string          `mapstructure:"sensor"`
	SerialPort         string          `mapstructure:"serial_port"`
	SerialBaud         int             `mapstructure:"serial_baud"`
	SyntheticBPM       float64         `mapstructure:"synthetic_bpm"`
	HistoryFile        string          `mapstructure:"history_file"`
	Cloud              CloudConfig     `mapstructure:"cloud"`
	MQTT               MQTTConfig      `mapstructure:"mqtt"`
	Metrics            MetricsConfig   `mapstructure:"metrics"`
	Telemetry          TelemetryConfig `mapstructure:"telemetry"`
}

// SamplePeriod returns the fixed sampling period.
func (c *Config) SamplePeriod() time.Duration {
	return time.Second / time.Duration(c.SampleRate)
}

// SamplePeriodMs returns the sampling period in whole milliseconds.
func (c *Config) SamplePeriodMs() int {
	return 1000 / c.SampleRate
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("sample_rate", DefaultSampleRate)
	v.SetDefault("queue_capacity", DefaultQueueCapacity)
	v.SetDefault("input_queue_capacity", DefaultInputQueueCapacity)
	v.SetDefault("filter_window", DefaultFilterWindow)
	v.SetDefault("threshold_factor", DefaultThresholdFactor)
	v.SetDefault("min_hr", DefaultMinHR)
	v.SetDefault("max_hr", DefaultMaxHR)
	v.SetDefault("hr_window", DefaultHRWindow)
	v.SetDefault("session_duration", DefaultSessionDuration)
	v.SetDefault("debounce", DefaultDebounce)
	v.SetDefault("display_refresh", DefaultDisplayRefresh)
	v.SetDefault("sensor", SensorSynthetic)
	v.SetDefault("serial_port", "")
	v.SetDefault("serial_baud", DefaultSerialBaud)
	v.SetDefault("synthetic_bpm", DefaultSyntheticBPM)
	v.SetDefault("history_file", DefaultHistoryFile)

	v.SetDefault("cloud.enabled", false)
	v.SetDefault("cloud.token_url", DefaultTokenURL)
	v.SetDefault("cloud.analysis_url", DefaultAnalysisURL)
	v.SetDefault("cloud.client_id", "")
	v.SetDefault("cloud.client_secret", "")
	v.SetDefault("cloud.api_key", "")
	v.SetDefault("cloud.timeout", DefaultCloudTimeout)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", DefaultMQTTTopic)
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 0)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.db_path", DefaultMetricsDBPath)
	v.SetDefault("metrics.batch_size", 1)
	v.SetDefault("metrics.batch_timeout", 10)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.listen", DefaultTelemetryListen)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("hrvmon", pflag.ContinueOnError)
	fs.String("config", "", "Path to configuration file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("sensor", SensorSynthetic, "Sensor source (synthetic, serial)")
	fs.String("serial-port", "", "Serial device streaming ADC samples")
	fs.Float64("synthetic-bpm", DefaultSyntheticBPM, "Heart rate of the synthetic sensor")
	fs.Duration("session-duration", DefaultSessionDuration, "Length of an HRV recording session")
	fs.String("history-file", DefaultHistoryFile, "File holding the last cloud analysis")
	fs.Bool("telemetry", false, "Expose Prometheus metrics")
	fs.String("telemetry-listen", DefaultTelemetryListen, "Address of the metrics endpoint")

	return fs
}

var flagKeys = map[string]string{
	"log-level":        "log_level",
	"sensor":           "sensor",
	"serial-port":      "serial_port",
	"synthetic-bpm":    "synthetic_bpm",
	"session-duration": "session_duration",
	"history-file":     "history_file",
	"telemetry":        "telemetry.enabled",
	"telemetry-listen": "telemetry.listen",
}

// Load reads the configuration from defaults, the config file, the
// environment and command-line flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}
	if !o.argsSet && len(os.Args) > 1 {
		o.args = os.Args[1:]
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := o.configPath
	if f := fs.Lookup("config"); f != nil && f.Changed {
		path = f.Value.String()
	}
	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(defaultConfigDir)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.SampleRate <= 0 || c.SampleRate > 1000 || 1000%c.SampleRate != 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "sample_rate must divide 1000")
	}

	if c.QueueCapacity < 2 || c.InputQueueCapacity < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, "queue capacities must be positive")
	}

	if c.FilterWindow < 1 || c.HRWindow < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, "window sizes must be positive")
	}

	if c.ThresholdFactor <= 0 || c.ThresholdFactor >= 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, "threshold_factor must be in (0,1)")
	}

	if c.MinHR <= 0 || c.MaxHR <= c.MinHR {
		return errFactory.WithData(errors.ErrInvalidConfig, "min_hr/max_hr")
	}

	if c.SessionDuration <= 0 || c.DisplayRefresh <= 0 || c.Debounce < 0 {
		return errFactory.New(errors.ErrInvalidInterval)
	}

	switch c.Sensor {
	case SensorSynthetic:
		if c.SyntheticBPM <= 0 {
			return errFactory.WithData(errors.ErrInvalidConfig, "synthetic_bpm must be positive")
		}
	case SensorSerial:
		if c.SerialPort == "" {
			return errFactory.WithData(errors.ErrMissingConfig, "serial_port")
		}
	default:
		return errFactory.WithData(errors.ErrInvalidConfig, "unknown sensor "+c.Sensor)
	}

	if c.Cloud.Enabled && (c.Cloud.ClientID == "" || c.Cloud.ClientSecret == "" || c.Cloud.APIKey == "") {
		return errFactory.WithData(errors.ErrMissingConfig, "cloud credentials")
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return errFactory.WithData(errors.ErrMissingConfig, "mqtt.broker")
	}

	if c.Metrics.Enabled && c.Metrics.DBPath == "" {
		return errFactory.WithData(errors.ErrMissingConfig, "metrics.db_path")
	}

	return nil
}
