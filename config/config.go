package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cowin-slots/model"

	"github.com/badoux/checkmail"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	CommunicationSystem = "system"
	CommunicationNtfy   = "ntfy"
	CommunicationEmail  = "email"
	CommunicationNone   = "none"

	APIModeFind     = "find"
	APIModeCalendar = "calendar"

	TransportHTTP    = "http"
	TransportBrowser = "browser"

	DefaultAPIBaseURL = "https://cdn-api.co-vin.in/api/v2"
	DefaultUserAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/90.0.4430.212 Safari/537.36"
)

type SMTP struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type Config struct {
	DataPoints        []model.DataPoint
	Criteria          model.SearchCriteria
	CommunicationType string

	APIBaseURL        string
	APIMode           string
	Transport         string
	UserAgent         string
	RequestTimeout    time.Duration
	RequestsPerMinute int
	Workers           int
	LookupCutoffHour  int
	NotifyTTL         time.Duration

	TextLogPath  string
	JSONLogPath  string
	LockPath     string
	DebugLogPath string

	NtfyServer string
	NtfyTopic  string
	SMTP       SMTP
	Receivers  []string

	Silent   bool
	Analyze  bool
	LogLevel string
	Listen   string
}

type dataPointFile struct {
	Pincode    string `mapstructure:"pincode"`
	DistrictID int    `mapstructure:"district_id"`
	Date       string `mapstructure:"date"`
}

type criteriaFile struct {
	MinAgeLimit string `mapstructure:"minAgeLimit"`
	VaccineName string `mapstructure:"vaccineName"`
	FeeType     string `mapstructure:"feeType"`
	Dose1       *bool  `mapstructure:"dose1"`
	Dose2       bool   `mapstructure:"dose2"`
}

type file struct {
	DataPoints        []dataPointFile `mapstructure:"dataPoints"`
	SearchCriteria    criteriaFile    `mapstructure:"searchCriteria"`
	CommunicationType string          `mapstructure:"communicationType"`

	APIBaseURL        string        `mapstructure:"api_base_url"`
	APIMode           string        `mapstructure:"api_mode"`
	Transport         string        `mapstructure:"transport"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Workers           int           `mapstructure:"workers"`
	LookupCutoffHour  int           `mapstructure:"lookup_cutoff_hour"`
	NotifyTTL         time.Duration `mapstructure:"notify_ttl"`

	TextLogPath  string `mapstructure:"text_log_path"`
	JSONLogPath  string `mapstructure:"json_log_path"`
	LockPath     string `mapstructure:"lock_path"`
	DebugLogPath string `mapstructure:"debug_log_path"`

	NtfyServer string   `mapstructure:"ntfy_server"`
	NtfyTopic  string   `mapstructure:"ntfy_topic"`
	SMTP       SMTP     `mapstructure:"smtp"`
	Receivers  []string `mapstructure:"receivers"`

	Silent   bool   `mapstructure:"silent"`
	Analyze  bool   `mapstructure:"analyze"`
	LogLevel string `mapstructure:"log_level"`
	Listen   string `mapstructure:"listen"`
}

// Flags declares the command line options. The config file path is the single positional argument.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("cowin-slots", pflag.ContinueOnError)
	fs.Bool("silent", false, "do not beep when a slot is found")
	fs.Bool("analyze", false, "append structured match records to the JSON history file")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("listen", "", "address for the status API, e.g. :8080 (disabled when empty)")
	fs.Bool("list-states", false, "print CoWIN states and exit")
	fs.Int("list-districts", 0, "print districts of the given state id and exit")
	return fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("communicationType", CommunicationSystem)
	v.SetDefault("api_base_url", DefaultAPIBaseURL)
	v.SetDefault("api_mode", APIModeFind)
	v.SetDefault("transport", TransportHTTP)
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("requests_per_minute", 20)
	v.SetDefault("workers", 0)
	v.SetDefault("lookup_cutoff_hour", 14)
	v.SetDefault("notify_ttl", 30*time.Minute)
	v.SetDefault("text_log_path", "slots-finder.txt")
	v.SetDefault("json_log_path", "slots-finder.json")
	v.SetDefault("lock_path", "")
	v.SetDefault("debug_log_path", "slots-finder.log")
	v.SetDefault("ntfy_server", "https://ntfy.sh")
	v.SetDefault("ntfy_topic", "")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.email", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("listen", "")
	v.SetDefault("silent", false)
	v.SetDefault("analyze", false)
}

// Load reads the JSON config at path, overlays SLOTS_* environment variables and
// the parsed flags, and validates the result.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config file path is required")
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	v.SetEnvPrefix("SLOTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range map[string]string{
			"silent":    "silent",
			"analyze":   "analyze",
			"log_level": "log-level",
			"listen":    "listen",
		} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var raw file
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return build(raw)
}

func build(raw file) (*Config, error) {
	cfg := &Config{
		CommunicationType: strings.ToLower(strings.TrimSpace(raw.CommunicationType)),
		APIBaseURL:        strings.TrimRight(raw.APIBaseURL, "/"),
		APIMode:           strings.ToLower(raw.APIMode),
		Transport:         strings.ToLower(raw.Transport),
		UserAgent:         raw.UserAgent,
		RequestTimeout:    raw.RequestTimeout,
		RequestsPerMinute: raw.RequestsPerMinute,
		Workers:           raw.Workers,
		LookupCutoffHour:  raw.LookupCutoffHour,
		NotifyTTL:         raw.NotifyTTL,
		TextLogPath:       raw.TextLogPath,
		JSONLogPath:       raw.JSONLogPath,
		LockPath:          raw.LockPath,
		NtfyServer:        strings.TrimRight(raw.NtfyServer, "/"),
		NtfyTopic:         raw.NtfyTopic,
		SMTP:              raw.SMTP,
		Receivers:         raw.Receivers,
		Silent:            raw.Silent,
		Analyze:           raw.Analyze,
		DebugLogPath:      raw.DebugLogPath,
		LogLevel:          raw.LogLevel,
		Listen:            raw.Listen,
	}
	if cfg.CommunicationType == "" {
		cfg.CommunicationType = CommunicationSystem
	}
	if cfg.LockPath == "" {
		cfg.LockPath = cfg.TextLogPath + ".lock"
	}

	points, err := parseDataPoints(raw.DataPoints)
	if err != nil {
		return nil, err
	}
	cfg.DataPoints = points

	criteria, err := ParseCriteria(raw.SearchCriteria.MinAgeLimit, raw.SearchCriteria.VaccineName,
		raw.SearchCriteria.FeeType, raw.SearchCriteria.Dose1, raw.SearchCriteria.Dose2)
	if err != nil {
		return nil, err
	}
	cfg.Criteria = criteria

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RequestsPerMinute <= 0 {
		return errors.New("requests_per_minute must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.Workers < 0 {
		return errors.New("workers cannot be negative")
	}
	if c.LookupCutoffHour < 0 || c.LookupCutoffHour > 24 {
		return errors.New("lookup_cutoff_hour must be between 0 and 24")
	}
	if c.TextLogPath == "" {
		return errors.New("text_log_path is required")
	}
	if c.Analyze && c.JSONLogPath == "" {
		return errors.New("json_log_path is required when analysis is enabled")
	}

	switch c.APIMode {
	case APIModeFind, APIModeCalendar:
	default:
		return fmt.Errorf("unsupported api_mode %q", c.APIMode)
	}

	switch c.Transport {
	case TransportHTTP, TransportBrowser:
	default:
		return fmt.Errorf("unsupported transport %q", c.Transport)
	}

	switch c.CommunicationType {
	case CommunicationSystem, CommunicationNone:
	case CommunicationNtfy:
		if c.NtfyTopic == "" {
			return errors.New("ntfy_topic is required for ntfy communication")
		}
	case CommunicationEmail:
		if c.SMTP.Host == "" || c.SMTP.Email == "" || c.SMTP.Password == "" {
			return errors.New("smtp host, email and password are required for email communication")
		}
		if c.SMTP.Port <= 0 {
			return errors.New("smtp port must be a valid port number")
		}
		if len(c.Receivers) == 0 {
			return errors.New("at least one receiver is required for email communication")
		}
		for _, r := range c.Receivers {
			if err := checkmail.ValidateFormat(r); err != nil {
				return fmt.Errorf("invalid receiver %q: %w", r, err)
			}
		}
	default:
		return fmt.Errorf("unsupported communicationType %q", c.CommunicationType)
	}
	return nil
}

// ErrNoDataPoints is returned by Load when the file lists nothing to poll.
var ErrNoDataPoints = errors.New("no data points to poll")

func parseDataPoints(raw []dataPointFile) ([]model.DataPoint, error) {
	if len(raw) == 0 {
		return nil, ErrNoDataPoints
	}
	points := make([]model.DataPoint, 0, len(raw))
	for i, r := range raw {
		dp := model.DataPoint{
			Pincode:    strings.TrimSpace(r.Pincode),
			DistrictID: r.DistrictID,
			Date:       strings.TrimSpace(r.Date),
		}
		if dp.Pincode != "" && dp.DistrictID != 0 {
			return nil, fmt.Errorf("data point %d: set either pincode or district_id, not both", i)
		}
		if dp.Pincode == "" && dp.DistrictID <= 0 {
			return nil, fmt.Errorf("data point %d: pincode or district_id is required", i)
		}
		if dp.Date != "" {
			if _, err := time.Parse(model.DateLayout, dp.Date); err != nil {
				return nil, fmt.Errorf("data point %d: date %q is not DD-MM-YYYY", i, dp.Date)
			}
		}
		points = append(points, dp)
	}
	return points, nil
}

// ParseCriteria turns the comma-separated file values into sets once, at startup.
// A nil dose1 means the key was absent and defaults to true.
func ParseCriteria(ages, vaccines, fees string, dose1 *bool, dose2 bool) (model.SearchCriteria, error) {
	c := model.SearchCriteria{
		Ages:     make(map[int]struct{}),
		Vaccines: make(map[string]struct{}),
		FeeTypes: make(map[model.FeeType]struct{}),
		Dose1:    dose1 == nil || *dose1,
		Dose2:    dose2,
	}

	for _, s := range splitAndTrim(ages) {
		age, err := strconv.Atoi(s)
		if err != nil || age < 0 {
			return c, fmt.Errorf("searchCriteria.minAgeLimit: invalid age %q", s)
		}
		c.Ages[age] = struct{}{}
	}
	for _, s := range splitAndTrim(vaccines) {
		c.Vaccines[strings.ToUpper(s)] = struct{}{}
	}
	for _, s := range splitAndTrim(fees) {
		ft, err := model.ParseFeeType(s)
		if err != nil {
			return c, fmt.Errorf("searchCriteria.feeType: %w", err)
		}
		c.FeeTypes[ft] = struct{}{}
	}

	switch {
	case len(c.Ages) == 0:
		return c, errors.New("searchCriteria.minAgeLimit must list at least one age")
	case len(c.Vaccines) == 0:
		return c, errors.New("searchCriteria.vaccineName must list at least one vaccine")
	case len(c.FeeTypes) == 0:
		return c, errors.New("searchCriteria.feeType must list at least one fee type")
	case !c.Dose1 && !c.Dose2:
		return c, errors.New("searchCriteria must request dose1, dose2 or both")
	}
	return c, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
