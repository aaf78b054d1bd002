package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	GeneralParams    GeneralParams
	HttpServerParams HttpServerParams
	MainDBParams     MainDBParams
	MongoParams      MongoParams
	S3Params         S3Params
	SignalingParams  SignalingParams
	RTCParams        RTCParams
}

type GeneralParams struct {
	Env       string
	SecretKey string
	LogLevel  string
}

type HttpServerParams struct {
	Address        string
	Port           string
	AllowedOrigins []string
}

type MainDBParams struct {
	Username string
	Password string
	Name     string
	Port     int
	Host     string
	Timeout  int
}

// MongoParams points at the document store holding meeting records.
// An empty URI runs the server without persisted meetings.
type MongoParams struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type S3Params struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	URLExpiry       time.Duration
}

type SignalingParams struct {
	AllowGuests    bool
	LookupTimeout  time.Duration
	PersistTimeout time.Duration
	SendBuffer     int
	MaxMessageSize int64
	RateLimit      float64
	RateBurst      int
}

type RTCParams struct {
	ICEServers []ICEServer
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type ConfigManager struct {
	v      *viper.Viper
	config *Config
}

// NewConfigManager creates new config manager that handles
// all viper config options and loads a config from yaml.
// Variables from a .env file in the working directory are loaded first.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cm := &ConfigManager{v: v}

	if err := cm.loadConfig(); err != nil {
		return nil, err
	}

	return cm, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general_params.env", "dev")
	v.SetDefault("http_server_params.http_server_address", "0.0.0.0")
	v.SetDefault("http_server_params.http_server_port", "8080")
	v.SetDefault("http_server_params.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("mongo_params.database", "laba_meet")
	v.SetDefault("mongo_params.timeout", "5s")
	v.SetDefault("s3_params.url_expiry", "15m")
	v.SetDefault("signaling_params.allow_guests", true)
	v.SetDefault("signaling_params.lookup_timeout", "3s")
	v.SetDefault("signaling_params.persist_timeout", "5s")
	v.SetDefault("signaling_params.send_buffer", 256)
	v.SetDefault("signaling_params.max_message_size", 64*1024)
	v.SetDefault("signaling_params.rate_limit", 50)
	v.SetDefault("signaling_params.rate_burst", 100)
}

// Extracting data from yaml file and loading into Config
func (cm *ConfigManager) loadConfig() error {
	cm.config = &Config{
		GeneralParams: GeneralParams{
			Env:       cm.v.GetString("general_params.env"),
			SecretKey: cm.v.GetString("general_params.secret_key"),
			LogLevel:  cm.v.GetString("general_params.log_level"),
		},
		HttpServerParams: HttpServerParams{
			Address:        cm.v.GetString("http_server_params.http_server_address"),
			Port:           cm.v.GetString("http_server_params.http_server_port"),
			AllowedOrigins: cm.v.GetStringSlice("http_server_params.allowed_origins"),
		},
		MainDBParams: MainDBParams{
			Username: cm.v.GetString("main_db_params.db_username"),
			Password: cm.v.GetString("main_db_params.db_password"),
			Name:     cm.v.GetString("main_db_params.db_name"),
			Port:     cm.v.GetInt("main_db_params.db_port"),
			Host:     cm.v.GetString("main_db_params.db_host"),
			Timeout:  cm.v.GetInt("main_db_params.db_timeout"),
		},
		MongoParams: MongoParams{
			URI:      cm.v.GetString("mongo_params.uri"),
			Database: cm.v.GetString("mongo_params.database"),
			Timeout:  cm.v.GetDuration("mongo_params.timeout"),
		},
		S3Params: S3Params{
			Endpoint:        cm.v.GetString("s3_params.endpoint"),
			AccessKeyID:     cm.v.GetString("s3_params.access_key_id"),
			SecretAccessKey: cm.v.GetString("s3_params.secret_access_key"),
			UseSSL:          cm.v.GetBool("s3_params.use_ssl"),
			BucketName:      cm.v.GetString("s3_params.bucket_name"),
			URLExpiry:       cm.v.GetDuration("s3_params.url_expiry"),
		},
		SignalingParams: SignalingParams{
			AllowGuests:    cm.v.GetBool("signaling_params.allow_guests"),
			LookupTimeout:  cm.v.GetDuration("signaling_params.lookup_timeout"),
			PersistTimeout: cm.v.GetDuration("signaling_params.persist_timeout"),
			SendBuffer:     cm.v.GetInt("signaling_params.send_buffer"),
			MaxMessageSize: cm.v.GetInt64("signaling_params.max_message_size"),
			RateLimit:      cm.v.GetFloat64("signaling_params.rate_limit"),
			RateBurst:      cm.v.GetInt("signaling_params.rate_burst"),
		},
	}

	if err := cm.v.UnmarshalKey("rtc_params.ice_servers", &cm.config.RTCParams.ICEServers); err != nil {
		return fmt.Errorf("failed to parse rtc_params.ice_servers: %w", err)
	}

	return nil
}

// Geting config instance
func (cm *ConfigManager) GetConfig() *Config {
	return cm.config
}

// Compiling a string to connect to main_db
func (db *MainDBParams) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=%d&sslmode=disable",
		db.Username,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
		db.Timeout,
	)
}

func (h *HttpServerParams) GetAddress() string {
	return fmt.Sprintf(
		"%s:%s",
		h.Address,
		h.Port,
	)
}

// Enabled reports whether an object store is configured
func (s *S3Params) Enabled() bool {
	return s.Endpoint != ""
}

func (c *Config) Validate() error {
	// Checking secret key
	if c.GeneralParams.SecretKey == "" {
		return fmt.Errorf("parameter secret_key is required")
	}

	// Checking out enviroment variable
	switch c.GeneralParams.Env {
	case "dev", "prod", "test":
	default:
		return fmt.Errorf("env parameter is invalid: %s. try dev/prod/test instead", c.GeneralParams.Env)
	}

	// Checking http server parameters
	if c.HttpServerParams.Address == "" {
		return fmt.Errorf("http server address is required")
	}
	if c.HttpServerParams.Port == "" {
		return fmt.Errorf("http server port is required")
	}

	// Checking MainDbparams
	for name, mainDbConf := range map[string]MainDBParams{
		"MainDB": c.MainDBParams,
	} {
		if mainDbConf.Host == "" {
			return fmt.Errorf("%s: host is required", name)
		}
		if mainDbConf.Username == "" {
			return fmt.Errorf("%s: username is required", name)
		}
		if mainDbConf.Password == "" {
			return fmt.Errorf("%s: password is requred", name)
		}
		if mainDbConf.Port <= 0 || mainDbConf.Port > 65535 {
			return fmt.Errorf("%s: port is invalid", name)
		}
	}

	if c.MongoParams.URI != "" && c.MongoParams.Database == "" {
		return fmt.Errorf("mongo database name is required")
	}

	// S3 is optional, but a configured endpoint needs credentials
	if c.S3Params.Enabled() {
		if c.S3Params.AccessKeyID == "" {
			return fmt.Errorf("S3 access_key id is required")
		}
		if c.S3Params.SecretAccessKey == "" {
			return fmt.Errorf("S3 secret_access_key is required")
		}
		if c.S3Params.BucketName == "" {
			return fmt.Errorf("S3 bucket name is required")
		}
	}

	if c.SignalingParams.SendBuffer <= 0 {
		return fmt.Errorf("signaling send_buffer must be positive")
	}
	if c.SignalingParams.RateLimit <= 0 || c.SignalingParams.RateBurst <= 0 {
		return fmt.Errorf("signaling rate_limit and rate_burst must be positive")
	}

	for i, s := range c.RTCParams.ICEServers {
		if len(s.URLs) == 0 {
			return fmt.Errorf("rtc ice server %d has no urls", i)
		}
	}

	return nil
}
