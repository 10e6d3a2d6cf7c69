// Package config loads the pairgate application config from YAML.
// Environment overrides (PAIRGATE_*) take precedence over the file.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

type DBConfig struct {
	Type   string `yaml:"type" json:"type"`
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	Name   string `yaml:"name" json:"name"`
	User   string `yaml:"user" json:"user"`
	Passwd string `yaml:"passwd" json:"passwd"`
}

// ArchiveConfig configures the S3-compatible object store holding sealed
// credential bundles. AccessKey/SecretKey must come from this config or the
// environment; they are never embedded in the binary.
type ArchiveConfig struct {
	Bucket     string `yaml:"bucket" json:"bucket"`
	Prefix     string `yaml:"prefix" json:"prefix"`
	Region     string `yaml:"region" json:"region"`
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	PathStyle  bool   `yaml:"path_style" json:"path_style"`
	AccessKey  string `yaml:"access_key" json:"-"`
	SecretKey  string `yaml:"secret_key" json:"-"`
	PublicHost string `yaml:"public_host" json:"public_host"`
	Tag        string `yaml:"tag" json:"tag"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system" json:"system"`
	Web      WebConfig     `yaml:"web" json:"web"`
	Database DBConfig      `yaml:"database" json:"database"`
	Archive  ArchiveConfig `yaml:"archive" json:"archive"`
	Logger   LogConfig     `yaml:"logger" json:"logger"`
}

// DefaultAppConfig returns the built-in defaults used when no config file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "pairgate",
			Location: "Asia/Jakarta",
			Workdir:  "/var/pairgate",
			Debug:    false,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 1897,
		},
		Database: DBConfig{
			Type: "sqlite",
			Name: "pairgate",
		},
		Archive: ArchiveConfig{
			Region:     "us-east-1",
			PublicHost: "",
			Tag:        "SESS",
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
			Filename:   "/var/pairgate/pairgate.log",
		},
	}
}

// LoadConfig reads the YAML config at path and applies environment overrides.
// A missing file is not an error; defaults plus environment apply.
func LoadConfig(path string) *AppConfig {
	cfg := DefaultAppConfig()
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, cfg)
		}
	}
	setEnvString(&cfg.System.Workdir, "PAIRGATE_WORKDIR")
	setEnvString(&cfg.System.Location, "PAIRGATE_LOCATION")
	setEnvString(&cfg.Web.Host, "PAIRGATE_WEB_HOST")
	setEnvInt(&cfg.Web.Port, "PAIRGATE_WEB_PORT")
	setEnvString(&cfg.Database.Type, "PAIRGATE_DB_TYPE")
	setEnvString(&cfg.Database.Host, "PAIRGATE_DB_HOST")
	setEnvInt(&cfg.Database.Port, "PAIRGATE_DB_PORT")
	setEnvString(&cfg.Database.Name, "PAIRGATE_DB_NAME")
	setEnvString(&cfg.Database.User, "PAIRGATE_DB_USER")
	setEnvString(&cfg.Database.Passwd, "PAIRGATE_DB_PASSWD")
	setEnvString(&cfg.Archive.Bucket, "PAIRGATE_ARCHIVE_BUCKET")
	setEnvString(&cfg.Archive.Prefix, "PAIRGATE_ARCHIVE_PREFIX")
	setEnvString(&cfg.Archive.Region, "PAIRGATE_ARCHIVE_REGION")
	setEnvString(&cfg.Archive.Endpoint, "PAIRGATE_ARCHIVE_ENDPOINT")
	setEnvString(&cfg.Archive.AccessKey, "PAIRGATE_ARCHIVE_ACCESS_KEY")
	setEnvString(&cfg.Archive.SecretKey, "PAIRGATE_ARCHIVE_SECRET_KEY")
	setEnvString(&cfg.Archive.PublicHost, "PAIRGATE_ARCHIVE_PUBLIC_HOST")
	setEnvString(&cfg.Archive.Tag, "PAIRGATE_ARCHIVE_TAG")
	setEnvString(&cfg.Logger.Mode, "PAIRGATE_LOGGER_MODE")

	if cfg.Logger.Filename == "" {
		cfg.Logger.Filename = filepath.Join(cfg.System.Workdir, "pairgate.log")
	}
	return cfg
}

func setEnvString(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func setEnvInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
