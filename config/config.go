package config

import (
	"fmt"
	"os"
	"path"

	"github.com/abcfe/abcfe-metadata/common/utils"
	"github.com/kelseyhightower/envconfig"
	"github.com/naoina/toml"
)

// Prefix for environment overrides of the Metadata section, e.g. ABCFE_METADATA_ENDPOINT
const EnvPrefix = "ABCFE_METADATA"

type Common struct {
	Level       string // local, dev, alpha, prod
	ServiceName string
}

type LogInfo struct {
	Path       string
	MaxAgeHour int
	RotateHour int
}

type DB struct {
	Path string
}

type Wallet struct {
	Path string // keystore directory
}

// Metadata client side settings
type Metadata struct {
	Endpoint          string `toml:"Endpoint" envconfig:"ENDPOINT"`                     // store base url, e.g. https://api.example.com
	RetryDelayMs      int    `toml:"RetryDelayMs" envconfig:"RETRY_DELAY_MS"`           // fixed wait before the single write retry
	RequestTimeoutSec int    `toml:"RequestTimeoutSec" envconfig:"REQUEST_TIMEOUT_SEC"` // http client timeout
}

type Server struct {
	RestPort         int `toml:"RestPort"`
	ReadsPerSecond   int `toml:"ReadsPerSecond"`
	WritesPerSecond  int `toml:"WritesPerSecond"`
	BurstSize        int `toml:"BurstSize"`
	BanDurationSec   int `toml:"BanDurationSec"`
	MaxPayloadBytes  int `toml:"MaxPayloadBytes"`
	ShutdownTimeoutS int `toml:"ShutdownTimeoutSec"`
}

type Config struct {
	Common   Common
	LogInfo  LogInfo
	DB       DB
	Wallet   Wallet
	Metadata Metadata
	Server   Server
}

func NewConfig(filepath string) (*Config, error) {
	if filepath == "" {
		workDir, _ := os.Getwd()
		rootDir := utils.FindProjectRoot(workDir)
		filepath = path.Join(rootDir, "config", "config.toml")
	}

	file, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	c := Default()
	if err := toml.NewDecoder(file).Decode(c); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", filepath, err)
	}

	if err := envconfig.Process(EnvPrefix, &c.Metadata); err != nil {
		return nil, fmt.Errorf("failed to process env overrides: %w", err)
	}

	c.sanitize()
	return c, nil
}

// Default returns the settings used for keys missing from the file
func Default() *Config {
	return &Config{
		Common: Common{
			Level:       "prod",
			ServiceName: "abcfe-metadata",
		},
		LogInfo: LogInfo{
			Path:       "~/.abcfe-metadata/log/metadata",
			MaxAgeHour: 24 * 7,
			RotateHour: 24,
		},
		DB: DB{
			Path: "~/.abcfe-metadata/db/",
		},
		Wallet: Wallet{
			Path: "~/.abcfe-metadata/wallet",
		},
		Metadata: Metadata{
			Endpoint:          "http://localhost:8600",
			RetryDelayMs:      1000,
			RequestTimeoutSec: 15,
		},
		Server: Server{
			RestPort:         8600,
			ReadsPerSecond:   50,
			WritesPerSecond:  5,
			BurstSize:        20,
			BanDurationSec:   60,
			MaxPayloadBytes:  1 << 20,
			ShutdownTimeoutS: 5,
		},
	}
}

func (p *Config) sanitize() {
	p.LogInfo.Path = utils.ExpandHome(p.LogInfo.Path)
	p.DB.Path = utils.ExpandHome(p.DB.Path)
	p.Wallet.Path = utils.ExpandHome(p.Wallet.Path)

	if p.Metadata.RetryDelayMs < 0 {
		p.Metadata.RetryDelayMs = 0
	}
	if p.Metadata.RequestTimeoutSec <= 0 {
		p.Metadata.RequestTimeoutSec = Default().Metadata.RequestTimeoutSec
	}
}
