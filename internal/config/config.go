package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Database DatabaseConfig `toml:"database"`
	Business BusinessConfig `toml:"business"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port" validate:"gte=0,lte=65535"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir     string `toml:"data_dir" validate:"required"`
	MaxUploadMB int64  `toml:"max_upload_mb" validate:"gt=0"`
}

// DatabaseConfig 数据库配置
// sqlite3 时 DSN 为空则使用数据目录下的 trenpajak.db
type DatabaseConfig struct {
	Driver string `toml:"driver" validate:"oneof=sqlite3 postgres"`
	DSN    string `toml:"dsn" validate:"required_if=Driver postgres"`
}

// BusinessConfig 业务配置
type BusinessConfig struct {
	AssumedYear       int     `toml:"assumed_year" validate:"gte=1900,lte=2999"`
	DefaultMonth      int     `toml:"default_month" validate:"gte=1,lte=12"`
	PaymentDay        int     `toml:"payment_day" validate:"gte=1,lte=28"`
	RevenueMultiplier float64 `toml:"revenue_multiplier" validate:"gt=0"`
	AnomalyThreshold  float64 `toml:"anomaly_threshold" validate:"gt=0"`
	MinGrowth         float64 `toml:"min_growth"`
	MaxGrowth         float64 `toml:"max_growth" validate:"gtfield=MinGrowth"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn warning error"`
	Format string `toml:"format" validate:"oneof=text json"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:     "data",
			MaxUploadMB: 32,
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
		},
		Business: BusinessConfig{
			AssumedYear:       2025,
			DefaultMonth:      1,
			PaymentDay:        15,
			RevenueMultiplier: 10,
			AnomalyThreshold:  0.5,
			MinGrowth:         -1,
			MaxGrowth:         10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverMap, ok := raw["server"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return LoadFrom(filepath.Join(exeDir, "config.toml"))
}

// LoadFrom 从指定路径加载配置
// 顺序：默认值 -> config.toml -> .env / 环境变量，最后做校验
func LoadFrom(configPath string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: configPath}
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, info, fmt.Errorf("解析配置文件失败: %w", err)
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	// .env 不存在时忽略
	_ = godotenv.Load(filepath.Join(filepath.Dir(configPath), ".env"))
	if err := applyEnv(cfg, &info); err != nil {
		return nil, info, err
	}

	if err := Validate(cfg); err != nil {
		return nil, info, err
	}
	return cfg, info, nil
}

// applyEnv 环境变量覆盖
func applyEnv(cfg *AppConfig, info *LoadConfigInfo) error {
	if v := os.Getenv("TRENPAJAK_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("TRENPAJAK_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("TRENPAJAK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TRENPAJAK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRENPAJAK_PORT 无效: %w", err)
		}
		cfg.Server.Port = port
		info.PortSpecified = true
	}
	return nil
}

// Validate 校验配置
func Validate(cfg *AppConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(cfg *AppConfig, configPath string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}

// EnsureDataDir 确保数据目录存在，相对路径以可执行文件目录为基准
func EnsureDataDir(cfg *AppConfig) (string, error) {
	dataDir := cfg.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		exeDir, err := GetExeDir()
		if err != nil {
			exeDir = "."
		}
		dataDir = filepath.Join(exeDir, dataDir)
	}

	for _, dir := range []string{dataDir, filepath.Join(dataDir, "exports")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}
	return dataDir, nil
}

// DatabaseDSN 解析实际使用的 DSN
func DatabaseDSN(cfg *AppConfig, dataDir string) string {
	if cfg.Database.DSN != "" {
		return cfg.Database.DSN
	}
	return filepath.Join(dataDir, "trenpajak.db")
}
