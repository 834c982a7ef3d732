package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"whodunit-be/internal/service/game"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DEFAULT_CONFIG_FILE = "app_config"
	ENV_PREFIX          = "WHODUNIT"
)

type AppConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	StaticDir string `mapstructure:"static_dir"`

	TiebreakDepth  int    `mapstructure:"tiebreak_depth"`
	LynchTiePolicy string `mapstructure:"lynch_tie_policy"`
	ShuffleRoles   bool   `mapstructure:"shuffle_roles"`
	AutoEndGame    bool   `mapstructure:"auto_end_game"`

	RoomIdleMinutes int `mapstructure:"room_idle_minutes"`
	RequestBuffer   int `mapstructure:"request_buffer"`
}

var cfg *AppConfig

// GetConfig 返回已加载的配置，首次调用时加载
func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

// InitConfig 读取 .env、配置文件和环境变量，失败时直接 panic
// 配置文件路径可以通过 WHODUNIT_CONFIG 指定
func InitConfig() *AppConfig {
	// .env 只是可选的，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Errorf("加载 .env 失败: %w", err))
	}

	path := os.Getenv(ENV_PREFIX + "_CONFIG")
	if path == "" {
		path = DEFAULT_CONFIG_FILE
	}

	config, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}

	cfg = config
	return config
}

// LoadConfig 按 默认值 < 配置文件 < 环境变量 的优先级合并配置
// 配置文件不存在时只使用默认值和环境变量
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.AddConfigPath(".")

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("static_dir", "./whodunit-fe")

	v.SetDefault("tiebreak_depth", 3)
	v.SetDefault("lynch_tie_policy", string(game.TIE_TIEBREAKER))
	v.SetDefault("shuffle_roles", false)
	v.SetDefault("auto_end_game", false)

	v.SetDefault("room_idle_minutes", 30)
	v.SetDefault("request_buffer", 64)
}

// BuildRules 在默认规则表上应用配置项，并做启动期校验
func (c *AppConfig) BuildRules() (*game.Rules, error) {
	rules := game.DefaultRules()

	rules.TiebreakDepth = c.TiebreakDepth

	if c.LynchTiePolicy != "" {
		rules.Events[game.EVENT_LYNCH].TiePolicy = game.TiePolicy(strings.ToUpper(c.LynchTiePolicy))
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}

	return rules, nil
}
