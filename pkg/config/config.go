// Package config конфигурация утилиты sofia-message: адрес агента,
// таймаут шага реактора, логирование, метрики и журнал сообщений.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arzzra/sofia_sip/pkg/su"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

// Config корневая конфигурация
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Reactor ReactorConfig `yaml:"reactor"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Journal JournalConfig `yaml:"journal"`
}

// AgentConfig параметры nua агента
type AgentConfig struct {
	URL      string `yaml:"url"`      // nua::url, адрес привязки
	Username string `yaml:"username"` // nua::m_username
	Display  string `yaml:"display"`  // nua::m_display
}

type ReactorConfig struct {
	StepTimeout time.Duration `yaml:"step_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // пусто - HTTP сервер метрик не запускается
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			URL:      "sip:127.0.0.1:5060",
			Username: "sofia",
		},
		Reactor: ReactorConfig{
			StepTimeout: su.DefaultStepTimeout,
		},
		Log: LogConfig{
			Level: "info",
		},
		Journal: JournalConfig{
			Path: "sofia-message.db",
		},
	}
}

// Load читает YAML поверх значений по умолчанию. Неизвестные ключи
// считаются ошибкой.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("конфигурация %s: %w", path, err)
	}
	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Agent.URL == "" {
		return fmt.Errorf("agent.url не может быть пустым")
	}
	if _, err := tag.NuURL(c.Agent.URL); err != nil {
		return fmt.Errorf("agent.url: %w", err)
	}
	if c.Reactor.StepTimeout <= 0 || c.Reactor.StepTimeout >= su.MaxStepTimeout {
		return fmt.Errorf("reactor.step_timeout должен быть в интервале (0, %s)", su.MaxStepTimeout)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Journal.Path == "" {
		return fmt.Errorf("journal.path не может быть пустым")
	}
	return nil
}

// LogLevel уровень slog. Некорректное значение дает Info.
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: неизвестный уровень %q", s)
	}
	return level, nil
}

// AgentTags теги создания агента
func (c *Config) AgentTags() (tag.List, error) {
	b := tag.NewBuilder()

	url, err := tag.NuURL(c.Agent.URL)
	if err != nil {
		return tag.List{}, err
	}
	b = b.Tag(url)

	if c.Agent.Username != "" {
		t, err := tag.NuMUsername(c.Agent.Username)
		if err != nil {
			return tag.List{}, err
		}
		b = b.Tag(t)
	}
	if c.Agent.Display != "" {
		t, err := tag.NuMDisplay(c.Agent.Display)
		if err != nil {
			return tag.List{}, err
		}
		b = b.Tag(t)
	}
	return b.Collect(), nil
}
