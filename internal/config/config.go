// Package config загружает настройки Textflow.
//
// Порядок источников:
//   - значения по умолчанию (Default)
//   - переменные окружения с префиксом TEXTFLOW_
//
// Флаги CLI применяются поверх результата в internal/cli.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix — префикс переменных окружения.
const EnvPrefix = "TEXTFLOW_"

// Settings — настройки процесса.
type Settings struct {
	Log     LogSettings     `koanf:"log"`
	Engine  EngineSettings  `koanf:"engine"`
	Store   StoreSettings   `koanf:"store"`
	MQ      MQSettings      `koanf:"mq"`
	Metrics MetricsSettings `koanf:"metrics"`
	API     APISettings     `koanf:"api"`
}

// LogSettings — настройки логирования.
type LogSettings struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// EngineSettings — настройки выполнения workflow.
type EngineSettings struct {
	// Workers — число параллельно выполняемых задач.
	Workers int `koanf:"workers" validate:"min=1,max=1024"`
}

// StoreSettings — хранилище отчётов.
type StoreSettings struct {
	// DSN — строка подключения к PostgreSQL. Пустая — отчёты не сохраняются.
	DSN      string `koanf:"dsn"`
	MaxConns int32  `koanf:"max_conns" validate:"min=1"`
}

// Enabled проверяет, настроено ли хранилище.
func (s StoreSettings) Enabled() bool {
	return s.DSN != ""
}

// MQSettings — публикация событий в RabbitMQ.
type MQSettings struct {
	// URL — адрес брокера. Пустой — события не публикуются.
	URL        string        `koanf:"url"`
	MaxBackoff time.Duration `koanf:"max_backoff" validate:"min=0"`
}

// Enabled проверяет, настроен ли брокер.
func (s MQSettings) Enabled() bool {
	return s.URL != ""
}

// MetricsSettings — Prometheus метрики.
type MetricsSettings struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path" validate:"startswith=/"`
}

// APISettings — HTTP API.
type APISettings struct {
	// Addr — адрес, который слушает сервер.
	Addr string `koanf:"addr" validate:"required"`

	// URL — адрес сервера для удалённых команд CLI.
	URL string `koanf:"url" validate:"required,url"`

	// MaxBodyBytes — максимальный размер определения в запросе.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"min=1"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
}

// Default возвращает настройки по умолчанию.
func Default() Settings {
	return Settings{
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
		Engine: EngineSettings{
			Workers: 4,
		},
		Store: StoreSettings{
			MaxConns: 10,
		},
		MQ: MQSettings{
			MaxBackoff: 30 * time.Second,
		},
		Metrics: MetricsSettings{
			Enabled: true,
			Path:    "/metrics",
		},
		API: APISettings{
			Addr:            ":8080",
			URL:             "http://localhost:8080",
			MaxBodyBytes:    1 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load загружает настройки из значений по умолчанию и окружения.
func Load() (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKey(key), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var s Settings
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &s,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// envKey преобразует имя переменной в путь koanf:
// TEXTFLOW_API_MAX_BODY_BYTES -> api.max_body_bytes.
// Переменные без раздела пропускаются.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok || section == "" || field == "" {
		return ""
	}
	return section + "." + field
}

var validate = validator.New()

// Validate проверяет настройки.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}
