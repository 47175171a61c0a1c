// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config - главная структура конфигурации
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Collector CollectorConfig `koanf:"collector"`
	Web       WebConfig       `koanf:"web"`
	MetaWeb   MetaWebConfig   `koanf:"metaweb"`
	Log       LogConfig       `koanf:"log"`
}

// DatabaseConfig - настройки базы данных
type DatabaseConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"ssl_mode"`

	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrationsPath  string        `koanf:"migrations_path"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN возвращает libpq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
	)
}

// CredentialPair - сообщество только для чтения и для записи
type CredentialPair struct {
	RO string
	RW string
}

// fromAny поддерживает две формы YAML для lb-записи:
//
//	lb1: public          # один community на чтение и запись
//	lb2: [public, private]
func (c *CredentialPair) fromAny(v any) error {
	switch val := v.(type) {
	case string:
		c.RO, c.RW = val, val
		return nil
	case []any:
		if len(val) == 0 || len(val) > 2 {
			return fmt.Errorf("collector.lb entry must have 1 or 2 elements, got %d", len(val))
		}
		ro, ok := val[0].(string)
		if !ok {
			return fmt.Errorf("collector.lb entry must be strings")
		}
		c.RO = ro
		if len(val) == 2 {
			rw, ok := val[1].(string)
			if !ok {
				return fmt.Errorf("collector.lb entry must be strings")
			}
			c.RW = rw
		} else {
			c.RW = ro
		}
		return nil
	default:
		return fmt.Errorf("collector.lb entry must be a string or a 1-2 element list, got %T", v)
	}
}

// CollectorConfig - настройки SNMP-коллектора
type CollectorConfig struct {
	Enabled bool `koanf:"enabled"`
	// Bulk переключает между GETBULK и эмулированным циклом GETNEXT.
	Bulk bool `koanf:"bulk"`
	// LB отображает имя балансировщика на community-строки (ro[, rw]).
	LB map[string]CredentialPair `koanf:"-"`
	// Expire - возраст кэшированных данных в днях, после которого коллектор
	// считает их устаревшими.
	Expire int `koanf:"expire"`

	// rawLB хранит значение как его раскладывает koanf, до нормализации в LB.
	rawLB map[string]any `koanf:"lb"`
}

// normalizeLB раскладывает rawLB (any в YAML: строка или список) в LB.
func (c *CollectorConfig) normalizeLB() error {
	if c.rawLB == nil {
		return nil
	}
	c.LB = make(map[string]CredentialPair, len(c.rawLB))
	for name, raw := range c.rawLB {
		var pair CredentialPair
		if err := pair.fromAny(raw); err != nil {
			return fmt.Errorf("collector.lb.%s: %w", name, err)
		}
		c.LB[name] = pair
	}
	return nil
}

// WebConfig - настройки HTTP API (C8)
type WebConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Interface string `koanf:"interface"`
	Port      int    `koanf:"port"`
}

// Address возвращает адрес прослушивания
func (w WebConfig) Address() string {
	return fmt.Sprintf("%s:%d", w.Interface, w.Port)
}

// MetaWebConfig - настройки федеративного прокси (C9)
type MetaWebConfig struct {
	Interface string        `koanf:"interface"`
	Port      int           `koanf:"port"`
	Proxy     []string      `koanf:"proxy"`
	Timeout   time.Duration `koanf:"timeout"`
	Parallel  int           `koanf:"parallel"`
	Expire    time.Duration `koanf:"expire"`
}

// Address возвращает адрес прослушивания
func (m MetaWebConfig) Address() string {
	return fmt.Sprintf("%s:%d", m.Interface, m.Port)
}

// LogConfig - настройки логирования (не часть внешнего контракта §6,
// но нужна каждому процессу одинаково — живёт рядом с остальной конфигурацией)
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// Validate проверяет конфигурацию, собирая все нарушения в одну ошибку
func (c *Config) Validate() error {
	var errs []string

	if err := c.Collector.normalizeLB(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required when database.enabled")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be between 1 and 65535, got %d", c.Database.Port))
		}
	}

	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		errs = append(errs, fmt.Sprintf("web.port must be between 1 and 65535, got %d", c.Web.Port))
	}

	if c.MetaWeb.Port <= 0 || c.MetaWeb.Port > 65535 {
		errs = append(errs, fmt.Sprintf("metaweb.port must be between 1 and 65535, got %d", c.MetaWeb.Port))
	}

	if c.MetaWeb.Parallel <= 0 {
		errs = append(errs, "metaweb.parallel must be positive")
	}

	if c.Collector.Expire <= 0 {
		errs = append(errs, "collector.expire must be positive")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
