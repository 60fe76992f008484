package config

import (
	"fmt"
	neturl "net/url"
	"strings"
)

const (
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "inkpress"
	defaultDBCharset  = "utf8mb4"

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
)

// DatabaseConfig configures the MySQL connection.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
}

func (c *DatabaseConfig) applyDefaults() {
	if c.Host == "" {
		c.Host = defaultDBHost
	}
	if c.Port == 0 {
		c.Port = defaultDBPort
	}
	if c.User == "" {
		c.User = defaultDBUser
	}
	if c.Password == "" {
		c.Password = defaultDBPassword
	}
	if c.Name == "" {
		c.Name = defaultDBName
	}
	if c.Charset == "" {
		c.Charset = defaultDBCharset
	}
}

// DSNValue returns the MySQL DSN, preferring an explicit dsn entry.
func (c DatabaseConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	params := neturl.Values{}
	params.Set("charset", c.Charset)
	params.Set("parseTime", "true")
	params.Set("loc", "Local")

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.User, c.Password, c.Host, c.Port, c.Name, params.Encode())
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (c *RedisConfig) applyDefaults() {
	if c.Host == "" {
		c.Host = defaultRedisHost
	}
	if c.Port == 0 {
		c.Port = defaultRedisPort
	}
}

// URLValue returns the Redis connection URL, preferring an explicit url entry.
func (c RedisConfig) URLValue() string {
	if v := strings.TrimSpace(c.URL); v != "" {
		return v
	}
	auth := ""
	if c.Password != "" {
		auth = ":" + neturl.QueryEscape(c.Password) + "@"
	}
	return fmt.Sprintf("redis://%s%s:%d/%d", auth, c.Host, c.Port, c.DB)
}
