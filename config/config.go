package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

type WebConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	JwtSecret string `yaml:"jwt_secret"`
}

type DBConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type SmtpConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// VerifyURL is the externally reachable base for verification links.
	VerifyURL string `yaml:"verify_url"`
}

type AppConfig struct {
	System   SysConfig  `yaml:"system" json:"system"`
	Web      WebConfig  `yaml:"web" json:"web"`
	Database DBConfig   `yaml:"database" json:"database"`
	Logger   LogConfig  `yaml:"logger" json:"logger"`
	Smtp     SmtpConfig `yaml:"smtp" json:"smtp"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "prodsync",
		Location: "Asia/Ho_Chi_Minh",
		Workdir:  "/var/prodsync",
		Debug:    true,
	},
	Web: WebConfig{
		Host: "0.0.0.0",
		Port: 1816,
		// JwtSecret empty by default; the application falls back to the
		// PRODSYNC_SECRET instance secret.
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "prodsync",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/prodsync/prodsync.log",
	},
	Smtp: SmtpConfig{
		Host:      "127.0.0.1",
		Port:      25,
		From:      "no-reply@prodsync.local",
		VerifyURL: "http://127.0.0.1:1816",
	},
}

func setEnvValue(name string, f func(v string)) {
	if v, ok := os.LookupEnv(name); ok {
		f(v)
	}
}

func setEnvBoolValue(name string, f func(v bool)) {
	if v, ok := os.LookupEnv(name); ok {
		f(cast.ToBool(v))
	}
}

func setEnvIntValue(name string, f func(v int)) {
	if v, ok := os.LookupEnv(name); ok {
		f(cast.ToInt(v))
	}
}

// LoadConfig reads the yaml config file and applies PRODSYNC_* environment
// overrides. A missing file yields the default configuration.
func LoadConfig(cfile string) *AppConfig {
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	setEnvValue("PRODSYNC_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvBoolValue("PRODSYNC_SYSTEM_DEBUG", func(v bool) { cfg.System.Debug = v })
	setEnvValue("PRODSYNC_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvIntValue("PRODSYNC_WEB_PORT", func(v int) { cfg.Web.Port = v })
	setEnvValue("PRODSYNC_WEB_JWT_SECRET", func(v string) { cfg.Web.JwtSecret = v })
	setEnvValue("PRODSYNC_DB_TYPE", func(v string) { cfg.Database.Type = v })
	setEnvValue("PRODSYNC_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvIntValue("PRODSYNC_DB_PORT", func(v int) { cfg.Database.Port = v })
	setEnvValue("PRODSYNC_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("PRODSYNC_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("PRODSYNC_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvValue("PRODSYNC_SMTP_HOST", func(v string) { cfg.Smtp.Host = v })
	setEnvIntValue("PRODSYNC_SMTP_PORT", func(v int) { cfg.Smtp.Port = v })
	setEnvValue("PRODSYNC_SMTP_USERNAME", func(v string) { cfg.Smtp.Username = v })
	setEnvValue("PRODSYNC_SMTP_PASSWORD", func(v string) { cfg.Smtp.Password = v })
	setEnvValue("PRODSYNC_SMTP_FROM", func(v string) { cfg.Smtp.From = v })

	return cfg
}

// InitDirs creates the runtime directory layout under the workdir.
func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, "logs"), 0o755)
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, "data"), 0o755)
}

func (c *AppConfig) GetLogDir() string {
	return filepath.Join(c.System.Workdir, "logs")
}
