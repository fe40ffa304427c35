package config

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v2"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	Secret    string `yaml:"secret" json:"secret"`
	JwtExpire int    `yaml:"jwt_expire" json:"jwt_expire"` // hours
}

type DBConfig struct {
	Type    string `yaml:"type" json:"type"`
	Host    string `yaml:"host" json:"host"`
	Port    int    `yaml:"port" json:"port"`
	Name    string `yaml:"name" json:"name"`
	User    string `yaml:"user" json:"user"`
	Passwd  string `yaml:"passwd" json:"passwd"`
	MaxConn int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int   `yaml:"idle_conn" json:"idle_conn"`
	Debug   bool   `yaml:"debug" json:"debug"`
}

type SmtpConfig struct {
	// Provider selects the outbound mail transport: smtp or demo.
	// demo logs messages to the console instead of sending.
	Provider string `yaml:"provider" json:"provider"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	From     string `yaml:"from" json:"from"`
	FromName string `yaml:"from_name" json:"from_name"`
}

type StoreConfig struct {
	Currency     string  `yaml:"currency" json:"currency"`
	TaxRate      float64 `yaml:"tax_rate" json:"tax_rate"`
	BaseShipping float64 `yaml:"base_shipping" json:"base_shipping"`
	// FreeShippingOver zeroes base shipping for subtotals at or above
	// this amount; 0 disables the rule.
	FreeShippingOver float64 `yaml:"free_shipping_over" json:"free_shipping_over"`
}

type PaymentConfig struct {
	// Mode is gateway or demo; demo approves every authorization after
	// a short simulated delay.
	Mode       string `yaml:"mode" json:"mode"`
	GatewayURL string `yaml:"gateway_url" json:"gateway_url"`
	ApiKey     string `yaml:"api_key" json:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec" json:"timeout_sec"`
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
	Smtp     SmtpConfig    `yaml:"smtp" json:"smtp"`
	Store    StoreConfig   `yaml:"store" json:"store"`
	Payment  PaymentConfig `yaml:"payment" json:"payment"`
	Logger   LogConfig     `yaml:"logger" json:"logger"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(path.Join(c.System.Workdir, "logs"), 0755)
	_ = os.MkdirAll(path.Join(c.System.Workdir, "data"), 0755)
	_ = os.MkdirAll(path.Join(c.System.Workdir, "metrics"), 0755)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "eazybuy",
		Location: "America/New_York",
		Workdir:  "/var/eazybuy",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1816,
		Secret:    "9b6de5cc-demo-1816-a123-0f568ac9da37",
		JwtExpire: 24,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "eazybuy",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Smtp: SmtpConfig{
		Provider: "demo",
		Host:     "smtp.example.org",
		Port:     587,
		From:     "noreply@eazybuy.example.org",
		FromName: "EazyBuy",
	},
	Store: StoreConfig{
		Currency:         "USD",
		TaxRate:          0.08,
		BaseShipping:     9.99,
		FreeShippingOver: 100,
	},
	Payment: PaymentConfig{
		Mode:       "demo",
		TimeoutSec: 15,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/eazybuy/logs/eazybuy.log",
	},
}

func setEnvValue(name string, f func(v string)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(evalue)
	}
}

func setEnvInt64Value(name string, f func(v int64)) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	var p int64
	if _, err := fmt.Sscanf(evalue, "%d", &p); err == nil {
		f(p)
	}
}

// LoadConfig loads configuration from cfile, falling back to
// /etc/eazybuy.yml and finally the built-in defaults. Environment
// variables override file values.
func LoadConfig(cfile string) *AppConfig {
	if cfile == "" {
		cfile = "eazybuy.yml"
	}
	if !fileExists(cfile) {
		cfile = "/etc/eazybuy.yml"
	}
	cfg := new(AppConfig)
	if fileExists(cfile) {
		data, err := os.ReadFile(cfile)
		if err != nil {
			panic(err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			panic(err)
		}
	} else {
		cfg = DefaultAppConfig
	}

	setEnvValue("EAZYBUY_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("EAZYBUY_SYSTEM_DEBUG", func(v string) { cfg.System.Debug = v == "true" })
	setEnvValue("EAZYBUY_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvValue("EAZYBUY_WEB_SECRET", func(v string) { cfg.Web.Secret = v })
	setEnvInt64Value("EAZYBUY_WEB_PORT", func(v int64) { cfg.Web.Port = int(v) })
	setEnvValue("EAZYBUY_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvInt64Value("EAZYBUY_DB_PORT", func(v int64) { cfg.Database.Port = int(v) })
	setEnvValue("EAZYBUY_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("EAZYBUY_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("EAZYBUY_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvValue("EAZYBUY_SMTP_PROVIDER", func(v string) { cfg.Smtp.Provider = v })
	setEnvValue("EAZYBUY_SMTP_HOST", func(v string) { cfg.Smtp.Host = v })
	setEnvInt64Value("EAZYBUY_SMTP_PORT", func(v int64) { cfg.Smtp.Port = int(v) })
	setEnvValue("EAZYBUY_SMTP_USERNAME", func(v string) { cfg.Smtp.Username = v })
	setEnvValue("EAZYBUY_SMTP_PASSWORD", func(v string) { cfg.Smtp.Password = v })
	setEnvValue("EAZYBUY_PAYMENT_MODE", func(v string) { cfg.Payment.Mode = v })
	setEnvValue("EAZYBUY_PAYMENT_GATEWAY_URL", func(v string) { cfg.Payment.GatewayURL = v })

	return cfg
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
