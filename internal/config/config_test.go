package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Format != LogFormatJSON {
		t.Errorf("expected default log format %q, got %q", LogFormatJSON, cfg.Log.Format)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("expected default server addr 127.0.0.1:9000, got %q", cfg.Server.Addr)
	}
	if cfg.DB.Port != 5432 {
		t.Errorf("expected default db port 5432, got %d", cfg.DB.Port)
	}
	if cfg.Email.Workers != 1 {
		t.Errorf("expected default email workers 1, got %d", cfg.Email.Workers)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
db:
  host: db.internal
  dbname: gitjobs_prod
log:
  format: pretty
email:
  from_address: jobs@example.org
  from_name: GitJobs
  smtp:
    host: smtp.example.org
    port: 465
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DB.Host != "db.internal" {
		t.Errorf("expected db host db.internal, got %q", cfg.DB.Host)
	}
	if cfg.DB.DBName != "gitjobs_prod" {
		t.Errorf("expected db name gitjobs_prod, got %q", cfg.DB.DBName)
	}
	if cfg.Log.Format != LogFormatPretty {
		t.Errorf("expected log format pretty, got %q", cfg.Log.Format)
	}
	if cfg.Email.SMTP.Port != 465 {
		t.Errorf("expected smtp port 465, got %d", cfg.Email.SMTP.Port)
	}
	// Values not in the file keep their defaults.
	if cfg.DB.Port != 5432 {
		t.Errorf("expected default db port 5432, got %d", cfg.DB.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GITJOBS_DB__HOST", "env.internal")
	t.Setenv("GITJOBS_DB__PORT", "6432")
	t.Setenv("GITJOBS_EMAIL__SMTP__HOST", "smtp.env.internal")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DB.Host != "env.internal" {
		t.Errorf("expected db host env.internal, got %q", cfg.DB.Host)
	}
	if cfg.DB.Port != 6432 {
		t.Errorf("expected db port 6432, got %d", cfg.DB.Port)
	}
	if cfg.Email.SMTP.Host != "smtp.env.internal" {
		t.Errorf("expected smtp host smtp.env.internal, got %q", cfg.Email.SMTP.Host)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("db:\n  host: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GITJOBS_DB__HOST", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DB.Host != "from-env" {
		t.Errorf("expected env to override file, got %q", cfg.DB.Host)
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validBaseConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Log.Format = "plain"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid log.format")
	}
	if !strings.Contains(err.Error(), "log.format") {
		t.Errorf("expected error to mention log.format, got: %v", err)
	}
}

func TestValidate_MissingDBName(t *testing.T) {
	cfg := validBaseConfig()
	cfg.DB.DBName = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing db.dbname")
	}
	if !strings.Contains(err.Error(), "db.dbname") {
		t.Errorf("expected error to mention db.dbname, got: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validBaseConfig()
	cfg.DB.Host = ""
	cfg.DB.User = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "db.host") || !strings.Contains(err.Error(), "db.user") {
		t.Errorf("expected both failures reported, got: %v", err)
	}
}

func TestEmailValidate_MissingSMTPHost(t *testing.T) {
	email := validBaseConfig().Email
	email.SMTP.Host = ""

	err := email.Validate()
	if err == nil {
		t.Fatal("expected error for missing email.smtp.host")
	}
	if !strings.Contains(err.Error(), "email.smtp.host") {
		t.Errorf("expected error to mention email.smtp.host, got: %v", err)
	}
}

func TestEmailValidate_ZeroWorkers(t *testing.T) {
	email := validBaseConfig().Email
	email.Workers = 0

	if err := email.Validate(); err == nil {
		t.Fatal("expected error for zero email.workers")
	}
}

func TestDBConfig_ConnString(t *testing.T) {
	db := DBConfig{Host: "localhost", Port: 5432, DBName: "gitjobs", User: "postgres"}
	got := db.ConnString()
	want := "host=localhost port=5432 dbname=gitjobs user=postgres"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	db.Password = "secret"
	db.MaxConns = 10
	got = db.ConnString()
	if !strings.Contains(got, "password=secret") || !strings.Contains(got, "pool_max_conns=10") {
		t.Errorf("expected password and pool size in conn string, got %q", got)
	}
}

func validBaseConfig() *Config {
	return &Config{
		DB: DBConfig{
			Host:   "localhost",
			Port:   5432,
			DBName: "gitjobs",
			User:   "postgres",
		},
		Email: EmailConfig{
			FromAddress: "jobs@example.org",
			FromName:    "GitJobs",
			Workers:     1,
			SMTP: SMTPConfig{
				Host: "smtp.example.org",
				Port: 587,
			},
		},
		Log:    LogConfig{Format: LogFormatJSON},
		Server: ServerConfig{Addr: "127.0.0.1:9000", BaseURL: "http://localhost:9000"},
	}
}
