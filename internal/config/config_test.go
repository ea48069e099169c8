package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".app.env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("ошибка записи конфигурации: %v", err)
	}
	return path
}

// TestNewConfig проверяет чтение конфигурации из env-файла и значения по умолчанию.
func TestNewConfig(t *testing.T) {
	path := writeConfigFile(t, `DATABASE_HOST=localhost
DATABASE_PORT=5432
DATABASE_USER=depot
DATABASE_PASSWORD=secret
DATABASE_NAME=filedepot
`)

	cfg, err := NewConfig(path)
	if err != nil {
		t.Fatalf("ошибка чтения конфигурации: %v", err)
	}

	if cfg.Database.Host != "localhost" {
		t.Errorf("Host = %q, ожидался localhost", cfg.Database.Host)
	}
	if cfg.Database.Name != "filedepot" {
		t.Errorf("Name = %q, ожидался filedepot", cfg.Database.Name)
	}
	// Значения по умолчанию
	if cfg.Database.SSLMode != "disable" {
		t.Errorf("SSLMode = %q, ожидался disable", cfg.Database.SSLMode)
	}
	if cfg.Server.Port != "2525" {
		t.Errorf("Server.Port = %q, ожидался 2525", cfg.Server.Port)
	}
}

// TestNewConfig_Incomplete проверяет ошибку при неполной конфигурации базы.
func TestNewConfig_Incomplete(t *testing.T) {
	path := writeConfigFile(t, `DATABASE_HOST=localhost
DATABASE_PORT=5432
`)

	if _, err := NewConfig(path); err == nil {
		t.Fatal("ожидалась ошибка неполной конфигурации")
	}
}

// TestGetDSN проверяет сборку строки подключения.
func TestGetDSN(t *testing.T) {
	dbCfg := DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "depot",
		Password: "secret",
		Name:     "filedepot",
		SSLMode:  "disable",
	}

	want := "host=db port=5432 user=depot password=secret dbname=filedepot sslmode=disable"
	if got := dbCfg.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, ожидалось %q", got, want)
	}
}
