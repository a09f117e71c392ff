package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shirenchuang/bilibili-data-mcp/pkg/config"
	"github.com/sirupsen/logrus"
)

func TestInitWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "mcp.log")

	cfgPath := filepath.Join(dir, "config.yaml")
	content := "logging:\n  level: debug\n  format: json\n  output: " + path + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}

	if err := Init(cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if GetLogger().GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", GetLogger().GetLevel())
	}

	WithField("bvid", "BV1xx411c7mD").Info("获取视频信息")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), `"bvid":"BV1xx411c7mD"`) {
		t.Errorf("log line missing field: %s", data)
	}
}
