package repo

import (
	"github.com/assettrack/notifsync/models"
	"github.com/assettrack/notifsync/version"
	"github.com/op/go-logging"
	"io/ioutil"
	"os"
	"path"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "notifsync-config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cfg, _, err := loadConfig([]string{"--datadir=" + dir, "--logdir="})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != DefaultBaseURL || cfg.GatewayAddr != DefaultGatewayAddr {
		t.Errorf("Defaults not applied: %+v", cfg)
	}
	if cfg.AttemptTimeout != 30*time.Second {
		t.Errorf("Incorrect timeout %s", cfg.AttemptTimeout)
	}
	if cfg.ConfigFile != path.Join(dir, defaultConfigFilename) {
		t.Errorf("Incorrect config file %s", cfg.ConfigFile)
	}
	if _, err := os.Stat(cfg.ConfigFile); err != nil {
		t.Errorf("Default config file not written: %v", err)
	}
}

func TestLoadConfig_FileAndFlags(t *testing.T) {
	dir, err := ioutil.TempDir("", "notifsync-config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	conf := strings.Join([]string{
		"[Application Options]",
		"baseurl = https://api.example.com",
		"fallbackurl = https://backup.example.com",
		"platform = ios",
		"attempttimeout = 5s",
	}, "\n")
	confPath := path.Join(dir, defaultConfigFilename)
	if err := ioutil.WriteFile(confPath, []byte(conf), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := loadConfig([]string{"--datadir=" + dir, "--logdir=", "--baseurl=https://flag.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "https://flag.example.com" {
		t.Errorf("Flag did not take precedence, got %s", cfg.BaseURL)
	}
	if len(cfg.FallbackURLs) != 1 || cfg.FallbackURLs[0] != "https://backup.example.com" {
		t.Errorf("Incorrect fallbacks %v", cfg.FallbackURLs)
	}
	if cfg.Platform != "ios" || cfg.AttemptTimeout != 5*time.Second {
		t.Errorf("File values not applied: %+v", cfg)
	}
}

func TestLoadConfig_BadPlatform(t *testing.T) {
	dir, err := ioutil.TempDir("", "notifsync-config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	if _, _, err := loadConfig([]string{"--datadir=" + dir, "--logdir=", "--platform=windows"}); err == nil {
		t.Error("Expected error for unknown platform")
	}
}

func TestConfig_DeviceInfo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeviceModel = "Pixel 8"
	info := cfg.DeviceInfo()

	expected := models.UnknownDeviceInfo()
	expected.Model = "Pixel 8"
	expected.AppVersion = version.String()
	if info != expected {
		t.Errorf("Expected %+v, got %+v", expected, info)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected logging.Level
	}{
		{"debug", logging.DEBUG},
		{"WARNING", logging.WARNING},
		{"critical", logging.CRITICAL},
		{"bogus", logging.INFO},
	}
	for _, test := range tests {
		if lvl := ParseLogLevel(test.in); lvl != test.expected {
			t.Errorf("%s: expected %s, got %s", test.in, test.expected, lvl)
		}
	}
}

func TestCleanAndExpandPath(t *testing.T) {
	os.Setenv("NOTIFSYNC_TEST_DIR", "/tmp/x")
	defer os.Unsetenv("NOTIFSYNC_TEST_DIR")

	if p := cleanAndExpandPath("$NOTIFSYNC_TEST_DIR/../y/"); p != "/tmp/y" {
		t.Errorf("Incorrect path %s", p)
	}
	if p := cleanAndExpandPath(""); p != "" {
		t.Errorf("Expected empty path, got %s", p)
	}
}
