package repo

import (
	"fmt"
	"github.com/assettrack/notifsync/models"
	"github.com/assettrack/notifsync/version"
	"github.com/btcsuite/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/natefinch/lumberjack"
	"github.com/op/go-logging"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultConfigFilename = "notifsync.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "notifsync.log"

	// DefaultBaseURL is the notification backend used when none is configured.
	DefaultBaseURL = "http://localhost:3000"

	// DefaultGatewayAddr is where the local gateway listens by default.
	DefaultGatewayAddr = "127.0.0.1:4002"
)

var (
	// DefaultHomeDir is the platform specific application data directory.
	DefaultHomeDir = btcutil.AppDataDir("notifsync", false)

	defaultConfigFile = filepath.Join(DefaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(DefaultHomeDir, defaultLogDirname)

	fileLogFormat   = logging.MustStringFormatter(`%{time:2006-01-02T15:04:05} [%{level}] [%{module}] %{message}`)
	stdoutLogFormat = logging.MustStringFormatter(`%{color:reset}%{color}%{time:15:04:05.000} [%{level}] [%{module}] %{message}`)
)

// Config defines the configuration options for the notification daemon.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	ShowVersion    bool          `short:"v" long:"version" description:"Display version information and exit"`
	ConfigFile     string        `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir        string        `short:"d" long:"datadir" description:"Directory to store data"`
	LogDir         string        `long:"logdir" description:"Directory to log output"`
	LogLevel       string        `short:"l" long:"loglevel" description:"Set the logging level [debug, info, notice, warning, error, critical]"`
	BaseURL        string        `long:"baseurl" description:"Base URL of the notification backend"`
	FallbackURLs   []string      `long:"fallbackurl" description:"Backend URL to try when the base URL is unreachable. May be repeated."`
	AttemptTimeout time.Duration `long:"attempttimeout" description:"Timeout for each request attempt"`
	Platform       string        `long:"platform" description:"Platform reported when registering the device token [ios, android]"`
	DeviceToken    string        `long:"devicetoken" description:"Messaging token for this device, issued out of band"`
	AuthToken      string        `long:"authtoken" description:"Bearer token used to authenticate with the backend"`
	GatewayAddr    string        `long:"gatewayaddr" description:"Address for the local gateway to listen on"`
	NoCors         bool          `long:"nocors" description:"Disable CORS headers on the gateway"`
	GatewayUser    string        `long:"gatewayuser" description:"Username for basic auth on the gateway"`
	GatewayPass    string        `long:"gatewaypass" description:"Hex encoded SHA-256 of the basic auth password for the gateway"`
	DeviceModel    string        `long:"devicemodel" description:"Device model sent with the token registration"`
	DeviceOS       string        `long:"deviceos" description:"OS version sent with the token registration"`
	Manufacturer   string        `long:"manufacturer" description:"Device manufacturer sent with the token registration"`
}

// DefaultConfig returns the settings used before any file or flag is read.
func DefaultConfig() Config {
	return Config{
		DataDir:        DefaultHomeDir,
		ConfigFile:     defaultConfigFile,
		LogDir:         defaultLogDir,
		LogLevel:       "info",
		BaseURL:        DefaultBaseURL,
		AttemptTimeout: 30 * time.Second,
		Platform:       string(models.PlatformAndroid),
		GatewayAddr:    DefaultGatewayAddr,
	}
}

// DeviceInfo builds the registration metadata from the config, falling
// back to the unknown values for anything not set.
func (c *Config) DeviceInfo() models.DeviceInfo {
	info := models.UnknownDeviceInfo()
	if c.DeviceModel != "" {
		info.Model = c.DeviceModel
	}
	if c.DeviceOS != "" {
		info.OSVersion = c.DeviceOS
	}
	if c.Manufacturer != "" {
		info.Manufacturer = c.Manufacturer
	}
	info.AppVersion = version.String()
	return info
}

// LoadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
// 	1) Start with a default config with sane settings
// 	2) Pre-parse the command line to check for an alternative config file
// 	3) Load configuration file overwriting defaults with any specified options
// 	4) Parse CLI options and overwrite/add any specified options
//
// Command line options always take precedence.
func LoadConfig() (*Config, []string, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, []string, error) {
	cfg := DefaultConfig()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified. Errors other than the help
	// message are caught by the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag|flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, nil, err
		}
	}

	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version.String())
		os.Exit(0)
	}

	// A custom data dir moves the config file and logs with it unless those
	// were set explicitly.
	if preCfg.DataDir != cfg.DataDir {
		if preCfg.ConfigFile == cfg.ConfigFile {
			preCfg.ConfigFile = filepath.Join(preCfg.DataDir, defaultConfigFilename)
		}
		if preCfg.LogDir == cfg.LogDir {
			cfg.LogDir = filepath.Join(preCfg.DataDir, defaultLogDirname)
		}
		cfg.DataDir = preCfg.DataDir
	}
	preCfg.ConfigFile = cleanAndExpandPath(preCfg.ConfigFile)

	var configFileError error
	parser := flags.NewParser(&cfg, flags.Default|flags.IgnoreUnknown)
	if _, err := os.Stat(preCfg.ConfigFile); os.IsNotExist(err) {
		if err := createDefaultConfigFile(preCfg.ConfigFile, parser); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating a default config file: %v\n", err)
		}
	}

	err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %v\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}
		configFileError = err
	}

	remaining, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	cfg.ConfigFile = preCfg.ConfigFile
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	if models.ParsePlatform(cfg.Platform) != models.Platform(strings.ToLower(cfg.Platform)) {
		return nil, nil, fmt.Errorf("unknown platform %q", cfg.Platform)
	}

	SetupLogging(cfg.LogDir, cfg.LogLevel)

	// Warn about a missing config file only after all other configuration
	// is done so help messages and invalid options stay clean.
	if configFileError != nil {
		log.Warningf("%v", configFileError)
	}
	return &cfg, remaining, nil
}

// createDefaultConfigFile writes every option with its default value to
// destinationPath so the user has something to edit.
func createDefaultConfigFile(destinationPath string, parser *flags.Parser) error {
	if err := os.MkdirAll(filepath.Dir(destinationPath), 0700); err != nil {
		return err
	}
	return flags.NewIniParser(parser).WriteFile(destinationPath, flags.IniIncludeDefaults|flags.IniCommentDefaults|flags.IniIncludeComments)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(DefaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// SetupLogging configures the logging backends. Output always goes to
// stdout and, when logDir is set, to a rotating file as well.
func SetupLogging(logDir, logLevel string) {
	backendStdout := logging.NewLogBackend(os.Stdout, "", 0)
	backendStdoutFormatter := logging.NewBackendFormatter(backendStdout, stdoutLogFormat)

	if logDir != "" {
		rotator := &lumberjack.Logger{
			Filename:   path.Join(logDir, defaultLogFilename),
			MaxSize:    10, // Megabytes
			MaxBackups: 3,
			MaxAge:     30, // Days
		}

		backendFile := logging.NewLogBackend(rotator, "", 0)
		backendFileFormatter := logging.NewBackendFormatter(backendFile, fileLogFormat)
		logging.SetBackend(backendStdoutFormatter, backendFileFormatter)
	} else {
		logging.SetBackend(backendStdoutFormatter)
	}

	logging.SetLevel(ParseLogLevel(logLevel), "")
}

// ParseLogLevel maps a level name to a logging.Level, defaulting to INFO.
func ParseLogLevel(logLevel string) logging.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return logging.DEBUG
	case "info":
		return logging.INFO
	case "notice":
		return logging.NOTICE
	case "warning":
		return logging.WARNING
	case "error":
		return logging.ERROR
	case "critical":
		return logging.CRITICAL
	default:
		return logging.INFO
	}
}
