package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"mewt.dev/pkg/mewt/internal/campaign"
)

const (
	configFileName = "mewt.toml"

	dbKey            = "db"
	logLevelKey      = "log.level"
	logColorKey      = "log.color"
	targetsInclude   = "targets.include"
	targetsIgnoreKey = "targets.ignore"
	runMutationsKey  = "run.mutations"
	comprehensiveKey = "run.comprehensive"
	testCmdKey       = "test.cmd"
	testTimeoutKey   = "test.timeout"
	perTargetKey     = "test.per_target"

	logFilenameKey   = "log.filename"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"

	defaultDB          = "mewt.sqlite"
	defaultLogFilename = ".mewt.log"
)

// initConfig sets defaults and reads the nearest mewt.toml, discovered by
// walking up from the current working directory.
func initConfig() {
	viper.SetDefault(dbKey, defaultDB)
	viper.SetDefault(logLevelKey, "info")
	viper.SetDefault(logColorKey, "")
	viper.SetDefault(targetsInclude, []string{})
	viper.SetDefault(targetsIgnoreKey, []string{})
	viper.SetDefault(runMutationsKey, []string{})
	viper.SetDefault(comprehensiveKey, false)
	viper.SetDefault(testCmdKey, "")
	viper.SetDefault(testTimeoutKey, 0)
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logMaxSizeKey, 10)
	viper.SetDefault(logMaxBackupsKey, 3)
	viper.SetDefault(logMaxAgeKey, 28)

	viper.SetConfigType("toml")

	if path := findNearestConfigFile(); path != "" {
		viper.SetConfigFile(path)

		if err := viper.ReadInConfig(); err != nil {
			slog.Warn("could not read config file", "path", path, "error", err)
		}
	}
}

func findNearestConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}

		dir = parent
	}
}

func parseSlogLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	return slog.LevelInfo
}

// configureLogger points the global slog logger at a rotating file so the
// console stays reserved for command output.
func configureLogger() {
	logWriter := &lumberjack.Logger{
		Filename:   viper.GetString(logFilenameKey),
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   true,
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseSlogLevel(viper.GetString(logLevelKey)),
	})

	slog.SetDefault(slog.New(handler))
}

// colorsEnabled resolves the log.color tri-state: forced on, forced off,
// or auto-detect from stdout.
func colorsEnabled() bool {
	switch strings.ToLower(viper.GetString(logColorKey)) {
	case "on":
		return true
	case "off":
		return false
	}

	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

// perTargetRule mirrors one [[test.per_target]] table.
type perTargetRule struct {
	Glob    string `mapstructure:"glob"`
	Cmd     string `mapstructure:"cmd"`
	Timeout int    `mapstructure:"timeout"`
}

// resolveCampaignConfig merges file and flag values into the runner
// configuration. Flags replace file values, except the ignore list which
// concatenates.
func resolveCampaignConfig(mutationsCSV string, comprehensive bool) campaign.Config {
	cfg := campaign.Config{
		TestCmd:       viper.GetString(testCmdKey),
		TestTimeout:   time.Duration(viper.GetInt(testTimeoutKey)) * time.Second,
		Comprehensive: comprehensive || viper.GetBool(comprehensiveKey),
		Ignore:        resolveIgnoreList(),
	}

	if mutationsCSV != "" {
		cfg.Mutations = parseCSV(mutationsCSV)
	} else {
		cfg.Mutations = viper.GetStringSlice(runMutationsKey)
	}

	var rules []perTargetRule
	if err := viper.UnmarshalKey(perTargetKey, &rules); err == nil {
		for _, rule := range rules {
			if strings.TrimSpace(rule.Cmd) == "" {
				continue
			}

			cfg.PerTarget = append(cfg.PerTarget, campaign.PerTargetRule{
				Glob:    rule.Glob,
				Cmd:     rule.Cmd,
				Timeout: time.Duration(rule.Timeout) * time.Second,
			})
		}
	}

	return cfg
}

// resolveIgnoreList concatenates config and flag ignore entries.
func resolveIgnoreList() []string {
	ignore := viper.GetStringSlice(targetsIgnoreKey)

	return append(ignore, ignoreTargetsFlag...)
}

// resolveIncludeList prefers positional args over the config include list,
// defaulting to the current directory.
func resolveIncludeList(args []string) []string {
	if len(args) > 0 {
		return args
	}

	if include := viper.GetStringSlice(targetsInclude); len(include) > 0 {
		return include
	}

	return []string{"."}
}

func parseCSV(input string) []string {
	var out []string

	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}
