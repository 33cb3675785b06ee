package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/notesync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/notesync/internal/config"
	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/core/ports/driving"
	"github.com/custodia-labs/notesync/internal/logger"
)

// Services are the application services the commands drive.
type Services interface {
	Engine() driving.SyncEngine
	Scheduler() (driving.Scheduler, error)
	TaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
	Close() error
}

// ServicesFactory builds Services once the configuration is loaded.
type ServicesFactory func(cfg *config.Config) (Services, error)

// skipSetup marks commands that run without loading configuration.
const skipSetup = "skip-setup"

var version = "dev"

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configDir   string
	dataDir     string
	sandbox     bool
	fixture     string
	verbose     bool
	logFile     string
	logJSON     bool
	promptToken bool
}

var (
	globals     globalFlags
	newServices ServicesFactory

	// Set by setup for the running command.
	cfgStore  driven.ConfigStore
	cfg       *config.Config
	cfgErr    error
	svc       Services
	logCloser io.Closer

	// readToken is replaced in tests.
	readToken = readTokenFromTerminal
)

var rootCmd = &cobra.Command{
	Use:   "notesync",
	Short: "Mirror an Evernote account to local storage",
	Long: `notesync replays the account's change feed into a local mirror.

Chunks of the feed are stored under their highest update sequence number,
notes under their guid and the notebook list as "notebooks". Each run
resumes from the highest stored chunk.

The developer token is read from EVERNOTE_DEV_TOKEN, NOTESYNC_AUTH_TOKEN,
auth.token in the config file, or --prompt-token.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globals.configDir, "config-dir", "", "config directory (default ~/.notesync)")
	pf.StringVar(&globals.dataDir, "data-dir", "", "data directory (default ~/.notesync/data)")
	pf.BoolVar(&globals.sandbox, "sandbox", false, "use the sandbox service")
	pf.StringVar(&globals.fixture, "fixture", "", "replay a recorded YAML feed instead of the service")
	pf.BoolVarP(&globals.verbose, "verbose", "v", false, "print progress and debug output")
	pf.StringVar(&globals.logFile, "log-file", "", "write logs to a rotating file")
	pf.BoolVar(&globals.logJSON, "log-json", false, "write logs as JSON lines")
	pf.BoolVar(&globals.promptToken, "prompt-token", false, "read the developer token from the terminal")
}

// Execute runs the root command with the given version and service factory.
func Execute(ctx context.Context, v string, factory ServicesFactory) error {
	version = v
	newServices = factory
	defer func() {
		if err := shutdown(); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// setup loads configuration and configures logging for the command.
func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipSetup] != "" {
		return nil
	}

	store, err := file.NewConfigStore(globals.configDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	cfgStore = store

	cfg, cfgErr = config.Load(config.LoadOptions{Store: store, Overrides: flagOverrides()})
	if cfgErr != nil {
		// The config commands still work so that a bad value can be fixed.
		if isConfigCommand(cmd) {
			return nil
		}
		return cfgErr
	}

	logCloser = logger.Configure(logger.Options{
		Verbose: cfg.Log.Verbose,
		File:    cfg.Log.File,
		JSON:    cfg.Log.JSON,
	})

	if globals.promptToken {
		token, err := readToken(cmd)
		if err != nil {
			return err
		}
		cfg.Auth.Token = token
	}
	return nil
}

// flagOverrides is the command-line layer of the configuration.
func flagOverrides() *config.Config {
	return &config.Config{
		Remote: config.Remote{
			Sandbox: globals.sandbox,
			Fixture: globals.fixture,
		},
		Store: config.Store{
			Dir: globals.dataDir,
		},
		Log: config.Log{
			Verbose: globals.verbose,
			File:    globals.logFile,
			JSON:    globals.logJSON,
		},
	}
}

// openServices builds the services on first use. Commands that call the
// remote fail early without a token.
func openServices(needRemote bool) (Services, error) {
	if svc != nil {
		return svc, nil
	}
	if newServices == nil {
		return nil, errors.New("services not configured")
	}
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	if needRemote && cfg.RequiresToken() && cfg.Auth.Token == "" {
		return nil, fmt.Errorf("%w: set EVERNOTE_DEV_TOKEN or auth.token, or pass --prompt-token", domain.ErrAuthRequired)
	}

	s, err := newServices(cfg)
	if err != nil {
		return nil, err
	}
	svc = s
	return svc, nil
}

// shutdown releases what setup and openServices acquired.
func shutdown() error {
	var errs []error
	if svc != nil {
		errs = append(errs, svc.Close())
		svc = nil
	}
	if logCloser != nil {
		errs = append(errs, logCloser.Close())
		logCloser = nil
	}
	cfg, cfgErr, cfgStore = nil, nil, nil
	return errors.Join(errs...)
}

func readTokenFromTerminal(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--prompt-token needs an interactive terminal")
	}

	cmd.Print("Developer token: ")
	raw, err := term.ReadPassword(fd)
	cmd.Println()
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", domain.ErrAuthRequired
	}
	return token, nil
}

func isConfigCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == configCmd {
			return true
		}
	}
	return false
}
