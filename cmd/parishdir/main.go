package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/kapu/parish-directory-go/internal/app"
	"github.com/kapu/parish-directory-go/internal/config"
	"github.com/kapu/parish-directory-go/internal/session"
	"github.com/kapu/parish-directory-go/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "parishdir",
	Short: "Parish member directory",
	Long: `Serves the parish member directory and manages the JSON document behind it.

The directory lives in a GitHub repository (GITHUB_REPO) as a single JSON
document plus a folder of photos. Settings come from the environment or .env.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, importCmd, backupCmd, hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration, starts the logger and assembles the services.
func setup() (*app.Container, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	buildCtx, buildCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("failed to assemble application services: %w", err)
	}

	cleanup := func() {
		container.Close()
		_ = logger.Sync()
	}
	return container, cleanup, nil
}

// operatorSession logs the CLI operator in. A plain ADMIN_PASSWORD is used as is; a bcrypt
// hash means the password has to be typed.
func operatorSession(c *app.Container) (*session.Session, error) {
	secret := c.Config.Admin.Password
	if secret != "" && !strings.HasPrefix(secret, "$2") {
		return c.Guard.Login(secret)
	}
	password, err := readPassword("Admin password: ")
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	sess, err := c.Guard.Login(password)
	if err != nil {
		c.Logger.Warn("Operator login failed", zap.Error(err))
		return nil, err
	}
	return sess, nil
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(os.Stderr)
	return strings.TrimSpace(string(bytePassword)), nil
}
