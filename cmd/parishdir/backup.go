package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var backupDir string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Save the current directory document to a local file",
	Long:  `Download the stored directory document unchanged into backup_YYYYmmdd_HHMMSS.json.`,
	RunE:  runBackup,
}

func init() {
	backupCmd.Flags().StringVarP(&backupDir, "out", "o", ".", "directory to write the backup into")
}

func runBackup(cmd *cobra.Command, args []string) error {
	container, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := operatorSession(container)
	if err != nil {
		return err
	}

	data, name, err := container.Repository.Backup(cmd.Context(), sess)
	if err != nil {
		return err
	}

	path := filepath.Join(backupDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	container.Logger.Info("Backup written", zap.String("path", path), zap.Int("bytes", len(data)))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
