package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// cleanCmd represents the clean command that empties working directories.
var cleanCmd = &cobra.Command{
	Use:   "clean [dirs...]",
	Short: "Remove files from the input and output directories",
	Long: `Remove regular files from the given directories.

Without arguments the configured input and output directories are cleaned.
Subdirectories are left in place. Unless --yes is given, the files to be
removed are listed and a confirmation is requested first.

Examples:
  longimg clean
  longimg clean ./output --yes`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runCleanCommand,
}

func runCleanCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	yes, _ := cmd.Flags().GetBool("yes")

	dirs := args
	if len(dirs) == 0 {
		dirs = []string{cfg.Input.Dir, cfg.Output.Dir}
	}

	for _, dir := range dirs {
		if err := cleanDir(cmd, dir, yes); err != nil {
			return err
		}
	}

	return nil
}

// cleanDir removes the regular files directly inside dir. A missing
// directory is reported but is not an error.
func cleanDir(cmd *cobra.Command, dir string, yes bool) error {
	out := cmd.OutOrStdout()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			_, _ = fmt.Fprintf(out, "%s: directory does not exist, skipping\n", dir)
			return nil
		}
		return fmt.Errorf("cannot read %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, entry.Name())
		}
	}

	if len(files) == 0 {
		_, _ = fmt.Fprintf(out, "%s: nothing to remove\n", dir)
		return nil
	}

	_, _ = fmt.Fprintf(out, "%s: %d file(s) to remove\n", dir, len(files))
	for _, name := range files {
		_, _ = fmt.Fprintf(out, "  %s\n", name)
	}

	if !yes && !confirm(cmd, fmt.Sprintf("Remove %d file(s) from %s?", len(files), dir)) {
		_, _ = fmt.Fprintf(out, "%s: skipped\n", dir)
		return nil
	}

	removed := 0
	for _, name := range files {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "failed to remove %s: %v\n", path, err)
			continue
		}
		removed++
	}
	_, _ = fmt.Fprintf(out, "%s: removed %d file(s)\n", dir, removed)

	return nil
}

// confirm asks a yes/no question on the command's input stream.
func confirm(cmd *cobra.Command, question string) bool {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().BoolP("yes", "y", false, "remove files without asking")
}
