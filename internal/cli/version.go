package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// VersionInfo contains build information for the version command
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version, build commit, build date, Go version, and platform information.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersion()
		out := outputFor(cmd)
		if IsJSONOutput() {
			return out.JSON(info)
		}
		printVersionText(out, info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func currentVersion() VersionInfo {
	return VersionInfo{
		Version:   Version,
		Commit:    BuildCommit,
		Date:      BuildDate,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

func printVersionText(out *OutputFormatter, info VersionInfo) {
	w := out.Writer()
	fmt.Fprintf(w, "ragctl %s\n", info.Version)
	fmt.Fprintf(w, "  Commit:     %s\n", info.Commit)
	fmt.Fprintf(w, "  Built:      %s\n", info.Date)
	fmt.Fprintf(w, "  Go version: %s\n", info.GoVersion)
	fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", info.OS, info.Arch)
}
