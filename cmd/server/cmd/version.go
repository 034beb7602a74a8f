package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, overridden with -ldflags "-X .../cmd.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the release version, git commit, build date and Go runtime of this binary.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, Version)
				return
			}
			fmt.Fprintln(out, "confdir server")
			for _, line := range [][2]string{
				{"Version:", Version},
				{"Git commit:", GitCommit},
				{"Build date:", BuildDate},
				{"Go version:", runtime.Version()},
				{"Platform:", runtime.GOOS + "/" + runtime.GOARCH},
			} {
				fmt.Fprintf(out, "%-11s %s\n", line[0], line[1])
			}
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	return cmd
}
