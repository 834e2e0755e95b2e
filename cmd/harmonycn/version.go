package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the harmonycn release together with the commit and toolchain it
was built from. Include this output when reporting a registry sync or
publish problem.`,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Println(version)
				return
			}
			fmt.Print(versionInfo())
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the release")

	return cmd
}

// versionInfo renders the release line and the toolchain line.
func versionInfo() string {
	return fmt.Sprintf("harmonycn %s (%s, built %s)\n%s %s/%s\n",
		version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
