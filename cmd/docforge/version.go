package main

import (
	"encoding/json"
	"errors"
	"runtime"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type versionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func newVersionCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of docforge",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:   version,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}

			switch output {
			case "":
				cmd.Printf("docforge: %s\n", info.Version)
				cmd.Printf("Go: %s\n", info.GoVersion)
				cmd.Printf("Platform: %s\n", info.Platform)
			case "json":
				marshalled, err := json.MarshalIndent(&info, "", "  ")
				if err != nil {
					return errors.New("failed to marshal JSON")
				}
				cmd.Println(string(marshalled))
			default:
				return errors.New(`unknown output format, use "json"`)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "One of 'json'")
	return cmd
}
