/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mjsoltani/peyvandyar/internal/cmd"
)

// Set via ldflags, e.g. -X main.version=1.0.0.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	if err := cmd.Execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
