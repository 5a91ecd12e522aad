// cmd/tokbench/main.go
package main

import (
	"github.com/mwiater/tokbench/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	cli.Execute()
}
