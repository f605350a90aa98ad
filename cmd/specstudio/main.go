package main

import (
	"github.com/tansive/specstudio/internal/cli"
	"github.com/tansive/specstudio/internal/common/logtrace"
)

func init() {
	logtrace.InitLogger()
}

func main() {
	cli.Execute()
}
