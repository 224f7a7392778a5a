package main

import (
	"os"

	logx "github.com/cepclima/server/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logx.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
