package main

import (
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tokenfence/internal/logger"
)

var (
	vocabPath string
	hidden    int64
	modelSeed int64
	logLevel  string
	logFormat string
	debug     bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vocab",
			Usage:       "path to a vocab JSON file (default: built-in byte vocabulary)",
			Destination: &vocabPath,
		},
		&cli.Int64Flag{
			Name:        "hidden",
			Usage:       "toy model hidden size",
			Value:       32,
			Destination: &hidden,
		},
		&cli.Int64Flag{
			Name:        "model-seed",
			Usage:       "toy model weight seed",
			Value:       1,
			Destination: &modelSeed,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func buildLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.Default()
	default:
		return logger.Pretty(os.Stderr, level)
	}
}
