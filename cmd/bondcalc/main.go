package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/meenmo/fixedincome/config"
)

func main() {
	os.Exit(run(path.Base(os.Args[0]), os.Args[1:]))
}

func run(name string, args []string) int {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	debug := flags.Bool("debug", false, "Log at debug level")

	commander := subcommands.NewCommander(flags, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	app := &app{}
	commander.Register(&priceCmd{app: app}, "pricing")
	commander.Register(&scanCmd{app: app}, "pricing")
	commander.Register(&buildCmd{}, "schedules")

	if err := flags.Parse(args); err != nil {
		return int(subcommands.ExitUsageError)
	}

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return int(subcommands.ExitUsageError)
	}
	app.logger = logger

	status := commander.Execute(context.Background())
	_ = logger.Sync()
	return int(status)
}

// app carries what every subcommand shares. The environment is read on first
// use so commands that need none of it never fail on it.
type app struct {
	env    *config.Env
	logger *zap.Logger
}

func (a *app) loadEnv() (*config.Env, error) {
	if a.env != nil {
		return a.env, nil
	}
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	config.SetConfig(env.Solver)
	a.env = env
	return env, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}
