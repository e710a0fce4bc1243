package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"signalscanner/cmd/scan"
	"signalscanner/cmd/simulate"
	"signalscanner/src/database"
	"signalscanner/src/server"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Signal Scanner CMD"
	app.Usage = "The signal scanner command line interface"

	app.Commands = []cli.Command{
		serveCMD,
		scanCMD,
		simulateCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the API server",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the API server with scanner and simulation control`,
	}
	scanCMD = cli.Command{
		Name:        "scan",
		Usage:       "run the live scanner",
		Action:      scanAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the live scan loop headless`,
	}
	simulateCMD = cli.Command{
		Name:        "simulate",
		Usage:       "run a historical replay",
		Action:      simulateAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Replay the configured date range and report results`,
	}
)

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting serve CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	cfg := server.GetConfig()
	server.StartServer(cfg.Port, server.BuildDependencies())
	return nil
}

func scanAction(_ *cli.Context) error {
	logrus.Info("Starting scan CMD")

	s := &scan.Scan{}
	if err := s.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func simulateAction(_ *cli.Context) error {
	logrus.Info("Starting simulate CMD")

	s := &simulate.Simulate{}
	if err := s.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}
