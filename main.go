package main

import (
	"os"
	"sort"

	"github.com/klauspost/compress/flate"
	log "github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/seatgeek/zip-firehose/command/serve"
	"github.com/seatgeek/zip-firehose/command/stream"
	"github.com/seatgeek/zip-firehose/helper"
)

func main() {
	app := cli.NewApp()
	app.Name = "zip-firehose"
	app.Usage = "easily firehose zip archives to a streaming sink"
	app.Version = "0.1"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "log-level",
			Value:  "info",
			Usage:  "Debug level (debug, info, warn/warning, error, fatal, panic)",
			EnvVar: "LOG_LEVEL",
		},
		cli.StringFlag{
			Name:   "log-format",
			Value:  "text",
			Usage:  "Log format (text, json, gelf)",
			EnvVar: "LOG_FORMAT",
		},
	}

	levelFlag := cli.IntFlag{
		Name:   "level",
		Value:  flate.DefaultCompression,
		Usage:  "Deflate level (-1 default, 0 none, 1 fastest .. 9 smallest)",
		EnvVar: "ZIP_LEVEL",
	}

	app.Commands = []cli.Command{
		{
			Name:      "stream",
			Usage:     "Stream a zip of files or directories to the SINK_TYPE sink",
			ArgsUsage: "[path...]",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:   "manifest",
					Usage:  "YAML manifest listing the archive entries",
					EnvVar: "ZIP_MANIFEST",
				},
				cli.StringFlag{
					Name:   "schedule",
					Usage:  "Cron expression; stream a new archive every time it fires",
					EnvVar: "STREAM_SCHEDULE",
				},
				levelFlag,
			},
			Action: func(c *cli.Context) error {
				build := func() (*stream.Firehose, error) {
					return stream.NewFirehose(c.Args(), c.String("manifest"), c.Int("level"))
				}

				ctx, cancel := helper.SignalContext()
				defer cancel()

				if schedule := c.String("schedule"); schedule != "" {
					if err := stream.Schedule(ctx, schedule, build); err != nil {
						return cli.NewExitError(err.Error(), 1)
					}
					return nil
				}

				firehose, err := build()
				if err != nil {
					return cli.NewExitError(err.Error(), 1)
				}

				if err := firehose.Start(ctx); err != nil {
					return cli.NewExitError(err.Error(), 1)
				}

				return nil
			},
		},
		{
			Name:  "serve",
			Usage: "Serve zips of a directory over chunked HTTP and websocket",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:   "listen",
					Value:  ":8080",
					Usage:  "Address to listen on",
					EnvVar: "LISTEN_ADDR",
				},
				cli.StringFlag{
					Name:   "root",
					Value:  ".",
					Usage:  "Directory to serve archives from",
					EnvVar: "SERVE_ROOT",
				},
				levelFlag,
			},
			Action: func(c *cli.Context) error {
				srv, err := serve.NewApp(c.String("listen"), c.String("root"), c.Int("level"))
				if err != nil {
					return cli.NewExitError(err.Error(), 1)
				}

				ctx, cancel := helper.SignalContext()
				defer cancel()

				if err := srv.Start(ctx); err != nil {
					return cli.NewExitError(err.Error(), 1)
				}

				return nil
			},
		},
	}
	app.Before = func(c *cli.Context) error {
		if err := helper.ConfigureLogging(c.String("log-level"), c.String("log-format"), os.Stderr); err != nil {
			log.Fatal(err)
		}

		return nil
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
