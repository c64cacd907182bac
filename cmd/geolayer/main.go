package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/tingold/geolayer/internal/config"
	"github.com/tingold/geolayer/internal/logger"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"GEOLAYER_CONFIG" description:"Path to configuration file"`

	Inspect InspectCommand `command:"inspect" description:"Print a summary of each input file"`
	Convert ConvertCommand `command:"convert" description:"Export an input file as GeoJSON or CSV"`
	Table   TableCommand   `command:"table"   description:"Print the attribute table of an input file"`
	Edit    EditCommand    `command:"edit"    description:"Update one feature and export the result"`
}

var (
	opts Options
	cfg  = config.Default()
)

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		opts.Logger.Setup()

		if opts.ConfigFile != "" {
			loaded, err := config.Load(opts.ConfigFile)
			if err != nil {
				log.Fatal().Err(err).Str("path", opts.ConfigFile).Msg("Failed to load configuration")
			}
			cfg = loaded
		}

		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		if _, ok := err.(*flags.Error); !ok {
			log.Error().Err(err).Msg("Command failed")
		}
		os.Exit(1)
	}
}
