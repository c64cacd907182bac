package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/tingold/geolayer"
	"github.com/tingold/geolayer/internal/config"
	"github.com/tingold/geolayer/internal/logger"
	"github.com/tingold/geolayer/internal/server"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string   `short:"c" long:"config" env:"CONFIG_FILE"    description:"Path to configuration file"`
	Addr       string   `short:"a" long:"addr"   env:"LISTEN_ADDRESS" description:"Address to listen on" default:"localhost"`
	Port       int      `short:"p" long:"port"   env:"LISTEN_PORT"    description:"Port to listen on"    default:"8080"`
	Static     string   `short:"s" long:"static" env:"STATIC_DIR"     description:"Directory of client files"`
	Files      []string `short:"f" long:"file"                        description:"GeoJSON, WKT/WKB or CSV file to load, repeatable"`
}

const citiesCSV = `name;country;population;capital;lon;lat
Tokyo;Japan;13960000;true;139.6917;35.6895
New York;United States;8336817;false;-73.9857;40.7484
London;United Kingdom;8982000;true;-0.1276;51.5074
Paris;France;2161000;true;2.3522;48.8566
Beijing;China;21540000;true;116.4074;39.9042
Moscow;Russia;12615000;true;37.6173;55.7558
São Paulo;Brazil;12300000;false;-46.6333;-23.5505
Mumbai;India;12400000;false;72.8777;19.0760
Los Angeles;United States;3971883;false;-118.2437;34.0522
Shanghai;China;24870000;false;121.4737;31.2304
Istanbul;Turkey;15520000;false;28.9784;41.0082
Buenos Aires;Argentina;3075646;true;-58.3816;-34.6037
Cairo;Egypt;10230000;true;31.2357;30.0444
Sydney;Australia;5312000;false;151.2093;-33.8688
Berlin;Germany;3669491;true;13.4050;52.5200
`

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
	}

	srv, err := server.New(cfg, opts.Static)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	if len(opts.Files) == 0 {
		if _, err := srv.Import("world_cities", citiesCSV); err != nil {
			log.Fatal().Err(err).Msg("Failed to load built-in cities")
		}
	}
	for _, path := range opts.Files {
		if err := load(srv, path); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to load file")
		}
	}

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Str("static", opts.Static).
		Int("files", len(opts.Files)).
		Msg("Web server started")

	if err := http.ListenAndServe(listenAddr, srv.Handler()); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func load(srv *server.Server, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res := <-geolayer.ReadTextAsync(f)
	if res.Err != nil {
		return res.Err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	layer, err := srv.Import(name, res.Text)
	if err != nil {
		return err
	}

	log.Info().
		Str("name", layer.Name()).
		Str("type", layer.GeometryTypeText()).
		Int("features", layer.FeaturesCount()).
		Msg("Layer loaded")
	return nil
}
