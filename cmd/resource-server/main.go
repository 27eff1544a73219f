// Command resource-server runs the content-pack distribution service: the
// game session listener that admits connections and issues download
// tokens, and the HTTP download service that serves the public directory
// to token holders.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/cyberinferno/resource-server/config"
	"github.com/cyberinferno/resource-server/gameserver"
	"github.com/cyberinferno/resource-server/logger"
	"github.com/cyberinferno/resource-server/notify"
	"github.com/cyberinferno/resource-server/registry"
	"github.com/cyberinferno/resource-server/resource"
)

const serviceName = "resource-server"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.StringP("config", "c", "config.json", "path to the JSON config file")
		httpAddr   = flag.String("http-addr", "", "override the download service listen address")
		gameAddr   = flag.String("game-addr", "", "override the game session listen address")
		publicDir  = flag.String("public-dir", "", "override the content pack directory")
		verbose    = flag.BoolP("verbose", "v", false, "log at debug level")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	config.LoadFromEnv(&cfg)
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *gameAddr != "" {
		cfg.GameAddr = *gameAddr
	}
	if *publicDir != "" {
		cfg.PublicDir = *publicDir
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	var log logger.Logger
	if cfg.LogDir != "" {
		log, err = logger.NewFileLogger(serviceName, cfg.LogDir, level)
		if err != nil {
			return err
		}
	} else {
		log = logger.New(os.Stdout, serviceName, level)
	}
	defer func() {
		_ = log.Close()
	}()

	var reg registry.Registry[uint32]
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		reg = registry.NewRedisRegistry[uint32](client, serviceName, cfg.TokenTTL())
		log.Info("using redis token registry", logger.F("addr", cfg.RedisAddr))
	} else {
		reg = registry.NewMemoryRegistry[uint32](cfg.TokenTTL())
	}

	download := resource.New(resource.Config{
		Addr:      cfg.HTTPAddr,
		PublicDir: cfg.PublicDir,
	}, reg, log)
	game := gameserver.New(gameserver.Config{Addr: cfg.GameAddr}, reg, log)

	if err := download.Start(); err != nil {
		return err
	}
	if err := game.Start(); err != nil {
		download.Stop()
		return err
	}

	webhook := notify.NewWebhook(cfg.WebhookURL, log)
	webhook.Send(fmt.Sprintf("resource server up, downloads on %s", cfg.HTTPAddr))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info("shutting down", logger.F("signal", sig.String()))
	webhook.Send("resource server shutting down")

	game.Stop()
	download.Stop()
	return nil
}
