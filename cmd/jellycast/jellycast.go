package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"jellycast.app/jellycast/internal/castclient"
	"jellycast.app/jellycast/internal/config"
	"jellycast.app/jellycast/internal/jellyfin"
	"jellycast.app/jellycast/internal/playback"
	"jellycast.app/jellycast/internal/toast"
)

var (
	version    string
	build      string
	itemArg    = flag.String("i", "", "Jellyfin item ID to cast.")
	serverArg  = flag.String("u", "", "Jellyfin server URL. Overrides the config file.")
	listPtr    = flag.Bool("l", false, "List all available Google Cast devices.")
	targetPtr  = flag.String("t", "", "Cast to a specific device (ID or friendly name).")
	versionPtr = flag.Bool("version", false, "Print version.")
)

func main() {
	flag.Parse()

	exit, err := checkflags()
	check(err)
	if exit {
		os.Exit(0)
	}

	conf, err := config.GetAppConfig()
	check(err)
	if *serverArg != "" {
		conf.ServerURL = *serverArg
	}
	check(checkconfig(conf))

	logger := newLogger(conf.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	discovery := castclient.NewDiscovery(logger)
	discovery.Start(ctx)

	if *listPtr {
		check(listFlagFunction(discovery))
		os.Exit(0)
	}

	server := jellyfin.NewClient(conf.ServerURL, conf.APIKey, conf.UserID)
	server.LogOutput = os.Stderr

	session := castclient.NewSessionManager(discovery)
	session.LogOutput = os.Stderr

	toaster := toast.New()
	toaster.LogOutput = os.Stderr

	coord := playback.New(server, session, discovery, toaster,
		playback.WithLogOutput(os.Stderr))

	deviceID, err := pickDevice(coord, *targetPtr)
	check(err)

	item, err := server.Item(ctx, *itemArg)
	check(err)

	info, err := server.Info(ctx)
	if err == nil {
		logger.Info().Str("ServerName", info.ServerName).Str("Version", info.Version).Msg("connected to server")
	}

	coord.SelectDevice(ctx, deviceID)
	coord.Cast(ctx, item)

	interInit(ctx, coord, server, toaster, item)

	coord.Close()
	_ = session.EndCurrentSession(context.Background())
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}

func check(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Encountered error(s): %s\n", err)
		os.Exit(1)
	}
}
