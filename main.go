package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"cowin-slots/api"
	"cowin-slots/config"
	"cowin-slots/dedupe"
	"cowin-slots/fetcher"
	"cowin-slots/notifier"
	"cowin-slots/poller"
	"cowin-slots/sink"
	"cowin-slots/utils"

	"github.com/spf13/pflag"
)

const dedupeCapacity = 10000

func main() {
	flags := config.Flags()
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: cowin-slots [flags] <slotInfo.json>")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if listLocations(ctx, flags) {
		return
	}

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(flags.Arg(0), flags)
	if errors.Is(err, config.ErrNoDataPoints) {
		slog.Info("No data points to poll")
		return
	}
	if err != nil {
		slog.Error("can't initialize config file.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	var debugLog io.Writer
	if cfg.DebugLogPath != "" {
		dl, err := utils.OpenDailyLog(cfg.DebugLogPath)
		if err != nil {
			fatalErr("can't open debug log", err)
		}
		defer dl.Close()
		debugLog = dl
	}
	logger := utils.SetupLogger(os.Stdout, cfg.LogLevel, false, debugLog)

	transport, closeTransport, err := newTransport(cfg)
	if err != nil {
		fatalErr("can't create transport", err)
	}
	defer closeTransport()

	client := fetcher.New(cfg.APIBaseURL, cfg.APIMode, cfg.LookupCutoffHour, transport)

	sinks := []sink.Sink{sink.NewTextSink(cfg.TextLogPath)}
	var history *sink.JSONSink
	if cfg.Analyze {
		history = sink.NewJSONSink(cfg.JSONLogPath)
		sinks = append(sinks, history)
	}

	driver := poller.New(poller.Options{
		Logger:            logger,
		Fetcher:           client,
		Notifier:          notifier.New(cfg),
		Sink:              sink.NewLocked(cfg.LockPath, sinks...),
		Seen:              dedupe.NewCache(dedupeCapacity, cfg.NotifyTTL),
		DataPoints:        cfg.DataPoints,
		Criteria:          cfg.Criteria,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Workers:           cfg.Workers,
	})

	logger.Info(fmt.Sprintf("%v start looking for vaccination slots", utils.EmojiSyringe),
		slog.Int("dataPoints", len(cfg.DataPoints)),
		slog.String("communication", cfg.CommunicationType),
		slog.Bool("silent", cfg.Silent),
		slog.Bool("analyze", cfg.Analyze))

	wg := &sync.WaitGroup{}
	if cfg.Listen != "" {
		var hs api.HistorySource
		if history != nil {
			hs = history
		}
		srv := api.New(cfg.Listen, logger, driver, hs)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				logger.Error("status api stopped", slog.Any("error", err))
			}
		}()
	}

	if err := driver.Run(ctx); err != nil {
		logger.Error("poller failed", slog.Any("error", err))
	}
	wg.Wait()

	logger.Info("done")
}

func newTransport(cfg *config.Config) (fetcher.Transport, func(), error) {
	if cfg.Transport != config.TransportBrowser {
		return fetcher.NewHTTPTransport(cfg.UserAgent, cfg.RequestTimeout), func() {}, nil
	}

	bt, err := fetcher.NewBrowserTransport(cfg.APIBaseURL, cfg.UserAgent)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := bt.Close(); err != nil {
			slog.Warn("can't close browser", slog.Any("error", err))
		}
	}
	return &timeoutTransport{inner: bt, timeout: cfg.RequestTimeout}, closeFn, nil
}

// timeoutTransport bounds each call of a transport that has no client timeout of its own.
type timeoutTransport struct {
	inner   fetcher.Transport
	timeout time.Duration
}

func (t *timeoutTransport) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Get(ctx, rawURL)
}

// listLocations handles --list-states and --list-districts. It reports whether one of them ran.
func listLocations(ctx context.Context, flags *pflag.FlagSet) bool {
	states, _ := flags.GetBool("list-states")
	stateID, _ := flags.GetInt("list-districts")
	if !states && stateID == 0 {
		return false
	}

	utils.SetupLogger(os.Stderr, "info", false, nil)
	client := fetcher.New(config.DefaultAPIBaseURL, fetcher.ModeFind, 0,
		fetcher.NewHTTPTransport(config.DefaultUserAgent, 10*time.Second))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if states {
		list, err := client.States(ctx)
		if err != nil {
			slog.Error("can't list states", slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Fprintln(w, "state_id\tstate_name")
		for _, s := range list {
			fmt.Fprintf(w, "%d\t%s\n", s.ID, s.Name)
		}
		return true
	}

	list, err := client.Districts(ctx, stateID)
	if err != nil {
		slog.Error("can't list districts", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Fprintln(w, "district_id\tdistrict_name")
	for _, d := range list {
		fmt.Fprintf(w, "%d\t%s\n", d.ID, d.Name)
	}
	return true
}

func fatalErr(message string, err error) {
	slog.Error(message, slog.Any("error", err))
	os.Exit(1)
}
