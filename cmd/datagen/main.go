package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChizhovVadim/halfkp/internal/config"
	"github.com/ChizhovVadim/halfkp/internal/datagen"
	"github.com/ChizhovVadim/halfkp/internal/metrics"
	"github.com/ChizhovVadim/halfkp/internal/offsetindex"
	"github.com/ChizhovVadim/halfkp/internal/power"
	"github.com/ChizhovVadim/halfkp/internal/selfplay"
	"github.com/ChizhovVadim/halfkp/internal/uciclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var err = run()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Println(err)
		os.Exit(1)
	}
}

type Settings struct {
	EnginePath  string        `yaml:"engine"`
	OutputPath  string        `yaml:"output"`
	IndexPath   string        `yaml:"index"`
	Threads     int           `yaml:"threads"`
	Games       int64         `yaml:"games"`
	TimeLimit   time.Duration `yaml:"time"`
	Depth       int           `yaml:"depth"`
	MoveTime    time.Duration `yaml:"movetime"`
	LineTimeout time.Duration `yaml:"lineTimeout"`
	Outcome     string        `yaml:"outcome"`
	Seed        int64         `yaml:"seed"`
	MetricsAddr string        `yaml:"metrics"`
	KeepAwake   bool          `yaml:"keepAwake"`
}

func run() error {
	var settings = Settings{
		OutputPath: "training_data_sparse.bin",
		Threads:    datagen.DefaultThreads(),
		Games:      100_000_000,
		Depth:      7,
		Outcome:    selfplay.OutcomeRandom.String(),
		KeepAwake:  true,
	}

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML settings file")
	flag.StringVar(&settings.EnginePath, "engine", settings.EnginePath, "Path to engine binary (searched in build output when empty)")
	flag.StringVar(&settings.OutputPath, "output", settings.OutputPath, "Path to dataset file, appended to")
	flag.StringVar(&settings.IndexPath, "index", settings.IndexPath, "Directory of record offset index (optional)")
	flag.IntVar(&settings.Threads, "workers", settings.Threads, "Number of parallel games")
	flag.Int64Var(&settings.Games, "games", settings.Games, "Max games to play, 0 is unlimited")
	flag.DurationVar(&settings.TimeLimit, "time", settings.TimeLimit, "Stop after this duration, 0 is unlimited")
	flag.IntVar(&settings.Depth, "depth", settings.Depth, "Search depth per move")
	flag.DurationVar(&settings.MoveTime, "movetime", settings.MoveTime, "Search time per move, used when depth is 0")
	flag.DurationVar(&settings.LineTimeout, "linetimeout", settings.LineTimeout, "Max wait for one engine output line, 0 waits forever")
	flag.StringVar(&settings.Outcome, "outcome", settings.Outcome, "Game result label: random or adjudicated")
	flag.Int64Var(&settings.Seed, "seed", settings.Seed, "Random seed, 0 uses the clock")
	flag.StringVar(&settings.MetricsAddr, "metrics", settings.MetricsAddr, "Address to serve Prometheus metrics on (optional)")
	flag.BoolVar(&settings.KeepAwake, "keepawake", settings.KeepAwake, "Keep the machine from sleeping while generating")

	if path := config.FlagValue(os.Args[1:], "config"); path != "" {
		var err = config.LoadYAML(path, &settings)
		if err != nil {
			return err
		}
	}
	flag.Parse()

	if settings.EnginePath == "" {
		var path, err = uciclient.Discover(uciclient.DefaultCandidates())
		if err != nil {
			return fmt.Errorf("%w: pass -engine", err)
		}
		settings.EnginePath = path
	}
	outcome, err := selfplay.ParseOutcomeMode(settings.Outcome)
	if err != nil {
		return err
	}

	log.Printf("%+v", settings)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var gen = &datagen.Generator{
		EnginePath:  settings.EnginePath,
		LineTimeout: settings.LineTimeout,
		OutputPath:  settings.OutputPath,
		Threads:     settings.Threads,
		MaxGames:    settings.Games,
		MaxDuration: settings.TimeLimit,
		Limits: uciclient.Limits{
			Depth:    settings.Depth,
			MoveTime: settings.MoveTime,
		},
		Outcome:   outcome,
		Seed:      settings.Seed,
		Inhibitor: power.Noop(),
	}
	if settings.KeepAwake {
		gen.Inhibitor = power.New()
	}

	if settings.IndexPath != "" {
		index, err := offsetindex.Open(settings.IndexPath)
		if err != nil {
			return err
		}
		defer index.Close()
		gen.Index = index
	}

	if settings.MetricsAddr != "" {
		var registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		gen.Metrics = metrics.NewGeneration(registry)
		go func() {
			var err = metrics.Serve(ctx, settings.MetricsAddr, registry)
			if err != nil {
				log.Println("metrics server stopped", "err", err)
			}
		}()
	}

	return gen.Run(ctx)
}
