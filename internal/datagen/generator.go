package datagen

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/ChizhovVadim/halfkp/internal/metrics"
	"github.com/ChizhovVadim/halfkp/internal/offsetindex"
	"github.com/ChizhovVadim/halfkp/internal/power"
	"github.com/ChizhovVadim/halfkp/internal/selfplay"
	"github.com/ChizhovVadim/halfkp/internal/uciclient"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Engine interface {
	selfplay.Engine
	Quit() error
}

type EngineFactory func(ctx context.Context) (Engine, error)

var errTimeLimit = errors.New("time limit reached")

// Generator plays self-play games in parallel and appends their records to one dataset file.
type Generator struct {
	EnginePath  string
	EngineArgs  []string
	LineTimeout time.Duration
	// NewEngine overrides launching EnginePath.
	NewEngine EngineFactory

	OutputPath string
	Threads    int
	// MaxGames limits the number of games started, 0 is unlimited.
	MaxGames    int64
	MaxDuration time.Duration
	Limits      uciclient.Limits
	Outcome     selfplay.OutcomeMode
	Seed        int64

	// StartRate limits engine launches per second across all workers.
	StartRate        rate.Limit
	ProgressInterval time.Duration

	Index     *offsetindex.Index
	Metrics   *metrics.Generation
	Inhibitor power.Inhibitor
}

func DefaultThreads() int {
	return max(1, runtime.NumCPU()-2)
}

type finishedGame struct {
	id   int64
	game selfplay.Game
}

func (g *Generator) Run(ctx context.Context) error {
	log.Println("datagen started")
	defer log.Println("datagen finished")

	var threads = g.Threads
	if threads <= 0 {
		threads = DefaultThreads()
	}
	if g.Metrics == nil {
		g.Metrics = metrics.NewGeneration(nil)
	}
	if g.Inhibitor != nil {
		if err := g.Inhibitor.Acquire(); err != nil {
			log.Println("sleep prevention unavailable", "err", err)
		} else {
			defer g.Inhibitor.Release()
		}
	}

	var limitCtx = ctx
	if g.MaxDuration > 0 {
		var cancel context.CancelFunc
		limitCtx, cancel = context.WithTimeoutCause(ctx, g.MaxDuration, errTimeLimit)
		defer cancel()
	}

	eg, ctx := errgroup.WithContext(limitCtx)

	var tasks = make(chan int64, threads)
	var games = make(chan finishedGame, 128)

	eg.Go(func() error {
		defer close(tasks)
		for id := int64(0); g.MaxGames == 0 || id < g.MaxGames; id++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case tasks <- id:
			}
		}
		return nil
	})

	eg.Go(func() error {
		return g.collect(ctx, games)
	})

	var startRate = g.StartRate
	if startRate == 0 {
		startRate = rate.Limit(20 * threads)
	}
	var limiter = rate.NewLimiter(startRate, threads)
	var seed = g.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var wg = &sync.WaitGroup{}
	for i := 0; i < threads; i++ {
		wg.Add(1)
		var sampler = selfplay.NewSampler(g.Limits, g.Outcome, seed+int64(i)*7919)
		eg.Go(func() error {
			defer wg.Done()
			return g.playGames(ctx, sampler, limiter, tasks, games)
		})
	}

	eg.Go(func() error {
		wg.Wait()
		close(games)
		return nil
	})

	var err = eg.Wait()
	if errors.Is(err, context.DeadlineExceeded) && context.Cause(limitCtx) == errTimeLimit {
		log.Println("time limit reached", "limit", g.MaxDuration)
		return nil
	}
	return err
}

func (g *Generator) startEngine(ctx context.Context) (Engine, error) {
	if g.NewEngine != nil {
		return g.NewEngine(ctx)
	}
	var eng, err = uciclient.Start(ctx, g.EnginePath, g.EngineArgs...)
	if err != nil {
		return nil, err
	}
	eng.LineTimeout = g.LineTimeout
	return eng, nil
}

// playGames runs one engine process per game. Engine and protocol failures only cost the current game.
func (g *Generator) playGames(
	ctx context.Context,
	sampler *selfplay.Sampler,
	limiter *rate.Limiter,
	tasks <-chan int64,
	games chan<- finishedGame,
) error {
	for id := range tasks {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				// the next launch would fall after the deadline
				log.Println("engine start deferred past deadline", "game", id, "err", err)
				<-ctx.Done()
			}
			return ctx.Err()
		}
		var start = time.Now()
		eng, err := g.startEngine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.Metrics.EngineStarts.WithLabelValues(metrics.StatusFailed).Inc()
			g.Metrics.Games.WithLabelValues(metrics.StatusFailed).Inc()
			log.Println("engine start failed", "game", id, "err", err)
			continue
		}
		g.Metrics.EngineStarts.WithLabelValues(metrics.StatusOK).Inc()

		game, err := sampler.PlayGame(ctx, eng)
		eng.Quit()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		g.Metrics.GameSeconds.Observe(time.Since(start).Seconds())
		g.Metrics.Dropped.Add(float64(game.Dropped))
		if err != nil {
			log.Println("game stopped early", "game", id, "plies", len(game.Moves), "records", len(game.Records), "err", err)
		}
		if len(game.Records) == 0 {
			var status = metrics.StatusEmpty
			if err != nil {
				status = metrics.StatusFailed
			}
			g.Metrics.Games.WithLabelValues(status).Inc()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case games <- finishedGame{id: id, game: game}:
		}
	}
	return nil
}
