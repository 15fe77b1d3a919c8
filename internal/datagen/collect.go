package datagen

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ChizhovVadim/halfkp/internal/metrics"
	"github.com/ChizhovVadim/halfkp/internal/sparse"
)

// collect is the only writer of the dataset file and of the offset index.
// Records are flushed per game, so the file only grows by whole games.
func (g *Generator) collect(
	ctx context.Context,
	games <-chan finishedGame,
) error {
	file, err := os.OpenFile(g.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	fi, err := file.Stat()
	if err != nil {
		return err
	}
	var base = fi.Size()
	if base != 0 {
		log.Println("appending to existing dataset", "filepath", g.OutputPath, "size", base)
	}

	if g.Index != nil {
		added, err := g.Index.Sync(g.OutputPath)
		if err != nil {
			return fmt.Errorf("sync offset index: %w", err)
		}
		if added != 0 {
			log.Println("offset index caught up", "records", added)
		}
	}

	var interval = g.ProgressInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	var ticker = time.NewTicker(interval)
	defer ticker.Stop()

	var w = sparse.NewWriter(file)
	var start = time.Now()
	var gameCount int
	var offsets []int64

	var showProgress = func() {
		log.Println("progress",
			"games", gameCount,
			"positions", w.Records(),
			"elapsed", time.Since(start).Round(time.Second),
			"sizeMB", fmt.Sprintf("%.2f", float64(base+w.Bytes())/(1<<20)))
	}

LOOP:
	for {
		select {
		case <-ctx.Done():
			showProgress()
			return ctx.Err()
		case <-ticker.C:
			showProgress()
		case fg, ok := <-games:
			if !ok {
				break LOOP
			}
			offsets = offsets[:0]
			for i := range fg.game.Records {
				offsets = append(offsets, base+w.Bytes())
				if err := w.Write(&fg.game.Records[i]); err != nil {
					return fmt.Errorf("write dataset %v: %w", g.OutputPath, err)
				}
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("write dataset %v: %w", g.OutputPath, err)
			}
			if g.Index != nil {
				if err := g.Index.Append(offsets, base+w.Bytes()); err != nil {
					return fmt.Errorf("update offset index: %w", err)
				}
			}
			gameCount++
			g.Metrics.Games.WithLabelValues(metrics.StatusOK).Inc()
			g.Metrics.Positions.Add(float64(len(fg.game.Records)))
			g.Metrics.DatasetBytes.Set(float64(base + w.Bytes()))
		}
	}

	showProgress()
	return file.Close()
}
