package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ChizhovVadim/halfkp/internal/archive"
	"github.com/ChizhovVadim/halfkp/internal/dataset"
	"github.com/ChizhovVadim/halfkp/internal/halfkp"
	"github.com/ChizhovVadim/halfkp/internal/offsetindex"
)

const usage = `usage: datasetinfo <command> [flags]

commands:
  stats    summarize a dataset file (plain, .zst or .lz4)
  index    bring a record offset index up to date
  archive  write a compressed copy of a dataset
`

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var err = run(os.Args[1:])
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("command expected")
	}
	switch args[0] {
	case "stats":
		return statsCommand(args[1:])
	case "index":
		return indexCommand(args[1:])
	case "archive":
		return archiveCommand(args[1:])
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", args[0])
}

func statsCommand(args []string) error {
	var fs = flag.NewFlagSet("stats", flag.ExitOnError)
	var input = fs.String("input", "training_data_sparse.bin", "Path to dataset")
	fs.Parse(args)

	var stats, err = dataset.Analyze(*input)
	if err != nil {
		return err
	}
	log.Println("stats",
		"filepath", *input,
		"records", stats.Records,
		"bytes", stats.Bytes,
		"truncatedBytes", stats.TruncatedBytes,
		"outOfRange", stats.OutOfRange)
	log.Println("targets",
		"min", stats.MinTarget,
		"max", stats.MaxTarget,
		"mean", stats.MeanTarget)
	log.Println("coverage",
		"whiteFeatures", stats.WhiteFeatures,
		"blackFeatures", stats.BlackFeatures,
		"kingSquares", stats.KingSquares)
	for pieces, count := range stats.PieceCounts {
		if count != 0 {
			log.Println("pieces", pieces, "records", count)
		}
	}
	return nil
}

func indexCommand(args []string) error {
	var fs = flag.NewFlagSet("index", flag.ExitOnError)
	var input = fs.String("input", "training_data_sparse.bin", "Path to uncompressed dataset")
	var indexPath = fs.String("index", "training_data_sparse.idx", "Directory of offset index, empty builds a throwaway in-memory index")
	var sample = fs.Int("sample", -1, "Print record number N through the index")
	fs.Parse(args)

	var ix *offsetindex.Index
	var err error
	if *indexPath == "" {
		ix, err = offsetindex.OpenInMemory()
	} else {
		ix, err = offsetindex.Open(*indexPath)
	}
	if err != nil {
		return err
	}
	defer ix.Close()

	ds, err := dataset.Open(*input, ix)
	if err != nil {
		return err
	}
	defer ds.Close()
	log.Println("index",
		"filepath", *input,
		"records", ds.Len(),
		"indexedBytes", ix.Size())

	if *sample >= 0 {
		rec, err := ds.Record(*sample)
		if err != nil {
			return err
		}
		log.Println("record", *sample,
			"target", rec.Target,
			"realTarget", dataset.RealTarget(rec.Target),
			"white", featureNames(rec.White),
			"black", featureNames(rec.Black))
	}
	return nil
}

func featureNames(indices []int32) []string {
	var result = make([]string, len(indices))
	for i, index := range indices {
		result[i] = halfkp.FeatureName(index)
	}
	return result
}

func archiveCommand(args []string) error {
	var fs = flag.NewFlagSet("archive", flag.ExitOnError)
	var input = fs.String("input", "training_data_sparse.bin", "Path to dataset")
	var output = fs.String("output", "training_data_sparse.bin.zst", "Path to compressed copy, format by extension")
	fs.Parse(args)

	var n, err = archive.Compress(*input, *output)
	if err != nil {
		return err
	}
	info, err := os.Stat(*output)
	if err != nil {
		return err
	}
	log.Println("archive",
		"filepath", *output,
		"format", archive.FormatOf(*output),
		"inputBytes", n,
		"outputBytes", info.Size())
	return nil
}
