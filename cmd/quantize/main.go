package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/ChizhovVadim/halfkp/internal/config"
	"github.com/ChizhovVadim/halfkp/internal/dataset"
	"github.com/ChizhovVadim/halfkp/internal/network"
	"github.com/ChizhovVadim/halfkp/internal/publish"
	"github.com/ChizhovVadim/halfkp/internal/quant"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var err = run()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

type Settings struct {
	InputPath     string `yaml:"input"`
	OutputPath    string `yaml:"output"`
	QA            int    `yaml:"qa"`
	HeaderPath    string `yaml:"header"`
	HeaderName    string `yaml:"headerName"`
	VerifyDataset string `yaml:"verify"`
	VerifySamples int    `yaml:"verifySamples"`
	PublishTarget string `yaml:"publish"`
	PublishServer string `yaml:"endpoint"`
	PublishSecure bool   `yaml:"secure"`
}

func run() error {
	var settings = Settings{
		OutputPath:    "nnue_weights.bin",
		QA:            quant.QA,
		HeaderName:    quant.DefaultArrayName,
		VerifySamples: 1000,
		PublishServer: "localhost:9000",
	}

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML settings file")
	flag.StringVar(&settings.InputPath, "input", settings.InputPath, "Path to float network checkpoint")
	flag.StringVar(&settings.OutputPath, "output", settings.OutputPath, "Path to quantized network, overwritten")
	flag.IntVar(&settings.QA, "qa", settings.QA, "Quantization scale")
	flag.StringVar(&settings.HeaderPath, "header", settings.HeaderPath, "Also write the network as a C header for embedding (optional)")
	flag.StringVar(&settings.HeaderName, "headername", settings.HeaderName, "C array name in -header")
	flag.StringVar(&settings.VerifyDataset, "verify", settings.VerifyDataset, "Dataset to compare float and quantized evaluations on (optional)")
	flag.IntVar(&settings.VerifySamples, "verifysamples", settings.VerifySamples, "Number of records to verify on")
	flag.StringVar(&settings.PublishTarget, "publish", settings.PublishTarget, "Upload the result to s3://bucket/key (optional)")
	flag.StringVar(&settings.PublishServer, "endpoint", settings.PublishServer, "S3-compatible endpoint for -publish")
	flag.BoolVar(&settings.PublishSecure, "secure", settings.PublishSecure, "Use TLS for -publish")

	if path := config.FlagValue(os.Args[1:], "config"); path != "" {
		var err = config.LoadYAML(path, &settings)
		if err != nil {
			return err
		}
	}
	flag.Parse()

	if settings.InputPath == "" {
		return fmt.Errorf("input checkpoint is required")
	}
	log.Printf("%+v", settings)

	net, err := network.Load(settings.InputPath)
	if err != nil {
		return err
	}
	shape, err := net.Shape()
	if err != nil {
		return err
	}
	stats, err := quant.WriteFile(settings.OutputPath, shape, net.Linear(0), net.Linear(1), float64(settings.QA))
	if err != nil {
		return err
	}
	log.Println("quantize",
		"filepath", settings.OutputPath,
		"elements", stats.Elements,
		"saturated", stats.Saturated,
		"nan", stats.NaN)

	if settings.HeaderPath != "" {
		data, err := os.ReadFile(settings.OutputPath)
		if err != nil {
			return err
		}
		err = quant.WriteCHeaderFile(settings.HeaderPath, data, settings.HeaderName)
		if err != nil {
			return err
		}
		log.Println("header", "filepath", settings.HeaderPath, "array", settings.HeaderName, "bytes", len(data))
	}

	if settings.VerifyDataset != "" {
		if settings.QA != quant.QA {
			return fmt.Errorf("verify needs qa %v, got %v", quant.QA, settings.QA)
		}
		err = verify(net, shape, settings)
		if err != nil {
			return err
		}
	}

	if settings.PublishTarget != "" {
		target, err := publish.ParseTarget(settings.PublishTarget)
		if err != nil {
			return err
		}
		uploader, err := publish.NewUploader(publish.ConfigFromEnv(settings.PublishServer, settings.PublishSecure))
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		info, err := uploader.UploadFile(ctx, settings.OutputPath, target)
		if err != nil {
			return err
		}
		log.Println("publish", "target", target, "size", info.Size, "etag", info.ETag)
	}
	return nil
}

// verify compares the float checkpoint with the written fixed-point file on dataset records.
func verify(net *network.Network, shape quant.Shape, settings Settings) error {
	q, err := quant.ReadFile(settings.OutputPath, shape)
	if err != nil {
		return err
	}
	ds, err := dataset.Load(settings.VerifyDataset)
	if err != nil {
		return err
	}
	var n = min(ds.Len(), settings.VerifySamples)
	if n == 0 {
		return fmt.Errorf("verify dataset %v is empty", settings.VerifyDataset)
	}
	var sumAbs, maxAbs float64
	for i := 0; i < n; i++ {
		var rec = ds.Record(i)
		var diff = math.Abs(net.Evaluate(rec.White, rec.Black) - q.Evaluate(rec.White, rec.Black))
		sumAbs += diff
		maxAbs = math.Max(maxAbs, diff)
	}
	log.Println("verify",
		"samples", n,
		"meanAbsError", sumAbs/float64(n),
		"maxAbsError", maxAbs)
	return nil
}
