package main

import (
	"github.com/presic/chunker/api"
	"github.com/presic/chunker/chunker"
	"github.com/presic/chunker/hmm"
	"github.com/presic/chunker/logger"
	"github.com/presic/chunker/worker"
	"flag"
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"io"
	"net/http"
	"os"
	"time"
)

type Config struct {
	ConfigPath    string `envconfig:"CHUNKER_CONFIG_PATH" default:""`
	RestAPIActive bool   `envconfig:"CHUNKER_REST_API_ACTIVE" default:"false"`
	RestAPIPort   string `envconfig:"CHUNKER_REST_API_PORT" default:"10000"`
	WorkerActive  bool   `envconfig:"CHUNKER_WORKER_ACTIVE" default:"false"`
}

type cliArgs struct {
	posModel   string
	chunkModel string
	output     string
	onlyPOS    bool
	train      bool
	annotate   bool
	files      []string
}

func main() {
	logger.SetupLogging()
	mainLogger := logger.NewLogger("Main")

	var args cliArgs
	flag.StringVar(&args.posModel, "pos-model", "", "file to load (or, with -train, save) the part-of-speech model")
	flag.StringVar(&args.chunkModel, "chunk-model", "", "file to load (or, with -train, save) the chunk model")
	flag.StringVar(&args.output, "output", "", "file for output, defaults to stdout")
	flag.BoolVar(&args.onlyPOS, "only-pos", false, "only do part-of-speech tagging")
	flag.BoolVar(&args.train, "train", false, "train models from files instead of loading them")
	flag.BoolVar(&args.annotate, "annotate", false, "derive chunk labels from dependency trees instead of tagging")
	flag.Parse()
	args.files = flag.Args()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		mainLogger.Fatal().Err(err).Msg("Failed to read environment")
	}

	if len(args.files) > 0 {
		if err := runCLI(&mainLogger, args); err != nil {
			mainLogger.Fatal().Err(err).Msg("Command failed")
		}
		return
	}

	tagger, err := loadTagger(config, args)
	if err != nil {
		mainLogger.Fatal().Err(err).Msg("Could not load tagging models")
	}
	mode := hmm.Chunk
	if args.onlyPOS {
		mode = hmm.POS
	}

	if config.RestAPIActive {
		go func() {
			mainLogger.Info().Msg("Starting API service")
			apiRequest := &api.Request{
				Chunker: tagger,
				Mode:    mode,
			}
			http.HandleFunc("/", apiRequest.ProcessData)
			host := fmt.Sprintf(":%s", config.RestAPIPort)
			mainLogger.Info().Msgf("REST API on %s", host)
			err := http.ListenAndServe(host, nil)
			mainLogger.Fatal().Err(err).Msg("REST API stopped with error")
		}()
	}

	if !config.WorkerActive {
		if !config.RestAPIActive {
			mainLogger.Error().Msg("No input files and no service enabled, nothing to do")
			flag.Usage()
			os.Exit(2)
		}
		select {}
	}

	mainLogger.Info().Msg("Starting tagging worker")
	for {
		rmqWorker, err := worker.New(tagger)
		if err != nil {
			mainLogger.Fatal().Err(err).Msg("Could not initialize RMQ worker")
		}
		if err = rmqWorker.StartWorker(); err != nil {
			mainLogger.Err(err).Msg("Worker returned with error. Launching new in 5 seconds")
			time.Sleep(5 * time.Second)
		}
	}
}

// loadTagger builds the shared Chunker for service mode, preferring the
// YAML config file over model path flags when both are present.
func loadTagger(config Config, args cliArgs) (*chunker.Chunker, error) {
	if config.ConfigPath != "" {
		cfg, err := chunker.LoadConfig(config.ConfigPath)
		if err != nil {
			return nil, err
		}
		return chunker.FromConfig(cfg)
	}
	c := chunker.New()
	if args.posModel != "" {
		if err := c.LoadModel(args.posModel, hmm.POS); err != nil {
			return nil, err
		}
	}
	if args.chunkModel != "" {
		if err := c.LoadModel(args.chunkModel, hmm.Chunk); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func runCLI(log *zerolog.Logger, args cliArgs) error {
	if args.train {
		return trainModels(log, args)
	}

	out := io.Writer(os.Stdout)
	if args.output != "" {
		outfile, err := os.Create(args.output)
		if err != nil {
			return fmt.Errorf("can't open %s: %w", args.output, err)
		}
		defer outfile.Close()
		out = outfile
	}

	if args.annotate {
		var translator chunker.Translator
		for _, name := range args.files {
			if name == args.output {
				return fmt.Errorf("%s is both input and output", name)
			}
			if err := annotateFile(translator, name, out); err != nil {
				return err
			}
		}
		return nil
	}

	c := chunker.New()
	if args.posModel != "" {
		if err := c.LoadModel(args.posModel, hmm.POS); err != nil {
			return err
		}
	}
	if args.chunkModel != "" {
		if err := c.LoadModel(args.chunkModel, hmm.Chunk); err != nil {
			return err
		}
	}
	mode := hmm.Chunk
	if args.onlyPOS {
		mode = hmm.POS
	}
	for _, name := range args.files {
		if name == args.output {
			return fmt.Errorf("%s is both input and output", name)
		}
		if err := tagFile(c, name, out, mode); err != nil {
			return err
		}
	}
	return nil
}

// trainModels reads the first input file as a tagged corpus and writes
// each model whose output path was given.
func trainModels(log *zerolog.Logger, args cliArgs) error {
	if args.posModel == "" && args.chunkModel == "" {
		return fmt.Errorf("use -pos-model or -chunk-model to specify an outpath for the trained model")
	}
	corpus := args.files[0]
	c := chunker.New()
	if args.posModel != "" {
		if err := trainModel(c, corpus, args.posModel, hmm.POS); err != nil {
			return err
		}
		log.Info().Str("path", args.posModel).Msg("Trained part-of-speech model")
	}
	if args.chunkModel != "" {
		if err := trainModel(c, corpus, args.chunkModel, hmm.Chunk); err != nil {
			return err
		}
		log.Info().Str("path", args.chunkModel).Msg("Trained chunk model")
	}
	return nil
}

func trainModel(c *chunker.Chunker, corpus, outPath string, mode hmm.Mode) error {
	f, err := os.Open(corpus)
	if err != nil {
		return fmt.Errorf("can't open %s: %w", corpus, err)
	}
	defer f.Close()
	if err := c.Train(f, mode); err != nil {
		return err
	}
	return c.SaveModel(outPath, mode)
}

func tagFile(c *chunker.Chunker, name string, out io.Writer, mode hmm.Mode) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("can't open %s: %w", name, err)
	}
	defer f.Close()
	return c.TagFile(f, out, mode)
}

func annotateFile(translator chunker.Translator, name string, out io.Writer) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("can't open %s: %w", name, err)
	}
	defer f.Close()
	return translator.AnnotateFile(f, out)
}
