package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/xieyin/internal/config"
	"github.com/MimeLyc/xieyin/pkg/log"
)

type rootOptions struct {
	envFile  string
	fake     bool
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "xieyin",
		Short: "Rewrite English words in text as playful homophones",
		Long: `xieyin replaces every English word in a text with a sound-alike rendering
in the target language, leaving punctuation, digits and other scripts untouched.
Renderings come from an OpenAI-compatible chat model and are cached on disk.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().BoolVar(&opts.fake, "fake", false, "answer with local placeholders instead of calling the LLM")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddCommand(newServeCmd(opts), newTranslateCmd(opts))
	return root
}

// loadConfig reads the dotenv file (a missing file is fine), builds the
// configuration and installs the global logger. The returned function closes
// the log file, if any.
func loadConfig(opts *rootOptions) (*config.Config, func(), error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, err
		}
	}

	var cfgOpts []config.Option
	if opts.fake {
		cfgOpts = append(cfgOpts, config.WithFakeFetcher())
	}
	cfg, err := config.NewFromEnv(cfgOpts...)
	if err != nil {
		return nil, nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	cleanup, err := setupLogging(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cleanup, nil
}

func setupLogging(cfg config.LogConfig) (func(), error) {
	level := log.ParseLevel(cfg.Level)
	if cfg.File == "" {
		log.InitLogger(level)
		return func() {}, nil
	}

	fl, err := log.NewFileLogger(cfg.File, level)
	if err != nil {
		return nil, err
	}
	log.SetLogger(fl.Logger)
	return func() {
		_ = fl.Close()
	}, nil
}
