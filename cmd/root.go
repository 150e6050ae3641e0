package cmd

import (
	"context"
	"fmt"
	u "net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/rangedl/internal/config"
	"github.com/tanq16/rangedl/internal/history"
	"github.com/tanq16/rangedl/internal/output"
	"github.com/tanq16/rangedl/internal/scheduler"
	"github.com/tanq16/rangedl/internal/utils"
)

var (
	outputPath     string
	configPath     string
	connections    int
	sliceThreshold int64
	timeout        time.Duration
	kaTimeout      time.Duration
	retries        int
	retryBackoff   time.Duration
	chunkSize      string
	userAgent      string
	proxyURL       string
	proxyUsername  string
	proxyPassword  string
	headers        []string
	verifyRanges   bool
	debug          bool
	logFile        string
	historyPath    string
	noHistory      bool
)

var RangedlVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "rangedl [URL] [--output OUTPUT_PATH]",
	Short:   "rangedl is a concurrent HTTP range downloader",
	Version: RangedlVersion,
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			return
		}
		link := args[0]
		if parsed, err := u.Parse(link); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			output.PrintError("Invalid URL format")
			os.Exit(1)
		}
		cfg, err := buildConfig(cmd)
		if err != nil {
			output.PrintError(fmt.Sprintf("Invalid configuration: %v", err))
			os.Exit(1)
		}
		jobs := []utils.Job{{ID: uuid.New().String(), URL: link, OutputPath: outputPath, Config: cfg}}
		os.Exit(runJobs(jobs, 1))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (inferred from the server or URL if not provided)")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (RANGEDL_* environment variables override it)")
	rootCmd.PersistentFlags().IntVarP(&connections, "connections", "c", 16, "Number of concurrent range requests per download (above 5 enables high-thread-mode)")
	rootCmd.PersistentFlags().Int64VarP(&sliceThreshold, "slice-threshold", "s", 50, "Size in MiB at or below which a single connection is used")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 30*time.Second, "Connect, response header and per-read timeout (eg. 5s, 1m)")
	rootCmd.PersistentFlags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for idle connections")
	rootCmd.PersistentFlags().IntVarP(&retries, "retries", "r", 5, "Attempts per chunk before the download fails")
	rootCmd.PersistentFlags().DurationVar(&retryBackoff, "retry-backoff", time.Second, "Wait between attempts of a chunk")
	rootCmd.PersistentFlags().StringVar(&chunkSize, "chunk-size", "1MB", "Read unit size (eg. 512KB, 4MB)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", config.DefaultUserAgent, "User agent ('randomize' picks a browser agent)")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., http://proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	rootCmd.PersistentFlags().BoolVar(&verifyRanges, "verify-ranges", false, "Fail when a server answers a range request without 206 Partial Content")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", utils.LogFile, "Log file used while the live display is active")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history-db", "", "History database path (defaults to the user config directory)")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not record downloads in history")

	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newHistoryCmd())
}

// buildConfig layers changed flags over the loaded config.
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("connections") {
		cfg.CoroutineLimit = connections
	}
	if flags.Changed("slice-threshold") {
		cfg.SliceThreshold = sliceThreshold
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("keep-alive-timeout") {
		cfg.KATimeout = kaTimeout
	}
	if flags.Changed("retries") {
		cfg.RetryTimes = retries
	}
	if flags.Changed("retry-backoff") {
		cfg.RetryBackoff = retryBackoff
	}
	if flags.Changed("chunk-size") {
		size, err := config.ParseBytes(chunkSize)
		if err != nil {
			return cfg, err
		}
		cfg.ChunkSize = size
	}
	if flags.Changed("proxy") {
		cfg.ProxyURL = proxyURL
	}
	if flags.Changed("verify-ranges") {
		cfg.VerifyRanges = verifyRanges
	}
	cfg.SetHeaders(utils.ParseHeaderArgs(headers))
	if flags.Changed("user-agent") {
		if userAgent == "randomize" {
			userAgent = utils.GetRandomUserAgent()
		}
		cfg.SetUserAgent(userAgent)
	}
	if cfg.ProxyURL != "" && proxyUsername != "" {
		parsedProxy, err := u.Parse(cfg.ProxyURL)
		if err != nil {
			return cfg, fmt.Errorf("invalid proxy URL: %w", err)
		}
		if proxyPassword != "" {
			parsedProxy.User = u.UserPassword(proxyUsername, proxyPassword)
		} else {
			parsedProxy.User = u.User(proxyUsername)
		}
		cfg.ProxyURL = parsedProxy.String()
	}
	return cfg, cfg.Validate()
}

// runJobs sets up logging, history and signals around a scheduler run and
// returns the process exit code.
func runJobs(jobs []utils.Job, workers int) int {
	display := output.IsTerminal() && !debug
	var logWriter *os.File
	if display {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			output.PrintError(fmt.Sprintf("Failed to open log file: %v", err))
			return 1
		}
		defer f.Close()
		logWriter = f
	}
	if logWriter != nil {
		utils.InitLogger(debug, logWriter)
	} else {
		utils.InitLogger(debug, nil)
	}

	store := openHistory()
	if store != nil {
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := scheduler.Run(ctx, jobs, scheduler.Options{
		Workers: workers,
		Output:  output.NewManager(os.Stdout),
		Display: display,
		History: store,
	})
	if err != nil {
		log.Debug().Str("op", "cmd").Err(err).Msg("Run finished with failures")
		output.PrintError("Encountered failed download(s)")
		return 1
	}
	return 0
}

func openHistory() *history.Store {
	if noHistory {
		return nil
	}
	dbPath := historyPath
	if dbPath == "" {
		var err error
		if dbPath, err = history.DefaultPath(); err != nil {
			log.Warn().Str("op", "cmd").Err(err).Msg("History disabled")
			return nil
		}
	}
	store, err := history.Open(dbPath)
	if err != nil {
		log.Warn().Str("op", "cmd").Err(err).Msg("History disabled")
		return nil
	}
	return store
}
