package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vertextoedge/issue-exporter/internal/adapter/fetcherclient"
	"github.com/vertextoedge/issue-exporter/internal/adapter/filesystem"
	"github.com/vertextoedge/issue-exporter/internal/adapter/jira"
	"github.com/vertextoedge/issue-exporter/internal/adapter/pagehttp"
	"github.com/vertextoedge/issue-exporter/internal/adapter/sqlite"
	"github.com/vertextoedge/issue-exporter/internal/config"
	"github.com/vertextoedge/issue-exporter/internal/domain"
	"github.com/vertextoedge/issue-exporter/internal/domain/event"
	"github.com/vertextoedge/issue-exporter/internal/logger"
	"github.com/vertextoedge/issue-exporter/internal/port"
	"github.com/vertextoedge/issue-exporter/internal/service/batch"
	"github.com/vertextoedge/issue-exporter/internal/service/cascade"
	"github.com/vertextoedge/issue-exporter/internal/service/exporter"
	"github.com/vertextoedge/issue-exporter/internal/service/fetcher"
	"github.com/vertextoedge/issue-exporter/internal/service/server"
	"github.com/vertextoedge/issue-exporter/internal/transfer"
	"go.uber.org/zap"
)

const version = "0.1.0"

const usage = `Usage: issue-exporter [-config file] <command> [flags]

Commands:
  fetcher            run the privileged fetcher server
  export <issue>     download the attachments of an issue (key or URL)
  jobs [-id ID]      list recorded export jobs, or show one
`

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, args := flag.Arg(0), flag.Args()[1:]
	switch command {
	case "fetcher":
		err = runFetcher(ctx, cfg)
	case "export":
		err = runExport(ctx, cfg, args)
	case "jobs":
		err = runJobs(cfg, args)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.GetZapLogger().Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func transferConfig(cfg *config.Config) transfer.Config {
	return transfer.Config{
		Name:         transfer.ChannelName,
		MaxChunkSize: cfg.Transfer.MaxChunkSize,
	}
}

// sessionJar returns a cookie jar holding the configured session cookies
func sessionJar(cfg *config.Config) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	cookies, err := cfg.Requester.Cookies()
	if err != nil {
		return nil, err
	}
	if len(cookies) > 0 && cfg.Requester.BaseURL != "" {
		u, err := url.Parse(cfg.Requester.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid requester.base_url: %w", err)
		}
		jar.SetCookies(u, cookies)
	}
	return jar, nil
}

func newFetchService(cfg *config.Config, jar http.CookieJar) *fetcher.Service {
	return fetcher.New(&fetcher.Config{
		MaxChunkSize:    cfg.Transfer.MaxChunkSize,
		MaxOneShotBytes: cfg.Fetcher.GetMaxOneShotBytes(),
		OneShotTimeout:  cfg.Fetcher.GetOneShotTimeout(),
		MaxRedirects:    cfg.Fetcher.MaxRedirects,
		UserAgent:       cfg.Fetcher.UserAgent,
	}, jar, nil, logger.Named("fetcher"))
}

func runFetcher(ctx context.Context, cfg *config.Config) error {
	zapLogger := logger.GetZapLogger()
	zapLogger.Info("starting issue-exporter fetcher", zap.String("version", version))

	jar, err := sessionJar(cfg)
	if err != nil {
		return err
	}

	httpServer := server.New(&server.Config{
		BindAddr:     cfg.HTTP.BindAddr,
		Token:        cfg.HTTP.Token,
		Transfer:     transferConfig(cfg),
		ReadTimeout:  cfg.HTTP.GetReadTimeout(),
		WriteTimeout: cfg.HTTP.GetWriteTimeout(),
		IdleTimeout:  cfg.HTTP.GetIdleTimeout(),
	}, newFetchService(cfg, jar), logger.Named("server"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	if cfg.HTTP.Token == "" {
		zapLogger.Warn("fetcher runs without a token; bind it to a loopback address only")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zapLogger.Info("shutdown signal received, stopping fetcher...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Stop(shutdownCtx)
}

func runExport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	issueKey := fs.String("issue", "", "Issue key stored with the job (defaults to the key in the source)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("export needs exactly one issue key or URL")
	}
	source := fs.Arg(0)
	if *issueKey == "" {
		*issueKey = jira.IssueKeyFromSource(source)
	}

	if err := cfg.ValidateExport(); err != nil {
		return err
	}
	zapLogger := logger.GetZapLogger()

	jar, err := sessionJar(cfg)
	if err != nil {
		return err
	}

	// Privileged fetcher, remote or in-process
	var privileged port.PrivilegedFetcher
	if cfg.Requester.FetcherURL != "" {
		privileged, err = fetcherclient.New(fetcherclient.Config{
			BaseURL:  cfg.Requester.FetcherURL,
			Token:    cfg.Requester.FetcherToken,
			Transfer: transferConfig(cfg),
			Timeout:  cfg.Requester.GetRequestTimeout(),
		}, logger.Named("fetcherclient"))
		if err != nil {
			return err
		}
	} else {
		privileged = fetcherclient.NewInProcess(newFetchService(cfg, jar), transferConfig(cfg), logger.Named("fetcher"))
	}

	page, err := pagehttp.New(&pagehttp.Config{
		PageOrigin: cfg.Requester.GetPageOrigin(),
		Timeout:    cfg.Requester.GetRequestTimeout(),
	}, jar, nil, logger.Named("page"))
	if err != nil {
		return err
	}

	var local port.LocalHandleResolver
	if cfg.Archive.HandlesDir != "" {
		local = filesystem.NewHandleResolver(cfg.Archive.HandlesDir)
	}

	downloads := cascade.New(&cascade.Config{
		SessionTimeout: cfg.Transfer.GetSessionTimeout(),
	}, page, privileged, local, logger.Named("cascade"))
	zapLogger.Debug("download strategies", zap.Strings("order", downloads.Strategies()))

	archive, err := filesystem.NewArchive(cfg.Archive.RootDir, cfg.Archive.GetMinFreeBytes(), logger.Named("archive"))
	if err != nil {
		return err
	}
	if n, err := archive.CleanOldTempFiles(cfg.Archive.GetTempFileMaxAge()); err != nil {
		zapLogger.Warn("failed to clean temp files", zap.Error(err))
	} else if n > 0 {
		zapLogger.Info("removed leftover temp files", zap.Int("count", n))
	}

	dispatcher := event.NewInMemoryDispatcher(func(e event.DomainEvent, err error) {
		zapLogger.Warn("event handler failed", zap.String("event", e.EventName()), zap.Error(err))
	})
	dispatcher.Subscribe(event.NewLoggingHandler(logger.Named("events")))

	coordinator := batch.New(&batch.Config{
		AttachmentDir: cfg.Archive.AttachmentDir,
		MinInterval:   cfg.Transfer.GetMinInterval(),
	}, downloads, archive, dispatcher, logger.Named("batch"))

	// Discovery and identity probe
	client, err := jira.NewClient(cfg.Requester.BaseURL, cfg.Requester.AuthHeader(), privileged, logger.Named("jira"))
	if err != nil {
		return err
	}
	var discoverer port.Discoverer = client
	if cfg.Requester.Discovery == "html" {
		discoverer = jira.NewPageDiscoverer(privileged, logger.Named("jira"))
		if _, err := url.ParseRequestURI(source); err != nil {
			source = client.BaseURL() + "/browse/" + source
		}
	}
	var identity port.IdentityChecker
	if !cfg.Requester.SkipIdentity && cfg.Requester.AuthHeader() != "" {
		identity = client
	}

	// Open database
	store, err := sqlite.Open(databasePath(cfg))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	job, err := exporter.New(identity, discoverer, coordinator, store, logger.Named("exporter")).Run(ctx, *issueKey, source)
	if job != nil {
		printJob(job, archive.RootDir())
	}
	return err
}

func databasePath(cfg *config.Config) string {
	if cfg.Database.Path != "" {
		return cfg.Database.Path
	}
	return filepath.Join(cfg.Archive.RootDir, "jobs.db")
}

func runJobs(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ExitOnError)
	id := fs.String("id", "", "Show a single job with its attachments")
	limit := fs.Int("limit", 20, "Maximum number of jobs to list")
	fs.Parse(args)

	store, err := sqlite.Open(databasePath(cfg))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	if *id != "" {
		job, err := store.GetJob(*id)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("job %s not found", *id)
		}
		if err != nil {
			return err
		}
		printJob(job, cfg.Archive.RootDir)
		return nil
	}

	jobs, err := store.ListJobs(*limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tISSUE\tSTARTED\tDOWNLOADED\tFAILED")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", j.ID, j.IssueKey, humanize.Time(j.StartedAt), j.Downloaded, j.Failed)
	}
	return w.Flush()
}

func printJob(job *domain.ExportJob, root string) {
	fmt.Printf("job %s  issue %s  downloaded %d  failed %d\n", job.ID, job.IssueKey, job.Downloaded, job.Failed)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range job.Entries {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", e.ID, filepath.Join(root, e.ArchivePath), humanize.Bytes(uint64(e.Size)), e.Strategy)
	}
	for _, s := range job.Skipped {
		fmt.Fprintf(w, "  -\t%s\tskipped\t%s\n", s.URL, s.Reason)
	}
	w.Flush()
}
