// Package main is the tagmark CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/tagmark/internal/cli"
	"github.com/hyperjump/tagmark/internal/config"
	"github.com/hyperjump/tagmark/internal/models"
	"github.com/hyperjump/tagmark/internal/output"
	"github.com/hyperjump/tagmark/internal/pipeline"
	"github.com/hyperjump/tagmark/internal/server"
	"github.com/hyperjump/tagmark/internal/storage"
	"github.com/hyperjump/tagmark/internal/tabular"
	"github.com/hyperjump/tagmark/internal/watcher"
	"github.com/hyperjump/tagmark/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tagmark/config.yaml"

// errUsage is returned after a command printed its own usage.
var errUsage = errors.New("usage")

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence, and a missing default file yields
// the built-in defaults. Returns the config and the path that was loaded, or
// "" when defaults are used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	var err error
	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "server":
		err = runServer(args)
	case "text":
		err = runText(args, os.Stdin, os.Stdout)
	case "process":
		err = runProcess(args, os.Stdout)
	case "batches":
		err = runBatches(args, os.Stdout)
	case "delete":
		err = runDelete(args, os.Stdout)
	case "status":
		err = runStatus(args, os.Stdout)
	case "watch":
		err = runWatch(args, os.Stdout)
	case "version", "--version", "-v":
		fmt.Printf("tagmark version %s\n", version)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		}
		os.Exit(1)
	}
}

// argsReorder moves flags that follow positional arguments to the front so
// flag.Parse sees them: "tagmark text дайте скидку -output json".
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' && a != "-" {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// components holds the services shared by the commands.
type components struct {
	storage storage.Storage
	service *pipeline.Service
}

func (c *components) Close() {
	if c.storage != nil {
		_ = c.storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	writer, err := output.NewWriter(cfg.Storage.OutputDir, cfg.Storage.OutputFormat, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize output: %w", err)
	}
	processor := pipeline.NewProcessor(&cfg.Labeling, logger)
	return &components{
		storage: store,
		service: pipeline.NewService(processor, writer, store, pipeline.WithLogger(logger)),
	}, nil
}

// setup loads the config named by configPath and builds a logger for it.
func setup(configPath string, debug bool) (*config.Config, string, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, resolved, logger, nil
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (label diagnostics, inbox events, etc.)")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, logger, err := setup(*configPath, *debug)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
		zap.Int("rules", len(cfg.Labeling.Rules)),
	)

	c, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	inbox := newInbox(cfg, c.service, logger)
	if err := inbox.Start(ctx); err != nil {
		return fmt.Errorf("failed to start inbox watcher: %w", err)
	}
	inbox.SyncExisting()

	srv := server.NewServer(c.service, c.storage, &cfg.Server, logger, inbox, resolvedConfigPath, cfg)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		inbox.Stop()
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down...")
	inbox.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

// newInbox wires the watched directories to the batch service.
func newInbox(cfg *config.Config, svc *pipeline.Service, logger *zap.Logger) *watcher.Inbox {
	exts := cfg.Watch.Extensions
	handler := watcher.HandlerFuncs{
		Changed: func(ctx context.Context, path string) {
			if _, err := svc.ProcessFile(ctx, path, exts); err != nil {
				logger.Warn("inbox file not processed", zap.String("path", path), zap.Error(err))
			}
		},
		Removed: func(ctx context.Context, path string) {
			err := svc.DeleteFile(ctx, path)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				logger.Warn("inbox batch not deleted", zap.String("path", path), zap.Error(err))
			}
		},
	}
	return watcher.NewInbox(
		cfg.Watch.Directories,
		exts,
		cfg.Watch.RecursiveOrDefault(),
		handler,
		watcher.WithLogger(logger),
		watcher.WithIgnore(cfg.Storage.OutputDir),
	)
}

func runText(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("text", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(args))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	text := strings.Join(fs.Args(), " ")
	if fs.NArg() == 0 || text == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(b)
	}
	input := models.TextInput{Text: text}
	if err := input.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Usage: tagmark text [flags] <words...>   (or pipe text on stdin)")
		return errUsage
	}

	cfg, _, logger, err := setup(*configPath, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	res := pipeline.NewProcessor(&cfg.Labeling, logger).ProcessText(input.Text)
	return cli.WriteTextResult(stdout, res, format)
}

func runProcess(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	out := fs.String("out", "", "write the processed table to this path instead of storing a batch")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(args))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: tagmark process [flags] <file.csv|file.xlsx>")
		return errUsage
	}
	path := fs.Arg(0)

	cfg, _, logger, err := setup(*configPath, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if *out != "" {
		batch, err := processToFile(cfg, logger, path, *out)
		if err != nil {
			return err
		}
		return cli.WriteBatch(stdout, batch, format)
	}

	c, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()
	batch, err := c.service.ProcessFile(context.Background(), path, nil)
	if err != nil {
		return err
	}
	return cli.WriteBatch(stdout, batch, format)
}

// processToFile labels the table at in and writes it to out, bypassing
// batch storage. The output format follows the extension of out.
func processToFile(cfg *config.Config, logger *zap.Logger, in, out string) (*models.Batch, error) {
	if _, err := tabular.Ext(filepath.Ext(out)); err != nil {
		return nil, err
	}
	t, err := tabular.ReadFile(in)
	if err != nil {
		return nil, err
	}
	batch, err := pipeline.NewProcessor(&cfg.Labeling, logger).ProcessTable(t, filepath.Base(in))
	if err != nil {
		return nil, err
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, err
	}
	if err := tabular.Write(f, t, filepath.Ext(out)); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	batch.OutputPath = out
	batch.Format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	return batch, nil
}

func runBatches(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("batches", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	offset := fs.Int("offset", 0, "number of batches to skip")
	limit := fs.Int("limit", 0, "number of batches to list (default from server.default_list_limit)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	cfg, _, logger, err := setup(*configPath, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	c, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	q := models.ListQuery{Offset: *offset, Limit: *limit}
	q.Normalize(cfg.Server.DefaultListLimit, cfg.Server.MaxListLimit)
	batches, err := c.service.ListBatches(context.Background(), q)
	if err != nil {
		return err
	}
	return cli.WriteBatches(stdout, batches, format)
}

func runDelete(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: tagmark delete [flags] <batch-id>")
		return errUsage
	}
	id := fs.Arg(0)

	cfg, _, logger, err := setup(*configPath, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	c, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.service.DeleteBatch(context.Background(), id); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Batch deleted: %s\n", id)
	return nil
}

func runStatus(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read storage directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	if *serverURL != "" {
		st, err := statusViaHTTP(*serverURL)
		if err != nil {
			return err
		}
		return cli.WriteStatus(stdout, st, format)
	}

	cfg, _, logger, err := setup(*configPath, false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	c, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()
	st, err := localStatus(context.Background(), c.storage, cfg)
	if err != nil {
		return err
	}
	return cli.WriteStatus(stdout, st, format)
}

func localStatus(ctx context.Context, store storage.Storage, cfg *config.Config) (*cli.Status, error) {
	batches, err := store.CountBatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}
	records, err := store.CountRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	usage, err := storage.MeasureDiskUsage(cfg.Storage.DatabasePath, cfg.Storage.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("disk usage: %w", err)
	}
	return &cli.Status{
		Batches:      batches,
		Records:      records,
		DiskUsage:    usage,
		DatabasePath: cfg.Storage.DatabasePath,
		OutputDir:    cfg.Storage.OutputDir,
	}, nil
}

func statusViaHTTP(serverURL string) (*cli.Status, error) {
	var resp server.StatusResponse
	if err := getJSON(serverURL+"/api/v1/status", &resp); err != nil {
		return nil, err
	}
	st := &cli.Status{Batches: resp.Batches, Records: resp.Records}
	if resp.DiskUsage != nil {
		st.DiskUsage = *resp.DiskUsage
	}
	if resp.Config != nil {
		st.DatabasePath = resp.Config.DatabasePath
		st.OutputDir = resp.Config.OutputDir
	}
	return st, nil
}

func runWatch(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tagmark watch <add|remove|list> [path]")
		fmt.Fprintln(os.Stderr, "  tagmark watch add <path>     Add an inbox directory")
		fmt.Fprintln(os.Stderr, "  tagmark watch remove <path>  Remove an inbox directory")
		fmt.Fprintln(os.Stderr, "  tagmark watch list           List inbox directories")
		return errUsage
	}
	sub := args[0]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8000", "server URL")
	_ = fs.Parse(argsReorder(args[1:]))
	endpoint := *serverURL + "/api/v1/watch/directories"

	switch sub {
	case "add":
		if fs.NArg() < 1 {
			return fmt.Errorf("add needs a path")
		}
		path, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			return err
		}
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		if err := doJSON(http.MethodPost, endpoint, strings.NewReader(string(body)), http.StatusCreated, nil); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			return fmt.Errorf("remove needs a path")
		}
		path, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			return err
		}
		if err := doJSON(http.MethodDelete, endpoint+"?path="+url.QueryEscape(path), nil, http.StatusOK, nil); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Removed: %s\n", path)
	case "list":
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := getJSON(endpoint, &out); err != nil {
			return err
		}
		for _, d := range out.Directories {
			fmt.Fprintln(stdout, d)
		}
	default:
		return fmt.Errorf("unknown watch subcommand: %s", sub)
	}
	return nil
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func getJSON(u string, v interface{}) error {
	return doJSON(http.MethodGet, u, nil, http.StatusOK, v)
}

// doJSON sends a request and decodes the JSON response into v when v is non-nil.
func doJSON(method, u string, body io.Reader, wantStatus int, v interface{}) error {
	req, err := http.NewRequest(method, u, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `tagmark - label and highlight discount mentions in transcripts

Usage:
  tagmark server [flags]            Start the HTTP server and inbox watcher
  tagmark text [flags] <words...>   Label free text (reads stdin when no words)
  tagmark process [flags] <file>    Label a CSV/XLSX table and store it as a batch
  tagmark batches [flags]           List stored batches
  tagmark delete [flags] <id>       Delete a stored batch
  tagmark status [flags]            Show batch counts and disk usage
  tagmark watch <add|remove|list>   Manage inbox directories of a running server
  tagmark version                   Show version
  tagmark help                      Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/tagmark/config.yaml)
  --output string    Output format: text or json (text, process, batches, status)

Server Flags:
  --debug            Enable debug logging

Process Flags:
  --out string       Write the processed table to this path (.csv or .xlsx) instead of storing a batch

Status Flags:
  --server string    Ask a running server instead of reading storage directly

Examples:
  tagmark server
  tagmark text дайте скидку пожалуйста
  echo "нужна скидка" | tagmark text --output json
  tagmark process calls.csv
  tagmark process --out labeled.xlsx calls.csv
  tagmark watch add ./inbox`)
}
