package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cognicore/socialens/internal/logging"
	"github.com/cognicore/socialens/pkg/socialens"
	"github.com/cognicore/socialens/pkg/socialens/config"
	"github.com/cognicore/socialens/pkg/socialens/records"
	"github.com/cognicore/socialens/pkg/socialens/store"
)

type options struct {
	configPath string
	envPath    string
	comments   string
	videos     string
	creators   string
	mapping    string
	outDir     string
	storePath  string
	logLevel   string
	list       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file (defaults apply when empty)")
	flag.StringVar(&opts.envPath, "env", ".env", "Optional .env file with HF_TOKEN, OPENAI_API_KEY, VALKEY_PASSWORD")
	flag.StringVar(&opts.comments, "comments", "", "Comments JSON file (required)")
	flag.StringVar(&opts.videos, "videos", "", "Videos JSON file (required)")
	flag.StringVar(&opts.creators, "creators", "", "Creators JSON file (required)")
	flag.StringVar(&opts.mapping, "mapping", "", "Optional comment→video mapping JSON file")
	flag.StringVar(&opts.outDir, "out", "", "Output directory (overrides config)")
	flag.StringVar(&opts.storePath, "db", "", "SQLite snapshot store (overrides config)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&opts.list, "list", false, "List stored snapshots and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		slog.Error("[CLI] Run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.outDir != "" {
		cfg.Output.Dir = opts.outDir
	}
	if opts.storePath != "" {
		cfg.Store.Path = opts.storePath
	}
	logging.Init(cfg.LogLevel)

	secrets := config.LoadEnv(opts.envPath)
	engine, cleanup, err := buildEngine(ctx, cfg, secrets)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.list {
		return listSnapshots(ctx, engine.Store())
	}

	in, err := loadInputs(opts)
	if err != nil {
		return err
	}

	snap, err := engine.Run(ctx, in)
	if err != nil {
		return err
	}
	if err := writeOutputs(cfg.Output.Dir, snap); err != nil {
		return err
	}

	rep := snap.Report.Join
	fmt.Printf("run %s: %d comments, %d joined, %d excluded, %d topics → %s\n",
		snap.ID, rep.Comments, rep.Joined, rep.TotalExcluded(), len(snap.Topics.All()), cfg.Output.Dir)
	for _, reason := range rep.ExcludedReasons() {
		fmt.Printf("  excluded %-20s %d\n", reason, rep.Excluded[reason])
	}
	return nil
}

func buildEngine(ctx context.Context, cfg config.Config, secrets config.Secrets) (*socialens.Engine, func(), error) {
	loader := config.Loader{Config: cfg, Secrets: secrets}
	comp, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load components: %w", err)
	}
	engine, err := socialens.FromComponents(comp, nil)
	if err != nil {
		comp.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := comp.Close(); err != nil {
			slog.Warn("[CLI] Close failed", slog.String("error", err.Error()))
		}
	}
	return engine, cleanup, nil
}

func loadInputs(opts options) (socialens.Inputs, error) {
	if opts.comments == "" || opts.videos == "" || opts.creators == "" {
		return socialens.Inputs{}, errors.New("-comments, -videos and -creators are required")
	}

	var in socialens.Inputs
	comments, err := records.LoadComments(opts.comments)
	if err != nil {
		return in, fmt.Errorf("load comments: %w", err)
	}
	in.Comments, in.SkippedComments = comments.Items, comments.Skipped
	videos, err := records.LoadVideos(opts.videos)
	if err != nil {
		return in, fmt.Errorf("load videos: %w", err)
	}
	in.Videos = videos.Items
	creators, err := records.LoadCreators(opts.creators)
	if err != nil {
		return in, fmt.Errorf("load creators: %w", err)
	}
	in.Creators = creators.Items
	if opts.mapping != "" {
		mappings, err := records.LoadMappings(opts.mapping)
		if err != nil {
			return in, fmt.Errorf("load mapping: %w", err)
		}
		in.Mappings = mappings.Items
	}
	return in, nil
}

func writeOutputs(dir string, snap store.Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := []struct {
		name string
		v    any
	}{
		{"joined.json", snap.Records},
		{"topics.json", snap.Topics},
		{"reconcile.json", snap.Reconcile},
		{"report.json", snap.Report},
	}
	for _, f := range files {
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

func listSnapshots(ctx context.Context, st store.Store) error {
	infos, err := st.ListSnapshots(ctx, 20)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no snapshots")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%s  %s  comments=%d joined=%d topics=%d\n",
			info.ID, info.CreatedAt.Format("2006-01-02 15:04:05"), info.Comments, info.Joined, info.Topics)
	}
	return nil
}
