package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/harrisonrobin/errands/pkg/auth"
	"github.com/harrisonrobin/errands/pkg/colors"
	"github.com/harrisonrobin/errands/pkg/config"
	"github.com/harrisonrobin/errands/pkg/index"
	"github.com/harrisonrobin/errands/pkg/model"
	"github.com/harrisonrobin/errands/pkg/provider"
	"github.com/harrisonrobin/errands/pkg/store"
)

func main() {
	// 1. Parse Flags
	configPath := flag.String("config", "", "Path to the config file (default ~/.config/errands/config.json)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	addText := flag.String("add", "", "Add a task with the given text")
	parent := flag.String("parent", "", "Parent task id for -add")
	taskColor := flag.String("color", "none", "Colour tag for -add")
	completeID := flag.String("complete", "", "Mark the task with the given id completed")
	listTasks := flag.Bool("list", false, "List local tasks")
	doAuth := flag.Bool("auth", false, "Authenticate with Google Tasks")
	var settings []string
	flag.Func("set", "Save a setting as key=value (repeatable)", func(s string) error {
		settings = append(settings, s)
		return nil
	})
	flag.Parse()

	logger := newLogger(*debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// 2. Handle Settings
	if len(settings) > 0 {
		if err := applySettings(*configPath, settings); err != nil {
			log.Fatalf("Error saving settings: %v", err)
		}
		fmt.Println("Settings saved")
		return
	}

	// 3. Handle Authentication
	if *doAuth {
		if err := auth.RemoveToken(); err != nil {
			log.Fatalf("could not delete cached token: %v", err)
		}
		if _, err := auth.GetTasksService(context.Background()); err != nil {
			log.Fatalf("Authentication failed: %v", err)
		}
		log.Printf("Authentication successful! Token saved to %s", auth.TokenFile)
		return
	}

	// 4. Handle Local Edits
	st := store.New(cfg.TasksFile)
	switch {
	case *addText != "":
		if !validColor(*taskColor) {
			log.Fatalf("Unknown colour %q", *taskColor)
		}
		task, err := st.Add(*addText, *parent, *taskColor)
		if err != nil {
			log.Fatalf("Error adding task: %v", err)
		}
		fmt.Println(task.ID)
		return
	case *completeID != "":
		if err := st.Complete(*completeID); err != nil {
			log.Fatalf("Error completing task: %v", err)
		}
		return
	case *listTasks:
		data, err := st.Get()
		if err != nil {
			log.Fatalf("Error reading tasks: %v", err)
		}
		printTasks(os.Stdout, data)
		return
	}

	// 5. Sync
	idxPath, err := index.DefaultPath(provider.GoogleIndexFile)
	if err != nil {
		log.Fatalf("could not find path to index file: %v", err)
	}
	idx, err := index.New(idxPath)
	if err != nil {
		log.Fatalf("Error loading Google Tasks index: %v", err)
	}

	registry := provider.NewRegistry(logger,
		provider.NewNextcloud(cfg, st, logger),
		provider.NewGoogle(cfg, st, idx, logger),
	)

	ctx := context.Background()
	if err := registry.ConnectAll(ctx); err != nil {
		logger.Debug("not all providers connected", "error", err)
	}
	if err := registry.SyncAll(ctx); err != nil {
		logger.Debug("sync finished with errors", "error", err)
		os.Exit(1)
	}
}

// applySettings saves key=value settings to the config file. It starts from
// the file alone so environment overrides are never written back.
func applySettings(path string, settings []string) error {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	for _, s := range settings {
		key, value, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("invalid setting %q, expected key=value", s)
		}
		if err := config.Set(cfg, key, value); err != nil {
			return err
		}
	}
	return config.Save(path, cfg)
}

// validColor accepts the Errands colour tags, including "none".
func validColor(tag string) bool {
	return tag == "" || tag == "none" || colors.Known(tag)
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// printTasks writes the task tree, children indented under their parent.
func printTasks(w io.Writer, data model.Data) {
	children := make(map[string][]model.Task)
	known := make(map[string]bool, len(data.Tasks))
	for _, t := range data.Tasks {
		known[t.ID] = true
	}
	var roots []model.Task
	for _, t := range data.Tasks {
		if t.Parent == "" || !known[t.Parent] {
			roots = append(roots, t)
			continue
		}
		children[t.Parent] = append(children[t.Parent], t)
	}

	var walk func(t model.Task, depth int)
	walk = func(t model.Task, depth int) {
		check := " "
		if t.Completed {
			check = "x"
		}
		sync := ""
		if !t.SyncedNC {
			sync = " *"
		}
		fmt.Fprintf(w, "%s%s [%s] %s%s  %s\n",
			strings.Repeat("  ", depth), colors.Paint(t.Color, "●"), check, t.Text, sync, t.ID)
		for _, c := range children[t.ID] {
			walk(c, depth+1)
		}
	}
	for _, t := range roots {
		walk(t, 0)
	}
}
