package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/erazemk/inventar/internal/archive"
	"github.com/erazemk/inventar/internal/catalog"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/store"
)

func openDatabase(path string) *sql.DB {
	database, err := db.Open(path)
	if err != nil {
		slog.Error("failed to open database", "path", path, "err", err)
		os.Exit(1)
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		slog.Error("failed to migrate database", "path", path, "err", err)
		os.Exit(1)
	}
	return database
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dbPath := fs.String("db", "inventar.sqlite3", "path to SQLite database file")
	fs.Parse(args)

	if _, err := os.Stat(*dbPath); err == nil {
		fmt.Fprintf(os.Stderr, "Error: database file %s already exists\n", *dbPath)
		os.Exit(1)
	}

	database := openDatabase(*dbPath)
	database.Close()
	fmt.Printf("Database created: %s\n", *dbPath)
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dbPath := fs.String("db", "inventar.sqlite3", "path to SQLite database file")
	fs.Parse(args)

	database := openDatabase(*dbPath)
	defer database.Close()
	ctx := context.Background()

	counters, err := store.ListCounters(ctx, database)
	if err != nil {
		slog.Error("failed to list counters", "err", err)
		os.Exit(1)
	}
	nextIDs := make(map[string]int64, len(counters))
	for _, c := range counters {
		nextIDs[c.Entity] = c.NextID
	}

	for _, collection := range kv.Collections {
		n, err := kv.Count(ctx, database, collection)
		if err != nil {
			slog.Error("failed to count records", "collection", collection, "err", err)
			os.Exit(1)
		}
		next := nextIDs[collection]
		if next == 0 {
			next = 1
		}
		fmt.Printf("%-12s %5d records (next id %d)\n", collection, n, next)
	}

	images, err := store.CountAttachments(ctx, database)
	if err != nil {
		slog.Error("failed to count attachments", "err", err)
		os.Exit(1)
	}
	fmt.Printf("%-12s %5d attachments\n", "images", images)
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dbPath := fs.String("db", "inventar.sqlite3", "path to SQLite database file")
	out := fs.String("out", "inventar-export.zip", "path to the archive to write")
	fs.Parse(args)

	database := openDatabase(*dbPath)
	defer database.Close()

	f, err := os.Create(*out)
	if err != nil {
		slog.Error("failed to create archive file", "path", *out, "err", err)
		os.Exit(1)
	}

	if err := archive.Export(context.Background(), database, f); err != nil {
		f.Close()
		os.Remove(*out)
		slog.Error("export failed", "err", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		slog.Error("failed to write archive file", "path", *out, "err", err)
		os.Exit(1)
	}
	fmt.Printf("Exported to %s\n", *out)
}

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dbPath := fs.String("db", "inventar.sqlite3", "path to SQLite database file")
	in := fs.String("in", "", "path to the archive to import")
	fs.Parse(args)

	if *in == "" {
		fmt.Fprintln(os.Stderr, "Error: -in is required")
		os.Exit(1)
	}

	f, err := os.Open(*in)
	if err != nil {
		slog.Error("failed to open archive file", "path", *in, "err", err)
		os.Exit(1)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		slog.Error("failed to stat archive file", "path", *in, "err", err)
		os.Exit(1)
	}

	database := openDatabase(*dbPath)
	defer database.Close()

	summary, err := archive.Import(context.Background(), database, f, info.Size())
	if err != nil {
		slog.Error("import failed; store may be partially replayed, re-import a known-good archive or destroy", "err", err)
		os.Exit(1)
	}

	for _, w := range summary.Warnings {
		slog.Warn("import warning", "detail", w)
	}
	fmt.Printf("Imported %d locations, %d categories, %d owners, %d items, %d images\n",
		summary.Locations, summary.Categories, summary.Owners, summary.Items, summary.Images)
}

func cmdDestroy(args []string) {
	fs := flag.NewFlagSet("destroy", flag.ExitOnError)
	dbPath := fs.String("db", "inventar.sqlite3", "path to SQLite database file")
	yes := fs.Bool("yes", false, "confirm irreversible deletion of all data")
	fs.Parse(args)

	if !*yes {
		fmt.Fprintln(os.Stderr, "Error: destroy is irreversible, pass -yes to confirm")
		os.Exit(1)
	}

	database := openDatabase(*dbPath)
	defer database.Close()

	result, removed := catalog.New(database).Destroy(context.Background())
	if !result.Success {
		slog.Error("destroy failed", "reason", result.Reason)
		os.Exit(1)
	}

	for _, collection := range append(append([]string{}, kv.Collections...), "images") {
		fmt.Printf("Removed %d %s\n", removed[collection], collection)
	}
}
