package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/ignite/contentflow/internal/pkg/logger"
	"github.com/ignite/contentflow/internal/repository/postgres"
)

const usage = `usage: migrate [-to version] up|down|status|version`

func main() {
	target := flag.Int64("to", 0, "with down: roll back to this version")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("ping", "error", err)
		os.Exit(1)
	}

	switch cmd {
	case "up":
		err = postgres.Migrate(ctx, db)
	case "down":
		err = postgres.Rollback(ctx, db, *target)
	case "status":
		err = postgres.MigrationStatus(ctx, db)
	case "version":
		var v int64
		if v, err = postgres.Version(ctx, db); err == nil {
			fmt.Println(v)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("migrate "+cmd, "error", err)
		os.Exit(1)
	}
	logger.Info("migrate done", "command", cmd)
}
