// Package migrations embeds the SQL schema of the booking database.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed *.sql
var files embed.FS

// Up applies every *.up.sql file in lexical order. Statements are idempotent.
func Up(ctx context.Context, db *pgxpool.Pool) error {
	return apply(ctx, db, ".up.sql", false)
}

// Down applies every *.down.sql file in reverse lexical order.
func Down(ctx context.Context, db *pgxpool.Pool) error {
	return apply(ctx, db, ".down.sql", true)
}

func Names(suffix string) ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func apply(ctx context.Context, db *pgxpool.Pool, suffix string, reverse bool) error {
	names, err := Names(suffix)
	if err != nil {
		return err
	}
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}
	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
