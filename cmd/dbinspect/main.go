// Package main provides a read-only inspection tool for the exclusion
// cache: given a user ID it dumps that user's restriction rules, explicit
// hides, derived exclusion rows grouped by reason, and visible-count stats.
//
// Usage:
//
//	DATA_PATH=~/Mirador/data go run ./cmd/dbinspect <user-id>
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mirador-app/mirador-server/internal/domain"
	"github.com/mirador-app/mirador-server/internal/store/sqlite"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dbinspect <user-id>")
		os.Exit(2)
	}
	userID := flag.Arg(0)

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Mirador/data")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	st, err := sqlite.Open(filepath.Join(dataPath, "mirador.db"), logger)
	if err != nil {
		fail("open database", err)
	}
	defer st.Close()

	ctx := context.Background()

	user, err := st.GetUser(ctx, userID)
	if err != nil {
		fail("get user", err)
	}
	fmt.Printf("User %s (%s, admin=%v)\n\n", user.ID, user.Name, user.IsAdmin)

	restrictions, err := st.ListRestrictionsForUser(ctx, userID)
	if err != nil {
		fail("list restrictions", err)
	}
	fmt.Printf("Restrictions (%d):\n", len(restrictions))
	for _, r := range restrictions {
		fmt.Printf("  %-10s %-8s %s\n", r.EntityType, r.Mode, strings.Join(r.EntityIDs, ", "))
	}
	fmt.Println()

	hidden, err := st.ListHiddenEntities(ctx, userID)
	if err != nil {
		fail("list hidden", err)
	}
	fmt.Printf("Hidden (%d):\n", len(hidden))
	for _, h := range hidden {
		fmt.Printf("  %-10s %s\n", h.EntityType, h.EntityID)
	}
	fmt.Println()

	exclusions, err := st.ListExclusionsForUser(ctx, userID)
	if err != nil {
		fail("list exclusions", err)
	}
	byReason := make(map[domain.ExclusionReason][]*domain.ExcludedEntity)
	for _, e := range exclusions {
		byReason[e.Reason] = append(byReason[e.Reason], e)
	}
	reasons := make([]string, 0, len(byReason))
	for r := range byReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)

	fmt.Printf("Exclusion cache (%d rows):\n", len(exclusions))
	for _, r := range reasons {
		rows := byReason[domain.ExclusionReason(r)]
		fmt.Printf("  %s (%d):\n", r, len(rows))
		for _, e := range rows {
			fmt.Printf("    %-10s %s\n", e.EntityType, e.EntityID)
		}
	}
	fmt.Println()

	stats, err := st.GetEntityStats(ctx, userID)
	if err != nil {
		fail("get stats", err)
	}
	fmt.Println("Visible counts:")
	for _, s := range stats {
		total, err := st.CountEntities(ctx, s.EntityType)
		if err != nil {
			fail("count entities", err)
		}
		fmt.Printf("  %-10s %4d / %d  (computed %s)\n",
			s.EntityType, s.VisibleCount, total, s.ComputedAt.Format("2006-01-02 15:04:05"))
	}
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
