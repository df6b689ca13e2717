package main

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/calebh/sift/internal/analytics"
	"github.com/calebh/sift/internal/config"
	"github.com/calebh/sift/internal/db"
	"github.com/calebh/sift/internal/embed"
	"github.com/calebh/sift/internal/model"
	"github.com/calebh/sift/internal/policy"
	"github.com/calebh/sift/internal/search"
	"github.com/calebh/sift/internal/store"
	"github.com/calebh/sift/internal/views"
)

var (
	version    = "dev"
	commit     = "none"
	buildDate  = "unknown"
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sift",
		Short: "Personal communications triage engine",
		Long: `Sift ingests your messages across platforms (chat, email, Slack,
etc.) into a single event-sourced store, makes them searchable by
keyword and by meaning, and ranks threads, contacts, and emails by
who actually deserves your attention.`,
	}

	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	// version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    buildDate,
				})
			} else {
				fmt.Printf("sift %s (%s, %s)\n", version, commit, buildDate)
			}
		},
	})

	// init command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Initialize sift config and database",
		Run: func(cmd *cobra.Command, args []string) {
			type Result struct {
				OK        bool   `json:"ok"`
				Message   string `json:"message,omitempty"`
				ConfigDir string `json:"config_dir,omitempty"`
				DataDir   string `json:"data_dir,omitempty"`
				DBPath    string `json:"db_path,omitempty"`
			}

			configDir, err := config.GetConfigDir()
			if err != nil {
				fail("Failed to get config directory: %v", err)
			}
			dataDir, err := config.GetDataDir()
			if err != nil {
				fail("Failed to get data directory: %v", err)
			}
			if err := os.MkdirAll(configDir, 0755); err != nil {
				fail("Failed to create config directory: %v", err)
			}
			if err := db.Init(); err != nil {
				fail("Failed to initialize database: %v", err)
			}
			dbPath, err := db.GetPath()
			if err != nil {
				fail("Failed to get database path: %v", err)
			}

			result := Result{
				OK:        true,
				Message:   "Sift initialized successfully",
				ConfigDir: configDir,
				DataDir:   dataDir,
				DBPath:    dbPath,
			}
			if jsonOutput {
				printJSON(result)
			} else {
				fmt.Printf("✓ Config directory: %s\n", result.ConfigDir)
				fmt.Printf("✓ Data directory: %s\n", result.DataDir)
				fmt.Printf("✓ Database: %s\n", result.DBPath)
				fmt.Println("\nSift initialized successfully!")
			}
		},
	})

	// ingest command
	ingestCmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest messages from a JSONL file or stdin",
		Long: `Read messages as JSON Lines (one message object per line) and
append them to the event store. Re-ingesting the same export is safe:
messages are deduplicated on their platform identity.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			type Result struct {
				OK       bool   `json:"ok"`
				Message  string `json:"message,omitempty"`
				Created  int    `json:"created"`
				Updated  int    `json:"updated"`
				Errors   int    `json:"errors"`
				Duration string `json:"duration"`
			}

			var in io.Reader = os.Stdin
			sourceName := "stdin"
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					fail("Failed to open input: %v", err)
				}
				defer f.Close()
				in = f
				sourceName = args[0]
			}

			database, err := db.Open()
			if err != nil {
				fail("Failed to open database: %v", err)
			}
			defer database.Close()

			s := store.New(database)
			ctx := cmd.Context()
			start := time.Now()

			const batchSize = 500
			var batch []model.Message
			var total store.IngestResult

			flush := func() {
				if len(batch) == 0 {
					return
				}
				r, err := s.AppendMessages(ctx, batch)
				if err != nil {
					fail("Ingest failed: %v", err)
				}
				total.Created += r.Created
				total.Updated += r.Updated
				total.Errors += r.Errors
				batch = batch[:0]
			}

			scanner := bufio.NewScanner(in)
			scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
			line := 0
			for scanner.Scan() {
				line++
				raw := scanner.Bytes()
				if len(raw) == 0 {
					continue
				}
				var msg model.Message
				if err := json.Unmarshal(raw, &msg); err != nil {
					total.Errors++
					if !jsonOutput {
						fmt.Fprintf(os.Stderr, "line %d: bad message: %v\n", line, err)
					}
					continue
				}
				batch = append(batch, msg)
				if len(batch) >= batchSize {
					flush()
				}
			}
			if err := scanner.Err(); err != nil {
				fail("Failed to read input: %v", err)
			}
			flush()

			// Resume marker so callers can tell when this source last ran.
			if err := s.SetState(ctx, "ingest:"+sourceName, "last_run", time.Now().UTC().Format(time.RFC3339)); err != nil {
				fail("Failed to record ingest state: %v", err)
			}

			result := Result{
				OK:       total.Errors == 0,
				Created:  total.Created,
				Updated:  total.Updated,
				Errors:   total.Errors,
				Duration: time.Since(start).Round(time.Millisecond).String(),
			}
			if jsonOutput {
				printJSON(result)
			} else {
				fmt.Printf("✓ Ingested %s\n", sourceName)
				fmt.Printf("  Created: %d\n", result.Created)
				fmt.Printf("  Updated: %d\n", result.Updated)
				fmt.Printf("  Errors: %d\n", result.Errors)
				fmt.Printf("  Duration: %s\n", result.Duration)
			}
			if total.Errors > 0 {
				os.Exit(1)
			}
		},
	}
	rootCmd.AddCommand(ingestCmd)

	// search command
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over messages",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			database, err := db.Open()
			if err != nil {
				fail("Failed to open database: %v", err)
			}
			defer database.Close()

			filters, err := filtersFromFlags(cmd)
			if err != nil {
				fail("%v", err)
			}

			query := joinArgs(args)
			results, err := search.NewSearcher(database).Search(cmd.Context(), query, filters)
			if err != nil {
				fail("Search failed: %v", err)
			}
			printSearchResults(query, results)
		},
	}
	addFilterFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)

	// semantic command
	semanticCmd := &cobra.Command{
		Use:   "semantic <query>",
		Short: "Search messages by meaning",
		Long: `Rank messages by embedding similarity to the query. Requires an
embedding API key; when the backend is unreachable the command falls
back to full-text search and says so.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fail("Failed to load config: %v", err)
			}
			database, err := db.Open()
			if err != nil {
				fail("Failed to open database: %v", err)
			}
			defer database.Close()

			filters, err := filtersFromFlags(cmd)
			if err != nil {
				fail("%v", err)
			}
			query := joinArgs(args)

			embedder, embErr := embedderFromConfig(cfg)
			var results []embed.SemanticResult
			if embErr == nil {
				results, embErr = embed.NewStore(database).SemanticSearch(cmd.Context(), embedder, query, filters)
			}
			if embErr != nil {
				if !errors.Is(embErr, embed.ErrEmbedderUnavailable) {
					fail("Semantic search failed: %v", embErr)
				}
				// Degrade to lexical rather than failing outright.
				lexical, err := search.NewSearcher(database).Search(cmd.Context(), query, filters)
				if err != nil {
					fail("Search failed: %v", err)
				}
				if !jsonOutput {
					fmt.Fprintf(os.Stderr, "warning: embedding backend unavailable, falling back to full-text search\n")
				}
				printSearchResults(query, lexical)
				return
			}

			if jsonOutput {
				printJSON(map[string]any{"ok": true, "query": query, "results": results})
				return
			}
			if len(results) == 0 {
				fmt.Println("No results")
				return
			}
			for i, r := range results {
				fmt.Printf("%2d. [%.3f] %s %s\n", i+1, r.Score, r.Platform, formatTime(r.CreatedAt))
				fmt.Printf("    %s\n", r.Snippet)
			}
		},
	}
	addFilterFlags(semanticCmd)
	rootCmd.AddCommand(semanticCmd)

	// embed command
	embedCmd := &cobra.Command{
		Use:   "embed",
		Short: "Generate embeddings for messages that lack them",
		Run: func(cmd *cobra.Command, args []string) {
			type Result struct {
				OK        bool   `json:"ok"`
				Message   string `json:"message,omitempty"`
				Model     string `json:"model,omitempty"`
				Processed int    `json:"processed"`
				Skipped   int    `json:"skipped"`
				Errors    int    `json:"errors"`
			}

			cfg, err := config.Load()
			if err != nil {
				fail("Failed to load config: %v", err)
			}
			embedder, err := embedderFromConfig(cfg)
			if err != nil {
				fail("Embedder not configured: %v", err)
			}
			database, err := db.Open()
			if err != nil {
				fail("Failed to open database: %v", err)
			}
			defer database.Close()

			logger := newLogger()
			defer logger.Sync()

			r, err := embed.NewStore(database).GenerateMissing(cmd.Context(), embedder, cfg.Embedding.BatchSize, logger)
			if err != nil {
				fail("Embedding job failed: %v", err)
			}

			result := Result{
				OK:        true,
				Model:     embedder.Model(),
				Processed: r.Processed,
				Skipped:   r.Skipped,
				Errors:    r.Errors,
			}
			if jsonOutput {
				printJSON(result)
			} else {
				fmt.Printf("✓ Embedding job done (%s)\n", result.Model)
				fmt.Printf("  Processed: %d\n", result.Processed)
				fmt.Printf("  Skipped: %d\n", result.Skipped)
				fmt.Printf("  Errors: %d\n", result.Errors)
			}
		},
	}
	rootCmd.AddCommand(embedCmd)

	// priorities command
	prioritiesCmd := &cobra.Command{
		Use:   "priorities",
		Short: "Rank threads, contacts, or emails by attention priority",
	}
	prioritiesCmd.PersistentFlags().Int("limit", 20, "Maximum results")

	prioritiesCmd.AddCommand(&cobra.Command{
		Use:   "threads",
		Short: "Rank threads by priority",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, database, blacklist := openScoring()
			defer database.Close()
			limit, _ := cmd.Flags().GetInt("limit")

			priorities, err := analytics.ThreadPriorities(cmd.Context(), database, analytics.ThreadOptions{
				Weights:   analytics.ThreadWeightsFromConfig(cfg.Scoring.Thread),
				Tiers:     analytics.TierConfigFromConfig(cfg.Tiers),
				Blacklist: blacklist,
				Limit:     limit,
			})
			if err != nil {
				fail("Failed to rank threads: %v", err)
			}
			if jsonOutput {
				printJSON(map[string]any{"ok": true, "threads": priorities})
				return
			}
			if len(priorities) == 0 {
				fmt.Println("No threads")
				return
			}
			for i, p := range priorities {
				title := p.Thread.Title
				if title == "" {
					title = p.Thread.ID
				}
				fmt.Printf("%2d. [%.2f] %s (%s, %d msgs, %s)\n",
					i+1, p.Score, title, p.Tier.Tier, p.Total, formatTime(p.LastMessageAt))
			}
		},
	})

	prioritiesCmd.AddCommand(&cobra.Command{
		Use:   "contacts",
		Short: "Rank contacts by relationship priority",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, database, blacklist := openScoring()
			defer database.Close()
			limit, _ := cmd.Flags().GetInt("limit")

			priorities, err := analytics.ContactPriorities(cmd.Context(), database, analytics.ContactOptions{
				SelfNames: cfg.Me.Names,
				Weights:   analytics.ContactWeightsFromConfig(cfg.Scoring.Contact),
				Tiers:     analytics.TierConfigFromConfig(cfg.Tiers),
				Blacklist: blacklist,
				Limit:     limit,
			})
			if err != nil {
				fail("Failed to rank contacts: %v", err)
			}
			if jsonOutput {
				printJSON(map[string]any{"ok": true, "contacts": priorities})
				return
			}
			if len(priorities) == 0 {
				fmt.Println("No contacts")
				return
			}
			for i, p := range priorities {
				fmt.Printf("%2d. [%.2f] %s (%s, %d msgs, %d threads)\n",
					i+1, p.Score, p.DisplayName, p.Tier.Tier, p.Messages, p.ThreadCount)
			}
		},
	})

	prioritiesCmd.AddCommand(&cobra.Command{
		Use:   "emails",
		Short: "Rank email conversations by priority",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, database, blacklist := openScoring()
			defer database.Close()
			limit, _ := cmd.Flags().GetInt("limit")

			priorities, err := analytics.EmailPriorities(cmd.Context(), database, analytics.EmailOptions{
				Weights:   analytics.EmailWeightsFromConfig(cfg.Scoring.Email),
				Blacklist: blacklist,
				Limit:     limit,
			})
			if err != nil {
				fail("Failed to rank emails: %v", err)
			}
			if jsonOutput {
				printJSON(map[string]any{"ok": true, "emails": priorities})
				return
			}
			if len(priorities) == 0 {
				fmt.Println("No emails")
				return
			}
			for i, p := range priorities {
				subject := p.Subject
				if subject == "" {
					subject = "(no subject)"
				}
				fmt.Printf("%2d. [%.2f] %s (%d msgs, %s)\n",
					i+1, p.Score, subject, p.Volume, formatTime(p.LastAt))
			}
		},
	})
	rootCmd.AddCommand(prioritiesCmd)

	// activity command
	activityCmd := &cobra.Command{
		Use:   "activity",
		Short: "Show per-day message volume and network breadth",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fail("Failed to load config: %v", err)
			}
			database, err := db.Open()
			if err != nil {
				fail("Failed to open database: %v", err)
			}
			defer database.Close()

			days, _ := cmd.Flags().GetInt("days")
			if days <= 0 {
				days = 30
			}
			now := time.Now()
			since := now.AddDate(0, 0, -days)

			stats, err := analytics.Activity(cmd.Context(), database, since, now)
			if err != nil {
				fail("Failed to load activity: %v", err)
			}
			degree, err := analytics.NetworkDegree(cmd.Context(), database, cfg.Me.Names, since)
			if err != nil {
				fail("Failed to load network degree: %v", err)
			}

			if jsonOutput {
				printJSON(map[string]any{"ok": true, "days": stats, "network": degree})
				return
			}
			fmt.Printf("Last %d days: heard from %d people, contacted %d, %d active threads\n\n",
				days, degree.HeardFrom, degree.Contacted, degree.ActiveThreads)
			for _, day := range stats {
				fmt.Printf("%s  %4d messages", day.Date, day.Total)
				if in := day.ByDirection["incoming"]; in > 0 {
					fmt.Printf("  in:%d", in)
				}
				if out := day.ByDirection["outgoing"]; out > 0 {
					fmt.Printf("  out:%d", out)
				}
				fmt.Println()
			}
		},
	}
	activityCmd.Flags().Int("days", 30, "How many days back to report")
	rootCmd.AddCommand(activityCmd)

	// thread command
	threadCmd := &cobra.Command{
		Use:   "thread",
		Short: "Manage thread state",
	}
	threadCmd.AddCommand(threadStateCmd("archive", "Archive a thread (scores drop to zero)"))
	threadCmd.AddCommand(threadStateCmd("mute", "Mute a thread (scores drop to zero)"))
	rootCmd.AddCommand(threadCmd)

	// rebuild command
	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild derived state from the event log",
	}

	rebuildCmd.AddCommand(&cobra.Command{
		Use:   "views",
		Short: "Replay the event log into fresh projections",
		Run: func(cmd *cobra.Command, args []string) {
			database, err := db.Open()
			if err != nil {
				fail("Failed to open database: %v", err)
			}
			defer database.Close()

			result, err := views.Rebuild(cmd.Context(), database)
			if err != nil {
				fail("Rebuild failed: %v", err)
			}
			if jsonOutput {
				printJSON(map[string]any{"ok": true, "result": result})
			} else {
				fmt.Printf("✓ Replayed event log\n")
				fmt.Printf("  Applied: %d\n", result.Updated)
				fmt.Printf("  Orphan threads: %d\n", result.OrphanThreads)
				fmt.Printf("  Errors: %d\n", result.Errors)
			}
		},
	})

	rebuildCmd.AddCommand(&cobra.Command{
		Use:   "index",
		Short: "Regenerate the full-text index from messages",
		Run: func(cmd *cobra.Command, args []string) {
			database, err := db.Open()
			if err != nil {
				fail("Failed to open database: %v", err)
			}
			defer database.Close()

			result, err := search.NewSearcher(database).RebuildIndex(cmd.Context())
			if err != nil {
				fail("Index rebuild failed: %v", err)
			}
			if jsonOutput {
				printJSON(map[string]any{"ok": true, "result": result})
			} else {
				fmt.Printf("✓ Rebuilt full-text index (%d messages, %d errors)\n", result.Indexed, result.Errors)
			}
		},
	})
	rootCmd.AddCommand(rebuildCmd)

	// blacklist command
	blacklistCmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Inspect the thread exclusion policy",
	}

	blacklistCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show currently excluded threads",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fail("Failed to load config: %v", err)
			}
			path, err := cfg.ResolveBlacklistPath()
			if err != nil {
				fail("Failed to resolve blacklist path: %v", err)
			}
			b := policy.LoadBlacklist(path)

			if jsonOutput {
				printJSON(map[string]any{"ok": true, "path": path, "threads": b.Entries()})
				return
			}
			fmt.Printf("Blacklist: %s (%d threads)\n", path, b.Len())
			for _, e := range b.Entries() {
				if e.Reason != "" {
					fmt.Printf("  %s  (%s)\n", e.ThreadID, e.Reason)
				} else {
					fmt.Printf("  %s\n", e.ThreadID)
				}
			}
		},
	})

	blacklistCmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Watch the blacklist file and log reloads until interrupted",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fail("Failed to load config: %v", err)
			}
			path, err := cfg.ResolveBlacklistPath()
			if err != nil {
				fail("Failed to resolve blacklist path: %v", err)
			}

			logger := newLogger()
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b := policy.LoadBlacklist(path)
			if err := b.Watch(ctx, logger); err != nil {
				fail("Failed to watch blacklist: %v", err)
			}
			logger.Info("watching blacklist", zap.String("path", path), zap.Int("threads", b.Len()))
			<-ctx.Done()
		},
	})
	rootCmd.AddCommand(blacklistCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// threadStateCmd builds the archive and mute subcommands, which differ only
// in which store method they call.
func threadStateCmd(verb, short string) *cobra.Command {
	c := &cobra.Command{
		Use:   verb + " <thread-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			type Result struct {
				OK       bool   `json:"ok"`
				Message  string `json:"message,omitempty"`
				ThreadID string `json:"thread_id"`
				Value    bool   `json:"value"`
			}

			undo, _ := cmd.Flags().GetBool("undo")
			threadID := args[0]

			database, err := db.Open()
			if err != nil {
				fail("Failed to open database: %v", err)
			}
			defer database.Close()

			s := store.New(database)
			ctx := cmd.Context()

			if th, err := s.GetThread(ctx, threadID); err != nil {
				fail("Failed to look up thread: %v", err)
			} else if th == nil {
				fail("Thread %s not found", threadID)
			}

			apply := s.ArchiveThread
			if verb == "mute" {
				apply = s.MuteThread
			}
			if err := apply(ctx, threadID, !undo); err != nil {
				fail("Failed to update thread: %v", err)
			}

			result := Result{OK: true, ThreadID: threadID, Value: !undo}
			if jsonOutput {
				printJSON(result)
			} else if undo {
				fmt.Printf("✓ Thread %s un%sd\n", threadID, verb)
			} else {
				fmt.Printf("✓ Thread %s %sd\n", threadID, verb)
			}
		},
	}
	c.Flags().Bool("undo", false, "Reverse the state change")
	return c
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("kind", "", "Filter by message kind (text, system, ...)")
	cmd.Flags().String("platform", "", "Filter by source platform")
	cmd.Flags().String("thread", "", "Filter by thread id")
	cmd.Flags().String("account", "", "Filter by account id")
	cmd.Flags().String("since", "", "Only messages on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("until", "", "Only messages on or before this date (YYYY-MM-DD)")
	cmd.Flags().Int("limit", 20, "Maximum results")
}

func filtersFromFlags(cmd *cobra.Command) (search.Filters, error) {
	var f search.Filters
	f.Kind, _ = cmd.Flags().GetString("kind")
	f.Platform, _ = cmd.Flags().GetString("platform")
	f.ThreadID, _ = cmd.Flags().GetString("thread")
	f.AccountID, _ = cmd.Flags().GetString("account")
	f.Limit, _ = cmd.Flags().GetInt("limit")

	if since, _ := cmd.Flags().GetString("since"); since != "" {
		t, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return f, fmt.Errorf("bad --since date %q: use YYYY-MM-DD", since)
		}
		f.Since = t.Unix()
	}
	if until, _ := cmd.Flags().GetString("until"); until != "" {
		t, err := time.ParseInLocation("2006-01-02", until, time.Local)
		if err != nil {
			return f, fmt.Errorf("bad --until date %q: use YYYY-MM-DD", until)
		}
		// Inclusive through the end of the named day.
		f.Until = t.AddDate(0, 0, 1).Unix() - 1
	}
	return f, nil
}

// openScoring loads everything the priority commands share.
func openScoring() (*config.Config, *sql.DB, *policy.Blacklist) {
	cfg, err := config.Load()
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	database, err := db.Open()
	if err != nil {
		fail("Failed to open database: %v", err)
	}
	path, err := cfg.ResolveBlacklistPath()
	if err != nil {
		fail("Failed to resolve blacklist path: %v", err)
	}
	return cfg, database, policy.LoadBlacklist(path)
}

func embedderFromConfig(cfg *config.Config) (embed.Embedder, error) {
	keyEnv := cfg.Embedding.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s is not set", embed.ErrEmbedderUnavailable, keyEnv)
	}
	e, err := embed.NewOpenAIEmbedder(apiKey, cfg.Embedding.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", embed.ErrEmbedderUnavailable, err)
	}
	return e, nil
}

func printSearchResults(query string, results []search.Result) {
	if jsonOutput {
		printJSON(map[string]any{"ok": true, "query": query, "results": results})
		return
	}
	if len(results) == 0 {
		fmt.Println("No results")
		return
	}
	for i, r := range results {
		fmt.Printf("%2d. [%.2f] %s %s\n", i+1, r.Score, r.Platform, formatTime(r.CreatedAt))
		fmt.Printf("    %s\n", r.Snippet)
	}
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

func formatTime(unixSec int64) string {
	if unixSec <= 0 {
		return "unknown"
	}
	return time.Unix(unixSec, 0).Format("2006-01-02 15:04")
}

func newLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if jsonOutput {
		printJSON(map[string]any{"ok": false, "message": msg})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
