package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"contract-intel-client/api"
	"contract-intel-client/chat"
	"contract-intel-client/config"
	"contract-intel-client/store"
)

var version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Contract Intelligence Client v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	logger.Info().Str("version", version).Msg("starting contract intelligence client")

	// A failed store open degrades to an in-memory session rather than
	// refusing to start.
	db, err := store.Open(cfg.Data.DBPath, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("persistent storage unavailable, running in memory only")
		db = nil
	} else {
		defer db.Close()
		logger.Info().Str("path", cfg.Data.DBPath).Msg("database opened")
	}

	client := api.NewClient(api.Config{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.Timeout()}, logger)

	container := chat.New(client, db, cfg.QuietPeriod(), logger)
	if err := container.Initialize(context.Background()); err != nil {
		logger.Error().Err(err).Msg("failed to initialize")
		os.Exit(1)
	}
	defer container.Close()

	runREPL(container, client)
}

// runREPL drives the container from stdin. Any line that is not a
// /command is sent as a chat message to the active conversation.
func runREPL(c *chat.Container, client *api.Client) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Printf("Contract Intelligence Client v%s (backend %s)\n", version, client.BaseURL())
	fmt.Println("Type /help for commands, or just type to chat.")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			sendAndPrint(ctx, c, line)
			continue
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "/help":
			printHelp()
		case "/quit", "/exit":
			return
		case "/new":
			conv := c.CreateConversation(strings.Join(args, " "))
			fmt.Printf("Created conversation %s\n", conv.ID)
		case "/list":
			for _, conv := range c.Conversations() {
				fmt.Printf("%s  %-40q  %d messages\n", conv.ID, conv.Title, len(conv.Messages))
			}
		case "/open":
			if len(args) == 1 {
				c.SetActiveConversation(args[0])
			}
		case "/rename":
			if len(args) >= 2 {
				c.RenameConversation(args[0], strings.Join(args[1:], " "))
			}
		case "/delete":
			if len(args) == 1 {
				c.DeleteConversation(args[0])
			}
		case "/integrations":
			for _, integ := range c.Integrations() {
				fmt.Printf("%s %s (%s): %d instance(s)\n", integ.Icon, integ.Name, integ.Type, len(integ.Instances))
				for _, inst := range integ.Instances {
					fmt.Printf("    %s [%s] db=%s\n", inst.Name, inst.Status, inst.DatabaseName)
				}
			}
		case "/sync-kb":
			result, err := client.SyncNow(ctx)
			if err != nil {
				fmt.Printf("Sync failed: %v\n", err)
				continue
			}
			fmt.Printf("Sync %s: %d sources (%d new, %d updated, %d removed)\n",
				result.Status, result.TotalSources, result.NewSources, result.UpdatedSources, result.RemovedSources)
		case "/kb-status":
			status, err := client.KBStatus(ctx)
			if err != nil {
				fmt.Printf("Status failed: %v\n", err)
				continue
			}
			for k, v := range status {
				fmt.Printf("%s: %v\n", k, v)
			}
		case "/upload":
			c.UploadFiles(ctx, args)
			printLastMessages(c, len(args))
		case "/upload-url":
			if len(args) == 1 {
				c.UploadPDFFromURL(ctx, args[0])
				printLastMessages(c, 1)
			}
		case "/export":
			if len(args) != 1 {
				fmt.Println("Usage: /export <file>")
				continue
			}
			data, err := c.ExportAllData()
			if err != nil {
				fmt.Printf("Export failed: %v\n", err)
				continue
			}
			if err := os.WriteFile(args[0], data, 0644); err != nil {
				fmt.Printf("Export failed: %v\n", err)
				continue
			}
			fmt.Printf("Exported to %s\n", args[0])
		case "/import":
			if len(args) != 1 {
				fmt.Println("Usage: /import <file>")
				continue
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Printf("Import failed: %v\n", err)
				continue
			}
			if err := c.ImportData(data); err != nil {
				fmt.Printf("Import failed: %v\n", err)
				continue
			}
			fmt.Println("Import complete")
		case "/stats":
			stats, err := c.StoreStats()
			if err != nil {
				fmt.Printf("Stats unavailable: %v\n", err)
				continue
			}
			for collection, count := range stats.RecordCounts {
				fmt.Printf("%-20s %d\n", collection, count)
			}
			fmt.Printf("database size: %d bytes\n", stats.DBSizeBytes)
		case "/vacuum":
			if err := c.CompactStore(); err != nil {
				fmt.Printf("Vacuum failed: %v\n", err)
				continue
			}
			fmt.Println("Database compacted")
		default:
			fmt.Printf("Unknown command %s, try /help\n", cmd)
		}
	}
}

func sendAndPrint(ctx context.Context, c *chat.Container, text string) {
	if _, ok := c.ActiveConversation(); !ok {
		c.CreateConversation("")
	}
	if err := c.SendMessage(ctx, text); err != nil {
		fmt.Printf("Send failed: %v\n", err)
	}
	printLastMessages(c, 1)
}

func printLastMessages(c *chat.Container, n int) {
	conv, ok := c.ActiveConversation()
	if !ok || len(conv.Messages) == 0 {
		return
	}
	start := len(conv.Messages) - n
	if start < 0 {
		start = 0
	}
	for _, msg := range conv.Messages[start:] {
		fmt.Printf("\n[%s] %s\n", msg.Role, msg.Content)
		for _, action := range msg.EmailActions {
			fmt.Printf("  ✉️  suggested email to %s: %s\n", strings.Join(action.Recipients, ", "), action.Subject)
		}
	}
}

func printHelp() {
	fmt.Println(`Commands:
  /new [title]           create a conversation and make it active
  /list                  list conversations
  /open <id>             select a conversation
  /rename <id> <title>   rename a conversation
  /delete <id>           delete a conversation
  /integrations          show integration catalog and instances
  /sync-kb               trigger a knowledge-base sync
  /kb-status             show knowledge-base status
  /upload <files...>     upload PDFs for ingestion
  /upload-url <url>      ingest a PDF by URL
  /export <file>         export all local data
  /import <file>         import a previously exported snapshot
  /stats                 show storage statistics
  /vacuum                compact the local database
  /quit                  exit`)
}
