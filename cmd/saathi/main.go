package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saathi/saathi-cli/internal/api"
	"github.com/saathi/saathi-cli/internal/chat"
	"github.com/saathi/saathi-cli/internal/insights"
	"github.com/saathi/saathi-cli/internal/models"
	"github.com/saathi/saathi-cli/internal/shared"
	"github.com/saathi/saathi-cli/internal/storage"
	"github.com/saathi/saathi-cli/pkg/config"
)

var (
	cfgPath   string
	topicFlag string
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Optional .env next to the binary
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "saathi",
		Short: "Terminal chat client for the Saathi backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(logger)
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to config file")
	rootCmd.Flags().StringVar(&topicFlag, "topic", string(models.TopicNormal), "starting topic (normal, pdf, website, db, kb)")

	loginCmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Obtain and print a backend token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(logger, args[0])
		},
	}
	rootCmd.AddCommand(loginCmd)

	registerCmd := &cobra.Command{
		Use:   "register <username> <display-name>",
		Short: "Create a backend account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(logger, args[0], args[1])
		},
	}
	rootCmd.AddCommand(registerCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient(cfg *config.Config, logger *zap.Logger) *api.Client {
	timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	client := api.NewClient(cfg.Server.BaseURL, timeout, logger)
	if cfg.Server.Token != "" {
		client.SetToken(cfg.Server.Token)
	}
	return client
}

func runLogin(logger *zap.Logger, username string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", cfgPath))
	}

	fmt.Print("Password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return err
	}

	client := newClient(cfg, logger)
	token, err := client.Login(context.Background(), username, strings.TrimSpace(password))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("export SAATHI_TOKEN=%s\nexport SAATHI_USERNAME=%s\n", token, username)
	return nil
}

func runRegister(logger *zap.Logger, username, displayName string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", cfgPath))
	}

	fmt.Print("Password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return err
	}

	client := newClient(cfg, logger)
	if err := client.Register(context.Background(), username, strings.TrimSpace(password), displayName); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Printf("Account created. Run `saathi login %s` to sign in.\n", username)
	return nil
}

func runChat(logger *zap.Logger) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", cfgPath))
	}

	// Initialize storage
	var backend storage.Backend
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory session storage")
		backend = storage.NewMemoryBackend()
	} else {
		logger.Info("Using PostgreSQL session storage")
		backend, err = storage.NewPostgresBackend(storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer backend.Close()

	client := newClient(cfg, logger)
	client.OnAuthFailure(func() {
		fmt.Println("Session expired. Run `saathi login <username>` to sign in again.")
	})

	if client.Token() != "" {
		profile, err := client.Me(context.Background())
		if err == nil {
			fmt.Printf("Signed in as %s (%s)\n", profile.DisplayName, profile.Role)
		}
	}

	artifacts := shared.NewArtifacts()
	hub := chat.NewHub(cfg.Username, backend, client, artifacts, logger)

	topic := models.Topic(topicFlag)
	ctrl := hub.Controller(topic)
	if ctrl == nil {
		return fmt.Errorf("unknown topic: %s", topicFlag)
	}

	fmt.Printf("Saathi ready. Topic: %s. Type /help for commands.\n", topic)
	return repl(hub, ctrl, cfg, logger)
}

func repl(hub *chat.Hub, ctrl *chat.Controller, cfg *config.Config, logger *zap.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Printf("[%s] > ", ctrl.Topic())
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			next, quit := handleCommand(hub, ctrl, cfg, line)
			if quit {
				break
			}
			if next != nil {
				ctrl = next
			}
			continue
		}

		msg, err := ctrl.Send(context.Background(), line)
		if errors.Is(err, api.ErrUnauthorized) {
			continue
		}
		if err != nil {
			logger.Error("Send failed", zap.Error(err))
			continue
		}

		fmt.Printf("Saathi: %s\n", msg.Text)
		printTable(msg.Table)
		if prompts := ctrl.Prompts(); len(prompts) > 0 {
			fmt.Println("Follow-ups:")
			for _, p := range prompts {
				fmt.Printf("  - %s\n", p)
			}
		}
	}
	return scanner.Err()
}

// handleCommand runs one slash command; it returns the controller to switch
// to, if any, and whether the loop should exit.
func handleCommand(hub *chat.Hub, ctrl *chat.Controller, cfg *config.Config, line string) (*chat.Controller, bool) {
	ctx := context.Background()
	parts := strings.Fields(line)
	rest := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))

	switch parts[0] {
	case "/help":
		fmt.Print(`Commands:
  /topic <normal|pdf|website|db|kb>   switch topic
  /doc <path>                         select knowledge-base document
  /url <target>                       set website to ask about
  /upload <file>                      upload a PDF for the pdf topic
  /outline <text>                     generate an outline
  /export <ppt|pdf|excel>             export the current outline
  /rate <1-5> <question>              rate a knowledge-base answer
  /insights [refresh]                 show curated analytic reports
  /insights-export <pdf|excel>        export the insights summary
  /prompts                            show smart follow-up prompts
  /history                            show the conversation
  /clear                              clear this topic's conversation
  /stop                               ask the backend to stop generating
  /logout                             clear all sessions
  /quit                               exit
`)
	case "/topic":
		next := hub.Controller(models.Topic(rest))
		if next == nil {
			fmt.Println("Unknown topic.")
			return nil, false
		}
		return next, false
	case "/doc":
		ctrl.SetDocument(rest)
	case "/url":
		ctrl.SetWebsiteURL(rest)
	case "/upload":
		uploadPDF(ctx, ctrl, rest)
	case "/outline":
		if outline := ctrl.Outline(ctx, rest); outline != "" {
			fmt.Println(outline)
		}
	case "/export":
		path, err := ctrl.ExportOutline(ctx, chat.ExportKind(rest), cfg.Export.Dir)
		if err != nil {
			fmt.Printf("Export failed: %v\n", err)
		} else {
			fmt.Printf("Saved %s\n", path)
		}
	case "/rate":
		if len(parts) < 3 {
			fmt.Println("Usage: /rate <1-5> <question>")
			return nil, false
		}
		rating, err := strconv.Atoi(parts[1])
		if err != nil || rating < 1 || rating > 5 {
			fmt.Println("Rating must be 1-5.")
			return nil, false
		}
		question := strings.TrimSpace(strings.TrimPrefix(rest, parts[1]))
		if n := ctrl.Rate(ctx, question, rating); n == 0 {
			fmt.Println("No matching answer to rate.")
		}
	case "/insights":
		showInsights(ctx, hub.Insights(), rest == "refresh")
	case "/insights-export":
		path, err := hub.Insights().Export(ctx, insights.ExportKind(rest), cfg.Export.Dir)
		if err != nil {
			fmt.Printf("Export failed: %v\n", err)
		} else {
			fmt.Printf("Saved %s\n", path)
		}
	case "/prompts":
		for _, p := range ctrl.Prompts() {
			fmt.Printf("  - %s\n", p)
		}
	case "/history":
		for _, m := range ctrl.Messages() {
			fmt.Printf("%s [%s]: %s\n", m.Sender, m.Timestamp, m.Text)
		}
	case "/clear":
		ctrl.Clear()
	case "/stop":
		ctrl.Stop(ctx)
	case "/logout":
		hub.ClearAll()
		fmt.Println("Sessions cleared.")
	case "/quit", "/exit":
		return nil, true
	default:
		fmt.Println("Unknown command. Use /help.")
	}
	return nil, false
}

func showInsights(ctx context.Context, ctrl *insights.Controller, refresh bool) {
	var (
		list []models.Insight
		err  error
	)
	if refresh {
		list, err = ctrl.Refresh(ctx)
	} else {
		list, err = ctrl.Load(ctx)
	}
	if err != nil {
		fmt.Printf("Failed to load insights: %v\n", err)
		return
	}
	if len(list) == 0 {
		fmt.Println("No curated insights available.")
		return
	}
	for _, insight := range list {
		fmt.Printf("%s\n  %s\n", insight.Title, insight.Description)
		printTable(insight.Rows)
	}
}

func uploadPDF(ctx context.Context, ctrl *chat.Controller, path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("Cannot open %s: %v\n", path, err)
		return
	}
	defer f.Close()

	if err := ctrl.Upload(ctx, f, path); err != nil {
		fmt.Printf("Upload failed: %v\n", err)
		return
	}
	fmt.Println("Uploaded.")
}

func printTable(rows []map[string]any) {
	if len(rows) == 0 {
		return
	}
	for i, row := range rows {
		fmt.Printf("  row %d: %v\n", i+1, row)
	}
}
