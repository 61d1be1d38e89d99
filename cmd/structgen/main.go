package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"structgen"
	"structgen/chat"
	"structgen/config"
	"structgen/fallback"
	"structgen/gate"
	"structgen/intent"
	"structgen/logging"
	"structgen/model"
	"structgen/model/anthropic"
	"structgen/model/ollama"
	"structgen/model/openai"
	"structgen/retry"
	"structgen/schema"
	"structgen/session"
	"structgen/tool"
)

var (
	// Global flags
	cfgPath string
	debug   bool

	cfg    config.Config
	logger logging.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "structgen",
	Short: "Structured, validated generation against LLM backends",
	Long: `structgen turns free-form model output into schema-valid data.

It wraps any OpenAI-, Anthropic- or Ollama-compatible backend with schema
validation, a repair loop for invalid outputs, transport retries, intent
routing and layered fallbacks. Configure the backend via a YAML file, a
.env file or STRUCTGEN_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine, explicit config errors are not.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		level := logging.ParseLevel(cfg.Log.Level)
		if debug {
			level = logging.LevelDebug
		}
		logger = logging.New(&logging.Config{
			Level:  level,
			Format: cfg.Log.Format,
		})
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send a single prompt and print the raw completion",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(nil)
		if err != nil {
			return err
		}
		out, err := client.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive multi-turn chat that keeps conversation context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(nil)
		if err != nil {
			return err
		}

		store := session.NewInMemoryStore()
		const sessionID = "cli"
		if err := store.Save(sessionID, chat.New(chat.System("You are a concise, helpful assistant."))); err != nil {
			return err
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "Type 'exit' to quit.")
		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				return nil
			}

			answer, err := client.ReplyInSession(cmd.Context(), store, sessionID, line)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, answer)
		}
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract [text]",
	Short: "Extract a schema-valid task record from free-form text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(nil)
		if err != nil {
			return err
		}

		input := strings.Join(args, " ")
		chain, err := fallback.NewChain([]fallback.Tier{
			fallback.Static(map[string]any{
				"task":      input,
				"completed": false,
				"priority":  "medium",
			}),
		})
		if err != nil {
			return err
		}

		payload, degraded, err := client.ExtractResilient(cmd.Context(), input, taskDefinition(), chain)
		if err != nil {
			return err
		}
		if degraded != nil {
			logger.Warn("returning degraded result", "tier", degraded.Tier)
		}
		return printJSON(cmd, payload)
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify text as a question, request or complaint",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(nil)
		if err != nil {
			return err
		}
		res, err := client.Classify(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var routeCmd = &cobra.Command{
	Use:   "route [text]",
	Short: "Classify text and dispatch it to the matching handler",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(nil)
		if err != nil {
			return err
		}

		router, err := client.Router(map[intent.Intent]intent.Handler{
			intent.Question:  answerHandler(client),
			intent.Request:   processHandler(client),
			intent.Complaint: escalateHandler(client),
		})
		if err != nil {
			return err
		}

		out, res, err := router.Route(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		logger.Info("routed", "intent", res.Intent, "confidence", res.Confidence)
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var draftCmd = &cobra.Command{
	Use:   "draft [prompt]",
	Short: "Generate content and hold it for terminal approval before release",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(func(o *structgen.Options) {
			o.Gate = gate.NewTerminalGate(cmd.InOrStdin(), cmd.OutOrStdout())
		})
		if err != nil {
			return err
		}

		content, err := client.Draft(cmd.Context(), strings.Join(args, " "))
		if errors.Is(err, structgen.ErrRejected) {
			fmt.Fprintln(cmd.OutOrStdout(), "Draft discarded.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), content)
		return nil
	},
}

var weatherCmd = &cobra.Command{
	Use:   "weather [question]",
	Short: "Answer a weather question via tool calls against Open-Meteo",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(nil)
		if err != nil {
			return err
		}

		registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
			o.Logger = logger
		})
		weather, err := newWeatherTool()
		if err != nil {
			return err
		}
		if err := registry.Register(weather); err != nil {
			return err
		}

		conv := chat.New(chat.User(strings.Join(args, " ")))
		answer, _, err := client.RunWithTools(cmd.Context(), conv, registry)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

// newClient builds the façade from the loaded configuration.
func newClient(override func(o *structgen.Options)) (*structgen.Client, error) {
	backend, err := newBackend()
	if err != nil {
		return nil, err
	}

	return structgen.New(backend, func(o *structgen.Options) {
		o.RetryPolicy = retry.NewPolicy(func(po *retry.PolicyOptions) {
			po.MaxAttempts = cfg.Retry.MaxAttempts
			po.BaseDelay = cfg.Retry.BaseDelay
			po.Timeout = cfg.Retry.Timeout
			po.Logger = logger
		})
		o.RepairAttempts = cfg.Repair.MaxAttempts
		o.Strict = cfg.Repair.Strict
		o.Sampling = model.Options{
			Temperature: cfg.Sampling.Temperature,
			MaxTokens:   cfg.Sampling.MaxTokens,
		}
		o.Logger = logger
		if override != nil {
			override(o)
		}
	}), nil
}

func newBackend() (model.Backend, error) {
	switch cfg.Backend.Provider {
	case "openai":
		return openai.New(func(o *openai.Options) {
			o.Model = cfg.Backend.Model
			o.Temperature = cfg.Sampling.Temperature
			o.APIKey = cfg.Backend.APIKey
		}), nil
	case "anthropic":
		return anthropic.New(func(o *anthropic.Options) {
			o.Model = anthropic.Model(cfg.Backend.Model)
			o.Temperature = cfg.Sampling.Temperature
			o.APIKey = cfg.Backend.APIKey
		}), nil
	case "ollama":
		return ollama.New(func(o *ollama.Options) {
			o.BaseURL = cfg.Backend.BaseURL
			o.Model = cfg.Backend.Model
			o.Temperature = cfg.Sampling.Temperature
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Backend.Provider)
	}
}

// taskDefinition is the demo extraction schema.
func taskDefinition() schema.Definition {
	return schema.New("task",
		schema.Field{
			Name: "task", Type: schema.TypeString, Required: true,
			Description: "short imperative description of the task",
		},
		schema.Field{Name: "completed", Type: schema.TypeBool, Required: true},
		schema.Field{
			Name: "priority", Type: schema.TypeString, Required: true,
			Enum: []string{"low", "medium", "high"},
		},
	)
}

func answerHandler(client *structgen.Client) intent.Handler {
	return promptHandler(client, "You answer user questions directly and concisely.")
}

func processHandler(client *structgen.Client) intent.Handler {
	return promptHandler(client, "You acknowledge the user's request and state the next step taken.")
}

func escalateHandler(client *structgen.Client) intent.Handler {
	return promptHandler(client, "You respond to a complaint with empathy and escalate it to a human agent.")
}

func promptHandler(client *structgen.Client, system string) intent.Handler {
	return func(ctx context.Context, input string, _ intent.Result) (string, error) {
		conv := chat.New(chat.System(system), chat.User(input))
		answer, _, err := client.Reply(ctx, conv)
		return answer, err
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(askCmd, chatCmd, extractCmd, classifyCmd, routeCmd, draftCmd, weatherCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
