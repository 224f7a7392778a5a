package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cepclima/server/internal/agent/model"
	"github.com/cepclima/server/internal/server"
	logx "github.com/cepclima/server/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cepclima",
		Short:         "Assistente de CEP e previsão do tempo",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newAskCmd(),
		newClassifyCmd(),
		newBatchCmd(),
		newForgetCmd(),
	)
	return root
}

// withApp loads config, wires the app and runs fn with a context cancelled
// on SIGINT/SIGTERM.
func withApp(cmd *cobra.Command, offline bool, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(ctx, cfg, offline)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				var runner server.Runner
				if a.runner != nil {
					runner = a.runner
				}
				h, err := server.NewHandler(ctx, a.decisor, runner, a.tools, a.cfg.Server.MaxBodyBytes)
				if err != nil {
					return err
				}
				return server.New(a.cfg.Server, h).Run(ctx)
			})
		},
	}
}

func newAskCmd() *cobra.Command {
	var (
		conversationID string
		asJSON         bool
	)
	cmd := &cobra.Command{
		Use:   "ask <mensagem>",
		Short: "Run one full chat turn",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				if a.runner == nil {
					return fmt.Errorf("ask needs GEMINI_API_KEY")
				}
				reply, err := a.runner.Invoke(ctx, model.QueryInput{
					ConversationID: conversationID,
					Query:          strings.Join(args, " "),
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), reply)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n[%s] conversa %s\n", reply.Message, reply.Classification.Action, reply.ConversationID)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "conversation id to continue")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full reply as JSON")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "classify <mensagem>",
		Short: "Classify a message without answering it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, offline, func(ctx context.Context, a *app) error {
				return writeJSON(cmd.OutOrStdout(), a.decisor.Classify(ctx, strings.Join(args, " ")))
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "use only the deterministic classifier")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var (
		offline     bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "batch <arquivo>",
		Short: "Classify every line of a file (- for stdin) and print JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			lines, err := readLines(in)
			if err != nil {
				return err
			}

			return withApp(cmd, offline, func(ctx context.Context, a *app) error {
				results, err := classifyBatch(ctx, a.decisor, lines, concurrency)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, r := range results {
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "use only the deterministic classifier")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 4, "classifications in flight")
	return cmd
}

func newForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <conversationId>",
		Short: "Delete the stored history of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				n, err := a.history.GetMessageCount(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.history.ClearHistory(ctx, args[0]); err != nil {
					return err
				}
				logx.Info().Str("conversation_id", args[0]).Int("messages", n).Msg("conversation history cleared")
				return nil
			})
		},
	}
}

// classifier is the subset of the decisor the batch needs.
type classifier interface {
	Classify(ctx context.Context, input string) model.Classification
}

type batchResult struct {
	Line           int                  `json:"line"`
	Input          string               `json:"input"`
	Classification model.Classification `json:"classification"`
}

// classifyBatch classifies lines with bounded concurrency, keeping input order.
func classifyBatch(ctx context.Context, c classifier, lines []string, concurrency int) ([]batchResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]batchResult, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, line := range lines {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = batchResult{Line: i + 1, Input: line, Classification: c.Classify(gctx, line)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
