// Command guardloop runs prompts through the validate-and-rewrite loop
// against a formal-logic guardrail.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/guardloop/internal/audit"
	"github.com/dshills/guardloop/internal/config"
	"github.com/dshills/guardloop/internal/llm"
	"github.com/dshills/guardloop/internal/processor"
	"github.com/dshills/guardloop/internal/render"
	"github.com/dshills/guardloop/internal/thread"
	"github.com/dshills/guardloop/internal/validation"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "guardloop",
		Short: "Iterative answer validation and rewriting against a reasoning guardrail",
	}

	root.AddCommand(newAskCmd())
	root.AddCommand(newBatchCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flags shared by ask and batch.
type runFlags struct {
	configPath       string
	provider         string
	model            string
	region           string
	maxIterations    int
	domainName       string
	guardrailID      string
	guardrailVersion string
	jsonOut          bool
	verbose          bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&f.provider, "provider", "", "LLM provider (anthropic, openai, google, bedrock)")
	cmd.Flags().StringVar(&f.model, "model", "", "model identifier")
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region for bedrock provider and guardrail")
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", 0, "rewrite iteration budget (0 = use config)")
	cmd.Flags().StringVar(&f.domainName, "domain", "", "answer domain for rewriting prompts")
	cmd.Flags().StringVar(&f.guardrailID, "guardrail", "", "Bedrock guardrail identifier")
	cmd.Flags().StringVar(&f.guardrailVersion, "guardrail-version", "", "Bedrock guardrail version")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "emit the full thread as JSON")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log loop progress to stderr")
}

// load merges config file, environment, and flags into one snapshot.
func (f *runFlags) load() (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if f.provider != "" {
		cfg.Provider = f.provider
	}
	if f.model != "" {
		cfg.ModelID = f.model
	}
	if f.region != "" {
		cfg.Region = f.region
	}
	if f.maxIterations > 0 {
		cfg.MaxIterations = f.maxIterations
	}
	if f.domainName != "" {
		cfg.Domain = f.domainName
	}
	if f.guardrailID != "" {
		cfg.GuardrailID = f.guardrailID
	}
	if f.guardrailVersion != "" {
		cfg.GuardrailVersion = f.guardrailVersion
	}
	return cfg, cfg.Validate()
}

// buildProcessor wires the collaborators for one run.
func buildProcessor(ctx context.Context, cfg config.Config, verbose bool) (*processor.Processor, *thread.Manager, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	gen, err := llm.NewGenerator(cfg.Provider, cfg.ModelID, cfg.Region, cfg.MaxTokens, cfg.Temperature)
	if err != nil {
		return nil, nil, err
	}

	validator, err := validation.NewBedrockValidator(ctx, cfg.GuardrailID, cfg.GuardrailVersion, cfg.Region)
	if err != nil {
		return nil, nil, err
	}
	retrying := validation.WithRetry(validator, cfg.RetryAttempts, cfg.RetryBase.Std())

	threads := thread.NewManager()
	p := processor.New(threads, gen, retrying, audit.NewSlogLogger(log), processor.Options{
		Domain:  cfg.Domain,
		Augment: llm.BuildAugmentedPrompt,
		Log:     log,
	})
	return p, threads, nil
}

func newAskCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run one question through the loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			p, threads, err := buildProcessor(ctx, cfg, flags.verbose)
			if err != nil {
				return err
			}

			th, err := threads.Create(args[0], cfg.ModelID, cfg.MaxIterations)
			if err != nil {
				return err
			}
			if err := p.Process(ctx, th.ID); err != nil {
				return err
			}

			// Clarification round-trips happen on the terminal.
			for {
				th, err = threads.Get(th.ID)
				if err != nil {
					return err
				}
				if th.Status != thread.StatusAwaitingUserInput {
					break
				}
				answers, err := promptForAnswers(cmd, th)
				if err != nil {
					return err
				}
				if err := p.Resume(ctx, th.ID, answers); err != nil {
					return err
				}
			}

			return emit(cmd, th, flags.jsonOut)
		},
	}
	flags.register(cmd)
	return cmd
}

// promptForAnswers reads one line per pending clarification question.
func promptForAnswers(cmd *cobra.Command, th *thread.Thread) ([]thread.Clarification, error) {
	var questions []string
	for i := len(th.Iterations) - 1; i >= 0; i-- {
		fb := th.Iterations[i].Feedback
		if fb != nil && fb.SubKind == thread.SubKindFollowUpQuestion {
			questions = fb.Questions
			break
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("thread %s awaiting input but has no pending questions", th.ID)
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	answers := make([]thread.Clarification, 0, len(questions))
	for _, q := range questions {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n> ", q)
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read clarification answer: %w", err)
		}
		answers = append(answers, thread.Clarification{Question: q, Answer: strings.TrimSpace(line)})
	}
	return answers, nil
}

func newBatchCmd() *cobra.Command {
	flags := &runFlags{}
	var concurrency int
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Run a file of questions (one per line) through the loop concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			prompts, err := readPrompts(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			p, threads, err := buildProcessor(ctx, cfg, flags.verbose)
			if err != nil {
				return err
			}

			ids := make([]string, len(prompts))
			for i, prompt := range prompts {
				th, err := threads.Create(prompt, cfg.ModelID, cfg.MaxIterations)
				if err != nil {
					return err
				}
				ids[i] = th.ID
			}

			// One worker per thread; a failed thread ends ERROR on its own
			// without aborting the rest.
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(concurrency)
			for _, id := range ids {
				g.Go(func() error {
					if err := p.Process(gctx, id); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "thread %s: %v\n", id, err)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for _, id := range ids {
				th, err := threads.Get(id)
				if err != nil {
					return err
				}
				if err := emit(cmd, th, flags.jsonOut); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum threads processed in parallel")
	return cmd
}

// readPrompts loads non-empty lines from path.
func readPrompts(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts %s: %w", path, err)
	}
	var prompts []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			prompts = append(prompts, line)
		}
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("no prompts in %s", path)
	}
	return prompts, nil
}

// emit writes one thread to stdout in the selected format.
func emit(cmd *cobra.Command, th *thread.Thread, jsonOut bool) error {
	if jsonOut {
		b, err := render.RenderJSON(th)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.RenderText(th))
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the guardloop version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "guardloop %s\n", version)
		},
	}
}
