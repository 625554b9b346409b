package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tokenfence/internal/inference"
	"github.com/samcharles93/tokenfence/internal/logger"
	"github.com/samcharles93/tokenfence/internal/tokenizer"
	"github.com/samcharles93/tokenfence/internal/toy"
	"github.com/samcharles93/tokenfence/pkg/enforce"
	"github.com/samcharles93/tokenfence/pkg/grammar"
)

func runCmd() *cli.Command {
	var (
		prompt        string
		matches       []string
		steps         int64
		temp          float64
		topK          int64
		topP          float64
		minP          float64
		repeatPenalty float64
		seed          int64
		diagnostics   bool
		interactive   bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "prompt text",
			Destination: &prompt,
		},
		&cli.StringSliceFlag{
			Name:        "match",
			Usage:       "literal string the output must match (repeatable)",
			Destination: &matches,
		},
		&cli.Int64Flag{
			Name:        "steps",
			Aliases:     []string{"n"},
			Usage:       "maximum number of tokens to generate",
			Value:       64,
			Destination: &steps,
		},
		&cli.Float64Flag{
			Name:        "temp",
			Aliases:     []string{"temperature", "t"},
			Usage:       "sampling temperature",
			Value:       0.8,
			Destination: &temp,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Usage:       "top-k sampling parameter",
			Value:       40,
			Destination: &topK,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Usage:       "top-p sampling parameter",
			Value:       0.95,
			Destination: &topP,
		},
		&cli.Float64Flag{
			Name:        "min-p",
			Usage:       "min-p sampling parameter",
			Destination: &minP,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Usage:       "repetition penalty (1.0 disables)",
			Value:       1.0,
			Destination: &repeatPenalty,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampling seed",
			Destination: &seed,
		},
		&cli.BoolFlag{
			Name:        "diagnostics",
			Aliases:     []string{"d"},
			Usage:       "print the per-step enforcement report",
			Destination: &diagnostics,
		},
		&cli.BoolFlag{
			Name:        "interactive",
			Aliases:     []string{"i"},
			Usage:       "read prompts interactively",
			Destination: &interactive,
		},
	}
	flags = append(flags, commonModelFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "run",
		Usage: "Run constrained generation against the demo model",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyRunConfig(cmd, LoadConfig(), &temp, &topK, &topP, &minP, &repeatPenalty, &steps, &seed)
			log := buildLogger()

			if len(matches) == 0 {
				return fmt.Errorf("at least one --match string is required")
			}

			vocab, err := buildVocab()
			if err != nil {
				return err
			}
			table, err := enforce.BuildRegularTokens(vocab)
			if err != nil {
				return err
			}
			model := toy.New(vocab.VocabSize(), int(hidden), modelSeed)

			generate := func(ctx context.Context, prompt string) error {
				ids, err := vocab.Encode(prompt)
				if err != nil {
					return fmt.Errorf("encode prompt: %w", err)
				}
				ids = append([]int{0}, ids...)

				req := &inference.Request{
					Prompts:       [][]int{ids},
					Steps:         int(steps),
					Seed:          seed,
					Temperature:   temp,
					TopK:          int(topK),
					TopP:          topP,
					MinP:          minP,
					RepeatPenalty: repeatPenalty,
					Stream: func(seq int, token string) {
						fmt.Print(token)
					},
				}
				engine, err := inference.NewEngine(model, vocab, req)
				if err != nil {
					return err
				}
				oracle := grammar.NewEnforcer(table, grammar.Strings(matches...), vocab.EOSTokenID())

				out, err := enforce.GenerateEnforced(ctx, engine, vocab, oracle, enforce.Options{
					WantDiagnostics: diagnostics,
					Logger:          logger.Slog(log),
				})
				if err != nil {
					return err
				}
				fmt.Println()

				stats := engine.Stats()
				log.Info("generation finished",
					"finish_reason", out.FinishReasons[0],
					"tokens", stats.TokensGenerated,
					"tps", fmt.Sprintf("%.1f", stats.TPS))

				if diagnostics && out.EnforcedScores != nil {
					report, err := json.MarshalIndent(out.EnforcedScores, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(report))
				}
				return nil
			}

			if !interactive {
				return generate(ctx, prompt)
			}
			for {
				line, err := readInteractiveLine("> ")
				if err == io.EOF || line == "exit" {
					return nil
				}
				if err != nil {
					return err
				}
				if line == "" {
					continue
				}
				if err := generate(ctx, line); err != nil {
					_, _ = fmt.Fprintln(os.Stderr, err)
				}
			}
		},
	}
}

func buildVocab() (*tokenizer.Vocab, error) {
	if vocabPath == "" {
		return tokenizer.ByteLevel(), nil
	}
	cfg, err := tokenizer.LoadConfig(vocabPath)
	if err != nil {
		return nil, err
	}
	return tokenizer.New(cfg)
}
