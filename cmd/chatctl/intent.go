package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/supportchat/internal/intent"
)

func newTrainCmd(g *globals) *cobra.Command {
	var corpusPath, outPath string
	var alpha float64
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the intent classifier and write the model artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			examples := intent.DefaultCorpus()
			if corpusPath != "" {
				fh, err := os.Open(corpusPath)
				if err != nil {
					return fmt.Errorf("open corpus: %w", err)
				}
				defer fh.Close()
				if examples, err = intent.ParseCorpus(fh); err != nil {
					return err
				}
			}
			model, err := intent.Train(examples, alpha)
			if err != nil {
				return err
			}

			out, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}
			if err := model.Save(out); err != nil {
				_ = out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("close %s: %w", outPath, err)
			}
			g.logger().Info("intent model written",
				"path", outPath,
				"examples", len(examples),
				"vocabulary", len(model.Vocabulary),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&corpusPath, "corpus", "", "YAML corpus (label: [sentences]); defaults to the built-in corpus")
	cmd.Flags().StringVarP(&outPath, "out", "o", "intent_model.json", "model artifact path")
	cmd.Flags().Float64Var(&alpha, "alpha", intent.DefaultAlpha, "Laplace smoothing constant")
	return cmd
}

func newClassifyCmd(g *globals) *cobra.Command {
	var modelPath string
	var showScores bool
	cmd := &cobra.Command{
		Use:   "classify <message>",
		Short: "Print the intent label for a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelPath == "" {
				modelPath = g.cfg.ClassifierModelPath
			}
			model, err := intent.LoadOrTrain(modelPath)
			if err != nil {
				return err
			}
			msg := strings.Join(args, " ")
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, model.Classify(context.Background(), msg))
			if showScores {
				for i, score := range model.Scores(msg) {
					fmt.Fprintf(w, "  %-10s %.4f\n", model.Classes[i], score)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "model artifact; defaults to CLASSIFIER_MODEL_PATH or the built-in corpus")
	cmd.Flags().BoolVar(&showScores, "scores", false, "print per-class log likelihoods")
	return cmd
}
