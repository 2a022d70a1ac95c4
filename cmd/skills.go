package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/skillsync/skillsync/internal/ai"
	"github.com/skillsync/skillsync/internal/logger"
	"github.com/skillsync/skillsync/internal/resume"
)

var skillsCmd = &cobra.Command{
	Use:   "skills [file]",
	Short: "Extract skills from a résumé file, s3://bucket/key or stdin",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		extractSkills(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(skillsCmd)
}

func extractSkills(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := logger.NewStderr(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	lex, extractor, err := newExtractor(cfg)
	if err != nil {
		logger.Fatal("initializing", zap.Error(err))
	}

	var text string
	if len(args) == 1 {
		text, err = resume.New(cfg.S3, logger).Load(ctx, args[0])
	} else {
		text, err = readStdin(cmd.InOrStdin())
	}
	if err != nil {
		logger.Fatal("reading the résumé", zap.Error(err))
	}

	found := extractor.Extract(text)
	if cfg.AI.Enabled {
		suggester, err := newSuggester(ctx, cfg.AI, logger)
		if err != nil {
			logger.Warn("skipping ai skill suggestions", zap.Error(err))
		} else {
			found = ai.Enrich(ctx, logger, suggester, lex, text, found)
		}
	}

	out := cmd.OutOrStdout()
	for _, id := range found.Sorted() {
		fmt.Fprintf(out, "%-20s %s\n", id, lex.Name(id))
	}
	logger.Info("skills extracted", zap.Int("count", found.Len()))
}

func readStdin(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", errors.New("pass a file or pipe the résumé text on stdin")
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
