package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/skillsync/skillsync/internal/jobsearch"
	"github.com/skillsync/skillsync/internal/logger"
	"github.com/skillsync/skillsync/internal/pipeline"
	"github.com/skillsync/skillsync/internal/recommend"
)

const (
	PromptShowMatches         = "Show matches"
	PromptRecommendations     = "Show recommended skills"
	PromptCertifications      = "Look up courses for recommended skills"
	PromptReportByCompanies   = "Report by companies"
	PromptListingsToFile      = "Dump listings to file"
	PromptAppendToExcludeFile = "Append all listings to exclude file"
	PromptExit                = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{
		PromptShowMatches,
		PromptRecommendations,
		PromptCertifications,
		PromptReportByCompanies,
		PromptListingsToFile,
		PromptAppendToExcludeFile,
		PromptExit,
	},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a résumé against job listings",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("resume", "r", "", "résumé file: local path or s3://bucket/key (.txt, .md, .pdf, .docx)")
	matchCmd.Flags().String("text", "", "résumé text, used instead of --resume")
	matchCmd.Flags().StringSliceP("keywords", "k", nil, "search keywords. Default is the top skills of the résumé")
	matchCmd.Flags().StringP("location", "l", "", "search location")
	matchCmd.Flags().IntP("page", "p", 1, "result page")
	matchCmd.Flags().BoolP("yes", "y", false, "print the results and exit without the interactive menu")
	matchCmd.Flags().StringP("exclude-file", "e", "", "file with listings to exclude. Default is unset.")

	viper.BindPFlag("filters.exclude-file", matchCmd.Flags().Lookup("exclude-file"))
}

// match is the main command for the cli.
func match(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.NewStderr(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(cfg.Redacted(), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	c, err := newComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initializing", zap.Error(err))
	}
	defer c.Close()

	text, err := resumeText(ctx, cmd, c)
	if err != nil {
		logger.Fatal("reading the résumé", zap.Error(err))
	}

	keywords, _ := cmd.Flags().GetStringSlice("keywords")
	location, _ := cmd.Flags().GetString("location")
	page, _ := cmd.Flags().GetInt("page")

	res, err := c.pipeline.Run(ctx, pipeline.Request{
		ResumeText: text,
		Keywords:   keywords,
		Location:   location,
		Page:       page,
	})
	if err != nil {
		logger.Fatal("matching failed", zap.Error(err))
	}

	logger.Info("found skills", zap.Strings("skills", res.Skills.Sorted()))
	if res.Degraded {
		logger.Warn("results are degraded", zap.String("source", string(res.Source)))
	}

	out := cmd.OutOrStdout()
	yes, _ := cmd.Flags().GetBool("yes")
	if yes {
		printMatches(out, res)
		printRecommendations(out, res)
		return
	}

	if res.Batch == nil || res.Batch.Len() == 0 {
		printRecommendations(out, res)
		logger.Info("exiting", zap.String("reason", "no listings found"))
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, out, logger, cfg.Filters.ExcludeFile, c, res); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func resumeText(ctx context.Context, cmd *cobra.Command, c *components) (string, error) {
	if text, _ := cmd.Flags().GetString("text"); strings.TrimSpace(text) != "" {
		return text, nil
	}
	location, _ := cmd.Flags().GetString("resume")
	if location == "" {
		return "", errors.New("either --resume or --text is required")
	}
	return c.resumes.Load(ctx, location)
}

func handleAction(ctx context.Context, action string, out io.Writer, logger *zap.Logger, excludeFile string, c *components, res *pipeline.Result) error {
	switch action {
	case PromptShowMatches:
		printMatches(out, res)
		return nil
	case PromptRecommendations:
		printRecommendations(out, res)
		return nil
	case PromptCertifications:
		certs, err := c.certs.Lookup(ctx, recommend.Names(res.Recommendations))
		if err != nil {
			return fmt.Errorf("looking up courses: %w", err)
		}
		printCertifications(out, certs)
		return nil
	case PromptReportByCompanies:
		pretty, _ := json.MarshalIndent(res.Batch.ReportByCompany(), "", "  ")
		logger.Info(string(pretty), zap.Int("listings count", res.Batch.Len()))
		return nil
	case PromptListingsToFile:
		filename, err := res.Batch.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		return appendToExcludeFile(logger, excludeFile, res)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func appendToExcludeFile(logger *zap.Logger, excludeFile string, res *pipeline.Result) error {
	if excludeFile == "" {
		logger.Warn("exclude file is not set", zap.String("hint", "use --exclude-file or filters.exclude-file"))
		return nil
	}

	excluded, err := jobsearch.ReadExcludedFile(excludeFile)
	if err != nil {
		return err
	}

	excluded.Append(res.Batch.ToExcluded(time.Now()))
	if err := excluded.WriteFile(excludeFile); err != nil {
		return err
	}

	logger.Info("appended to exclude file", zap.String("filename", excludeFile), zap.Int("count", res.Batch.Len()))

	removed := res.Batch.ExcludeIDs(excluded.IDs())
	kept := res.Matches[:0]
	drop := make(map[string]struct{}, len(removed))
	for _, id := range removed {
		drop[id] = struct{}{}
	}
	for _, m := range res.Matches {
		if _, ok := drop[m.Listing.ID]; !ok {
			kept = append(kept, m)
		}
	}
	res.Matches = kept
	return nil
}
