package cmd

import (
	"context"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/skillsync/skillsync/internal/certifications"
	"github.com/skillsync/skillsync/internal/logger"
)

var certsCmd = &cobra.Command{
	Use:   "certs skill[,skill...]",
	Short: "Look up online courses for skills",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger, err := logger.NewStderr(viper.GetBool("json"), viper.GetBool("debug"))
		if err != nil {
			log.Fatalf("creating a logger: %s", err)
		}

		skills := certifications.ParseSkills(strings.Join(args, ","))
		if len(skills) == 0 {
			logger.Fatal("no skills given")
		}

		certs, err := certifications.New(logger).Lookup(context.Background(), skills)
		if err != nil {
			logger.Fatal("looking up courses", zap.Error(err))
		}
		printCertifications(cmd.OutOrStdout(), certs)
	},
}

func init() {
	rootCmd.AddCommand(certsCmd)
}
