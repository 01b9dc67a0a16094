package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/awards-cli/internal/model"
)

var (
	aggregateBrand    string
	aggregateNoCache  bool
	aggregateUpcoming bool
	aggregateTable    bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Run the award pipeline and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "aggregate")
		if err != nil {
			return err
		}
		defer env.Close()

		awards, err := aggregate(cmd, env, aggregateBrand, aggregateNoCache)
		if err != nil {
			return err
		}
		now := time.Now()
		if aggregateUpcoming {
			awards = upcoming(awards, now)
		}
		return printAwards(cmd.OutOrStdout(), awards, aggregateTable, now)
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateBrand, "brand", "", "restrict to one brand")
	aggregateCmd.Flags().BoolVar(&aggregateNoCache, "no-cache", false, "bypass the award cache")
	aggregateCmd.Flags().BoolVar(&aggregateUpcoming, "upcoming", false, "only awards whose event date is in the future")
	aggregateCmd.Flags().BoolVar(&aggregateTable, "table", false, "print a table instead of JSON")
	rootCmd.AddCommand(aggregateCmd)
}

// aggregate returns the all-brands list, or one brand's list when brand is
// set.
func aggregate(cmd *cobra.Command, env *appEnv, brand string, bypass bool) ([]model.Award, error) {
	if brand == "" {
		return env.Service.AggregateAwards(cmd.Context(), bypass), nil
	}
	awards, err := env.Service.AggregateAwardsForBrand(cmd.Context(), brand, bypass)
	if err != nil {
		return nil, eris.Wrapf(err, "aggregate brand %q", brand)
	}
	return awards, nil
}

func printAwards(w io.Writer, awards []model.Award, asTable bool, now time.Time) error {
	if asTable {
		renderAwards(w, awards, func(a model.Award) model.SubmissionStatus { return a.SubmissionStatus(now) })
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(awards)
}
