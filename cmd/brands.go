package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var brandsJSON bool

var brandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "List the brands taking part in award aggregation",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "aggregate")
		if err != nil {
			return err
		}
		defer env.Close()

		brands, err := env.Brands.AwardBrands(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "load brands")
		}
		if brandsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(brands)
		}
		renderBrands(cmd.OutOrStdout(), brands)
		return nil
	},
}

func init() {
	brandsCmd.Flags().BoolVar(&brandsJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(brandsCmd)
}
