package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/export"
)

var (
	exportOut     string
	exportBrand   string
	exportNoCache bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the award list to an XLSX spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "aggregate")
		if err != nil {
			return err
		}
		defer env.Close()

		awards, err := aggregate(cmd, env, exportBrand, exportNoCache)
		if err != nil {
			return err
		}
		if err := export.SaveXLSX(exportOut, awards, time.Now()); err != nil {
			return err
		}
		zap.L().Info("awards exported", zap.String("path", exportOut), zap.Int("awards", len(awards)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "awards.xlsx", "output file")
	exportCmd.Flags().StringVar(&exportBrand, "brand", "", "restrict to one brand")
	exportCmd.Flags().BoolVar(&exportNoCache, "no-cache", false, "bypass the award cache")
	rootCmd.AddCommand(exportCmd)
}
