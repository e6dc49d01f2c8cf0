package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/valuation"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newEstimateCmd() *cobra.Command {
	var (
		file   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Value a profile file with the local engine",
		Long: `Reads a profile from a YAML or JSON file (chosen by extension) and prints
its valuation. No backend is contacted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile(file)
			if err != nil {
				return err
			}
			result := valuation.NewEngine(valuation.DefaultTables()).Estimate(profile)
			return printResult(cmd.OutOrStdout(), result, asJSON)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "profile file (.yaml, .yml or .json)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func loadProfile(path string) (domain.Profile, error) {
	profile := domain.NewProfile()

	raw, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("read profile: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &profile)
	case ".json":
		err = json.Unmarshal(raw, &profile)
	default:
		return profile, fmt.Errorf("unsupported profile format %q", filepath.Ext(path))
	}
	if err != nil {
		return profile, fmt.Errorf("parse profile: %w", err)
	}

	if err := validator.New().Struct(profile); err != nil {
		return profile, fmt.Errorf("invalid profile: %w", err)
	}
	return profile, nil
}

func printResult(w io.Writer, r *domain.ValuationResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "Valor total: R$ %.2f\n\n", r.Total)
	rows := []struct {
		label string
		value float64
	}{
		{"Dados demográficos", r.Breakdown.Demographics},
		{"Hábitos digitais", r.Breakdown.DigitalHabits},
		{"Consumo", r.Breakdown.Consumption},
		{"Saúde e bem-estar", r.Breakdown.Health},
		{"Dados avançados", r.Breakdown.Advanced},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-20s R$ %8.2f\n", row.label, row.value)
	}
	if len(r.Insights) > 0 {
		fmt.Fprintln(w)
		for _, insight := range r.Insights {
			fmt.Fprintf(w, "  • %s\n", insight)
		}
	}
	return nil
}
