package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/healthtrack/healthtrack/internal/config"
	"github.com/healthtrack/healthtrack/internal/domain/evaluation"
)

// offlineService builds the evaluation service without a database. Logs go
// to stderr so stdout carries only the JSON result.
func offlineService(cmd *cobra.Command) (*evaluation.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eng, err := newEngine(cfg, newLogger(cfg, cmd.ErrOrStderr()), nil)
	if err != nil {
		return nil, err
	}
	return eng.evaluationService(), nil
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [request.json]",
		Short: "Evaluate a subject read from a JSON file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var req evaluation.Request
			dec := json.NewDecoder(in)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}
			flags := cmd.Flags()
			if flags.Changed("kind") {
				req.Kind, _ = flags.GetString("kind")
			}
			if flags.Changed("as-of") {
				req.AsOf, _ = flags.GetString("as-of")
			}
			if flags.Changed("view") {
				req.View, _ = flags.GetString("view")
			}

			svc, err := offlineService(cmd)
			if err != nil {
				return err
			}
			res, err := svc.Evaluate(req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().String("kind", "", "vaccine or procedure (overrides the request)")
	cmd.Flags().String("as-of", "", "Evaluation date YYYY-MM-DD (overrides the request)")
	cmd.Flags().String("view", "", "all, pending or upcoming (overrides the request)")
	return cmd
}

func riskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Score surgical risk from age, weight, height and blood pressure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var req evaluation.RiskRequest
			req.AgeYears, _ = flags.GetInt("age")
			req.DateOfBirth, _ = flags.GetString("dob")
			req.AsOf, _ = flags.GetString("as-of")
			if flags.Changed("weight") {
				w, _ := flags.GetFloat64("weight")
				req.WeightKg = &w
			}
			if flags.Changed("height") {
				h, _ := flags.GetFloat64("height")
				req.HeightCm = &h
			}
			if flags.Changed("bp") {
				bp, _ := flags.GetString("bp")
				req.BloodPressure = &bp
			}

			svc, err := offlineService(cmd)
			if err != nil {
				return err
			}
			a, err := svc.Risk(req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a)
		},
	}
	cmd.Flags().Int("age", 0, "Age in years")
	cmd.Flags().String("dob", "", "Date of birth YYYY-MM-DD; overrides --age")
	cmd.Flags().String("as-of", "", "Date the age is computed at, default today")
	cmd.Flags().Float64("weight", 0, "Weight in kg")
	cmd.Flags().Float64("height", 0, "Height in cm")
	cmd.Flags().String("bp", "", "Blood pressure as systolic/diastolic")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
