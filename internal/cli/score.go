package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sivaangayarkanni/crm/internal/scoring"
	"github.com/spf13/cobra"
)

// scoreFlags are shared by score lead and score deal.
type scoreFlags struct {
	file   string
	now    string
	output string
}

func (f *scoreFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "-", "JSON input file, - for stdin")
	cmd.Flags().StringVar(&f.now, "now", "", "Evaluation time in RFC 3339 (default current time)")
	cmd.Flags().StringVarP(&f.output, "output", "o", outputTable, "Output format: table or json")
}

func (f *scoreFlags) evaluationTime() (time.Time, error) {
	if f.now == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, f.now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now: %w", err)
	}
	return t.UTC(), nil
}

// decodeInput reads one JSON document from the file flag into dest.
func (f *scoreFlags) decodeInput(cmd *cobra.Command, dest interface{}) error {
	var r io.Reader = cmd.InOrStdin()
	if f.file != "-" {
		file, err := os.Open(f.file)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer file.Close()
		r = file
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("failed to decode input: %w", err)
	}
	return nil
}

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a lead or deal from a JSON file without storing it",
	}
	cmd.AddCommand(newScoreLeadCmd())
	cmd.AddCommand(newScoreDealCmd())
	return cmd
}

func newScoreLeadCmd() *cobra.Command {
	flags := &scoreFlags{}

	cmd := &cobra.Command{
		Use:   "lead",
		Short: "Score a lead",
		Example: `  crm score lead --file lead.json
  echo '{"email":"a@b.com","source":"referral"}' | crm score lead -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(flags.output); err != nil {
				return err
			}
			now, err := flags.evaluationTime()
			if err != nil {
				return err
			}

			var in scoring.LeadInput
			if err := flags.decodeInput(cmd, &in); err != nil {
				return err
			}
			if in.CreatedAt.IsZero() {
				in.CreatedAt = now
			}

			result := scoring.NewEngine().ScoreLead(in, now)
			if flags.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writeLeadTable(cmd.OutOrStdout(), result, useColor(cmd.OutOrStdout()))
		},
	}
	flags.register(cmd)

	return cmd
}

func newScoreDealCmd() *cobra.Command {
	flags := &scoreFlags{}

	cmd := &cobra.Command{
		Use:     "deal",
		Short:   "Score a deal",
		Example: `  crm score deal --file deal.json --now 2026-03-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(flags.output); err != nil {
				return err
			}
			now, err := flags.evaluationTime()
			if err != nil {
				return err
			}

			var in scoring.DealInput
			if err := flags.decodeInput(cmd, &in); err != nil {
				return err
			}

			result := scoring.NewEngine().ScoreDeal(in, now)
			if flags.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writeDealTable(cmd.OutOrStdout(), result, useColor(cmd.OutOrStdout()))
		},
	}
	flags.register(cmd)

	return cmd
}
