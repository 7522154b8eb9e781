// Command immunisation validates immunisation records from the command line:
// single FHIR Immunization JSON documents, or CSV batch files of flat legacy
// rows that are transformed before validation.
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	immunisation "github.com/dlzhry2/immunisation-fhir-api-sub000"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/decorate"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/engine"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/logger"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/vaccine"
	"github.com/dlzhry2/immunisation-fhir-api-sub000/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("IMMS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "immunisation",
		Short:         "Validate and transform immunisation records",
		Version:       immunisation.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if v.GetBool("quiet") {
				logger.Disable()
				return nil
			}
			return logger.SetLevel(v.GetString("log-level"))
		},
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "warn", "log level (debug, info, warn, error, disabled)")
	flags.Bool("quiet", false, "suppress logging")
	flags.String("output", "text", "output format: text, json")
	flags.Bool("conformance", true, "run the FHIR model conformance stage")
	flags.Bool("post-validation", true, "run the mandation stage")
	flags.Bool("reduce-flag", true, "honour a record's reduce-validation answer")
	flags.Int("max-errors", 0, "stop after this many errors (0 = unlimited)")

	root.AddCommand(newValidateCmd(v))
	root.AddCommand(newBatchCmd(v))
	return root
}

func validatorFromConfig(v *viper.Viper) *engine.ImmunizationValidator {
	return engine.New(
		immunisation.WithConformance(v.GetBool("conformance")),
		immunisation.WithPostValidation(v.GetBool("post-validation")),
		immunisation.WithReduceFlag(v.GetBool("reduce-flag")),
		immunisation.WithMaxErrors(v.GetInt("max-errors")),
	)
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.json>",
		Short: "Validate a FHIR Immunization JSON document",
		Long: `Validate a FHIR Immunization JSON document against the structural,
model-conformance and mandation rules. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}

			validator := validatorFromConfig(v)
			result := validator.ValidateJSON(cmd.Context(), data)
			defer validator.Release(result)

			if err := printResult(cmd.OutOrStdout(), v.GetString("output"), args[0], result); err != nil {
				return err
			}
			if !result.Valid {
				return fmt.Errorf("%s is invalid (%d errors)", args[0], result.ErrorCount())
			}
			return nil
		},
	}
}

func newBatchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file.csv>",
		Short: "Transform and validate a CSV batch of flat legacy rows",
		Long: `Transform each row of a CSV batch file into a FHIR Immunization record
and validate it. The batch's vaccine type must be supplied: flat rows do not
carry disease codes, so the targetDisease element is derived from it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vaccineType, err := parseVaccineType(v.GetString("vaccine-type"))
			if err != nil {
				return err
			}

			rows, err := readBatch(args[0])
			if err != nil {
				return err
			}

			validator := validatorFromConfig(v)
			pool := worker.NewPool(validator, v.GetInt("workers"))
			for i, row := range rows {
				pool.Submit(worker.Job{
					ID:          fmt.Sprintf("row-%d", i+2), // header is line 1
					Row:         row,
					VaccineType: vaccineType,
				})
			}
			batch := pool.CloseAndWait()

			if err := printBatch(cmd.OutOrStdout(), v.GetString("output"), args[0], batch); err != nil {
				return err
			}
			if batch.HasErrors() {
				return fmt.Errorf("%s has invalid rows (%d errors)", args[0], batch.ErrorCount())
			}
			return nil
		},
	}
	cmd.Flags().String("vaccine-type", "", "batch vaccine type (COVID19, FLU, HPV, MMR, RSV)")
	cmd.Flags().Int("workers", 0, "worker count (0 = number of CPUs)")
	return cmd
}

func parseVaccineType(s string) (vaccine.Type, error) {
	for _, vt := range vaccine.All() {
		if strings.EqualFold(s, string(vt)) {
			return vt, nil
		}
	}
	return "", fmt.Errorf("unknown vaccine type %q (use one of COVID19, FLU, HPV, MMR, RSV)", s)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// readBatch reads a CSV batch file into flat rows keyed by the lowercased
// header names.
func readBatch(path string) ([]decorate.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", path, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows []decorate.Row
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		row := make(decorate.Row, len(header))
		for i, value := range fields {
			if i < len(header) {
				row[header[i]] = value
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// resultOutput is the JSON shape of a single validation outcome.
type resultOutput struct {
	Resource string               `json:"resource"`
	Valid    bool                 `json:"valid"`
	Errors   int                  `json:"errors"`
	Issues   []immunisation.Issue `json:"issues,omitempty"`
}

func printResult(w io.Writer, format, name string, result *immunisation.Result) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resultOutput{
			Resource: name,
			Valid:    result.Valid,
			Errors:   result.ErrorCount(),
			Issues:   result.Issues,
		})
	}

	if result.Valid {
		fmt.Fprintf(w, "%s: valid\n", name)
		return nil
	}
	fmt.Fprintf(w, "%s: %d errors\n", name, result.ErrorCount())
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "  %s [%s] %s\n", issue.Severity, issue.Phase, issue.Diagnostics)
	}
	return nil
}

// batchOutput is the JSON shape of a batch outcome.
type batchOutput struct {
	Resource string         `json:"resource"`
	Rows     int            `json:"rows"`
	Invalid  int            `json:"invalid"`
	Errors   int            `json:"errors"`
	Results  []resultOutput `json:"results,omitempty"`
}

func printBatch(w io.Writer, format, name string, batch *worker.BatchResult) error {
	invalid := 0
	for _, r := range batch.Results {
		if r.Err != nil || (r.Result != nil && !r.Result.Valid) {
			invalid++
		}
	}

	if format == "json" {
		out := batchOutput{
			Resource: name,
			Rows:     batch.TotalJobs,
			Invalid:  invalid,
			Errors:   batch.ErrorCount(),
		}
		for _, r := range batch.Results {
			entry := resultOutput{Resource: r.ID}
			if r.Result != nil {
				entry.Valid = r.Result.Valid
				entry.Errors = r.Result.ErrorCount()
				entry.Issues = r.Result.Issues
			}
			out.Results = append(out.Results, entry)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "%s: %d rows, %d invalid, %d errors\n", name, batch.TotalJobs, invalid, batch.ErrorCount())
	for _, r := range batch.Results {
		if r.Err != nil {
			fmt.Fprintf(w, "  %s: %v\n", r.ID, r.Err)
			continue
		}
		if r.Result != nil && !r.Result.Valid {
			fmt.Fprintf(w, "  %s: %d errors\n", r.ID, r.Result.ErrorCount())
			for _, issue := range r.Result.Issues {
				fmt.Fprintf(w, "    %s [%s] %s\n", issue.Severity, issue.Phase, issue.Diagnostics)
			}
		}
	}
	return nil
}
