package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofhir/fhir/r4"
	"github.com/spf13/cobra"

	txclient "github.com/gofhir/txclient"
	"github.com/gofhir/txclient/params"
	"github.com/gofhir/txclient/pkg/fhirpath"
	"github.com/gofhir/txclient/pkg/logger"
	"github.com/gofhir/txclient/pkg/snomed"
	"github.com/gofhir/txclient/terminology"
	"github.com/gofhir/txclient/valueset"
	"github.com/gofhir/txclient/worker"
)

// errNotMember is returned by contains and validate-code when the code is
// not in the ValueSet, so the process exits non-zero.
var errNotMember = errors.New("code is not a member of the ValueSet")

// app carries the state shared by subcommands once configuration is loaded.
type app struct {
	cfg    *Config
	log    *logger.Logger
	client *terminology.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "txclient",
		Short:         "Query a FHIR terminology server",
		Version:       txclient.ClientVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.New(cmd.ErrOrStderr(), cfg.Level())

			client, err := terminology.New(cfg.Server, cfg.Options(a.log)...)
			if err != nil {
				return err
			}
			a.client = client
			a.log.Debug("using terminology server %s", cfg.Server)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	registerFlags(root.PersistentFlags())

	root.AddCommand(expandCmd(a))
	root.AddCommand(codesCmd(a))
	root.AddCommand(validateCodeCmd(a))
	root.AddCommand(containsCmd(a))
	return root
}

// addTargetFlags adds --url and --vs-version, which address a ValueSet by
// canonical url instead of by id.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "ValueSet canonical url (type-level operation)")
	cmd.Flags().String("vs-version", "", "ValueSet business version, with --url")
}

// target resolves the ValueSet addressed by the id argument or --url.
func (a *app) target(cmd *cobra.Command, args []string) (*valueset.Resource, error) {
	url, _ := cmd.Flags().GetString("url")
	version, _ := cmd.Flags().GetString("vs-version")

	switch {
	case len(args) == 1 && url != "":
		return nil, errors.New("give either a ValueSet id or --url, not both")
	case len(args) == 1:
		return a.client.ValueSet(args[0]), nil
	case url != "":
		return a.client.ValueSetByURL(url, version), nil
	default:
		return nil, errors.New("a ValueSet id or --url is required")
	}
}

func expandCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expand [id]",
		Short: "Expand a ValueSet ($expand)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vs, err := a.target(cmd, args)
			if err != nil {
				return err
			}
			in, err := expandParams(cmd)
			if err != nil {
				return err
			}

			expanded, err := vs.Expand(cmd.Context(), in)
			if err != nil {
				return err
			}

			if expr, _ := cmd.Flags().GetString("fhirpath"); expr != "" {
				result, err := fhirpath.NewEvaluator().Evaluate(expr, expanded)
				if err != nil {
					return err
				}
				items := fhirpath.Strings(result)
				if a.cfg.Output == "json" {
					return writeJSON(cmd.OutOrStdout(), items)
				}
				for _, item := range items {
					fmt.Fprintln(cmd.OutOrStdout(), item)
				}
				return nil
			}

			if a.cfg.Output == "json" {
				return writeJSON(cmd.OutOrStdout(), expanded)
			}
			printTree(cmd.OutOrStdout(), valueset.ContainsOf(expanded), 0)
			return nil
		},
	}
	addTargetFlags(cmd)
	cmd.Flags().Int("count", -1, "maximum number of codes to return")
	cmd.Flags().Int("offset", 0, "number of codes to skip")
	cmd.Flags().String("filter", "", "text filter applied by the server")
	cmd.Flags().Bool("active-only", false, "only include active codes")
	cmd.Flags().String("fhirpath", "", "FHIRPath expression evaluated against the expanded ValueSet")
	return cmd
}

func expandParams(cmd *cobra.Command) (*params.Map, error) {
	in := params.NewMap()
	flags := cmd.Flags()

	if flags.Changed("count") {
		count, _ := flags.GetInt("count")
		if count < 0 {
			return nil, fmt.Errorf("--count must not be negative")
		}
		in.Set("count", count)
	}
	if flags.Changed("offset") {
		offset, _ := flags.GetInt("offset")
		in.Set("offset", offset)
	}
	if filter, _ := flags.GetString("filter"); filter != "" {
		in.Set("filter", filter)
	}
	if flags.Changed("active-only") {
		activeOnly, _ := flags.GetBool("active-only")
		in.Set("activeOnly", activeOnly)
	}
	return in, nil
}

func codesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes [id]",
		Short: "List every coding of a ValueSet expansion in pre-order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vs, err := a.target(cmd, args)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			var codings []r4.Coding
			for coding, err := range vs.Codings(cmd.Context()) {
				if err != nil {
					return err
				}
				codings = append(codings, coding)
				if limit > 0 && len(codings) == limit {
					break
				}
			}

			if a.cfg.Output == "json" {
				return writeJSON(cmd.OutOrStdout(), codings)
			}
			for _, c := range codings {
				fmt.Fprintln(cmd.OutOrStdout(), formatCoding(c))
			}
			return nil
		},
	}
	addTargetFlags(cmd)
	cmd.Flags().Int("limit", 0, "stop after this many codings, 0 for all")
	return cmd
}

// codingFlags reads --system, --code, --display and --snomed into a Coding.
func codingFlags(cmd *cobra.Command) (r4.Coding, error) {
	flags := cmd.Flags()
	if tokens, _ := flags.GetStringArray("snomed"); len(tokens) > 0 {
		return snomed.ParseCoding(tokens[0])
	}

	system, _ := flags.GetString("system")
	code, _ := flags.GetString("code")
	display, _ := flags.GetString("display")
	if code == "" {
		return r4.Coding{}, errors.New("--code or --snomed is required")
	}

	c := r4.Coding{Code: &code}
	if system != "" {
		c.System = &system
	}
	if display != "" {
		c.Display = &display
	}
	return c, nil
}

func addCodingFlags(cmd *cobra.Command) {
	cmd.Flags().String("system", "", "code system url")
	cmd.Flags().String("code", "", "code")
	cmd.Flags().String("display", "", "display to check")
	cmd.Flags().StringArray("snomed", nil, `SNOMED CT token, e.g. "102263004 |Eggs (edible)|"`)
}

func validateCodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-code [id]",
		Short: "Validate a coding against a ValueSet ($validate-code)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vs, err := a.target(cmd, args)
			if err != nil {
				return err
			}
			coding, err := codingFlags(cmd)
			if err != nil {
				return err
			}

			res, err := vs.Validate(cmd.Context(), valueset.ValidateCodeInput{Coding: &coding})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.cfg.Output == "json" {
				if err := writeJSON(out, res); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "result: %t\n", res.Result)
				for _, line := range [][2]string{
					{"display", res.Display}, {"system", res.System}, {"code", res.Code}, {"message", res.Message},
				} {
					if line[1] != "" {
						fmt.Fprintf(out, "%s: %s\n", line[0], line[1])
					}
				}
			}
			if !res.Result {
				return errNotMember
			}
			return nil
		},
	}
	addTargetFlags(cmd)
	addCodingFlags(cmd)
	return cmd
}

func containsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contains [id]",
		Short: "Test whether codings are members of a ValueSet",
		Long: "Test whether codings are members of a ValueSet. Repeat --snomed to check\n" +
			"several SNOMED CT codings; they are checked concurrently (--workers).",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vs, err := a.target(cmd, args)
			if err != nil {
				return err
			}

			tokens, _ := cmd.Flags().GetStringArray("snomed")
			if len(tokens) > 1 {
				return a.containsAll(cmd, vs, tokens)
			}

			coding, err := codingFlags(cmd)
			if err != nil {
				return err
			}
			ok, err := vs.Contains(cmd.Context(), coding)
			if err != nil {
				return err
			}
			a.log.Info("%s in %s: %t", formatCoding(coding), vs.Reference(), ok)
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			if !ok {
				return errNotMember
			}
			return nil
		},
	}
	addTargetFlags(cmd)
	addCodingFlags(cmd)
	cmd.Flags().Int("workers", 4, "concurrent checks when several codings are given")
	return cmd
}

// containsAll checks several SNOMED CT tokens and prints one line per token.
func (a *app) containsAll(cmd *cobra.Command, vs *valueset.Resource, tokens []string) error {
	terms := make([]valueset.Term, 0, len(tokens))
	for _, token := range tokens {
		coding, err := snomed.ParseCoding(token)
		if err != nil {
			return fmt.Errorf("%q: %w", token, err)
		}
		terms = append(terms, valueset.CodingTerm(coding))
	}

	workers, _ := cmd.Flags().GetInt("workers")
	result := worker.NewBatch(vs, workers).Run(cmd.Context(), terms)
	a.log.Info("checked %d codings in %s: %d members, %d failed",
		result.TotalJobs, result.TotalDuration, result.Members(), result.FailedJobs)

	out := cmd.OutOrStdout()
	for _, r := range result.Results {
		coding, _ := r.Term.Coding()
		if r.Error != nil {
			fmt.Fprintf(out, "%s\terror: %v\n", formatCoding(coding), r.Error)
			continue
		}
		fmt.Fprintf(out, "%s\t%t\n", formatCoding(coding), r.Member)
	}

	for _, r := range result.Results {
		if r.Error != nil {
			return r.Error
		}
	}
	if !result.AllMembers() {
		return errNotMember
	}
	return nil
}

func printTree(w io.Writer, contains []r4.ValueSetExpansionContains, depth int) {
	for i := range contains {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), formatCoding(valueset.CodingOf(&contains[i])))
		printTree(w, contains[i].Contains, depth+1)
	}
}

// formatCoding renders a coding as "system|code display".
func formatCoding(c r4.Coding) string {
	var b strings.Builder
	if c.System != nil {
		b.WriteString(*c.System)
		b.WriteByte('|')
	}
	if c.Code != nil {
		b.WriteString(*c.Code)
	}
	if c.Display != nil && *c.Display != "" {
		b.WriteString(" ")
		b.WriteString(*c.Display)
	}
	return b.String()
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
