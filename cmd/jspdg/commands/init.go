package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/l3aro/jspdg/internal/config"
	"github.com/l3aro/jspdg/internal/healthcheck"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize jspdg configuration interactively",
	Long: `Guides you through setting up jspdg configuration step by step.
Creates a config file with output, batch, partition and slice settings.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationConfig: configOptional},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd)
	},
}

// initAnswers holds the wizard's answers as entered.
type initAnswers struct {
	format           string
	workers          string
	sequenceTopLevel bool
	thetaAST         string
	maxChars         string
	stripComments    bool
	location         string
}

func runInit(cmd *cobra.Command) error {
	base := config.DefaultConfig()
	a := initAnswers{
		format:   base.OutputFormat,
		workers:  strconv.Itoa(base.Workers),
		thetaAST: strconv.Itoa(base.Partition.ThetaAST),
		maxChars: strconv.Itoa(base.Repr.MaxChars),
		location: "project",
	}

	// === SECTION 1: Graph output ===
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Graph Output Format").
				Description("Encoding used by build, batch and watch").
				Options(
					huh.NewOption("JSON (indented)", "json"),
					huh.NewOption("MessagePack (binary)", "msgpack"),
					huh.NewOption("JSON lines (one record per file)", "jsonl"),
				).
				Value(&a.format),
			huh.NewConfirm().
				Title("Sequence top-level statements?").
				Description("Also link consecutive program-level and switch-case statements").
				Affirmative("Yes").
				Negative("No, blocks only").
				Value(&a.sequenceTopLevel),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 2: Batch and post-processing ===
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Batch workers").
				Placeholder(a.workers).
				Validate(positiveInt).
				Value(&a.workers),
			huh.NewInput().
				Title("Partition threshold (ast_size per part)").
				Placeholder(a.thetaAST).
				Validate(positiveInt).
				Value(&a.thetaAST),
			huh.NewInput().
				Title("Slice character budget").
				Placeholder(a.maxChars).
				Validate(positiveInt).
				Value(&a.maxChars),
			huh.NewConfirm().
				Title("Strip comments from slices?").
				Value(&a.stripComments),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Config Location ===
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Project (./.jspdg/config.yaml)", "project"),
					huh.NewOption("Global (~/.jspdg/config.yaml)", "global"),
				).
				Value(&a.location),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	configPath := config.ProjectConfigPath()
	if a.location == "global" {
		configPath = config.GlobalConfigPath()
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	newCfg, err := a.apply(base)
	if err != nil {
		return err
	}
	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\n=== Configuration Preview ===")
	fmt.Fprintf(out, "Config path: %s\n", configPath)
	fmt.Fprintf(out, "Output format: %s\n", newCfg.OutputFormat)
	fmt.Fprintf(out, "Sequence top level: %t\n", newCfg.SequenceTopLevel)
	fmt.Fprintf(out, "Workers: %d\n", newCfg.Workers)
	fmt.Fprintf(out, "Partition theta_ast: %d\n", newCfg.Partition.ThetaAST)
	fmt.Fprintf(out, "Slice max_chars: %d (strip comments: %t)\n", newCfg.Repr.MaxChars, newCfg.Repr.StripComments)
	fmt.Fprintln(out, "================================")

	if err := newCfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(out, "Configuration saved to: %s\n", configPath)

	// === SECTION 4: Health Check ===
	fmt.Fprintln(out, "\n=== Running Health Check ===")
	loadedCfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}
	result, err := healthcheck.Check(cmd.Context(), loadedCfg, configPath, effectiveConfigPath())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfig Scope: %s\n", result.SavedScope)
	absPath, _ := filepath.Abs(configPath)
	fmt.Fprintf(out, "Config Path: %s\n", absPath)
	if result.EffectivePath != "" && result.EffectiveScope != result.SavedScope {
		fmt.Fprintf(out, "Note: %s config at %s takes precedence here\n", result.EffectiveScope, result.EffectivePath)
	}
	fmt.Fprintln(out)
	displayDoctorResult(out, result)

	fmt.Fprintln(out, "\n=== Initialization Complete ===")
	return nil
}

// apply copies the answers onto base.
func (a initAnswers) apply(base *config.Config) (*config.Config, error) {
	c := *base
	c.OutputFormat = a.format
	c.SequenceTopLevel = a.sequenceTopLevel
	c.Repr.StripComments = a.stripComments

	for _, f := range []struct {
		name  string
		value string
		dst   *int
	}{
		{"workers", a.workers, &c.Workers},
		{"theta_ast", a.thetaAST, &c.Partition.ThetaAST},
		{"max_chars", a.maxChars, &c.Repr.MaxChars},
	} {
		n, err := strconv.Atoi(f.value)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", f.name, f.value)
		}
		*f.dst = n
	}
	return &c, nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
