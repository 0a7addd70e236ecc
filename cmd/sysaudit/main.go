package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sysaudit/sysaudit/internal/app"
	"github.com/sysaudit/sysaudit/internal/config"
	"github.com/sysaudit/sysaudit/internal/llm"
	"github.com/sysaudit/sysaudit/internal/report"
	"github.com/sysaudit/sysaudit/internal/util"
)

var (
	version = "0.1.0"

	cfgFile    string
	verbose    bool
	skillNames []string
	outputPath string
	formatName string
	noLLM      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "sysaudit",
		Short:   "AI-driven codebase quality analysis tool",
		Long:    `sysaudit runs pluggable analysis skills against a codebase, combining external static tools with selective generative deep analysis to produce a normalized set of findings.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: ~/.config/sysaudit/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	analyzeCmd := &cobra.Command{
		Use:   "analyze PATH",
		Short: "Analyze a codebase and report findings",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringSliceVarP(&skillNames, "skills", "s", nil, "Skills to run (default: all)")
	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVarP(&formatName, "format", "f", "markdown", "Output format: markdown, json")
	analyzeCmd.Flags().BoolVar(&noLLM, "no-llm", false, "Skip generative analysis (static tools only)")

	pullCmd := &cobra.Command{
		Use:   "pull",
		Short: "Download the configured model on the Ollama server",
		RunE:  runPull,
	}

	rootCmd.AddCommand(analyzeCmd, pullCmd, newSkillsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Verbose = verbose
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	repoPath := util.ExpandPath(args[0])
	if !util.DirExists(repoPath) {
		return fmt.Errorf("path is not a directory: %s", repoPath)
	}

	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	runner := app.NewRunner(cfg)
	result, err := runner.Run(cmd.Context(), app.Options{
		RepoPath: repoPath,
		Skills:   skillNames,
		Format:   format,
		UseLLM:   !noLLM,
		Persist:  outputPath == "",
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(result.Report), 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Printf("Report saved to: %s\n", outputPath)
		return nil
	}

	fmt.Println(result.Report)
	return nil
}

func runPull(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.LLM.Provider != "ollama" {
		return fmt.Errorf("model pull is only supported for the ollama provider, configured provider is %s", cfg.LLM.Provider)
	}

	client := llm.NewOllamaClient(cfg.LLM.BaseURL, cfg.LLM.Model, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
	defer client.Close()

	fmt.Printf("Pulling %s from %s...\n", cfg.LLM.Model, cfg.LLM.BaseURL)
	if err := client.Pull(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("Model ready.")
	return nil
}
