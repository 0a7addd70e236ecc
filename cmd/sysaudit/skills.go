package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sysaudit/sysaudit/internal/app"
	"github.com/sysaudit/sysaudit/internal/skill"
)

func newSkillsCmd() *cobra.Command {
	skillsCmd := &cobra.Command{
		Use:   "skills",
		Short: "Manage analysis skills",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all available analysis skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			skills := app.NewRegistry().All()
			if len(skills) == 0 {
				fmt.Println("No skills available.")
				return nil
			}
			for _, s := range skills {
				fmt.Printf("%-16s v%-8s %s\n", s.Name(), s.Version(), s.Description())
			}
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate skill configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			allValid := true
			for _, s := range app.NewRegistry().All() {
				issues := skill.Validate(s)
				if len(issues) == 0 {
					fmt.Printf("%s: OK\n", s.Name())
					continue
				}
				allValid = false
				fmt.Printf("%s:\n", s.Name())
				for _, issue := range issues {
					fmt.Printf("  - %s\n", issue)
				}
			}
			if !allValid {
				return fmt.Errorf("some skills have issues")
			}
			return nil
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info NAME",
		Short: "Show detailed information about a skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := app.NewRegistry().Get(args[0])
			if !ok {
				return fmt.Errorf("skill not found: %s", args[0])
			}

			fmt.Printf("%s v%s\n\n%s\n", s.Name(), s.Version(), s.Description())
			fmt.Printf("\nStakeholders: %s\n", strings.Join(s.Stakeholders(), ", "))
			if tools := s.StaticTools(); len(tools) > 0 {
				fmt.Println("\nStatic tools:")
				for _, tool := range tools {
					fmt.Printf("  - %s\n", tool)
				}
			}
			if prompts := s.Prompts(); len(prompts) > 0 {
				fmt.Printf("\nPrompts: %d templates\n", len(prompts))
				for name := range prompts {
					fmt.Printf("  - %s\n", name)
				}
			}
			return nil
		},
	}

	skillsCmd.AddCommand(listCmd, validateCmd, infoCmd)
	return skillsCmd
}
