package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:    "generate-docs",
		Short:  "Generate CLI documentation",
		Hidden: true,
		Long: `Generate markdown documentation for all sheetdash commands.
This command introspects the registered commands and their flags so the
reference always matches the binary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown := generateCommandsMarkdown(cmd.Root())

			if outputFile != "" {
				if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
				fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), markdown)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func generateCommandsMarkdown(root *cobra.Command) string {
	var sb strings.Builder

	sb.WriteString("# CLI Reference\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the command definitions.\n\n")

	commands := visibleCommands(root)

	sb.WriteString("## Table of Contents\n\n")
	for _, c := range commands {
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", c.CommandPath(), anchor(c.CommandPath())))
	}
	sb.WriteString("\n")

	sb.WriteString("## Global Flags\n\n")
	sb.WriteString(generateFlagsMarkdown(root.PersistentFlags()))

	for _, c := range commands {
		sb.WriteString(generateCommandMarkdown(c))
		sb.WriteString("\n")
	}

	return sb.String()
}

func visibleCommands(root *cobra.Command) []*cobra.Command {
	var commands []*cobra.Command
	for _, c := range root.Commands() {
		if c.Hidden || !c.IsAvailableCommand() {
			continue
		}
		commands = append(commands, c)
	}
	sort.Slice(commands, func(i, j int) bool {
		return commands[i].Name() < commands[j].Name()
	})
	return commands
}

func generateCommandMarkdown(c *cobra.Command) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## %s\n\n", c.CommandPath()))

	description := c.Long
	if description == "" {
		description = c.Short
	}
	if description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", description))
	}

	sb.WriteString(fmt.Sprintf("```\n%s\n```\n\n", c.UseLine()))

	if c.Example != "" {
		sb.WriteString(fmt.Sprintf("**Examples:**\n\n```\n%s\n```\n\n", c.Example))
	}

	if c.HasAvailableLocalFlags() {
		sb.WriteString(generateFlagsMarkdown(c.LocalFlags()))
	}

	return sb.String()
}

func generateFlagsMarkdown(flags *pflag.FlagSet) string {
	var sb strings.Builder

	sb.WriteString("**Flags:**\n")
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		sb.WriteString(fmt.Sprintf("- `--%s` (%s): %s", f.Name, f.Value.Type(), f.Usage))
		if f.DefValue != "" && f.DefValue != "[]" && f.DefValue != "false" {
			sb.WriteString(fmt.Sprintf(" (default `%s`)", f.DefValue))
		}
		sb.WriteString("\n")
	})
	sb.WriteString("\n")

	return sb.String()
}

func anchor(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", "-"))
}
