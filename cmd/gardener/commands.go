package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codebase-gardener/gardener/internal/errs"
)

var analyzeMode string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dir>",
	Short: "Ingest a codebase into a new project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := rt.Controller.Analyze(cmd.Context(), args[0], analyzeMode)
		if err != nil {
			return err
		}
		fmt.Printf("project %s (%s): %d files walked, %d chunks stored, tier=%s\n",
			result.Project.ID, result.Project.Name, result.FilesWalked, result.ChunksStored, result.Tier)
		return rt.Projects.SetActive(result.Project.ID)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "standard", "\"advanced\" also starts adapter training when the advanced tier is selected; the tier itself is chosen automatically")
}

var chatProjectID string

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask a question about the active (or named) project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID := chatProjectID
		if projectID == "" {
			active, err := rt.Projects.GetActive()
			if err != nil {
				return err
			}
			projectID = active.ID
		}

		if len(args) == 1 {
			return runOneShotChat(cmd.Context(), projectID, args[0])
		}
		return runChatREPL(cmd.Context(), projectID)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatProjectID, "project", "", "project id (defaults to the active project)")
}

func runOneShotChat(ctx context.Context, projectID, question string) error {
	result, err := rt.Controller.Chat(ctx, projectID, question)
	if err != nil {
		return err
	}
	fmt.Println(result.Answer)
	return nil
}

// runChatREPL implements an interactive session with `help` and `quit`
// built-in commands (§6).
func runChatREPL(ctx context.Context, projectID string) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Entering chat. Type `help` for commands, `quit` to exit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return nil
		}
		line := scanner.Text()
		switch line {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Println("Commands: help, quit. Anything else is sent as a question.")
			continue
		case "":
			continue
		}

		result, err := rt.Controller.Chat(ctx, projectID, line)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		fmt.Println(result.Answer)
	}
}

var exportPath string

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the active project's conversation history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		active, err := rt.Projects.GetActive()
		if err != nil {
			return err
		}
		messages, err := rt.Contexts.Recent(active.ID, 0)
		if err != nil {
			return err
		}

		out := os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return errs.Wrap(errs.KindUser, "cannot create export file", err)
			}
			defer f.Close()
			out = f
		}

		for _, m := range messages {
			fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Format("2006-01-02T15:04:05Z07:00"), m.Role, m.Content)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show runtime status: active project, cached contexts, loaded adapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("data root: %s\n", rt.Config.DataRoot)
		fmt.Printf("cached contexts: %d\n", rt.Contexts.InMemoryCount())
		fmt.Printf("loaded adapters: %v (%d bytes used)\n", rt.Loader.Active(), rt.Loader.UsedBytes())

		if active, err := rt.Projects.GetActive(); err == nil {
			fmt.Printf("active project: %s (%s)\n", active.ID, active.Name)
		} else {
			fmt.Println("active project: none")
		}
		return nil
	},
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Show availability of optional capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		for name, status := range rt.Controller.Features() {
			if status.Available {
				fmt.Printf("%-20s available\n", name)
			} else {
				fmt.Printf("%-20s unavailable: %s\n", name, status.Reason)
			}
		}
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List all registered projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range rt.Projects.List() {
			fmt.Printf("%s\t%s\t%s\t%s\n", p.ID, p.Name, p.TrainingStatus, p.SourcePath)
		}
		return nil
	},
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage individual projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <dir>",
	Short: "Alias for `analyze`",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := rt.Controller.Analyze(cmd.Context(), args[0], "standard")
		if err != nil {
			return err
		}
		fmt.Println(result.Project.ID)
		return nil
	},
}

var projectInfoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show one project's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := rt.Projects.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("id: %s\nname: %s\nsource: %s\nstatus: %s\ncreated: %s\nupdated: %s\n",
			p.ID, p.Name, p.SourcePath, p.TrainingStatus, p.CreatedAt, p.LastUpdated)
		return nil
	},
}

var projectSwitchCmd = &cobra.Command{
	Use:   "switch <id>",
	Short: "Set the active project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return rt.Projects.SetActive(args[0])
	},
}

var projectCleanupCmd = &cobra.Command{
	Use:   "cleanup <id>",
	Short: "Evict a project's cached context and loaded adapter from memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := rt.Contexts.Evict(args[0]); err != nil {
			return err
		}
		return rt.Loader.Unload(args[0])
	},
}

var projectHealthCmd = &cobra.Command{
	Use:   "health <id>",
	Short: "Check a project's registry entry and the registry's active-id invariant (on-disk files are not inspected)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := rt.Projects.Get(args[0])
		if err != nil {
			return err
		}
		if err := rt.Projects.Validate(); err != nil {
			return err
		}
		fmt.Printf("project %s: training_status=%s\n", p.ID, p.TrainingStatus)
		return nil
	},
}

func init() {
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectInfoCmd)
	projectCmd.AddCommand(projectSwitchCmd)
	projectCmd.AddCommand(projectCleanupCmd)
	projectCmd.AddCommand(projectHealthCmd)
}
