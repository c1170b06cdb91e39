package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmaster/todo/cmd/api/commands"
)

// @title Todo API
// @version 1.0
// @description Personal task manager: tasks, lifecycle transitions, filtered and searched views.

// @contact.name Todo Support
// @contact.url https://github.com/taskmaster/todo

// @license.name MIT
// @license.url https://github.com/taskmaster/todo/blob/main/LICENSE

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:   "todo",
		Short: "Todo task manager",
		Long:  `Todo keeps a personal task list: create tasks, complete them, move them to the bin and back, and search or filter the list.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewTokenCommand())
	rootCmd.AddCommand(commands.NewShellCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
