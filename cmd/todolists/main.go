package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmaster/todolists/cmd/todolists/commands"
)

// @title TodoLists API
// @version 1.0
// @description Nested to-do lists with per-user ownership

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:           "todolists",
		Short:         "TodoLists API server",
		Long:          `TodoLists serves per-user to-do lists whose tasks nest into subtasks of any depth.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
