package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/httpipe/packages/core/config"
	"github.com/abdul-hamid-achik/httpipe/packages/core/env"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a new httpipe project",
	Long: `Initialize a new httpipe project in the current or given directory.

This creates:
  - httpipe.yaml          - Configuration file
  - http-client.env.json  - Environments with their variables
  - example.http          - Example script

Examples:
  httpipe init
  httpipe init ./api --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleScript = `### Login
# Variables are rendered with Liquid and kept for the whole run.
@user = demo
POST {{baseUrl}}/login
Content-Type: application/json

{"username": "{{user}}", "password": "{{password}}"}

### Current user
# The previous response is available as context.
$assert: 200
@token = {{context.Json.token}}
GET {{baseUrl}}/me
Authorization: Bearer {{token}}

### Check the profile
$expect: context.Json.username == content.user
$jq: userId, .id
$debugging
`

func initCommand(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "httpipe.yaml")
	envFile := filepath.Join(dir, env.EnvironmentFiles[0])
	exampleFile := filepath.Join(dir, "example.http")

	if !forceInit {
		for _, f := range []string{configFile, envFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return exitErrorf(ExitUsageError, "file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.DefaultEnvironment = "dev"
	cfg.Timeout = "30s"
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	environments := map[string]map[string]string{
		"dev": {
			"baseUrl":  "http://localhost:3000",
			"password": "secret",
		},
		"staging": {
			"baseUrl":  "https://staging.api.example.com",
			"password": "",
		},
	}
	envJSON, _ := json.MarshalIndent(environments, "", "  ")
	if err := os.WriteFile(envFile, append(envJSON, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to create environment file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", envFile)

	if err := os.WriteFile(exampleFile, []byte(exampleScript), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nhttpipe project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'httpipe run example.http dev' to execute the example script.\n")

	return nil
}
