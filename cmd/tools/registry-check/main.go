// cmd/tools/registry-check/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"spark-workers/internal/common/config"
	"spark-workers/internal/common/validation"
	"spark-workers/pkg/registry"
)

var (
	registryPath string
	configPath   string
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validateCmd.StringVar(&registryPath, "path", "configs/activity-registry.json", "Path to registry file")
	validateCmd.StringVar(&configPath, "config", "configs/config.yaml", "Worker config to cross-check")

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	listCmd.StringVar(&registryPath, "path", "configs/activity-registry.json", "Path to registry file")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkCmd.StringVar(&registryPath, "path", "configs/activity-registry.json", "Path to registry file")
	taskType := checkCmd.String("taskType", "", "Task type whose input schema is applied")
	varsFile := checkCmd.String("vars", "", "JSON file with job variables")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		err = validateRegistry()
	case "list":
		_ = listCmd.Parse(os.Args[2:])
		err = listActivities()
	case "check":
		_ = checkCmd.Parse(os.Args[2:])
		if *taskType == "" || *varsFile == "" {
			fmt.Println("Error: taskType and vars are required for check.")
			checkCmd.Usage()
			os.Exit(1)
		}
		err = checkVariables(*taskType, *varsFile)
	default:
		help()
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// validateRegistry compiles every input schema and reports task types that
// have no worker settings, and worker settings with no activity.
func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return err
	}
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}
	if _, err := validation.NewValidator(reg); err != nil {
		return err
	}

	var problems []string
	for _, a := range reg.Activities {
		if a.DisplayName == "" {
			problems = append(problems, fmt.Sprintf("%s: missing displayName", a.TaskType))
		}
		if len(a.ErrorCodes) == 0 {
			problems = append(problems, fmt.Sprintf("%s: no errorCodes declared", a.TaskType))
		}
	}

	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}
		for _, tt := range reg.TaskTypes() {
			if _, ok := cfg.Workers[tt]; !ok {
				problems = append(problems, fmt.Sprintf("%s: no entry under workers in %s", tt, configPath))
			}
		}
		for tt := range cfg.Workers {
			if _, ok := reg.Find(tt); !ok {
				problems = append(problems, fmt.Sprintf("%s: configured but not registered", tt))
			}
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("registry validation failed:\n  %s", strings.Join(problems, "\n  "))
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func listActivities() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return err
	}
	for _, a := range reg.Activities {
		fmt.Printf("%-20s %-16s timeout=%-4s retries=%d  %s\n",
			a.TaskType, a.Category, a.Timeout, a.Retries, strings.Join(a.ErrorCodes, ","))
	}
	return nil
}

func checkVariables(taskType, path string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return err
	}
	if _, ok := reg.Find(taskType); !ok {
		return fmt.Errorf("task type %q is not registered", taskType)
	}
	v, err := validation.NewValidator(reg)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read variables: %w", err)
	}
	var vars map[string]interface{}
	if err := json.Unmarshal(data, &vars); err != nil {
		return fmt.Errorf("decode variables: %w", err)
	}
	if err := v.Validate(taskType, vars); err != nil {
		return err
	}
	fmt.Printf("Variables are valid input for %s.\n", taskType)
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-check <command> [flags]

Commands:
  validate  Compile input schemas and cross-check worker config
  list      List registered activities
  check     Validate a job variables file against a task's input schema
  help      Show this help message

Examples:
  registry-check validate -path configs/activity-registry.json -config configs/config.yaml
  registry-check check -taskType match-grants -vars vars.json`)
}
