// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"assistance-workflow/pkg/registry"
)

var catalogPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, validateCmd} {
		fs.StringVar(&catalogPath, "path", "configs/programs.json", "Path to program catalog")
	}

	code := addCmd.String("code", "", "Program code, used as the application service type (e.g., medical)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Medical Assistance)")
	description := addCmd.String("description", "", "Description")
	assistance := addCmd.String("assistanceTypes", "", "Comma-separated assistance types")
	inactive := addCmd.Bool("inactive", false, "Add the program without accepting applications")

	codeUpdate := updateCmd.String("code", "", "Program code to update")
	field := updateCmd.String("field", "", "Field to update (displayName, description, active, assistanceTypes, tags)")
	value := updateCmd.String("value", "", "New value for the field")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *code == "" || *displayName == "" {
			fmt.Println("Error: code and displayName are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		program := registry.Program{
			Code:        strings.ToLower(strings.TrimSpace(*code)),
			DisplayName: *displayName,
			Description: *description,
			Active:      !*inactive,
			Tags:        []string{},
		}
		if *assistance != "" {
			for _, s := range strings.Split(*assistance, ",") {
				if s = strings.TrimSpace(s); s != "" {
					program.AssistanceTypes = append(program.AssistanceTypes, s)
				}
			}
		}
		if err := addProgram(program); err != nil {
			fmt.Printf("Error adding program: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added program: %s\n", program.Code)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *codeUpdate == "" || *field == "" {
			fmt.Println("Error: code and field are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateProgram(*codeUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating program: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated program %s, field %s to %s\n", *codeUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		cat, err := registry.LoadCatalog(catalogPath)
		if err == nil {
			err = cat.Validate()
		}
		if err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalog validation passed. Found %d programs, %d active.\n", len(cat.Programs), len(cat.Active()))

	case "help":
		fallthrough
	default:
		help()
	}
}

func addProgram(p registry.Program) error {
	cat, err := registry.LoadCatalog(catalogPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		cat = registry.NewCatalog()
	}
	if err := cat.Add(p); err != nil {
		return err
	}
	return cat.Save(catalogPath)
}

func updateProgram(code, field, value string) error {
	cat, err := registry.LoadCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := cat.Update(code, field, value); err != nil {
		return err
	}
	return cat.Save(catalogPath)
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add an assistance program to the catalog
  update   Update a program's field
  validate Validate the catalog file
  help     Show this help message

Examples:
  registry-updater add -code medical -displayName "Medical Assistance" -assistanceTypes "hospital bill,medicine"
  registry-updater update -code educational -field active -value false
  registry-updater validate -path configs/programs.json`)
}
