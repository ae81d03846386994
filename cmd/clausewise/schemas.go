package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clausewise/clausewise/internal/schema"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List registered extraction schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := schema.Load()
		if err != nil {
			return err
		}

		for _, name := range registry.Names() {
			desc, err := registry.Get(name)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", name)
			if desc.Description != "" {
				fmt.Printf("  %s\n", desc.Description)
			}
			for _, f := range desc.Fields {
				printField(f, 1)
			}
			fmt.Println()
		}
		return nil
	},
}

func printField(f schema.Field, depth int) {
	indent := strings.Repeat("  ", depth)
	required := "optional"
	if f.Required {
		required = "required"
	}
	switch f.Type {
	case schema.TypeEnum:
		fmt.Printf("%s%s: one of [%s] (%s)\n", indent, f.Name, strings.Join(f.Enum, ", "), required)
	default:
		fmt.Printf("%s%s: %s (%s)\n", indent, f.Name, f.Type, required)
	}
	if f.Type == schema.TypeObject {
		for _, nested := range f.Fields {
			printField(nested, depth+1)
		}
	}
	if f.Type == schema.TypeArray && f.Items != nil && f.Items.Type == schema.TypeObject {
		for _, nested := range f.Items.Fields {
			printField(nested, depth+1)
		}
	}
}
