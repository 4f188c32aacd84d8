package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"dreamofone.ai/internal/sim/catalogs"
	"dreamofone.ai/internal/sim/laws"
)

var errInvalid = errors.New("catalog issues found")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load every catalog and report cross-reference problems",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
}

func loadCatalogs(cmd *cobra.Command) (*catalogs.Catalogs, error) {
	dir, _ := cmd.Flags().GetString("configs")
	c, err := catalogs.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	return c, nil
}

func runValidate(cmd *cobra.Command, _ []string) error {
	c, err := loadCatalogs(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "laws=%d roles=%d skills=%d text_surfaces=%d\n",
		c.Laws.Len(), c.Roles.Len(), c.Skills.Len(), c.TextSurfaces.Len())

	digests := c.Digests()
	names := make([]string, 0, len(digests))
	for n := range digests {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(out, "  %-14s %s\n", n, digests[n])
	}

	issues := c.Validate(laws.KnownDetector)
	if len(issues) == 0 {
		fmt.Fprintln(out, "OK")
		return nil
	}
	for _, is := range issues {
		fmt.Fprintf(out, "  ! %s\n", is)
	}
	return fmt.Errorf("%w: %d", errInvalid, len(issues))
}
