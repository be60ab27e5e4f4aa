// Package registry implements the parser-registry maintenance commands.
package registry

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/S3ph1r/warroom-ingest/cmd/root"
	"github.com/S3ph1r/warroom-ingest/internal/registry"
)

// Cmd is the registry command group.
var Cmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and maintain the cached parser registry",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached parsers",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.Load(root.Cfg.Paths.Registry, root.Log)
		if err != nil {
			return err
		}
		entries := reg.List()
		if len(entries) == 0 {
			cmd.Println("registry is empty")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSUCCESSES\tCREATED\tLAST ERROR")
		for _, e := range entries {
			lastErr := "-"
			if e.Entry.LastError != nil {
				lastErr = e.Entry.LastError.Message
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
				e.Key, e.Entry.SuccessCount,
				e.Entry.CreatedAt.Format("2006-01-02"), lastErr)
		}
		return w.Flush()
	},
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate <broker> <doc-type> <fingerprint>",
	Short: "Remove a cached parser so the next ingest regenerates it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.Load(root.Cfg.Paths.Registry, root.Log)
		if err != nil {
			return err
		}
		broker, docType, fp := args[0], args[1], args[2]
		if _, ok := reg.Get(broker, docType, fp); !ok {
			return fmt.Errorf("no cached parser for %s", registry.Key(broker, docType, fp))
		}
		if err := reg.Invalidate(broker, docType, fp); err != nil {
			return err
		}
		cmd.Printf("invalidated %s\n", registry.Key(broker, docType, fp))
		return nil
	},
}

// Init wires the subcommands.
func Init() {
	Cmd.AddCommand(listCmd, invalidateCmd)
}
