package cmd

import (
	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "profile <domain>",
		Short: "Assembles a competitor profile for a domain",
		Long: `Fetches the domain's homepage, probes for about and blog pages, pulls a
few recent posts, and extracts contact, social, and technology signals.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := resolveEngine(cmd.Context())
			if err != nil {
				return err
			}
			renderMode, err := parseMode(mode)
			if err != nil {
				return err
			}
			return printJSON(eng.AssembleProfile(cmd.Context(), args[0], renderMode))
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "render mode for the homepage fetch")
	return cmd
}

func newBacklinksCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "backlinks <domain>",
		Short: "Discovers pages referring to a domain via an external web index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := resolveEngine(cmd.Context())
			if err != nil {
				return err
			}
			records := eng.DiscoverBacklinks(cmd.Context(), args[0], limit)
			return printJSON(records)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records to return (0 uses the configured default)")
	return cmd
}
