package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gmail-bulk-mcp",
		Short: "MCP server that sends single and bulk email through Gmail",
		Long: `gmail-bulk-mcp exposes email sending tools to AI assistants over the
Model Context Protocol:

  - send_single_email
  - send_multiple_emails (batched, paced between batches)
  - get_email_quota_status (static information, not live data)

Transports: streamable HTTP on /mcp, and optionally stdio (--stdio).`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate(`{{printf "gmail-bulk-mcp version %s\n" .Version}}`)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "gmail-bulk-mcp version %s\n", version)
		},
	}
}
