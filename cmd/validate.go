package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/pktpeek/internal/config"
	"firestige.xyz/pktpeek/internal/render"
	"firestige.xyz/pktpeek/internal/tags"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration given with --config, apply defaults and check it
without decoding anything. The tag file, if any, is loaded too.

Examples:
  pktpeek validate -c pktpeek.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(current(), cmd.OutOrStdout())
	},
}

func runValidate(c *config.GlobalConfig, w io.Writer) error {
	if _, err := render.New(c.Output.Format, map[string]any{"indent": c.Output.Indent}); err != nil {
		return err
	}
	tagCount := 0
	if c.TagsFile != "" {
		registry, err := tags.Load(c.TagsFile)
		if err != nil {
			return err
		}
		tagCount = registry.Len()
	}

	opts := c.Decode.Options()
	fmt.Fprintf(w, "VALID: decode field_cap=%d strings=%d..%d fixed_widths=%v\n",
		opts.FieldCap, opts.MinStringLen, opts.MaxStringLen, opts.FixedWidths)
	fmt.Fprintf(w, "       output %s -> %s, %d tag name(s)\n",
		c.Output.Format, sinkConfig(c.Output.Sink).Name(), tagCount)
	if c.Session.MaxPerTag > 0 {
		fmt.Fprintf(w, "       rate limit %d per tag per %s\n", c.Session.MaxPerTag, c.Session.Window)
	}
	if c.Metrics.Enabled {
		fmt.Fprintf(w, "       metrics on %s%s\n", c.Metrics.Listen, c.Metrics.Path)
	}
	return nil
}
