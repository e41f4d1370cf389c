package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/pktpeek/internal/config"
	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/proxy"
)

var (
	proxyListen   string
	proxyUpstream string
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Relay a live TCP connection and decode both directions",
	Long: `Listen for clients, connect each one to the upstream server and log every
chunk read in either direction. Client to server traffic is SEND.

Examples:
  pktpeek proxy --upstream game.example.com:13000
  pktpeek proxy --listen :9000 --upstream 10.0.0.5:13000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *current()
		if cmd.Flags().Changed("listen") {
			c.Proxy.Listen = proxyListen
		}
		if cmd.Flags().Changed("upstream") {
			c.Proxy.Upstream = proxyUpstream
		}
		return runProxy(cmd.Context(), &c)
	},
}

func init() {
	proxyCmd.Flags().StringVar(&proxyListen, "listen", "", "listen address (default proxy.listen)")
	proxyCmd.Flags().StringVar(&proxyUpstream, "upstream", "", "upstream server address")
}

func runProxy(ctx context.Context, c *config.GlobalConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.Proxy.Upstream == "" {
		return fmt.Errorf("%w: proxy needs an upstream (--upstream or proxy.upstream)", core.ErrConfigInvalid)
	}
	p, err := proxy.NewProxy(proxy.Config{Listen: c.Proxy.Listen, Upstream: c.Proxy.Upstream})
	if err != nil {
		return err
	}
	return runSession(ctx, c, p, sessionOptions{start: -1})
}
