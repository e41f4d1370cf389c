package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/pktpeek/internal/config"
	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/source/pcapfile"
)

var (
	replayFile  string
	replayPort  int
	replayLimit int
	replayBPF   bool
	replayStart int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay TCP/UDP payloads from a capture file",
	Long: `Replay a pcap or pcapng capture into the configured session sink.
Payloads sent to --port are SEND, payloads from --port are RECV. Without a
port every payload is RECV.

Examples:
  pktpeek replay -f login.pcap --port 13000
  pktpeek replay -c pktpeek.yaml -f login.pcapng --limit 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *current()
		flags := cmd.Flags()
		if flags.Changed("file") {
			c.Replay.File = replayFile
		}
		if flags.Changed("port") {
			c.Replay.ServerPort = replayPort
		}
		if flags.Changed("limit") {
			c.Replay.Limit = replayLimit
		}
		if flags.Changed("bpf") {
			c.Replay.BPF = replayBPF
		}
		return runReplay(cmd.Context(), &c, nil, replayStart)
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "capture file (pcap or pcapng)")
	replayCmd.Flags().IntVarP(&replayPort, "port", "p", 0, "server port, 0 marks every payload RECV")
	replayCmd.Flags().IntVar(&replayLimit, "limit", 0, "max packets to replay, 0 = unlimited")
	replayCmd.Flags().BoolVar(&replayBPF, "bpf", true, "prefilter Ethernet frames by port")
	replayCmd.Flags().IntVar(&replayStart, "start", -1, "fixed start offset, -1 detects the header")
}

// runReplay writes to stdout when it is non-nil, otherwise to the configured sink.
func runReplay(ctx context.Context, c *config.GlobalConfig, stdout io.Writer, start int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.Replay.File == "" {
		return fmt.Errorf("%w: replay needs a capture file (-f or replay.file)", core.ErrConfigInvalid)
	}
	if c.Replay.ServerPort < 0 || c.Replay.ServerPort > 65535 {
		return fmt.Errorf("%w: server port %d out of range", core.ErrConfigInvalid, c.Replay.ServerPort)
	}

	src, err := pcapfile.NewSource(pcapfile.Config{
		Path:       c.Replay.File,
		ServerPort: uint16(c.Replay.ServerPort),
		BPF:        c.Replay.BPF,
		Limit:      c.Replay.Limit,
	})
	if err != nil {
		return err
	}
	return runSession(ctx, c, src, sessionOptions{stdout: stdout, start: start})
}
