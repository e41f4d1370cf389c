package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/source"
	"firestige.xyz/pktpeek/internal/source/hexinput"
)

var (
	decodeRecv   bool
	decodeStart  int
	decodeFormat string
)

var decodeCmd = &cobra.Command{
	Use:   "decode [hex...]",
	Short: "Decode hex messages and print a session to stdout",
	Long: `Decode one message per argument, or one per line of stdin when no
arguments are given. A leading > marks a SEND message and < a RECV message;
unmarked messages use --recv or default to SEND.

Examples:
  pktpeek decode "0a 75 73 65 72 00 2a 00 00 00"
  pktpeek decode --recv 0x0b,0x01
  pktpeek decode --start 0 --format json < dump.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := core.DirSend
		if decodeRecv {
			dir = core.DirRecv
		}
		return runDecode(cmd.Context(), args, os.Stdin, cmd.OutOrStdout(), decodeOptions{
			dir:    dir,
			start:  decodeStart,
			format: decodeFormat,
		})
	},
}

func init() {
	decodeCmd.Flags().BoolVar(&decodeRecv, "recv", false, "treat unmarked messages as RECV")
	decodeCmd.Flags().IntVar(&decodeStart, "start", -1, "fixed start offset, -1 detects the header")
	decodeCmd.Flags().StringVar(&decodeFormat, "format", "", "output format override (text, json)")
}

type decodeOptions struct {
	dir    core.Direction
	start  int
	format string
}

func runDecode(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, opts decodeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var src source.Source
	if len(args) == 0 {
		src = hexinput.NewReader("stdin", stdin, opts.dir)
	} else {
		pkts := make(hexinput.Packets, 0, len(args))
		for _, arg := range args {
			pkt, ok, err := hexinput.ParseLine(arg, opts.dir)
			if err != nil {
				return err
			}
			if ok {
				pkts = append(pkts, pkt)
			}
		}
		src = pkts
	}

	return runSession(ctx, current(), src, sessionOptions{
		stdout: stdout,
		start:  opts.start,
		format: opts.format,
	})
}
