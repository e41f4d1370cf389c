package cmd

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktpeek/internal/config"
	"firestige.xyz/pktpeek/internal/core"
)

func TestRunDecode_Args(t *testing.T) {
	var buf bytes.Buffer
	err := runDecode(context.Background(),
		[]string{"0a 75 73 65 72 00", "< 0b 01"},
		nil, &buf, decodeOptions{dir: core.DirSend, start: -1})

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "PACKET DEBUG SESSION")
	assert.Contains(t, out, "  Log file: stdout")
	assert.Contains(t, out, ` SEND #1 |`)
	assert.Contains(t, out, `       [001] char[5]: "user"`)
	assert.Contains(t, out, ` RECV #2 |`)
	assert.Contains(t, out, "SESSION END - SEND: 1 packets | RECV: 1 packets")
}

func TestRunDecode_Stdin(t *testing.T) {
	stdin := strings.NewReader("# dump\n0a 2a 00 00 00\n\n05\n")
	var buf bytes.Buffer

	err := runDecode(context.Background(), nil, stdin, &buf, decodeOptions{dir: core.DirRecv, start: -1})

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "       [001] DWORD: 42 (0x0000002A)")
	assert.Contains(t, out, "| (empty)")
	assert.Contains(t, out, "SEND: 0 packets | RECV: 2 packets")
}

func TestRunDecode_FixedStartAndJSON(t *testing.T) {
	var buf bytes.Buffer

	err := runDecode(context.Background(), []string{"01 02"}, nil, &buf,
		decodeOptions{dir: core.DirSend, start: 0, format: "json"})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `       {"offset":0,"kind":"uint16","width":2,"value":513}`)
}

func TestRunDecode_Errors(t *testing.T) {
	err := runDecode(context.Background(), []string{"0a0"}, nil, &bytes.Buffer{}, decodeOptions{start: -1})
	assert.True(t, errors.Is(err, core.ErrInvalidHex), "got %v", err)

	err = runDecode(context.Background(), []string{"0a"}, nil, &bytes.Buffer{}, decodeOptions{start: -1, format: "xml"})
	assert.True(t, errors.Is(err, core.ErrUnknownFormat), "got %v", err)
}

func writeCapture(t *testing.T) string {
	t.Helper()
	build := func(srcPort, dstPort uint16, payload []byte) []byte {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
			DstMAC:       net.HardwareAddr{6, 7, 8, 9, 10, 11},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP,
			SrcIP: net.IPv4(10, 0, 0, 1), DstIP: net.IPv4(10, 0, 0, 2)}
		udp := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)}
		require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)))
		return buf.Bytes()
	}

	path := filepath.Join(t.TempDir(), "session.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	for i, frame := range [][]byte{
		build(40000, 13000, []byte{0x0A, 'u', 's', 'e', 'r', 0x00}),
		build(13000, 40000, []byte{0x0B, 0x01}),
	} {
		ci := gopacket.CaptureInfo{Timestamp: ts.Add(time.Duration(i) * 20 * time.Millisecond), CaptureLength: len(frame), Length: len(frame)}
		require.NoError(t, w.WritePacket(ci, frame))
	}
	return path
}

func TestRunReplay_FileSink(t *testing.T) {
	c := config.Default()
	c.Replay.File = writeCapture(t)
	c.Replay.ServerPort = 13000
	c.Output.Sink.Type = "file"
	c.Output.Sink.Path = filepath.Join(t.TempDir(), "debug_packet.log")

	require.NoError(t, runReplay(context.Background(), c, nil, -1))

	data, err := os.ReadFile(c.Output.Sink.Path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "  Log file: "+c.Output.Sink.Path)
	assert.Contains(t, out, " SEND #1 | 07:08:09.000 |")
	assert.Contains(t, out, " RECV #2 | 07:08:09.020 |     20 |")
	assert.Contains(t, out, "SEND: 1 packets | RECV: 1 packets")
}

func TestRunReplay_Validation(t *testing.T) {
	c := config.Default()
	err := runReplay(context.Background(), c, &bytes.Buffer{}, -1)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	c.Replay.File = "x.pcap"
	c.Replay.ServerPort = 70000
	err = runReplay(context.Background(), c, &bytes.Buffer{}, -1)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestRunProxy_RequiresUpstream(t *testing.T) {
	err := runProxy(context.Background(), config.Default())
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	tagsPath := filepath.Join(dir, "tags.yaml")
	require.NoError(t, os.WriteFile(tagsPath, []byte("send: {10: LOGIN}\nrecv: {11: LOGIN_RESULT}\n"), 0o644))

	c := config.Default()
	c.TagsFile = tagsPath
	c.Session.MaxPerTag = 5
	var buf bytes.Buffer

	require.NoError(t, runValidate(c, &buf))

	out := buf.String()
	assert.Contains(t, out, "VALID: decode field_cap=16 strings=3..64")
	assert.Contains(t, out, "output text -> stdout, 2 tag name(s)")
	assert.Contains(t, out, "rate limit 5 per tag per 10s")
}

func TestRunValidate_BadTags(t *testing.T) {
	c := config.Default()
	c.TagsFile = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Error(t, runValidate(c, &bytes.Buffer{}))
}

func TestRunDecode_TagNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packet_header.h")
	require.NoError(t, os.WriteFile(path, []byte("enum {\n\tHEADER_CG_LOGIN = 0x0A,\n\tHEADER_GC_LOGIN_RESULT = 11,\n};\n"), 0o644))

	c := config.Default()
	c.TagsFile = path
	c.TagsWatch = true
	cfg = c
	t.Cleanup(func() { cfg = nil })

	var buf bytes.Buffer
	err := runDecode(context.Background(), []string{"> 0a 01 02", "< 0b 01"}, nil, &buf, decodeOptions{start: -1})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "|  10 (0x0A) HEADER_CG_LOGIN |")
	assert.Contains(t, buf.String(), "|  11 (0x0B) HEADER_GC_LOGIN_RESULT |")
}
