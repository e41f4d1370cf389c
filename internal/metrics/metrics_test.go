package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/core/decoder"
)

func TestSessionObserver(t *testing.T) {
	var obs SessionObserver

	sendBefore := testutil.ToFloat64(PacketsTotal.WithLabelValues("SEND"))
	bytesBefore := testutil.ToFloat64(FieldsTotal.WithLabelValues("byte"))
	strBefore := testutil.ToFloat64(FieldsTotal.WithLabelValues("string"))
	truncBefore := testutil.ToFloat64(TruncatedTotal)
	suppBefore := testutil.ToFloat64(SuppressedTotal)

	res := decoder.Result{
		Start: 1,
		Fields: []decoder.Field{
			{Offset: 1, Kind: decoder.VariableString, Width: 5, Text: "user"},
			{Offset: 6, Kind: decoder.Byte, Width: 1, Uint: 7},
			{Offset: 7, Kind: decoder.Byte, Width: 1, Uint: 8},
		},
		Truncated: true,
		Trailing:  3,
	}
	obs.ObservePacket(core.DirSend, 11, res)
	obs.ObserveSuppressed(core.DirRecv, 0x0A)

	assert.Equal(t, sendBefore+1, testutil.ToFloat64(PacketsTotal.WithLabelValues("SEND")))
	assert.Equal(t, bytesBefore+2, testutil.ToFloat64(FieldsTotal.WithLabelValues("byte")))
	assert.Equal(t, strBefore+1, testutil.ToFloat64(FieldsTotal.WithLabelValues("string")))
	assert.Equal(t, truncBefore+1, testutil.ToFloat64(TruncatedTotal))
	assert.Equal(t, suppBefore+1, testutil.ToFloat64(SuppressedTotal))
}

func TestServerExposesMetrics(t *testing.T) {
	PacketsTotal.WithLabelValues("RECV").Inc()

	s := NewServer("127.0.0.1:0", "")
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	resp, err := http.Get("http://" + s.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pktpeek_packets_total{direction="RECV"}`)
}

func TestServerStopIdempotent(t *testing.T) {
	s := NewServer("127.0.0.1:0", "/m")
	assert.Nil(t, s.Addr())
	assert.NoError(t, s.Stop(context.Background()))

	require.NoError(t, s.Start())
	assert.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
	assert.Nil(t, s.Addr())
}

func TestFieldKindsPreRegistered(t *testing.T) {
	assert.GreaterOrEqual(t, testutil.CollectAndCount(FieldsTotal), len(decoder.Kinds()))
}
