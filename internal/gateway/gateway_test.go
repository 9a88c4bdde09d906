package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tkivisto/ecugate/pkg/messages"
)

func startTestGateway(t *testing.T, workers int, auditDB string) *Gateway {
	t.Helper()

	cfg := Config{
		TCPAddr:  "127.0.0.1:0",
		HTTPAddr: "127.0.0.1:0",
		Workers:  workers,
		AuditDB:  auditDB,
		LogLevel: "info",
	}
	g, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, g.Start())
	t.Cleanup(g.Stop)
	return g
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func httpGet(t *testing.T, g *Gateway, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://%s%s", g.RESTAddr(), path))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestGateway_EndToEnd(t *testing.T) {
	auditDB := filepath.Join(t.TempDir(), "audit.db")
	g := startTestGateway(t, 2, auditDB)

	require.Equal(t, "active", g.Machine().CurrentState())

	conn, err := net.Dial("tcp", g.IngestAddr())
	require.NoError(t, err)
	defer conn.Close()

	frames := []string{
		`{"id":"f1","ecuId":"engine","data":{"rpm":"3000","temperature":"90.5"}}`,
		`{"id":"f2","ecuId":"brake","data":{"pressure":"2.1"}}`,
		`not json at all`,
		`{"id":"f3","data":{"rpm":"1"}}`,
		`{"id":"f4","ecuId":"engine","data":{"rpm":"3100"}}`,
	}
	_, err = conn.Write([]byte(strings.Join(frames, "\n") + "\n"))
	require.NoError(t, err)

	// Three valid frames; the malformed one and the one missing ecuId
	// are dropped at ingestion.
	waitFor(t, func() bool { return g.Processed() >= 3 }, "frames processed")

	params, _, ok := g.Store().Latest("engine")
	require.True(t, ok)
	require.Equal(t, "3100", params["rpm"])

	status, body := httpGet(t, g, "/health")
	require.Equal(t, http.StatusOK, status)
	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	require.Equal(t, "active", health["state"])

	status, body = httpGet(t, g, "/api/ecus")
	require.Equal(t, http.StatusOK, status)
	var ecus map[string][]string
	require.NoError(t, json.Unmarshal(body, &ecus))
	require.Equal(t, []string{"brake", "engine"}, ecus["ecus"])

	status, body = httpGet(t, g, "/api/ecus/engine")
	require.Equal(t, http.StatusOK, status)
	var detail struct {
		ECUID string            `json:"ecuId"`
		Data  map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &detail))
	require.Equal(t, "engine", detail.ECUID)
	require.Equal(t, "3100", detail.Data["rpm"])

	status, _ = httpGet(t, g, "/api/ecus/ghost")
	require.Equal(t, http.StatusNotFound, status)

	status, body = httpGet(t, g, "/metrics")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(body), "ecugate_frames_received_total 3")
	require.Contains(t, string(body), "ecugate_frames_rejected_total 2")
}

func TestGateway_AuditTrail(t *testing.T) {
	auditDB := filepath.Join(t.TempDir(), "audit.db")
	g := startTestGateway(t, 1, auditDB)

	conn, err := net.Dial("tcp", g.IngestAddr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"id":"f1","ecuId":"engine","data":{"rpm":"3000"}}` + "\n"))
	require.NoError(t, err)
	waitFor(t, func() bool { return g.Processed() >= 1 }, "frame processed")

	g.Stop()

	// The trail survives the gateway; reopen and check.
	audit, err := OpenAudit(auditDB)
	require.NoError(t, err)
	defer audit.Close()

	n, err := audit.Count()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	entries, err := audit.Recent(1)
	require.NoError(t, err)
	require.Equal(t, "f1", entries[0].MessageID)
	require.Equal(t, "engine", entries[0].ECUID)
}

func TestGateway_ErrorEventFaultsMachine(t *testing.T) {
	g := startTestGateway(t, 1, "")

	g.queue.Enqueue(messages.NewEvent("e1", messages.SeverityError, "bus voltage lost"))
	waitFor(t, func() bool { return g.Machine().CurrentState() == "error" }, "machine in error")

	// Warnings do not fault the machine.
	require.True(t, g.Machine().TriggerEvent("recover", nil))
	g.queue.Enqueue(messages.NewEvent("e2", messages.SeverityWarning, "low fuel"))
	waitFor(t, func() bool { return g.Processed() >= 2 }, "events processed")
	require.Equal(t, "active", g.Machine().CurrentState())
}

func TestGateway_StopIdempotent(t *testing.T) {
	g := startTestGateway(t, 1, "")
	g.Stop()
	g.Stop()

	// Ports are released after Stop.
	_, err := net.DialTimeout("tcp", g.IngestAddr(), 200*time.Millisecond)
	require.Error(t, err)
}
