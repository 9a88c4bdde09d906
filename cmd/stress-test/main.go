// Command stress-test exercises the gateway under load. The default
// mode drives a running gateway with concurrent TCP frame producers and
// concurrent REST readers; -local instead hammers an in-process
// queue/pool/machine assembly and verifies exactly-once processing.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tkivisto/ecugate"
	"github.com/tkivisto/ecugate/pkg/messages"
)

type frame struct {
	ID    string            `json:"id"`
	ECUID string            `json:"ecuId"`
	Data  map[string]string `json:"data"`
}

type stressState struct {
	ecugate.BaseState
	name string
}

func (s *stressState) Name() string { return s.name }

type stats struct {
	sent     atomic.Int64
	failed   atomic.Int64
	requests atomic.Int64
	httpErrs atomic.Int64
}

func main() {
	var (
		local    = flag.Bool("local", false, "run the in-process queue/pool/machine stress instead of hitting a gateway")
		workers  = flag.Int("workers", 4, "pool workers (local mode)")
		tcpAddr  = flag.String("tcp", "localhost:8080", "gateway ingest address")
		httpAddr = flag.String("http", "localhost:8081", "gateway REST address")
		conns    = flag.Int("conns", 10, "concurrent TCP connections")
		perConn  = flag.Int("messages", 100, "frames per connection")
		interval = flag.Duration("interval", 10*time.Millisecond, "delay between frames")
		httpDur  = flag.Duration("http-duration", 10*time.Second, "REST load duration")
		httpRPS  = flag.Int("http-rps", 50, "REST requests per second")
	)
	flag.Parse()

	if *local {
		localStress(*workers, *conns, *perConn)
		return
	}

	fmt.Println("=== ECU gateway stress test ===")
	fmt.Printf("TCP:  %d connections, %d frames each, %v interval\n", *conns, *perConn, *interval)
	fmt.Printf("HTTP: %v at %d req/s\n\n", *httpDur, *httpRPS)

	var st stats
	var wg sync.WaitGroup

	start := time.Now()

	wg.Add(1)
	go func() {
		defer wg.Done()
		tcpLoad(*tcpAddr, *conns, *perConn, *interval, &st)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		httpLoad(*httpAddr, *httpDur, *httpRPS, &st)
	}()

	wg.Wait()
	elapsed := time.Since(start)

	sent := st.sent.Load()
	failed := st.failed.Load()
	requests := st.requests.Load()
	httpErrs := st.httpErrs.Load()

	fmt.Println("\n=== summary ===")
	fmt.Printf("frames sent:    %d (%.0f/s)\n", sent, float64(sent)/elapsed.Seconds())
	fmt.Printf("frames failed:  %d\n", failed)
	fmt.Printf("http requests:  %d\n", requests)
	fmt.Printf("http failures:  %d\n", httpErrs)
	if sent+failed > 0 {
		fmt.Printf("frame success:  %.2f%%\n", 100*float64(sent)/float64(sent+failed))
	}
}

// localStress bursts producers*perProducer messages through a pool of
// the given size, with a processor that drives a two-state machine, and
// verifies every message was processed exactly once.
func localStress(workers, producers, perProducer int) {
	fmt.Println("=== in-process stress test ===")
	fmt.Printf("%d workers, %d producers x %d messages\n\n", workers, producers, perProducer)

	metrics := &ecugate.BasicMetrics{}
	rt := ecugate.NewRuntime(workers, metrics)

	rt.Machine.AddState("idle", &stressState{name: "idle"})
	rt.Machine.AddState("busy", &stressState{name: "busy"})
	rt.Machine.AddTransition("idle", "work", "busy", nil)
	rt.Machine.AddTransition("busy", "work", "busy", nil)
	rt.Machine.SetInitialState("idle")

	var processed atomic.Int64
	rt.SetProcessor(func(msg ecugate.Message) {
		processed.Add(1)
		rt.Machine.TriggerEvent("work", msg)
	})

	start := time.Now()
	rt.Start()

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				rt.Queue.Enqueue(messages.NewECUData("", fmt.Sprintf("stress-%03d", id), map[string]string{
					"sequence": fmt.Sprintf("%d", i),
				}))
			}
		}(p)
	}
	wg.Wait()

	rt.Stop() // drains the queue
	elapsed := time.Since(start)

	want := int64(producers * perProducer)
	got := processed.Load()
	snap := metrics.Snapshot()

	fmt.Printf("processed:   %d/%d (%.0f msg/s)\n", got, want, float64(got)/elapsed.Seconds())
	fmt.Printf("transitions: %d\n", snap.Transitions)
	fmt.Printf("avg latency: %v\n", snap.AvgProcessTime)

	if got != want || snap.MessagesProcessed != want {
		fmt.Fprintf(os.Stderr, "FAIL: expected every message processed exactly once\n")
		os.Exit(1)
	}
	fmt.Println("OK: exactly-once processing verified")
}

func tcpLoad(addr string, conns, perConn int, interval time.Duration, st *stats) {
	var wg sync.WaitGroup
	wg.Add(conns)

	for c := 0; c < conns; c++ {
		go func(id int) {
			defer wg.Done()

			conn, err := net.Dial("tcp", addr)
			if err != nil {
				st.failed.Add(int64(perConn))
				return
			}
			defer conn.Close()

			enc := json.NewEncoder(conn)
			ecuID := fmt.Sprintf("stress-%03d", id)

			for i := 0; i < perConn; i++ {
				f := frame{
					ID:    uuid.NewString(),
					ECUID: ecuID,
					Data: map[string]string{
						"sequence": fmt.Sprintf("%d", i),
						"value":    fmt.Sprintf("%d", i*id),
					},
				}
				if err := enc.Encode(f); err != nil {
					st.failed.Add(1)
					return
				}
				st.sent.Add(1)
				time.Sleep(interval)
			}
		}(c)
	}

	wg.Wait()
}

func httpLoad(addr string, duration time.Duration, rps int, st *stats) {
	if rps <= 0 || duration <= 0 {
		return
	}

	client := &http.Client{Timeout: 2 * time.Second}
	paths := []string{"/health", "/api/ecus", "/api/data"}

	ticker := time.NewTicker(time.Second / time.Duration(rps))
	defer ticker.Stop()
	deadline := time.Now().Add(duration)

	for i := 0; time.Now().Before(deadline); i++ {
		<-ticker.C

		st.requests.Add(1)
		resp, err := client.Get("http://" + addr + paths[i%len(paths)])
		if err != nil {
			st.httpErrs.Add(1)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			st.httpErrs.Add(1)
		}
	}
}
