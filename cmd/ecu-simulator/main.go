// Command ecu-simulator generates realistic frames from four simulated
// vehicle ECUs (engine, transmission, brake, battery) and streams them
// to a gateway as newline-delimited JSON over TCP.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
)

type frame struct {
	ID    string            `json:"id"`
	ECUID string            `json:"ecuId"`
	Data  map[string]string `json:"data"`
}

type generator func(rng *rand.Rand) map[string]string

var generators = map[string]generator{
	"engine": func(rng *rand.Rand) map[string]string {
		return map[string]string{
			"rpm":               fmt.Sprintf("%d", 800+rng.Intn(5200)),
			"temperature":       fmt.Sprintf("%.1f", 75+rng.Float64()*30),
			"pressure":          fmt.Sprintf("%.2f", 0.8+rng.Float64()*0.7),
			"throttle_position": fmt.Sprintf("%.1f", rng.Float64()*100),
		}
	},
	"transmission": func(rng *rand.Rand) map[string]string {
		return map[string]string{
			"gear":        fmt.Sprintf("%d", rng.Intn(7)),
			"speed":       fmt.Sprintf("%.1f", rng.Float64()*120),
			"temperature": fmt.Sprintf("%.1f", 60+rng.Float64()*30),
		}
	},
	"brake": func(rng *rand.Rand) map[string]string {
		return map[string]string{
			"pressure":   fmt.Sprintf("%.1f", rng.Float64()*100),
			"abs_active": fmt.Sprintf("%t", rng.Intn(10) == 0),
		}
	},
	"battery": func(rng *rand.Rand) map[string]string {
		return map[string]string{
			"voltage":         fmt.Sprintf("%.2f", 11.5+rng.Float64()*3),
			"current":         fmt.Sprintf("%.1f", -20+rng.Float64()*60),
			"temperature":     fmt.Sprintf("%.1f", 15+rng.Float64()*30),
			"state_of_charge": fmt.Sprintf("%.1f", 20+rng.Float64()*80),
		}
	},
}

func main() {
	var (
		addr     = flag.String("addr", "localhost:8080", "gateway ingest address")
		interval = flag.Duration("interval", time.Second, "delay between rounds of frames")
		count    = flag.Int("count", 0, "rounds to send (0 = until interrupted)")
	)
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Printf("connected to gateway at %s\n", *addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	enc := json.NewEncoder(conn)

	sent := 0
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for round := 1; ; round++ {
		for ecuID, gen := range generators {
			f := frame{
				ID:    fmt.Sprintf("%s-%06d", ecuID, round),
				ECUID: ecuID,
				Data:  gen(rng),
			}
			// Encoder writes a trailing newline, which is exactly the
			// framing the gateway expects.
			if err := enc.Encode(f); err != nil {
				fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
				os.Exit(1)
			}
			sent++
		}

		if *count > 0 && round >= *count {
			break
		}

		select {
		case <-stop:
			fmt.Printf("\ninterrupted after %d frames\n", sent)
			return
		case <-ticker.C:
		}
	}

	fmt.Printf("sent %d frames\n", sent)
}
