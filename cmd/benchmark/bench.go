package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nulzo/model-registry/internal/cli"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	mockPort = 9091
	appPort  = 8081
	adminKey = "bench-admin-key"
)

var tagsResp = []byte(`{"models":[{"name":"llama3:latest"},{"name":"mistral:7b"},{"name":"nomic-embed-text:latest"}]}`)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 200, "Requests per second")
	target := flag.String("target", "list", "Endpoint to attack: list, public or fetch")
	seedCount := flag.Int("models", 50, "Models registered before the attack")
	chaos := flag.Bool("chaos", false, "Simulate random client disconnections")
	flag.Parse()

	go startMockOllama()

	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	configFile := "bench_config.yaml"
	if err := os.WriteFile(configFile, []byte(benchConfig), 0644); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	defer os.Remove(configFile)
	defer os.Remove("bench.db")

	fmt.Println("Starting application...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(), fmt.Sprintf("CONFIG_FILE=%s", configFile))

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	base := fmt.Sprintf("http://localhost:%d", appPort)
	waitForApp(base + "/health")
	registerModels(base, *seedCount)

	done := make(chan struct{})
	go monitorCPU(cmd.Process.Pid, done)

	method, url, body := attackTarget(base, *target)
	fmt.Printf("Running %s benchmark: %s duration, %d req/s\n", *target, *duration, *rate)

	targeter := vegeta.NewStaticTargeter(vegeta.Target{
		Method: method,
		URL:    url,
		Body:   body,
		Header: http.Header{
			"Content-Type":  []string{"application/json"},
			"Authorization": []string{"Bearer " + adminKey},
		},
	})

	if *chaos {
		cli.Warn(os.Stdout, "CHAOS MODE ENABLED: Starting Chaos Monkey sidecar...")
		concurrency := *rate / 10
		if concurrency < 5 {
			concurrency = 5
		}
		if concurrency > 50 {
			concurrency = 50
		}
		go startChaosMonkey(method, url, body, concurrency, done)
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()
	close(done)

	fmt.Println(cli.Rule())
	cli.Field(os.Stdout, "99th percentile", metrics.Latencies.P99)
	cli.Field(os.Stdout, "Mean", metrics.Latencies.Mean)
	cli.Field(os.Stdout, "Max", metrics.Latencies.Max)
	cli.Field(os.Stdout, "Success", fmt.Sprintf("%.2f%%", metrics.Success*100))
	cli.Field(os.Stdout, "Throughput", fmt.Sprintf("%.2f req/s", metrics.Throughput))
	fmt.Println(cli.Rule())

	if len(metrics.Errors) > 0 {
		cli.Warn(os.Stdout, "Error Set (first 5 unique):")

		unique := make(map[string]bool)
		for _, msg := range metrics.Errors {
			if len(unique) == 5 {
				break
			}
			if !unique[msg] {
				fmt.Println(msg)
				unique[msg] = true
			}
		}
	}
}

func attackTarget(base, name string) (string, string, []byte) {
	switch name {
	case "public":
		return http.MethodGet, base + "/api/v1/models", nil
	case "fetch":
		body := fmt.Sprintf(`{"api_type":"ollama","url":"http://localhost:%d"}`, mockPort)
		return http.MethodPost, base + "/api/v1/admin/models/fetch", []byte(body)
	default:
		return http.MethodGet, base + "/api/v1/admin/models?hide_defaults=false", nil
	}
}

// registerModels fills the catalog so listings have something to serialize.
func registerModels(base string, n int) {
	client := &http.Client{Timeout: 5 * time.Second}
	for i := 0; i < n; i++ {
		payload := fmt.Sprintf(`{"api_type":"openai","model_id":"bench-model-%d","url":"http://localhost:%d/v1"}`, i, mockPort)
		req, _ := http.NewRequest(http.MethodPost, base+"/api/v1/admin/models", bytes.NewReader([]byte(payload)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+adminKey)

		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("Failed to register model: %v", err)
		}
		resp.Body.Close()
	}
	fmt.Printf("Registered %d models\n", n)
}

func startChaosMonkey(method, url string, body []byte, concurrency int, done chan struct{}) {
	fmt.Printf("Starting Chaos Monkey with %d concurrent disrupters (random disconnects 1-200ms)\n", concurrency)
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			client := &http.Client{}

			for {
				select {
				case <-done:
					return
				default:
					timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond

					ctx, cancel := context.WithTimeout(context.Background(), timeout)
					req, _ := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
					req.Header.Set("Content-Type", "application/json")
					req.Header.Set("Authorization", "Bearer "+adminKey)

					resp, err := client.Do(req)
					if err == nil {
						resp.Body.Close()
					}
					cancel()

					time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()
}

func startMockOllama() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(tagsResp)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	_ = http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux)
}

func monitorCPU(pid int, done chan struct{}) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	fmt.Printf("%-10s %-10s\n", "Time", "CPU(%)")
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "%cpu").Output()
			if err != nil {
				continue
			}
			lines := strings.Split(strings.TrimSpace(string(out)), "\n")
			if len(lines) < 2 {
				continue
			}
			cpu, _ := strconv.ParseFloat(strings.TrimSpace(lines[1]), 64)
			fmt.Printf("%-10s %-10.2f\n", time.Now().Format("15:04:05"), cpu)
		}
	}
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("App timed out")
}

var benchConfig = fmt.Sprintf(`
server:
  port: "%d"
  env: production
  admin_keys: ["%s"]
rate_limit:
  requests_per_second: 0
log:
  level: "error"
database:
  driver: sqlite
  path: "bench.db"
`, appPort, adminKey)
