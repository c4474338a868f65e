package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type leadPayload struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Source        string `json:"source"`
	Notes         string `json:"notes"`
}

func main() {
	targetURL := flag.String("url", "http://localhost:8080/api/webhooks/leads", "Inbound lead webhook URL")
	token := flag.String("token", "", "Agency receive token")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 100, "Requests per second limit")
	flag.Parse()

	if *token == "" {
		log.Fatal("-token is required")
	}

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var transportErrors atomic.Int64
	var mu sync.Mutex
	statuses := make(map[int]int64)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 10)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}

			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				id := uuid.NewString()
				body, _ := json.Marshal(leadPayload{
					CustomerName:  fmt.Sprintf("Load Test %s", id[:8]),
					CustomerEmail: fmt.Sprintf("lead-%s@example.com", id[:8]),
					CustomerPhone: "+55 11 90000-0000",
					Source:        "load-tester",
					Notes:         fmt.Sprintf("worker %d", workerID),
				})

				req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewReader(body))
				if err != nil {
					continue // Should not happen
				}
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("Authorization", "Bearer "+*token)

				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						transportErrors.Add(1)
					}
					continue
				}
				resp.Body.Close()

				mu.Lock()
				statuses[resp.StatusCode]++
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()

	codes := make([]int, 0, len(statuses))
	var total int64
	for code, n := range statuses {
		codes = append(codes, code)
		total += n
	}
	sort.Ints(codes)

	log.Println("Load test finished.")
	log.Printf("Total Responses: %d", total)
	for _, code := range codes {
		log.Printf("  %d %s: %d", code, http.StatusText(code), statuses[code])
	}
	log.Printf("Transport errors: %d", transportErrors.Load())
	log.Printf("Actual RPS: %.2f", float64(total)/duration.Seconds())
}
