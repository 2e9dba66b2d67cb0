package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of a running server")
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	days := flag.Int("days", 90, "Width of the requested date range in days")
	flag.Parse()

	waitForApp(*baseURL + "/health")

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)
	window := fmt.Sprintf("start_date=%s&end_date=%s", start.Format("2006-01-02"), end.Format("2006-01-02"))

	urls := []string{
		fmt.Sprintf("%s/v1/analytics?group_by=ref_app&%s", *baseURL, window),
		fmt.Sprintf("%s/v1/analytics?group_by=tier&%s", *baseURL, window),
		fmt.Sprintf("%s/v1/top-users?group_by=ref_app&limit=25&%s", *baseURL, window),
		fmt.Sprintf("%s/v1/top-users?group_by=tier&filter_by=pro&%s", *baseURL, window),
	}

	// round-robin over the report and leaderboard endpoints
	var n atomic.Uint64
	targeter := func(t *vegeta.Target) error {
		t.Method = http.MethodGet
		t.URL = urls[int(n.Add(1)-1)%len(urls)]
		return nil
	}

	fmt.Printf("Running benchmark: %s duration, %d req/s, %d day range\n", *duration, *rate, *days)

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("Status codes:    ", metrics.StatusCodes)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")

		uniqueErrors := make(map[string]bool)
		count := 0
		for _, msg := range metrics.Errors {
			if !uniqueErrors[msg] && count < 5 {
				fmt.Println(msg)

				uniqueErrors[msg] = true
				count++
			}
		}
	}
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("App timed out")
}
