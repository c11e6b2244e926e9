// Command testserver runs the stub auth API. With -mongo-uri it persists
// OTPs into MongoDB so a harness pointed at the same database can complete
// the full flow; without it OTPs stay in memory and only the endpoints
// themselves can be exercised.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"kampyn-loadtest/internal/config"
	"kampyn-loadtest/internal/otpstore"
	"kampyn-loadtest/testserver"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	latency := flag.Duration("latency", 0, "artificial latency per request")
	failRate := flag.Float64("fail-rate", 0, "fraction of requests to fail (0.0-1.0)")
	mongoURI := flag.String("mongo-uri", "", "write OTPs to this MongoDB instead of memory")
	flag.Parse()

	var store otpstore.Store = otpstore.NewMemory()
	if *mongoURI != "" {
		defaults := config.Default()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongo, err := otpstore.ConnectMongo(ctx, *mongoURI,
			defaults.Mongo.AccountsDB, defaults.Mongo.UsersCollection,
			defaults.Mongo.OTPDB, defaults.Mongo.OTPCollection)
		if err == nil {
			err = mongo.Ping(ctx)
		}
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: connecting to MongoDB: %v\n", err)
			os.Exit(1)
		}
		store = mongo
	}

	server := testserver.NewServer(store)
	server.Latency = *latency
	server.FailureRate = *failRate

	fmt.Printf("Test auth server listening on %s (latency=%v, fail-rate=%.2f)\n",
		*addr, *latency, *failRate)
	if err := http.ListenAndServe(*addr, server.Handler()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
