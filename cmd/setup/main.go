// Command setup is an interactive wizard that configures the load test:
// it prompts for the connection settings, verifies the server and MongoDB
// are reachable, and writes the YAML config file the harness consumes.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"kampyn-loadtest/internal/config"
	"kampyn-loadtest/internal/otpstore"
)

const defaultConfigPath = "loadtest.yaml"

func main() {
	fmt.Println("KAMPYN Authentication Load Testing Setup")
	fmt.Println(strings.Repeat("=", 50))

	reader := bufio.NewReader(os.Stdin)
	cfg := config.Default()

	fmt.Println("\nConfiguration Setup")
	fmt.Println(strings.Repeat("=", 50))

	cfg.Server.BaseURL = promptString(reader,
		fmt.Sprintf("Enter server URL (default: %s): ", cfg.Server.BaseURL), cfg.Server.BaseURL)
	cfg.Mongo.URI = promptString(reader, "Enter MongoDB URI: ", cfg.Mongo.URI)
	for cfg.Mongo.URI == "" {
		fmt.Println("MongoDB URI is required")
		cfg.Mongo.URI = promptString(reader, "Enter MongoDB URI: ", "")
	}
	cfg.Test.Users = promptPositiveInt(reader, "Enter number of users to test (default: 1000): ", 1000)
	cfg.Test.Concurrency = promptPositiveInt(reader, "Enter max concurrent workflows (default: 50): ", 50)
	timeoutSecs := promptPositiveInt(reader, "Enter request timeout in seconds (default: 30): ", 30)
	cfg.Server.RequestTimeout = time.Duration(timeoutSecs) * time.Second

	fmt.Println("\nTesting connections...")
	ok := true
	if err := checkServer(cfg.Server.BaseURL); err != nil {
		fmt.Printf("Server connection failed: %v\n", err)
		ok = false
	} else {
		fmt.Println("Server connection successful")
	}
	if err := checkMongo(cfg); err != nil {
		fmt.Printf("MongoDB connection failed: %v\n", err)
		ok = false
	} else {
		fmt.Println("MongoDB connection successful")
	}

	if !ok {
		fmt.Println("\nConnection tests failed. Please check your configuration.")
		answer := promptString(reader, "Do you want to continue anyway? (y/n): ", "n")
		if strings.ToLower(answer) != "y" {
			os.Exit(1)
		}
	}

	if err := cfg.Save(defaultConfigPath); err != nil {
		fmt.Printf("Failed to write configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Configuration written to %s\n", defaultConfigPath)

	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("  Server URL: %s\n", cfg.Server.BaseURL)
	fmt.Printf("  MongoDB URI: %s\n", cfg.Mongo.URI)
	fmt.Printf("  Number of Users: %d\n", cfg.Test.Users)
	fmt.Printf("  Max Concurrent: %d\n", cfg.Test.Concurrency)
	fmt.Printf("  Request Timeout: %v\n", cfg.Server.RequestTimeout)

	fmt.Printf("\nSetup complete! Run 'loadtest -config %s' to start the test.\n", defaultConfigPath)
}

func promptString(reader *bufio.Reader, prompt, fallback string) string {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fallback
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback
	}
	return line
}

// promptPositiveInt re-prompts until it gets a positive integer or an empty
// line (which takes the default).
func promptPositiveInt(reader *bufio.Reader, prompt string, fallback int) int {
	for {
		fmt.Print(prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fallback
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return fallback
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Println("Please enter a valid number")
			continue
		}
		if n <= 0 {
			fmt.Println("Value must be positive")
			continue
		}
		return n
	}
}

// checkServer probes the user-list endpoint; any HTTP response means the
// server is reachable.
func checkServer(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/api/user/auth/list")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func checkMongo(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := otpstore.ConnectMongo(ctx, cfg.Mongo.URI,
		cfg.Mongo.AccountsDB, cfg.Mongo.UsersCollection,
		cfg.Mongo.OTPDB, cfg.Mongo.OTPCollection)
	if err != nil {
		return err
	}
	defer store.Close(ctx)
	return store.Ping(ctx)
}
