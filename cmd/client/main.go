package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	clientapi "github.com/iudanet/chatrelay/internal/client/api"
	"github.com/iudanet/chatrelay/internal/client/cli"
	"github.com/iudanet/chatrelay/internal/client/keystore"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server base URL")
	dbPath := flag.String("db", defaultDBPath(), "Path to local keystore")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	store, err := keystore.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	client := clientapi.NewClient(*serverURL)
	cli.New(client, store).Run(context.Background(), args[0], args[1:])
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "chatrelay-client.db"
	}
	return filepath.Join(home, ".chatrelay", "client.db")
}

func printVersion() {
	fmt.Printf("Chatrelay Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
