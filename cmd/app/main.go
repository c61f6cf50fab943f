package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"ambu-dispatch/internal/config"
	dispatchservice "ambu-dispatch/internal/dispatch-service"
	fleetservice "ambu-dispatch/internal/fleet-service"
	"ambu-dispatch/internal/mylogger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: app <dispatch-service|fleet-service>")
		os.Exit(1)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mylog, err := mylogger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "dispatch-service":
		mylog = mylog.With("service", "dispatch-service")
		if err := dispatchservice.Execute(ctx, mylog, cfg); err != nil {
			mylog.Error("dispatch service exited with error", err)
			os.Exit(1)
		}
	case "fleet-service":
		mylog = mylog.With("service", "fleet-service")
		if err := fleetservice.Execute(ctx, mylog, cfg); err != nil {
			mylog.Error("fleet service exited with error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown service %q\n", os.Args[1])
		os.Exit(1)
	}
}
