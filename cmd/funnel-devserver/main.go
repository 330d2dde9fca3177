package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/funnelhq/funnel/pkg/devserver"
	"github.com/funnelhq/funnel/pkg/observability"
)

func main() {
	port := flag.String("port", "8080", "Port to listen on")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	password := flag.String("password", "secret", "Password accepted for the fixture users")
	flag.Parse()

	logger := observability.NewLogger(observability.ParseLevel(*logLevel), nil)
	server := devserver.New(devserver.Options{
		Logger:   logger,
		Password: *password,
	})

	log.Printf("Starting Funnel mock CRM backend on port %s...", *port)
	log.Println("Fixture accounts: admin@funnel.test, sales@funnel.test")
	if err := http.ListenAndServe(":"+*port, server.Handler()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
