// Package main is the entrypoint for the gateway.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/restrpc/gateway/internal/server"
	"github.com/restrpc/gateway/internal/services"
	"github.com/restrpc/gateway/pkg/registry"
)

const usage = `Usage: gateway [command]

Commands:
  (default)    Start the gateway (HTTP API, dispatch, discovery).
  check [file] Compile the service definitions without starting the server.
               Optional file overrides GATEWAY_SERVICES_FILE.
  help         Show this message.

Environment: GATEWAY_HTTP_ADDR, GATEWAY_BASE_URL, GATEWAY_SERVICES_FILE,
AUTH_MODE, DATABASE_URL, COMMS_URL. See README for the full list.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "check":
		file := ""
		if len(args) > 1 {
			file = args[1]
		}
		if err := runCheck(file); err != nil {
			log.Fatalf("gateway check: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "":
		// fall through to server
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("gateway: fatal error: %v", err)
	}
}

// runCheck compiles the definitions file against the built-in handlers and
// reports what would be served.
func runCheck(file string) error {
	defs, err := registry.LoadDefinitions(file)
	if err != nil {
		return err
	}
	snap, err := registry.BuildSnapshot(defs, services.Handlers(), registry.BuildOptions{})
	if err != nil {
		return err
	}

	fmt.Printf("definitions OK (version %s)\n", snap.Version)
	for apiVersion, vdef := range defs.APIVersions {
		catalog, _ := snap.Catalog(apiVersion)
		fmt.Printf("  %s: %d services\n", apiVersion, len(vdef.Services))
		for _, name := range catalog.ServiceNames() {
			service, _ := catalog.Service(name)
			fmt.Printf("    %s: %v\n", name, service.ActionNames())
		}
	}
	return nil
}
