// Package main implements the txclient CLI, a command line front end for
// FHIR terminology servers.
//
// Usage:
//
//	txclient --server https://tx.fhir.org/r4 expand FHIR-version --count 10
//	txclient codes --url http://hl7.org/fhir/ValueSet/FHIR-version
//	txclient validate-code FHIR-version --system http://hl7.org/fhir/FHIR-version --code 4.0.1
//	txclient contains my-allergens --snomed "102263004 |Eggs (edible)|"
//	txclient expand FHIR-version --fhirpath "ValueSet.expansion.contains.code"
//
// Configuration is also read from TX_* environment variables and a .env file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
