// Package txclient is a client for the FHIR terminology operations
// ValueSet/$expand and ValueSet/$validate-code.
//
// The root package holds the types shared by every subpackage: the error
// taxonomy, OperationOutcome issues, the FHIR version table, client options
// and request metrics. Behavior lives in the subpackages.
//
// # Quick Start
//
//	import (
//	    tx "github.com/gofhir/txclient"
//	    "github.com/gofhir/txclient/params"
//	    "github.com/gofhir/txclient/terminology"
//	)
//
//	client, err := terminology.New("https://tx.fhir.org/r4",
//	    tx.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	vs := client.ValueSet("FHIR-version")
//
//	expanded, err := vs.Expand(ctx, params.NewMap().Set("count", 50))
//	ok, err := vs.Contains(ctx, r4.Coding{System: &system, Code: &code})
//
//	for coding, err := range vs.Codings(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(*coding.Code)
//	}
//
// # Packages
//
//   - params: Parameters resource codec (ordered map <-> value[x] tagged union)
//   - valueset: $expand, $validate-code, expansion traversal, membership
//   - rest: HTTP transport (rate limiting, tracing, OperationOutcome errors)
//   - terminology: client entry point, ValueSet handles by id or canonical URL
//   - worker: concurrent membership checks for many codings
//   - pkg/snomed: SNOMED CT coding helpers
//   - pkg/fhirpath: FHIRPath evaluation over responses
//
// # Errors
//
// Every failure is returned synchronously to the caller of the operation that
// triggered it. Match categories with errors.Is against the sentinel errors
// (ErrUnsupportedValueType, ErrDuplicateParameterName, ErrUnsupportedTermType,
// ErrOperationFailed) or extract details with errors.As.
package txclient
