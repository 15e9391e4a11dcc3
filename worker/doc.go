// Package worker runs many ValueSet membership checks in parallel.
//
// Each check is still a single $validate-code round trip; the package only
// bounds how many run at once and returns the answers in input order.
//
// Example usage:
//
//	vs := client.ValueSet("allergens")
//	batch := worker.NewBatch(vs, 4)
//
//	result := batch.Run(ctx, terms)
//	for _, r := range result.Results {
//	    if r.Error != nil {
//	        // Handle error
//	    }
//	    fmt.Println(r.Index, r.Member)
//	}
package worker
