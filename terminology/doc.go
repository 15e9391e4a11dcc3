// Package terminology is the entry point of the client. It connects to a
// FHIR terminology server and hands out handles for the resource types a
// terminology server serves: ValueSet, CodeSystem and ConceptMap.
//
// Example usage:
//
//	client, err := terminology.New("https://tx.fhir.org/r4")
//	if err != nil {
//	    return err
//	}
//
//	// Instance level: ValueSet/FHIR-version/$validate-code
//	ok, err := client.ValueSet("FHIR-version").Contains(ctx, coding)
//
//	// Type level: ValueSet/$expand with url and valueSetVersion
//	vs, err := client.ValueSetByURL("http://hl7.org/fhir/ValueSet/FHIR-version", "").Expand(ctx, nil)
//
//	// Other operations, e.g. CodeSystem/$lookup
//	out, err := client.Invoke(ctx, "CodeSystem", "", "$lookup", in)
package terminology
