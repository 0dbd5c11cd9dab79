// Package endpoint invokes API operations described by an OpenAPI 2.0 or
// 3.x document at runtime, in place of generated per-endpoint methods.
//
// A Catalog is loaded from the document and maps each operationId to an
// Operation. Operation.Build turns string arguments into a client.Request,
// expanding the path template and placing query, header and cookie
// parameters:
//
//	cat, err := endpoint.LoadFile("petstore.yaml")
//	if err != nil {
//		return err
//	}
//	op, ok := cat.Lookup("getPetById")
//	if !ok {
//		return fmt.Errorf("unknown operation")
//	}
//	req, err := op.Build(map[string]string{"petId": "42"}, nil)
//	if err != nil {
//		return err
//	}
//	resp, err := c.Do(ctx, req)
//
// Only the parts of the document needed to build requests are read:
// servers, paths, operations, parameters and security requirements.
// Schemas are not interpreted.
package endpoint
