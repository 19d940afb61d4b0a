// Package client implements a client for DAP servers. It requests objects
// over HTTP and decodes data+metadata responses into dap.Dataset values with
// the same reader the server uses for its function cache.
//
// The package focuses on:
//   - Building request URLs from dataset, object type and constraint
//   - Round-robin selection over several server endpoints with retries
//   - Turning error responses back into coded errors
//
// Key Components:
//
//   - NewDAPClient: Factory function that creates an IDAPClient for the
//     endpoints of a common.ClientConfig.
//
//   - IDAPClient.FetchText: Returns the body of a DAS, DDS, DDX or version
//     response.
//
//   - IDAPClient.FetchData: Requests a .dataddx response, gzip encoded if the
//     server supports it, and decodes the values of the selected variables.
//
// Usage Example:
//
//	config := common.DefaultClientConfig()
//	config.Endpoints = []string{"http://localhost:8080"}
//
//	c, _ := client.NewDAPClient(config)
//	defer c.Close()
//
//	ds, err := c.FetchData(ctx, "ocean/coads", "sst[0:10][0:10]")
//	if errors.Is(err, errors.NoSuchDataset) {
//	  ...
//	}
//
// Thread Safety:
//
//	The client is thread-safe and can be used concurrently. It uses atomic
//	operations for the round-robin counter.
package client
