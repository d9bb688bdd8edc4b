// Package cfapi defines the Cloud Foundry platform surface consumed by the
// deployment orchestrators: resource types for the v3 API and the scheduler
// service, the Client interface, error classification, and a generic
// pagination drain.
//
// The package deliberately stops at the collaborator boundary. Transport,
// TLS and authentication are the client implementation's concern; everything
// above it (pkg/deployer) depends only on the Client interface and on the
// error classes exposed here.
package cfapi
