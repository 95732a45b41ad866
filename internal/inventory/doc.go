// Package inventory holds the domain model for the phone inventory service:
// the device, scrape, and job status records, the collaborator interfaces
// implemented by the storage, queue, and upstream API packages, and the
// RisPort model-code translation table.
//
// Components depend on the interfaces declared here rather than concrete
// implementations, keeping the sync and scrape pipelines testable with
// in-memory fakes.
package inventory
