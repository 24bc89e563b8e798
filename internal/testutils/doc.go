// Package testutils provides shared test infrastructure.
//
// [NewTaskServer] fakes the server side of asyncview flows: the creation,
// status and download endpoints of one task. Integration tests (build tag
// "integration") also get a Minio container to exercise real bucket URLs.
package testutils
