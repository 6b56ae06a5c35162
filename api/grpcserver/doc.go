// Package grpcserver exposes the document service as rcud.v1.Snapshots and
// provides a client for it.
package grpcserver
