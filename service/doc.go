// Package service owns the served document and coordinates the core
// components around it: the RCU cell readers go through, the durable
// store, the version sequencer and the background reclamation and
// compaction jobs.
//
// It is transport agnostic; api/grpcserver adapts it to gRPC.
package service
