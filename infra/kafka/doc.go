// Package kafka is the segmentio/kafka-go publisher for the outbox
// broadcaster.
package kafka
