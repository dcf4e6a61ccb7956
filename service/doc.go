// Package service owns the key tree and is the only place that mutates
// it. It serializes access, records every mutation as an outbox event,
// and keeps the store metrics current.
//
// It is decoupled from transports like gRPC.
package service
