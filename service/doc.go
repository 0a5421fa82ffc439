// Package service is the one write entry point into the engine. It
// serializes commands onto the book, journals them first, and fans the
// resulting events out to the outbox, trade tape, metrics and market-data
// feed.
//
// Transports such as gRPC and the websocket feed sit on top of it.
package service
