// Package transport defines the hlckv gRPC services and their wire format.
//
// Messages are encoded with protowire using protobuf field numbering, so the
// services can be described by a .proto file and called with any protobuf
// client, but no generated code is needed. Every message carries the
// sender's hybrid logical clock in Sent; receivers observe it before acting.
package transport
