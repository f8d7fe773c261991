// Package connectors groups implementations of the Connector interface
// for document sources. Each connector knows how to enumerate and fetch
// source documents from one kind of location.
//
// The filesystem connector is currently the only implementation.
package connectors
