// Package connectors provides implementations of the Connector interface
// for content sources. Each connector knows how to list entries from a
// specific source type (notion, filesystem) and write sync status back.
//
// Connectors are registered with the ConnectorFactory at startup.
package connectors
