// Package domain contains the core business entities for Korpus:
// source documents handed over by connectors, extracted documents and
// their chunks, registry entries tracking ingestion state, and the
// transient types flowing through the query pipeline.
//
// The domain layer has no dependencies on adapters or external services.
package domain
