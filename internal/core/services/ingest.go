package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driving"
	"github.com/korpora-labs/korpus-cli/internal/logger"
	"github.com/korpora-labs/korpus-cli/internal/providers"
)

// Ensure IngestionOrchestrator implements the interface.
var _ driving.IngestionService = (*IngestionOrchestrator)(nil)

// mailMetadataKeys is the fixed set of normalised mail header keys
// every chunk carries. Keys absent from the source default to nil so
// the payload schema stays uniform across file and mail documents.
var mailMetadataKeys = []string{"subject", "sender", "receiver", "cc", "date"}

// IngestionOrchestrator coordinates the ingestion pipeline: content
// addressing, incremental registry checks, extraction, chunking,
// embedding and vector upserts.
type IngestionOrchestrator struct {
	registry   driven.FileRegistry
	extractors driven.ExtractorRegistry
	chunker    driven.Chunker
	embedder   driven.EmbeddingService
	index      driven.VectorIndex
	docStore   driven.DocumentStore
	retry      providers.RetryConfig
}

// NewIngestionOrchestrator creates a new ingestion orchestrator.
func NewIngestionOrchestrator(
	registry driven.FileRegistry,
	extractors driven.ExtractorRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	docStore driven.DocumentStore,
) *IngestionOrchestrator {
	return &IngestionOrchestrator{
		registry:   registry,
		extractors: extractors,
		chunker:    chunker,
		embedder:   embedder,
		index:      index,
		docStore:   docStore,
		retry:      providers.DefaultRetry,
	}
}

// pendingDoc is one document that passed the registry check and moves
// through the batch stages.
type pendingDoc struct {
	src      domain.SourceDocument
	docID    string
	oldDocID string // previously indexed version to delete, if any

	doc    *domain.Document
	chunks []domain.Chunk
	failed bool
}

// IngestBatch runs the full pipeline over a batch of documents.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *IngestionOrchestrator) IngestBatch(ctx context.Context, docs []domain.SourceDocument) (*domain.BatchResult, error) {
	result := &domain.BatchResult{}

	// 1. Registry pass: compute doc_ids and drop unchanged versions.
	// An unchanged document causes zero index or registry mutations.
	regStart := time.Now()
	pending := make([]*pendingDoc, 0, len(docs))
	for i := range docs {
		src := docs[i]
		docID := src.ComputeDocID()
		if !o.registry.HasChanged(src.SourcePath, docID) {
			logger.Debug("Unchanged, skipping: %s", src.SourcePath)
			result.Skipped++
			continue
		}
		p := &pendingDoc{src: src, docID: docID}
		if entry, err := o.registry.Get(src.SourcePath); err == nil {
			p.oldDocID = entry.DocID
		}
		pending = append(pending, p)
	}
	result.Durations.Registry = time.Since(regStart)

	if len(pending) == 0 {
		return result, nil
	}

	// 2. Delete stale versions before inserting new ones, so a changed
	// document never has two versions indexed at once. A failed delete
	// fails the document without registering it: the registry still
	// points at the old version and the next run retries.
	for _, p := range pending {
		if p.oldDocID == "" {
			continue
		}
		if err := o.deleteVersion(ctx, p.oldDocID); err != nil {
			logger.Warn("Delete of stale version failed for %s: %v", p.src.SourcePath, err)
			p.failed = true
			result.Failed++
		}
	}

	// 3. Extract text from every surviving document.
	extractStart := time.Now()
	for _, p := range pending {
		if p.failed {
			continue
		}
		doc, err := o.extract(ctx, p)
		if err != nil {
			if errors.Is(err, domain.ErrUnsupportedType) {
				// Not registered, so the document is picked up once an
				// extractor exists for its type.
				logger.Debug("Skipping unsupported type %s: %s", p.src.MIMEType, p.src.SourcePath)
			} else {
				logger.Warn("Extraction failed for %s: %v", p.src.SourcePath, err)
			}
			p.failed = true
			result.Failed++
			continue
		}
		p.doc = doc
	}
	result.Durations.Extract = time.Since(extractStart)

	// 4. Chunk extracted documents. Documents without embeddable text
	// (empty extraction, error pseudo-documents) are registered as
	// not embedded instead of being retried every run.
	chunkStart := time.Now()
	for _, p := range pending {
		if p.failed || !p.embeddable() {
			continue
		}
		chunks, err := o.chunker.Chunk(ctx, p.doc)
		if err != nil {
			logger.Warn("Chunking failed for %s: %v", p.src.SourcePath, err)
			p.failed = true
			result.Failed++
			continue
		}
		for i := range chunks {
			o.tagChunk(&chunks[i], p)
		}
		p.chunks = chunks
	}
	result.Durations.Chunk = time.Since(chunkStart)

	// 5. Embed all chunks of the batch in one call.
	embedStart := time.Now()
	if err := o.embedPending(ctx, pending); err != nil {
		// A batch-level embedding failure aborts this batch only: the
		// affected documents stay unregistered and retry next run.
		for _, p := range pending {
			if !p.failed {
				p.failed = true
				result.Failed++
			}
		}
		result.Durations.Embed = time.Since(embedStart)
		return result, fmt.Errorf("embed batch: %w", err)
	}
	result.Durations.Embed = time.Since(embedStart)

	// 6. Upsert all points, then commit registry entries. The registry
	// is written only after the index accepted the points; on upsert
	// failure the document is not registered and retries next run.
	upsertStart := time.Now()
	for _, p := range pending {
		if p.failed {
			continue
		}
		if err := o.commit(ctx, p); err != nil {
			logger.Warn("Ingestion failed for %s: %v", p.src.SourcePath, err)
			result.Failed++
			continue
		}
		result.Processed++
	}
	result.Durations.Upsert = time.Since(upsertStart)

	logger.Info("Batch done: %d processed, %d skipped, %d failed",
		result.Processed, result.Skipped, result.Failed)
	return result, nil
}

// IngestOne ingests a single document.
func (o *IngestionOrchestrator) IngestOne(ctx context.Context, doc domain.SourceDocument) error {
	result, err := o.IngestBatch(ctx, []domain.SourceDocument{doc})
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("ingest %s: document failed", doc.SourcePath)
	}
	return nil
}

// Reconcile removes registry entries and vector points for source
// paths the connector no longer reports, then sweeps index points
// whose doc_id is not registered at all (leftovers of earlier partial
// failures). A failed index deletion keeps the registry entry so the
// next reconcile retries it. Returns the number of removed documents.
func (o *IngestionOrchestrator) Reconcile(ctx context.Context, presentPaths map[string]struct{}) (int, error) {
	removed := 0
	var errs []error
	for _, path := range o.registry.AllPaths() {
		if _, ok := presentPaths[path]; ok {
			continue
		}
		entry, err := o.registry.Get(path)
		if err != nil {
			continue
		}
		if err := o.deleteVersion(ctx, entry.DocID); err != nil {
			logger.Warn("Reconcile: delete failed for %s: %v", path, err)
			errs = append(errs, fmt.Errorf("delete %s: %w", path, err))
			continue
		}
		if err := o.registry.Remove(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		logger.Info("Reconciled vanished source: %s", path)
		removed++
	}

	swept, err := o.sweepOrphans(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	return removed + swept, errors.Join(errs...)
}

// sweepOrphans deletes index points whose doc_id has no registry
// entry. These are left behind when a crash lands between upsert and
// registration; the document is re-ingested on the next run under a
// fresh set of point ids, stranding the old ones.
func (o *IngestionOrchestrator) sweepOrphans(ctx context.Context) (int, error) {
	indexed, err := o.index.ScanDocIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan index: %w", err)
	}

	registered := make(map[string]struct{})
	for _, path := range o.registry.AllPaths() {
		if entry, getErr := o.registry.Get(path); getErr == nil {
			registered[entry.DocID] = struct{}{}
		}
	}

	swept := 0
	var errs []error
	for docID := range indexed {
		if _, ok := registered[docID]; ok {
			continue
		}
		if err := o.deleteVersion(ctx, docID); err != nil {
			errs = append(errs, fmt.Errorf("sweep %s: %w", docID, err))
			continue
		}
		logger.Info("Swept orphaned index points for document %s", docID)
		swept++
	}
	return swept, errors.Join(errs...)
}

// extract runs the extractor registry and converts the outcome into a
// document. Extraction failures that exhausted every fallback stage
// produce an explicit error pseudo-document so the failure is visible
// in status output instead of silently retried forever.
func (o *IngestionOrchestrator) extract(ctx context.Context, p *pendingDoc) (*domain.Document, error) {
	res, err := o.extractors.Extract(ctx, &p.src)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailed) {
			return o.errorDocument(p, err), nil
		}
		return nil, err
	}

	metadata := map[string]any{}
	for k, v := range p.src.Metadata {
		metadata[k] = v
	}
	for k, v := range res.Metadata {
		metadata[k] = v
	}
	return &domain.Document{
		DocID:      p.docID,
		SourcePath: p.src.SourcePath,
		Title:      documentTitle(&p.src),
		Content:    res.Text,
		Extracted:  true,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	}, nil
}

// errorDocument builds the pseudo-document registered when every
// extraction stage failed.
func (o *IngestionOrchestrator) errorDocument(p *pendingDoc, cause error) *domain.Document {
	return &domain.Document{
		DocID:           p.docID,
		SourcePath:      p.src.SourcePath,
		Title:           documentTitle(&p.src),
		Extracted:       false,
		ExtractionError: cause.Error(),
		Metadata: map[string]any{
			"extraction_error": cause.Error(),
		},
		CreatedAt: time.Now(),
	}
}

// embedPending embeds every chunk of the batch in a single provider
// call and writes the vectors back onto the chunks.
func (o *IngestionOrchestrator) embedPending(ctx context.Context, pending []*pendingDoc) error {
	var texts []string
	for _, p := range pending {
		if p.failed {
			continue
		}
		for _, c := range p.chunks {
			texts = append(texts, c.Content)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := o.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: embedding count %d != chunk count %d",
			domain.ErrConsistency, len(vectors), len(texts))
	}

	i := 0
	for _, p := range pending {
		if p.failed {
			continue
		}
		for j := range p.chunks {
			p.chunks[j].Embedding = vectors[i]
			i++
		}
	}
	return nil
}

// commit upserts a document's points, saves the citation record and
// finally writes the registry entry. Ordering matters: the registry
// entry is the last write, so a crash mid-commit re-ingests rather
// than losing the document.
func (o *IngestionOrchestrator) commit(ctx context.Context, p *pendingDoc) error {
	embedded := p.embeddable() && len(p.chunks) > 0

	if embedded {
		points := make([]driven.Point, len(p.chunks))
		for i, c := range p.chunks {
			points[i] = driven.Point{
				ID:     c.ID,
				Vector: c.Embedding,
				Payload: map[string]any{
					"text":         c.Content,
					"doc_id":       c.DocID,
					"chunk_index":  c.Index,
					"start_offset": c.StartOffset,
					"metadata":     c.Metadata,
				},
			}
		}

		var upserted int
		err := providers.Retry(ctx, o.retry, "vector upsert", func(ctx context.Context) error {
			n, upErr := o.index.UpsertBatch(ctx, points)
			upserted = n
			return upErr
		})
		if err != nil {
			return fmt.Errorf("%w: upsert: %v", domain.ErrConsistency, err)
		}
		if upserted < len(points) {
			// Partial upserts would leave an incomplete document in
			// the index while the registry claims it is current.
			if _, delErr := o.index.DeleteByDocID(ctx, p.docID); delErr != nil {
				logger.Warn("Rollback of partial upsert failed for %s: %v", p.src.SourcePath, delErr)
			}
			return fmt.Errorf("%w: upserted %d of %d points", domain.ErrConsistency, upserted, len(points))
		}
	}

	if err := o.docStore.SaveDocument(ctx, p.doc); err != nil {
		logger.Warn("Citation record save failed for %s: %v", p.src.SourcePath, err)
	}

	entry := domain.RegistryEntry{
		SourcePath:   p.src.SourcePath,
		DocID:        p.docID,
		ContentHash:  p.docID,
		LastModified: p.src.ModTime,
		Embedded:     embedded,
		Metadata:     p.doc.Metadata,
	}
	if err := o.registry.Put(ctx, entry); err != nil {
		return fmt.Errorf("register %s: %w", p.src.SourcePath, err)
	}
	return nil
}

// deleteVersion removes a document version from the vector index and
// the citation store.
func (o *IngestionOrchestrator) deleteVersion(ctx context.Context, docID string) error {
	err := providers.Retry(ctx, o.retry, "vector delete", func(ctx context.Context) error {
		_, delErr := o.index.DeleteByDocID(ctx, docID)
		return delErr
	})
	if err != nil {
		return fmt.Errorf("%w: delete doc %s: %v", domain.ErrConsistency, docID, err)
	}
	if err := o.docStore.DeleteByDocID(ctx, docID); err != nil {
		logger.Warn("Citation record delete failed for %s: %v", docID, err)
	}
	return nil
}

// tagChunk injects the provenance fields every point payload carries.
// unique_ids are freshly generated by the chunker, so re-ingestion
// never reuses point ids.
func (o *IngestionOrchestrator) tagChunk(c *domain.Chunk, p *pendingDoc) {
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	c.Metadata["doc_id"] = p.docID
	c.Metadata["owner"] = p.src.Owner
	c.Metadata["source_path"] = p.src.SourcePath
	c.Metadata["filename"] = documentTitle(&p.src)
	c.Metadata["provider"] = p.src.Provider
	for _, key := range mailMetadataKeys {
		if _, ok := c.Metadata[key]; !ok {
			c.Metadata[key] = nil
		}
	}
}

// embeddable reports whether the pending document has text worth
// embedding.
func (p *pendingDoc) embeddable() bool {
	return p.doc != nil && p.doc.Extracted && len(p.doc.Content) > 0
}

func documentTitle(src *domain.SourceDocument) string {
	if src.IsMail() && src.AttachmentName != "" {
		return src.AttachmentName
	}
	if name, ok := src.Metadata["filename"].(string); ok && name != "" {
		return name
	}
	return filepath.Base(src.SourcePath)
}
