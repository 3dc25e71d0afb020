package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harborfi/vaultguard/internal/crypto"
	"github.com/harborfi/vaultguard/internal/domain"
)

// Archiver implements domain.Archiver by querying the audit store for cold
// entries, serializing them to JSONL, and uploading the result to object
// storage under archive/audit/YYYY-MM.jsonl.
//
// Deletion of the archived rows from the primary store is intentionally NOT
// performed here; that is a separate, explicit step to be executed after the
// archive has been verified.
type Archiver struct {
	writer *Writer
	audit  domain.AuditStore
	seal   *crypto.Seal
}

// NewArchiver creates an Archiver that reads from audit and writes through
// writer. A nil seal disables integrity tags on uploaded archives.
func NewArchiver(writer *Writer, audit domain.AuditStore, seal *crypto.Seal) *Archiver {
	return &Archiver{writer: writer, audit: audit, seal: seal}
}

// ArchiveAudit uploads every audit entry created before the cutoff and
// records the archival itself in the audit log. It returns the number of
// archived entries.
func (a *Archiver) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.audit.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}

	path := archivePath("audit", before)
	if int64(len(buf)) >= minPartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
	}

	count := int64(len(entries))
	detail := map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}
	if a.seal != nil {
		detail["seal"] = a.seal.Sign(buf, before.Unix())
	}
	if err := a.audit.Log(ctx, "archive.audit", detail); err != nil {
		return count, fmt.Errorf("s3blob: archive audit log: %w", err)
	}
	return count, nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/audit/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
