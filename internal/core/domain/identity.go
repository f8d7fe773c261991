package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// FileDocID derives the identifier for one version of a file from its
// path, size and modification time. The same triple always yields the
// same id; any change to the file yields a new one.
func FileDocID(sourcePath string, size int64, modTime time.Time) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%d", sourcePath, size, modTime.UTC().Unix()))
	return hex.EncodeToString(sum[:])
}

// MailDocID derives the identifier for a mail message or one of its
// attachments. Attachments of the same message get distinct ids.
func MailDocID(messageID, attachmentName string) string {
	var sum [32]byte
	if attachmentName == "" {
		sum = sha256.Sum256([]byte(messageID))
	} else {
		sum = sha256.Sum256(fmt.Appendf(nil, "%s|%s", messageID, attachmentName))
	}
	return hex.EncodeToString(sum[:])
}

// ComputeDocID returns the content-derived identifier for the document.
// The id doubles as the content hash: it changes exactly when the
// underlying content version changes, without a second full-content pass.
func (d *SourceDocument) ComputeDocID() string {
	if d.IsMail() {
		return MailDocID(d.MessageID, d.AttachmentName)
	}
	return FileDocID(d.SourcePath, d.Size, d.ModTime)
}
