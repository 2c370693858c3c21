package domain

import "time"

// DocumentType is the kind of KYC document a vendor uploads.
type DocumentType string

// Document types.
const (
	DocPANCard        DocumentType = "pan_card"
	DocGSTCertificate DocumentType = "gst_certificate"
	DocBankStatement  DocumentType = "bank_statement"
	DocIDProof        DocumentType = "id_proof"
)

// ParseDocumentType reports whether s names a document type.
func ParseDocumentType(s string) (DocumentType, bool) {
	switch d := DocumentType(s); d {
	case DocPANCard, DocGSTCertificate, DocBankStatement, DocIDProof:
		return d, true
	}
	return "", false
}

var documentExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// DocumentExtension returns the file extension for an accepted content type.
func DocumentExtension(contentType string) (string, bool) {
	ext, ok := documentExtensions[contentType]
	return ext, ok
}

// VendorDocument is an uploaded KYC file.
type VendorDocument struct {
	ID          string       `json:"id"`
	VendorID    string       `json:"vendor_id"`
	DocType     DocumentType `json:"doc_type"`
	ObjectKey   string       `json:"-"`
	FileName    string       `json:"file_name"`
	ContentType string       `json:"content_type"`
	Size        int64        `json:"size"`
	CreatedAt   time.Time    `json:"created_at"`
}

// DocumentLink is a document with a short-lived download URL.
type DocumentLink struct {
	VendorDocument
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
