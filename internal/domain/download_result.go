package domain

// DownloadResult represents the bytes retrieved for one resource.
// Ownership passes to the archive sink once returned.
type DownloadResult struct {
	// Name is the file name suggested for the archive
	Name string

	// Payload holds the complete response body
	Payload []byte

	// ContentType is the MIME type reported or sniffed for the payload
	ContentType string

	// Strategy names the cascade step that produced the payload
	Strategy string
}

// Size returns the payload length in bytes
func (r *DownloadResult) Size() int64 {
	return int64(len(r.Payload))
}
