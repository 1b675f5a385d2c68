package contenttype

import (
	"mime"

	"github.com/gabriel-vasile/mimetype"
)

// Generic is sent by servers that do not know the type of a payload
const Generic = "application/octet-stream"

// Resolve returns the declared content type unless it is missing or generic,
// in which case the type is sniffed from the leading bytes of payload.
func Resolve(declared string, payload []byte) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != Generic {
			return declared
		}
	}
	if len(payload) == 0 {
		if declared != "" {
			return declared
		}
		return Generic
	}
	return mimetype.Detect(payload).String()
}
