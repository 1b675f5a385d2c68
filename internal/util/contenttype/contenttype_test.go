package contenttype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	pdf := []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n")

	tests := []struct {
		name     string
		declared string
		payload  []byte
		want     string
	}{
		{name: "declared wins", declared: "application/pdf", payload: []byte("anything"), want: "application/pdf"},
		{name: "declared with params kept", declared: "text/plain; charset=utf-8", payload: nil, want: "text/plain; charset=utf-8"},
		{name: "generic is sniffed", declared: Generic, payload: pdf, want: "application/pdf"},
		{name: "missing is sniffed", declared: "", payload: pdf, want: "application/pdf"},
		{name: "nothing to sniff", declared: "", payload: nil, want: Generic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.declared, tt.payload))
		})
	}
}
