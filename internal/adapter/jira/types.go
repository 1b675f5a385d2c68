package jira

// User is the authenticated account returned by /rest/api/3/myself
type User struct {
	AccountID    string `json:"accountId"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
	Active       bool   `json:"active"`
}

// Attachment is one entry of an issue's fields.attachment list
type Attachment struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Thumbnail string `json:"thumbnail,omitempty"`
	MimeType  string `json:"mimeType"`
	Size      int64  `json:"size"`
	Created   string `json:"created"`
}

// issueResponse is the subset of the issue resource the exporter reads
type issueResponse struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary    string       `json:"summary"`
		Attachment []Attachment `json:"attachment"`
	} `json:"fields"`
}
