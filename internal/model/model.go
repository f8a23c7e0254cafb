package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is a provider-assigned identifier. The provider encodes some ids as
// JSON numbers and others as strings, so both are accepted.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

type Instance struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

type Snapshot struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Action is the acknowledgement returned when an asynchronous operation
// such as snapshot creation is accepted. It does not mean the operation
// has finished.
type Action struct {
	ID           ID        `json:"id"`
	Status       string    `json:"status"`
	Type         string    `json:"type"`
	StartedAt    time.Time `json:"started_at"`
	ResourceID   ID        `json:"resource_id"`
	ResourceType string    `json:"resource_type"`
}

type Pages struct {
	First string `json:"first,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
	Last  string `json:"last,omitempty"`
}

type Links struct {
	Pages *Pages `json:"pages,omitempty"`
}

// NextPage returns the next page link or "" when the listing is exhausted.
// A missing links object counts as exhausted.
func (l *Links) NextPage() string {
	if l == nil || l.Pages == nil {
		return ""
	}
	return l.Pages.Next
}

type InstancesResponse struct {
	Instances []Instance `json:"droplets"`
	Links     *Links     `json:"links,omitempty"`
}

type SnapshotsResponse struct {
	Snapshots []Snapshot `json:"snapshots"`
	Links     *Links     `json:"links,omitempty"`
}

type ActionResponse struct {
	Action Action `json:"action"`
}

// CreateSnapshotRequest is the body of an instance action request.
type CreateSnapshotRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`
}
