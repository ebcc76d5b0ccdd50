package record

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/drivevault/drivevault/internal/fault"
)

// Reserved index names linking every record into the logical storage
// tree. Their hashed values let deep operations reconstruct parent/child
// relations from the flat physical map alone.
const (
	IndexParentStorageID = "parentStorageID"
	IndexThisStorageID   = "thisStorageID"
)

// A Record is one logical key/value pair in persistence form. Key and
// Value are encrypted, Indexes lists the (hashed) index names whose
// values are carried in Index, and Signature covers key, value and all
// index values in index order.
type Record struct {
	Key       string            `json:"key"`
	Value     string            `json:"value"`
	Indexes   []string          `json:"indexes"`
	Signature string            `json:"signature"`
	Index     map[string]string `json:"index,omitempty"`
}

// Signature computes the tamper-evidence hash over r's key, value and
// index values in index order.
func (c *Codec) Signature(r *Record) string {
	var b strings.Builder
	b.WriteString(r.Key)
	b.WriteString(r.Value)
	for _, name := range r.Indexes {
		b.WriteString(r.Index[name])
	}
	return c.Hash(b.String())
}

// Finalize populates the two reserved tree indexes and the signature
// before persistence. Index names arrive pre-hashed because hashing them
// is deferred until the crypto context is ready.
func (c *Codec) Finalize(r *Record, hashedParentName, hashedThisName, parentID, thisID string) {
	r.Indexes = []string{hashedParentName, hashedThisName}
	if r.Index == nil {
		r.Index = make(map[string]string, 2)
	}
	r.Index[hashedParentName] = c.Hash(parentID)
	r.Index[hashedThisName] = c.Hash(thisID)
	r.Signature = c.Signature(r)
}

// Verify checks r's signature against its content. A mismatch means the
// record is corrupted, not merely missing.
func (c *Codec) Verify(r *Record) error {
	if c.Signature(r) != r.Signature {
		return fmt.Errorf("record: %w: signature mismatch", fault.ErrCorrupted)
	}
	return nil
}

// Marshal serialises r as JSON for the physical document.
func Marshal(r *Record) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("record: encode: %w", err)
	}
	return string(data), nil
}

// Unmarshal parses a serialised record.
func Unmarshal(s string) (*Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("record: decode: %w", err)
	}
	return &r, nil
}
