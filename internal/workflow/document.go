package workflow

import (
	"fmt"
	"slices"
)

// AttachedDocument is a named reference to documents held by the external
// document store. It points at exactly one id or at one ordered id list;
// the constructors are the only way to set either.
type AttachedDocument struct {
	Key         string
	Description string

	singleID string
	idList   []string
}

// NewDocument references a single stored document.
func NewDocument(key, description, id string) (AttachedDocument, error) {
	if id == "" {
		return AttachedDocument{}, fmt.Errorf("workflow: attached document %q needs a document id", key)
	}
	return AttachedDocument{Key: key, Description: description, singleID: id}, nil
}

// NewDocumentList references an ordered list of stored documents.
func NewDocumentList(key, description string, ids []string) (AttachedDocument, error) {
	if len(ids) == 0 {
		return AttachedDocument{}, fmt.Errorf("workflow: attached document %q needs at least one document id", key)
	}
	for _, id := range ids {
		if id == "" {
			return AttachedDocument{}, fmt.Errorf("workflow: attached document %q has an empty document id", key)
		}
	}
	return AttachedDocument{Key: key, Description: description, idList: slices.Clone(ids)}, nil
}

// MustDocument is NewDocument for literals known to be valid.
func MustDocument(key, description, id string) AttachedDocument {
	d, err := NewDocument(key, description, id)
	if err != nil {
		panic(err)
	}
	return d
}

// MustDocumentList is NewDocumentList for literals known to be valid.
func MustDocumentList(key, description string, ids ...string) AttachedDocument {
	d, err := NewDocumentList(key, description, ids)
	if err != nil {
		panic(err)
	}
	return d
}

// SingleID returns the single document id, if that is the form in use.
func (d AttachedDocument) SingleID() (string, bool) {
	return d.singleID, d.singleID != ""
}

// IDList returns a copy of the id list, if that is the form in use.
func (d AttachedDocument) IDList() ([]string, bool) {
	if d.idList == nil {
		return nil, false
	}
	return slices.Clone(d.idList), true
}

// IDs returns every referenced id regardless of form.
func (d AttachedDocument) IDs() []string {
	if d.singleID != "" {
		return []string{d.singleID}
	}
	return slices.Clone(d.idList)
}

// WithKey returns a copy of d stored under key.
func (d AttachedDocument) WithKey(key string) AttachedDocument {
	d.Key = key
	d.idList = slices.Clone(d.idList)
	return d
}

func (d AttachedDocument) validate() error {
	if d.Key == "" {
		return NewValidationError(KindInvalidDocument, "", "attached document key is required")
	}
	if d.singleID == "" && len(d.idList) == 0 {
		return NewValidationError(KindInvalidDocument, d.Key,
			"attached document %q must reference exactly one of uuid_unico or uuids_lista", d.Key)
	}
	return nil
}

// DocumentReceipt is what the document store returns for an uploaded file.
// Only the UUID is carried into a workflow.
type DocumentReceipt struct {
	UUID  string `json:"uuid_documento"`
	Title string `json:"titulo_arquivo"`
}

// AsDocument turns the receipt into a single-id attached document.
func (r DocumentReceipt) AsDocument(key, description string) (AttachedDocument, error) {
	if description == "" {
		description = r.Title
	}
	return NewDocument(key, description, r.UUID)
}
