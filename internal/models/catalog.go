package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CatalogItem represents one purchasable offering (course or service) from
// the knowledge base corpus. Items are immutable after ingestion.
type CatalogItem struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	SubCategory     string     `json:"sub_category,omitempty"`
	CourseCode      string     `json:"courseCode,omitempty"`
	FullDescription string     `json:"full_description,omitempty"`
	Details         DetailList `json:"details,omitempty"`
}

// Catalog is the corpus document schema: {"services": [...]}
type Catalog struct {
	Services []CatalogItem `json:"services"`
}

// Detail is a single label/value entry from an item's details block.
// The value is either a plain string or a list of strings.
type Detail struct {
	Label string
	Value DetailValue
}

// DetailValue holds either Text or Items, never both.
type DetailValue struct {
	Text  string
	Items []string
}

// IsList reports whether the value is a string list.
func (v DetailValue) IsList() bool {
	return v.Items != nil
}

// DetailList preserves the insertion order of the JSON details object.
// A plain map would lose the order the corpus authors wrote the labels in,
// which matters for display.
type DetailList []Detail

// Get returns the value for a label and whether it was present.
func (d DetailList) Get(label string) (DetailValue, bool) {
	for _, entry := range d {
		if entry.Label == label {
			return entry.Value, true
		}
	}
	return DetailValue{}, false
}

// UnmarshalJSON decodes a JSON object token-by-token so key order survives.
func (d *DetailList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("details: expected object, got %v", tok)
	}

	entries := DetailList{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("details: expected string key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		value, err := decodeDetailValue(raw)
		if err != nil {
			return fmt.Errorf("details[%s]: %w", label, err)
		}
		entries = append(entries, Detail{Label: label, Value: value})
	}

	*d = entries
	return nil
}

// MarshalJSON renders the details back as a JSON object in original order.
func (d DetailList) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, entry := range d {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(entry.Label)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')

		var val []byte
		if entry.Value.IsList() {
			val, err = json.Marshal(entry.Value.Items)
		} else {
			val, err = json.Marshal(entry.Value.Text)
		}
		if err != nil {
			return nil, err
		}
		buf = append(buf, val...)
	}
	buf = append(buf, '}')
	return buf, nil
}

func decodeDetailValue(raw json.RawMessage) (DetailValue, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return DetailValue{Text: text}, nil
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		if items == nil {
			items = []string{}
		}
		return DetailValue{Items: items}, nil
	}

	return DetailValue{}, fmt.Errorf("value must be a string or a list of strings")
}

// SearchMatch is one ranked result from a semantic search over the catalog.
// It carries denormalized display fields so the caller does not need a
// second corpus read just to render a result line.
type SearchMatch struct {
	ItemID         string  `json:"id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	CourseCode     string  `json:"courseCode"`
	Price          string  `json:"price"`
	Similarity     float64 `json:"similarity"`      // 0..1, higher is better
	RelevanceScore float64 `json:"relevance_score"` // similarity * 100, one decimal
}
