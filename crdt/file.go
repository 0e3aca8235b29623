package crdt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// snapshot is the on-disk form of a document.
type snapshot struct {
	SiteID   SiteID    `json:"siteID"`
	Clock    uint32    `json:"clock"`
	Elements []Element `json:"elements"`
}

// Save writes the document, tombstones and identifiers included, to fileName.
// The file is replaced atomically.
func Save(fileName string, doc *Document) error {
	doc.mu.Lock()
	snap := snapshot{
		SiteID:   doc.alloc.Site(),
		Clock:    doc.alloc.Clock(),
		Elements: append([]Element(nil), doc.elements...),
	}
	doc.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	return writeFile(fileName, data)
}

// SaveText writes only the visible text of the document to fileName.
func SaveText(fileName string, doc *Document) error {
	return writeFile(fileName, []byte(doc.Content()))
}

// Load reads a document written by Save.
func Load(fileName string) (*Document, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fileName, err)
	}

	doc := New(snap.SiteID)
	doc.alloc.clock = snap.Clock
	for _, e := range snap.Elements {
		if err := doc.IntegrateInsert(e); err != nil {
			return nil, fmt.Errorf("load %s: %w", fileName, err)
		}
	}

	return doc, nil
}

func writeFile(fileName string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(fileName), filepath.Base(fileName)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), fileName)
}
