package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/friconhq/fricon/internal/ferr"
)

const sidecarName = "metadata.json"

// Sidecar mirrors a dataset's relational row plus the write-path totals
// as a stable JSON schema on disk: the durable source of truth if the
// database itself is destroyed.
type Sidecar struct {
	UUID         uuid.UUID `json:"uuid"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Favorite     bool      `json:"favorite"`
	Tags         []string  `json:"tags"`
	IndexColumns []string  `json:"index_columns"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	Rows         int64     `json:"rows"`
	Chunks       int64     `json:"chunks"`

	// MetadataGeneration mirrors the row's counter at the moment this
	// sidecar was last rewritten. A sidecar whose generation lags the row's
	// is the detectable symptom of a crash between DB commit and sidecar
	// rewrite; additive to the schema and ignored by readers that don't
	// know it.
	MetadataGeneration int64 `json:"metadata_generation"`
}

// SidecarPath returns the path of the sidecar file within a dataset directory.
func SidecarPath(datasetDir string) string {
	return filepath.Join(datasetDir, sidecarName)
}

// WriteSidecar atomically (write-temp-then-rename) writes s to datasetDir.
func WriteSidecar(datasetDir string, s Sidecar) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return ferr.Wrap(ferr.CodeStorage, "marshal sidecar", err)
	}

	path := SidecarPath(datasetDir)
	tmp := path + tempSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "write sidecar temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "rename sidecar into place", err)
	}
	return nil
}

// ReadSidecar loads the sidecar from datasetDir. A missing sidecar is
// reported as ferr.CodeNotFound so crash recovery can distinguish "never
// finalized" from "corrupt".
func ReadSidecar(datasetDir string) (Sidecar, error) {
	data, err := os.ReadFile(SidecarPath(datasetDir))
	if err != nil {
		if os.IsNotExist(err) {
			return Sidecar{}, ferr.New(ferr.CodeNotFound, "sidecar not present")
		}
		return Sidecar{}, ferr.Wrap(ferr.CodeStorage, "read sidecar", err)
	}

	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return Sidecar{}, ferr.Wrap(ferr.CodeStorage, "parse sidecar", err)
	}
	return s, nil
}
