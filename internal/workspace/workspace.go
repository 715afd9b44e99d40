// Package workspace owns the on-disk workspace directory: its descriptor
// file, its exclusive process lock, and the derived paths every other
// component (store, batch writer, dataset manager) builds on top of.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friconhq/fricon/internal/applog"
	"github.com/friconhq/fricon/internal/ferr"
)

const (
	descriptorFilename = ".fricon_workspace.json"
	lockFilename       = ".fricon.lock"
	dataDirname        = "data"
	logDirname         = "log"
	storeFilename      = "fricon.sqlite3"

	schemaVersion = 1
)

// Descriptor is the small JSON document at the workspace root identifying
// it and recording the schema version it was created with.
type Descriptor struct {
	SchemaVersion uint32    `json:"schema_version"`
	UUID          uuid.UUID `json:"uuid"`
}

// Workspace is an opened, lock-held workspace directory. It is owned by the
// process for its entire lifetime; Close releases the lock.
type Workspace struct {
	root       string
	descriptor Descriptor
	lock       *lockHandle
	log        zerolog.Logger
}

// Root returns the workspace's root directory.
func (w *Workspace) Root() string { return w.root }

// UUID returns the workspace's identity, assigned once at Init.
func (w *Workspace) UUID() uuid.UUID { return w.descriptor.UUID }

// DataDir is the root of the dataset content-addressed store.
func (w *Workspace) DataDir() string { return filepath.Join(w.root, dataDirname) }

// LogDir is opaque diagnostic output, not interpreted by the core.
func (w *Workspace) LogDir() string { return filepath.Join(w.root, logDirname) }

// StorePath is the embedded relational store file.
func (w *Workspace) StorePath() string { return filepath.Join(w.root, storeFilename) }

// SocketPath is the deterministic local-RPC endpoint path for this
// workspace (a Unix domain socket on POSIX).
func (w *Workspace) SocketPath() string { return filepath.Join(w.root, "fricon.sock") }

// DatasetDir computes the two-level fan-out directory for a dataset UUID:
// data/<xx>/<uuid>/, where xx is the lowercase hex of the UUID's first byte.
func (w *Workspace) DatasetDir(id uuid.UUID) string {
	fanout := fmt.Sprintf("%02x", id[0])
	return filepath.Join(w.DataDir(), fanout, id.String())
}

// Init creates a brand-new workspace layout at root. It fails if the
// directory is already initialized (the descriptor file already exists).
func Init(root string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, ferr.Wrapf(ferr.CodeStorage, err, "create workspace root %s", root)
	}

	descPath := filepath.Join(root, descriptorFilename)
	if _, err := os.Stat(descPath); err == nil {
		return nil, ferr.Newf(ferr.CodeInvalidWorkspace, "workspace already initialized at %s", root)
	} else if !os.IsNotExist(err) {
		return nil, ferr.Wrapf(ferr.CodeStorage, err, "stat descriptor %s", descPath)
	}

	if err := os.MkdirAll(filepath.Join(root, dataDirname), 0o755); err != nil {
		return nil, ferr.Wrapf(ferr.CodeStorage, err, "create data directory")
	}
	if err := os.MkdirAll(filepath.Join(root, logDirname), 0o755); err != nil {
		return nil, ferr.Wrapf(ferr.CodeStorage, err, "create log directory")
	}

	desc := Descriptor{SchemaVersion: schemaVersion, UUID: uuid.New()}
	if err := writeDescriptor(descPath, desc); err != nil {
		return nil, err
	}

	return Open(root)
}

// Open opens an existing workspace: verifies the descriptor, acquires the
// exclusive lock, and returns a ready-to-use handle. Callers must Close it
// exactly once when the process shuts down.
func Open(root string) (*Workspace, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, ferr.Wrapf(ferr.CodeInvalidWorkspace, err, "resolve workspace path %s", root)
	}

	descPath := filepath.Join(absRoot, descriptorFilename)
	desc, err := readDescriptor(descPath)
	if err != nil {
		return nil, err
	}

	lock, err := acquireLock(filepath.Join(absRoot, lockFilename))
	if err != nil {
		return nil, err
	}

	w := &Workspace{
		root:       absRoot,
		descriptor: desc,
		lock:       lock,
		log:        applog.WithComponent("workspace"),
	}
	w.log.Debug().Msg("workspace opened")
	return w, nil
}

// Close releases the workspace lock. Safe to call once; the lock is also
// released by the OS if the process crashes without calling Close.
func (w *Workspace) Close() error {
	return w.lock.release()
}

func readDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Descriptor{}, ferr.Newf(ferr.CodeInvalidWorkspace, "missing workspace descriptor at %s", path)
		}
		return Descriptor{}, ferr.Wrapf(ferr.CodeStorage, err, "read workspace descriptor")
	}

	var desc Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return Descriptor{}, ferr.Wrapf(ferr.CodeInvalidWorkspace, err, "parse workspace descriptor")
	}
	if desc.UUID == uuid.Nil {
		return Descriptor{}, ferr.Newf(ferr.CodeInvalidWorkspace, "workspace descriptor missing uuid")
	}
	return desc, nil
}

func writeDescriptor(path string, desc Descriptor) error {
	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return ferr.Wrapf(ferr.CodeStorage, err, "marshal workspace descriptor")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ferr.Wrapf(ferr.CodeStorage, err, "write workspace descriptor")
	}
	if err := os.Rename(tmp, path); err != nil {
		return ferr.Wrapf(ferr.CodeStorage, err, "finalize workspace descriptor")
	}
	return nil
}
