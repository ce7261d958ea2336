// Package artifact stores raw fetched payloads content-addressed by SHA-256,
// so every parse is replayable without re-fetching the source.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/civicsignal/civicsync/internal/model"
)

// Recorder is the slice of the store the archive needs.
type Recorder interface {
	InsertArtifact(ctx context.Context, a *model.RawArtifact) (string, bool, error)
}

// Archive writes raw payload blobs under a root directory and records
// provenance rows through the store. Blobs are immutable: an already-present
// hash is never rewritten.
type Archive struct {
	dir      string
	recorder Recorder
}

// New creates an Archive rooted at dir.
func New(dir string, recorder Recorder) *Archive {
	return &Archive{dir: dir, recorder: recorder}
}

// Put hashes body, writes the blob if it is new, and records the artifact
// row. Returns the artifact (ID populated) and whether the content was new.
func (a *Archive) Put(ctx context.Context, connector, url string, ctype model.ContentType, body []byte) (*model.RawArtifact, bool, error) {
	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	ref := filepath.Join(hash[:2], hash)
	path := filepath.Join(a.dir, ref)

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, false, eris.Wrapf(err, "artifact: stat %s", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, false, eris.Wrap(err, "artifact: mkdir")
		}
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, body, 0o644); err != nil {
			return nil, false, eris.Wrapf(err, "artifact: write %s", tmp)
		}
		if err := os.Rename(tmp, path); err != nil {
			return nil, false, eris.Wrapf(err, "artifact: rename %s", path)
		}
	}

	art := &model.RawArtifact{
		Connector: connector,
		URL:       url,
		CType:     ctype,
		BlobRef:   ref,
		SHA256:    hash,
	}
	id, created, err := a.recorder.InsertArtifact(ctx, art)
	if err != nil {
		return nil, false, err
	}
	art.ID = id
	return art, created, nil
}

// Open returns a reader over a stored blob.
func (a *Archive) Open(ref string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(a.dir, ref))
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: open %s", ref)
	}
	return f, nil
}
