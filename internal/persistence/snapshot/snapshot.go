// Package snapshot reads and writes level snapshots: one JSON document with
// a density array per material channel and the turret placements.
// Paths ending in ".zst" are zstd-compressed.
package snapshot

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrMalformed is returned for documents that are not valid level snapshots.
var ErrMalformed = errors.New("malformed level snapshot")

//go:embed level.schema.json
var levelSchemaJSON string

var levelSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("https://voxelsiege.ai/schemas/level.schema.json", levelSchemaJSON)
})

type TurretV1 struct {
	Pos  [3]float64 `json:"pos"`
	Norm [3]float64 `json:"norm"`
	Type string     `json:"type"`
}

type LevelV1 struct {
	Voxels       [][]float64 `json:"voxels"`
	Turrets      []TurretV1  `json:"turrets"`
	InnerTurrets []TurretV1  `json:"innerTurrets"`
}

// Cells reports the per-channel array length, or 0 for an empty level.
func (l LevelV1) Cells() int {
	if len(l.Voxels) == 0 {
		return 0
	}
	return len(l.Voxels[0])
}

func Encode(w io.Writer, lv LevelV1) error {
	if lv.Turrets == nil {
		lv.Turrets = []TurretV1{}
	}
	if lv.InnerTurrets == nil {
		lv.InnerTurrets = []TurretV1{}
	}
	return json.NewEncoder(w).Encode(lv)
}

// Decode validates the document against the level schema before decoding it.
func Decode(r io.Reader) (LevelV1, error) {
	var lv LevelV1
	raw, err := io.ReadAll(r)
	if err != nil {
		return lv, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return lv, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return lv, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	schema, err := levelSchema()
	if err != nil {
		return lv, fmt.Errorf("compile level schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return lv, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal(raw, &lv); err != nil {
		return lv, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return lv, nil
}

func compressed(path string) bool { return strings.HasSuffix(path, ".zst") }

func Write(path string, lv LevelV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = f
	var enc *zstd.Encoder
	if compressed(path) {
		enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		w = enc
	}

	bw := bufio.NewWriterSize(w, 256*1024)
	if err := Encode(bw, lv); err != nil {
		if enc != nil {
			enc.Close()
		}
		return fmt.Errorf("encode level: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return err
		}
	}
	return f.Sync()
}

func Read(path string) (LevelV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return LevelV1{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return LevelV1{}, err
		}
		defer dec.Close()
		r = dec
	}
	lv, err := Decode(bufio.NewReaderSize(r, 256*1024))
	if err != nil {
		return lv, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return lv, nil
}

// Latest returns the newest level file in dir by name, or "" when there is none.
func Latest(dir string) (string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	best := ""
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".json.zst") {
			continue
		}
		if name > best {
			best = name
		}
	}
	if best == "" {
		return "", nil
	}
	return filepath.Join(dir, best), nil
}
