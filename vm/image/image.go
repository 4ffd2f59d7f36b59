// Package image saves a class table as a canonical CBOR snapshot and
// replays it into another interpreter.
//
// A snapshot records classes, their declared instance variables and the
// source of every method. Instances and global bindings are not saved;
// restoring re-parses each method body, so a snapshot is portable across
// interpreter versions that accept the same syntax.
package image

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/oops/vm"
)

// Magic identifies an oops image.
const Magic = "OOPS"

// Version is the snapshot format version.
// v1: classes, ivars and method sources
const Version = 1

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Snapshot is the serialized form of a class table.
type Snapshot struct {
	Magic   string        `cbor:"1,keyasint"`
	Version int           `cbor:"2,keyasint"`
	Classes []ClassRecord `cbor:"3,keyasint"`
	Digest  [32]byte      `cbor:"4,keyasint"`
}

// ClassRecord describes one class. The root class is recorded only to
// carry methods defined on it.
type ClassRecord struct {
	Name       string         `cbor:"1,keyasint"`
	Superclass string         `cbor:"2,keyasint,omitempty"`
	IVars      []string       `cbor:"3,keyasint,omitempty"`
	Methods    []MethodRecord `cbor:"4,keyasint,omitempty"`
}

// MethodRecord is a selector and the block literal source of its body.
type MethodRecord struct {
	Selector string `cbor:"1,keyasint"`
	Source   string `cbor:"2,keyasint"`
}

// Capture records every class in ct, parents before children.
func Capture(ct *vm.ClassTable) *Snapshot {
	s := &Snapshot{Magic: Magic, Version: Version}
	for _, c := range ct.All() {
		rec := ClassRecord{
			Name:       c.Name,
			Superclass: c.Superclass,
			IVars:      append([]string(nil), c.IVars...),
		}
		for _, m := range c.Methods() {
			rec.Methods = append(rec.Methods, MethodRecord{Selector: m.Selector, Source: m.Source()})
		}
		if c == ct.Root() && len(rec.Methods) == 0 {
			continue
		}
		s.Classes = append(s.Classes, rec)
	}
	s.Digest = digest(s.Classes)
	return s
}

// digest hashes the canonical encoding of the class records.
func digest(classes []ClassRecord) [32]byte {
	data, err := encMode.Marshal(classes)
	if err != nil {
		return [32]byte{}
	}
	return sha256.Sum256(data)
}

// Marshal serializes a snapshot to canonical CBOR.
func Marshal(s *Snapshot) ([]byte, error) {
	return encMode.Marshal(s)
}

// Unmarshal deserializes and verifies a snapshot.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("image: unmarshal snapshot: %w", err)
	}
	if s.Magic != Magic {
		return nil, fmt.Errorf("image: bad magic %q", s.Magic)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("image: unsupported version %d (want %d)", s.Version, Version)
	}
	if got := digest(s.Classes); got != s.Digest {
		return nil, fmt.Errorf("image: digest mismatch: declared %x, computed %x", s.Digest, got)
	}
	return &s, nil
}

// Restore replays the snapshot into ct. Classes must not already exist
// in ct, except the root class, which only receives methods.
func (s *Snapshot) Restore(ct *vm.ClassTable) error {
	for _, rec := range s.Classes {
		if rec.Name != ct.Root().Name {
			if _, err := ct.Subclass(rec.Superclass, rec.Name, rec.IVars); err != nil {
				return fmt.Errorf("image: class %s: %w", rec.Name, err)
			}
		}
		for _, m := range rec.Methods {
			if _, err := ct.DefineMethodSource(rec.Name, m.Selector, m.Source); err != nil {
				return fmt.Errorf("image: %w", err)
			}
		}
	}
	return nil
}

// Write captures ct and writes the snapshot to w.
func Write(w io.Writer, ct *vm.ClassTable) error {
	data, err := Marshal(Capture(ct))
	if err != nil {
		return fmt.Errorf("image: marshal: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Read decodes a snapshot from r and restores it into ct.
func Read(r io.Reader, ct *vm.ClassTable) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return fmt.Errorf("image: read: %w", err)
	}
	s, err := Unmarshal(buf.Bytes())
	if err != nil {
		return err
	}
	return s.Restore(ct)
}

// Save writes a snapshot of ct to path.
func Save(path string, ct *vm.ClassTable) error {
	var buf bytes.Buffer
	if err := Write(&buf, ct); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Load restores the snapshot at path into ct.
func Load(path string, ct *vm.ClassTable) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Read(f, ct)
}
