// Package graph holds the persisted {meta, nodes, edges} structure and its
// crash-safe, checksummed storage.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/fileutil"
)

// Persister reads and writes one graph file.
type Persister struct {
	path   string
	log    *zap.Logger
	writer fileutil.AtomicWriter
}

// Option configures a Persister.
type Option func(*Persister)

// WithWriter replaces the atomic writer used by Save.
func WithWriter(w fileutil.AtomicWriter) Option {
	return func(p *Persister) {
		p.writer = w
	}
}

// NewPersister returns a Persister for the graph file at path.
func NewPersister(path string, log *zap.Logger, opts ...Option) *Persister {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Persister{path: path, log: log}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Path returns the graph file location.
func (p *Persister) Path() string {
	return p.path
}

// Load returns the persisted graph. A missing, unreadable or corrupt file
// yields an empty graph; corruption is logged, never returned.
func (p *Persister) Load() *Graph {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			p.log.Warn("graph: unreadable, starting empty", zap.String("path", p.path), zap.Error(err))
		}
		return Empty()
	}

	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		p.log.Warn("graph: corrupt, starting empty", zap.String("path", p.path), zap.Error(err))
		return Empty()
	}
	g.normalize()
	return &g
}

// Save writes g atomically, then computes the checksum over its canonical
// form and atomically rewrites the file with meta.relations_checksum set.
// On error the previously persisted file is left untouched.
func (p *Persister) Save(g *Graph) error {
	g.normalize()

	g.Meta.RelationsChecksum = ""
	if err := p.write(g); err != nil {
		return err
	}

	g.Meta.RelationsChecksum = Checksum(g)
	if err := p.write(g); err != nil {
		return err
	}

	p.log.Debug("graph: saved",
		zap.String("path", p.path),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
		zap.String("checksum", g.Meta.RelationsChecksum))
	return nil
}

func (p *Persister) write(g *Graph) error {
	data, err := fileutil.MarshalIndent(g)
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	if err := p.writer.WriteFile(p.path, data, 0644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}
