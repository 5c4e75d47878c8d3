package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"

	"github.com/Pwsawbty/sekgs-ai-creator-brain/internal/fileutil"
)

// ErrNodeNotFound is returned by Get for ids with no record.
var ErrNodeNotFound = errors.New("node not found")

// NodeStore owns the per-node JSON records under one directory. It is the
// only writer of node files.
type NodeStore struct {
	dir    string
	log    *zap.Logger
	writer fileutil.AtomicWriter
	remove func(path string) error
}

// NewNodeStore returns a store over dir. The directory need not exist yet.
func NewNodeStore(dir string, log *zap.Logger) *NodeStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &NodeStore{dir: dir, log: log, remove: os.Remove}
}

// Dir returns the directory holding node records.
func (s *NodeStore) Dir() string {
	return s.dir
}

// ListResult is the outcome of scanning the node directory.
type ListResult struct {
	Nodes   []*Node // file-name order, unique ids
	Skipped int     // unreadable, malformed, invalid or duplicate-id files
}

// List loads every *.json record in file-name order. Bad records are logged
// and skipped; only failure to read the directory itself is an error. A
// missing directory is an empty store.
func (s *NodeStore) List() (ListResult, error) {
	var res ListResult

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, nil
		}
		return res, fmt.Errorf("list nodes: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	byID := orderedmap.New[string, *Node]()
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		node, err := s.readFile(path)
		if err != nil {
			s.log.Warn("nodes: skipping record", zap.String("path", path), zap.Error(err))
			res.Skipped++
			continue
		}
		if prev, dup := byID.Get(node.ID); dup {
			s.log.Warn("nodes: duplicate id, keeping first",
				zap.String("id", node.ID),
				zap.String("kept", prev.path),
				zap.String("skipped", path))
			res.Skipped++
			continue
		}
		byID.Set(node.ID, node)
	}

	res.Nodes = make([]*Node, 0, byID.Len())
	for pair := byID.Oldest(); pair != nil; pair = pair.Next() {
		res.Nodes = append(res.Nodes, pair.Value)
	}
	return res, nil
}

// Get returns the record List reports under id. Ids come from the record's
// id field, not the file name, so a lookup scans the directory.
func (s *NodeStore) Get(id string) (*Node, error) {
	probe := Node{ID: id}
	if err := probe.Validate(); err != nil {
		return nil, err
	}
	res, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, n := range res.Nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, ErrNodeNotFound
}

func (s *NodeStore) readFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var node Node
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if strings.TrimSpace(node.ID) == "" {
		node.ID = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	if err := node.Validate(); err != nil {
		return nil, err
	}
	node.path = path
	return &node, nil
}

// Write atomically persists node to the file it was loaded from, or to
// <dir>/<id>.json for new nodes.
func (s *NodeStore) Write(node *Node) error {
	if err := node.Validate(); err != nil {
		return err
	}
	data, err := fileutil.MarshalIndent(node)
	if err != nil {
		return fmt.Errorf("encode node %s: %w", node.ID, err)
	}
	path := node.path
	if path == "" {
		path = filepath.Join(s.dir, node.ID+".json")
	}
	if err := s.writer.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write node %s: %w", node.ID, err)
	}
	node.path = path
	return nil
}

// Delete removes the node's record.
func (s *NodeStore) Delete(node *Node) error {
	path := node.path
	if path == "" {
		path = filepath.Join(s.dir, node.ID+".json")
	}
	if err := s.remove(path); err != nil {
		return fmt.Errorf("delete node %s: %w", node.ID, err)
	}
	return nil
}
