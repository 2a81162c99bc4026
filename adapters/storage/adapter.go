// Package storage provides storage adapters for the dose calculator.
// The catalogue lives in SQLite or Postgres; computed reports are kept in a
// file, memory or S3 history keyed by UUID.
package storage

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"dose-calculator/core/engine"
	"dose-calculator/internal/errors"
)

// Backend is a report store backend type
type Backend string

const (
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
)

// ReportStore is the report history interface
type ReportStore interface {
	// Save stores a report, assigning an ID and timestamp when unset
	Save(ctx context.Context, report *StoredReport) error

	// Get retrieves a report by ID
	Get(ctx context.Context, id string) (*StoredReport, error)

	// List lists reports newest first
	List(ctx context.Context, filter *ListFilter) ([]*StoredReport, error)

	// Delete removes a report
	Delete(ctx context.Context, id string) error

	// Close closes the store
	Close() error
}

// StoredReport is a saved computation pass
type StoredReport struct {
	ID        string             `json:"id"`
	Label     string             `json:"label,omitempty"`
	Request   engine.Request     `json:"request"`
	Report    *engine.RateReport `json:"report"`
	CreatedAt time.Time          `json:"created_at"`

	// Metadata holds free-form context such as the scenario file
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ListFilter filters report listing
type ListFilter struct {
	Isotope string
	Label   string
	Since   time.Time
	Until   time.Time
	Limit   int
	Offset  int
}

func (f *ListFilter) match(r *StoredReport) bool {
	if f == nil {
		return true
	}
	if f.Isotope != "" && (r.Report == nil || r.Report.Source.Isotope != f.Isotope) {
		return false
	}
	if f.Label != "" && r.Label != f.Label {
		return false
	}
	if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

// page sorts newest first and applies offset and limit
func (f *ListFilter) page(results []*StoredReport) []*StoredReport {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if f == nil {
		return results
	}
	if f.Offset > 0 {
		if f.Offset >= len(results) {
			return nil
		}
		results = results[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(results) {
		results = results[:f.Limit]
	}
	return results
}

func prepare(report *StoredReport) error {
	if report == nil || report.Report == nil {
		return errors.Validation("report", "nothing to save")
	}
	if report.ID == "" {
		report.ID = uuid.New().String()
	} else if _, err := uuid.Parse(report.ID); err != nil {
		return errors.Validation("id", "report id must be a UUID")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	return nil
}

// FileStore is a file-based report store, one JSON file per report
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore creates a file store
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Storage("failed to create storage directory", err)
	}
	return &FileStore{basePath: basePath}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.basePath, id+".json")
}

func (s *FileStore) Save(ctx context.Context, report *StoredReport) error {
	if err := prepare(report); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Internal("failed to marshal report", err)
	}
	if err := os.WriteFile(s.path(report.ID), data, 0644); err != nil {
		return errors.Storage("failed to write report", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*StoredReport, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFound("report", id)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, errors.NotFound("report", id)
	}
	if err != nil {
		return nil, errors.Storage("failed to read report", err)
	}

	var report StoredReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Storage("failed to unmarshal report", err)
	}
	return &report, nil
}

func (s *FileStore) List(ctx context.Context, filter *ListFilter) ([]*StoredReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, errors.Storage("failed to read storage", err)
	}

	var results []*StoredReport
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			continue
		}
		var report StoredReport
		if err := json.Unmarshal(data, &report); err != nil {
			continue // skip foreign files
		}
		if filter.match(&report) {
			results = append(results, &report)
		}
	}
	return filter.page(results), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.NotFound("report", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return errors.NotFound("report", id)
	}
	if err != nil {
		return errors.Storage("failed to delete report", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// MemoryStore is an in-memory report store
type MemoryStore struct {
	reports map[string]*StoredReport
	mu      sync.RWMutex
}

// NewMemoryStore creates a memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]*StoredReport),
	}
}

func (s *MemoryStore) Save(ctx context.Context, report *StoredReport) error {
	if err := prepare(report); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.ID] = report
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*StoredReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, errors.NotFound("report", id)
	}
	return report, nil
}

func (s *MemoryStore) List(ctx context.Context, filter *ListFilter) ([]*StoredReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*StoredReport
	for _, report := range s.reports {
		if filter.match(report) {
			results = append(results, report)
		}
	}
	return filter.page(results), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return errors.NotFound("report", id)
	}
	delete(s.reports, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// StoreFactory creates report stores by backend type
func StoreFactory(ctx context.Context, backend Backend, config map[string]string) (ReportStore, error) {
	switch backend {
	case BackendFile:
		path := config["path"]
		if path == "" {
			path = ".dose-reports"
		}
		return NewFileStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendS3:
		return NewS3Store(ctx, S3Config{
			Bucket:    config["bucket"],
			Region:    config["region"],
			Prefix:    config["prefix"],
			Endpoint:  config["endpoint"],
			PathStyle: config["path_style"] == "true",
		})
	default:
		return nil, errors.Configf("unsupported report backend: %s", backend)
	}
}

// Ensure interfaces are implemented
var _ io.Closer = (*FileStore)(nil)
var _ io.Closer = (*MemoryStore)(nil)
var _ ReportStore = (*FileStore)(nil)
var _ ReportStore = (*MemoryStore)(nil)
