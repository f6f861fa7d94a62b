// Package manifest announces completed runs. A manifest is written only
// after the sink has committed, so its presence means the run's tables
// are readable.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/tabular"
)

// LatestFile is the name of the filesystem manifest of the most recent run.
const LatestFile = "manifest.latest.json"

// Manifest describes a published run.
type Manifest struct {
	RunID       string         `json:"runId"`
	Dataset     string         `json:"dataset"`
	Sink        string         `json:"sink"`
	Digest      string         `json:"digest"`
	Rows        int            `json:"rows"`
	Tables      []TableEntry   `json:"tables"`
	Diagnostics map[string]int `json:"diagnostics,omitempty"`
	Complete    bool           `json:"complete"`
}

// TableEntry is one published table.
type TableEntry struct {
	Name   string `json:"name"`
	Rows   int    `json:"rows"`
	Digest string `json:"digest"`
}

// Build assembles the manifest of a completed run.
func Build(runID, dataset, sinkDriver, digest string, rows int, tables []*tabular.Table, diags []diag.Diagnostic) (Manifest, error) {
	m := Manifest{
		RunID:    runID,
		Dataset:  dataset,
		Sink:     sinkDriver,
		Digest:   digest,
		Rows:     rows,
		Tables:   make([]TableEntry, 0, len(tables)),
		Complete: true,
	}
	for _, t := range tables {
		d, err := t.Digest()
		if err != nil {
			return Manifest{}, fmt.Errorf("digest table %q: %w", t.Name, err)
		}
		m.Tables = append(m.Tables, TableEntry{Name: t.Name, Rows: t.Len(), Digest: d})
	}
	if len(diags) > 0 {
		m.Diagnostics = make(map[string]int)
		for _, d := range diags {
			m.Diagnostics[string(d.Kind)]++
		}
	}
	return m, nil
}

// Publisher announces a manifest.
type Publisher interface {
	Publish(ctx context.Context, m Manifest) error
}

// MultiPublisher writes to multiple publishers sequentially.
type MultiPublisherImpl struct {
	pubs []Publisher
}

func MultiPublisher(pubs ...Publisher) Publisher {
	return &MultiPublisherImpl{pubs: pubs}
}

func (m *MultiPublisherImpl) Publish(ctx context.Context, man Manifest) error {
	for _, p := range m.pubs {
		if err := p.Publish(ctx, man); err != nil {
			return err
		}
	}
	return nil
}

// Reader reads back the latest manifest.
type Reader interface {
	ReadLatest() (Manifest, error)
}

// FilesystemManifest keeps one JSON file per run plus manifest.latest.json.
type FilesystemManifest struct {
	baseDir string
}

func NewFilesystemManifest(baseDir string) *FilesystemManifest {
	return &FilesystemManifest{baseDir: baseDir}
}

func (f *FilesystemManifest) Publish(ctx context.Context, m Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.RunID == "" {
		return errors.New("manifest: run id is required")
	}
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(filepath.Join(f.baseDir, "run-"+m.RunID+".json"), data); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(f.baseDir, LatestFile), data)
}

func (f *FilesystemManifest) ReadLatest() (Manifest, error) {
	return readManifest(filepath.Join(f.baseDir, LatestFile))
}

// ReadRun reads the manifest of a specific run.
func (f *FilesystemManifest) ReadRun(runID string) (Manifest, error) {
	return readManifest(filepath.Join(f.baseDir, "run-"+runID+".json"))
}

// Runs lists the run ids with a manifest, in lexical order. UUIDv7 run
// ids sort chronologically.
func (f *FilesystemManifest) Runs() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(f.baseDir, "run-*.json"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(base, "run-"), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func readManifest(file string) (Manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return m, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// KafkaManifest publishes the latest manifest as a compacted Kafka record
// keyed by dataset.
type KafkaManifest struct {
	writer kafkaMessageWriter
	key    []byte
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaManifest creates a Kafka manifest publisher.
// bootstrap can be comma-separated brokers. An empty key uses the dataset
// of each manifest.
func NewKafkaManifest(bootstrap string, topic string, key string) *KafkaManifest {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			brokers = append(brokers, a)
		}
	}
	return &KafkaManifest{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}, key: []byte(key)}
}

func (k *KafkaManifest) Publish(ctx context.Context, m Manifest) error {
	b, err := json.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	key := k.key
	if len(key) == 0 {
		key = []byte("salesmix-manifest-" + m.Dataset)
	}
	msg := kafka.Message{
		Key:   key,
		Value: b,
		Headers: []kafka.Header{
			{Key: "run-id", Value: []byte(m.RunID)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish manifest %s: %w", m.RunID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer when it supports it.
func (k *KafkaManifest) Close() error {
	if c, ok := k.writer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// NewKafkaManifestWith is only for tests to inject a fake writer.
func NewKafkaManifestWith(w kafkaMessageWriter, key string) *KafkaManifest {
	return &KafkaManifest{writer: w, key: []byte(key)}
}
