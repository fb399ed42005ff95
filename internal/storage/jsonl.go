package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cpamm/internal/model"
)

// JsonlJournal appends receipts to a JSONL file. Each batch is synced to disk
// before Append returns.
type JsonlJournal struct {
	path string
	mu   sync.Mutex
}

func NewJsonlJournal(path string) *JsonlJournal {
	return &JsonlJournal{path: path}
}

// Append writes receipts as JSON lines. A batch holding an unknown receipt
// kind is rejected whole.
func (j *JsonlJournal) Append(receipts ...model.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}
	for i, receipt := range receipts {
		if !model.KnownKind(receipt.Kind) {
			return fmt.Errorf("receipt %d: unknown kind %q", i, receipt.Kind)
		}
	}

	dir := filepath.Dir(j.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	enc := json.NewEncoder(writer)
	for _, receipt := range receipts {
		if err := enc.Encode(receipt); err != nil {
			return fmt.Errorf("write %s receipt: %w", receipt.Kind, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync journal: %w", err)
	}
	return nil
}
