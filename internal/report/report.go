package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davidahmann/specgate/internal/crypto"
	"github.com/davidahmann/specgate/pkg/types"
)

const Schema = "specgate.quality_report.v1"

// Report is the persisted record of one assessment. ReportID is the digest
// of the canonical JSON of Result, so identical results share an id.
type Report struct {
	Schema        string              `json:"schema"`
	ReportID      string              `json:"report_id"`
	Score         int                 `json:"score"`
	Level         types.Level         `json:"level"`
	CreatedAt     string              `json:"created_at"`
	DocumentTitle string              `json:"document_title,omitempty"`
	DocumentURL   string              `json:"document_url,omitempty"`
	RulesHash     string              `json:"rules_hash,omitempty"`
	Result        types.QualityResult `json:"result"`
}

func Build(doc types.Document, result types.QualityResult, createdAt time.Time) (Report, error) {
	id, _, err := crypto.CanonicalDigest(result)
	if err != nil {
		return Report{}, fmt.Errorf("digest result: %w", err)
	}
	return Report{
		Schema:        Schema,
		ReportID:      id,
		Score:         result.Score,
		Level:         result.Level,
		CreatedAt:     createdAt.UTC().Format(time.RFC3339),
		DocumentTitle: doc.Title,
		DocumentURL:   doc.URL,
		RulesHash:     result.Metadata.RulesHash,
		Result:        result,
	}, nil
}

// FileName keys a report by score, level, creation time and a short prefix
// of its id, so reports written in the same second do not collide.
func FileName(r Report) string {
	stamp := "unknown"
	if at, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
		stamp = at.UTC().Format("20060102_150405")
	}
	name := fmt.Sprintf("quality_report_%d_%s_%s", r.Score, r.Level, stamp)
	if id := shortID(r.ReportID); id != "" {
		name += "_" + id
	}
	return name + ".json"
}

func shortID(reportID string) string {
	id := strings.TrimPrefix(reportID, "sha256:")
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

// Write stores r as indented JSON under dir and returns the file path.
// Existing files are never overwritten; a numeric suffix is added instead.
func Write(dir string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	data = append(data, '\n')

	base := strings.TrimSuffix(FileName(r), ".json")
	for n := 1; n <= maxNameAttempts; n++ {
		name := base + ".json"
		if n > 1 {
			name = fmt.Sprintf("%s-%d.json", base, n)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", err
		}
		return path, f.Close()
	}
	return "", fmt.Errorf("no free file name for %s after %d attempts", base, maxNameAttempts)
}

const maxNameAttempts = 100
