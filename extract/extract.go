// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/djherbis/times"
	"github.com/gabriel-vasile/mimetype"

	"github.com/poiesic/filevec/core"
)

// Kind identifies a supported document format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindCSV  Kind = "csv"
	KindXLSX Kind = "xlsx"
	KindHTML Kind = "html"
	KindText Kind = "text"
)

// Tabular reports whether the kind yields rows instead of text.
func (k Kind) Tabular() bool {
	return k == KindCSV || k == KindXLSX
}

var (
	// ErrUnsupportedKind indicates a file whose format cannot be extracted.
	ErrUnsupportedKind = errors.New("unsupported file type")
)

var extensions = map[string]Kind{
	".pdf":      KindPDF,
	".docx":     KindDOCX,
	".csv":      KindCSV,
	".xlsx":     KindXLSX,
	".html":     KindHTML,
	".htm":      KindHTML,
	".txt":      KindText,
	".md":       KindText,
	".markdown": KindText,
}

var mimeKinds = []struct {
	mime string
	kind Kind
}{
	{"application/pdf", KindPDF},
	{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", KindDOCX},
	{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", KindXLSX},
	{"text/csv", KindCSV},
	{"text/html", KindHTML},
	{"text/plain", KindText},
}

// Result is the output of one extraction.
type Result struct {
	Path     string
	Kind     Kind
	Content  string        // Text kinds only
	Rows     []Row         // Tabular kinds only
	Metadata core.Metadata // File metadata attached to text content
}

// Empty reports whether extraction produced nothing to ingest.
func (r *Result) Empty() bool {
	if r.Kind.Tabular() {
		return len(r.Rows) == 0
	}
	return strings.TrimSpace(r.Content) == ""
}

// DetectKind picks the format by extension and falls back to content sniffing.
func DetectKind(path string) (Kind, error) {
	if kind, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return kind, nil
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: detecting type of %s: %w", core.ErrExtraction, path, err)
	}
	for m := mtype; m != nil; m = m.Parent() {
		for _, candidate := range mimeKinds {
			if m.Is(candidate.mime) {
				return candidate.kind, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %w: %s (%s)", core.ErrExtraction, ErrUnsupportedKind, path, mtype.String())
}

// Extract reads the document at path.
func Extract(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kind, err := DetectKind(path)
	if err != nil {
		return nil, err
	}

	result := &Result{Path: path, Kind: kind}
	switch kind {
	case KindCSV:
		result.Rows, err = readCSV(ctx, path)
	case KindXLSX:
		result.Rows, err = readXLSX(ctx, path)
	case KindPDF:
		result.Content, err = readPDF(path)
	case KindDOCX:
		result.Content, err = readDOCX(path)
	case KindHTML:
		result.Content, err = readHTML(path)
	case KindText:
		result.Content, err = readText(path)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", core.ErrExtraction, path, err)
	}

	if !kind.Tabular() {
		result.Metadata, err = fileMetadata(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", core.ErrExtraction, path, err)
		}
	}
	return result, nil
}

func fileMetadata(path string) (core.Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	md := core.Metadata{
		"filename": filepath.Base(path),
		"size":     info.Size(),
		"modified": info.ModTime().UTC(),
	}

	// Birth time is only recorded on some platforms.
	if ts, err := times.Stat(path); err == nil && ts.HasBirthTime() {
		md["created"] = ts.BirthTime().UTC()
	}
	return md, nil
}
