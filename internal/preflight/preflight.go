// Package preflight validates a file selection before a batch starts.
//
// Problems are grouped into classes. When several classes occur at once
// only the most important one is reported: too large, then locked, then
// invalid, then unsupported.
package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/aliskhannn/image-converter/internal/catalog"
	"github.com/aliskhannn/image-converter/internal/model"
)

// DefaultMaxBytes is the aggregate size ceiling of a batch.
const DefaultMaxBytes = 100 << 20

// ErrNoFiles is returned when the selection is empty.
var ErrNoFiles = errors.New("no files selected")

// Kind is a class of pre-flight problem. Higher kinds take priority.
type Kind int

const (
	KindUnsupported Kind = iota + 1
	KindInvalid
	KindLocked
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindInvalid:
		return "invalid"
	case KindLocked:
		return "locked"
	case KindTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// FileError reports the offending files of one problem class.
type FileError struct {
	Kind  Kind
	Files []string // base names
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Files, ", "))
}

// Title is a short headline for the problem.
func (e *FileError) Title() string {
	switch e.Kind {
	case KindTooLarge:
		return "Files Too Large"
	case KindLocked:
		return "Locked Files"
	case KindInvalid:
		return "Invalid Files"
	default:
		return "Unsupported Files"
	}
}

// Message explains the problem and names the files.
func (e *FileError) Message() string {
	names := strings.Join(e.Files, ", ")

	switch e.Kind {
	case KindTooLarge:
		return "The selected files exceed the size limit: " + names
	case KindLocked:
		return "These files are password protected and cannot be opened: " + names
	case KindInvalid:
		return "These files are damaged or cannot be read: " + names
	default:
		return "These files are not supported by this tool: " + names
	}
}

// Checker validates selections against a size ceiling.
type Checker struct {
	maxBytes int64
}

// New creates a Checker. A ceiling of zero or less uses DefaultMaxBytes.
func New(maxBytes int64) *Checker {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Checker{maxBytes: maxBytes}
}

// Check returns nil when every file can be processed by the tool, ErrNoFiles
// for an empty selection, or a *FileError for the highest priority problem.
func (c *Checker) Check(paths []string, tool model.Tool) error {
	if len(paths) == 0 {
		return ErrNoFiles
	}

	found := make(map[Kind][]string)
	var total int64

	for _, path := range paths {
		name := filepath.Base(path)

		if !catalog.Accepts(tool, path) {
			found[KindUnsupported] = append(found[KindUnsupported], name)
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			kind := KindInvalid
			if errors.Is(err, fs.ErrPermission) {
				kind = KindLocked
			}
			found[kind] = append(found[kind], name)
			continue
		}

		total += info.Size()
		if info.IsDir() || info.Size() == 0 {
			found[KindInvalid] = append(found[KindInvalid], name)
			continue
		}
		if info.Size() > c.maxBytes {
			found[KindTooLarge] = append(found[KindTooLarge], name)
			continue
		}

		if kind, bad := inspect(path); bad {
			found[kind] = append(found[kind], name)
		}
	}

	if total > c.maxBytes && len(found[KindTooLarge]) == 0 {
		for _, p := range paths {
			if catalog.Accepts(tool, p) {
				found[KindTooLarge] = append(found[KindTooLarge], filepath.Base(p))
			}
		}
	}

	for _, kind := range []Kind{KindTooLarge, KindLocked, KindInvalid, KindUnsupported} {
		if files := found[kind]; len(files) > 0 {
			return &FileError{Kind: kind, Files: files}
		}
	}

	return nil
}

// inspect opens the file to find locked or unparsable content.
func inspect(path string) (Kind, bool) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return KindLocked, true
		}
		return KindInvalid, true
	}
	f.Close()

	if format, _ := model.FormatFromPath(path); format != model.FormatPDF {
		return 0, false
	}

	doc, err := fitz.New(path)
	if doc != nil {
		defer doc.Close()
	}
	if errors.Is(err, fitz.ErrNeedsPassword) {
		return KindLocked, true
	}
	if err != nil {
		return KindInvalid, true
	}

	if doc.NumPage() == 0 {
		return KindInvalid, true
	}

	return 0, false
}
