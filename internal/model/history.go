package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// History is the record of one completed operation, consumed by the history store.
type History struct {
	ID       uuid.UUID `json:"id"`
	ToType   Format    `json:"to_type"`
	Category Category  `json:"category"`
	Action   Action    `json:"action"`
	Title    string    `json:"title"`
	Size     int64     `json:"size"`
	Date     time.Time `json:"date"`
}

// NewHistory builds the history record for a finished run of the tool.
func NewHistory(tool Tool, size int64, now time.Time) History {
	id := uuid.New()

	return History{
		ID:       id,
		ToType:   tool.To,
		Category: tool.Category,
		Action:   tool.Action,
		Title:    HistoryTitle(tool, id),
		Size:     size,
		Date:     now,
	}
}

// HistoryTitle returns the display file name of a history record,
// e.g. "PNG-to-JPG-<id>.jpg". PDF to image runs produce an archive.
func HistoryTitle(tool Tool, id uuid.UUID) string {
	ext := tool.To.Extension()
	if tool.Category == CategoryPDFToImage {
		ext = FormatZIP.Extension()
	}

	return fmt.Sprintf("%s-to-%s-%s.%s", tool.From.Title(), tool.To.Title(), id, ext)
}
