package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// DecodeJobCursor parses an opaque list cursor. An empty string means the first page.
func DecodeJobCursor(cursorStr string) (*domain.JobCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var due, jobID int64
	if _, err := fmt.Sscanf(parts[0], "%d", &due); err != nil {
		return nil, fmt.Errorf("invalid due in cursor: %w", err)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &jobID); err != nil {
		return nil, fmt.Errorf("invalid job id in cursor: %w", err)
	}

	return &domain.JobCursor{
		Due:   time.Unix(0, due).UTC(),
		JobID: jobID,
	}, nil
}

// EncodeJobCursor renders the position after the given job
func EncodeJobCursor(cursor *domain.JobCursor) string {
	cs := fmt.Sprintf("%d|%d", cursor.Due.UnixNano(), cursor.JobID)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}
