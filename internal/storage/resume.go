package storage

import (
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/models"
	"log/slog"
	"os"
	"strings"
)

// ResumePoint is the first dialogue id that still has to be generated according to the transcript log.
//
// The log is split on the sentinel and the point is one less than the number of pieces. A missing log resumes
// from zero.
func ResumePoint(transcriptLogPath string) (int, error) {
	content, err := os.ReadFile(transcriptLogPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "read transcript log", slog.String("path", transcriptLogPath))
	}
	pieces := len(strings.Split(string(content), models.TranscriptSentinel))
	return max(0, pieces-1), nil
}

// ResumePoint reads the resume point of these logs.
func (l *Logs) ResumePoint() (int, error) {
	return ResumePoint(l.TranscriptLogPath())
}

// Pending drops every set with an id below resumePoint and keeps the order of the rest.
func Pending(sets []models.CandidateSet, resumePoint int) []models.CandidateSet {
	pending := make([]models.CandidateSet, 0, len(sets))
	for _, set := range sets {
		if set.ID >= resumePoint {
			pending = append(pending, set)
		}
	}
	return pending
}
