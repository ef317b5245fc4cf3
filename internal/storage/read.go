package storage

import (
	"encoding/csv"
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/models"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strconv"
)

// ReadTurnRecords parses the turn log. Repeated header rows from resumed runs are skipped.
func ReadTurnRecords(path string) (_ []models.TurnRecord, err error) {
	var f *os.File
	if f, err = os.Open(path); err != nil {
		return nil, errors.Wrap(err, "open turn log", slog.String("path", path))
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "close turn log")
		}
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(Header)

	var records []models.TurnRecord
	for line := 1; ; line++ {
		row, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, errors.Wrap(readErr, "read turn log", slog.Int("line", line))
		}
		if slices.Equal(row, Header) {
			continue
		}
		record, parseErr := parseTurnRecord(row)
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, "parse turn record", slog.Int("line", line))
		}
		records = append(records, record)
	}
	return records, nil
}

func parseTurnRecord(row []string) (models.TurnRecord, error) {
	var (
		p      parser
		record models.TurnRecord
	)
	record.DialogueID = p.int(row[0])
	record.IntraDialogueID = p.int(row[1])
	record.Target = row[2]
	record.Question = row[3]
	record.Answer = row[4]
	record.QuestionMetrics = models.Metrics{
		Confidence:            p.float(row[5]),
		ObservedConsistency:   p.float(row[6]),
		SelfReportedCertainty: p.float(row[7]),
	}
	record.AnswerMetrics = models.Metrics{
		Confidence:            p.float(row[8]),
		ObservedConsistency:   p.float(row[9]),
		SelfReportedCertainty: p.float(row[10]),
	}
	record.QuestionTimeMS = int64(p.int(row[11]))
	record.AnswerTimeMS = int64(p.int(row[12]))
	return record, p.err
}

// parser remembers the first conversion error.
type parser struct {
	err error
}

func (p *parser) int(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = errors.Wrap(err, "parse int", slog.String("value", s))
	}
	return n
}

func (p *parser) float(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = errors.Wrap(err, "parse float", slog.String("value", s))
	}
	return f
}

// DialogueSummary aggregates the turn rows of one dialogue id, failed attempts included.
type DialogueSummary struct {
	DialogueID     int
	Target         string
	Rows           int
	MeanQuestionMS float64
	MeanAnswerMS   float64
}

// Summarize groups records by dialogue id in ascending order.
func Summarize(records []models.TurnRecord) []DialogueSummary {
	byID := map[int]*DialogueSummary{}
	for _, r := range records {
		s, ok := byID[r.DialogueID]
		if !ok {
			s = &DialogueSummary{DialogueID: r.DialogueID, Target: r.Target}
			byID[r.DialogueID] = s
		}
		s.Rows++
		s.MeanQuestionMS += float64(r.QuestionTimeMS)
		s.MeanAnswerMS += float64(r.AnswerTimeMS)
	}

	summaries := make([]DialogueSummary, 0, len(byID))
	for _, s := range byID {
		s.MeanQuestionMS /= float64(s.Rows)
		s.MeanAnswerMS /= float64(s.Rows)
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].DialogueID < summaries[j].DialogueID
	})
	return summaries
}
