package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ehrledger/internal/domain"
)

// noAnswer is the fixed response for questions the gateway cannot map to a
// structured operation. The gateway never fabricates data.
const noAnswer = "Sorry, I couldn't find an answer to that question."

// topN is the default aggregation width for diagnosis/medication questions.
const topN = 5

// recentN is the number of rows returned for recent-visit questions.
const recentN = 5

// ChatAnswer is the structured reply for a routed question.
type ChatAnswer struct {
	Answer string         `json:"answer"`
	Stats  []NameCount    `json:"stats,omitempty"`
	Rows   []domain.Entry `json:"rows,omitempty"`
}

// ChatService maps free-text questions onto analytics operations by keyword.
// It never reads the ledger directly: every route goes through the analytics
// engine and therefore through the access control filter, so chat answers
// obey the same role scoping as direct queries.
type ChatService struct {
	analytics *AnalyticsService
	logger    *slog.Logger
}

// NewChatService creates a ChatService.
func NewChatService(analytics *AnalyticsService, logger *slog.Logger) *ChatService {
	return &ChatService{analytics: analytics, logger: logger}
}

// Route classifies the question and answers it from the caller's visible
// entry set. patientHint narrows patient-specific routes (summary, last
// visit). Internal errors degrade to the fixed non-answer; the end user
// never sees a raw failure.
func (s *ChatService) Route(ctx context.Context, caller domain.Caller, question, patientHint string) ChatAnswer {
	q := strings.ToLower(strings.TrimSpace(question))

	var (
		answer ChatAnswer
		err    error
	)
	switch {
	case strings.Contains(q, "how many"):
		answer, err = s.routeCount(ctx, caller, q)
	case strings.Contains(q, "last visit"):
		answer, err = s.routeLastVisit(ctx, caller, patientHint)
	case strings.Contains(q, "recent visit"):
		answer, err = s.routeRecentVisits(ctx, caller)
	case strings.Contains(q, "summary"):
		answer, err = s.routeSummary(ctx, caller, patientHint)
	case strings.Contains(q, "diagnos"):
		answer, err = s.routeTop(ctx, caller, "diagnosis", s.analytics.TopDiagnoses)
	case strings.Contains(q, "medication"):
		answer, err = s.routeTop(ctx, caller, "medication", s.analytics.TopMedications)
	default:
		return ChatAnswer{Answer: noAnswer}
	}

	if err != nil {
		s.logger.Debug("chat route failed", "question", q, "error", err)
		return ChatAnswer{Answer: noAnswer}
	}
	return answer
}

func (s *ChatService) routeCount(ctx context.Context, caller domain.Caller, q string) (ChatAnswer, error) {
	if strings.Contains(q, "patient") {
		n, err := s.analytics.CountPatients(ctx, caller)
		if err != nil {
			return ChatAnswer{}, err
		}
		return ChatAnswer{Answer: fmt.Sprintf("There are %d patients with an active record.", n)}, nil
	}

	n, err := s.analytics.Count(ctx, caller, domain.EntryFilter{})
	if err != nil {
		return ChatAnswer{}, err
	}
	return ChatAnswer{Answer: fmt.Sprintf("There are %d audit records logged.", n)}, nil
}

func (s *ChatService) routeLastVisit(ctx context.Context, caller domain.Caller, patientHint string) (ChatAnswer, error) {
	ts, err := s.analytics.LastVisit(ctx, caller, patientHint)
	if err != nil {
		return ChatAnswer{}, err
	}
	if patientHint != "" {
		return ChatAnswer{Answer: fmt.Sprintf("Patient %s was last seen on %s.", patientHint, ts.Format("2006-01-02 15:04"))}, nil
	}
	return ChatAnswer{Answer: fmt.Sprintf("The most recent activity was on %s.", ts.Format("2006-01-02 15:04"))}, nil
}

func (s *ChatService) routeRecentVisits(ctx context.Context, caller domain.Caller) (ChatAnswer, error) {
	rows, err := s.analytics.RecentVisits(ctx, caller, recentN)
	if err != nil {
		return ChatAnswer{}, err
	}
	if len(rows) == 0 {
		return ChatAnswer{Answer: "No visits are on record."}, nil
	}
	return ChatAnswer{
		Answer: fmt.Sprintf("Here are the %d most recent visits.", len(rows)),
		Rows:   rows,
	}, nil
}

func (s *ChatService) routeSummary(ctx context.Context, caller domain.Caller, patientHint string) (ChatAnswer, error) {
	if patientHint == "" {
		return ChatAnswer{Answer: "Please select a patient to summarize."}, nil
	}
	sum, err := s.analytics.Summary(ctx, caller, patientHint)
	if err != nil {
		return ChatAnswer{}, err
	}
	if sum.Deleted {
		return ChatAnswer{Answer: fmt.Sprintf(
			"Patient %s has no active record (deleted). %d entries on file, last activity %s.",
			sum.PatientID, sum.TotalLogs, sum.LastVisit.Format("2006-01-02 15:04"))}, nil
	}
	st := sum.CurrentState
	age := "unknown"
	if st.Age != nil {
		age = fmt.Sprintf("%d", *st.Age)
	}
	return ChatAnswer{Answer: fmt.Sprintf(
		"Patient %s (%s, age %s): diagnosis %s, medication %s. %d entries on file, last activity %s.",
		sum.PatientID, orUnknown(st.PatientName), age, orUnknown(st.Diagnosis),
		orUnknown(st.Medication), sum.TotalLogs, sum.LastVisit.Format("2006-01-02 15:04"))}, nil
}

func (s *ChatService) routeTop(ctx context.Context, caller domain.Caller, what string, top func(context.Context, domain.Caller, int) ([]NameCount, error)) (ChatAnswer, error) {
	stats, err := top(ctx, caller, topN)
	if err != nil {
		return ChatAnswer{}, err
	}
	if len(stats) == 0 {
		return ChatAnswer{Answer: fmt.Sprintf("No %s data is visible to you.", what)}, nil
	}
	return ChatAnswer{
		Answer: fmt.Sprintf("The most common %s is %s (%d patients).", what, stats[0].Name, stats[0].Count),
		Stats:  stats,
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
