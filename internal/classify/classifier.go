// Package classify assigns an intent to a support ticket using a
// deterministic keyword rule table, optionally refined by an LLM when
// the rules cannot decide.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// Intent is the kind of issue a ticket describes.
type Intent string

const (
	IntentPasswordReset        Intent = "PASSWORD_RESET"
	IntentSystemRestart        Intent = "SYSTEM_RESTART"
	IntentVPNAccess            Intent = "VPN_ACCESS"
	IntentBackupVerification   Intent = "BACKUP_VERIFICATION"
	IntentSoftwareInstallation Intent = "SOFTWARE_INSTALLATION"
	IntentPrinterIssue         Intent = "PRINTER_ISSUE"
	IntentEmailIssue           Intent = "EMAIL_ISSUE"
	IntentNetworkConnectivity  Intent = "NETWORK_CONNECTIVITY"
	IntentUnknown              Intent = "UNKNOWN"
)

// maxConfidence caps the score regardless of how many keywords match.
const maxConfidence = 0.98

// automatableConfidence is the floor below which no ticket is automated.
const automatableConfidence = 0.75

// Result is the outcome of classifying one ticket.
type Result struct {
	Intent        Intent  `json:"intent"`
	Confidence    float64 `json:"confidence"`
	IsAutomatable bool    `json:"is_automatable"`
	Reasoning     string  `json:"reasoning"`
}

// rule scores one intent: the base confidence applies on the first
// keyword hit and each additional hit adds 0.05.
type rule struct {
	intent   Intent
	keywords []string
	base     float64
}

var rules = []rule{
	{
		intent:   IntentPasswordReset,
		keywords: []string{"password", "reset", "forgot", "login", "cannot log in", "locked out", "credentials"},
		base:     0.9,
	},
	{
		intent:   IntentSystemRestart,
		keywords: []string{"restart", "reboot", "slow", "frozen", "hung", "not responding", "performance"},
		base:     0.85,
	},
	{
		intent:   IntentVPNAccess,
		keywords: []string{"vpn", "remote access", "work from home", "connect remotely", "access network"},
		base:     0.9,
	},
	{
		intent:   IntentBackupVerification,
		keywords: []string{"backup", "restore", "data recovery", "backup failed"},
		base:     0.85,
	},
	{
		intent:   IntentSoftwareInstallation,
		keywords: []string{"install", "software", "application", "program", "need access to"},
		base:     0.8,
	},
	{
		intent:   IntentPrinterIssue,
		keywords: []string{"printer", "print", "printing", "cant print", "print job"},
		base:     0.85,
	},
	{
		intent:   IntentEmailIssue,
		keywords: []string{"email", "outlook", "cannot send", "cannot receive", "mailbox"},
		base:     0.85,
	},
	{
		intent:   IntentNetworkConnectivity,
		keywords: []string{"network", "internet", "wifi", "connection", "cannot connect", "offline"},
		base:     0.8,
	},
}

// automatableIntents are the intents with SOPs safe to execute without
// a human, provided the confidence clears the floor.
var automatableIntents = map[Intent]bool{
	IntentPasswordReset:      true,
	IntentSystemRestart:      true,
	IntentBackupVerification: true,
	IntentPrinterIssue:       true,
}

// intentCategories maps intents to SOP categories for hybrid search.
// Intents without a category fall back to general semantic search.
var intentCategories = map[Intent]string{
	IntentPasswordReset:      "password_reset",
	IntentSystemRestart:      "system_restart",
	IntentVPNAccess:          "vpn_access",
	IntentBackupVerification: "backup_verification",
}

// CategoryForIntent returns the SOP category for an intent, or "" when
// the intent has no category filter.
func CategoryForIntent(intent Intent) string {
	return intentCategories[intent]
}

// ClassifyTicket scores every rule against the lowercased ticket text
// and returns the highest-confidence intent. Ticket text that matches
// no rule yields IntentUnknown with zero confidence.
func ClassifyTicket(subject, description string) Result {
	text := strings.ToLower(subject + " " + description)

	best := IntentUnknown
	bestConfidence := 0.0

	for _, r := range rules {
		matches := 0
		for _, keyword := range r.keywords {
			if strings.Contains(text, keyword) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		confidence := math.Min(r.base+float64(matches-1)*0.05, maxConfidence)
		if confidence > bestConfidence {
			bestConfidence = confidence
			best = r.intent
		}
	}

	if best == IntentUnknown {
		return Result{
			Intent:     IntentUnknown,
			Confidence: 0,
			Reasoning:  "Could not classify ticket based on available keywords. Human review required.",
		}
	}

	return Result{
		Intent:        best,
		Confidence:    bestConfidence,
		IsAutomatable: automatableIntents[best] && bestConfidence >= automatableConfidence,
		Reasoning: fmt.Sprintf("Classified as %s based on keyword matching with %.0f%% confidence.",
			best, bestConfidence*100),
	}
}

// Classifier wraps the rule table with an optional LLM refiner used
// only when the rules return IntentUnknown.
type Classifier struct {
	llm    *LLM
	logger *slog.Logger
}

// NewClassifier creates a Classifier. llm may be nil; the rule table
// alone is a complete classifier.
func NewClassifier(llm *LLM, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		llm:    llm,
		logger: logger,
	}
}

// Classify runs the rule table and, when it cannot decide, asks the LLM.
// An LLM failure degrades to the rule result instead of erroring.
func (c *Classifier) Classify(ctx context.Context, subject, description string) Result {
	result := ClassifyTicket(subject, description)
	if result.Intent != IntentUnknown || c.llm == nil {
		return result
	}

	refined, err := c.llm.Classify(ctx, subject+" "+description)
	if err != nil {
		c.logger.Warn("LLM classification failed, keeping rule result", "error", err)
		return result
	}
	return *refined
}
