package utils

import (
	"regexp"
	"strings"
)

// Correction field names applied to a lead record.
const (
	CorrectionFieldName        = "name"
	CorrectionFieldCompany     = "company"
	CorrectionFieldDesignation = "designation"
	CorrectionFieldPhone       = "phone"
	CorrectionFieldEmail       = "email"
)

// Ordered so that more specific keywords win over generic ones; email is
// matched by shape rather than keyword.
var correctionPatterns = []struct {
	field string
	re    *regexp.Regexp
}{
	{CorrectionFieldDesignation, regexp.MustCompile(`(?i)(?:designation|role|post|position)\s*[:\-\s]+\s*(.+)`)},
	{CorrectionFieldName, regexp.MustCompile(`(?i)(?:name|naam)\s*[:\-\s]+\s*(.+)`)},
	{CorrectionFieldCompany, regexp.MustCompile(`(?i)(?:company|firm|organization|organisation)\s*[:\-\s]+\s*(.+)`)},
	{CorrectionFieldPhone, regexp.MustCompile(`(?i)(?:phone|mobile|number|contact)\s*[:\-\s]+\s*([\d\s+\-]+)`)},
	{CorrectionFieldEmail, regexp.MustCompile(`(?i)([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`)},
}

var designationKeywords = []string{
	"hr", "manager", "ceo", "cto", "cfo", "coo", "director", "engineer",
	"executive", "head", "lead", "owner", "partner", "president", "founder",
	"supervisor", "officer", "consultant", "analyst", "developer",
}

// ParseCorrections extracts field:value pairs from a free-text correction
// message. Each line is matched independently; the first pattern that fires
// claims the line. A short single-line message consisting of a known job title
// is treated as a designation correction.
func ParseCorrections(text string) map[string]string {
	updates := make(map[string]string)

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, p := range correctionPatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			value := strings.Trim(strings.TrimSpace(m[1]), ".,;")
			if value != "" && updates[p.field] == "" {
				updates[p.field] = value
			}
			break
		}
	}

	// Bare job title with no field prefix, e.g. "HR Manager".
	if len(updates) == 0 && len(lines) == 1 {
		t := strings.Trim(strings.TrimSpace(text), ".,;")
		if len(strings.Fields(t)) <= 3 {
			lower := strings.ToLower(t)
			for _, kw := range designationKeywords {
				if strings.Contains(lower, kw) {
					updates[CorrectionFieldDesignation] = t
					break
				}
			}
		}
	}

	return updates
}
