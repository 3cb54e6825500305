// pkg/classify/classify.go
package classify

import (
	"go.uber.org/zap"

	"github.com/twi-data/streamwatch-ingress/pkg/model"
)

// Classifier assigns a semantic role to every column of a sheet using an
// ordered rule table with a positional fallback. Classification is a
// heuristic: it never fails, and an unmatched column simply becomes
// unknown.
type Classifier struct {
	rules  []Rule
	logger *zap.Logger
}

// New creates a classifier with the given rule table
func New(rules []Rule) *Classifier {
	return &Classifier{
		rules:  rules,
		logger: zap.L().Named("classifier"),
	}
}

// Default creates a classifier with the StreamWatch rule table
func Default() *Classifier {
	return New(DefaultRules())
}

// ClassifyHeader assigns a role to a single header by rule order. Returns
// RoleUnknown when no rule matches.
func (c *Classifier) ClassifyHeader(header string) model.Role {
	for _, rule := range c.rules {
		if rule.Match(header) {
			return rule.Role
		}
	}
	return model.RoleUnknown
}

// ClassifySheet produces a role assignment for every column of the sheet.
// Keyword rules are tried first. When no column classifies as identifier,
// column 0 becomes the identifier by position; when none classifies as
// date, column 1 becomes the date. The source spreadsheets order their
// columns that way.
func (c *Classifier) ClassifySheet(sheet *model.Sheet) []model.ColumnAssignment {
	assignments := make([]model.ColumnAssignment, len(sheet.Headers))

	haveIdentifier := false
	haveDate := false
	for i, header := range sheet.Headers {
		role := c.ClassifyHeader(header)
		switch role {
		case model.RoleIdentifier:
			haveIdentifier = true
		case model.RoleDate:
			haveDate = true
		}
		assignments[i] = model.ColumnAssignment{
			Index:  i,
			Header: header,
			Role:   role,
		}
	}

	if !haveIdentifier && len(assignments) > 0 && assignments[0].Role == model.RoleUnknown {
		assignments[0].Role = model.RoleIdentifier
		assignments[0].ByPosition = true
	}
	if !haveDate && len(assignments) > 1 && assignments[1].Role == model.RoleUnknown {
		assignments[1].Role = model.RoleDate
		assignments[1].ByPosition = true
	}

	c.logger.Debug("Classified sheet",
		zap.String("sheet", sheet.Name),
		zap.Int("columns", len(assignments)),
		zap.Int("unknown", countUnknown(assignments)))

	return assignments
}

func countUnknown(assignments []model.ColumnAssignment) int {
	n := 0
	for _, a := range assignments {
		if a.Role == model.RoleUnknown {
			n++
		}
	}
	return n
}
