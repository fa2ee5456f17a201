package services

import (
	"regexp"
	"strings"

	"github.com/sqlgate/sqlgate/pkg/errors"
)

// Policy configures the SQL validator. All fields mirror environment
// configuration; zero values fall back to the defaults below.
type Policy struct {
	AllowedOperations []string `json:"allowed_operations"`
	BlockedKeywords   []string `json:"blocked_keywords"`
	MaxQueryLength    int      `json:"max_query_length"`
	DangerousPatterns []string `json:"dangerous_patterns,omitempty"`
}

// DefaultPolicy returns the stock validation policy: basic DML plus
// CTEs allowed, destructive DDL blocked everywhere in the statement.
func DefaultPolicy() Policy {
	return Policy{
		AllowedOperations: []string{"SELECT", "INSERT", "UPDATE", "DELETE", "WITH"},
		BlockedKeywords:   []string{"DROP", "TRUNCATE", "ALTER"},
		MaxQueryLength:    10000,
	}
}

// readOnlyVerbs are the leading verbs permitted on read-only
// connections.
var readOnlyVerbs = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"EXPLAIN": true,
	"SHOW":    true,
}

type namedPattern struct {
	name string
	re   *regexp.Regexp
}

// defaultDangerousPatterns catch statement smuggling and server-side
// escape hatches regardless of policy keyword lists.
var defaultDangerousPatterns = []namedPattern{
	{"stacked statements", regexp.MustCompile(`;\s*\S`)},
	{"UNION SELECT injection", regexp.MustCompile(`(?i)\bUNION\s+(ALL\s+)?SELECT\b`)},
	{"dynamic execution", regexp.MustCompile(`(?i)\bEXECUTE\b|\bEXEC\s*\(|\bPREPARE\b`)},
	{"file access function", regexp.MustCompile(`(?i)\bpg_read_file\s*\(|\bpg_write_file\s*\(|\bLOAD_FILE\s*\(|\bINTO\s+(OUT|DUMP)FILE\b`)},
	{"server link function", regexp.MustCompile(`(?i)\bdblink\s*\(`)},
	{"sleep function", regexp.MustCompile(`(?i)\bpg_sleep\s*\(|\bBENCHMARK\s*\(|\bSLEEP\s*\(`)},
}

var (
	lineComment  = regexp.MustCompile(`(?m)--.*$`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Validator screens SQL statements against a policy. Pure and
// stateless once constructed: the same statement always yields the
// same verdict.
type Validator struct {
	allowed  map[string]bool
	blocked  []namedPattern
	maxLen   int
	patterns []namedPattern
}

// NewValidator compiles the policy into a Validator.
func NewValidator(policy Policy) (*Validator, error) {
	def := DefaultPolicy()
	if len(policy.AllowedOperations) == 0 {
		policy.AllowedOperations = def.AllowedOperations
	}
	if policy.MaxQueryLength <= 0 {
		policy.MaxQueryLength = def.MaxQueryLength
	}

	allowed := make(map[string]bool, len(policy.AllowedOperations))
	for _, op := range policy.AllowedOperations {
		allowed[strings.ToUpper(strings.TrimSpace(op))] = true
	}

	blocked := make([]namedPattern, 0, len(policy.BlockedKeywords))
	for _, kw := range policy.BlockedKeywords {
		kw = strings.ToUpper(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeInvalidRequest, "blocked keyword %q", kw)
		}
		blocked = append(blocked, namedPattern{name: kw, re: re})
	}

	patterns := make([]namedPattern, len(defaultDangerousPatterns), len(defaultDangerousPatterns)+len(policy.DangerousPatterns))
	copy(patterns, defaultDangerousPatterns)
	for _, src := range policy.DangerousPatterns {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeInvalidRequest, "dangerous pattern %q", src)
		}
		patterns = append(patterns, namedPattern{name: src, re: re})
	}

	return &Validator{
		allowed:  allowed,
		blocked:  blocked,
		maxLen:   policy.MaxQueryLength,
		patterns: patterns,
	}, nil
}

// Validate decides whether a statement may execute. The statement is
// checked as submitted; cleaning applies only to the analysis copy,
// never to what reaches the driver.
func (v *Validator) Validate(statement string) error {
	if strings.TrimSpace(statement) == "" {
		return errors.New(errors.CodePolicyRejected, "statement is empty").
			WithDetail("reason", errors.ReasonEmptyStatement)
	}
	if len(statement) > v.maxLen {
		return errors.Newf(errors.CodePolicyRejected, "statement length %d exceeds maximum %d", len(statement), v.maxLen).
			WithDetail("reason", errors.ReasonTooLong)
	}

	cleaned := cleanStatement(statement)

	// Blocked keywords match as whole words anywhere, including inside
	// string literals. Conservative on purpose; a false positive is
	// preferable to a smuggled DROP.
	for _, kw := range v.blocked {
		if kw.re.MatchString(cleaned) {
			return errors.Newf(errors.CodePolicyRejected, "statement contains blocked keyword %q", kw.name).
				WithDetail("reason", errors.ReasonForbiddenKeyword).
				WithDetail("keyword", kw.name)
		}
	}

	verb := OperationVerb(cleaned)
	if !v.allowed[verb] {
		return errors.Newf(errors.CodePolicyRejected, "operation %q is not allowed", verb).
			WithDetail("reason", errors.ReasonOperationNotAllowed).
			WithDetail("operation", verb)
	}

	trimmed := strings.TrimRight(strings.TrimSpace(cleaned), ";")
	for _, p := range v.patterns {
		if p.re.MatchString(trimmed) {
			return errors.Newf(errors.CodePolicyRejected, "statement matches dangerous pattern: %s", p.name).
				WithDetail("reason", errors.ReasonSuspiciousPattern).
				WithDetail("pattern", p.name)
		}
	}

	return nil
}

// ValidateReadOnly additionally requires a read-only leading verb.
func (v *Validator) ValidateReadOnly(statement string) error {
	if err := v.Validate(statement); err != nil {
		return err
	}
	verb := OperationVerb(cleanStatement(statement))
	if !readOnlyVerbs[verb] {
		return errors.Newf(errors.CodePolicyRejected, "operation %q is not allowed on a read-only connection", verb).
			WithDetail("reason", errors.ReasonReadonlyViolation).
			WithDetail("operation", verb)
	}
	return nil
}

// OperationVerb returns the uppercased first token of a statement.
func OperationVerb(statement string) string {
	fields := strings.Fields(statement)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// cleanStatement strips comments and collapses whitespace for
// analysis.
func cleanStatement(statement string) string {
	cleaned := lineComment.ReplaceAllString(statement, " ")
	cleaned = blockComment.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(cleaned, " "))
}
