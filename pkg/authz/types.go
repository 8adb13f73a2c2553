package authz

import (
	"strings"
)

const (
	subjectUserPrefix     = "user"
	rolePrefix            = "role"
	objectSeparator       = "."
	subjectSeparator      = ":"
	defaultActionWildcard = "*"
	anonymousSubject      = "anonymous"
)

// Request encapsulates all parameters required to evaluate a Casbin rule.
type Request struct {
	Subject string
	Domain  string
	Object  string
	Action  string
}

func NewRequest(subject, domain, object, action string) Request {
	return Request{
		Subject: NormalizeSubject(subject),
		Domain:  strings.ToLower(strings.TrimSpace(domain)),
		Object:  NormalizeObject(object),
		Action:  NormalizeAction(action),
	}
}

// SubjectForUser builds a subject identifier in the form user:{id}.
func SubjectForUser(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = anonymousSubject
	}
	return subjectUserPrefix + subjectSeparator + userID
}

// SubjectForRole returns the canonical identifier for a role-based subject.
func SubjectForRole(roleSlug string) string {
	roleSlug = strings.TrimSpace(roleSlug)
	if roleSlug == "" {
		roleSlug = "unnamed"
	}
	if strings.HasPrefix(roleSlug, rolePrefix+subjectSeparator) {
		return roleSlug
	}
	return rolePrefix + subjectSeparator + strings.ToLower(roleSlug)
}

// NormalizeSubject accepts either a qualified subject (user:x, role:y) or a
// bare user id, and returns the qualified form.
func NormalizeSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	switch {
	case subject == "":
		return SubjectForUser("")
	case strings.HasPrefix(subject, subjectUserPrefix+subjectSeparator),
		strings.HasPrefix(subject, rolePrefix+subjectSeparator):
		return subject
	default:
		return SubjectForUser(subject)
	}
}

// ObjectName returns the canonical module.resource string, lowercased.
func ObjectName(module, resource string) string {
	module = strings.ToLower(strings.TrimSpace(module))
	resource = strings.ToLower(strings.TrimSpace(resource))
	if module == "" {
		module = "global"
	}
	if resource == "" {
		resource = "resource"
	}
	return module + objectSeparator + resource
}

func NormalizeObject(object string) string {
	return strings.ToLower(strings.TrimSpace(object))
}

// NormalizeAction returns a normalized action string.
func NormalizeAction(action string) string {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		return defaultActionWildcard
	}
	return action
}
