// Package model defines the Canvas course resources the sync engine moves
// between Canvas and the local course folder.
package model

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a Canvas course resource.
type Kind string

const (
	KindPage       Kind = "page"
	KindAssignment Kind = "assignment"
	KindDiscussion Kind = "discussion"
	KindRubric     Kind = "rubric"
	KindModuleItem Kind = "module_item"
	KindSubmission Kind = "submission"
)

// IsValid returns true if the kind is recognized.
func (k Kind) IsValid() bool {
	switch k {
	case KindPage, KindAssignment, KindDiscussion, KindRubric, KindModuleItem, KindSubmission:
		return true
	default:
		return false
	}
}

// AllKinds returns every resource kind in canonical order.
func AllKinds() []Kind {
	return []Kind{KindPage, KindAssignment, KindDiscussion, KindRubric, KindModuleItem, KindSubmission}
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Subdir returns the course-relative directory that holds documents of this kind.
// Module items live in per-module directories and return an empty string.
func (k Kind) Subdir() string {
	switch k {
	case KindPage:
		return "pages"
	case KindAssignment:
		return "assignments"
	case KindDiscussion:
		return "discussions"
	case KindRubric:
		return "rubrics"
	case KindSubmission:
		return "submissions"
	default:
		return ""
	}
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))

	k := Kind(normalized)
	if k.IsValid() {
		return k, nil
	}

	switch normalized {
	case "pages", "wiki_page", "wikipage":
		return KindPage, nil
	case "assignments":
		return KindAssignment, nil
	case "discussions", "discussion_topic", "topic":
		return KindDiscussion, nil
	case "rubrics":
		return KindRubric, nil
	case "module-item", "moduleitem", "item":
		return KindModuleItem, nil
	case "submissions":
		return KindSubmission, nil
	default:
		return "", fmt.Errorf("unknown resource kind %q", s)
	}
}
