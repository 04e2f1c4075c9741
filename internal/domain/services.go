package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Body length limits per content type. Types not listed are unbounded.
var maxBodyLength = map[ContentType]int{
	ContentSocialMediaPost: 2200,
	ContentEmailCampaign:   100000,
}

// ContentDomainService holds publication policy that spans more than a
// single state transition. It is stateless.
type ContentDomainService struct{}

// ValidateForPublication checks that c may be published right now.
func (ContentDomainService) ValidateForPublication(c *Content) error {
	if c.Status != ContentReady {
		return fmt.Errorf("%w: content is not ready for publication (status %s)", ErrInvalidState, c.Status)
	}
	if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Body) == "" {
		return fmt.Errorf("%w: content is not ready for publication: title and body are required", ErrValidation)
	}
	if limit, ok := maxBodyLength[c.Type]; ok && utf8.RuneCountInString(c.Body) > limit {
		return fmt.Errorf("%w: %s body exceeds %d characters", ErrValidation, c.Type, limit)
	}
	return nil
}

// CanModify reports whether userID may change c.
func (ContentDomainService) CanModify(c *Content, userID string) bool {
	return c.IsOwnedBy(userID)
}

// WorkflowDomainService validates workflow definitions.
type WorkflowDomainService struct{}

// ValidateConfig requires a trigger_type string and a non-empty actions list.
func (WorkflowDomainService) ValidateConfig(cfg map[string]any) error {
	trigger, _ := cfg["trigger_type"].(string)
	if strings.TrimSpace(trigger) == "" {
		return fmt.Errorf("%w: invalid workflow configuration: trigger_type is required", ErrValidation)
	}
	if actionCount(cfg["actions"]) == 0 {
		return fmt.Errorf("%w: invalid workflow configuration: at least one action is required", ErrValidation)
	}
	return nil
}

// CanExecute reports whether w accepts executions.
func (WorkflowDomainService) CanExecute(w *Workflow) bool {
	return w.Status == WorkflowActive
}

// actionCount accepts both typed slices and the []any produced by JSON
// decoding.
func actionCount(v any) int {
	switch a := v.(type) {
	case []any:
		return len(a)
	case []string:
		return len(a)
	case []map[string]any:
		return len(a)
	default:
		return 0
	}
}
