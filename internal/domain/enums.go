package domain

import "fmt"

// ContentType enumerates the kinds of content the platform produces.
type ContentType string

const (
	ContentSocialMediaPost    ContentType = "social_media_post"
	ContentBlogArticle        ContentType = "blog_article"
	ContentEmailCampaign      ContentType = "email_campaign"
	ContentProductDescription ContentType = "product_description"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentSocialMediaPost, ContentBlogArticle, ContentEmailCampaign, ContentProductDescription:
		return true
	}
	return false
}

// ParseContentType converts s to a ContentType.
func ParseContentType(s string) (ContentType, error) {
	t := ContentType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown content type %q", ErrValidation, s)
	}
	return t, nil
}

// ContentStatus enumerates the publication lifecycle of a piece of content.
type ContentStatus string

const (
	ContentDraft     ContentStatus = "draft"
	ContentReady     ContentStatus = "ready"
	ContentPublished ContentStatus = "published"
	ContentArchived  ContentStatus = "archived"
)

// Valid reports whether s is a known content status.
func (s ContentStatus) Valid() bool {
	switch s {
	case ContentDraft, ContentReady, ContentPublished, ContentArchived:
		return true
	}
	return false
}

// ParseContentStatus converts s to a ContentStatus.
func ParseContentStatus(s string) (ContentStatus, error) {
	st := ContentStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown content status %q", ErrValidation, s)
	}
	return st, nil
}

// WorkflowStatus enumerates the states of an automation workflow.
type WorkflowStatus string

const (
	WorkflowInactive WorkflowStatus = "inactive"
	WorkflowActive   WorkflowStatus = "active"
	WorkflowError    WorkflowStatus = "error"
	WorkflowPaused   WorkflowStatus = "paused"
)

// Valid reports whether s is a known workflow status.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowInactive, WorkflowActive, WorkflowError, WorkflowPaused:
		return true
	}
	return false
}

// ParseWorkflowStatus converts s to a WorkflowStatus.
func ParseWorkflowStatus(s string) (WorkflowStatus, error) {
	st := WorkflowStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown workflow status %q", ErrValidation, s)
	}
	return st, nil
}
