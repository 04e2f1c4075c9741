package content

import (
	"context"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/service/ports"
)

// GetContent reads a single piece of content.
type GetContent struct {
	ContentID string
}

// GetContentHandler handles GetContent.
type GetContentHandler struct {
	repo Repository
}

func NewGetContentHandler(repo Repository) *GetContentHandler {
	return &GetContentHandler{repo: repo}
}

// Handle returns (nil, nil) when the content does not exist.
func (h *GetContentHandler) Handle(ctx context.Context, q GetContent) (*domain.Content, error) {
	c, err := h.repo.GetByID(ctx, q.ContentID)
	if err != nil {
		return nil, ports.Persistence("get content "+q.ContentID, err)
	}
	return c, nil
}

// ListContents pages through content matching Filter.
type ListContents struct {
	Filter ListFilter
}

// ListContentsHandler handles ListContents.
type ListContentsHandler struct {
	repo Repository
}

func NewListContentsHandler(repo Repository) *ListContentsHandler {
	return &ListContentsHandler{repo: repo}
}

func (h *ListContentsHandler) Handle(ctx context.Context, q ListContents) ([]*domain.Content, error) {
	items, err := h.repo.List(ctx, q.Filter)
	if err != nil {
		return nil, ports.Persistence("list contents", err)
	}
	return items, nil
}
