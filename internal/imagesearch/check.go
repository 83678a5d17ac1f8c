package imagesearch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/personahub/persona-backend/internal/types"
)

// HeadChecker verifies that a URL resolves to an image resource using a HEAD
// request. Persona creation rejects image references that do not pass.
type HeadChecker struct {
	httpClient *http.Client
}

// NewHeadChecker creates a HeadChecker with a sane timeout.
func NewHeadChecker() *HeadChecker {
	return &HeadChecker{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CheckImage returns nil if the URL responds to HEAD with an image
// Content-Type.
func (h *HeadChecker) CheckImage(ctx context.Context, imageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return fmt.Errorf("%w: invalid image url", types.ErrValidation)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: image url is unreachable", types.ErrValidation)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: image url returned status %d", types.ErrValidation, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: url does not point to an image (content-type %q)", types.ErrValidation, ct)
	}
	return nil
}
