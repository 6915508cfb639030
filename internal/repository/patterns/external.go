package patterns

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bcwatch/kqlbridge/internal/domain"
)

// maxReferenceBytes caps a single fetched reference file. External sources
// are query snippets, not datasets.
const maxReferenceBytes = 1 << 20

// Reference is one configured external query source: a display name and the
// raw file URLs to fetch from it.
type Reference struct {
	Name string
	URLs []string
}

// ExternalProvider fetches reference query files from configured sources.
type ExternalProvider struct {
	refs    []Reference
	client  *http.Client
	logger  *zap.Logger
	timeout time.Duration
}

// NewExternalProvider creates a provider over the configured references.
func NewExternalProvider(refs []Reference, timeout time.Duration, logger *zap.Logger) *ExternalProvider {
	return &ExternalProvider{
		refs:    refs,
		client:  &http.Client{},
		logger:  logger,
		timeout: timeout,
	}
}

// WithHTTPClient overrides the HTTP client. Test hook.
func (p *ExternalProvider) WithHTTPClient(c *http.Client) *ExternalProvider {
	p.client = c
	return p
}

// List fetches a snapshot of all external reference candidates. A source
// that fails to fetch is skipped with a warning so one unreachable host
// does not blank out the rest.
func (p *ExternalProvider) List(ctx context.Context) ([]domain.Candidate, error) {
	var candidates []domain.Candidate

	for _, ref := range p.refs {
		for _, rawURL := range ref.URLs {
			content, err := p.fetch(ctx, rawURL)
			if err != nil {
				p.logger.Warn("Skipping external reference file",
					zap.String("reference", ref.Name),
					zap.String("url", rawURL),
					zap.Error(err),
				)
				continue
			}
			if strings.TrimSpace(content) == "" {
				continue
			}
			candidates = append(candidates, domain.NewExternalCandidate(ref.Name, fileName(rawURL), content))
		}
	}

	return candidates, nil
}

func (p *ExternalProvider) fetch(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	return path.Base(u.Path)
}
