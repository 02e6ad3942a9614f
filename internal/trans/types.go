package trans

import "context"

// Provider translates a batch of subtitle texts. The returned mapping
// is keyed by source text; a partial or empty mapping is a valid
// best-effort result.
type Provider interface {
	BatchTranslate(ctx context.Context, texts []string) (map[string]string, error)
}
