package council

import "context"

// Backend is the interface model-head adapters must implement. A single
// backend may serve several model ids (one inference server hosting
// multiple heads).
type Backend interface {
	// Name returns the backend identifier (e.g. "local-vllm", "openai").
	Name() string

	// ServesModel returns true if this backend can handle the given head.
	ServesModel(model ModelID) bool

	// Generate performs a synchronous completion. When the context is
	// cancelled mid-generation, implementations should still report any
	// tokens already produced so they can be billed.
	Generate(ctx context.Context, req GenRequest) (GenResponse, error)
}

// GenRequest is the request sent to a backend adapter.
type GenRequest struct {
	Model     ModelID
	Prompt    string
	MaxTokens int
}

// GenResponse is the response from a backend adapter.
type GenResponse struct {
	Text       string
	TokensUsed int
}

// BackendSet resolves model ids to the backend serving them.
type BackendSet struct {
	backends []Backend
}

// NewBackendSet creates a set from the given backends. Lookup order
// follows registration order.
func NewBackendSet(backends ...Backend) *BackendSet {
	return &BackendSet{backends: backends}
}

// For returns the backend serving the given model.
func (s *BackendSet) For(model ModelID) (Backend, bool) {
	for _, b := range s.backends {
		if b.ServesModel(model) {
			return b, true
		}
	}
	return nil, false
}
