package storage

import "context"

// Remote is an interface stub for a cloud object-store backend (S3, GCS,
// Azure Blob, Backblaze B2, MinIO). Wiring real credentials and SDK
// clients for any of these is out of scope; Remote exists so the rest of
// the system (backend selection by Kind, odb wiring) can be written
// against a stable Backend implementation without waiting on that work.
type Remote struct {
	kind Kind
}

// NewRemote returns a Remote stub for the given kind. Every operation
// returns ErrBackendUnavailable until a real client is wired in.
func NewRemote(kind Kind) *Remote {
	return &Remote{kind: kind}
}

func (r *Remote) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, ErrBackendUnavailable
}

func (r *Remote) Put(ctx context.Context, key string, data []byte) error {
	return ErrBackendUnavailable
}

func (r *Remote) Exists(ctx context.Context, key string) (bool, error) {
	return false, ErrBackendUnavailable
}

func (r *Remote) Delete(ctx context.Context, key string) error {
	return ErrBackendUnavailable
}

func (r *Remote) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	return nil, ErrBackendUnavailable
}

var _ Backend = (*Remote)(nil)
