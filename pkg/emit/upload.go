package emit

import "context"

// UploadInfo identifies a file in the remote store.
type UploadInfo struct {
	ID   string
	Link string
}

// Uploader is the optional remote-storage collaborator. Implementations live
// outside this module; NoopUploader stands in when none is configured.
type Uploader interface {
	Upload(ctx context.Context, path, folderID string) (*UploadInfo, error)
}

type noopUploader struct{}

func (noopUploader) Upload(context.Context, string, string) (*UploadInfo, error) {
	return nil, nil
}

// NoopUploader returns an Uploader that does nothing and reports no upload.
func NoopUploader() Uploader { return noopUploader{} }
