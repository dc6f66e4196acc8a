// Package platform integrates with the hosted code-generation platform that
// serves as an alternative build target: instead of the local builder stage
// writing files, a synthesized prompt is applied to a platform project and
// the platform returns a deployed preview. The package exposes a small
// Client interface so the pipeline can be tested against a fake.
package platform

import (
	"context"
	"errors"
)

// ErrNoVersion is returned when a download is requested for a room whose
// project has never produced a version.
var ErrNoVersion = errors.New("platform: no version available")

// ProjectContext identifies the platform-side state attached to a room:
// the project, its control chat, and the most recent version/deployment.
type ProjectContext struct {
	ProjectID    string
	ChatID       string
	VersionID    string
	DeploymentID string
	PreviewURL   string
}

// ApplyPromptOptions tunes a single prompt application.
type ApplyPromptOptions struct {
	// ChatID reuses an existing chat; empty means a fresh chat is created
	// for the project.
	ChatID string
	// Context labels the chat with the owning room when a chat is created.
	Context string
}

// Client is the platform contract used by the pipeline's platform cycle and
// by the download handler.
type Client interface {
	// CreateProject provisions a project plus its control chat for a room.
	CreateProject(ctx context.Context, roomID string) (*ProjectContext, error)

	// ApplyPrompt sends a synthesized prompt to the project's chat and kicks
	// off a deployment of the produced version.
	ApplyPrompt(ctx context.Context, projectID, prompt string, opts ApplyPromptOptions) (*ProjectContext, error)

	// LatestPreviewURL returns the preview URL of the newest deployment, or
	// empty when none exists yet.
	LatestPreviewURL(ctx context.Context, projectID string) (string, error)

	// DownloadVersion fetches the zip archive of one generated version.
	DownloadVersion(ctx context.Context, chatID, versionID string) ([]byte, error)
}
