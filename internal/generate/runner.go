// Package generate adapts the external artifact generator. Rendering and
// trait selection live in a separate tool; this package only invokes it and
// enforces the filesystem contract the pipeline relies on.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

// Runner shells out to the configured generator command. Output paths are
// derived from the member id, so re-running after a failure overwrites the
// previous attempt instead of accumulating files.
type Runner struct {
	command    string
	assetDir   string
	outputDir  string
	configPath string
	logger     *slog.Logger
}

func NewRunner(command, assetDir, outputDir, configPath string, logger *slog.Logger) *Runner {
	return &Runner{
		command:    command,
		assetDir:   assetDir,
		outputDir:  outputDir,
		configPath: configPath,
		logger:     logger,
	}
}

// ArtifactPath returns where the artifact for a member lands.
func (r *Runner) ArtifactPath(memberID id.MemberID) string {
	return filepath.Join(r.outputDir, memberID.String()+".png")
}

// MetadataPath returns where the metadata document for a member lands.
func (r *Runner) MetadataPath(memberID id.MemberID) string {
	return filepath.Join(r.outputDir, memberID.String()+".json")
}

// Generate renders the artifact for the member and returns its path.
func (r *Runner) Generate(ctx context.Context, memberID id.MemberID) (string, error) {
	if r.command == "" {
		return "", dErrors.New(dErrors.CodeGeneration, "no generator command configured")
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeGeneration, "create output directory")
	}

	out := r.ArtifactPath(memberID)
	r.logger.DebugContext(ctx, "running generator", "member_id", memberID, "out", out)
	cmd := exec.CommandContext(ctx, r.command,
		"generate",
		"--member", memberID.String(),
		"--assets", r.assetDir,
		"--out", out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", dErrors.Wrap(
			fmt.Errorf("%w: %s", err, output),
			dErrors.CodeGeneration, "generator command failed",
		)
	}

	if _, err := os.Stat(out); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeGeneration, "generator produced no artifact")
	}
	return out, nil
}

// GenerateMetadata renders the metadata document for the member. A missing
// config file is a generation error; the caller decides whether metadata is
// required for the pipeline to proceed.
func (r *Runner) GenerateMetadata(ctx context.Context, memberID id.MemberID) error {
	if r.command == "" {
		return dErrors.New(dErrors.CodeGeneration, "no generator command configured")
	}
	if _, err := os.Stat(r.configPath); err != nil {
		return dErrors.Wrap(err, dErrors.CodeGeneration, "metadata config missing")
	}

	r.logger.DebugContext(ctx, "running metadata generator", "member_id", memberID)
	cmd := exec.CommandContext(ctx, r.command,
		"metadata",
		"--member", memberID.String(),
		"--config", r.configPath,
		"--out", r.MetadataPath(memberID),
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return dErrors.Wrap(
			fmt.Errorf("%w: %s", err, output),
			dErrors.CodeGeneration, "metadata command failed",
		)
	}
	return nil
}
