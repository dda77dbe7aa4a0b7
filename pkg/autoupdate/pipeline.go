// Package autoupdate drives the code-update-and-redeploy pipeline: fetch
// the target file's current state, commit the replacement, trigger a
// redeploy. Each step is a hard dependency on the previous one succeeding.
// A deploy failure after a successful commit is not rolled back; that
// partial state is reported distinctly so the operator knows a manual
// redeploy may be needed.
package autoupdate

import (
	"context"
	"errors"
	"fmt"

	"github.com/golix/golix-bridge/pkg/logger"
)

var (
	ErrInvalidRequest = errors.New("commit message and file content are required")
	ErrFetchFailed    = errors.New("fetching current file state failed")
	ErrCommitFailed   = errors.New("committing new file content failed")
	ErrDeployFailed   = errors.New("code updated but deploy not triggered")
)

// Stage reports how far the pipeline got.
type Stage string

const (
	StageNone      Stage = "none"      // nothing happened
	StageFetched   Stage = "fetched"   // current SHA retrieved, commit not attempted or failed
	StageCommitted Stage = "committed" // code landed, deploy not triggered
	StageDeployed  Stage = "deployed"  // full success
)

type Result struct {
	Stage Stage
	Err   error
}

// CodeHost is the code-hosting collaborator. The SHA from FileSHA is the
// expected-current-state precondition for CommitFile.
type CodeHost interface {
	FileSHA(ctx context.Context, path string) (string, error)
	CommitFile(ctx context.Context, path, message string, content []byte, sha string) error
}

// Deployer is the deployment-trigger collaborator.
type Deployer interface {
	TriggerDeploy(ctx context.Context) error
}

type Pipeline struct {
	host     CodeHost
	deployer Deployer
	filePath string
}

func NewPipeline(host CodeHost, deployer Deployer, filePath string) *Pipeline {
	return &Pipeline{
		host:     host,
		deployer: deployer,
		filePath: filePath,
	}
}

// Run executes the three remote steps in order. The returned Result's
// Err wraps one of the sentinel errors above; Stage tells the caller
// whether "nothing happened" or "code updated but deploy not triggered".
func (p *Pipeline) Run(ctx context.Context, commitMessage, fileContent string) Result {
	if commitMessage == "" || fileContent == "" {
		return Result{Stage: StageNone, Err: ErrInvalidRequest}
	}

	sha, err := p.host.FileSHA(ctx, p.filePath)
	if err != nil {
		logger.ErrorCF("autoupdate", "fetch of current file state failed", map[string]any{
			"path":  p.filePath,
			"error": err.Error(),
		})
		return Result{Stage: StageNone, Err: fmt.Errorf("%w: %v", ErrFetchFailed, err)}
	}

	if err := p.host.CommitFile(ctx, p.filePath, commitMessage, []byte(fileContent), sha); err != nil {
		logger.ErrorCF("autoupdate", "commit failed", map[string]any{
			"path":  p.filePath,
			"sha":   sha,
			"error": err.Error(),
		})
		return Result{Stage: StageFetched, Err: fmt.Errorf("%w: %v", ErrCommitFailed, err)}
	}

	logger.InfoCF("autoupdate", "file committed", map[string]any{
		"path":    p.filePath,
		"message": commitMessage,
	})

	if err := p.deployer.TriggerDeploy(ctx); err != nil {
		logger.ErrorCF("autoupdate", "deploy trigger failed after commit", map[string]any{
			"error": err.Error(),
		})
		return Result{Stage: StageCommitted, Err: fmt.Errorf("%w: %v", ErrDeployFailed, err)}
	}

	logger.InfoC("autoupdate", "deploy triggered")
	return Result{Stage: StageDeployed}
}
