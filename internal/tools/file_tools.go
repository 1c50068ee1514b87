package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Neuron-OS/neuronos-sub000/internal/jsonx"
)

// maxReadBytes caps file_read output so a large file cannot blow the
// model's context.
const maxReadBytes = 50 * 1024

// FileTools provides file read/write tools confined to a workspace
// directory. Both tools require CapFilesystem.
type FileTools struct {
	workspacePath string
}

// NewFileTools creates file tools rooted at workspacePath. An empty
// path disables them (handlers report the workspace as unconfigured).
func NewFileTools(workspacePath string) *FileTools {
	return &FileTools{workspacePath: workspacePath}
}

// Tools returns the file_read and file_write descriptors.
func (ft *FileTools) Tools() []*Tool {
	return []*Tool{
		{
			Name:        "file_read",
			Description: "Read a file from the workspace. Paths are relative to the workspace root.",
			Schema: `{"type":"object","properties":{` +
				`"path":{"type":"string","description":"File path relative to the workspace"}},` +
				`"required":["path"]}`,
			Requires: CapFilesystem,
			Handler:  ft.handleRead,
		},
		{
			Name:        "file_write",
			Description: "Write content to a file in the workspace, creating parent directories as needed.",
			Schema: `{"type":"object","properties":{` +
				`"path":{"type":"string","description":"File path relative to the workspace"},` +
				`"content":{"type":"string","description":"Content to write"}},` +
				`"required":["path","content"]}`,
			Requires: CapFilesystem,
			Handler:  ft.handleWrite,
		},
	}
}

// resolvePath converts a tool-supplied path to an absolute path inside
// the workspace, rejecting anything that escapes it.
func (ft *FileTools) resolvePath(path string) (string, error) {
	if ft.workspacePath == "" {
		return "", fmt.Errorf("workspace not configured")
	}

	workspaceAbs, err := filepath.Abs(ft.workspacePath)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}

	var absPath string
	if filepath.IsAbs(path) {
		absPath = filepath.Clean(path)
	} else {
		absPath = filepath.Clean(filepath.Join(workspaceAbs, path))
	}

	if absPath != workspaceAbs && !strings.HasPrefix(absPath, workspaceAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", path)
	}

	return absPath, nil
}

func (ft *FileTools) handleRead(_ context.Context, argsJSON string) Result {
	path := jsonx.FindString(argsJSON, "path", "")
	if path == "" {
		return Fail("path is required")
	}

	absPath, err := ft.resolvePath(path)
	if err != nil {
		return Fail(err.Error())
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Fail(fmt.Sprintf("file not found: %s", path))
		}
		return Fail(fmt.Sprintf("read file: %v", err))
	}

	content := string(data)
	if len(content) > maxReadBytes {
		content = content[:maxReadBytes] + "\n\n[... truncated ...]"
	}
	return Ok(content)
}

func (ft *FileTools) handleWrite(_ context.Context, argsJSON string) Result {
	path := jsonx.FindString(argsJSON, "path", "")
	if path == "" {
		return Fail("path is required")
	}
	content := jsonx.FindString(argsJSON, "content", "")

	absPath, err := ft.resolvePath(path)
	if err != nil {
		return Fail(err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return Fail(fmt.Sprintf("create directories: %v", err))
	}
	if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
		return Fail(fmt.Sprintf("write file: %v", err))
	}

	return Ok(fmt.Sprintf("wrote %d bytes to %s", len(content), path))
}
