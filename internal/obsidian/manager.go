package obsidian

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BoweyLou/obssync/internal/model"
	"github.com/BoweyLou/obssync/internal/syncerr"
)

// Manager is the filesystem-backed Obsidian side of the sync: it lists,
// updates, creates, and deletes individual task lines across a vault
// directory tree.
type Manager struct {
	vaultID string
	root    string
}

// New constructs a Manager rooted at root, which must exist and be a
// directory.
func New(vaultID, root string) (*Manager, error) {
	if root == "" {
		return nil, syncerr.New(syncerr.ConfigurationError, "obsidian.New", errors.New("vault root cannot be empty"))
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, syncerr.New(syncerr.VaultAccessError, "obsidian.New", err)
	}
	if !info.IsDir() {
		return nil, syncerr.Newf(syncerr.VaultAccessError, "obsidian.New", "vault root %q is not a directory", root)
	}
	return &Manager{vaultID: vaultID, root: filepath.Clean(root)}, nil
}

// ListTasks walks the vault and returns every task line as a
// model.ObsidianTask, assigning a block id (and persisting it back to
// the file) for any task line found without one.
func (m *Manager) ListTasks(ctx context.Context) ([]model.ObsidianTask, error) {
	paths, err := m.listMarkdownFiles(ctx)
	if err != nil {
		return nil, err
	}

	var tasks []model.ObsidianTask
	for _, path := range paths {
		if err := ensureContext(ctx); err != nil {
			return nil, err
		}
		fileTasks, err := m.listTasksInFile(path)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, fileTasks...)
	}
	return tasks, nil
}

func (m *Manager) listTasksInFile(relPath string) ([]model.ObsidianTask, error) {
	fullPath := filepath.Join(m.root, relPath)
	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, syncerr.New(syncerr.VaultAccessError, "obsidian.ListTasks", err)
	}
	content := string(raw)

	parsed := ParseFile(m.vaultID, relPath, content)

	lines := strings.Split(content, "\n")
	assigned := false
	var tasks []model.ObsidianTask
	for i := range parsed {
		p := &parsed[i]
		if !p.HasID {
			p.Task.ID = newBlockID()
			lines[p.LineIndex] = RenderLine(p.Task)
			assigned = true
		}
		tasks = append(tasks, p.Task)
	}

	if assigned {
		if err := atomicWriteFile(fullPath, []byte(strings.Join(lines, "\n"))); err != nil {
			return nil, syncerr.New(syncerr.VaultAccessError, "obsidian.ListTasks", err)
		}
	}
	return tasks, nil
}

// UpdateTask rewrites a single task's line in place, matched by block
// id. Returns syncerr.NotFoundError if no task with that id exists.
func (m *Manager) UpdateTask(ctx context.Context, t model.ObsidianTask) error {
	if err := ensureContext(ctx); err != nil {
		return err
	}
	fullPath, lineIndex, lines, err := m.locate(t.VaultID, t.FilePath, t.ID)
	if err != nil {
		return err
	}
	lines[lineIndex] = indentOf(lines[lineIndex]) + RenderLine(t)
	return atomicWriteFile(fullPath, []byte(strings.Join(lines, "\n")))
}

// CreateTask appends a new task line to the vault's inbox file (or the
// router-selected file/heading), assigning it a fresh block id.
func (m *Manager) CreateTask(ctx context.Context, t model.ObsidianTask, heading string) (model.ObsidianTask, error) {
	if err := ensureContext(ctx); err != nil {
		return model.ObsidianTask{}, err
	}
	if t.ID == "" {
		t.ID = newBlockID()
	}
	fullPath := filepath.Join(m.root, t.FilePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return model.ObsidianTask{}, syncerr.New(syncerr.VaultAccessError, "obsidian.CreateTask", err)
	}

	var content []byte
	existing, err := os.ReadFile(fullPath)
	switch {
	case err == nil:
		content = existing
	case os.IsNotExist(err):
		content = nil
	default:
		return model.ObsidianTask{}, syncerr.New(syncerr.VaultAccessError, "obsidian.CreateTask", err)
	}

	lines := strings.Split(string(content), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}

	if heading != "" {
		lines = appendUnderHeading(lines, heading, RenderLine(t))
	} else {
		lines = append(lines, RenderLine(t))
	}

	if err := atomicWriteFile(fullPath, []byte(strings.Join(lines, "\n")+"\n")); err != nil {
		return model.ObsidianTask{}, syncerr.New(syncerr.VaultAccessError, "obsidian.CreateTask", err)
	}
	return t, nil
}

// DeleteTask removes the task line matching id from the file.
func (m *Manager) DeleteTask(ctx context.Context, vaultID, filePath, id string) error {
	if err := ensureContext(ctx); err != nil {
		return err
	}
	fullPath, lineIndex, lines, err := m.locate(vaultID, filePath, id)
	if err != nil {
		return err
	}
	lines = append(lines[:lineIndex], lines[lineIndex+1:]...)
	return atomicWriteFile(fullPath, []byte(strings.Join(lines, "\n")))
}

func (m *Manager) locate(vaultID, filePath, id string) (fullPath string, lineIndex int, lines []string, err error) {
	fullPath = filepath.Join(m.root, filePath)
	raw, readErr := os.ReadFile(fullPath)
	if readErr != nil {
		return "", 0, nil, syncerr.New(syncerr.VaultAccessError, "obsidian.locate", readErr)
	}
	lines = strings.Split(string(raw), "\n")
	for _, parsed := range ParseFile(vaultID, filePath, string(raw)) {
		if parsed.Task.ID == id {
			return fullPath, parsed.LineIndex, lines, nil
		}
	}
	return "", 0, nil, syncerr.Newf(syncerr.NotFoundError, "obsidian.locate", "task %q not found in %q", id, filePath)
}

func (m *Manager) listMarkdownFiles(ctx context.Context) ([]string, error) {
	if err := ensureContext(ctx); err != nil {
		return nil, err
	}
	var paths []string
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(d.Name()) != ".md" {
			return nil
		}
		if err := ensureContext(ctx); err != nil {
			return err
		}
		rel, err := filepath.Rel(m.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, syncerr.New(syncerr.VaultAccessError, "obsidian.listMarkdownFiles", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func appendUnderHeading(lines []string, heading, newLine string) []string {
	target := strings.TrimSpace(heading)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.TrimSpace(strings.TrimLeft(trimmed, "#")) != target {
			continue
		}
		insertAt := i + 1
		for insertAt < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[insertAt]), "#") {
			insertAt++
		}
		out := make([]string, 0, len(lines)+1)
		out = append(out, lines[:insertAt]...)
		out = append(out, newLine)
		out = append(out, lines[insertAt:]...)
		return out
	}
	out := append([]string{}, lines...)
	out = append(out, fmt.Sprintf("## %s", target), newLine)
	return out
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

func newBlockID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// atomicWriteFile writes data to a temp file in the same directory and
// renames it over path, skipping the write entirely when the content is
// unchanged. Every vault write goes through here.
func atomicWriteFile(path string, data []byte) error {
	if existing, err := os.ReadFile(path); err == nil && string(existing) == string(data) {
		return nil
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".obssync-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func ensureContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
