package drive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google/batch"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
	"github.com/custodia-labs/gapps-cli/internal/logger"
)

// SkipDir is returned from a WalkFunc to skip the contents of a folder.
var SkipDir = errors.New("skip this folder")

// SkipAll is returned from a WalkFunc to stop the walk without error.
var SkipAll = errors.New("skip everything")

// WalkFunc is called for every file below the walk root. The path is
// relative to the root and built from file titles.
type WalkFunc func(path string, file *domain.File) error

// FolderChildren lists the untrashed children of several folders in one batch.
// The map holds an entry for every folder that was listed successfully; the
// error joins a *batch.Error per folder that failed.
func (c *Client) FolderChildren(ctx context.Context, folderIDs ...string) (map[string][]domain.File, error) {
	children := make(map[string][]domain.File, len(folderIDs))
	if len(folderIDs) == 0 {
		return children, nil
	}

	reqs := make([]batch.Request[domain.File], len(folderIDs))
	for i, id := range folderIDs {
		q := Render(And(ChildrenOf(id), NotTrashed()))
		reqs[i] = c.listRequest(q, "folder,name", c.cfg.PageSize)
	}

	results, err := batch.Execute(ctx, reqs, c.batchOptions())
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	for i, res := range results {
		if res.Err == nil {
			children[folderIDs[i]] = res.Items
		}
	}
	if err != nil {
		return children, fmt.Errorf("list folder children: %w", err)
	}
	return children, nil
}

type walkNode struct {
	id   string
	path string
}

// WalkFolder visits the tree below rootID breadth first. Each depth level is
// listed as one batch. Files are visited in name order within a folder, and a
// folder reachable through several parents is visited once.
func (c *Client) WalkFolder(ctx context.Context, rootID string, fn WalkFunc) error {
	visited := map[string]bool{rootID: true}
	level := []walkNode{{id: rootID}}

	for depth := 1; len(level) > 0; depth++ {
		ids := make([]string, len(level))
		for i, n := range level {
			ids[i] = n.id
		}
		logger.Debug("Walking depth %d: %d folder(s)", depth, len(ids))

		children, err := c.FolderChildren(ctx, ids...)
		if err != nil {
			return err
		}

		var next []walkNode
		for _, parent := range level {
			files := children[parent.id]
			sort.SliceStable(files, func(i, j int) bool { return files[i].Title < files[j].Title })

			for i := range files {
				f := &files[i]
				if visited[f.ID] {
					continue
				}
				visited[f.ID] = true

				p := path.Join(parent.path, f.Title)
				err := fn(p, f)
				switch {
				case errors.Is(err, SkipAll):
					return nil
				case errors.Is(err, SkipDir):
					continue
				case err != nil:
					return err
				}

				if f.IsFolder() {
					next = append(next, walkNode{id: f.ID, path: p})
				}
			}
		}
		level = next
	}

	return nil
}
