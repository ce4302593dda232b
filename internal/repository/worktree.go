package repository

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
	utildiff "github.com/go-git/go-git/v5/utils/diff"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Worktree is a local git checkout whose uncommitted changes can be reviewed.
type Worktree struct {
	repo *gogit.Repository
	root string
}

// OpenWorktree opens the repository containing path, walking up to find .git.
func OpenWorktree(path string) (*Worktree, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	return &Worktree{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the top-level directory of the checkout.
func (w *Worktree) Root() string { return w.root }

// ChangedFiles lists paths (relative to Root) that differ from HEAD,
// including untracked files, sorted.
func (w *Worktree) ChangedFiles() ([]string, error) {
	wt, err := w.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}
	var paths []string
	for path, st := range status {
		if st.Worktree == gogit.Unmodified && st.Staging == gogit.Unmodified {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// Patch renders the working tree changes against HEAD as a unified diff.
// An empty string means there is nothing to review.
func (w *Worktree) Patch() (string, error) {
	paths, err := w.ChangedFiles()
	if err != nil {
		return "", err
	}
	head, err := w.headTree()
	if err != nil {
		return "", err
	}

	p := &patch{}
	for _, path := range paths {
		fp, err := w.filePatch(head, path)
		if err != nil {
			return "", err
		}
		if fp != nil {
			p.files = append(p.files, fp)
		}
	}
	if len(p.files) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := fdiff.NewUnifiedEncoder(&buf, fdiff.DefaultContextLines).Encode(p); err != nil {
		return "", fmt.Errorf("encoding patch: %w", err)
	}
	return buf.String(), nil
}

// headTree returns nil for a repository without commits.
func (w *Worktree) headTree() (*object.Tree, error) {
	ref, err := w.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	commit, err := w.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("loading HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading HEAD tree: %w", err)
	}
	return tree, nil
}

func (w *Worktree) filePatch(head *object.Tree, path string) (*filePatch, error) {
	fp := &filePatch{}

	var before string
	if head != nil {
		f, err := head.File(path)
		switch {
		case errors.Is(err, object.ErrFileNotFound):
		case err != nil:
			return nil, fmt.Errorf("reading %s from HEAD: %w", path, err)
		default:
			if before, err = f.Contents(); err != nil {
				return nil, fmt.Errorf("reading %s from HEAD: %w", path, err)
			}
			fp.from = &file{path: path, hash: f.Hash, mode: f.Mode}
		}
	}

	var after string
	data, err := os.ReadFile(filepath.Join(w.root, filepath.FromSlash(path)))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	default:
		after = string(data)
		fp.to = &file{
			path: path,
			hash: plumbing.ComputeHash(plumbing.BlobObject, data),
			mode: filemode.Regular,
		}
	}

	if fp.from == nil && fp.to == nil {
		return nil, nil
	}
	if fp.from != nil && fp.to != nil && fp.from.hash == fp.to.hash {
		return nil, nil
	}
	fp.binary = bytes.IndexByte(data, 0) >= 0

	for _, d := range utildiff.Do(before, after) {
		fp.chunks = append(fp.chunks, chunk{content: d.Text, op: operation(d.Type)})
	}
	return fp, nil
}

func operation(t diffmatchpatch.Operation) fdiff.Operation {
	switch t {
	case diffmatchpatch.DiffInsert:
		return fdiff.Add
	case diffmatchpatch.DiffDelete:
		return fdiff.Delete
	default:
		return fdiff.Equal
	}
}

// patch, filePatch, file and chunk implement the go-git diff interfaces so
// the working tree can be rendered with its unified encoder.
type patch struct {
	files []fdiff.FilePatch
}

func (p *patch) FilePatches() []fdiff.FilePatch { return p.files }
func (p *patch) Message() string                { return "" }

type filePatch struct {
	from, to *file
	binary   bool
	chunks   []fdiff.Chunk
}

func (p *filePatch) IsBinary() bool { return p.binary }

func (p *filePatch) Files() (fdiff.File, fdiff.File) {
	var from, to fdiff.File
	if p.from != nil {
		from = p.from
	}
	if p.to != nil {
		to = p.to
	}
	return from, to
}

func (p *filePatch) Chunks() []fdiff.Chunk { return p.chunks }

type file struct {
	path string
	hash plumbing.Hash
	mode filemode.FileMode
}

func (f *file) Hash() plumbing.Hash    { return f.hash }
func (f *file) Mode() filemode.FileMode { return f.mode }
func (f *file) Path() string            { return f.path }

type chunk struct {
	content string
	op      fdiff.Operation
}

func (c chunk) Content() string       { return c.content }
func (c chunk) Type() fdiff.Operation { return c.op }
