// Package git is the release engine's view of the working repository: commit
// logs since a tag, changed files, and the stage/commit/tag/push steps.
package git

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/rohankatakam/monorel/internal/commits"
	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/sirupsen/logrus"
)

// DefaultAuthorName and DefaultAuthorEmail sign release commits and tags when
// the repository config has no user.
const (
	DefaultAuthorName  = "monorel"
	DefaultAuthorEmail = "monorel@users.noreply.github.com"
)

// Repository wraps an opened go-git repository.
type Repository struct {
	repo   *gogit.Repository
	root   string
	logger logrus.FieldLogger
	// Token authenticates pushes over https when set.
	Token string
}

// Open finds the repository containing path.
func Open(path string, logger logrus.FieldLogger) (*Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errs.GitErrorf(err, "not a git repository: %s", path)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errs.GitError(err, "repository has no worktree")
	}
	return &Repository{repo: repo, root: wt.Filesystem.Root(), logger: logger}, nil
}

// Root is the worktree's top-level directory.
func (r *Repository) Root() string {
	return r.root
}

// Tags lists every tag name, sorted.
func (r *Repository) Tags() ([]string, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, errs.GitError(err, "list tags")
	}
	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, errs.GitError(err, "list tags")
	}
	sort.Strings(names)
	return names, nil
}

// tagCommit peels a lightweight or annotated tag to its commit.
func (r *Repository) tagCommit(name string) (*object.Commit, error) {
	ref, err := r.repo.Tag(name)
	if err != nil {
		return nil, errs.GitErrorf(err, "tag %s", name)
	}
	if tag, err := r.repo.TagObject(ref.Hash()); err == nil {
		c, err := tag.Commit()
		if err != nil {
			return nil, errs.GitErrorf(err, "tag %s does not point at a commit", name)
		}
		return c, nil
	}
	c, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, errs.GitErrorf(err, "resolve tag %s", name)
	}
	return c, nil
}

func (r *Repository) head() (*object.Commit, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return nil, errs.GitError(err, "resolve HEAD")
	}
	c, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, errs.GitError(err, "read HEAD commit")
	}
	return c, nil
}

// HeadHash returns the full hash of HEAD.
func (r *Repository) HeadHash() (string, error) {
	c, err := r.head()
	if err != nil {
		return "", err
	}
	return c.Hash.String(), nil
}

// CommitsSince returns the commits reachable from HEAD but not from tag,
// newest first. An empty tag means the whole history.
func (r *Repository) CommitsSince(tag string) ([]commits.Raw, error) {
	head, err := r.head()
	if err != nil {
		return nil, err
	}

	seen := make(map[plumbing.Hash]bool)
	if tag != "" {
		base, err := r.tagCommit(tag)
		if err != nil {
			return nil, err
		}
		err = object.NewCommitPreorderIter(base, nil, nil).ForEach(func(c *object.Commit) error {
			seen[c.Hash] = true
			return nil
		})
		if err != nil {
			return nil, errs.GitErrorf(err, "walk history of %s", tag)
		}
	}

	var out []commits.Raw
	err = object.NewCommitPreorderIter(head, seen, nil).ForEach(func(c *object.Commit) error {
		out = append(out, commits.Raw{Hash: c.Hash.String(), Message: c.Message})
		return nil
	})
	if err != nil {
		return nil, errs.GitError(err, "walk history")
	}
	return out, nil
}

// ChangedFiles lists paths (relative to the root) that differ between tag and
// HEAD. An empty tag lists every tracked file.
func (r *Repository) ChangedFiles(tag string) ([]string, error) {
	head, err := r.head()
	if err != nil {
		return nil, err
	}
	headTree, err := head.Tree()
	if err != nil {
		return nil, errs.GitError(err, "read HEAD tree")
	}

	var baseTree *object.Tree
	if tag != "" {
		base, err := r.tagCommit(tag)
		if err != nil {
			return nil, err
		}
		if baseTree, err = base.Tree(); err != nil {
			return nil, errs.GitErrorf(err, "read tree of %s", tag)
		}
	}

	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, errs.GitError(err, "diff trees")
	}

	set := make(map[string]bool)
	for _, ch := range changes {
		if ch.From.Name != "" {
			set[ch.From.Name] = true
		}
		if ch.To.Name != "" {
			set[ch.To.Name] = true
		}
	}
	files := make([]string, 0, len(set))
	for f := range set {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// rel turns an absolute or root-relative path into a slash-separated
// worktree path.
func (r *Repository) rel(p string) (string, error) {
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(p), nil
	}
	rel, err := filepath.Rel(r.root, p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Stage adds paths (absolute or root-relative) to the index.
func (r *Repository) Stage(paths ...string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return errs.GitError(err, "open worktree")
	}
	for _, p := range paths {
		rel, err := r.rel(p)
		if err != nil {
			return errs.GitErrorf(err, "stage %s", p)
		}
		if _, err := wt.Add(rel); err != nil {
			return errs.GitErrorf(err, "stage %s", rel)
		}
	}
	return nil
}

// Restore puts paths back to their HEAD state in both the worktree and the
// index. Files absent from HEAD are deleted and dropped from the index.
func (r *Repository) Restore(paths ...string) error {
	head, err := r.head()
	if err != nil {
		return err
	}
	tree, err := head.Tree()
	if err != nil {
		return errs.GitError(err, "read HEAD tree")
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return errs.GitError(err, "open worktree")
	}

	var untracked []string
	for _, p := range paths {
		rel, err := r.rel(p)
		if err != nil {
			return errs.GitErrorf(err, "restore %s", p)
		}
		abs := filepath.Join(r.root, filepath.FromSlash(rel))

		f, err := tree.File(rel)
		if stderrors.Is(err, object.ErrFileNotFound) {
			if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
				return errs.FileSystemErrorf(err, "remove %s", rel)
			}
			untracked = append(untracked, rel)
			continue
		}
		if err != nil {
			return errs.GitErrorf(err, "restore %s", rel)
		}

		content, err := f.Contents()
		if err != nil {
			return errs.GitErrorf(err, "read %s at HEAD", rel)
		}
		perm := os.FileMode(0644)
		if m, err := f.Mode.ToOSFileMode(); err == nil {
			perm = m.Perm()
		}
		if err := os.WriteFile(abs, []byte(content), perm); err != nil {
			return errs.FileSystemErrorf(err, "restore %s", rel)
		}
		if _, err := wt.Add(rel); err != nil {
			return errs.GitErrorf(err, "restore %s", rel)
		}
	}

	if len(untracked) == 0 {
		return nil
	}
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return errs.GitError(err, "read index")
	}
	for _, rel := range untracked {
		if _, err := idx.Remove(rel); err != nil && !stderrors.Is(err, index.ErrEntryNotFound) {
			return errs.GitErrorf(err, "unstage %s", rel)
		}
	}
	if err := r.repo.Storer.SetIndex(idx); err != nil {
		return errs.GitError(err, "write index")
	}
	return nil
}

func (r *Repository) signature() *object.Signature {
	sig := &object.Signature{Name: DefaultAuthorName, Email: DefaultAuthorEmail, When: time.Now()}
	if cfg, err := r.repo.ConfigScoped(config.GlobalScope); err == nil {
		if cfg.User.Name != "" {
			sig.Name = cfg.User.Name
		}
		if cfg.User.Email != "" {
			sig.Email = cfg.User.Email
		}
	}
	return sig
}

// Commit records the staged changes and returns the new commit hash.
func (r *Repository) Commit(message string) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", errs.GitError(err, "open worktree")
	}
	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: r.signature()})
	if err != nil {
		return "", errs.GitError(err, "commit")
	}
	return hash.String(), nil
}

// CreateTag creates an annotated tag at HEAD. An existing tag is left alone
// and reported through created=false.
func (r *Repository) CreateTag(name, message string) (created bool, err error) {
	head, err := r.head()
	if err != nil {
		return false, err
	}
	if message == "" {
		message = name
	}
	_, err = r.repo.CreateTag(name, head.Hash, &gogit.CreateTagOptions{
		Tagger:  r.signature(),
		Message: message,
	})
	if stderrors.Is(err, gogit.ErrTagExists) {
		r.logger.WithField("tag", name).Info("tag already exists, leaving it in place")
		return false, nil
	}
	if err != nil {
		return false, errs.GitErrorf(err, "create tag %s", name)
	}
	return true, nil
}

// RemoteURL returns the first URL of the named remote.
func (r *Repository) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", errs.GitErrorf(err, "remote %s", name)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errs.New(errs.ErrorTypeGit, errs.SeverityHigh, "remote "+name+" has no URL")
	}
	return urls[0], nil
}

// Push sends the current branch and tags to remote.
func (r *Repository) Push(ctx context.Context, remote string, tags []string) error {
	ref, err := r.repo.Head()
	if err != nil {
		return errs.GitError(err, "resolve HEAD")
	}

	specs := []config.RefSpec{}
	if ref.Name().IsBranch() {
		specs = append(specs, config.RefSpec(ref.Name().String()+":"+ref.Name().String()))
	}
	for _, t := range tags {
		name := plumbing.NewTagReferenceName(t).String()
		specs = append(specs, config.RefSpec(name+":"+name))
	}
	if len(specs) == 0 {
		return nil
	}

	opts := &gogit.PushOptions{RemoteName: remote, RefSpecs: specs}
	if r.Token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: r.Token}
	}

	err = r.repo.PushContext(ctx, opts)
	if stderrors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return errs.GitErrorf(err, "push to %s", remote).WithContext("refs", strings.Join(tagsOrBranch(specs), ","))
	}
	r.logger.WithFields(logrus.Fields{"remote": remote, "tags": tags}).Info("pushed release")
	return nil
}

func tagsOrBranch(specs []config.RefSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Src()
	}
	return out
}
