package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rohankatakam/monorel/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture is a temp repository driven through go-git directly so tests do not
// depend on a git binary.
type fixture struct {
	t    *testing.T
	dir  string
	repo *gogit.Repository
	n    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return &fixture{t: t, dir: dir, repo: repo}
}

func (f *fixture) commit(file, content, message string) string {
	f.t.Helper()
	path := filepath.Join(f.dir, file)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(f.t, os.WriteFile(path, []byte(content), 0644))

	wt, err := f.repo.Worktree()
	require.NoError(f.t, err)
	_, err = wt.Add(file)
	require.NoError(f.t, err)

	f.n++
	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: &object.Signature{
		Name:  "Test",
		Email: "test@example.com",
		When:  time.Date(2024, 1, 1, 0, f.n, 0, 0, time.UTC),
	}})
	require.NoError(f.t, err)
	return hash.String()
}

func (f *fixture) open() *Repository {
	f.t.Helper()
	r, err := Open(filepath.Join(f.dir, "."), logging.Discard())
	require.NoError(f.t, err)
	return r
}

func TestCommitsSinceTag(t *testing.T) {
	f := newFixture(t)
	f.commit("packages/api/index.js", "v1", "feat(api): initial")
	r := f.open()

	created, err := r.CreateTag("api@1.0.0", "")
	require.NoError(t, err)
	assert.True(t, created)

	second := f.commit("packages/api/index.js", "v2", "fix(api): null check")
	third := f.commit("packages/web/app.js", "w", "feat(web): page")

	raws, err := r.CommitsSince("api@1.0.0")
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, third, raws[0].Hash)
	assert.Equal(t, second, raws[1].Hash)
	assert.Equal(t, "fix(api): null check", raws[1].Message)

	all, err := r.CommitsSince("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = r.CommitsSince("nope@1.0.0")
	assert.Error(t, err)
}

func TestChangedFiles(t *testing.T) {
	f := newFixture(t)
	f.commit("packages/api/index.js", "v1", "feat(api): initial")
	f.commit("README.md", "hello", "docs: readme")
	r := f.open()
	_, err := r.CreateTag("v1.0.0", "release 1.0.0")
	require.NoError(t, err)

	f.commit("packages/web/app.js", "w", "feat(web): page")

	files, err := r.ChangedFiles("v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"packages/web/app.js"}, files)

	files, err = r.ChangedFiles("")
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "packages/api/index.js", "packages/web/app.js"}, files)
}

func TestCreateTagExistingIsNoop(t *testing.T) {
	f := newFixture(t)
	f.commit("a.txt", "a", "chore: init")
	r := f.open()

	created, err := r.CreateTag("v0.1.0", "first")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.CreateTag("v0.1.0", "again")
	require.NoError(t, err)
	assert.False(t, created)

	tags, err := r.Tags()
	require.NoError(t, err)
	assert.Equal(t, []string{"v0.1.0"}, tags)
}

func TestStageAndCommit(t *testing.T) {
	f := newFixture(t)
	f.commit("package.json", `{"version":"1.0.0"}`, "chore: init")
	r := f.open()

	path := filepath.Join(r.Root(), "package.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"1.1.0"}`), 0644))
	require.NoError(t, r.Stage(path))

	hash, err := r.Commit("chore(release): api@1.1.0")
	require.NoError(t, err)

	head, err := r.HeadHash()
	require.NoError(t, err)
	assert.Equal(t, hash, head)

	raws, err := r.CommitsSince("")
	require.NoError(t, err)
	assert.Equal(t, "chore(release): api@1.1.0", raws[0].Message)

	files, err := r.ChangedFiles("")
	require.NoError(t, err)
	assert.Equal(t, []string{"package.json"}, files)
}

func TestRestoreUndoesStagedChanges(t *testing.T) {
	f := newFixture(t)
	f.commit("packages/api/package.json", `{"version":"1.0.0"}`, "chore: init")
	r := f.open()

	pkg := filepath.Join(r.Root(), "packages/api/package.json")
	changelog := filepath.Join(r.Root(), "packages/api/CHANGELOG.md")
	require.NoError(t, os.WriteFile(pkg, []byte(`{"version":"1.1.0"}`), 0644))
	require.NoError(t, os.WriteFile(changelog, []byte("# Changelog\n"), 0644))
	require.NoError(t, r.Stage(pkg, changelog))

	require.NoError(t, r.Restore(pkg, changelog))

	data, err := os.ReadFile(pkg)
	require.NoError(t, err)
	assert.Equal(t, `{"version":"1.0.0"}`, string(data))
	_, err = os.Stat(changelog)
	assert.True(t, os.IsNotExist(err))

	wt, err := f.repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean(), status.String())
}

func TestRemoteURL(t *testing.T) {
	f := newFixture(t)
	f.commit("a.txt", "a", "chore: init")
	_, err := f.repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:acme/mono.git"},
	})
	require.NoError(t, err)

	r := f.open()
	url, err := r.RemoteURL("origin")
	require.NoError(t, err)
	assert.Equal(t, "git@github.com:acme/mono.git", url)

	_, err = r.RemoteURL("upstream")
	assert.Error(t, err)
}

func TestOpenOutsideRepository(t *testing.T) {
	_, err := Open(t.TempDir(), logging.Discard())
	assert.Error(t, err)
}
